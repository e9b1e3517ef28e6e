// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/query_ops.go
// Summary: Read-only queries: scroll position, hyperlinks and the foreground
// process.

package pool

import (
	"fmt"

	"github.com/framegrace/texelpool/selection"
)

// ScrollInfo is a terminal's scroll position.
type ScrollInfo struct {
	DisplayOffset int
	HistoryLen    int
	// TotalLines counts history plus the visible rows.
	TotalLines int
}

// ScrollInfo returns the scroll position without taking the terminal lock,
// so it never waits on a busy PTY reader. The value is the one published by
// the last mutation.
func (p *Pool) ScrollInfo(id TerminalID) (ScrollInfo, error) {
	e, err := p.lookup(id)
	if err != nil {
		return ScrollInfo{}, err
	}
	info := e.scroll.Load()
	if info == nil {
		return ScrollInfo{}, notFound(id)
	}
	return *info, nil
}

// HyperlinkAt returns the OSC 8 URI under a viewport cell, "" when the cell
// is not part of a link.
func (p *Pool) HyperlinkAt(id TerminalID, col, row int) (string, error) {
	var uri string
	err := p.withEntry(id, func(e *entry) error {
		pt, err := selection.ScreenToAbsolute(e.vterm, col, row)
		if err != nil {
			return outOfRange(id, err)
		}
		uri, _ = e.vterm.HyperlinkAt(int(pt.Row), pt.Col)
		return nil
	})
	return uri, err
}

func (p *Pool) inspector(id TerminalID) (ProcessInspector, error) {
	var sess Session
	if err := p.withEntry(id, func(e *entry) error {
		sess = e.session
		return nil
	}); err != nil {
		return nil, err
	}
	pi, ok := sess.(ProcessInspector)
	if !ok {
		return nil, fmt.Errorf("terminal %d: process lookup: %w", id, ErrUnsupported)
	}
	return pi, nil
}

// ForegroundProcessName returns the command name of the process that owns
// the terminal, the shell itself when nothing else is running.
func (p *Pool) ForegroundProcessName(id TerminalID) (string, error) {
	pi, err := p.inspector(id)
	if err != nil {
		return "", err
	}
	_, name, err := pi.ForegroundProcess()
	if err != nil {
		return "", fmt.Errorf("terminal %d: foreground process: %w", id, err)
	}
	return name, nil
}

// HasRunningProcess reports whether something other than the terminal's
// shell is in the foreground, e.g. before asking the user to confirm a
// close.
func (p *Pool) HasRunningProcess(id TerminalID) (bool, error) {
	pi, err := p.inspector(id)
	if err != nil {
		return false, err
	}
	pid, _, err := pi.ForegroundProcess()
	if err != nil && pid == 0 {
		return false, fmt.Errorf("terminal %d: foreground process: %w", id, err)
	}
	return pid != pi.Pid(), nil
}
