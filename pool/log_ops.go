// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/log_ops.go
// Summary: Per-terminal output log queries.
// Notes: The log is enabled by Options.LogLines; with it off every call
// returns ErrUnsupported.

package pool

import (
	"fmt"

	"github.com/framegrace/texelpool/outlog"
)

// outputLog returns the terminal's log. The buffer has its own lock and is
// used after the entry lock is released.
func (p *Pool) outputLog(id TerminalID) (*outlog.Buffer, error) {
	var buf *outlog.Buffer
	if err := p.withEntry(id, func(e *entry) error {
		buf = e.output
		return nil
	}); err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, fmt.Errorf("pool: terminal %d has no output log: %w", id, ErrUnsupported)
	}
	return buf, nil
}

// QueryLog returns a page of the terminal's plain-text output.
func (p *Pool) QueryLog(id TerminalID, q outlog.Query) (outlog.Result, error) {
	buf, err := p.outputLog(id)
	if err != nil {
		return outlog.Result{}, err
	}
	res, err := buf.Run(q)
	if err != nil {
		return outlog.Result{}, fmt.Errorf("pool: query log: %w: %w", ErrInvalidArgument, err)
	}
	return res, nil
}

// TailLog returns the last count committed lines.
func (p *Pool) TailLog(id TerminalID, count int) ([]outlog.Line, error) {
	buf, err := p.outputLog(id)
	if err != nil {
		return nil, err
	}
	return buf.Tail(count), nil
}

// MarkLogBoundary starts a new run so later queries can ask for only the
// output that follows.
func (p *Pool) MarkLogBoundary(id TerminalID) (uint64, error) {
	buf, err := p.outputLog(id)
	if err != nil {
		return 0, err
	}
	return buf.MarkBoundary(), nil
}

func (p *Pool) ClearLog(id TerminalID) error {
	buf, err := p.outputLog(id)
	if err != nil {
		return err
	}
	buf.Clear()
	return nil
}
