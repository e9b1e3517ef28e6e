// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/snapshot.go
// Summary: Coherent read-only views of a terminal.

package pool

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelpool/selection"
)

// CursorShape is the renderer-facing cursor form.
type CursorShape int

const (
	CursorBlock CursorShape = iota
	CursorUnderline
	CursorBeam
	CursorHidden
)

func shapeOf(style tcell.CursorStyle, visible bool) CursorShape {
	if !visible {
		return CursorHidden
	}
	switch style {
	case tcell.CursorStyleBlinkingUnderline, tcell.CursorStyleSteadyUnderline:
		return CursorUnderline
	case tcell.CursorStyleBlinkingBar, tcell.CursorStyleSteadyBar:
		return CursorBeam
	default:
		return CursorBlock
	}
}

// CursorState describes the cursor in viewport coordinates. Row is -1 when
// the view is scrolled far enough that the cursor is off screen.
type CursorState struct {
	Col      int
	Row      int
	Shape    CursorShape
	Visible  bool
	Blinking bool
	BlinkOn  bool
}

// TerminalSnapshot is taken under a single lock acquisition, so every field
// describes the same instant.
type TerminalSnapshot struct {
	ID            TerminalID
	Cols          int
	Rows          int
	DisplayOffset int
	HistoryLen    int
	Cursor        CursorState

	HasSelection   bool
	SelectionStart selection.Point
	SelectionEnd   selection.Point

	SearchCount int
	SearchIndex int

	Title     string
	Mode      Mode
	AltScreen bool
	Exited    bool
	ExitCode  int

	// Input modes the host needs to encode keys and pastes.
	AppCursorKeys  bool
	BracketedPaste bool
	Mouse          MouseTracking
}

// cursorLocked reports the cursor shifted by the display offset. Caller
// holds e.mu.
func cursorLocked(e *entry) CursorState {
	x, y := e.vterm.Cursor()
	row := y + e.vterm.DisplayOffset()
	if row >= e.rows {
		row = -1
	}
	visible := e.vterm.CursorVisible()
	return CursorState{
		Col:      x,
		Row:      row,
		Shape:    shapeOf(e.vterm.CursorStyle(), visible),
		Visible:  visible,
		Blinking: e.vterm.CursorBlinking(),
		BlinkOn:  e.blinkOn,
	}
}

// Snapshot returns the terminal's current view state.
func (p *Pool) Snapshot(id TerminalID) (TerminalSnapshot, error) {
	var snap TerminalSnapshot
	err := p.withEntry(id, func(e *entry) error {
		snap = TerminalSnapshot{
			ID:            e.id,
			Cols:          e.cols,
			Rows:          e.rows,
			DisplayOffset: e.vterm.DisplayOffset(),
			HistoryLen:    e.vterm.HistoryLen(),
			Cursor:        cursorLocked(e),
			SearchCount:   e.search.Count(),
			SearchIndex:   e.search.Index(),
			Title:         e.vterm.Title(),
			Mode:          e.mode,
			AltScreen:     e.vterm.InAltScreen(),
			Exited:        e.exited,
			ExitCode:      e.exitCode,

			AppCursorKeys:  e.vterm.AppCursorKeys(),
			BracketedPaste: e.vterm.IsBracketedPasteModeEnabled(),
			Mouse:          MouseTracking{Mode: e.vterm.MouseMode(), SGR: e.vterm.MouseSGR()},
		}
		if e.sel != nil {
			snap.SelectionStart, snap.SelectionEnd, snap.HasSelection = e.sel.Range(e.vterm)
		}
		return nil
	})
	return snap, err
}

// Cursor returns the cursor position in viewport coordinates.
func (p *Pool) Cursor(id TerminalID) (col, row int, err error) {
	err = p.withEntry(id, func(e *entry) error {
		c := cursorLocked(e)
		col, row = c.Col, c.Row
		return nil
	})
	return col, row, err
}

// Title returns the last title set through OSC 0 or 2.
func (p *Pool) Title(id TerminalID) (string, error) {
	var title string
	err := p.withEntry(id, func(e *entry) error {
		title = e.vterm.Title()
		return nil
	})
	return title, err
}

// Cwd returns the directory reported through OSC 7, falling back to the
// foreground process's working directory.
func (p *Pool) Cwd(id TerminalID) (string, error) {
	var (
		dir  string
		sess Session
	)
	err := p.withEntry(id, func(e *entry) error {
		dir = e.vterm.WorkingDir()
		sess = e.session
		return nil
	})
	if err != nil || dir != "" {
		return dir, err
	}
	if sess == nil {
		return "", fmt.Errorf("terminal %d: no session: %w", id, ErrInternal)
	}
	return sess.Cwd()
}
