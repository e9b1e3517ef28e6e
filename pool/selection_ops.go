// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/selection_ops.go
// Summary: Selection operations executed under the terminal lock.

package pool

import (
	"fmt"
	"strings"

	"github.com/framegrace/texelpool/parser"
	"github.com/framegrace/texelpool/selection"
)

func outOfRange(id TerminalID, err error) error {
	return fmt.Errorf("terminal %d: %w: %w", id, ErrInvalidArgument, err)
}

// ScreenToAbsolute converts a viewport cell using the current display offset.
func (p *Pool) ScreenToAbsolute(id TerminalID, col, row int) (selection.Point, error) {
	var pt selection.Point
	err := p.withEntry(id, func(e *entry) error {
		var err error
		pt, err = selection.ScreenToAbsolute(e.vterm, col, row)
		if err != nil {
			return outOfRange(id, err)
		}
		return nil
	})
	return pt, err
}

// StartSelection replaces any selection with one anchored at a viewport cell.
func (p *Pool) StartSelection(id TerminalID, col, row int, kind selection.Kind) error {
	return p.withEntry(id, func(e *entry) error {
		sel, err := selection.Start(e.vterm, col, row, kind)
		if err != nil {
			return outOfRange(id, err)
		}
		e.sel = sel
		p.touch(e)
		return nil
	})
}

// UpdateSelection moves the extent of the current selection. Without a
// selection it does nothing.
func (p *Pool) UpdateSelection(id TerminalID, col, row int) error {
	return p.withEntry(id, func(e *entry) error {
		if e.sel == nil {
			return nil
		}
		if err := e.sel.Update(e.vterm, col, row); err != nil {
			return outOfRange(id, err)
		}
		p.touch(e)
		return nil
	})
}

// SetSelection installs a selection between two absolute positions.
func (p *Pool) SetSelection(id TerminalID, start, end selection.Point, kind selection.Kind) error {
	return p.withEntry(id, func(e *entry) error {
		if _, ok := e.vterm.Row(int(start.Row)); !ok {
			return outOfRange(id, selection.ErrOutOfRange)
		}
		if _, ok := e.vterm.Row(int(end.Row)); !ok {
			return outOfRange(id, selection.ErrOutOfRange)
		}
		sel := selection.StartAt(e.vterm, start, kind)
		sel.SetExtent(e.vterm, end)
		e.sel = sel
		p.touch(e)
		return nil
	})
}

// ClearSelection drops the selection, if any.
func (p *Pool) ClearSelection(id TerminalID) error {
	return p.withEntry(id, func(e *entry) error {
		if e.sel != nil {
			e.sel = nil
			p.touch(e)
		}
		return nil
	})
}

// FinalizeSelection ends a drag. A selection covering only whitespace is
// cleared and reported as absent.
func (p *Pool) FinalizeSelection(id TerminalID) (bool, error) {
	var has bool
	err := p.withEntry(id, func(e *entry) error {
		if e.sel == nil {
			return nil
		}
		text := e.sel.Text(e.vterm)
		if strings.TrimSpace(text) == "" {
			e.sel = nil
			p.touch(e)
			return nil
		}
		has = true
		return nil
	})
	return has, err
}

// SelectionText returns the selected text, or "" without a selection.
func (p *Pool) SelectionText(id TerminalID) (string, error) {
	var text string
	err := p.withEntry(id, func(e *entry) error {
		if e.sel != nil {
			text = e.sel.Text(e.vterm)
		}
		return nil
	})
	return text, err
}

// WordBoundary is the word found under a cell. Columns are inclusive and
// Row is absolute.
type WordBoundary struct {
	StartCol int
	EndCol   int
	Row      int64
	Text     string
}

// WordAt returns the word under a viewport cell. On whitespace the boundary
// covers just that cell and Text is empty.
func (p *Pool) WordAt(id TerminalID, col, row int) (WordBoundary, error) {
	var wb WordBoundary
	err := p.withEntry(id, func(e *entry) error {
		pt, err := selection.ScreenToAbsolute(e.vterm, col, row)
		if err != nil {
			return outOfRange(id, err)
		}
		cells, ok := e.vterm.Row(int(pt.Row))
		if !ok {
			return outOfRange(id, selection.ErrOutOfRange)
		}
		c := pt.Col
		wb = WordBoundary{StartCol: c, EndCol: c, Row: pt.Row}
		if c >= len(cells) {
			return nil
		}
		if cells[c].Spacer && c > 0 {
			c--
			wb.StartCol, wb.EndCol = c, c
		}
		if selection.Classify(cells[c].Rune) == selection.ClassSpace {
			return nil
		}
		start, end := selection.WordBounds(cells, c)
		var b strings.Builder
		parser.AppendCells(&b, cells, start, end+1)
		wb.StartCol, wb.EndCol, wb.Text = start, end, b.String()
		return nil
	})
	return wb, err
}
