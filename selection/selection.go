// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: selection/selection.go
// Summary: Anchor/extent selection over absolute rows.
// Usage: Owned by one terminal entry and accessed under its lock.
// Notes: Points are stored in the address space that was live when the
// selection started and rebased on read using the history eviction count.

package selection

import (
	"errors"
	"strings"

	"github.com/framegrace/texelpool/parser"
)

// ErrOutOfRange is returned for screen coordinates outside the grid.
var ErrOutOfRange = errors.New("selection: coordinates out of range")

// Buffer is the read surface a selection needs from the grid store.
// *parser.VTerm implements it.
type Buffer interface {
	Size() (cols, rows int)
	HistoryLen() int
	DisplayOffset() int
	Evicted() int64
	Epoch() uint64
	Row(abs int) ([]parser.Cell, bool)
}

// Point is an absolute grid position. Row 0 is the oldest retained history
// row.
type Point struct {
	Row int64
	Col int
}

// Before reports whether p sorts strictly before q.
func (p Point) Before(q Point) bool {
	return p.Row < q.Row || (p.Row == q.Row && p.Col < q.Col)
}

// Kind selects how the selection snaps to content.
type Kind int

const (
	KindSimple Kind = iota
	KindSemantic
	KindLines
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindSemantic:
		return "semantic"
	case KindLines:
		return "lines"
	default:
		return "unknown"
	}
}

// ScreenToAbsolute converts a viewport cell to an absolute position using
// the current display offset.
func ScreenToAbsolute(buf Buffer, col, row int) (Point, error) {
	cols, rows := buf.Size()
	if col < 0 || col >= cols || row < 0 || row >= rows {
		return Point{}, ErrOutOfRange
	}
	return Point{Row: int64(buf.HistoryLen() - buf.DisplayOffset() + row), Col: col}, nil
}

// AbsoluteToScreen is the inverse of ScreenToAbsolute. visible is false when
// the row lies outside the viewport.
func AbsoluteToScreen(buf Buffer, p Point) (col, row int, visible bool) {
	_, rows := buf.Size()
	row = int(p.Row) - (buf.HistoryLen() - buf.DisplayOffset())
	return p.Col, row, row >= 0 && row < rows
}

// Selection tracks an anchor fixed at start and an extent that follows the
// pointer. Normalization happens in Range; Anchor is never rewritten.
type Selection struct {
	Anchor Point
	Extent Point
	Kind   Kind

	evicted int64
	epoch   uint64
}

// Start begins a selection at a viewport cell.
func Start(buf Buffer, col, row int, kind Kind) (*Selection, error) {
	p, err := ScreenToAbsolute(buf, col, row)
	if err != nil {
		return nil, err
	}
	return StartAt(buf, p, kind), nil
}

// StartAt begins a selection at an absolute position.
func StartAt(buf Buffer, p Point, kind Kind) *Selection {
	return &Selection{
		Anchor:  p,
		Extent:  p,
		Kind:    kind,
		evicted: buf.Evicted(),
		epoch:   buf.Epoch(),
	}
}

// Update moves the extent to a viewport cell.
func (s *Selection) Update(buf Buffer, col, row int) error {
	p, err := ScreenToAbsolute(buf, col, row)
	if err != nil {
		return err
	}
	s.UpdateAt(buf, p)
	return nil
}

// UpdateAt moves the extent to an absolute position in the current address
// space. Semantic and Lines selections snap the extent to the word or line
// boundary in the direction of the drag.
func (s *Selection) UpdateAt(buf Buffer, p Point) {
	anchor, ok := s.resolve(buf, s.Anchor)
	if ok {
		forward := !p.Before(anchor)
		p = s.snap(buf, p, forward)
	}
	s.Extent = Point{Row: p.Row + s.shift(buf), Col: p.Col}
}

// SetExtent replaces the extent without snapping.
func (s *Selection) SetExtent(buf Buffer, p Point) {
	s.Extent = Point{Row: p.Row + s.shift(buf), Col: p.Col}
}

// Range returns the normalized inclusive bounds in the current address
// space. ok is false when the selection no longer resolves, for example
// after its rows were evicted or the alternate screen was toggled.
func (s *Selection) Range(buf Buffer) (start, end Point, ok bool) {
	if s == nil || buf.Epoch() != s.epoch {
		return Point{}, Point{}, false
	}
	a, aok := s.resolve(buf, s.Anchor)
	e, eok := s.resolve(buf, s.Extent)
	start, end = a, e
	if e.Before(a) {
		start, end = e, a
		aok, eok = eok, aok
	}
	if !eok {
		return Point{}, Point{}, false
	}
	if !aok {
		// The start scrolled out of history; keep what is still addressable.
		start = Point{}
	}
	start = s.snap(buf, start, false)
	end = s.snap(buf, end, true)
	return start, end, true
}

// Contains reports whether p lies inside the selection.
func (s *Selection) Contains(buf Buffer, p Point) bool {
	start, end, ok := s.Range(buf)
	if !ok {
		return false
	}
	return !p.Before(start) && !end.Before(p)
}

// Text returns the selected text. Rows are joined with '\n' unless the
// earlier row soft-wraps, and trailing blanks are trimmed per line.
func (s *Selection) Text(buf Buffer) string {
	start, end, ok := s.Range(buf)
	if !ok {
		return ""
	}
	return Extract(buf, start, end)
}

// Extract returns the text between two absolute positions, inclusive.
func Extract(buf Buffer, start, end Point) string {
	if end.Before(start) {
		return ""
	}
	var out strings.Builder
	for r := start.Row; r <= end.Row; r++ {
		row, ok := buf.Row(int(r))
		if !ok {
			continue
		}
		from, to := 0, len(row)
		if r == start.Row {
			from = start.Col
		}
		if r == end.Row {
			to = end.Col + 1
		}
		var seg strings.Builder
		parser.AppendCells(&seg, row, from, to)
		if parser.RowWrapped(row) && r != end.Row {
			out.WriteString(seg.String())
			continue
		}
		out.WriteString(strings.TrimRight(seg.String(), " "))
		if r != end.Row {
			out.WriteByte('\n')
		}
	}
	return out.String()
}

// shift is how many rows the address space moved since the selection began.
func (s *Selection) shift(buf Buffer) int64 {
	return buf.Evicted() - s.evicted
}

// resolve rebases a stored point into the current address space.
func (s *Selection) resolve(buf Buffer, p Point) (Point, bool) {
	row := p.Row - s.shift(buf)
	if row < 0 {
		return Point{Row: 0, Col: 0}, false
	}
	if _, ok := buf.Row(int(row)); !ok {
		return Point{}, false
	}
	return Point{Row: row, Col: p.Col}, true
}

// snap expands p to the word or line boundary on the given side.
func (s *Selection) snap(buf Buffer, p Point, forward bool) Point {
	if s.Kind == KindSimple {
		return p
	}
	row, ok := buf.Row(int(p.Row))
	if !ok || len(row) == 0 {
		return p
	}
	switch s.Kind {
	case KindLines:
		if forward {
			p.Col = len(row) - 1
		} else {
			p.Col = 0
		}
	case KindSemantic:
		start, end := WordBounds(row, p.Col)
		if forward {
			p.Col = end
		} else {
			p.Col = start
		}
	}
	return p
}
