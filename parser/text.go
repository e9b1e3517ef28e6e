// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/text.go
// Summary: Plain-text extraction over absolute rows.

package parser

import "strings"

// RowWrapped reports whether a row soft-wraps onto the next one.
func RowWrapped(row []Cell) bool {
	return len(row) > 0 && row[len(row)-1].Wrapped
}

// AppendCells appends the text of cells[from:to] to b, skipping wide-rune
// spacers. Empty cells become spaces.
func AppendCells(b *strings.Builder, cells []Cell, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(cells) {
		to = len(cells)
	}
	for x := from; x < to; x++ {
		c := cells[x]
		if c.Spacer {
			continue
		}
		if c.Rune == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(c.Rune)
	}
}

// LineText returns the text of one absolute row with trailing blanks trimmed.
func (v *VTerm) LineText(abs int) string {
	row, ok := v.Row(abs)
	if !ok {
		return ""
	}
	var b strings.Builder
	AppendCells(&b, row, 0, len(row))
	return strings.TrimRight(b.String(), " ")
}

// Text extracts the inclusive range (startRow, startCol)..(endRow, endCol).
// Trailing blanks are trimmed on rows that end a logical line, and rows are
// joined with '\n' unless the earlier one soft-wraps.
func (v *VTerm) Text(startRow, startCol, endRow, endCol int) string {
	if endRow < startRow || (endRow == startRow && endCol < startCol) {
		return ""
	}
	var out strings.Builder
	for r := startRow; r <= endRow; r++ {
		row, ok := v.Row(r)
		if !ok {
			continue
		}
		from, to := 0, len(row)
		if r == startRow {
			from = startCol
		}
		if r == endRow {
			to = endCol + 1
		}
		var seg strings.Builder
		AppendCells(&seg, row, from, to)
		wrapped := RowWrapped(row) && r != endRow
		if wrapped {
			out.WriteString(seg.String())
			continue
		}
		out.WriteString(strings.TrimRight(seg.String(), " "))
		if r != endRow {
			out.WriteByte('\n')
		}
	}
	return out.String()
}
