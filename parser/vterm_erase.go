// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/vterm_erase.go
// Summary: Erase, insert and delete operations on lines and characters.
// Usage: Part of VTerm terminal emulator.
// Notes: Erased cells take the current background color (BCE).

package parser

func (v *VTerm) eraseCell() Cell { return blankCell(v.defaultFG, v.currentBG) }

// EraseInDisplay implements ED. Mode 3 also drops the scrollback.
func (v *VTerm) EraseInDisplay(mode int) {
	buf := v.buf()
	switch mode {
	case 0:
		v.EraseInLine(0)
		for y := v.cursorY + 1; y < v.height; y++ {
			v.fillRow(buf[y], 0, v.width)
		}
	case 1:
		v.EraseInLine(1)
		for y := 0; y < v.cursorY; y++ {
			v.fillRow(buf[y], 0, v.width)
		}
	case 2:
		for y := 0; y < v.height; y++ {
			v.fillRow(buf[y], 0, v.width)
		}
	case 3:
		if !v.inAltScreen {
			v.history.clear()
			v.viewOffset = 0
		}
	}
	v.MarkAllDirty()
}

// EraseInLine implements EL.
func (v *VTerm) EraseInLine(mode int) {
	row := v.buf()[v.cursorY]
	switch mode {
	case 0:
		v.clearWideAt(row, v.cursorX)
		v.fillRow(row, v.cursorX, v.width)
	case 1:
		v.clearWideAt(row, v.cursorX)
		v.fillRow(row, 0, v.cursorX+1)
	case 2:
		v.fillRow(row, 0, v.width)
	}
	v.MarkDirty(v.cursorY)
}

// EraseCharacters implements ECH without moving the cursor.
func (v *VTerm) EraseCharacters(n int) {
	row := v.buf()[v.cursorY]
	end := v.cursorX + n
	if end > v.width {
		end = v.width
	}
	v.clearWideAt(row, v.cursorX)
	v.clearWideAt(row, end-1)
	v.fillRow(row, v.cursorX, end)
	v.MarkDirty(v.cursorY)
}

// DeleteCharacters implements DCH, shifting the rest of the row left.
func (v *VTerm) DeleteCharacters(n int) {
	row := v.buf()[v.cursorY]
	x := v.cursorX
	if n > v.width-x {
		n = v.width - x
	}
	v.clearWideAt(row, x)
	copy(row[x:], row[x+n:])
	v.fillRow(row, v.width-n, v.width)
	v.wrapNext = false
	v.MarkDirty(v.cursorY)
}

// InsertCharacters implements ICH, shifting the rest of the row right.
func (v *VTerm) InsertCharacters(n int) {
	row := v.buf()[v.cursorY]
	x := v.cursorX
	if n > v.width-x {
		n = v.width - x
	}
	v.clearWideAt(row, x)
	copy(row[x+n:], row[x:v.width-n])
	v.fillRow(row, x, x+n)
	if last := v.width - 1; row[last].Wide {
		row[last] = v.eraseCell()
	}
	v.wrapNext = false
	v.MarkDirty(v.cursorY)
}

// InsertLines implements IL inside the scroll region.
func (v *VTerm) InsertLines(n int) {
	if v.cursorY < v.marginTop || v.cursorY > v.marginBottom {
		return
	}
	top := v.marginTop
	v.marginTop = v.cursorY
	v.scrollDown(n)
	v.marginTop = top
	v.SetCursorPos(v.cursorY, 0)
}

// DeleteLines implements DL inside the scroll region. Removed rows never
// enter history.
func (v *VTerm) DeleteLines(n int) {
	if v.cursorY < v.marginTop || v.cursorY > v.marginBottom {
		return
	}
	buf := v.buf()
	bottom := v.marginBottom
	if n > bottom-v.cursorY+1 {
		n = bottom - v.cursorY + 1
	}
	for i := 0; i < n; i++ {
		copy(buf[v.cursorY:bottom], buf[v.cursorY+1:bottom+1])
		buf[bottom] = blankRow(v.width, v.defaultFG, v.currentBG)
	}
	v.SetCursorPos(v.cursorY, 0)
	v.MarkAllDirty()
}

func (v *VTerm) fillRow(row []Cell, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(row) {
		to = len(row)
	}
	blank := v.eraseCell()
	for x := from; x < to; x++ {
		row[x] = blank
	}
}
