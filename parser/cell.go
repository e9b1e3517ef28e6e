// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/cell.go
// Summary: Cell, color and attribute types for the terminal grid.
// Usage: Shared by the grid store, selection, search and the pool's run builder.
// Notes: Keeps parsing concerns isolated from rendering.

package parser

import "strings"

type Attribute uint16

const (
	AttrBold Attribute = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrDoubleUnderline
	AttrCurlyUnderline
	AttrDottedUnderline
	AttrDashedUnderline
	AttrBlink
	AttrReverse
	AttrHidden
	AttrStrikeout
)

// AttrAnyUnderline covers every underline variant.
const AttrAnyUnderline = AttrUnderline | AttrDoubleUnderline | AttrCurlyUnderline | AttrDottedUnderline | AttrDashedUnderline

var attributeNames = []struct {
	attr Attribute
	name string
}{
	{AttrBold, "bold"},
	{AttrDim, "dim"},
	{AttrItalic, "italic"},
	{AttrUnderline, "underline"},
	{AttrDoubleUnderline, "double-underline"},
	{AttrCurlyUnderline, "curly-underline"},
	{AttrDottedUnderline, "dotted-underline"},
	{AttrDashedUnderline, "dashed-underline"},
	{AttrBlink, "blink"},
	{AttrReverse, "reverse"},
	{AttrHidden, "hidden"},
	{AttrStrikeout, "strikeout"},
}

// String returns a human-readable representation of the attribute flags.
func (a Attribute) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	for _, entry := range attributeNames {
		if a&entry.attr != 0 {
			parts = append(parts, entry.name)
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// ColorMode defines the type of color stored.
type ColorMode int

const (
	ColorModeDefault  ColorMode = iota // Default terminal color
	ColorModeStandard                  // The 16 ANSI colors
	ColorMode256                       // 256-color palette
	ColorModeRGB                       // 24-bit "true" color
)

// Color represents a color in one of the supported modes.
type Color struct {
	Mode    ColorMode
	Value   uint8 // Palette index for Standard (0-15) and 256-mode (0-255)
	R, G, B uint8 // RGB mode only
}

// Cell represents a single character cell on the screen.
type Cell struct {
	Rune    rune
	FG      Color
	BG      Color
	Attr    Attribute
	Wrapped bool // Last cell of a row that soft-wraps onto the next row
	Wide    bool // Holds a 2-column rune; the following cell is its spacer
	Spacer  bool // Trailing half of a wide rune
	Link    uint32 // OSC 8 hyperlink id, 0 when none
}

// IsBlank reports whether the cell renders as empty space.
func (c Cell) IsBlank() bool {
	return c.Rune == 0 || c.Rune == ' '
}

// Predefined default colors.
var (
	DefaultFG = Color{Mode: ColorModeDefault}
	DefaultBG = Color{Mode: ColorModeDefault}
)

func blankCell(fg, bg Color) Cell {
	return Cell{Rune: ' ', FG: fg, BG: bg}
}

func blankRow(width int, fg, bg Color) []Cell {
	row := make([]Cell, width)
	for i := range row {
		row[i] = blankCell(fg, bg)
	}
	return row
}
