// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/palette.go
// Summary: Resolves grid colors to RGBA for the renderer.

package pool

import (
	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelpool/parser"
)

// RGBA is a straight (non-premultiplied) 8-bit color.
type RGBA struct {
	R, G, B, A uint8
}

const (
	paletteDefaultFG = 256
	paletteDefaultBG = 257
)

// palette holds the 256 xterm colors plus the default foreground and
// background.
type palette [258]RGBA

func newDefaultPalette() *palette {
	var p palette
	ansi := [16]tcell.Color{
		tcell.NewRGBColor(0, 0, 0),
		tcell.NewRGBColor(205, 49, 49),
		tcell.NewRGBColor(13, 188, 121),
		tcell.NewRGBColor(229, 229, 16),
		tcell.NewRGBColor(36, 114, 200),
		tcell.NewRGBColor(188, 63, 188),
		tcell.NewRGBColor(17, 168, 205),
		tcell.NewRGBColor(229, 229, 229),
		tcell.NewRGBColor(102, 102, 102),
		tcell.NewRGBColor(241, 76, 76),
		tcell.NewRGBColor(35, 209, 139),
		tcell.NewRGBColor(245, 245, 67),
		tcell.NewRGBColor(59, 142, 234),
		tcell.NewRGBColor(214, 112, 214),
		tcell.NewRGBColor(41, 184, 219),
		tcell.NewRGBColor(255, 255, 255),
	}
	for i, c := range ansi {
		p[i] = fromTcell(c)
	}
	// The cube and grayscale ramp follow xterm exactly.
	for i := 16; i < 256; i++ {
		p[i] = fromTcell(tcell.PaletteColor(i))
	}
	p[paletteDefaultFG] = fromTcell(tcell.NewRGBColor(229, 229, 229))
	p[paletteDefaultBG] = fromTcell(tcell.NewRGBColor(0, 0, 0))
	return &p
}

func fromTcell(c tcell.Color) RGBA {
	r, g, b := c.RGB()
	return RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xFF}
}

// resolve maps a cell color to RGBA. fallback is the palette slot used for
// ColorModeDefault.
func (p *palette) resolve(c parser.Color, fallback int) RGBA {
	switch c.Mode {
	case parser.ColorModeStandard, parser.ColorMode256:
		return p[c.Value]
	case parser.ColorModeRGB:
		return RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	default:
		return p[fallback]
	}
}
