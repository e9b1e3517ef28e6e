// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/vterm_sgr.go
// Summary: SGR (Select Graphic Rendition) - text attributes and colors.
// Usage: Part of VTerm terminal emulator.

package parser

// underlineStyles maps the SGR 4:n sub-parameter to an underline attribute.
var underlineStyles = map[int]Attribute{
	1: AttrUnderline,
	2: AttrDoubleUnderline,
	3: AttrCurlyUnderline,
	4: AttrDottedUnderline,
	5: AttrDashedUnderline,
}

// handleSGR processes SGR escape sequences. Extended colors are accepted both
// in the semicolon form (38;5;n, 38;2;r;g;b) and the colon form (38:2::r:g:b).
func (v *VTerm) handleSGR(params []int, subParams [][]int) {
	if len(params) == 0 {
		params = []int{0}
	}
	sub := func(i int) []int {
		if i < len(subParams) {
			return subParams[i]
		}
		return nil
	}
	i := 0
	for i < len(params) {
		p := params[i]
		switch {
		case p == 0:
			v.ResetAttributes()
		case p == 1:
			v.SetAttribute(AttrBold)
		case p == 2:
			v.SetAttribute(AttrDim)
		case p == 3:
			v.SetAttribute(AttrItalic)
		case p == 4:
			v.ClearAttribute(AttrAnyUnderline)
			if s := sub(i); len(s) > 0 {
				if attr, ok := underlineStyles[s[0]]; ok {
					v.SetAttribute(attr)
				}
			} else {
				v.SetAttribute(AttrUnderline)
			}
		case p == 5 || p == 6:
			v.SetAttribute(AttrBlink)
		case p == 7:
			v.SetAttribute(AttrReverse)
		case p == 8:
			v.SetAttribute(AttrHidden)
		case p == 9:
			v.SetAttribute(AttrStrikeout)
		case p == 21:
			v.ClearAttribute(AttrAnyUnderline)
			v.SetAttribute(AttrDoubleUnderline)
		case p == 22:
			v.ClearAttribute(AttrBold | AttrDim)
		case p == 23:
			v.ClearAttribute(AttrItalic)
		case p == 24:
			v.ClearAttribute(AttrAnyUnderline)
		case p == 25:
			v.ClearAttribute(AttrBlink)
		case p == 27:
			v.ClearAttribute(AttrReverse)
		case p == 28:
			v.ClearAttribute(AttrHidden)
		case p == 29:
			v.ClearAttribute(AttrStrikeout)
		case p >= 30 && p <= 37:
			v.currentFG = Color{Mode: ColorModeStandard, Value: uint8(p - 30)}
		case p == 39:
			v.currentFG = v.defaultFG
		case p >= 40 && p <= 47:
			v.currentBG = Color{Mode: ColorModeStandard, Value: uint8(p - 40)}
		case p == 49:
			v.currentBG = v.defaultBG
		case p == 38 || p == 48:
			var c Color
			var ok bool
			if s := sub(i); len(s) > 0 {
				c, ok = extendedColor(s)
			} else {
				var used int
				c, used, ok = extendedColorFromParams(params[i+1:])
				i += used
			}
			if ok {
				if p == 38 {
					v.currentFG = c
				} else {
					v.currentBG = c
				}
			}
		case p >= 90 && p <= 97:
			v.currentFG = Color{Mode: ColorModeStandard, Value: uint8(p - 90 + 8)}
		case p >= 100 && p <= 107:
			v.currentBG = Color{Mode: ColorModeStandard, Value: uint8(p - 100 + 8)}
		}
		i++
	}
}

// extendedColorFromParams decodes 5;n or 2;r;g;b and reports how many
// parameters it consumed.
func extendedColorFromParams(rest []int) (Color, int, bool) {
	if len(rest) >= 2 && rest[0] == 5 {
		return Color{Mode: ColorMode256, Value: clampByte(rest[1])}, 2, true
	}
	if len(rest) >= 4 && rest[0] == 2 {
		return Color{Mode: ColorModeRGB, R: clampByte(rest[1]), G: clampByte(rest[2]), B: clampByte(rest[3])}, 4, true
	}
	return Color{}, 0, false
}

// extendedColor decodes the colon form. The RGB variant may carry an empty
// color-space id (38:2::r:g:b).
func extendedColor(s []int) (Color, bool) {
	switch {
	case len(s) >= 2 && s[0] == 5:
		return Color{Mode: ColorMode256, Value: clampByte(s[1])}, true
	case len(s) >= 5 && s[0] == 2:
		return Color{Mode: ColorModeRGB, R: clampByte(s[2]), G: clampByte(s[3]), B: clampByte(s[4])}, true
	case len(s) == 4 && s[0] == 2:
		return Color{Mode: ColorModeRGB, R: clampByte(s[1]), G: clampByte(s[2]), B: clampByte(s[3])}, true
	}
	return Color{}, false
}

func clampByte(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

// SetAttribute sets a text attribute.
func (v *VTerm) SetAttribute(a Attribute) { v.currentAttr |= a }

// ClearAttribute clears a text attribute.
func (v *VTerm) ClearAttribute(a Attribute) { v.currentAttr &^= a }

// ResetAttributes resets all text attributes and colors to defaults.
func (v *VTerm) ResetAttributes() {
	v.currentFG = v.defaultFG
	v.currentBG = v.defaultBG
	v.currentAttr = 0
}
