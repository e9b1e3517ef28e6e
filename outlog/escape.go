// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: outlog/escape.go
// Summary: Minimal escape-sequence skipper for the output log.

package outlog

type escMode uint8

const (
	escGround escMode = iota
	escStart
	escIntermediate
	escCSI
	escString    // OSC, DCS, APC, PM, SOS bodies
	escStringEnd // ESC seen inside a string body
)

type escState struct {
	mode escMode
}

// feed consumes r and reports whether it is ordinary output.
func (e *escState) feed(r rune) bool {
	switch e.mode {
	case escGround:
		if r == 0x1b {
			e.mode = escStart
			return false
		}
		return true
	case escStart:
		switch {
		case r == '[':
			e.mode = escCSI
		case r == ']' || r == 'P' || r == '_' || r == '^' || r == 'X':
			e.mode = escString
		case r >= 0x20 && r <= 0x2f:
			e.mode = escIntermediate
		case r == 0x1b:
			// ESC ESC restarts the sequence
		default:
			e.mode = escGround
		}
		return false
	case escIntermediate:
		if r < 0x20 || r > 0x2f {
			e.mode = escGround
		}
		return false
	case escCSI:
		if r >= 0x40 && r <= 0x7e {
			e.mode = escGround
		} else if r == 0x1b {
			e.mode = escStart
		}
		return false
	case escString:
		switch r {
		case 0x07:
			e.mode = escGround
		case 0x1b:
			e.mode = escStringEnd
		}
		return false
	case escStringEnd:
		if r == '\\' {
			e.mode = escGround
		} else if r != 0x1b {
			e.mode = escString
		}
		return false
	}
	e.mode = escGround
	return true
}
