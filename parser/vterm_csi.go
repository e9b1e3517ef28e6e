// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/vterm_csi.go
// Summary: CSI dispatch, cursor movement and DEC private modes.
// Usage: Part of VTerm terminal emulator.

package parser

import "fmt"

// ProcessCSI dispatches a complete control sequence. subParams holds the
// colon-separated values that followed each parameter, if any.
func (v *VTerm) ProcessCSI(command rune, params []int, subParams [][]int, intermediate rune, private bool) {
	param := func(i int, defaultVal int) int {
		if i < len(params) && params[i] != 0 {
			return params[i]
		}
		return defaultVal
	}

	if intermediate == ' ' && command == 'q' { // DECSCUSR
		v.SetCursorStyle(param(0, 0))
		return
	}
	if intermediate != 0 {
		debugLog.Printf("Parser: ignoring CSI with intermediate %q final %q", intermediate, command)
		return
	}

	if command == 'h' || command == 'l' {
		if private {
			v.processPrivateMode(command == 'h', params)
		}
		return
	}
	if private {
		// CSI ? ... n/c and friends: not answered.
		return
	}

	switch command {
	case 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'f', 'd':
		v.handleCursorMovement(command, params)
	case 'J':
		v.EraseInDisplay(param(0, 0))
	case 'K':
		v.EraseInLine(param(0, 0))
	case 'X':
		v.EraseCharacters(param(0, 1))
	case 'P':
		v.DeleteCharacters(param(0, 1))
	case '@':
		v.InsertCharacters(param(0, 1))
	case 'L':
		v.InsertLines(param(0, 1))
	case 'M':
		v.DeleteLines(param(0, 1))
	case 'S':
		v.scrollUp(param(0, 1))
	case 'T':
		v.scrollDown(param(0, 1))
	case 'b':
		v.RepeatCharacter(param(0, 1))
	case 'g':
		v.ClearTabStop(param(0, 0))
	case 'm':
		v.handleSGR(params, subParams)
	case 'r':
		v.SetMargins(param(0, 1), param(1, v.height))
	case 's':
		v.SaveCursor()
	case 'u':
		v.RestoreCursor()
	case 'n':
		switch param(0, 0) {
		case 5:
			v.reply("\x1b[0n")
		case 6:
			v.reply(fmt.Sprintf("\x1b[%d;%dR", v.cursorY+1, v.cursorX+1))
		}
	case 'c':
		if param(0, 0) == 0 {
			// VT220 with ANSI color.
			v.reply("\x1b[?62;22c")
		}
	default:
		debugLog.Printf("Parser: unhandled CSI %q params=%v", command, params)
	}
}

func (v *VTerm) handleCursorMovement(command rune, params []int) {
	param := func(i int, defaultVal int) int {
		if i < len(params) && params[i] != 0 {
			return params[i]
		}
		return defaultVal
	}
	switch command {
	case 'A':
		v.moveCursorVertical(-param(0, 1))
	case 'B':
		v.moveCursorVertical(param(0, 1))
	case 'C':
		v.SetCursorPos(v.cursorY, v.cursorX+param(0, 1))
	case 'D':
		v.SetCursorPos(v.cursorY, v.cursorX-param(0, 1))
	case 'E':
		v.moveCursorVertical(param(0, 1))
		v.SetCursorPos(v.cursorY, 0)
	case 'F':
		v.moveCursorVertical(-param(0, 1))
		v.SetCursorPos(v.cursorY, 0)
	case 'G':
		v.SetCursorPos(v.cursorY, param(0, 1)-1)
	case 'd':
		v.SetCursorPos(param(0, 1)-1, v.cursorX)
	case 'H', 'f':
		v.SetCursorPos(param(0, 1)-1, param(1, 1)-1)
	}
}

// moveCursorVertical moves within the scroll region when the cursor starts
// inside it, otherwise within the screen.
func (v *VTerm) moveCursorVertical(delta int) {
	y := v.cursorY + delta
	if v.cursorY >= v.marginTop && v.cursorY <= v.marginBottom {
		if y < v.marginTop {
			y = v.marginTop
		}
		if y > v.marginBottom {
			y = v.marginBottom
		}
	}
	v.SetCursorPos(y, v.cursorX)
}

func (v *VTerm) processPrivateMode(set bool, params []int) {
	for _, mode := range params {
		switch mode {
		case 1:
			v.appCursorKeys = set
		case 7:
			v.autoWrapMode = set
			if !set {
				v.wrapNext = false
			}
		case 12:
			v.setCursorBlink(set)
		case 25:
			v.SetCursorVisible(set)
		case 47, 1047:
			if set {
				v.enterAltScreen(false)
			} else {
				v.exitAltScreen(false)
			}
		case 1049:
			if set {
				v.enterAltScreen(true)
			} else {
				v.exitAltScreen(true)
			}
		case 2004:
			v.bracketedPasteMode = set
		case 9, 1000, 1002, 1003:
			v.setMouseMode(MouseMode(mode), set)
		case 1006:
			v.mouseSGR = set
		case 1005, 1015:
			// UTF-8 and urxvt encodings are not supported; SGR covers both.
		default:
			debugLog.Printf("Parser: unhandled private mode %d set=%v", mode, set)
		}
	}
}
