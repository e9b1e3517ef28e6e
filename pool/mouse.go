// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/mouse.go
// Summary: Mouse reports for applications that enabled tracking.
// Notes: Encodes xterm's SGR (1006) form when requested, the legacy X10
// byte form otherwise.

package pool

import (
	"fmt"

	"github.com/framegrace/texelpool/parser"
)

// MouseButton follows xterm's button numbering.
type MouseButton int

const (
	MouseLeft      MouseButton = 0
	MouseMiddle    MouseButton = 1
	MouseRight     MouseButton = 2
	MouseNoButton  MouseButton = 3
	MouseWheelUp   MouseButton = 64
	MouseWheelDown MouseButton = 65
)

// MouseAction is what happened to the button.
type MouseAction int

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
)

// MouseModifiers are held keys reported with the event.
type MouseModifiers int

const (
	MouseShift MouseModifiers = 4
	MouseAlt   MouseModifiers = 8
	MouseCtrl  MouseModifiers = 16
)

// MouseEvent is a mouse action on a viewport cell (0-based).
type MouseEvent struct {
	Button MouseButton
	Action MouseAction
	Col    int
	Row    int
	Mods   MouseModifiers
}

// legacyLimit is the largest 1-based coordinate the byte encoding carries.
const legacyLimit = 223

// EncodeMouse returns the report for ev under the given tracking mode, or
// nil when the mode does not report this kind of event.
func EncodeMouse(ev MouseEvent, mode parser.MouseMode, sgr bool) []byte {
	if !wantsMouse(ev, mode) {
		return nil
	}
	code := int(ev.Button)
	if mode != parser.MouseX10 {
		code |= int(ev.Mods)
	}
	if ev.Action == MouseMotion {
		code += 32
	}
	x, y := ev.Col+1, ev.Row+1
	if sgr {
		final := 'M'
		if ev.Action == MouseRelease {
			final = 'm'
		}
		return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", code, x, y, final))
	}
	if ev.Action == MouseRelease {
		// The byte form cannot say which button was released.
		code = int(MouseNoButton) | code&^3
	}
	if x > legacyLimit || y > legacyLimit {
		return nil
	}
	return []byte{0x1b, '[', 'M', byte(32 + code), byte(32 + x), byte(32 + y)}
}

func wantsMouse(ev MouseEvent, mode parser.MouseMode) bool {
	wheel := ev.Button == MouseWheelUp || ev.Button == MouseWheelDown
	if wheel && ev.Action == MouseRelease {
		return false
	}
	switch mode {
	case parser.MouseX10:
		return ev.Action == MousePress && !wheel
	case parser.MouseNormal:
		return ev.Action != MouseMotion
	case parser.MouseButtonEvent:
		return ev.Action != MouseMotion || ev.Button != MouseNoButton
	case parser.MouseAnyEvent:
		return true
	default:
		return false
	}
}

// MouseTracking is the tracking state an application requested.
type MouseTracking struct {
	Mode parser.MouseMode
	SGR  bool
}

// Enabled reports whether mouse events belong to the application.
func (m MouseTracking) Enabled() bool { return m.Mode != parser.MouseOff }

// MouseTracking returns the terminal's mouse tracking state.
func (p *Pool) MouseTracking(id TerminalID) (MouseTracking, error) {
	var mt MouseTracking
	err := p.withEntry(id, func(e *entry) error {
		mt = MouseTracking{Mode: e.vterm.MouseMode(), SGR: e.vterm.MouseSGR()}
		return nil
	})
	return mt, err
}

// HasMouseTracking reports whether the terminal's application wants mouse
// events. Unknown ids report false.
func (p *Pool) HasMouseTracking(id TerminalID) bool {
	mt, err := p.MouseTracking(id)
	return err == nil && mt.Enabled()
}

// SendMouse encodes ev for the terminal's application and writes it to the
// child. It reports false, without error, when tracking is off or the mode
// does not cover ev.
func (p *Pool) SendMouse(id TerminalID, ev MouseEvent) (bool, error) {
	var sent bool
	err := p.withEntry(id, func(e *entry) error {
		if ev.Col < 0 || ev.Col >= e.cols || ev.Row < 0 || ev.Row >= e.rows {
			return fmt.Errorf("terminal %d: mouse at %d,%d: %w", id, ev.Col, ev.Row, ErrInvalidArgument)
		}
		data := EncodeMouse(ev, e.vterm.MouseMode(), e.vterm.MouseSGR())
		if data == nil {
			return nil
		}
		if err := e.session.Write(data); err != nil {
			return fmt.Errorf("terminal %d: mouse: %w: %w", id, ErrResourceExhausted, err)
		}
		sent = true
		return nil
	})
	return sent, err
}
