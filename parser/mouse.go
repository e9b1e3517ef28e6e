// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/mouse.go
// Summary: Mouse tracking modes requested by the application.

package parser

// MouseMode is the DECSET number of the active tracking mode.
type MouseMode int

const (
	MouseOff MouseMode = 0
	// MouseX10 reports button presses only.
	MouseX10 MouseMode = 9
	// MouseNormal reports presses and releases.
	MouseNormal MouseMode = 1000
	// MouseButtonEvent adds motion while a button is held.
	MouseButtonEvent MouseMode = 1002
	// MouseAnyEvent reports all motion.
	MouseAnyEvent MouseMode = 1003
)

func (m MouseMode) String() string {
	switch m {
	case MouseOff:
		return "off"
	case MouseX10:
		return "x10"
	case MouseNormal:
		return "normal"
	case MouseButtonEvent:
		return "button-event"
	case MouseAnyEvent:
		return "any-event"
	default:
		return "unknown"
	}
}

// setMouseMode enables a tracking mode, replacing the previous one. Resetting
// a mode only turns tracking off when it is the active one.
func (v *VTerm) setMouseMode(mode MouseMode, set bool) {
	switch {
	case set:
		v.mouseMode = mode
	case v.mouseMode == mode:
		v.mouseMode = MouseOff
	}
}

// MouseMode returns the active tracking mode.
func (v *VTerm) MouseMode() MouseMode { return v.mouseMode }

// MouseSGR reports whether the application asked for SGR (1006) encoding.
func (v *VTerm) MouseSGR() bool { return v.mouseSGR }
