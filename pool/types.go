// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/types.go
// Summary: Identifiers, modes and lifecycle states.

package pool

import "fmt"

// TerminalID identifies a terminal for the lifetime of a Pool. Ids start at
// 1 and are never reused.
type TerminalID uint64

// InvalidID is never assigned to a terminal.
const InvalidID TerminalID = 0

// Mode controls whether a terminal drives rendering.
type Mode uint8

const (
	ModeActive     Mode = 0
	ModeBackground Mode = 1
	ModeInvalid    Mode = 255
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModeBackground:
		return "background"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// State is a terminal's lifecycle position.
type State int

const (
	StateCreated State = iota
	StateActive
	StateBackground
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateBackground:
		return "background"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RenderLayout places one terminal in the host window, in logical points
// with a top-left origin.
type RenderLayout struct {
	TerminalID TerminalID
	X, Y       float64
	Width      float64
	Height     float64
	Visible    bool
}
