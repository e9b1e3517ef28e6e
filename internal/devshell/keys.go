// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/devshell/keys.go
// Summary: Encodes tcell key events as the bytes an xterm would send.

package devshell

import (
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

var functionKeys = map[tcell.Key]string{
	tcell.KeyF1:  "\x1bOP",
	tcell.KeyF2:  "\x1bOQ",
	tcell.KeyF3:  "\x1bOR",
	tcell.KeyF4:  "\x1bOS",
	tcell.KeyF5:  "\x1b[15~",
	tcell.KeyF6:  "\x1b[17~",
	tcell.KeyF7:  "\x1b[18~",
	tcell.KeyF8:  "\x1b[19~",
	tcell.KeyF9:  "\x1b[20~",
	tcell.KeyF10: "\x1b[21~",
	tcell.KeyF11: "\x1b[23~",
	tcell.KeyF12: "\x1b[24~",
}

var editingKeys = map[tcell.Key]string{
	tcell.KeyHome:   "\x1b[H",
	tcell.KeyEnd:    "\x1b[F",
	tcell.KeyInsert: "\x1b[2~",
	tcell.KeyDelete: "\x1b[3~",
	tcell.KeyPgUp:   "\x1b[5~",
	tcell.KeyPgDn:   "\x1b[6~",
}

var arrowFinal = map[tcell.Key]byte{
	tcell.KeyUp:    'A',
	tcell.KeyDown:  'B',
	tcell.KeyRight: 'C',
	tcell.KeyLeft:  'D',
}

// EncodeKey returns the input bytes for ev, or nil when the key has no
// encoding. appCursor selects SS3 arrows (DECCKM).
func EncodeKey(ev *tcell.EventKey, appCursor bool) []byte {
	key := ev.Key()
	if final, ok := arrowFinal[key]; ok {
		if appCursor {
			return []byte{0x1b, 'O', final}
		}
		return []byte{0x1b, '[', final}
	}
	if seq, ok := editingKeys[key]; ok {
		return []byte(seq)
	}
	if seq, ok := functionKeys[key]; ok {
		return []byte(seq)
	}

	switch key {
	case tcell.KeyEnter:
		return []byte{'\r'}
	case tcell.KeyBackspace2:
		return []byte{0x7f}
	case tcell.KeyRune:
		r := ev.Rune()
		buf := make([]byte, 0, utf8.UTFMax+1)
		if ev.Modifiers()&tcell.ModAlt != 0 {
			buf = append(buf, 0x1b)
		}
		return utf8.AppendRune(buf, r)
	}
	// KeyCtrlA..KeyCtrlZ, Tab, Esc and friends are the control codes
	// themselves.
	if key >= 0 && key < 0x20 {
		return []byte{byte(key)}
	}
	return nil
}

// EncodePaste wraps data in bracketed-paste markers when the application
// asked for them.
func EncodePaste(data []byte, bracketed bool) []byte {
	if !bracketed {
		return data
	}
	out := make([]byte, 0, len(data)+12)
	out = append(out, "\x1b[200~"...)
	out = append(out, data...)
	return append(out, "\x1b[201~"...)
}
