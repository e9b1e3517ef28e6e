// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/harness_test.go
// Summary: Test harness for VTerm control sequence testing.
// Usage: Used by test files to send sequences and verify buffer state.

package parser

import (
	"strings"
	"testing"
)

// testHarness provides utilities for testing VTerm control sequences.
type testHarness struct {
	vterm  *VTerm
	parser *Parser
}

func newTestHarness(width, height int, opts ...Option) *testHarness {
	v := NewVTerm(width, height, opts...)
	return &testHarness{vterm: v, parser: NewParser(v)}
}

// SendSeq sends a string, escape sequences included, through the parser.
func (h *testHarness) SendSeq(seq string) {
	if _, err := h.parser.Write([]byte(seq)); err != nil {
		panic(err)
	}
}

// ScreenLine returns the trimmed text of a live screen row.
func (h *testHarness) ScreenLine(y int) string {
	return h.vterm.LineText(h.vterm.HistoryLen() + y)
}

// Screen returns every live row joined with '|' for compact assertions.
func (h *testHarness) Screen() string {
	_, rows := h.vterm.Size()
	lines := make([]string, rows)
	for y := 0; y < rows; y++ {
		lines[y] = h.ScreenLine(y)
	}
	return strings.Join(lines, "|")
}

func (h *testHarness) AssertCursor(t *testing.T, x, y int) {
	t.Helper()
	cx, cy := h.vterm.Cursor()
	if cx != x || cy != y {
		t.Fatalf("cursor at (%d,%d), want (%d,%d)", cx, cy, x, y)
	}
}

func (h *testHarness) AssertScreen(t *testing.T, want string) {
	t.Helper()
	if got := h.Screen(); got != want {
		t.Fatalf("screen = %q, want %q", got, want)
	}
}
