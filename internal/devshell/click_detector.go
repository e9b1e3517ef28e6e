// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/devshell/click_detector.go
// Summary: Multi-click detection mapped onto selection kinds.

package devshell

import (
	"time"

	"github.com/framegrace/texelpool/selection"
)

// ClickType is the number of consecutive clicks at one cell.
type ClickType int

const (
	SingleClick ClickType = 1
	DoubleClick ClickType = 2
	TripleClick ClickType = 3
)

// DefaultMultiClickTimeout is the longest gap between clicks of one sequence.
const DefaultMultiClickTimeout = 500 * time.Millisecond

// SelectionKind maps a click count onto the selection it starts.
func (c ClickType) SelectionKind() selection.Kind {
	switch c {
	case DoubleClick:
		return selection.KindSemantic
	case TripleClick:
		return selection.KindLines
	default:
		return selection.KindSimple
	}
}

// ClickDetector counts clicks at the same cell within a timeout. The count
// cycles 1, 2, 3, 1.
type ClickDetector struct {
	timeout time.Duration
	now     func() time.Time

	last  time.Time
	row   int
	col   int
	count int
}

func NewClickDetector(timeout time.Duration) *ClickDetector {
	if timeout <= 0 {
		timeout = DefaultMultiClickTimeout
	}
	return &ClickDetector{timeout: timeout, now: time.Now}
}

// Detect registers a click at (col, row) and classifies it.
func (c *ClickDetector) Detect(col, row int) ClickType {
	now := c.now()
	if c.count > 0 && row == c.row && col == c.col && now.Sub(c.last) < c.timeout {
		c.count++
		if c.count > 3 {
			c.count = 1
		}
	} else {
		c.count = 1
	}
	c.last, c.row, c.col = now, row, col
	return ClickType(c.count)
}

// Reset makes the next click a single click.
func (c *ClickDetector) Reset() {
	c.count = 0
	c.last = time.Time{}
}
