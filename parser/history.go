// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/history.go
// Summary: Fixed-capacity ring buffer holding scrollback rows.

package parser

const defaultHistorySize = 1000

// historyRing stores the oldest-to-newest scrollback rows. When full, pushing
// a row drops the oldest one and bumps the eviction counter.
type historyRing struct {
	rows    [][]Cell
	head    int // index of the oldest row
	length  int
	evicted int64
}

func newHistoryRing(capacity int) *historyRing {
	if capacity < 0 {
		capacity = 0
	}
	return &historyRing{rows: make([][]Cell, capacity)}
}

func (h *historyRing) capacity() int { return len(h.rows) }

func (h *historyRing) len() int { return h.length }

// push appends a row as the newest history line.
func (h *historyRing) push(row []Cell) {
	if len(h.rows) == 0 {
		h.evicted++
		return
	}
	if h.length < len(h.rows) {
		h.rows[(h.head+h.length)%len(h.rows)] = row
		h.length++
		return
	}
	h.rows[h.head] = row
	h.head = (h.head + 1) % len(h.rows)
	h.evicted++
}

// at returns the row at index i, where 0 is the oldest retained row.
func (h *historyRing) at(i int) ([]Cell, bool) {
	if i < 0 || i >= h.length {
		return nil, false
	}
	return h.rows[(h.head+i)%len(h.rows)], true
}

func (h *historyRing) clear() {
	for i := range h.rows {
		h.rows[i] = nil
	}
	h.evicted += int64(h.length)
	h.head = 0
	h.length = 0
}
