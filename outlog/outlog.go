// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: outlog/outlog.go
// Summary: Plain-text ring buffer of a terminal's PTY output.
// Usage: The pool appends every chunk it reads; hosts page through the
// committed lines by sequence number.
// Notes: Escape sequences are stripped and a bare carriage return restarts
// the current line, so progress bars keep only their final state.

package outlog

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// Line is one committed output line. Seq starts at 1 and never repeats for
// the life of the buffer, including across Clear.
type Line struct {
	Seq  uint64 `json:"seq"`
	Text string `json:"text"`
}

// Query selects lines. Zero values mean no bound and no filter.
type Query struct {
	After           uint64 // only lines with Seq > After
	Before          uint64 // only lines with Seq < Before
	Limit           int
	Search          string
	Regex           bool
	CaseInsensitive bool
	Backward        bool // return the most recent matches
	CurrentRun      bool // use the run boundary as the lower bound
}

// Result is one page of lines in chronological order.
type Result struct {
	Lines         []Line `json:"lines"`
	NextSeq       uint64 `json:"next_seq"`
	HasMore       bool   `json:"has_more"`
	Truncated     bool   `json:"truncated"`
	BoundarySeq   uint64 `json:"boundary_seq,omitempty"`
	BoundaryValid bool   `json:"boundary_valid"`
}

// Buffer is safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	max      int
	lines    []Line // ring storage
	start    int
	count    int
	nextSeq  uint64
	current  strings.Builder
	partial  []byte
	esc      escState
	cr       bool // carriage return seen; the next text restarts the line
	boundary uint64
}

// New returns a buffer keeping at most maxLines committed lines.
func New(maxLines int) *Buffer {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &Buffer{max: maxLines, nextSeq: 1}
}

// Append feeds raw PTY output. Incomplete UTF-8 and escape sequences at the
// end of data carry over to the next call.
func (b *Buffer) Append(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.partial) > 0 {
		data = append(b.partial, data...)
		b.partial = nil
	}
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			if !utf8.FullRune(data) {
				b.partial = append([]byte(nil), data...)
				break
			}
			data = data[1:]
			continue
		}
		data = data[size:]
		if !b.esc.feed(r) {
			continue
		}
		switch {
		case r == '\r':
			b.cr = true
		case r == '\n':
			b.commitLocked()
		case r == '\t' || (r >= 0x20 && (r < 0x7f || r > 0x9f)):
			if b.cr {
				b.current.Reset()
				b.cr = false
			}
			b.current.WriteRune(r)
		}
	}
}

func (b *Buffer) commitLocked() {
	line := Line{Seq: b.nextSeq, Text: b.current.String()}
	b.nextSeq++
	b.current.Reset()
	b.cr = false
	if b.lines == nil {
		b.lines = make([]Line, b.max)
	}
	if b.count < b.max {
		b.lines[(b.start+b.count)%b.max] = line
		b.count++
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % b.max
}

func (b *Buffer) at(i int) Line { return b.lines[(b.start+i)%b.max] }

// Flush commits a pending partial line.
func (b *Buffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current.Len() > 0 {
		b.commitLocked()
	}
}

// Clear drops every line. Sequence numbers keep counting.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start, b.count = 0, 0
	b.current.Reset()
	b.cr = false
}

// MarkBoundary flushes the partial line and records the next sequence
// number as the start of a new run.
func (b *Buffer) MarkBoundary() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current.Len() > 0 {
		b.commitLocked()
	}
	b.boundary = b.nextSeq
	return b.boundary
}

// Len reports the number of committed lines held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Tail returns the last n lines in chronological order.
func (b *Buffer) Tail(n int) []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Line, n)
	for i := range out {
		out[i] = b.at(b.count - n + i)
	}
	return out
}

// Text joins every held line and the partial one with newlines.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	parts := make([]string, 0, b.count+1)
	for i := 0; i < b.count; i++ {
		parts = append(parts, b.at(i).Text)
	}
	if b.current.Len() > 0 {
		parts = append(parts, b.current.String())
	}
	return strings.Join(parts, "\n")
}

// Run executes q. An invalid regular expression is an error.
func (b *Buffer) Run(q Query) (Result, error) {
	match, err := matcher(q)
	if err != nil {
		return Result{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	first := b.nextSeq
	if b.count > 0 {
		first = b.at(0).Seq
	}
	res := Result{
		NextSeq:       b.nextSeq,
		Truncated:     first > 1,
		BoundarySeq:   b.boundary,
		BoundaryValid: b.boundary != 0 && b.boundary >= first,
	}
	after := q.After
	if q.CurrentRun && b.boundary > 0 && b.boundary-1 > after {
		after = b.boundary - 1
	}
	keep := func(l Line) bool {
		if after > 0 && l.Seq <= after {
			return false
		}
		if q.Before > 0 && l.Seq >= q.Before {
			return false
		}
		return match(l.Text)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = b.count
	}

	if q.Backward {
		for i := b.count - 1; i >= 0; i-- {
			l := b.at(i)
			if !keep(l) {
				continue
			}
			if len(res.Lines) == limit {
				res.HasMore = true
				break
			}
			res.Lines = append(res.Lines, l)
		}
		for i, j := 0, len(res.Lines)-1; i < j; i, j = i+1, j-1 {
			res.Lines[i], res.Lines[j] = res.Lines[j], res.Lines[i]
		}
		return res, nil
	}
	for i := 0; i < b.count; i++ {
		l := b.at(i)
		if !keep(l) {
			continue
		}
		if len(res.Lines) == limit {
			res.HasMore = true
			break
		}
		res.Lines = append(res.Lines, l)
	}
	return res, nil
}

func matcher(q Query) (func(string) bool, error) {
	if q.Search == "" {
		return func(string) bool { return true }, nil
	}
	if q.Regex {
		expr := q.Search
		if q.CaseInsensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		return re.MatchString, nil
	}
	if q.CaseInsensitive {
		needle := strings.ToLower(q.Search)
		return func(s string) bool { return strings.Contains(strings.ToLower(s), needle) }, nil
	}
	return func(s string) bool { return strings.Contains(s, q.Search) }, nil
}
