// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: search/search.go
// Summary: Literal and regex search over scrollback and viewport.
// Usage: Run builds a State; Next/Prev walk its matches circularly.
// Notes: Matches are a snapshot of the buffer at Run time. Output that
// arrives later is not searched until Run is called again.

package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/framegrace/texelpool/parser"
	"github.com/framegrace/texelpool/selection"
)

// ErrEmptyPattern is returned for an empty search string.
var ErrEmptyPattern = errors.New("search: empty pattern")

// Match is an inclusive cell range. It may span soft-wrapped rows.
type Match struct {
	Start selection.Point
	End   selection.Point
}

// State is the result of one search. Current is -1 when there are no
// matches.
type State struct {
	Pattern       string
	IsRegex       bool
	CaseSensitive bool
	Matches       []Match
	Current       int

	evicted int64
	epoch   uint64
}

// Compile builds the matcher. Literal patterns are NFC-normalized and quoted.
func Compile(pattern string, isRegex, caseSensitive bool) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	expr := pattern
	if !isRegex {
		expr = regexp.QuoteMeta(norm.NFC.String(pattern))
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("search: compile %q: %w", pattern, err)
	}
	return re, nil
}

// Run scans the whole retained buffer, oldest row first. The current match
// is the first one starting at or below the top of the viewport, wrapping to
// the first match overall.
func Run(buf selection.Buffer, pattern string, isRegex, caseSensitive bool) (*State, error) {
	re, err := Compile(pattern, isRegex, caseSensitive)
	if err != nil {
		return nil, err
	}
	st := &State{
		Pattern:       pattern,
		IsRegex:       isRegex,
		CaseSensitive: caseSensitive,
		Current:       -1,
		evicted:       buf.Evicted(),
		epoch:         buf.Epoch(),
	}

	_, rows := buf.Size()
	total := buf.HistoryLen() + rows
	for abs := 0; abs < total; {
		line, refs, next := logicalLine(buf, abs, total)
		abs = next
		if line == "" {
			continue
		}
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if loc[0] == loc[1] {
				continue
			}
			st.Matches = append(st.Matches, Match{Start: refs[loc[0]], End: refs[loc[1]-1]})
		}
	}

	if len(st.Matches) > 0 {
		top := int64(buf.HistoryLen() - buf.DisplayOffset())
		st.Current = 0
		for i, m := range st.Matches {
			if m.Start.Row >= top {
				st.Current = i
				break
			}
		}
	}
	return st, nil
}

// logicalLine joins abs and any rows it soft-wraps into. refs maps every
// byte of the returned string to the cell it came from.
func logicalLine(buf selection.Buffer, abs, total int) (string, []selection.Point, int) {
	var b strings.Builder
	var refs []selection.Point
	r := abs
	for ; r < total; r++ {
		row, ok := buf.Row(r)
		if !ok {
			r++
			break
		}
		last := len(row)
		if !parser.RowWrapped(row) {
			for last > 0 && row[last-1].IsBlank() {
				last--
			}
		}
		for col := 0; col < last; col++ {
			c := row[col]
			if c.Spacer {
				continue
			}
			ch := c.Rune
			if ch == 0 {
				ch = ' '
			}
			if !utf8.ValidRune(ch) {
				ch = utf8.RuneError
			}
			b.WriteRune(ch)
			n := utf8.RuneLen(ch)
			for i := 0; i < n; i++ {
				refs = append(refs, selection.Point{Row: int64(r), Col: col})
			}
		}
		if !parser.RowWrapped(row) {
			r++
			break
		}
	}
	return b.String(), refs, r
}

// Count returns the number of matches.
func (s *State) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Matches)
}

// Index returns the 1-based current match, 0 when there are none.
func (s *State) Index() int {
	if s == nil || s.Current < 0 {
		return 0
	}
	return s.Current + 1
}

// Next advances to the following match, wrapping at the end.
func (s *State) Next() int {
	if s.Count() == 0 {
		return 0
	}
	s.Current = (s.Current + 1) % len(s.Matches)
	return s.Current + 1
}

// Prev moves to the preceding match, wrapping at the start.
func (s *State) Prev() int {
	if s.Count() == 0 {
		return 0
	}
	s.Current = (s.Current - 1 + len(s.Matches)) % len(s.Matches)
	return s.Current + 1
}

// rebase converts a stored match into the current address space.
func (s *State) rebase(buf selection.Buffer, m Match) (Match, bool) {
	if buf.Epoch() != s.epoch {
		return Match{}, false
	}
	shift := buf.Evicted() - s.evicted
	m.Start.Row -= shift
	m.End.Row -= shift
	if m.Start.Row < 0 {
		return Match{}, false
	}
	return m, true
}

// CurrentMatch returns the current match in today's coordinates.
func (s *State) CurrentMatch(buf selection.Buffer) (Match, bool) {
	if s.Count() == 0 || s.Current < 0 {
		return Match{}, false
	}
	return s.rebase(buf, s.Matches[s.Current])
}

// ScrollTarget returns the absolute row the view should show for the
// current match.
func (s *State) ScrollTarget(buf selection.Buffer) (int64, bool) {
	m, ok := s.CurrentMatch(buf)
	if !ok {
		return 0, false
	}
	return m.Start.Row, true
}

// MatchesInRows returns the still-addressable matches touching [from, to].
// The bool reports which of them is the current match.
func (s *State) MatchesInRows(buf selection.Buffer, from, to int64) ([]Match, []bool) {
	if s.Count() == 0 {
		return nil, nil
	}
	var out []Match
	var current []bool
	for i, m := range s.Matches {
		rm, ok := s.rebase(buf, m)
		if !ok || rm.End.Row < from || rm.Start.Row > to {
			continue
		}
		out = append(out, rm)
		current = append(current, i == s.Current)
	}
	return out, current
}
