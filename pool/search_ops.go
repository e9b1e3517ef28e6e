// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/search_ops.go
// Summary: Search operations executed under the terminal lock.
// Notes: Matches are a snapshot of the buffer at SearchStart; output that
// arrives later is only searched by a fresh start.

package pool

import (
	"fmt"

	"github.com/framegrace/texelpool/search"
)

// SearchResult reports the state of a terminal's search after an operation.
type SearchResult struct {
	// Total is the number of matches found by the last SearchStart.
	Total int
	// Current is the 1-based current match, 0 when there is none.
	Current int
	// ScrollRow is the absolute row of the current match. It is only
	// meaningful when HasScroll is set.
	ScrollRow int64
	HasScroll bool
}

// searchResult reads the search state. Caller holds e.mu.
func (e *entry) searchResult() SearchResult {
	r := SearchResult{Total: e.search.Count(), Current: e.search.Index()}
	if e.search != nil {
		r.ScrollRow, r.HasScroll = e.search.ScrollTarget(e.vterm)
	}
	return r
}

// SearchStart scans the retained buffer and reports the matches. The view
// scrolls to the current match.
func (p *Pool) SearchStart(id TerminalID, pattern string, isRegex, caseSensitive bool) (SearchResult, error) {
	var res SearchResult
	err := p.withEntry(id, func(e *entry) error {
		st, err := search.Run(e.vterm, pattern, isRegex, caseSensitive)
		if err != nil {
			return fmt.Errorf("terminal %d: search %q: %w: %w", id, pattern, ErrInvalidArgument, err)
		}
		e.search = st
		res = e.searchResult()
		p.ensureVisible(e)
		p.touch(e)
		debugLog.Printf("Pool: terminal %d search %q found %d", id, pattern, res.Total)
		return nil
	})
	return res, err
}

// SearchNext advances to the next match, wrapping after the last. Without
// matches the result is all zero.
func (p *Pool) SearchNext(id TerminalID) (SearchResult, error) {
	return p.stepSearch(id, (*search.State).Next)
}

// SearchPrev moves to the previous match.
func (p *Pool) SearchPrev(id TerminalID) (SearchResult, error) {
	return p.stepSearch(id, (*search.State).Prev)
}

func (p *Pool) stepSearch(id TerminalID, step func(*search.State) int) (SearchResult, error) {
	var res SearchResult
	err := p.withEntry(id, func(e *entry) error {
		if e.search.Count() == 0 {
			return nil
		}
		step(e.search)
		res = e.searchResult()
		p.ensureVisible(e)
		p.touch(e)
		return nil
	})
	return res, err
}

// ClearSearch drops the search state.
func (p *Pool) ClearSearch(id TerminalID) error {
	return p.withEntry(id, func(e *entry) error {
		if e.search != nil {
			e.search = nil
			p.touch(e)
		}
		return nil
	})
}

// ensureVisible scrolls so the current match is on screen, centering it
// when it was outside the viewport. Caller holds e.mu.
func (p *Pool) ensureVisible(e *entry) {
	target, ok := e.search.ScrollTarget(e.vterm)
	if !ok {
		return
	}
	top := int64(e.vterm.VisibleTop())
	if target >= top && target < top+int64(e.rows) {
		return
	}
	wantTop := target - int64(e.rows/2)
	offset := int64(e.vterm.HistoryLen()) - wantTop
	e.vterm.Scroll(int(offset) - e.vterm.DisplayOffset())
}
