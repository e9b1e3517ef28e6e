// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/ops_test.go
// Summary: Exercises selection and search operations through the pool.
// Usage: Executed during `go test` to guard against regressions.

package pool

import (
	"errors"
	"testing"

	"github.com/framegrace/texelpool/selection"
)

func TestFinalizeSelection(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 3)
	h.output(id, "hello   world")

	if err := h.pool.StartSelection(id, 5, 0, selection.KindSimple); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}
	h.pool.UpdateSelection(id, 7, 0)
	has, err := h.pool.FinalizeSelection(id)
	if err != nil || has {
		t.Fatalf("whitespace selection must be dropped, has=%v err=%v", has, err)
	}
	if h.snapshot(id).HasSelection {
		t.Fatalf("selection should be cleared")
	}

	h.pool.StartSelection(id, 0, 0, selection.KindSimple)
	h.pool.UpdateSelection(id, 4, 0)
	has, _ = h.pool.FinalizeSelection(id)
	if !has {
		t.Fatalf("expected selection to be kept")
	}
	if text, _ := h.pool.SelectionText(id); text != "hello" {
		t.Fatalf("expected hello, got %q", text)
	}

	h.pool.ClearSelection(id)
	if text, _ := h.pool.SelectionText(id); text != "" {
		t.Fatalf("expected no text after clear, got %q", text)
	}
}

func TestFinalizeDropsBlankMultiRowSelection(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.output(id, "top\r\n\r\n  \r\n\r\nbottom")

	if err := h.pool.StartSelection(id, 3, 1, selection.KindSimple); err != nil {
		t.Fatalf("StartSelection: %v", err)
	}
	h.pool.UpdateSelection(id, 10, 3)
	if text, _ := h.pool.SelectionText(id); text != "\n\n" {
		t.Fatalf("expected only newlines before finalize, got %q", text)
	}
	has, err := h.pool.FinalizeSelection(id)
	if err != nil || has {
		t.Fatalf("selection of blank rows must be dropped, has=%v err=%v", has, err)
	}
	if h.snapshot(id).HasSelection {
		t.Fatalf("selection should be cleared")
	}

	h.pool.StartSelection(id, 0, 0, selection.KindSimple)
	h.pool.UpdateSelection(id, 2, 4)
	if has, _ := h.pool.FinalizeSelection(id); !has {
		t.Fatalf("selection spanning text must be kept")
	}
	if text, _ := h.pool.SelectionText(id); text != "top\n\n\n\nbot" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestSemanticSelectionThroughPool(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(30, 3)
	h.output(id, "run foo_bar.sh now")
	h.pool.StartSelection(id, 6, 0, selection.KindSemantic)
	if text, _ := h.pool.SelectionText(id); text != "foo_bar" {
		t.Fatalf("expected foo_bar, got %q", text)
	}
	h.pool.UpdateSelection(id, 12, 0)
	if text, _ := h.pool.SelectionText(id); text != "foo_bar.sh" {
		t.Fatalf("expected foo_bar.sh, got %q", text)
	}
}

func TestSelectionOutOfRange(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(10, 3)
	if err := h.pool.StartSelection(id, 10, 0, selection.KindSimple); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := h.pool.ScreenToAbsolute(id, 0, 3); !errors.Is(err, selection.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := h.pool.StartSelection(42, 0, 0, selection.KindSimple); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScreenToAbsoluteUsesOffset(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.lines(id, 20)
	h.pool.Scroll(id, 3)
	snap := h.snapshot(id)
	p, err := h.pool.ScreenToAbsolute(id, 2, 1)
	if err != nil {
		t.Fatalf("ScreenToAbsolute: %v", err)
	}
	want := int64(snap.HistoryLen - snap.DisplayOffset + 1)
	if p.Row != want || p.Col != 2 {
		t.Fatalf("expected row %d col 2, got %+v", want, p)
	}
}

func TestWordAtThroughPool(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 3)
	h.output(id, "foo_bar baz!")
	cases := []struct {
		col        int
		want       string
		start, end int
	}{
		{2, "foo_bar", 0, 6},
		{7, "", 7, 7},
		{9, "baz", 8, 10},
		{11, "!", 11, 11},
	}
	for _, tc := range cases {
		got, err := h.pool.WordAt(id, tc.col, 0)
		if err != nil {
			t.Fatalf("col %d: %v", tc.col, err)
		}
		want := WordBoundary{StartCol: tc.start, EndCol: tc.end, Row: 0, Text: tc.want}
		if got != want {
			t.Fatalf("col %d: expected %+v, got %+v", tc.col, want, got)
		}
	}
	if _, err := h.pool.WordAt(id, 20, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument past the last column, got %v", err)
	}
}

func TestWordAtReportsAbsoluteRow(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 3)
	h.lines(id, 10)
	h.output(id, "tail")
	snap := h.snapshot(id)
	got, err := h.pool.WordAt(id, 1, snap.Rows-1)
	if err != nil {
		t.Fatalf("WordAt: %v", err)
	}
	if got.Text != "tail" || got.Row != int64(snap.HistoryLen+snap.Rows-1) {
		t.Fatalf("unexpected boundary %+v with history %d", got, snap.HistoryLen)
	}
}

func TestSearchThroughPool(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.output(id, "one two one\r\nthree one")

	res, err := h.pool.SearchStart(id, "one", false, true)
	if err != nil || res.Total != 3 || res.Current != 1 {
		t.Fatalf("expected 3 matches at 1, got %+v %v", res, err)
	}
	if !res.HasScroll || res.ScrollRow != 0 {
		t.Fatalf("expected scroll target on row 0, got %+v", res)
	}
	if snap := h.snapshot(id); snap.SearchCount != 3 || snap.SearchIndex != 1 {
		t.Fatalf("unexpected search counters %+v", snap)
	}
	steps := []struct {
		current int
		row     int64
	}{{2, 0}, {3, 1}, {1, 0}}
	for _, want := range steps {
		got, _ := h.pool.SearchNext(id)
		if got.Current != want.current || got.Total != 3 || !got.HasScroll || got.ScrollRow != want.row {
			t.Fatalf("next: expected %d on row %d, got %+v", want.current, want.row, got)
		}
	}
	if got, _ := h.pool.SearchPrev(id); got.Current != 3 || got.ScrollRow != 1 {
		t.Fatalf("prev: expected wrap to 3 on row 1, got %+v", got)
	}

	h.pool.ClearSearch(id)
	if got, _ := h.pool.SearchNext(id); got != (SearchResult{}) {
		t.Fatalf("expected empty result after clear, got %+v", got)
	}
}

func TestSearchStatusCodes(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	_, err := h.pool.SearchStart(id, "", false, false)
	if !errors.Is(err, ErrInvalidArgument) || SearchStatusCode(err) != StatusInvalidArgument {
		t.Fatalf("empty pattern: got %v", err)
	}
	_, err = h.pool.SearchStart(id, "(", true, false)
	if SearchStatusCode(err) != StatusInvalidArgument {
		t.Fatalf("bad regex: got %v", err)
	}
	_, err = h.pool.SearchStart(999, "x", false, false)
	if SearchStatusCode(err) != StatusNotFound {
		t.Fatalf("unknown id: got %v", err)
	}
	res, err := h.pool.SearchStart(id, "absent", false, false)
	if err != nil || res.Total != 0 || res.Current != 0 || res.HasScroll {
		t.Fatalf("expected zero matches, got %+v %v", res, err)
	}
}

func TestSearchScrollsMatchIntoView(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.lines(id, 60)

	res, err := h.pool.SearchStart(id, `^line 3$`, true, true)
	if err != nil || res.Total != 1 || res.ScrollRow != 3 {
		t.Fatalf("expected one match on row 3, got %+v %v", res, err)
	}
	snap := h.snapshot(id)
	top := snap.HistoryLen - snap.DisplayOffset
	if 3 < top || 3 >= top+snap.Rows {
		t.Fatalf("match row 3 not visible, top=%d offset=%d", top, snap.DisplayOffset)
	}
}
