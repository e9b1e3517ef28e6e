// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: outlog/outlog_test.go
// Summary: Exercises escape stripping, ring eviction and paged queries.
// Usage: Executed during `go test` to guard against regressions.

package outlog

import (
	"reflect"
	"testing"
)

func texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestAppendStripsEscapes(t *testing.T) {
	b := New(10)
	b.Append([]byte("\x1b[1;31mred\x1b[0m plain\r\n"))
	b.Append([]byte("\x1b]0;title\x07after osc\n"))
	b.Append([]byte("\x1b(Bcharset\n"))
	b.Append([]byte("\x1bP1$r\x1b\\dcs gone\n"))

	want := []string{"red plain", "after osc", "charset", "dcs gone"}
	if got := texts(b.Tail(10)); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestCarriageReturnOverwrites(t *testing.T) {
	b := New(10)
	b.Append([]byte("10%\r50%\r"))
	b.Append([]byte("100%\n"))
	b.Append([]byte("done\r"))
	b.Append([]byte("\n"))

	want := []string{"100%", "done"}
	if got := texts(b.Tail(10)); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestSplitSequencesAcrossAppends(t *testing.T) {
	b := New(10)
	word := []byte("héllo\n")
	b.Append(word[:2])
	b.Append(word[2:])
	b.Append([]byte("\x1b[3"))
	b.Append([]byte("2mgreen\n"))

	want := []string{"héllo", "green"}
	if got := texts(b.Tail(10)); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestRingEvictsOldest(t *testing.T) {
	b := New(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		b.Append([]byte(s + "\n"))
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d", b.Len())
	}
	res, err := b.Run(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if got := texts(res.Lines); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
		t.Fatalf("lines = %q", got)
	}
	if !res.Truncated || res.NextSeq != 6 || res.Lines[0].Seq != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestQueryPaging(t *testing.T) {
	b := New(100)
	for _, s := range []string{"build a", "ERROR one", "build b", "error two", "build c"} {
		b.Append([]byte(s + "\n"))
	}

	page, _ := b.Run(Query{Limit: 2})
	if got := texts(page.Lines); !reflect.DeepEqual(got, []string{"build a", "ERROR one"}) || !page.HasMore {
		t.Fatalf("first page = %q more=%v", got, page.HasMore)
	}
	page, _ = b.Run(Query{After: page.Lines[1].Seq, Limit: 2})
	if got := texts(page.Lines); !reflect.DeepEqual(got, []string{"build b", "error two"}) {
		t.Fatalf("second page = %q", got)
	}

	res, _ := b.Run(Query{Search: "error", CaseInsensitive: true})
	if got := texts(res.Lines); !reflect.DeepEqual(got, []string{"ERROR one", "error two"}) {
		t.Fatalf("search = %q", got)
	}
	res, _ = b.Run(Query{Search: "^build", Regex: true, Backward: true, Limit: 2})
	if got := texts(res.Lines); !reflect.DeepEqual(got, []string{"build b", "build c"}) || !res.HasMore {
		t.Fatalf("backward = %q more=%v", got, res.HasMore)
	}
	res, _ = b.Run(Query{Before: 3})
	if len(res.Lines) != 2 {
		t.Fatalf("before bound returned %d lines", len(res.Lines))
	}
	if _, err := b.Run(Query{Search: "(", Regex: true}); err == nil {
		t.Fatal("expected an error for a bad pattern")
	}
}

func TestBoundaryLimitsCurrentRun(t *testing.T) {
	b := New(3)
	b.Append([]byte("old\npartial"))
	seq := b.MarkBoundary()
	if seq != 3 {
		t.Fatalf("boundary = %d, want 3", seq)
	}
	b.Append([]byte("new\n"))

	res, _ := b.Run(Query{CurrentRun: true})
	if got := texts(res.Lines); !reflect.DeepEqual(got, []string{"new"}) {
		t.Fatalf("current run = %q", got)
	}
	if !res.BoundaryValid || res.BoundarySeq != 3 {
		t.Fatalf("boundary state %+v", res)
	}

	b.Append([]byte("x\ny\nz\n"))
	res, _ = b.Run(Query{CurrentRun: true})
	if res.BoundaryValid {
		t.Fatal("boundary evicted from the ring must be reported invalid")
	}
}

func TestClearKeepsSequence(t *testing.T) {
	b := New(5)
	b.Append([]byte("a\nb\n"))
	b.Clear()
	if b.Len() != 0 || b.Text() != "" {
		t.Fatalf("clear left %d lines", b.Len())
	}
	b.Append([]byte("c\n"))
	if tail := b.Tail(1); len(tail) != 1 || tail[0].Seq != 3 {
		t.Fatalf("tail after clear = %+v", tail)
	}
	b.Append([]byte("pending"))
	if got := b.Text(); got != "c\npending" {
		t.Fatalf("Text = %q", got)
	}
	b.Flush()
	if b.Len() != 2 {
		t.Fatalf("Flush did not commit the partial line")
	}
}
