// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/log_ops_test.go
// Summary: Exercises the per-terminal output log through the pool.
// Usage: Executed during `go test` to guard against regressions.

package pool

import (
	"errors"
	"testing"

	"github.com/framegrace/texelpool/outlog"
)

func TestOutputLogThroughPool(t *testing.T) {
	h := newPoolHarness(t, func(o *Options) { o.LogLines = 100 })
	id := h.create(20, 5)
	h.output(id, "\x1b[32m$ make\x1b[0m\r\n")
	h.output(id, "compiling 10%\rcompiling 100%\r\n")

	tail, err := h.pool.TailLog(id, 5)
	if err != nil {
		t.Fatalf("TailLog: %v", err)
	}
	if len(tail) != 2 || tail[0].Text != "$ make" || tail[1].Text != "compiling 100%" {
		t.Fatalf("unexpected tail %+v", tail)
	}

	seq, err := h.pool.MarkLogBoundary(id)
	if err != nil || seq != 3 {
		t.Fatalf("MarkLogBoundary = %d, %v", seq, err)
	}
	h.output(id, "$ make test\r\nFAIL pool\r\n")
	res, err := h.pool.QueryLog(id, outlog.Query{CurrentRun: true, Search: "fail", CaseInsensitive: true})
	if err != nil {
		t.Fatalf("QueryLog: %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0].Text != "FAIL pool" || !res.BoundaryValid {
		t.Fatalf("unexpected query result %+v", res)
	}
	if _, err := h.pool.QueryLog(id, outlog.Query{Search: "[", Regex: true}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad pattern: expected ErrInvalidArgument, got %v", err)
	}

	if err := h.pool.ClearLog(id); err != nil {
		t.Fatalf("ClearLog: %v", err)
	}
	if tail, _ := h.pool.TailLog(id, 5); len(tail) != 0 {
		t.Fatalf("log not cleared: %+v", tail)
	}
}

func TestOutputLogDisabled(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	if _, err := h.pool.TailLog(id, 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := h.pool.MarkLogBoundary(id); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := h.pool.ClearLog(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOutputLogFeedsTranscript(t *testing.T) {
	rec := &fakeRecorder{}
	h := newPoolHarness(t, func(o *Options) {
		o.Recorder = rec
		o.LogLines = 2
	})
	id := h.create(20, 5)
	h.output(id, "one\r\ntwo\r\nthree\r\n\x1b[2Jcleared screen")
	if err := h.pool.CloseTerminal(id); err != nil {
		t.Fatalf("CloseTerminal: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, c := range rec.calls {
		if c.kind == "close" {
			if c.text != "three\ncleared screen" {
				t.Fatalf("transcript = %q", c.text)
			}
			return
		}
	}
	t.Fatal("no close recorded")
}
