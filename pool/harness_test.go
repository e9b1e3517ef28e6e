// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/harness_test.go
// Summary: Fake sessions and a pool harness shared by the pool tests.
// Usage: Executed during `go test` to guard against regressions.

package pool

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/framegrace/texelpool/internal/ptysession"
)

type resizeCall struct {
	cols, rows, pw, ph uint16
}

type fakeSession struct {
	mu        sync.Mutex
	written   []string
	full      bool
	closed    bool
	resizes   []resizeCall
	graces    []time.Duration
	cwd       string
	code      int
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{done: make(chan struct{}), code: -1, cwd: "/fake/cwd"}
}

func (s *fakeSession) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ptysession.ErrClosed
	}
	if s.full {
		return ptysession.ErrQueueFull
	}
	s.written = append(s.written, string(p))
	return nil
}

func (s *fakeSession) Resize(cols, rows, pw, ph uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resizes = append(s.resizes, resizeCall{cols, rows, pw, ph})
	return nil
}

func (s *fakeSession) Close(grace time.Duration) error {
	s.mu.Lock()
	s.closed = true
	s.graces = append(s.graces, grace)
	s.mu.Unlock()
	s.exit(-1)
	return nil
}

func (s *fakeSession) exit(code int) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.code = code
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

func (s *fakeSession) Cwd() (string, error) { return s.cwd, nil }

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type poolHarness struct {
	t    *testing.T
	pool *Pool

	mu        sync.Mutex
	sessions  map[TerminalID]*fakeSession
	outputs   map[TerminalID]func([]byte)
	failSpawn bool
}

func newPoolHarness(t *testing.T, mutate func(*Options)) *poolHarness {
	t.Helper()
	h := &poolHarness{
		t:        t,
		sessions: make(map[TerminalID]*fakeSession),
		outputs:  make(map[TerminalID]func([]byte)),
	}
	opts := DefaultOptions()
	opts.CursorBlink = 0
	opts.EventWait = 0
	opts.Spawner = h.spawn
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.pool = p
	t.Cleanup(func() { p.Close() })
	return h
}

func (h *poolHarness) spawn(req SpawnRequest, output func([]byte)) (Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failSpawn {
		return nil, errors.New("fork failed")
	}
	s := newFakeSession()
	h.sessions[req.ID] = s
	h.outputs[req.ID] = output
	return s, nil
}

func (h *poolHarness) create(cols, rows int) TerminalID {
	h.t.Helper()
	id, err := h.pool.Create(cols, rows, "")
	if err != nil {
		h.t.Fatalf("Create: %v", err)
	}
	return id
}

func (h *poolHarness) session(id TerminalID) *fakeSession {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[id]
}

// output feeds PTY output as if the reader goroutine had received it.
func (h *poolHarness) output(id TerminalID, s string) {
	h.mu.Lock()
	fn := h.outputs[id]
	h.mu.Unlock()
	if fn == nil {
		h.t.Fatalf("no output for terminal %d", id)
	}
	fn([]byte(s))
}

func (h *poolHarness) lines(id TerminalID, n int) {
	for i := 0; i < n; i++ {
		h.output(id, fmt.Sprintf("line %d\r\n", i))
	}
}

func (h *poolHarness) snapshot(id TerminalID) TerminalSnapshot {
	h.t.Helper()
	snap, err := h.pool.Snapshot(id)
	if err != nil {
		h.t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

// poolLine returns the text of a viewport row.
func (h *poolHarness) poolLine(id TerminalID, row int) string {
	var line string
	err := h.pool.withEntry(id, func(e *entry) error {
		line = e.vterm.LineText(e.vterm.VisibleTop() + row)
		return nil
	})
	if err != nil {
		h.t.Fatalf("poolLine: %v", err)
	}
	return line
}

// waitEvent reads events until one matches or the timeout expires.
func waitEvent(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed")
			}
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event")
		}
	}
}
