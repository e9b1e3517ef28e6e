// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/pool_test.go
// Summary: Exercises terminal lifecycle, input, modes and the render flag.
// Usage: Executed during `go test` to guard against regressions.

package pool

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/framegrace/texelpool/config"
)

func TestCreateAndCloseTerminal(t *testing.T) {
	h := newPoolHarness(t, nil)
	a := h.create(80, 24)
	b := h.create(80, 24)
	if a != 1 || b != 2 {
		t.Fatalf("expected ids 1 and 2, got %d and %d", a, b)
	}
	if n := h.pool.Count(); n != 2 {
		t.Fatalf("expected 2 terminals, got %d", n)
	}

	if err := h.pool.CloseTerminal(a); err != nil {
		t.Fatalf("CloseTerminal: %v", err)
	}
	if !h.session(a).isClosed() {
		t.Fatalf("expected session to be closed")
	}
	if err := h.pool.CloseTerminal(a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second close, got %v", err)
	}
	if err := h.pool.Input(a, []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for input to closed terminal, got %v", err)
	}
	if ids := h.pool.IDs(); len(ids) != 1 || ids[0] != b {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestCloseTerminalForceSkipsGrace(t *testing.T) {
	h := newPoolHarness(t, func(o *Options) { o.CloseGrace = time.Second })
	a := h.create(10, 5)
	b := h.create(10, 5)
	if err := h.pool.CloseTerminal(a); err != nil {
		t.Fatalf("CloseTerminal: %v", err)
	}
	if err := h.pool.CloseTerminalForce(b); err != nil {
		t.Fatalf("CloseTerminalForce: %v", err)
	}
	if g := h.session(a).graces; len(g) != 1 || g[0] != time.Second {
		t.Fatalf("graceful close used %v", g)
	}
	if g := h.session(b).graces; len(g) != 1 || g[0] != 0 {
		t.Fatalf("forced close used %v", g)
	}
	if err := h.pool.CloseTerminalForce(b); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second force close, got %v", err)
	}
}

func TestCreateRacingPoolClose(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	sess := newFakeSession()
	opts := DefaultOptions()
	opts.CursorBlink = 0
	opts.EventWait = 0
	opts.Spawner = func(req SpawnRequest, output func([]byte)) (Session, error) {
		close(entered)
		<-release
		return sess, nil
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type result struct {
		id  TerminalID
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := p.Create(10, 5, "")
		done <- result{id, err}
	}()
	<-entered
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(release)

	r := <-done
	if !errors.Is(r.err, ErrClosed) || r.id != InvalidID {
		t.Fatalf("expected ErrClosed for create racing Close, got id=%d err=%v", r.id, r.err)
	}
	if p.Count() != 0 {
		t.Fatalf("closed pool must not hold terminals, has %d", p.Count())
	}
	if !sess.isClosed() {
		t.Fatalf("session spawned during Close must be shut down")
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	h := newPoolHarness(t, nil)
	a := h.create(10, 5)
	if err := h.pool.CloseTerminal(a); err != nil {
		t.Fatalf("CloseTerminal: %v", err)
	}
	b := h.create(10, 5)
	if b <= a {
		t.Fatalf("expected a fresh id after %d, got %d", a, b)
	}
}

func TestCreateRejectsZeroSize(t *testing.T) {
	h := newPoolHarness(t, nil)
	for _, size := range [][2]int{{0, 24}, {80, 0}, {-1, 5}} {
		id, err := h.pool.Create(size[0], size[1], "")
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%v: expected ErrInvalidArgument, got %v", size, err)
		}
		if IDOrInvalid(id, err) != -1 {
			t.Fatalf("%v: expected legacy id -1", size)
		}
	}
}

func TestCreateSpawnFailure(t *testing.T) {
	h := newPoolHarness(t, nil)
	h.failSpawn = true
	id, err := h.pool.Create(80, 24, "")
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if id != InvalidID || IDOrInvalid(id, err) != -1 {
		t.Fatalf("expected invalid id, got %d", id)
	}
	if h.pool.Count() != 0 {
		t.Fatalf("failed create must not register a terminal")
	}
}

func TestMaxTerminals(t *testing.T) {
	h := newPoolHarness(t, func(o *Options) { o.MaxTerminals = 1 })
	h.create(10, 5)
	if _, err := h.pool.Create(10, 5, ""); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted at the limit, got %v", err)
	}
}

func TestInputQueueFull(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(80, 24)
	if err := h.pool.Input(id, []byte("ls\r")); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if got := h.session(id).written; len(got) != 1 || got[0] != "ls\r" {
		t.Fatalf("unexpected writes %q", got)
	}

	s := h.session(id)
	s.mu.Lock()
	s.full = true
	s.mu.Unlock()
	if err := h.pool.Input(id, []byte("x")); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestInputScrollsToBottom(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.lines(id, 30)
	if err := h.pool.Scroll(id, 4); err != nil {
		t.Fatalf("Scroll: %v", err)
	}
	if off := h.snapshot(id).DisplayOffset; off != 4 {
		t.Fatalf("expected offset 4, got %d", off)
	}
	if err := h.pool.Input(id, []byte("a")); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if off := h.snapshot(id).DisplayOffset; off != 0 {
		t.Fatalf("expected input to snap to bottom, offset %d", off)
	}
}

func TestScrollClamps(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.lines(id, 12)
	h.pool.Scroll(id, 1000)
	snap := h.snapshot(id)
	if snap.DisplayOffset != snap.HistoryLen {
		t.Fatalf("expected offset clamped to history %d, got %d", snap.HistoryLen, snap.DisplayOffset)
	}
	h.pool.Scroll(id, -1000)
	if off := h.snapshot(id).DisplayOffset; off != 0 {
		t.Fatalf("expected offset 0, got %d", off)
	}
}

func TestResizeForwardsPixels(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(80, 24)
	if err := h.pool.Resize(id, 100, 30, 840.5, 600); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	snap := h.snapshot(id)
	if snap.Cols != 100 || snap.Rows != 30 {
		t.Fatalf("expected 100x30, got %dx%d", snap.Cols, snap.Rows)
	}
	got := h.session(id).resizes
	want := resizeCall{100, 30, 840, 600}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if err := h.pool.Resize(id, 0, 30, 0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestOutputSetsRenderFlag(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(80, 24)
	h.pool.ClearRenderFlag()
	h.output(id, "hello")
	if !h.pool.TakeRenderFlag() {
		t.Fatalf("expected render flag after output")
	}
	if h.pool.NeedsRender() {
		t.Fatalf("TakeRenderFlag must clear the flag")
	}
}

func TestBackgroundTerminalDoesNotRequestRender(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(80, 24)
	if err := h.pool.SetMode(id, ModeBackground); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if m := h.pool.Mode(id); m != ModeBackground {
		t.Fatalf("expected background, got %v", m)
	}
	h.pool.ClearRenderFlag()
	h.output(id, "quiet output")
	if h.pool.NeedsRender() {
		t.Fatalf("background output must not set the render flag")
	}

	if err := h.pool.SetMode(id, ModeActive); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if !h.pool.NeedsRender() {
		t.Fatalf("switching to active must request a render")
	}
	if s := h.pool.State(id); s != StateActive {
		t.Fatalf("expected active state, got %v", s)
	}
	// Output parsed while backgrounded is still there.
	if !strings.HasPrefix(h.poolLine(id, 0), "quiet output") {
		t.Fatalf("background output was not parsed")
	}
}

func TestModeValidation(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(10, 5)
	if err := h.pool.SetMode(id, Mode(7)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if m := h.pool.Mode(999); m != ModeInvalid {
		t.Fatalf("expected ModeInvalid for unknown id, got %v", m)
	}
	if err := h.pool.SetMode(999, ModeActive); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRenderFlagUnderConcurrency(t *testing.T) {
	h := newPoolHarness(t, nil)
	ids := make([]TerminalID, 8)
	for i := range ids {
		ids[i] = h.create(40, 10)
	}
	h.pool.ClearRenderFlag()

	var wg sync.WaitGroup
	var takes sync.WaitGroup
	stop := make(chan struct{})
	takes.Add(1)
	go func() {
		defer takes.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.pool.TakeRenderFlag()
			}
		}
	}()
	for _, id := range ids {
		wg.Add(1)
		go func(id TerminalID) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				h.output(id, "x")
			}
		}(id)
	}
	wg.Wait()
	close(stop)
	takes.Wait()

	h.pool.ClearRenderFlag()
	h.output(ids[3], "y")
	if !h.pool.NeedsRender() {
		t.Fatalf("expected render flag after the last write")
	}
}

func TestExitEventAndSnapshot(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(10, 5)
	h.session(id).exit(3)
	ev := waitEvent(t, h.pool.Events(), func(ev Event) bool { return ev.Type == EventExit })
	if ev.TerminalID != id || ev.Data != 3 {
		t.Fatalf("unexpected exit event %+v", ev)
	}
	snap := h.snapshot(id)
	if !snap.Exited || snap.ExitCode != 3 {
		t.Fatalf("expected exited with 3, got %+v", snap)
	}
}

func TestTitleAndBellEvents(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(10, 5)
	h.output(id, "\x1b]0;build\x07\a")
	ev := waitEvent(t, h.pool.Events(), func(ev Event) bool { return ev.Type == EventTitleChanged })
	if ev.Text != "build" || ev.TerminalID != id {
		t.Fatalf("unexpected title event %+v", ev)
	}
	waitEvent(t, h.pool.Events(), func(ev Event) bool { return ev.Type == EventBell })
	if title, _ := h.pool.Title(id); title != "build" {
		t.Fatalf("expected title build, got %q", title)
	}
}

func TestEventCallbackDispatch(t *testing.T) {
	h := newPoolHarness(t, nil)
	got := make(chan Event, 16)
	h.pool.SetEventCallback(func(ev Event) {
		if ev.Type == EventBell {
			got <- ev
		}
	})
	id := h.create(10, 5)
	h.output(id, "\a")
	select {
	case ev := <-got:
		if ev.TerminalID != id {
			t.Fatalf("unexpected bell %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback not invoked")
	}
}

func TestFeedRecoversPanic(t *testing.T) {
	e := newEntry(1, 10, 5, 100)
	e.parser = nil
	if err := e.feed([]byte("boom")); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestCwdPrefersReportedDirectory(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(10, 5)
	if dir, err := h.pool.Cwd(id); err != nil || dir != "/fake/cwd" {
		t.Fatalf("expected session cwd, got %q %v", dir, err)
	}
	h.output(id, "\x1b]7;file://host/tmp/work\x07")
	if dir, _ := h.pool.Cwd(id); dir != "/tmp/work" {
		t.Fatalf("expected OSC 7 cwd, got %q", dir)
	}
}

func TestSnapshotCursorFollowsScroll(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(20, 5)
	h.lines(id, 10)
	h.output(id, "ab")
	col, row, err := h.pool.Cursor(id)
	if err != nil || col != 2 || row != 4 {
		t.Fatalf("expected cursor (2,4), got (%d,%d) %v", col, row, err)
	}
	h.pool.Scroll(id, 1)
	if _, row, _ := h.pool.Cursor(id); row != -1 {
		t.Fatalf("expected cursor off screen, got row %d", row)
	}
	h.output(id, "\x1b[?25l\x1b[5 q")
	snap := h.snapshot(id)
	if snap.Cursor.Shape != CursorHidden || snap.Cursor.Visible {
		t.Fatalf("expected hidden cursor, got %+v", snap.Cursor)
	}
}

func TestBlinkTickTogglesPhase(t *testing.T) {
	h := newPoolHarness(t, nil)
	id := h.create(10, 5)
	h.output(id, "\x1b[1 q")
	before := h.snapshot(id).Cursor
	if !before.Blinking || !before.BlinkOn {
		t.Fatalf("expected blinking cursor in on phase, got %+v", before)
	}
	h.pool.ClearRenderFlag()
	h.pool.blinkTick()
	if h.snapshot(id).Cursor.BlinkOn {
		t.Fatalf("expected blink phase to flip")
	}
	if !h.pool.NeedsRender() {
		t.Fatalf("blink tick must request a render")
	}
}

func TestFontSizeClamping(t *testing.T) {
	h := newPoolHarness(t, nil)
	if size, _ := h.pool.ChangeFontSize(FontSizeIncrease); size != 15 {
		t.Fatalf("expected 15, got %v", size)
	}
	for i := 0; i < 50; i++ {
		h.pool.ChangeFontSize(FontSizeDecrease)
	}
	if size := h.pool.FontSize(); size != MinFontSize {
		t.Fatalf("expected min %v, got %v", MinFontSize, size)
	}
	for i := 0; i < 200; i++ {
		h.pool.ChangeFontSize(FontSizeIncrease)
	}
	if size := h.pool.FontSize(); size != MaxFontSize {
		t.Fatalf("expected max %v, got %v", MaxFontSize, size)
	}
	if size, _ := h.pool.ChangeFontSize(FontSizeReset); size != DefaultFontSize {
		t.Fatalf("expected reset to %v, got %v", DefaultFontSize, size)
	}
	if _, err := h.pool.ChangeFontSize(FontSizeOp(9)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	m := h.pool.FontMetrics()
	if math.Abs(m.CellWidth-8.4) > 1e-9 || math.Abs(m.LineHeight-16.8*DefaultLineHeight) > 1e-9 {
		t.Fatalf("unexpected fallback metrics %+v", m)
	}
}

func TestApplyConfigUpdatesFontRange(t *testing.T) {
	h := newPoolHarness(t, nil)

	// At the default size, a new default is adopted.
	size := h.pool.ApplyConfig(config.Config{"font": map[string]interface{}{"size": 18.0}})
	if size != 18 || h.pool.FontSize() != 18 {
		t.Fatalf("expected size 18 after reload, got %v", size)
	}

	// A user-chosen size survives a reload that keeps it in range.
	h.pool.ChangeFontSize(FontSizeIncrease)
	size = h.pool.ApplyConfig(config.Config{"font": map[string]interface{}{"size": 12.0}})
	if size != 19 {
		t.Fatalf("expected zoomed size 19 to survive, got %v", size)
	}
	if size, _ := h.pool.ChangeFontSize(FontSizeReset); size != 12 {
		t.Fatalf("reset should use the reloaded default 12, got %v", size)
	}

	// A narrower range clamps the current size.
	h.pool.ChangeFontSize(FontSizeIncrease)
	size = h.pool.ApplyConfig(config.Config{"font": map[string]interface{}{"max_size": 10.0, "min_size": 8.0}})
	if size != 10 {
		t.Fatalf("expected clamp to 10, got %v", size)
	}
	for i := 0; i < 5; i++ {
		h.pool.ChangeFontSize(FontSizeIncrease)
	}
	if got := h.pool.FontSize(); got != 10 {
		t.Fatalf("increase must stop at the new max, got %v", got)
	}
}

func TestFontChangeRendersEachActiveTerminal(t *testing.T) {
	h := newPoolHarness(t, func(o *Options) { o.EventQueue = 64 })
	a := h.create(10, 5)
	b := h.create(10, 5)
	c := h.create(10, 5)
	if err := h.pool.SetMode(c, ModeBackground); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	ch := h.pool.Events()
	for len(ch) > 0 {
		<-ch
	}

	if _, err := h.pool.ChangeFontSize(FontSizeIncrease); err != nil {
		t.Fatalf("ChangeFontSize: %v", err)
	}
	seen := map[TerminalID]bool{}
	for len(ch) > 0 {
		ev := <-ch
		if ev.Type != EventRender {
			continue
		}
		if ev.TerminalID == InvalidID {
			t.Fatalf("render event without a terminal id: %+v", ev)
		}
		seen[ev.TerminalID] = true
	}
	if !seen[a] || !seen[b] || seen[c] {
		t.Fatalf("expected renders for %d and %d only, got %v", a, b, seen)
	}
	if !h.pool.NeedsRender() {
		t.Fatalf("font change must request a render")
	}
}

type recordedCall struct {
	kind string
	id   uint64
	text string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) add(c recordedCall) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *fakeRecorder) RecordCreate(id uint64, cols, rows int, cwd string) {
	r.add(recordedCall{kind: "create", id: id})
}
func (r *fakeRecorder) RecordTitle(id uint64, title string) {
	r.add(recordedCall{kind: "title", id: id, text: title})
}
func (r *fakeRecorder) RecordExit(id uint64, code int) { r.add(recordedCall{kind: "exit", id: id}) }
func (r *fakeRecorder) RecordClose(id uint64, transcript string) {
	r.add(recordedCall{kind: "close", id: id, text: transcript})
}

func TestRecorderSeesLifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	h := newPoolHarness(t, func(o *Options) { o.Recorder = rec })
	id := h.create(20, 5)
	h.output(id, "\x1b]2;vim\x07hello\r\nworld")
	if err := h.pool.CloseTerminal(id); err != nil {
		t.Fatalf("CloseTerminal: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	kinds := make([]string, 0, len(rec.calls))
	var transcript string
	for _, c := range rec.calls {
		if c.kind == "exit" {
			continue // may race with close
		}
		kinds = append(kinds, c.kind)
		if c.kind == "close" {
			transcript = c.text
		}
	}
	if strings.Join(kinds, ",") != "create,title,close" {
		t.Fatalf("unexpected recorder calls %v", kinds)
	}
	if transcript != "hello\nworld" {
		t.Fatalf("unexpected transcript %q", transcript)
	}
}

func TestPoolCloseShutsEverythingDown(t *testing.T) {
	h := newPoolHarness(t, nil)
	a := h.create(10, 5)
	b := h.create(10, 5)
	if err := h.pool.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.pool.Count() != 0 {
		t.Fatalf("expected no terminals after Close")
	}
	if !h.session(a).isClosed() || !h.session(b).isClosed() {
		t.Fatalf("expected all sessions closed")
	}
	if _, err := h.pool.Create(10, 5, ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := h.pool.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	// Drains buffered events; returns only once the channel is closed.
	for range h.pool.Events() {
	}
}
