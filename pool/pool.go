// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/pool.go
// Summary: Registry and lifecycle of terminal sessions.
// Usage: One Pool per host process. All mutation goes through Pool methods.
// Notes: mu guards only the id map; each terminal has its own lock so a busy
// terminal never stalls the others.

package pool

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/framegrace/texelpool/internal/ptysession"
	"github.com/framegrace/texelpool/outlog"
)

// Pool owns every terminal, the shared render flag and the event queue.
type Pool struct {
	opts Options

	mu        sync.RWMutex
	terminals map[TerminalID]*entry
	nextID    TerminalID

	needsRender atomic.Bool
	events      *EventQueue
	callback    atomic.Pointer[func(Event)]
	dispatch    sync.Once
	dispatchWG  sync.WaitGroup

	fontMu   sync.RWMutex
	fontSize float64

	frameMu   sync.Mutex
	pending   []TerminalFrame
	layouts   []RenderLayout
	submitter Submitter
	frameSeq  uint64
	surfaceW  float64
	surfaceH  float64
	scale     float64
	palette   *palette

	stop      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	renderRequests atomic.Uint64
	framesBuilt    atomic.Uint64
}

// New creates an empty pool.
func New(opts Options) (*Pool, error) {
	if opts.MaxTerminals < 0 {
		return nil, fmt.Errorf("pool: max terminals %d: %w", opts.MaxTerminals, ErrInvalidArgument)
	}
	opts.normalize()
	p := &Pool{
		opts:      opts,
		terminals: make(map[TerminalID]*entry),
		nextID:    1,
		events:    NewEventQueue(opts.EventQueue, opts.EventWait),
		fontSize:  opts.FontSize,
		surfaceW:  opts.SurfaceWidth,
		surfaceH:  opts.SurfaceHeight,
		scale:     opts.Scale,
		palette:   newDefaultPalette(),
		stop:      make(chan struct{}),
	}
	if opts.CursorBlink > 0 {
		p.wg.Add(1)
		go p.blinkLoop(opts.CursorBlink)
	}
	if opts.StatsObserver != nil && opts.StatsInterval > 0 {
		p.wg.Add(1)
		go p.statsLoop(opts.StatsObserver, opts.StatsInterval)
	}
	debugLog.Printf("Pool: run %s started", opts.RunID)
	return p, nil
}

// RunID identifies this pool instance in the journal.
func (p *Pool) RunID() uuid.UUID { return p.opts.RunID }

func notFound(id TerminalID) error {
	return fmt.Errorf("terminal %d: %w", id, ErrNotFound)
}

// Create spawns a terminal of cols x rows running the configured shell in
// cwd (inherited when empty).
func (p *Pool) Create(cols, rows int, cwd string) (TerminalID, error) {
	if cols <= 0 || rows <= 0 {
		return InvalidID, fmt.Errorf("pool: create %dx%d: %w", cols, rows, ErrInvalidArgument)
	}
	if p.closed.Load() {
		return InvalidID, ErrClosed
	}

	p.mu.Lock()
	if max := p.opts.MaxTerminals; max > 0 && len(p.terminals) >= max {
		p.mu.Unlock()
		return InvalidID, fmt.Errorf("pool: %d terminals open: %w", max, ErrResourceExhausted)
	}
	id := p.nextID
	p.nextID++
	p.mu.Unlock()

	e := newEntry(id, cols, rows, p.opts.HistoryLines)
	if p.opts.LogLines > 0 {
		e.output = outlog.New(p.opts.LogLines)
	}
	m := p.FontMetrics()
	sess, err := p.opts.Spawner(SpawnRequest{
		ID:          id,
		Cols:        cols,
		Rows:        rows,
		PixelWidth:  clampPixels(float64(cols) * m.CellWidth),
		PixelHeight: clampPixels(float64(rows) * m.LineHeight),
		Dir:         cwd,
	}, func(data []byte) { p.handleOutput(e, data) })
	if err != nil {
		log.Printf("Pool: failed to spawn terminal %d: %v", id, err)
		return InvalidID, fmt.Errorf("pool: spawn terminal %d: %w: %w", id, ErrResourceExhausted, err)
	}

	e.mu.Lock()
	e.session = sess
	e.state = StateActive
	e.mu.Unlock()

	// Close may have run while the spawner was busy. Registration and the
	// watcher's wg.Add happen under mu so Close either sees the entry or
	// Create sees closed.
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		if err := sess.Close(p.opts.CloseGrace); err != nil {
			debugLog.Printf("Pool: terminal %d close after shutdown: %v", id, err)
		}
		return InvalidID, ErrClosed
	}
	p.terminals[id] = e
	p.wg.Add(1)
	p.mu.Unlock()

	go p.watchExit(e, sess)

	if rec := p.opts.Recorder; rec != nil {
		rec.RecordCreate(uint64(id), cols, rows, cwd)
	}
	p.needsRender.Store(true)
	debugLog.Printf("Pool: created terminal %d (%dx%d)", id, cols, rows)
	return id, nil
}

// CloseTerminal stops a terminal and releases its process, giving the child
// the configured grace period to exit after SIGHUP. Closing an unknown or
// already closed id returns ErrNotFound.
func (p *Pool) CloseTerminal(id TerminalID) error {
	return p.closeTerminal(id, p.opts.CloseGrace)
}

// CloseTerminalForce is CloseTerminal without the grace period: the child
// is killed immediately.
func (p *Pool) CloseTerminalForce(id TerminalID) error {
	return p.closeTerminal(id, 0)
}

func (p *Pool) closeTerminal(id TerminalID, grace time.Duration) error {
	p.mu.Lock()
	e, ok := p.terminals[id]
	if ok {
		delete(p.terminals, id)
	}
	p.mu.Unlock()
	if !ok {
		return notFound(id)
	}
	err := p.shutdownEntry(e, grace)
	p.needsRender.Store(true)
	return err
}

func (p *Pool) shutdownEntry(e *entry, grace time.Duration) error {
	e.mu.Lock()
	if !e.live() {
		e.mu.Unlock()
		return notFound(e.id)
	}
	e.state = StateClosing
	sess := e.session
	var transcript string
	if p.opts.Recorder != nil {
		if e.output != nil {
			e.output.Flush()
			transcript = e.output.Text()
		} else {
			transcript = e.transcript()
		}
	}
	e.mu.Unlock()

	var err error
	if sess != nil {
		err = sess.Close(grace)
	}

	e.mu.Lock()
	e.state = StateClosed
	e.sel = nil
	e.search = nil
	e.runs = nil
	e.runsValid = false
	e.mu.Unlock()

	if rec := p.opts.Recorder; rec != nil {
		rec.RecordClose(uint64(e.id), transcript)
	}
	debugLog.Printf("Pool: closed terminal %d", e.id)
	if err != nil {
		return fmt.Errorf("pool: close terminal %d: %w", e.id, err)
	}
	return nil
}

// Count returns the number of open terminals.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.terminals)
}

// IDs returns the open terminal ids in ascending order.
func (p *Pool) IDs() []TerminalID {
	p.mu.RLock()
	ids := make([]TerminalID, 0, len(p.terminals))
	for id := range p.terminals {
		ids = append(ids, id)
	}
	p.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Pool) lookup(id TerminalID) (*entry, error) {
	p.mu.RLock()
	e, ok := p.terminals[id]
	p.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func (p *Pool) entries() []*entry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*entry, 0, len(p.terminals))
	for _, e := range p.terminals {
		out = append(out, e)
	}
	return out
}

// withEntry runs fn under the terminal's lock and publishes any events the
// call queued once the lock is released.
func (p *Pool) withEntry(id TerminalID, fn func(e *entry) error) error {
	e, err := p.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if !e.live() {
		e.mu.Unlock()
		return notFound(id)
	}
	err = fn(e)
	e.cacheScroll()
	evs := e.takeEvents()
	e.mu.Unlock()
	p.publish(evs)
	return err
}

// touch marks a terminal visually changed. Background terminals only record
// the damage. Caller holds e.mu.
func (p *Pool) touch(e *entry) {
	e.invalidate()
	if e.mode == ModeActive {
		p.needsRender.Store(true)
		p.renderRequests.Add(1)
		e.queue(Event{Type: EventRender, TerminalID: e.id})
	}
}

// invalidateAll marks every terminal dirty, e.g. after a font change. Each
// active terminal gets its own EventRender.
func (p *Pool) invalidateAll() {
	for _, e := range p.entries() {
		e.mu.Lock()
		if e.live() {
			p.touch(e)
		}
		evs := e.takeEvents()
		e.mu.Unlock()
		p.publish(evs)
	}
	p.needsRender.Store(true)
}

// handleOutput runs on the terminal's PTY reader goroutine.
func (p *Pool) handleOutput(e *entry, data []byte) {
	e.mu.Lock()
	if !e.live() {
		e.mu.Unlock()
		return
	}
	if e.output != nil {
		e.output.Append(data)
	}
	err := e.feed(data)
	e.cacheScroll()
	active := e.mode == ModeActive
	damaged := e.vterm.Damaged()
	dirty := e.vterm.DirtyLines()
	evs := e.takeEvents()
	e.mu.Unlock()

	if err != nil {
		log.Printf("Pool: %v", err)
	}
	p.publish(evs)
	if !active {
		return
	}
	p.events.Push(Event{Type: EventWakeup, TerminalID: e.id})
	if damaged {
		p.needsRender.Store(true)
		p.renderRequests.Add(1)
		p.events.Push(Event{Type: EventDamaged, TerminalID: e.id, Data: int64(dirty)})
	}
}

func (p *Pool) publish(evs []Event) {
	for _, ev := range evs {
		if ev.Type == EventTitleChanged && p.opts.Recorder != nil {
			p.opts.Recorder.RecordTitle(uint64(ev.TerminalID), ev.Text)
		}
		p.events.Push(ev)
	}
}

func (p *Pool) watchExit(e *entry, sess Session) {
	defer p.wg.Done()
	select {
	case <-sess.Done():
	case <-p.stop:
		return
	}
	code := sess.ExitCode()
	e.mu.Lock()
	e.exited = true
	e.exitCode = code
	live := e.live()
	if live {
		e.invalidate()
	}
	e.mu.Unlock()

	if rec := p.opts.Recorder; rec != nil {
		rec.RecordExit(uint64(e.id), code)
	}
	if live {
		debugLog.Printf("Pool: terminal %d exited with %d", e.id, code)
		p.needsRender.Store(true)
		p.events.Push(Event{Type: EventExit, TerminalID: e.id, Data: int64(code)})
	}
}

// Input queues bytes for the terminal's child. It never blocks; a full
// queue is reported as ErrResourceExhausted.
func (p *Pool) Input(id TerminalID, data []byte) error {
	return p.withEntry(id, func(e *entry) error {
		if p.opts.ScrollOnInput && e.vterm.DisplayOffset() != 0 {
			e.vterm.ScrollToBottom()
			p.touch(e)
		}
		if err := e.session.Write(data); err != nil {
			switch {
			case errors.Is(err, ptysession.ErrQueueFull):
				return fmt.Errorf("terminal %d: input: %w", id, ErrResourceExhausted)
			case errors.Is(err, ptysession.ErrClosed):
				return notFound(id)
			}
			return fmt.Errorf("terminal %d: input: %w", id, err)
		}
		return nil
	})
}

// Resize changes the grid and the PTY window size, including pixels.
func (p *Pool) Resize(id TerminalID, cols, rows int, pixelWidth, pixelHeight float64) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("terminal %d: resize %dx%d: %w", id, cols, rows, ErrInvalidArgument)
	}
	return p.withEntry(id, func(e *entry) error {
		err := p.resizeLocked(e, cols, rows, pixelWidth, pixelHeight)
		p.touch(e)
		return err
	})
}

// resizeLocked applies a size change. Caller holds e.mu.
func (p *Pool) resizeLocked(e *entry, cols, rows int, pixelWidth, pixelHeight float64) error {
	e.vterm.Resize(cols, rows)
	e.cols, e.rows = cols, rows
	if e.session == nil {
		return nil
	}
	if err := e.session.Resize(clampU16(cols), clampU16(rows), clampPixels(pixelWidth), clampPixels(pixelHeight)); err != nil {
		debugLog.Printf("Pool: terminal %d pty resize: %v", e.id, err)
		return fmt.Errorf("terminal %d: resize: %w", e.id, err)
	}
	return nil
}

// Scroll moves the view by delta rows (positive toward history).
func (p *Pool) Scroll(id TerminalID, delta int) error {
	return p.withEntry(id, func(e *entry) error {
		before := e.vterm.DisplayOffset()
		if e.vterm.Scroll(delta) != before {
			p.touch(e)
		}
		return nil
	})
}

// SetMode switches a terminal between Active and Background.
func (p *Pool) SetMode(id TerminalID, mode Mode) error {
	if mode != ModeActive && mode != ModeBackground {
		return fmt.Errorf("terminal %d: mode %d: %w", id, mode, ErrInvalidArgument)
	}
	return p.withEntry(id, func(e *entry) error {
		prev := e.mode
		e.mode = mode
		if mode == ModeActive {
			e.state = StateActive
		} else {
			e.state = StateBackground
		}
		if mode == ModeActive && prev != ModeActive {
			// Pick up whatever changed while backgrounded.
			e.invalidate()
			p.needsRender.Store(true)
			p.renderRequests.Add(1)
			e.queue(Event{Type: EventDamaged, TerminalID: e.id, Data: int64(e.vterm.DirtyLines())})
		}
		return nil
	})
}

// Mode returns the terminal's mode, or ModeInvalid for unknown ids.
func (p *Pool) Mode(id TerminalID) Mode {
	mode := ModeInvalid
	_ = p.withEntry(id, func(e *entry) error {
		mode = e.mode
		return nil
	})
	return mode
}

// State returns the lifecycle state; unknown ids report StateClosed.
func (p *Pool) State(id TerminalID) State {
	state := StateClosed
	_ = p.withEntry(id, func(e *entry) error {
		state = e.state
		return nil
	})
	return state
}

// --- Render flag ---

// NeedsRender reports whether anything changed since the flag was cleared.
func (p *Pool) NeedsRender() bool { return p.needsRender.Load() }

// RequestRender sets the render flag.
func (p *Pool) RequestRender() { p.needsRender.Store(true) }

// ClearRenderFlag resets the render flag.
func (p *Pool) ClearRenderFlag() { p.needsRender.Store(false) }

// TakeRenderFlag atomically reads and clears the render flag.
func (p *Pool) TakeRenderFlag() bool { return p.needsRender.Swap(false) }

// RenderFlag exposes the shared flag so a scheduler can bind to it.
func (p *Pool) RenderFlag() *atomic.Bool { return &p.needsRender }

// --- Events ---

// Events returns the event channel. Do not combine with SetEventCallback.
// Calling it registers a consumer: from then on Bell, TitleChanged,
// CursorBlinkChange and Exit events wait up to Options.EventWait for room
// when the channel is full, which delays the PTY goroutine producing them.
// Until a consumer is registered every event is dropped instead of waiting.
func (p *Pool) Events() <-chan Event { return p.events.C() }

// DroppedEvents returns how many events were discarded under pressure.
func (p *Pool) DroppedEvents() uint64 { return p.events.Dropped() }

// SetEventCallback delivers events to fn on a single dispatcher goroutine,
// never on a PTY goroutine. Passing nil discards events.
func (p *Pool) SetEventCallback(fn func(Event)) {
	if fn == nil {
		p.callback.Store(nil)
	} else {
		p.callback.Store(&fn)
	}
	p.dispatch.Do(func() {
		p.dispatchWG.Add(1)
		go func() {
			defer p.dispatchWG.Done()
			for ev := range p.events.C() {
				if cb := p.callback.Load(); cb != nil {
					(*cb)(ev)
				}
			}
		}()
	})
}

// --- Background loops ---

func (p *Pool) blinkLoop(interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.blinkTick()
		}
	}
}

// blinkTick flips the blink phase of active terminals with a blinking cursor.
func (p *Pool) blinkTick() {
	for _, e := range p.entries() {
		e.mu.Lock()
		if e.live() && e.mode == ModeActive && e.vterm.CursorBlinking() && e.vterm.CursorVisible() {
			e.blinkOn = !e.blinkOn
			p.touch(e)
		}
		evs := e.takeEvents()
		e.mu.Unlock()
		p.publish(evs)
	}
}

// --- Shutdown ---

// Close closes every terminal concurrently, stops background goroutines and
// closes the event channel. It is safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		p.mu.Lock()
		victims := make([]*entry, 0, len(p.terminals))
		for id, e := range p.terminals {
			victims = append(victims, e)
			delete(p.terminals, id)
		}
		p.mu.Unlock()

		var g errgroup.Group
		for _, e := range victims {
			g.Go(func() error { return p.shutdownEntry(e, p.opts.CloseGrace) })
		}
		p.closeErr = g.Wait()

		close(p.stop)
		p.wg.Wait()
		p.events.Close()
		p.dispatchWG.Wait()
		log.Printf("Pool: closed %d terminals (run %s)", len(victims), p.opts.RunID)
	})
	return p.closeErr
}
