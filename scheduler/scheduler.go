// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: scheduler/scheduler.go
// Summary: Display-rate ticker that drives frame rendering.
// Usage: Bind a pool, Start, and the pool renders whenever it is dirty.
// Notes: The callback runs on the scheduler goroutine and must not call Stop.

package scheduler

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/framegrace/texelpool/config"
	"github.com/framegrace/texelpool/pool"
)

// DefaultFPS is used when no interval is configured.
const DefaultFPS = 60

// Layout places a terminal for one frame.
type Layout = pool.RenderLayout

// Target is what a scheduler renders once bound.
type Target interface {
	RenderFlag() *atomic.Bool
	RenderAll() error
}

// LayoutSink is implemented by targets that accept layouts directly.
type LayoutSink interface {
	SetRenderLayout(layouts []pool.RenderLayout, containerHeight float64)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFPS sets the tick rate in frames per second.
func WithFPS(fps float64) Option {
	return func(s *Scheduler) {
		if fps > 0 {
			s.interval = time.Duration(float64(time.Second) / fps)
		}
	}
}

// WithConfig reads scheduler.fps.
func WithConfig(cfg config.Config) Option {
	return WithFPS(cfg.GetFloat("scheduler", "fps", DefaultFPS))
}

// Scheduler ticks at a fixed interval and fires its callback when there is
// something to draw.
type Scheduler struct {
	interval time.Duration

	mu          sync.Mutex
	callback    func([]Layout)
	layouts     []Layout
	layoutDirty bool
	target      Target
	flag        *atomic.Bool
	running     bool
	stop        chan struct{}
	done        chan struct{}

	requested atomic.Bool
	ticks     atomic.Uint64
	frames    atomic.Uint64
}

// New creates a stopped scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{interval: time.Second / DefaultFPS}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// SetCallback installs the per-frame callback. It takes precedence over a
// bound target's RenderAll.
func (s *Scheduler) SetCallback(fn func([]Layout)) {
	s.mu.Lock()
	s.callback = fn
	s.mu.Unlock()
}

// SetLayout replaces the layouts handed to the next frame. A layout change
// always produces a frame.
func (s *Scheduler) SetLayout(layouts []Layout) {
	cp := make([]Layout, len(layouts))
	copy(cp, layouts)
	s.mu.Lock()
	s.layouts = cp
	s.layoutDirty = true
	s.mu.Unlock()
}

// RequestRender forces a frame on the next tick.
func (s *Scheduler) RequestRender() { s.requested.Store(true) }

// Bind attaches a target. From then on ticks only fire when the target's
// render flag was set.
func (s *Scheduler) Bind(t Target) {
	s.mu.Lock()
	s.target = t
	s.flag = nil
	if t != nil {
		s.flag = t.RenderFlag()
	}
	s.mu.Unlock()
}

// Start launches the tick loop. It returns false if already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	debugLog.Printf("Scheduler: started at %s", s.interval)
	return true
}

// Stop halts the loop and waits for an in-flight callback. No callback runs
// after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	debugLog.Printf("Scheduler: stopped after %d ticks, %d frames", s.ticks.Load(), s.frames.Load())
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ticks returns the number of ticks seen.
func (s *Scheduler) Ticks() uint64 { return s.ticks.Load() }

// Frames returns the number of ticks that produced a frame.
func (s *Scheduler) Frames() uint64 { return s.frames.Load() }

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	s.ticks.Add(1)

	s.mu.Lock()
	cb := s.callback
	target := s.target
	flag := s.flag
	layouts := s.layouts
	layoutDirty := s.layoutDirty
	s.layoutDirty = false
	s.mu.Unlock()

	dirty := s.requested.Swap(false) || layoutDirty
	if flag == nil {
		dirty = true
	} else if flag.Swap(false) {
		dirty = true
	}
	if !dirty {
		return
	}
	s.frames.Add(1)

	if cb != nil {
		cb(layouts)
		return
	}
	if target == nil {
		return
	}
	if sink, ok := target.(LayoutSink); ok && layoutDirty {
		sink.SetRenderLayout(layouts, 0)
	}
	if err := target.RenderAll(); err != nil {
		log.Printf("Scheduler: render failed: %v", err)
	}
}
