// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/events.go
// Summary: Bounded event queue between PTY goroutines and the host.
// Notes: Render-class events are dropped when the queue is full; a later
// event of the same kind supersedes them anyway.

package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType enumerates notifications sent to the host.
type EventType int

const (
	EventWakeup EventType = iota
	EventRender
	EventCursorBlinkChange
	EventBell
	EventTitleChanged
	EventDamaged
	EventExit
)

var eventNames = [...]string{
	EventWakeup:            "wakeup",
	EventRender:            "render",
	EventCursorBlinkChange: "cursor-blink",
	EventBell:              "bell",
	EventTitleChanged:      "title",
	EventDamaged:           "damaged",
	EventExit:              "exit",
}

func (t EventType) String() string {
	if int(t) >= 0 && int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// renderClass events only ask for a redraw and are safe to drop.
func (t EventType) renderClass() bool {
	return t == EventWakeup || t == EventRender || t == EventDamaged
}

// Event is plain data; it carries no references into the pool.
type Event struct {
	Type       EventType
	TerminalID TerminalID
	// Data is the exit code for EventExit, the dirty line count for
	// EventDamaged and 1/0 for EventCursorBlinkChange.
	Data int64
	// Text is the new title for EventTitleChanged.
	Text string
}

// EventQueue is a bounded multi-producer queue.
type EventQueue struct {
	mu      sync.RWMutex
	ch      chan Event
	wait    time.Duration
	closed  bool
	dropped atomic.Uint64
	pushed  atomic.Uint64
	// attached is set once someone asks for the receive side; only then is
	// waiting for room useful.
	attached atomic.Bool
}

// NewEventQueue creates a queue holding up to size events. Non-render events
// wait up to wait for room before being dropped.
func NewEventQueue(size int, wait time.Duration) *EventQueue {
	if size <= 0 {
		size = 1024
	}
	return &EventQueue{ch: make(chan Event, size), wait: wait}
}

// Push enqueues ev and reports whether it was accepted.
func (q *EventQueue) Push(ev Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- ev:
		q.pushed.Add(1)
		return true
	default:
	}
	if ev.Type.renderClass() || q.wait <= 0 || !q.attached.Load() {
		q.dropped.Add(1)
		return false
	}
	timer := time.NewTimer(q.wait)
	defer timer.Stop()
	select {
	case q.ch <- ev:
		q.pushed.Add(1)
		return true
	case <-timer.C:
		q.dropped.Add(1)
		debugLog.Printf("Pool: dropped %s event for terminal %d", ev.Type, ev.TerminalID)
		return false
	}
}

// C returns the receive side of the queue and marks the queue as consumed.
// It is closed by Close.
func (q *EventQueue) C() <-chan Event {
	q.attached.Store(true)
	return q.ch
}

// Dropped returns how many events were discarded.
func (q *EventQueue) Dropped() uint64 { return q.dropped.Load() }

// Pushed returns how many events were accepted.
func (q *EventQueue) Pushed() uint64 { return q.pushed.Load() }

// Close stops accepting events and closes the channel.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
