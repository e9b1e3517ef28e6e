// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/entry.go
// Summary: Per-terminal state guarded by its own mutex.
// Notes: The PTY reader goroutine and API callers share mu. Callbacks fired
// by the parser run under mu, so they only queue events locally; the events
// are published after mu is released.

package pool

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/framegrace/texelpool/outlog"
	"github.com/framegrace/texelpool/parser"
	"github.com/framegrace/texelpool/search"
	"github.com/framegrace/texelpool/selection"
)

type entry struct {
	id TerminalID

	mu        sync.Mutex
	vterm     *parser.VTerm
	parser    *parser.Parser
	session   Session
	state     State
	mode      Mode
	cols      int
	rows      int
	sel       *selection.Selection
	search    *search.State
	layout    RenderLayout
	hasLayout bool
	blinkOn   bool
	exited    bool
	exitCode  int
	runs      []TextRun
	runsValid bool
	pending   []Event
	bytesIn   uint64

	// output has its own lock and is nil when the output log is disabled.
	output *outlog.Buffer

	// scroll is readable without mu; see Pool.ScrollInfo.
	scroll atomic.Pointer[ScrollInfo]
}

func newEntry(id TerminalID, cols, rows, history int) *entry {
	e := &entry{
		id:       id,
		state:    StateCreated,
		mode:     ModeActive,
		cols:     cols,
		rows:     rows,
		blinkOn:  true,
		exitCode: -1,
	}
	e.vterm = parser.NewVTerm(cols, rows,
		parser.WithHistorySize(history),
		parser.WithPtyWriter(e.reply),
		parser.WithTitleChangeHandler(func(title string) {
			e.queue(Event{Type: EventTitleChanged, TerminalID: e.id, Text: title})
		}),
		parser.WithBellHandler(func() {
			e.queue(Event{Type: EventBell, TerminalID: e.id})
		}),
		parser.WithCursorBlinkChangeHandler(func(blink bool) {
			e.blinkOn = true
			var data int64
			if blink {
				data = 1
			}
			e.queue(Event{Type: EventCursorBlinkChange, TerminalID: e.id, Data: data})
		}),
	)
	e.parser = parser.NewParser(e.vterm)
	e.cacheScroll()
	return e
}

// cacheScroll publishes the scroll position for lock-free readers. Caller
// holds mu.
func (e *entry) cacheScroll() {
	info := ScrollInfo{
		DisplayOffset: e.vterm.DisplayOffset(),
		HistoryLen:    e.vterm.HistoryLen(),
		TotalLines:    e.vterm.TotalRows(),
	}
	if old := e.scroll.Load(); old != nil && *old == info {
		return
	}
	e.scroll.Store(&info)
}

// queue records an event to publish once mu is released. Caller holds mu.
func (e *entry) queue(ev Event) { e.pending = append(e.pending, ev) }

// takeEvents returns and clears the queued events. Caller holds mu.
func (e *entry) takeEvents() []Event {
	if len(e.pending) == 0 {
		return nil
	}
	evs := e.pending
	e.pending = nil
	return evs
}

// reply forwards terminal responses (DSR, DA) to the child. Called under mu
// from inside feed.
func (e *entry) reply(b []byte) {
	if e.session == nil {
		return
	}
	if err := e.session.Write(b); err != nil {
		debugLog.Printf("Pool: terminal %d reply dropped: %v", e.id, err)
	}
}

// feed parses PTY output. A panic inside the parser is contained to this
// terminal and reported as ErrInternal. Caller holds mu.
func (e *entry) feed(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("terminal %d: parser panic: %v: %w", e.id, r, ErrInternal)
		}
	}()
	e.bytesIn += uint64(len(data))
	_, err = e.parser.Write(data)
	return err
}

// live reports whether API calls may still act on the entry. Caller holds mu.
func (e *entry) live() bool { return e.state < StateClosing }

// invalidate forces the next frame to rebuild this terminal's runs.
// Caller holds mu.
func (e *entry) invalidate() {
	e.vterm.MarkAllDirty()
	e.runsValid = false
}

// transcript renders the retained buffer as text, trailing blank rows
// dropped. Caller holds mu.
func (e *entry) transcript() string {
	total := e.vterm.TotalRows()
	lines := make([]string, 0, total)
	for abs := 0; abs < total; abs++ {
		lines = append(lines, e.vterm.LineText(abs))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
