// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/devshell/runner.go
// Summary: Hosts one pool terminal on a local tcell screen.
// Usage: cmd/texelpool runs it; tests drive it through a simulation screen.
// Notes: One screen cell is one logical point, so layouts map straight onto
// the terminal grid.

package devshell

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelpool/pool"
	"github.com/framegrace/texelpool/scheduler"
)

var screenFactory = tcell.NewScreen

// SetScreenFactory overrides the screen factory used by Run. Passing nil restores the default.
func SetScreenFactory(factory func() (tcell.Screen, error)) {
	if factory == nil {
		screenFactory = tcell.NewScreen
		return
	}
	screenFactory = factory
}

// CellMetrics makes one font cell exactly one screen cell. Pools hosted by
// the shell must be created with it.
func CellMetrics(size float64) pool.FontMetrics {
	return pool.FontMetrics{Size: size, CellWidth: 1, CellHeight: 1, LineHeight: 1}
}

const wheelLines = 3

// exitNotice is posted to the screen when the hosted terminal's child exits.
type exitNotice struct{ code int }

// Shell owns the screen for the lifetime of Run.
type Shell struct {
	pool   *pool.Pool
	sched  *scheduler.Scheduler
	screen tcell.Screen
	id     pool.TerminalID
	clicks *ClickDetector

	mu        sync.Mutex
	title     string
	searching bool
	pattern   []rune
	notice    string

	selecting bool
	dragged   bool
	lastClick ClickType
	appButton pool.MouseButton
	inPaste   bool
	paste     []byte
}

// Run creates a terminal sized to the screen and drives it until the child
// exits (returning its exit code) or the user presses Ctrl-Q.
func Run(p *pool.Pool, sched *scheduler.Scheduler, cwd string) (int, error) {
	screen, err := screenFactory()
	if err != nil {
		return 0, fmt.Errorf("init screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return 0, fmt.Errorf("screen init: %w", err)
	}
	defer screen.Fini()
	screen.Clear()
	screen.EnableMouse()
	defer screen.DisableMouse()
	screen.EnablePaste()

	s := &Shell{
		pool:      p,
		sched:     sched,
		screen:    screen,
		clicks:    NewClickDetector(DefaultMultiClickTimeout),
		appButton: pool.MouseNoButton,
	}

	w, h := screen.Size()
	cols, rows := w, termRows(h)
	id, err := p.Create(cols, rows, cwd)
	if err != nil {
		return 0, err
	}
	s.id = id
	defer func() {
		if err := p.CloseTerminal(id); err != nil && !errors.Is(err, pool.ErrNotFound) {
			log.Printf("Devshell: close terminal %d: %v", id, err)
		}
	}()

	p.SetSubmitter(pool.SubmitterFunc(s.submit))
	defer p.SetSubmitter(nil)
	p.SetEventCallback(s.handleEvent)
	defer p.SetEventCallback(nil)
	sched.Bind(p)
	s.layout(w, h)
	sched.Start()
	defer sched.Stop()

	for {
		ev := screen.PollEvent()
		if ev == nil {
			return 0, nil
		}
		switch tev := ev.(type) {
		case *tcell.EventResize:
			w, h := tev.Size()
			screen.Sync()
			s.layout(w, h)
		case *tcell.EventInterrupt:
			if n, ok := tev.Data().(exitNotice); ok {
				return n.code, nil
			}
		case *tcell.EventPaste:
			s.handlePasteMarker(tev)
		case *tcell.EventKey:
			if s.inPaste {
				s.collectPaste(tev)
				continue
			}
			if s.handleKey(tev) {
				return 0, nil
			}
		case *tcell.EventMouse:
			s.handleMouse(tev)
		}
	}
}

// termRows leaves the bottom row for the status line when there is room.
func termRows(h int) int {
	if h > 1 {
		return h - 1
	}
	return h
}

func (s *Shell) layout(w, h int) {
	s.sched.SetLayout([]scheduler.Layout{{
		TerminalID: s.id,
		Width:      float64(w),
		Height:     float64(termRows(h)),
		Visible:    true,
	}})
}

func (s *Shell) handleEvent(ev pool.Event) {
	if ev.TerminalID != s.id {
		return
	}
	switch ev.Type {
	case pool.EventExit:
		if err := s.screen.PostEvent(tcell.NewEventInterrupt(exitNotice{code: int(ev.Data)})); err != nil {
			log.Printf("Devshell: post exit: %v", err)
		}
	case pool.EventBell:
		_ = s.screen.Beep()
	case pool.EventTitleChanged:
		s.mu.Lock()
		s.title = ev.Text
		s.mu.Unlock()
		s.sched.RequestRender()
	}
}

func (s *Shell) setNotice(format string, args ...interface{}) {
	s.mu.Lock()
	s.notice = fmt.Sprintf(format, args...)
	s.mu.Unlock()
	s.sched.RequestRender()
}

func (s *Shell) handleKey(ev *tcell.EventKey) (quit bool) {
	if ev.Key() == tcell.KeyCtrlQ {
		return true
	}
	s.mu.Lock()
	searching := s.searching
	s.mu.Unlock()
	if searching {
		s.searchKey(ev)
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlF:
		s.mu.Lock()
		s.searching = true
		s.pattern = s.pattern[:0]
		s.mu.Unlock()
		s.sched.RequestRender()
		return false
	case tcell.KeyF3:
		if ev.Modifiers()&tcell.ModShift != 0 {
			s.stepSearch(s.pool.SearchPrev)
		} else {
			s.stepSearch(s.pool.SearchNext)
		}
		return false
	case tcell.KeyF15:
		s.stepSearch(s.pool.SearchPrev)
		return false
	case tcell.KeyPgUp, tcell.KeyPgDn:
		if ev.Modifiers()&tcell.ModShift != 0 {
			s.scrollPage(ev.Key() == tcell.KeyPgUp)
			return false
		}
	}

	snap, err := s.pool.Snapshot(s.id)
	if err != nil {
		return false
	}
	if data := EncodeKey(ev, snap.AppCursorKeys); data != nil {
		s.input(data)
	}
	return false
}

func (s *Shell) scrollPage(up bool) {
	snap, err := s.pool.Snapshot(s.id)
	if err != nil {
		return
	}
	delta := snap.Rows / 2
	if delta < 1 {
		delta = 1
	}
	if !up {
		delta = -delta
	}
	_ = s.pool.Scroll(s.id, delta)
}

func (s *Shell) input(data []byte) {
	if err := s.pool.Input(s.id, data); err != nil {
		debugLog.Printf("Devshell: input dropped: %v", err)
	}
}

func (s *Shell) searchKey(ev *tcell.EventKey) {
	s.mu.Lock()
	switch ev.Key() {
	case tcell.KeyEsc:
		s.searching = false
		s.notice = ""
		s.mu.Unlock()
		_ = s.pool.ClearSearch(s.id)
		s.sched.RequestRender()
		return
	case tcell.KeyEnter:
		s.searching = false
		pattern := string(s.pattern)
		s.mu.Unlock()
		s.runSearch(pattern)
		return
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(s.pattern); n > 0 {
			s.pattern = s.pattern[:n-1]
		}
	case tcell.KeyRune:
		s.pattern = append(s.pattern, ev.Rune())
	}
	s.mu.Unlock()
	s.sched.RequestRender()
}

func (s *Shell) runSearch(pattern string) {
	if pattern == "" {
		_ = s.pool.ClearSearch(s.id)
		s.setNotice("")
		return
	}
	res, err := s.pool.SearchStart(s.id, pattern, false, false)
	if err != nil {
		s.setNotice("search: %v", err)
		return
	}
	if res.Total == 0 {
		s.setNotice("no matches for %q", pattern)
		return
	}
	s.setNotice("%q %d/%d", pattern, res.Current, res.Total)
}

func (s *Shell) stepSearch(step func(pool.TerminalID) (pool.SearchResult, error)) {
	res, err := step(s.id)
	if err != nil || res.Current <= 0 {
		return
	}
	s.setNotice("match %d/%d", res.Current, res.Total)
}

func (s *Shell) handlePasteMarker(ev *tcell.EventPaste) {
	if ev.Start() {
		s.inPaste = true
		s.paste = s.paste[:0]
		return
	}
	if !ev.End() {
		return
	}
	s.inPaste = false
	if len(s.paste) == 0 {
		return
	}
	snap, err := s.pool.Snapshot(s.id)
	if err != nil {
		return
	}
	s.input(EncodePaste(s.paste, snap.BracketedPaste))
	s.paste = s.paste[:0]
}

func (s *Shell) collectPaste(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyRune:
		s.paste = append(s.paste, string(ev.Rune())...)
	case tcell.KeyEnter, tcell.KeyLF:
		s.paste = append(s.paste, '\r')
	case tcell.KeyTab:
		s.paste = append(s.paste, '\t')
	}
}

func (s *Shell) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	_, h := s.screen.Size()
	btn := ev.Buttons()

	// Shift keeps local selection available while the application tracks
	// the mouse.
	if ev.Modifiers()&tcell.ModShift == 0 && !s.selecting && s.pool.HasMouseTracking(s.id) {
		if y < termRows(h) {
			s.forwardMouse(ev, x, y)
		}
		return
	}

	switch {
	case btn&tcell.WheelUp != 0:
		_ = s.pool.Scroll(s.id, wheelLines)
		return
	case btn&tcell.WheelDown != 0:
		_ = s.pool.Scroll(s.id, -wheelLines)
		return
	}

	if y >= termRows(h) {
		y = termRows(h) - 1
	}
	switch {
	case btn&tcell.Button1 != 0 && !s.selecting:
		s.lastClick = s.clicks.Detect(x, y)
		if err := s.pool.StartSelection(s.id, x, y, s.lastClick.SelectionKind()); err != nil {
			debugLog.Printf("Devshell: start selection: %v", err)
			return
		}
		s.selecting = true
		s.dragged = false
	case btn&tcell.Button1 != 0:
		s.dragged = true
		_ = s.pool.UpdateSelection(s.id, x, y)
	case btn == tcell.ButtonNone && s.selecting:
		s.selecting = false
		s.finishSelection()
	}
}

// forwardMouse turns a tcell mouse event into a report for the application.
// tcell only reports which buttons are down, so presses and releases are
// derived from the button seen last.
func (s *Shell) forwardMouse(ev *tcell.EventMouse, x, y int) {
	btn := ev.Buttons()
	out := pool.MouseEvent{Col: x, Row: y, Mods: mouseMods(ev.Modifiers())}
	switch {
	case btn&tcell.WheelUp != 0:
		out.Button = pool.MouseWheelUp
	case btn&tcell.WheelDown != 0:
		out.Button = pool.MouseWheelDown
	default:
		pressed := pool.MouseNoButton
		switch {
		case btn&tcell.Button1 != 0:
			pressed = pool.MouseLeft
		case btn&tcell.Button3 != 0:
			pressed = pool.MouseMiddle
		case btn&tcell.Button2 != 0:
			pressed = pool.MouseRight
		}
		switch {
		case pressed == pool.MouseNoButton && s.appButton != pool.MouseNoButton:
			out.Button, out.Action = s.appButton, pool.MouseRelease
		case pressed == pool.MouseNoButton:
			out.Button, out.Action = pool.MouseNoButton, pool.MouseMotion
		case pressed == s.appButton:
			out.Button, out.Action = pressed, pool.MouseMotion
		default:
			out.Button, out.Action = pressed, pool.MousePress
		}
		s.appButton = pressed
	}
	if _, err := s.pool.SendMouse(s.id, out); err != nil {
		debugLog.Printf("Devshell: mouse report dropped: %v", err)
	}
}

func mouseMods(m tcell.ModMask) pool.MouseModifiers {
	var mods pool.MouseModifiers
	if m&tcell.ModAlt != 0 {
		mods |= pool.MouseAlt
	}
	if m&tcell.ModCtrl != 0 {
		mods |= pool.MouseCtrl
	}
	return mods
}

func (s *Shell) finishSelection() {
	if s.lastClick == SingleClick && !s.dragged {
		_ = s.pool.ClearSelection(s.id)
		return
	}
	ok, err := s.pool.FinalizeSelection(s.id)
	if err != nil || !ok {
		return
	}
	text, err := s.pool.SelectionText(s.id)
	if err != nil || text == "" {
		return
	}
	s.screen.SetClipboard([]byte(text))
	s.setNotice("copied %d bytes", len(text))
}
