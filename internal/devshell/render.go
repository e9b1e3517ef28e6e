// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/devshell/render.go
// Summary: Paints pool frames and the status line onto the screen.
// Notes: Called on the scheduler goroutine; tcell screens lock internally.

package devshell

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/texelpool/pool"
)

var (
	matchBG   = tcell.NewRGBColor(120, 110, 20)
	focusedBG = tcell.NewRGBColor(230, 140, 20)
	statusSt  = tcell.StyleDefault.Reverse(true)
)

func rgb(c pool.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// runStyle converts run colors and flags. The cursor flag is ignored since
// the screen cursor is placed separately.
func runStyle(run pool.TextRun) tcell.Style {
	st := tcell.StyleDefault.Foreground(rgb(run.FG)).Background(rgb(run.BG))
	f := run.Flags
	if f&pool.StyleBold != 0 {
		st = st.Bold(true)
	}
	if f&pool.StyleDim != 0 {
		st = st.Dim(true)
	}
	if f&pool.StyleItalic != 0 {
		st = st.Italic(true)
	}
	if f&(pool.StyleUnderline|pool.StyleDoubleUnderline|pool.StyleCurlyUnderline|pool.StyleDottedUnderline|pool.StyleDashedUnderline) != 0 {
		st = st.Underline(true)
	}
	if f&pool.StyleStrikeout != 0 {
		st = st.StrikeThrough(true)
	}
	if f&pool.StyleBlink != 0 {
		st = st.Blink(true)
	}
	switch {
	case f&pool.StyleFocusedMatch != 0:
		st = st.Background(focusedBG).Foreground(tcell.ColorBlack)
	case f&pool.StyleSearchMatch != 0:
		st = st.Background(matchBG)
	}
	if f&pool.StyleSelected != 0 {
		st = st.Reverse(true)
	}
	return st
}

func cursorStyle(shape pool.CursorShape) tcell.CursorStyle {
	switch shape {
	case pool.CursorUnderline:
		return tcell.CursorStyleSteadyUnderline
	case pool.CursorBeam:
		return tcell.CursorStyleSteadyBar
	default:
		return tcell.CursorStyleSteadyBlock
	}
}

func (s *Shell) submit(f pool.Frame) error {
	for _, tf := range f.Terminals {
		s.drawTerminal(tf)
	}
	s.drawStatus()
	s.screen.Show()
	return nil
}

func (s *Shell) drawTerminal(tf pool.TerminalFrame) {
	x0, y0 := int(tf.Layout.X), int(tf.Layout.Y)
	for y := 0; y < tf.Rows; y++ {
		for x := 0; x < tf.Cols; x++ {
			s.screen.SetContent(x0+x, y0+y, ' ', nil, tcell.StyleDefault)
		}
	}
	for _, run := range tf.Runs {
		st := runStyle(run)
		x := x0 + run.Col
		for _, r := range run.Text {
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			s.screen.SetContent(x, y0+run.Row, r, nil, st)
			x += w
		}
		// Blank runs carry their background past the drawn text.
		for ; x < x0+run.Col+run.Width; x++ {
			s.screen.SetContent(x, y0+run.Row, ' ', nil, st)
		}
	}

	c := tf.Cursor
	if !c.Visible || tf.ID != s.id {
		s.screen.HideCursor()
		return
	}
	s.screen.SetCursorStyle(cursorStyle(c.Shape))
	s.screen.ShowCursor(x0+c.Col, y0+c.Row)
}

func (s *Shell) statusText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searching {
		return fmt.Sprintf(" find: %s", string(s.pattern))
	}
	text := " texelpool"
	if s.title != "" {
		text += " | " + s.title
	}
	if s.notice != "" {
		text += " | " + s.notice
	}
	return text + " | ^F find  F3 next  ^Q quit"
}

func (s *Shell) drawStatus() {
	w, h := s.screen.Size()
	if h < 2 {
		return
	}
	y := h - 1
	x := 0
	for _, r := range s.statusText() {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > w {
			break
		}
		s.screen.SetContent(x, y, r, nil, statusSt)
		x += rw
	}
	for ; x < w; x++ {
		s.screen.SetContent(x, y, ' ', nil, statusSt)
	}
}
