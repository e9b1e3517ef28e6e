// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/frame.go
// Summary: Frame accumulation and styled run construction.
// Usage: BeginFrame, RenderTerminal for each visible terminal, EndFrame.
// Notes: Runs are rebuilt only for damaged terminals; undamaged terminals
// reuse their cached runs.

package pool

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/framegrace/texelpool/parser"
	"github.com/framegrace/texelpool/search"
	"github.com/framegrace/texelpool/selection"
)

// StyleFlags carries text attributes and overlay state for one run.
type StyleFlags uint32

const (
	StyleBold StyleFlags = 1 << iota
	StyleDim
	StyleItalic
	StyleUnderline
	StyleDoubleUnderline
	StyleCurlyUnderline
	StyleDottedUnderline
	StyleDashedUnderline
	StyleStrikeout
	StyleBlink
	StyleSelected
	StyleSearchMatch
	StyleFocusedMatch
	StyleCursor
	StyleWide
)

// overlayFlags are never part of a default blank run.
const overlayFlags = StyleSelected | StyleSearchMatch | StyleFocusedMatch | StyleCursor |
	StyleUnderline | StyleDoubleUnderline | StyleCurlyUnderline | StyleDottedUnderline |
	StyleDashedUnderline | StyleStrikeout

var attrStyles = []struct {
	attr  parser.Attribute
	style StyleFlags
}{
	{parser.AttrBold, StyleBold},
	{parser.AttrDim, StyleDim},
	{parser.AttrItalic, StyleItalic},
	{parser.AttrUnderline, StyleUnderline},
	{parser.AttrDoubleUnderline, StyleDoubleUnderline},
	{parser.AttrCurlyUnderline, StyleCurlyUnderline},
	{parser.AttrDottedUnderline, StyleDottedUnderline},
	{parser.AttrDashedUnderline, StyleDashedUnderline},
	{parser.AttrStrikeout, StyleStrikeout},
	{parser.AttrBlink, StyleBlink},
}

func styleOf(a parser.Attribute) StyleFlags {
	var f StyleFlags
	for _, m := range attrStyles {
		if a&m.attr != 0 {
			f |= m.style
		}
	}
	return f
}

// TextRun is a horizontal stretch of cells sharing one style. Row and Col
// are viewport cells; Width counts cells, so a wide rune contributes 2.
type TextRun struct {
	Row   int
	Col   int
	Width int
	Text  string
	FG    RGBA
	BG    RGBA
	Flags StyleFlags
}

// CursorFrame is the cursor as drawn in this frame.
type CursorFrame struct {
	Col     int
	Row     int
	Shape   CursorShape
	Visible bool
}

// TerminalFrame is one terminal's contribution to a frame.
type TerminalFrame struct {
	ID     TerminalID
	Layout RenderLayout
	Cols   int
	Rows   int
	Runs   []TextRun
	Cursor CursorFrame
}

// Frame is submitted once per EndFrame.
type Frame struct {
	Seq       uint64
	Width     float64
	Height    float64
	Scale     float64
	Terminals []TerminalFrame
}

// Submitter receives completed frames, typically a GPU or TUI presenter.
type Submitter interface {
	Submit(Frame) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(Frame) error

func (f SubmitterFunc) Submit(fr Frame) error { return f(fr) }

// SetSubmitter installs the frame consumer. nil discards frames.
func (p *Pool) SetSubmitter(s Submitter) {
	p.frameMu.Lock()
	p.submitter = s
	p.frameMu.Unlock()
}

// ResizeSurface records the host surface size in logical points.
func (p *Pool) ResizeSurface(width, height float64) {
	p.frameMu.Lock()
	p.surfaceW, p.surfaceH = width, height
	p.frameMu.Unlock()
	p.needsRender.Store(true)
}

// SetScale sets the backing scale factor used for pixel sizes.
func (p *Pool) SetScale(scale float64) error {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("pool: scale %v: %w", scale, ErrInvalidArgument)
	}
	p.frameMu.Lock()
	p.scale = scale
	p.frameMu.Unlock()
	p.invalidateAll()
	return nil
}

// SetRenderLayout replaces the stored layouts used by RenderAll. When
// containerHeight is positive the Y values are taken as bottom-left origin
// and flipped to top-left.
func (p *Pool) SetRenderLayout(layouts []RenderLayout, containerHeight float64) {
	out := make([]RenderLayout, len(layouts))
	for i, l := range layouts {
		if containerHeight > 0 {
			l.Y = containerHeight - l.Y - l.Height
		}
		out[i] = l
	}
	p.frameMu.Lock()
	p.layouts = out
	p.frameMu.Unlock()
	p.needsRender.Store(true)
}

// BeginFrame starts accumulating terminal frames.
func (p *Pool) BeginFrame() {
	p.frameMu.Lock()
	p.pending = nil
	p.frameMu.Unlock()
}

// EndFrame submits everything accumulated since BeginFrame in a single
// call and clears the batch.
func (p *Pool) EndFrame() error {
	p.frameMu.Lock()
	p.frameSeq++
	frame := Frame{
		Seq:       p.frameSeq,
		Width:     p.surfaceW,
		Height:    p.surfaceH,
		Scale:     p.scale,
		Terminals: p.pending,
	}
	p.pending = nil
	sub := p.submitter
	p.frameMu.Unlock()

	p.framesBuilt.Add(1)
	if sub == nil {
		return nil
	}
	if err := sub.Submit(frame); err != nil {
		return fmt.Errorf("pool: submit frame %d: %w", frame.Seq, err)
	}
	return nil
}

// RenderAll renders every visible terminal from the stored layouts as one
// frame. Terminals closed since the layout was set are skipped.
func (p *Pool) RenderAll() error {
	p.frameMu.Lock()
	layouts := p.layouts
	p.frameMu.Unlock()

	p.BeginFrame()
	for _, l := range layouts {
		if !l.Visible {
			continue
		}
		err := p.RenderTerminal(l.TerminalID, l.X, l.Y, l.Width, l.Height)
		if err != nil && !errors.Is(err, ErrNotFound) {
			log.Printf("Pool: render terminal %d: %v", l.TerminalID, err)
		}
	}
	return p.EndFrame()
}

// RenderTerminal adds one terminal at (x, y, width, height) to the current
// frame. A positive size is converted to a grid with the font metrics and
// the terminal is resized when the grid changed.
func (p *Pool) RenderTerminal(id TerminalID, x, y, width, height float64) error {
	m := p.FontMetrics()
	p.frameMu.Lock()
	scale := p.scale
	p.frameMu.Unlock()

	cols, rows := 0, 0
	if width > 0 && height > 0 {
		cols = int(math.Floor(width / m.CellWidth))
		rows = int(math.Floor(height / m.LineHeight))
	}

	var tf TerminalFrame
	err := p.withEntry(id, func(e *entry) error {
		if cols > 0 && rows > 0 && (cols != e.cols || rows != e.rows) {
			if err := p.resizeLocked(e, cols, rows, width*scale, height*scale); err != nil {
				log.Printf("Pool: %v", err)
			}
			e.invalidate()
		}
		e.layout = RenderLayout{TerminalID: id, X: x, Y: y, Width: width, Height: height, Visible: true}
		e.hasLayout = true
		if e.vterm.Damaged() || !e.runsValid {
			e.runs = p.buildRuns(e)
			e.runsValid = true
			e.vterm.ClearDamage()
		}
		c := cursorLocked(e)
		tf = TerminalFrame{
			ID:     id,
			Layout: e.layout,
			Cols:   e.cols,
			Rows:   e.rows,
			Runs:   e.runs,
			Cursor: CursorFrame{
				Col:     c.Col,
				Row:     c.Row,
				Shape:   c.Shape,
				Visible: c.Visible && c.Row >= 0 && (!c.Blinking || c.BlinkOn),
			},
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.frameMu.Lock()
	p.pending = append(p.pending, tf)
	p.frameMu.Unlock()
	return nil
}

// colors resolves a cell's colors after reverse and hidden.
func (p *Pool) colors(c parser.Cell) (fg, bg RGBA, defaultBG bool) {
	fg = p.palette.resolve(c.FG, paletteDefaultFG)
	bg = p.palette.resolve(c.BG, paletteDefaultBG)
	defaultBG = c.BG.Mode == parser.ColorModeDefault
	if c.Attr&parser.AttrReverse != 0 {
		fg, bg = bg, fg
		defaultBG = false
	}
	if c.Attr&parser.AttrHidden != 0 {
		fg = bg
	}
	return fg, bg, defaultBG
}

type runBuilder struct {
	run     TextRun
	text    []rune
	open    bool
	blank   bool
	plainBG bool
	out     []TextRun
}

func (b *runBuilder) flush() {
	if !b.open {
		return
	}
	b.open = false
	if b.blank && b.plainBG && b.run.Flags&overlayFlags == 0 {
		return
	}
	b.run.Text = string(b.text)
	b.out = append(b.out, b.run)
}

func (b *runBuilder) add(row, col int, r rune, fg, bg RGBA, flags StyleFlags, plainBG bool) {
	if b.open && b.run.Row == row && b.run.FG == fg && b.run.BG == bg && b.run.Flags == flags && b.plainBG == plainBG {
		b.text = append(b.text, r)
		b.run.Width++
		b.blank = b.blank && r == ' '
		return
	}
	b.flush()
	b.run = TextRun{Row: row, Col: col, Width: 1, FG: fg, BG: bg, Flags: flags}
	b.text = append(b.text[:0], r)
	b.open = true
	b.blank = r == ' '
	b.plainBG = plainBG
}

// buildRuns converts the visible grid into styled runs with selection,
// search and cursor overlays applied. Caller holds e.mu.
func (p *Pool) buildRuns(e *entry) []TextRun {
	v := e.vterm
	top := v.VisibleTop()

	var (
		selStart, selEnd selection.Point
		hasSel           bool
	)
	if e.sel != nil {
		selStart, selEnd, hasSel = e.sel.Range(v)
	}
	var (
		matches []search.Match
		current []bool
	)
	if e.search != nil {
		matches, current = e.search.MatchesInRows(v, int64(top), int64(top+e.rows-1))
	}

	cur := cursorLocked(e)
	showCursor := cur.Visible && cur.Row >= 0 && (!cur.Blinking || cur.BlinkOn)

	b := &runBuilder{out: make([]TextRun, 0, e.rows)}
	for y := 0; y < e.rows; y++ {
		abs := top + y
		row, ok := v.Row(abs)
		if !ok {
			continue
		}
		for x := 0; x < len(row) && x < e.cols; x++ {
			c := row[x]
			if c.Spacer {
				if b.open {
					b.run.Width++
				}
				continue
			}
			pt := selection.Point{Row: int64(abs), Col: x}
			flags := styleOf(c.Attr)
			if c.Wide {
				flags |= StyleWide
			}
			if hasSel && !pt.Before(selStart) && !selEnd.Before(pt) {
				flags |= StyleSelected
			}
			flags |= matchFlags(matches, current, pt)
			if showCursor && y == cur.Row && x == cur.Col {
				flags |= StyleCursor
			}
			fg, bg, plainBG := p.colors(c)
			r := c.Rune
			if r == 0 {
				r = ' '
			}
			b.add(y, x, r, fg, bg, flags, plainBG)
		}
		b.flush()
	}
	return b.out
}

func matchFlags(matches []search.Match, current []bool, pt selection.Point) StyleFlags {
	for i, m := range matches {
		if pt.Before(m.Start) || m.End.Before(pt) {
			continue
		}
		if current[i] {
			return StyleSearchMatch | StyleFocusedMatch
		}
		return StyleSearchMatch
	}
	return 0
}
