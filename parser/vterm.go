// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/vterm.go
// Summary: Virtual terminal state: live screen, alternate screen and scrollback.
// Usage: Driven by Parser; read by the pool under the owning terminal's lock.
// Notes: Not safe for concurrent use. Absolute row 0 is the oldest retained
// history row; rows from HistoryLen() on are the live screen.

package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// VTerm represents the state of a virtual terminal, managing both the main screen
// with a scrollback buffer and an alternate screen for fullscreen applications.
type VTerm struct {
	width, height           int
	cursorX, cursorY        int
	savedCursorX            int
	savedCursorY            int
	savedFG, savedBG        Color
	savedAttr               Attribute
	screen                  [][]Cell
	altScreen               [][]Cell
	inAltScreen             bool
	history                 *historyRing
	viewOffset              int
	epoch                   uint64
	currentFG, currentBG    Color
	currentAttr             Attribute
	defaultFG, defaultBG    Color
	tabStops                map[int]bool
	cursorVisible           bool
	cursorStyle             tcell.CursorStyle
	cursorBlink             bool
	wrapNext, autoWrapMode  bool
	appCursorKeys           bool
	bracketedPasteMode      bool
	mouseMode               MouseMode
	mouseSGR                bool
	links                   linkTable
	marginTop, marginBottom int
	title                   string
	workingDir              string
	lastGraphicChar         rune
	dirtyLines              map[int]bool
	allDirty                bool
	damaged                 bool

	TitleChanged       func(string)
	WriteToPty         func([]byte)
	Bell               func()
	CursorBlinkChanged func(bool)
	WorkingDirChanged  func(string)
}

// Option configures a VTerm at construction time.
type Option func(*VTerm)

func WithPtyWriter(writer func([]byte)) Option { return func(v *VTerm) { v.WriteToPty = writer } }

func WithTitleChangeHandler(handler func(string)) Option {
	return func(v *VTerm) { v.TitleChanged = handler }
}

func WithBellHandler(handler func()) Option { return func(v *VTerm) { v.Bell = handler } }

func WithCursorBlinkChangeHandler(handler func(bool)) Option {
	return func(v *VTerm) { v.CursorBlinkChanged = handler }
}

func WithWorkingDirHandler(handler func(string)) Option {
	return func(v *VTerm) { v.WorkingDirChanged = handler }
}

// WithHistorySize sets the number of scrollback rows retained.
func WithHistorySize(lines int) Option {
	return func(v *VTerm) { v.history = newHistoryRing(lines) }
}

// NewVTerm creates and initializes a new virtual terminal.
func NewVTerm(width, height int, opts ...Option) *VTerm {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	v := &VTerm{
		width:         width,
		height:        height,
		history:       newHistoryRing(defaultHistorySize),
		currentFG:     DefaultFG,
		currentBG:     DefaultBG,
		defaultFG:     DefaultFG,
		defaultBG:     DefaultBG,
		cursorVisible: true,
		autoWrapMode:  true,
		marginTop:     0,
		marginBottom:  height - 1,
		dirtyLines:    make(map[int]bool),
		allDirty:      true,
		damaged:       true,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.screen = v.newBuffer(width, height)
	v.altScreen = v.newBuffer(width, height)
	v.resetTabStops()
	return v
}

func (v *VTerm) newBuffer(width, height int) [][]Cell {
	buf := make([][]Cell, height)
	for y := range buf {
		buf[y] = blankRow(width, v.defaultFG, v.defaultBG)
	}
	return buf
}

func (v *VTerm) resetTabStops() {
	v.tabStops = make(map[int]bool)
	for i := 0; i < v.width; i += 8 {
		v.tabStops[i] = true
	}
}

// buf returns the buffer currently receiving output.
func (v *VTerm) buf() [][]Cell {
	if v.inAltScreen {
		return v.altScreen
	}
	return v.screen
}

// --- Addressing ---

// Size returns the grid dimensions in cells.
func (v *VTerm) Size() (cols, rows int) { return v.width, v.height }

// HistoryLen returns the number of scrollback rows addressable right now.
// The alternate screen has no scrollback.
func (v *VTerm) HistoryLen() int {
	if v.inAltScreen {
		return 0
	}
	return v.history.len()
}

// HistoryCapacity returns the configured scrollback size.
func (v *VTerm) HistoryCapacity() int { return v.history.capacity() }

// Evicted returns how many history rows have been dropped since creation.
func (v *VTerm) Evicted() int64 { return v.history.evicted }

// Epoch changes whenever the absolute address space is replaced wholesale
// (alternate screen switch, full reset).
func (v *VTerm) Epoch() uint64 { return v.epoch }

// TotalRows returns history rows plus screen rows.
func (v *VTerm) TotalRows() int { return v.HistoryLen() + v.height }

// Row returns the cells of an absolute row. The returned slice is owned by
// the VTerm and must not be retained past the caller's lock.
func (v *VTerm) Row(abs int) ([]Cell, bool) {
	if abs < 0 {
		return nil, false
	}
	hl := v.HistoryLen()
	if abs < hl {
		return v.history.at(abs)
	}
	i := abs - hl
	if i >= v.height {
		return nil, false
	}
	return v.buf()[i], true
}

// VisibleTop returns the absolute row shown at the top of the viewport.
func (v *VTerm) VisibleTop() int { return v.HistoryLen() - v.viewOffset }

// Grid returns the rows currently visible, honouring the display offset.
func (v *VTerm) Grid() [][]Cell {
	grid := make([][]Cell, v.height)
	top := v.VisibleTop()
	for y := 0; y < v.height; y++ {
		row, ok := v.Row(top + y)
		if !ok {
			row = blankRow(v.width, v.defaultFG, v.defaultBG)
		}
		grid[y] = row
	}
	return grid
}

// --- Display offset ---

// DisplayOffset returns the scroll position; 0 follows live output.
func (v *VTerm) DisplayOffset() int { return v.viewOffset }

// Scroll moves the view by delta rows, positive toward history, clamped to
// [0, HistoryLen()]. It returns the new offset.
func (v *VTerm) Scroll(delta int) int {
	next := v.viewOffset + delta
	if next < 0 {
		next = 0
	}
	if hl := v.HistoryLen(); next > hl {
		next = hl
	}
	if next != v.viewOffset {
		v.viewOffset = next
		v.MarkAllDirty()
	}
	return v.viewOffset
}

// ScrollToBottom returns the view to live output.
func (v *VTerm) ScrollToBottom() {
	if v.viewOffset != 0 {
		v.viewOffset = 0
		v.MarkAllDirty()
	}
}

// --- Cursor ---

func (v *VTerm) Cursor() (int, int)                  { return v.cursorX, v.cursorY }
func (v *VTerm) CursorVisible() bool                 { return v.cursorVisible }
func (v *VTerm) CursorStyle() tcell.CursorStyle      { return v.cursorStyle }
func (v *VTerm) CursorBlinking() bool                { return v.cursorBlink }
func (v *VTerm) AppCursorKeys() bool                 { return v.appCursorKeys }
func (v *VTerm) IsBracketedPasteModeEnabled() bool   { return v.bracketedPasteMode }
func (v *VTerm) InAltScreen() bool                   { return v.inAltScreen }
func (v *VTerm) Title() string                       { return v.title }
func (v *VTerm) WorkingDir() string                  { return v.workingDir }
func (v *VTerm) DefaultColors() (fg Color, bg Color) { return v.defaultFG, v.defaultBG }

// SetCursorPos moves the cursor to a new position, clamping to screen bounds.
func (v *VTerm) SetCursorPos(y, x int) {
	if x < 0 {
		x = 0
	}
	if x >= v.width {
		x = v.width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= v.height {
		y = v.height - 1
	}
	if y != v.cursorY || x != v.cursorX {
		v.wrapNext = false
	}
	v.MarkDirty(v.cursorY)
	v.cursorX = x
	v.cursorY = y
	v.MarkDirty(v.cursorY)
}

func (v *VTerm) SetCursorVisible(visible bool) {
	if v.cursorVisible != visible {
		v.cursorVisible = visible
		v.MarkDirty(v.cursorY)
	}
}

func (v *VTerm) setCursorBlink(blink bool) {
	if v.cursorBlink == blink {
		return
	}
	v.cursorBlink = blink
	v.MarkDirty(v.cursorY)
	if v.CursorBlinkChanged != nil {
		v.CursorBlinkChanged(blink)
	}
}

// SetCursorStyle applies DECSCUSR. Odd styles and the default blink.
func (v *VTerm) SetCursorStyle(ps int) {
	if ps < 0 || ps > int(tcell.CursorStyleSteadyBar) {
		return
	}
	v.cursorStyle = tcell.CursorStyle(ps)
	v.MarkDirty(v.cursorY)
	v.setCursorBlink(ps == 0 || ps%2 == 1)
}

func (v *VTerm) SaveCursor() {
	v.savedCursorX, v.savedCursorY = v.cursorX, v.cursorY
	v.savedFG, v.savedBG, v.savedAttr = v.currentFG, v.currentBG, v.currentAttr
}

func (v *VTerm) RestoreCursor() {
	v.currentFG, v.currentBG, v.currentAttr = v.savedFG, v.savedBG, v.savedAttr
	v.SetCursorPos(v.savedCursorY, v.savedCursorX)
}

// --- Printing ---

// placeChar puts a rune at the cursor, handling wide runes and deferred wrap.
func (v *VTerm) placeChar(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		v.combine(r)
		return
	}
	v.lastGraphicChar = r

	if v.wrapNext {
		v.wrapLine()
	}
	if w == 2 && v.cursorX == v.width-1 {
		if !v.autoWrapMode || v.width < 2 {
			return
		}
		v.wrapLine()
	}

	row := v.buf()[v.cursorY]
	x := v.cursorX
	v.clearWideAt(row, x)
	link := v.links.current
	row[x] = Cell{Rune: r, FG: v.currentFG, BG: v.currentBG, Attr: v.currentAttr, Wide: w == 2, Link: link}
	if w == 2 && x+1 < len(row) {
		v.clearWideAt(row, x+1)
		row[x+1] = Cell{Rune: ' ', FG: v.currentFG, BG: v.currentBG, Attr: v.currentAttr, Spacer: true, Link: link}
	}
	v.MarkDirty(v.cursorY)

	next := x + w
	if next >= v.width {
		v.cursorX = v.width - 1
		if v.autoWrapMode {
			v.wrapNext = true
		}
		return
	}
	v.cursorX = next
}

// combine folds a combining mark into the previously printed cell when NFC
// has a precomposed form for the pair. Other zero-width runes are dropped
// since a cell holds one rune.
func (v *VTerm) combine(r rune) {
	if !unicode.In(r, unicode.Mn, unicode.Me, unicode.Mc) {
		return
	}
	x := v.cursorX
	if !v.wrapNext {
		x--
	}
	row := v.buf()[v.cursorY]
	if x < 0 || x >= len(row) {
		return
	}
	if row[x].Spacer && x > 0 {
		x--
	}
	base := row[x].Rune
	if base == 0 || base == ' ' {
		return
	}
	composed := norm.NFC.String(string([]rune{base, r}))
	c, size := utf8.DecodeRuneInString(composed)
	if size != len(composed) || c == utf8.RuneError {
		return
	}
	row[x].Rune = c
	v.lastGraphicChar = c
	v.MarkDirty(v.cursorY)
}

// wrapLine marks the current row as soft-wrapped and moves to the next one.
func (v *VTerm) wrapLine() {
	row := v.buf()[v.cursorY]
	row[len(row)-1].Wrapped = true
	v.wrapNext = false
	v.cursorX = 0
	v.LineFeed()
}

// clearWideAt blanks the other half of a wide rune about to be overwritten.
func (v *VTerm) clearWideAt(row []Cell, x int) {
	if x < 0 || x >= len(row) {
		return
	}
	c := row[x]
	if c.Spacer && x > 0 {
		row[x-1] = blankCell(row[x-1].FG, row[x-1].BG)
	}
	if c.Wide && x+1 < len(row) {
		row[x+1] = blankCell(row[x+1].FG, row[x+1].BG)
	}
}

// RepeatCharacter implements REP.
func (v *VTerm) RepeatCharacter(n int) {
	if v.lastGraphicChar == 0 {
		return
	}
	for i := 0; i < n; i++ {
		v.placeChar(v.lastGraphicChar)
	}
}

// --- C0 controls ---

// LineFeed moves the cursor down one line, scrolling the region if necessary.
func (v *VTerm) LineFeed() {
	v.wrapNext = false
	if v.cursorY == v.marginBottom {
		v.scrollUp(1)
		return
	}
	if v.cursorY < v.height-1 {
		v.SetCursorPos(v.cursorY+1, v.cursorX)
	}
}

func (v *VTerm) CarriageReturn() {
	v.wrapNext = false
	v.SetCursorPos(v.cursorY, 0)
}

func (v *VTerm) Backspace() {
	v.wrapNext = false
	if v.cursorX > 0 {
		v.SetCursorPos(v.cursorY, v.cursorX-1)
	}
}

// Tab advances to the next tab stop or the last column.
func (v *VTerm) Tab() {
	for x := v.cursorX + 1; x < v.width; x++ {
		if v.tabStops[x] {
			v.SetCursorPos(v.cursorY, x)
			return
		}
	}
	v.SetCursorPos(v.cursorY, v.width-1)
}

func (v *VTerm) SetTabStop() { v.tabStops[v.cursorX] = true }

func (v *VTerm) ClearTabStop(mode int) {
	switch mode {
	case 0:
		delete(v.tabStops, v.cursorX)
	case 3:
		v.tabStops = make(map[int]bool)
	}
}

func (v *VTerm) ringBell() {
	if v.Bell != nil {
		v.Bell()
	}
}

// --- Index / scrolling ---

// Index is ESC D.
func (v *VTerm) Index() { v.LineFeed() }

// NextLine is ESC E.
func (v *VTerm) NextLine() {
	v.CarriageReturn()
	v.LineFeed()
}

// ReverseIndex is ESC M: move up, scrolling the region down at its top.
func (v *VTerm) ReverseIndex() {
	v.wrapNext = false
	if v.cursorY == v.marginTop {
		v.scrollDown(1)
		return
	}
	if v.cursorY > 0 {
		v.SetCursorPos(v.cursorY-1, v.cursorX)
	}
}

// scrollUp moves the scroll region up by n rows. Rows leaving the top of the
// main screen go to history.
func (v *VTerm) scrollUp(n int) {
	buf := v.buf()
	top, bottom := v.marginTop, v.marginBottom
	if n > bottom-top+1 {
		n = bottom - top + 1
	}
	for i := 0; i < n; i++ {
		removed := buf[top]
		copy(buf[top:bottom], buf[top+1:bottom+1])
		buf[bottom] = blankRow(v.width, v.defaultFG, v.currentBG)
		if !v.inAltScreen && top == 0 {
			v.pushHistory(removed)
		}
	}
	v.MarkAllDirty()
}

// scrollDown moves the scroll region down by n rows, discarding the bottom.
func (v *VTerm) scrollDown(n int) {
	buf := v.buf()
	top, bottom := v.marginTop, v.marginBottom
	if n > bottom-top+1 {
		n = bottom - top + 1
	}
	for i := 0; i < n; i++ {
		copy(buf[top+1:bottom+1], buf[top:bottom])
		buf[top] = blankRow(v.width, v.defaultFG, v.currentBG)
	}
	v.MarkAllDirty()
}

func (v *VTerm) pushHistory(row []Cell) {
	v.history.push(row)
	if v.viewOffset > 0 {
		// Keep the viewed rows in place while the user is scrolled back.
		v.viewOffset++
	}
	if hl := v.history.len(); v.viewOffset > hl {
		v.viewOffset = hl
	}
}

// SetMargins implements DECSTBM with 1-based inclusive bounds.
func (v *VTerm) SetMargins(top, bottom int) {
	if top == 0 {
		top = 1
	}
	if bottom == 0 || bottom > v.height {
		bottom = v.height
	}
	if top >= bottom {
		v.marginTop = 0
		v.marginBottom = v.height - 1
	} else {
		v.marginTop = top - 1
		v.marginBottom = bottom - 1
	}
	v.SetCursorPos(0, 0)
}

// --- Alternate screen ---

func (v *VTerm) enterAltScreen(saveCursor bool) {
	if v.inAltScreen {
		return
	}
	if saveCursor {
		v.SaveCursor()
	}
	v.inAltScreen = true
	v.altScreen = v.newBuffer(v.width, v.height)
	v.viewOffset = 0
	v.epoch++
	v.MarkAllDirty()
}

func (v *VTerm) exitAltScreen(restoreCursor bool) {
	if !v.inAltScreen {
		return
	}
	v.inAltScreen = false
	v.epoch++
	if restoreCursor {
		v.RestoreCursor()
	}
	v.MarkAllDirty()
}

// --- Resize ---

// Resize changes the grid size. Shrinking the height pushes rows above the
// cursor into history; scrollback is never discarded by a resize. History rows
// keep their original width.
func (v *VTerm) Resize(width, height int) {
	if width < 1 || height < 1 || (width == v.width && height == v.height) {
		return
	}
	if v.inAltScreen {
		v.altScreen = v.resizeBuffer(v.altScreen, width, height, true)
		v.screen = v.resizeBuffer(v.screen, width, height, false)
	} else {
		v.screen = v.resizeBuffer(v.screen, width, height, true)
		v.altScreen = v.resizeBuffer(v.altScreen, width, height, false)
	}
	v.width = width
	v.height = height
	if v.cursorX >= width {
		v.cursorX = width - 1
	}
	if v.cursorY >= height {
		v.cursorY = height - 1
	}
	v.wrapNext = false
	v.marginTop = 0
	v.marginBottom = height - 1
	v.resetTabStops()
	if hl := v.HistoryLen(); v.viewOffset > hl {
		v.viewOffset = hl
	}
	v.MarkAllDirty()
}

// resizeBuffer adjusts one screen buffer. For the active buffer, rows above
// the cursor are shifted out (into history on the main screen) so the cursor
// row survives a height reduction.
func (v *VTerm) resizeBuffer(buf [][]Cell, width, height int, active bool) [][]Cell {
	if active && height < len(buf) {
		if shift := v.cursorY - (height - 1); shift > 0 {
			if !v.inAltScreen {
				for i := 0; i < shift; i++ {
					v.pushHistory(buf[i])
				}
			}
			buf = buf[shift:]
			v.cursorY -= shift
		}
	}
	buf = v.resizeRows(buf, height)
	for y, row := range buf {
		buf[y] = resizeRow(row, width, v.defaultFG, v.defaultBG)
	}
	return buf
}

func (v *VTerm) resizeRows(buf [][]Cell, height int) [][]Cell {
	if len(buf) > height {
		return buf[:height]
	}
	for len(buf) < height {
		buf = append(buf, blankRow(v.width, v.defaultFG, v.defaultBG))
	}
	return buf
}

func resizeRow(row []Cell, width int, fg, bg Color) []Cell {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		row = row[:width]
		if last := len(row) - 1; last >= 0 && row[last].Wide {
			row[last] = blankCell(row[last].FG, row[last].BG)
		}
		return row
	}
	out := make([]Cell, width)
	copy(out, row)
	for x := len(row); x < width; x++ {
		out[x] = blankCell(fg, bg)
	}
	if len(row) > 0 {
		out[len(row)-1].Wrapped = false
	}
	return out
}

// --- Reset ---

// Reset performs RIS: clears screens, history and modes.
func (v *VTerm) Reset() {
	v.inAltScreen = false
	v.screen = v.newBuffer(v.width, v.height)
	v.altScreen = v.newBuffer(v.width, v.height)
	v.history.clear()
	v.viewOffset = 0
	v.epoch++
	v.cursorX, v.cursorY = 0, 0
	v.wrapNext = false
	v.autoWrapMode = true
	v.appCursorKeys = false
	v.bracketedPasteMode = false
	v.mouseMode = MouseOff
	v.mouseSGR = false
	v.links.reset()
	v.cursorVisible = true
	v.cursorStyle = tcell.CursorStyleDefault
	v.setCursorBlink(false)
	v.marginTop = 0
	v.marginBottom = v.height - 1
	v.ResetAttributes()
	v.resetTabStops()
	v.MarkAllDirty()
}

// SetTitle updates the window title and notifies the handler.
func (v *VTerm) SetTitle(title string) {
	v.title = title
	if v.TitleChanged != nil {
		v.TitleChanged(title)
	}
}

func (v *VTerm) setWorkingDir(dir string) {
	if dir == "" || dir == v.workingDir {
		return
	}
	v.workingDir = dir
	if v.WorkingDirChanged != nil {
		v.WorkingDirChanged(dir)
	}
}

func (v *VTerm) reply(s string) {
	if v.WriteToPty != nil {
		v.WriteToPty([]byte(s))
	}
}
