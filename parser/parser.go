// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/parser.go
// Summary: VT escape-sequence state machine feeding a VTerm.
// Usage: One Parser per terminal; PTY output is written to it in order.
// Notes: Keeps parsing concerns isolated from rendering.

package parser

import (
	"net/url"
	"strconv"
	"unicode/utf8"
)

type State int

const (
	StateGround State = iota
	StateEscape
	StateCSI
	StateOSC
	StateOSCEscape
	StateCharset
	StateDCS
	StateDCSEscape
)

// maxOSCLength bounds a runaway OSC string.
const maxOSCLength = 4096

type Parser struct {
	state        State
	vterm        *VTerm
	params       []int
	subParams    [][]int
	currentParam int
	mainParam    int
	sub          []int
	inSub        bool
	private      bool
	intermediate rune
	oscBuffer    []rune
	pending      []byte
}

func NewParser(v *VTerm) *Parser {
	return &Parser{
		state:     StateGround,
		vterm:     v,
		params:    make([]int, 0, 16),
		subParams: make([][]int, 0, 16),
		oscBuffer: make([]rune, 0, 128),
	}
}

// Write decodes UTF-8 from the PTY and parses every complete rune. A rune
// split across writes is held until the rest arrives.
func (p *Parser) Write(data []byte) (int, error) {
	buf := data
	if len(p.pending) > 0 {
		buf = append(append([]byte(nil), p.pending...), data...)
		p.pending = p.pending[:0]
	}
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size <= 1 && !utf8.FullRune(buf) {
			p.pending = append(p.pending, buf...)
			break
		}
		p.Parse(r)
		buf = buf[size:]
	}
	return len(data), nil
}

// Parse processes a single rune.
func (p *Parser) Parse(r rune) {
	switch p.state {
	case StateGround:
		p.parseGround(r)
	case StateEscape:
		p.parseEscape(r)
	case StateCSI:
		p.parseCSI(r)
	case StateOSC:
		switch r {
		case '\x07':
			p.handleOSC(p.oscBuffer)
			p.state = StateGround
		case '\x1b':
			p.state = StateOSCEscape
		default:
			if len(p.oscBuffer) < maxOSCLength {
				p.oscBuffer = append(p.oscBuffer, r)
			}
		}
	case StateOSCEscape:
		p.handleOSC(p.oscBuffer)
		p.state = StateGround
		if r != '\\' {
			// Not ST: the ESC started a new sequence.
			p.state = StateEscape
			p.Parse(r)
		}
	case StateDCS:
		if r == '\x1b' {
			p.state = StateDCSEscape
		}
	case StateDCSEscape:
		if r == '\\' {
			p.state = StateGround
		} else {
			p.state = StateDCS
		}
	case StateCharset:
		p.state = StateGround
	}
}

func (p *Parser) parseGround(r rune) {
	switch r {
	case '\x1b':
		p.state = StateEscape
	case '\n', '\v', '\f':
		// LF only moves down; LNM is not supported.
		p.vterm.LineFeed()
	case '\r':
		p.vterm.CarriageReturn()
	case '\b':
		p.vterm.Backspace()
	case '\t':
		p.vterm.Tab()
	case '\a':
		p.vterm.ringBell()
	default:
		if r >= ' ' && r != 0x7f {
			p.vterm.placeChar(r)
		}
	}
}

func (p *Parser) parseEscape(r rune) {
	p.state = StateGround
	switch r {
	case '[':
		p.state = StateCSI
		p.params = p.params[:0]
		p.subParams = p.subParams[:0]
		p.currentParam = 0
		p.inSub = false
		p.sub = nil
		p.private = false
		p.intermediate = 0
	case ']':
		p.state = StateOSC
		p.oscBuffer = p.oscBuffer[:0]
	case 'P':
		p.state = StateDCS
	case '(', ')', '*', '+':
		p.state = StateCharset
	case '7':
		p.vterm.SaveCursor()
	case '8':
		p.vterm.RestoreCursor()
	case 'D':
		p.vterm.Index()
	case 'E':
		p.vterm.NextLine()
	case 'H':
		p.vterm.SetTabStop()
	case 'M':
		p.vterm.ReverseIndex()
	case 'c':
		p.vterm.Reset()
	case '=', '>', '\\':
	default:
		debugLog.Printf("Parser: Unhandled ESC sequence: %q", r)
	}
}

func (p *Parser) parseCSI(r rune) {
	switch {
	case r >= '0' && r <= '9':
		p.currentParam = p.currentParam*10 + int(r-'0')
		if p.currentParam > 65535 {
			p.currentParam = 65535
		}
	case r == ':':
		if !p.inSub {
			p.inSub = true
			p.mainParam = p.currentParam
			p.sub = make([]int, 0, 4)
		} else {
			p.sub = append(p.sub, p.currentParam)
		}
		p.currentParam = 0
	case r == ';':
		p.finishParam()
	case r >= '<' && r <= '?':
		p.private = true
	case r >= ' ' && r <= '/':
		p.intermediate = r
	case r >= '@' && r <= '~':
		p.finishParam()
		p.vterm.ProcessCSI(r, p.params, p.subParams, p.intermediate, p.private)
		p.state = StateGround
	case r == '\x1b':
		// Aborted sequence.
		p.state = StateEscape
	}
}

func (p *Parser) finishParam() {
	if p.inSub {
		p.sub = append(p.sub, p.currentParam)
		p.params = append(p.params, p.mainParam)
		p.subParams = append(p.subParams, p.sub)
	} else {
		p.params = append(p.params, p.currentParam)
		p.subParams = append(p.subParams, nil)
	}
	p.inSub = false
	p.sub = nil
	p.currentParam = 0
}

func (p *Parser) handleOSC(sequence []rune) {
	parts := splitRunesN(sequence, ';', 2)
	if len(parts) < 2 {
		return
	}
	command, err := strconv.Atoi(string(parts[0]))
	if err != nil {
		return
	}
	payload := string(parts[1])

	switch command {
	case 0, 2:
		p.vterm.SetTitle(payload)
	case 7:
		if dir, ok := parseWorkingDir(payload); ok {
			p.vterm.setWorkingDir(dir)
		}
	case 8:
		// OSC 8 ; params ; URI. An empty URI ends the link.
		link := splitRunesN(parts[1], ';', 2)
		if len(link) < 2 {
			return
		}
		p.vterm.setHyperlink(string(link[1]))
	default:
		debugLog.Printf("Parser: unhandled OSC %d", command)
	}
}

// parseWorkingDir decodes an OSC 7 payload of the form file://host/path.
func parseWorkingDir(payload string) (string, bool) {
	u, err := url.Parse(payload)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return u.Path, true
}

func splitRunesN(r []rune, sep rune, n int) [][]rune {
	if n <= 1 {
		return [][]rune{r}
	}
	res := make([][]rune, 0, n)
	start := 0
	count := 1
	for i, ru := range r {
		if ru == sep && count < n {
			res = append(res, r[start:i])
			start = i + 1
			count++
		}
	}
	res = append(res, r[start:])
	return res
}
