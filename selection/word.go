// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: selection/word.go
// Summary: Word boundary rule shared by semantic selection and word lookup.
// Notes: CJK runs and word runs merge; whitespace only separates; every
// other symbol is a word of its own.

package selection

import (
	"unicode"

	"github.com/framegrace/texelpool/parser"
)

// Class is the word-boundary category of a code point.
type Class int

const (
	ClassSpace Class = iota
	ClassWord
	ClassCJK
	ClassSymbol
)

// isCJK covers the unified ideographs, compatibility ideographs, Hangul
// syllables and the kana blocks.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF,
		r >= 0x3400 && r <= 0x4DBF,
		r >= 0x20000 && r <= 0x2A6DF,
		r >= 0xF900 && r <= 0xFAFF,
		r >= 0xAC00 && r <= 0xD7AF,
		r >= 0x3040 && r <= 0x309F,
		r >= 0x30A0 && r <= 0x30FF:
		return true
	}
	return false
}

// Classify returns the boundary class of r.
func Classify(r rune) Class {
	switch {
	case r == 0 || unicode.IsSpace(r):
		return ClassSpace
	case isCJK(r):
		return ClassCJK
	case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r):
		return ClassWord
	default:
		return ClassSymbol
	}
}

// merges reports whether runs of class c extend across neighbours.
func (c Class) merges() bool { return c == ClassWord || c == ClassCJK }

// WordBounds returns the inclusive column range of the word at col. Spacer
// cells of wide runes belong to the rune on their left. Clicking whitespace
// or a symbol yields that single cell.
func WordBounds(cells []parser.Cell, col int) (start, end int) {
	if len(cells) == 0 {
		return 0, 0
	}
	if col < 0 {
		col = 0
	}
	if col >= len(cells) {
		col = len(cells) - 1
	}
	if cells[col].Spacer && col > 0 {
		col--
	}
	cls := Classify(cells[col].Rune)

	start, end = col, col
	if cells[end].Wide && end+1 < len(cells) {
		end++
	}
	if !cls.merges() {
		return start, end
	}

	for start > 0 {
		j := start - 1
		if cells[j].Spacer && j > 0 {
			j--
		}
		if Classify(cells[j].Rune) != cls {
			break
		}
		start = j
	}
	for end+1 < len(cells) {
		k := end + 1
		if cells[k].Spacer || Classify(cells[k].Rune) != cls {
			break
		}
		end = k
		if cells[k].Wide && k+1 < len(cells) {
			end = k + 1
		}
	}
	return start, end
}

// WordAt returns the word containing runes[idx], or "" when idx is
// whitespace or out of range.
func WordAt(runes []rune, idx int) string {
	if idx < 0 || idx >= len(runes) {
		return ""
	}
	cls := Classify(runes[idx])
	switch {
	case cls == ClassSpace:
		return ""
	case !cls.merges():
		return string(runes[idx])
	}
	start, end := idx, idx
	for start > 0 && Classify(runes[start-1]) == cls {
		start--
	}
	for end+1 < len(runes) && Classify(runes[end+1]) == cls {
		end++
	}
	return string(runes[start : end+1])
}
