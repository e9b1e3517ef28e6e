// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/hyperlink.go
// Summary: OSC 8 hyperlink table shared by every cell of a terminal.
// Notes: Cells store a small id; the URI lives here once.

package parser

// maxLinks bounds the table. Links opened past it are not recorded.
const maxLinks = 4096

type linkTable struct {
	uris    []string
	ids     map[string]uint32
	current uint32
}

// open returns the id for uri, allocating one on first use.
func (t *linkTable) open(uri string) uint32 {
	if id, ok := t.ids[uri]; ok {
		return id
	}
	if len(t.uris) >= maxLinks {
		debugLog.Printf("Parser: hyperlink table full, ignoring %q", uri)
		return 0
	}
	if t.ids == nil {
		t.ids = make(map[string]uint32)
	}
	t.uris = append(t.uris, uri)
	id := uint32(len(t.uris))
	t.ids[uri] = id
	return id
}

func (t *linkTable) uri(id uint32) (string, bool) {
	if id == 0 || int(id) > len(t.uris) {
		return "", false
	}
	return t.uris[id-1], true
}

// reset forgets every link. Only safe when no cell refers to one.
func (t *linkTable) reset() {
	t.uris = nil
	t.ids = nil
	t.current = 0
}

// setHyperlink starts tagging printed cells with uri, or stops when uri is
// empty.
func (v *VTerm) setHyperlink(uri string) {
	if uri == "" {
		v.links.current = 0
		return
	}
	v.links.current = v.links.open(uri)
}

// Hyperlink returns the URI for a cell's link id.
func (v *VTerm) Hyperlink(id uint32) (string, bool) {
	return v.links.uri(id)
}

// HyperlinkAt returns the URI of the cell at an absolute position.
func (v *VTerm) HyperlinkAt(abs, col int) (string, bool) {
	row, ok := v.Row(abs)
	if !ok || col < 0 || col >= len(row) {
		return "", false
	}
	c := row[col]
	if c.Spacer && col > 0 {
		c = row[col-1]
	}
	return v.links.uri(c.Link)
}
