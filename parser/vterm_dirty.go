// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: parser/vterm_dirty.go
// Summary: Damage tracking so renderers can skip unchanged terminals.
// Usage: Part of VTerm terminal emulator.

package parser

// MarkDirty marks a specific screen line as needing a redraw.
func (v *VTerm) MarkDirty(line int) {
	if line >= 0 && line < v.height {
		v.dirtyLines[line] = true
		v.damaged = true
	}
}

// MarkAllDirty marks all lines as dirty.
func (v *VTerm) MarkAllDirty() {
	v.allDirty = true
	v.damaged = true
}

// Damaged reports whether anything changed since the last ClearDamage.
func (v *VTerm) Damaged() bool { return v.damaged }

// DirtyLines returns the number of screen lines needing a redraw.
func (v *VTerm) DirtyLines() int {
	if v.allDirty {
		return v.height
	}
	return len(v.dirtyLines)
}

// GetDirtyLines returns the dirty line map and the all-dirty flag.
func (v *VTerm) GetDirtyLines() (map[int]bool, bool) {
	return v.dirtyLines, v.allDirty
}

// ClearDamage resets damage tracking after a frame has been built.
func (v *VTerm) ClearDamage() {
	v.allDirty = false
	v.damaged = false
	if len(v.dirtyLines) > 0 {
		v.dirtyLines = make(map[int]bool)
	}
}
