// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: journal/run.go
// Summary: Per-run recorder handed to a pool.

package journal

import (
	"time"

	"github.com/google/uuid"
)

// Run records the terminals of one pool run. It satisfies pool.Recorder.
type Run struct {
	j  *Journal
	id uuid.UUID
}

// ForRun registers a pool run and returns its recorder.
func (j *Journal) ForRun(id uuid.UUID) *Run {
	j.enqueue(record{kind: recordRun, run: id, at: time.Now()})
	return &Run{j: j, id: id}
}

// ID returns the run identifier.
func (r *Run) ID() uuid.UUID { return r.id }

func (r *Run) RecordCreate(id uint64, cols, rows int, cwd string) {
	r.j.enqueue(record{kind: recordCreate, run: r.id, id: id, at: time.Now(), cols: cols, rows: rows, text: cwd})
}

func (r *Run) RecordTitle(id uint64, title string) {
	r.j.enqueue(record{kind: recordTitle, run: r.id, id: id, at: time.Now(), text: title})
}

func (r *Run) RecordExit(id uint64, code int) {
	r.j.enqueue(record{kind: recordExit, run: r.id, id: id, at: time.Now(), code: code})
}

func (r *Run) RecordClose(id uint64, transcript string) {
	r.j.enqueue(record{kind: recordClose, run: r.id, id: id, at: time.Now(), text: transcript})
}
