// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/recorder.go
// Summary: Hook for persisting terminal lifecycle to a journal.

package pool

// Recorder receives lifecycle notifications. Implementations must not block;
// they are called from PTY goroutines.
type Recorder interface {
	RecordCreate(id uint64, cols, rows int, cwd string)
	RecordTitle(id uint64, title string)
	RecordExit(id uint64, code int)
	RecordClose(id uint64, transcript string)
}
