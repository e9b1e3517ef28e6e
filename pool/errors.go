// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/errors.go
// Summary: Error kinds returned across the pool API and their legacy codes.

package pool

import "errors"

var (
	// ErrNotFound reports an unknown or already closed terminal id.
	ErrNotFound = errors.New("pool: terminal not found")
	// ErrInvalidArgument reports a zero size, bad pattern or similar.
	ErrInvalidArgument = errors.New("pool: invalid argument")
	// ErrResourceExhausted reports a spawn failure or a full queue.
	ErrResourceExhausted = errors.New("pool: resource exhausted")
	// ErrInternal reports a recovered fault inside the engine.
	ErrInternal = errors.New("pool: internal error")
	// ErrClosed is returned once the pool itself has been closed.
	ErrClosed = errors.New("pool: closed")
	// ErrUnsupported reports a query the terminal's session cannot answer.
	ErrUnsupported = errors.New("pool: not supported by session")
)

// Legacy sentinel values used by callers that cannot carry a Go error.
const (
	StatusInvalidArgument = -1
	StatusNotFound        = -2
)

// IDOrInvalid collapses a create result to the legacy form: the id, or -1.
func IDOrInvalid(id TerminalID, err error) int64 {
	if err != nil || id == InvalidID {
		return -1
	}
	return int64(id)
}

// SearchStatusCode maps a search error to the legacy status: -2 for an
// unknown terminal, -1 for anything else.
func SearchStatusCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusInvalidArgument
	}
}
