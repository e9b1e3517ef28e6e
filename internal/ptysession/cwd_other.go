// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptysession/cwd_other.go
// Summary: Working directory lookup fallback.

//go:build !linux

package ptysession

func (s *Session) Cwd() (string, error) {
	return "", ErrUnsupported
}
