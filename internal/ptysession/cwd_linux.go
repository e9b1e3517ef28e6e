// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptysession/cwd_linux.go
// Summary: Working directory lookup through /proc.

//go:build linux

package ptysession

import (
	"fmt"
	"os"
)

// Cwd returns the working directory of the terminal's foreground process
// group, falling back to the child itself.
func (s *Session) Cwd() (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	if pgrp, err := s.foregroundPgrp(); err == nil {
		if dir, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pgrp)); err == nil {
			return dir, nil
		}
	}
	dir, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", s.Pid()))
	if err != nil {
		return "", fmt.Errorf("ptysession: cwd: %w", err)
	}
	return dir, nil
}
