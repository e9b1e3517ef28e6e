// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptysession/process.go
// Summary: Foreground process lookup through the PTY's process group.

package ptysession

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// foregroundPgrp returns the process group that owns the terminal.
func (s *Session) foregroundPgrp() (int, error) {
	pgrp, err := unix.IoctlGetInt(int(s.ptmx.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return 0, fmt.Errorf("ptysession: foreground group: %w", err)
	}
	if pgrp <= 0 {
		return 0, fmt.Errorf("ptysession: foreground group %d", pgrp)
	}
	return pgrp, nil
}

// ForegroundProcess returns the leader of the terminal's foreground process
// group and its command name. When the shell itself is in the foreground the
// pid equals Pid.
func (s *Session) ForegroundProcess() (int, string, error) {
	if s.closed.Load() {
		return 0, "", ErrClosed
	}
	pgrp, err := s.foregroundPgrp()
	if err != nil {
		return 0, "", err
	}
	name, err := processName(pgrp)
	if err != nil {
		return pgrp, "", err
	}
	return pgrp, name, nil
}
