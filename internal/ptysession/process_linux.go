// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptysession/process_linux.go
// Summary: Process name lookup through /proc.

//go:build linux

package ptysession

import (
	"fmt"
	"os"
	"strings"
)

func processName(pid int) (string, error) {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("ptysession: process name: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
