// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptysession/process_other.go
// Summary: Process name lookup through ps(1).

//go:build !linux

package ptysession

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

func processName(pid int) (string, error) {
	out, err := exec.Command("ps", "-o", "comm=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return "", fmt.Errorf("ptysession: process name: %w", err)
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", ErrUnsupported
	}
	return filepath.Base(name), nil
}
