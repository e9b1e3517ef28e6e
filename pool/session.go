// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/session.go
// Summary: Process-side collaborator of a terminal entry.

package pool

import (
	"time"

	"github.com/framegrace/texelpool/internal/ptysession"
)

// Session is the child process attached to a terminal.
type Session interface {
	Write(p []byte) error
	Resize(cols, rows, pixelWidth, pixelHeight uint16) error
	Close(grace time.Duration) error
	Done() <-chan struct{}
	ExitCode() int
	Cwd() (string, error)
}

// ProcessInspector is implemented by sessions that can see which process
// owns the terminal. Sessions without it report ErrUnsupported.
type ProcessInspector interface {
	// Pid is the process the session started, normally a shell.
	Pid() int
	// ForegroundProcess returns the foreground process group leader and
	// its command name.
	ForegroundProcess() (pid int, name string, err error)
}

var _ ProcessInspector = (*ptysession.Session)(nil)

// SpawnRequest describes the terminal a Spawner should start.
type SpawnRequest struct {
	ID          TerminalID
	Cols, Rows  int
	PixelWidth  uint16
	PixelHeight uint16
	Dir         string
}

// Spawner starts a session. output must be called from a single goroutine
// in arrival order and must not be called after the session is closed.
type Spawner func(req SpawnRequest, output func([]byte)) (Session, error)

// PTYSpawner starts command (the user's shell when empty) on a PTY.
func PTYSpawner(command string, args []string, inputQueue int) Spawner {
	return func(req SpawnRequest, output func([]byte)) (Session, error) {
		return ptysession.Start(ptysession.Config{
			Command:     command,
			Args:        args,
			Dir:         req.Dir,
			Cols:        clampU16(req.Cols),
			Rows:        clampU16(req.Rows),
			PixelWidth:  req.PixelWidth,
			PixelHeight: req.PixelHeight,
			InputQueue:  inputQueue,
		}, output)
	}
}

func clampU16(n int) uint16 {
	if n < 0 {
		return 0
	}
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}

func clampPixels(f float64) uint16 {
	if f <= 0 {
		return 0
	}
	if f > 0xFFFF {
		return 0xFFFF
	}
	return uint16(f)
}
