// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/ptysession/session.go
// Summary: One pseudo-terminal and its child process.
// Usage: Started by the pool for each terminal; output is delivered in order
// on a dedicated reader goroutine.
// Notes: Only Close may block, bounded by the grace period.

package ptysession

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

var (
	// ErrQueueFull is returned by Write when the input queue has no room.
	ErrQueueFull = errors.New("ptysession: input queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ptysession: session closed")
	// ErrUnsupported is returned by Cwd on platforms without a lookup.
	ErrUnsupported = errors.New("ptysession: not supported on this platform")
)

const (
	defaultInputQueue = 256
	readBufferSize    = 64 * 1024
	joinTimeout       = time.Second
)

// Config describes the child to spawn.
type Config struct {
	Command     string
	Args        []string
	Dir         string
	Env         []string
	Cols, Rows  uint16
	PixelWidth  uint16
	PixelHeight uint16
	InputQueue  int
	// TermProgram is exported to the child as TERM_PROGRAM.
	TermProgram string
}

// Session owns a PTY master and the process attached to its slave side.
type Session struct {
	cmd  *exec.Cmd
	ptmx *os.File

	input      chan []byte
	stop       chan struct{}
	done       chan struct{}
	readerDone chan struct{}
	writerDone chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	exitCode  atomic.Int32
}

// DefaultShell returns $SHELL, falling back to /bin/sh.
func DefaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Start spawns cfg.Command on a new PTY. output receives every chunk read
// from the master in order; the slice is only valid for the duration of the
// call.
func Start(cfg Config, output func([]byte)) (*Session, error) {
	if cfg.Cols == 0 || cfg.Rows == 0 {
		return nil, fmt.Errorf("ptysession: invalid size %dx%d", cfg.Cols, cfg.Rows)
	}
	command := cfg.Command
	if command == "" {
		command = DefaultShell()
	}
	program := cfg.TermProgram
	if program == "" {
		program = "texelpool"
	}

	cmd := exec.Command(command, cfg.Args...)
	cmd.Dir = cfg.Dir
	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(append([]string(nil), env...),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"TERM_PROGRAM="+program,
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: cfg.Rows,
		Cols: cfg.Cols,
		X:    cfg.PixelWidth,
		Y:    cfg.PixelHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("ptysession: start %s: %w", command, err)
	}

	queue := cfg.InputQueue
	if queue <= 0 {
		queue = defaultInputQueue
	}
	s := &Session{
		cmd:        cmd,
		ptmx:       ptmx,
		input:      make(chan []byte, queue),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	s.exitCode.Store(-1)

	go s.readLoop(output)
	go s.writeLoop()
	go s.waitLoop()
	return s, nil
}

func (s *Session) readLoop(output func([]byte)) {
	defer close(s.readerDone)
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 && output != nil {
			output(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !s.closed.Load() {
				debugLog.Printf("PTY: read pid=%d: %v", s.Pid(), err)
			}
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer close(s.writerDone)
	for {
		select {
		case <-s.stop:
			return
		case data := <-s.input:
			if _, err := s.ptmx.Write(data); err != nil {
				if !s.closed.Load() {
					log.Printf("PTY: write pid=%d: %v", s.Pid(), err)
				}
				return
			}
		}
	}
}

func (s *Session) waitLoop() {
	err := s.cmd.Wait()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		code = -1
	}
	s.exitCode.Store(int32(code))
	close(s.done)
}

// Write queues data for the child. It never blocks.
func (s *Session) Write(p []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data := append([]byte(nil), p...)
	select {
	case <-s.stop:
		return ErrClosed
	case s.input <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Resize updates the PTY window size; the child receives SIGWINCH.
func (s *Session) Resize(cols, rows, pixelWidth, pixelHeight uint16) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols, X: pixelWidth, Y: pixelHeight})
}

// Done is closed when the child process has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// ExitCode returns the child's exit status, or -1 while it is running or
// when it was killed by a signal.
func (s *Session) ExitCode() int { return int(s.exitCode.Load()) }

// Pid returns the child's process id.
func (s *Session) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Close hangs up the terminal. The child's process group gets SIGHUP and,
// if it is still alive after grace, SIGKILL. Safe to call more than once.
func (s *Session) Close(grace time.Duration) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		s.closeErr = s.ptmx.Close()

		pid := s.Pid()
		switch {
		case pid > 0 && grace <= 0:
			s.signalGroup(pid, unix.SIGKILL)
		case pid > 0:
			s.signalGroup(pid, unix.SIGHUP)
			select {
			case <-s.done:
			case <-time.After(grace):
				debugLog.Printf("PTY: pid=%d ignored SIGHUP, killing", pid)
				s.signalGroup(pid, unix.SIGKILL)
			}
		}

		join := time.After(joinTimeout)
		for _, ch := range []chan struct{}{s.done, s.readerDone, s.writerDone} {
			select {
			case <-ch:
			case <-join:
				log.Printf("PTY: pid=%d did not shut down within %s", pid, joinTimeout)
				return
			}
		}
	})
	return s.closeErr
}

func (s *Session) signalGroup(pid int, sig unix.Signal) {
	select {
	case <-s.done:
		return
	default:
	}
	// The child is a session leader (pty sets Setsid), so its pid is the
	// process group id.
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		_ = s.cmd.Process.Signal(sig)
	}
}
