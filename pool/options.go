// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/options.go
// Summary: Pool construction options and their config-file mapping.

package pool

import (
	"time"

	"github.com/google/uuid"

	"github.com/framegrace/texelpool/config"
)

// Options configures a Pool. Zero fields take the defaults.
type Options struct {
	HistoryLines  int
	InputQueue    int
	EventQueue    int
	EventWait     time.Duration
	CloseGrace    time.Duration
	CursorBlink   time.Duration // 0 disables the blink ticker
	ScrollOnInput bool
	MaxTerminals  int // 0 means unlimited
	LogLines      int // per-terminal output log size, 0 disables it

	Shell     string
	ShellArgs []string

	FontSize      float64
	MinFontSize   float64
	MaxFontSize   float64
	LineHeight    float64
	Scale         float64
	Metrics       MetricsFunc
	SurfaceWidth  float64
	SurfaceHeight float64
	Spawner       Spawner
	Recorder      Recorder
	RunID         uuid.UUID
	StatsObserver StatsObserver
	StatsInterval time.Duration
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		HistoryLines:  1000,
		InputQueue:    256,
		EventQueue:    1024,
		EventWait:     50 * time.Millisecond,
		CloseGrace:    500 * time.Millisecond,
		CursorBlink:   530 * time.Millisecond,
		ScrollOnInput: true,
		FontSize:      DefaultFontSize,
		MinFontSize:   MinFontSize,
		MaxFontSize:   MaxFontSize,
		LineHeight:    DefaultLineHeight,
		Scale:         1,
	}
}

// OptionsFromConfig reads the pool, font and shell sections.
func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.HistoryLines = cfg.GetInt("pool", "history_lines", opts.HistoryLines)
	opts.InputQueue = cfg.GetInt("pool", "input_queue", opts.InputQueue)
	opts.EventQueue = cfg.GetInt("pool", "event_queue", opts.EventQueue)
	opts.EventWait = cfg.GetDurationMs("pool", "event_wait_ms", opts.EventWait)
	opts.CloseGrace = cfg.GetDurationMs("pool", "close_grace_ms", opts.CloseGrace)
	opts.CursorBlink = cfg.GetDurationMs("pool", "cursor_blink_ms", opts.CursorBlink)
	opts.ScrollOnInput = cfg.GetBool("pool", "scroll_on_input", opts.ScrollOnInput)
	opts.MaxTerminals = cfg.GetInt("pool", "max_terminals", opts.MaxTerminals)
	opts.LogLines = cfg.GetInt("pool", "log_lines", opts.LogLines)

	opts.FontSize = cfg.GetFloat("font", "size", opts.FontSize)
	opts.MinFontSize = cfg.GetFloat("font", "min_size", opts.MinFontSize)
	opts.MaxFontSize = cfg.GetFloat("font", "max_size", opts.MaxFontSize)
	opts.LineHeight = cfg.GetFloat("font", "line_height", opts.LineHeight)
	opts.Scale = cfg.GetFloat("font", "scale", opts.Scale)

	opts.Shell = cfg.GetString("shell", "command", opts.Shell)
	opts.ShellArgs = cfg.GetStringSlice("shell", "args", opts.ShellArgs)
	return opts
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.HistoryLines < 0 {
		o.HistoryLines = 0
	}
	if o.LogLines < 0 {
		o.LogLines = 0
	}
	if o.InputQueue <= 0 {
		o.InputQueue = def.InputQueue
	}
	if o.EventQueue <= 0 {
		o.EventQueue = def.EventQueue
	}
	if o.CloseGrace <= 0 {
		o.CloseGrace = def.CloseGrace
	}
	if o.FontSize <= 0 {
		o.FontSize = def.FontSize
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = def.MinFontSize
	}
	if o.MaxFontSize < o.MinFontSize {
		o.MaxFontSize = def.MaxFontSize
	}
	if o.LineHeight <= 0 {
		o.LineHeight = def.LineHeight
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Spawner == nil {
		o.Spawner = PTYSpawner(o.Shell, o.ShellArgs, o.InputQueue)
	}
	if o.RunID == uuid.Nil {
		o.RunID = uuid.New()
	}
}
