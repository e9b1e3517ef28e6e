// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for the system configuration file.
// Notes: Mirrors defaults/texelpool.json for keys missing from older files.

package config

func applySystemDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults("pool", Section{
		"history_lines":   1000,
		"input_queue":     256,
		"event_queue":     1024,
		"event_wait_ms":   50,
		"close_grace_ms":  500,
		"cursor_blink_ms": 530,
		"scroll_on_input": true,
		"max_terminals":   0,
		"log_lines":       0,
	})
	cfg.RegisterDefaults("font", Section{
		"size":        14.0,
		"min_size":    6.0,
		"max_size":    100.0,
		"line_height": 1.9375,
		"scale":       1.0,
	})
	cfg.RegisterDefaults("scheduler", Section{
		"fps": 60,
	})
	cfg.RegisterDefaults("journal", Section{
		"enabled":        false,
		"path":           "journal.db",
		"batch_size":     64,
		"flush_ms":       250,
		"keep_sessions":  200,
		"transcript_max": 1 << 20,
	})
	cfg.RegisterDefaults("shell", Section{
		"command": "",
		"args":    []interface{}{},
	})
}
