// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: journal/config.go
// Summary: Maps the journal config section to a Config.

package journal

import (
	"fmt"

	"github.com/framegrace/texelpool/config"
)

// FromSystem reads the journal section. enabled reports journal.enabled;
// the path is resolved relative to the config directory.
func FromSystem(cfg config.Config) (c Config, enabled bool, err error) {
	def := DefaultConfig("")
	enabled = cfg.GetBool("journal", "enabled", false)
	path, err := config.ResolvePath(cfg.GetString("journal", "path", "journal.db"))
	if err != nil {
		return Config{}, enabled, fmt.Errorf("journal: resolve path: %w", err)
	}
	c = Config{
		Path:          path,
		BatchSize:     cfg.GetInt("journal", "batch_size", def.BatchSize),
		FlushInterval: cfg.GetDurationMs("journal", "flush_ms", def.FlushInterval),
		ChannelBuffer: def.ChannelBuffer,
		KeepSessions:  cfg.GetInt("journal", "keep_sessions", def.KeepSessions),
		TranscriptMax: cfg.GetInt("journal", "transcript_max", def.TranscriptMax),
	}
	return c, enabled, nil
}
