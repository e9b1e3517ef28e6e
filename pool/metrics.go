// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/metrics.go
// Summary: Periodic pool statistics for diagnostics.
// Usage: Set Options.StatsObserver and Options.StatsInterval, or call Stats.

package pool

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// Stats is a point-in-time summary of the pool.
type Stats struct {
	RunID          uuid.UUID
	Terminals      int
	Background     int
	BytesIn        uint64
	EventsPushed   uint64
	EventsDropped  uint64
	RenderRequests uint64
	Frames         uint64
}

// StatsObserver receives Stats every StatsInterval.
type StatsObserver interface {
	ObserveStats(stats Stats)
}

// StatsLogger logs pool stats.
type StatsLogger struct {
	logger *log.Logger
}

// NewStatsLogger returns an observer that logs stats to l, or the default
// logger when l is nil.
func NewStatsLogger(l *log.Logger) *StatsLogger {
	if l == nil {
		l = log.Default()
	}
	return &StatsLogger{logger: l}
}

func (s *StatsLogger) ObserveStats(stats Stats) {
	if s == nil || s.logger == nil {
		return
	}
	id := stats.RunID
	s.logger.Printf("pool run=%x terminals=%d background=%d bytes_in=%d events=%d dropped=%d renders=%d frames=%d",
		id[:4], stats.Terminals, stats.Background, stats.BytesIn, stats.EventsPushed,
		stats.EventsDropped, stats.RenderRequests, stats.Frames)
}

// Stats collects the current statistics.
func (p *Pool) Stats() Stats {
	stats := Stats{
		RunID:          p.opts.RunID,
		EventsPushed:   p.events.Pushed(),
		EventsDropped:  p.events.Dropped(),
		RenderRequests: p.renderRequests.Load(),
		Frames:         p.framesBuilt.Load(),
	}
	for _, e := range p.entries() {
		e.mu.Lock()
		if e.live() {
			stats.Terminals++
			if e.mode == ModeBackground {
				stats.Background++
			}
			stats.BytesIn += e.bytesIn
		}
		e.mu.Unlock()
	}
	return stats
}

func (p *Pool) statsLoop(obs StatsObserver, interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			obs.ObserveStats(p.Stats())
		}
	}
}

var _ StatsObserver = (*StatsLogger)(nil)
