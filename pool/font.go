// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: pool/font.go
// Summary: Font size state and the cell metrics derived from it.

package pool

import (
	"log"
	"math"

	"github.com/framegrace/texelpool/config"
)

const (
	DefaultFontSize   = 14.0
	MinFontSize       = 6.0
	MaxFontSize       = 100.0
	DefaultLineHeight = 1.9375
)

// FontMetrics are in logical points.
type FontMetrics struct {
	Size       float64
	CellWidth  float64
	CellHeight float64
	LineHeight float64
}

// MetricsFunc measures the font at a given size. Hosts with a real text
// shaper supply one; otherwise FallbackMetrics is used.
type MetricsFunc func(size float64) FontMetrics

// FontSizeOp selects a ChangeFontSize operation.
type FontSizeOp int

const (
	FontSizeReset FontSizeOp = iota
	FontSizeDecrease
	FontSizeIncrease
)

// FallbackMetrics approximates a monospace face: cells are 0.6em wide and
// 1.2em tall.
func FallbackMetrics(size, lineHeight float64) FontMetrics {
	cellHeight := size * 1.2
	return FontMetrics{
		Size:       size,
		CellWidth:  size * 0.6,
		CellHeight: cellHeight,
		LineHeight: cellHeight * lineHeight,
	}
}

// FontMetrics returns the metrics for the current font size.
func (p *Pool) FontMetrics() FontMetrics {
	p.fontMu.RLock()
	size := p.fontSize
	p.fontMu.RUnlock()
	return p.metricsFor(size)
}

func (p *Pool) metricsFor(size float64) FontMetrics {
	if p.opts.Metrics != nil {
		m := p.opts.Metrics(size)
		if m.CellWidth > 0 && m.LineHeight > 0 {
			return m
		}
	}
	return FallbackMetrics(size, p.opts.LineHeight)
}

// FontSize returns the current font size in points.
func (p *Pool) FontSize() float64 {
	p.fontMu.RLock()
	defer p.fontMu.RUnlock()
	return p.fontSize
}

// ChangeFontSize applies op and returns the new size. Terminals pick up the
// new grid size on their next RenderTerminal.
func (p *Pool) ChangeFontSize(op FontSizeOp) (float64, error) {
	p.fontMu.Lock()
	switch op {
	case FontSizeReset:
		p.fontSize = p.opts.FontSize
	case FontSizeDecrease:
		p.fontSize--
		if p.fontSize < p.opts.MinFontSize {
			p.fontSize = p.opts.MinFontSize
		}
	case FontSizeIncrease:
		p.fontSize++
		if p.fontSize > p.opts.MaxFontSize {
			p.fontSize = p.opts.MaxFontSize
		}
	default:
		p.fontMu.Unlock()
		return 0, ErrInvalidArgument
	}
	size := p.fontSize
	p.fontMu.Unlock()

	debugLog.Printf("Pool: font size now %.1f", size)
	p.invalidateAll()
	return size, nil
}

// ApplyConfig takes the font section of a reloaded config. The default,
// minimum and maximum sizes are replaced and the current size is clamped to
// the new range; an unchanged size leaves terminals alone.
func (p *Pool) ApplyConfig(cfg config.Config) float64 {
	p.fontMu.Lock()
	next := p.opts
	next.FontSize = cfg.GetFloat("font", "size", next.FontSize)
	next.MinFontSize = cfg.GetFloat("font", "min_size", next.MinFontSize)
	next.MaxFontSize = cfg.GetFloat("font", "max_size", next.MaxFontSize)
	if next.MinFontSize <= 0 {
		next.MinFontSize = MinFontSize
	}
	if next.MaxFontSize < next.MinFontSize {
		next.MaxFontSize = next.MinFontSize
	}
	if next.FontSize < next.MinFontSize || next.FontSize > next.MaxFontSize {
		next.FontSize = math.Min(math.Max(next.FontSize, next.MinFontSize), next.MaxFontSize)
	}
	resetToDefault := p.fontSize == p.opts.FontSize
	p.opts.FontSize = next.FontSize
	p.opts.MinFontSize = next.MinFontSize
	p.opts.MaxFontSize = next.MaxFontSize

	prev := p.fontSize
	if resetToDefault {
		p.fontSize = next.FontSize
	}
	p.fontSize = math.Min(math.Max(p.fontSize, next.MinFontSize), next.MaxFontSize)
	size := p.fontSize
	p.fontMu.Unlock()

	log.Printf("Pool: config applied, font %.1f (range %.1f-%.1f)", size, next.MinFontSize, next.MaxFontSize)
	if size != prev {
		p.invalidateAll()
	}
	return size
}
