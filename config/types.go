// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/types.go
// Summary: Typed reads, writes and command-line overrides of config values.
// Notes: Values come from JSON, so numbers arrive as float64 unless a caller
// stored something else; every getter accepts the common encodings.

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Section returns the named section or nil if missing. The empty name
// addresses the top level.
func (c Config) Section(sectionName string) Section {
	if c == nil {
		return nil
	}
	if sectionName == "" {
		return Section(c)
	}
	switch v := c[sectionName].(type) {
	case Section:
		return v
	case map[string]interface{}:
		return Section(v)
	}
	return nil
}

// Lookup returns the raw value stored under section/key.
func (c Config) Lookup(sectionName, key string) (interface{}, bool) {
	section := c.Section(sectionName)
	if section == nil {
		return nil, false
	}
	v, ok := section[key]
	return v, ok
}

// Set stores value under section/key, creating the section when needed.
func (c Config) Set(sectionName, key string, value interface{}) {
	if c == nil {
		return
	}
	section := c.Section(sectionName)
	if section == nil {
		section = make(Section)
		c[sectionName] = section
	}
	section[key] = value
}

// RegisterDefaults fills keys a section lacks without touching the rest.
func (c Config) RegisterDefaults(sectionName string, defaults Section) {
	if c == nil {
		return
	}
	for key, value := range defaults {
		if _, ok := c.Lookup(sectionName, key); !ok {
			c.Set(sectionName, key, value)
		}
	}
}

func (c Config) GetString(sectionName, key, defaultValue string) string {
	if v, ok := c.Lookup(sectionName, key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultValue
}

func (c Config) GetFloat(sectionName, key string, defaultValue float64) float64 {
	if v, ok := c.Lookup(sectionName, key); ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return defaultValue
}

func (c Config) GetInt(sectionName, key string, defaultValue int) int {
	v, ok := c.Lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	switch n := v.(type) {
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return defaultValue
}

func (c Config) GetBool(sectionName, key string, defaultValue bool) bool {
	v, ok := c.Lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
		return defaultValue
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return defaultValue
}

// GetDurationMs reads an integer millisecond value as a duration. Negative
// values fall back to the default.
func (c Config) GetDurationMs(sectionName, key string, defaultValue time.Duration) time.Duration {
	ms := c.GetInt(sectionName, key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}

// GetStringSlice reads a list of strings. Non-string entries are skipped.
func (c Config) GetStringSlice(sectionName, key string, defaultValue []string) []string {
	v, _ := c.Lookup(sectionName, key)
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return defaultValue
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Override is one section.key=value assignment from the command line.
type Override struct {
	Section string
	Key     string
	Value   interface{}
}

// ParseOverride parses "section.key=value". The value is decoded as JSON
// when it parses (numbers, booleans, lists) and kept as a string otherwise.
func ParseOverride(spec string) (Override, error) {
	path, raw, ok := strings.Cut(spec, "=")
	if !ok {
		return Override{}, fmt.Errorf("config override %q: want section.key=value", spec)
	}
	section, key, ok := strings.Cut(strings.TrimSpace(path), ".")
	if !ok || section == "" || key == "" {
		return Override{}, fmt.Errorf("config override %q: want section.key=value", spec)
	}
	var value interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return Override{Section: section, Key: key, Value: value}, nil
}

// Apply stores every override into c.
func (c Config) Apply(overrides []Override) {
	for _, o := range overrides {
		c.Set(o.Section, o.Key, o.Value)
	}
}
