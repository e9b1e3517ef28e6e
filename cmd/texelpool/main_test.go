// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelpool/main_test.go
// Summary: Exercises journal inspection and config overrides from the command line.
// Usage: Executed during `go test` to guard against regressions.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/framegrace/texelpool/config"
	"github.com/framegrace/texelpool/journal"
	"github.com/framegrace/texelpool/pool"
)

func TestParseTranscriptRef(t *testing.T) {
	run := uuid.New()
	gotRun, gotID, err := parseTranscriptRef(run.String() + "/7")
	if err != nil || gotRun != run || gotID != 7 {
		t.Fatalf("parse = %v %d %v", gotRun, gotID, err)
	}
	for _, bad := range []string{"", "nope", run.String(), "x/1", run.String() + "/-1"} {
		if _, _, err := parseTranscriptRef(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestInspectJournal(t *testing.T) {
	cfg := journal.DefaultConfig(filepath.Join(t.TempDir(), "journal.db"))
	j, err := journal.OpenWithConfig(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	run := j.ForRun(uuid.New())
	run.RecordCreate(1, 80, 24, "/tmp")
	run.RecordTitle(1, "build")
	run.RecordExit(1, 0)
	run.RecordClose(1, "make all\nok\n")
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out bytes.Buffer
	if err := inspectJournal(cfg, 10, "", &out); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if s := out.String(); !strings.Contains(s, "build") || !strings.Contains(s, "80x24") {
		t.Fatalf("recent listing missing entry:\n%s", s)
	}

	out.Reset()
	ref := run.ID().String() + "/1"
	if err := inspectJournal(cfg, 0, ref, &out); err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if out.String() != "make all\nok\n" {
		t.Fatalf("transcript = %q", out.String())
	}
}

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOverridesSurviveReload(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	path := filepath.Join(root, "custom.json")
	writeJSON(t, path, map[string]interface{}{"font": map[string]interface{}{"size": 20}})
	if err := config.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	var overrides []config.Override
	for _, arg := range []string{"font.min_size=15", "shell.command=/bin/zsh"} {
		o, err := config.ParseOverride(arg)
		if err != nil {
			t.Fatalf("ParseOverride(%q): %v", arg, err)
		}
		overrides = append(overrides, o)
	}
	cfg := applyOverrides(overrides)
	if got := cfg.GetFloat("font", "size", 0); got != 20 {
		t.Fatalf("file value lost: size %v", got)
	}
	if got := cfg.GetString("shell", "command", ""); got != "/bin/zsh" {
		t.Fatalf("override not applied: %q", got)
	}

	p, err := pool.New(pool.DefaultOptions())
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	defer p.Close()

	writeJSON(t, path, map[string]interface{}{"font": map[string]interface{}{"size": 16}})
	if err := reloadConfig(p, path, overrides); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := p.FontSize(); got != 16 {
		t.Fatalf("pool font size after reload = %v, want 16", got)
	}
	if got := config.System().GetFloat("font", "min_size", 0); got != 15 {
		t.Fatalf("override dropped by reload: min_size %v", got)
	}

	if err := config.SaveSystem(); err != nil {
		t.Fatalf("SaveSystem: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "texelpool", "texelpool.json"))
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.Contains(string(data), "/bin/zsh") {
		t.Fatalf("saved config missing override:\n%s", data)
	}
}

func TestReloadMissingFileKeepsConfig(t *testing.T) {
	p, err := pool.New(pool.DefaultOptions())
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	defer p.Close()
	before := p.FontSize()
	if err := reloadConfig(p, filepath.Join(t.TempDir(), "gone.json"), nil); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if p.FontSize() != before {
		t.Fatalf("font size changed on failed reload")
	}
}
