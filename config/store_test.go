// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"
)

func resetStore() {
	once = sync.Once{}
	system = nil
	loadErr = nil
}

func TestSystemDefaultsWritten(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetStore()

	cfg := System()
	if got := cfg.GetInt("pool", "history_lines", 0); got != 1000 {
		t.Fatalf("expected history_lines 1000, got %d", got)
	}

	path, err := systemConfigPath()
	if err != nil {
		t.Fatalf("systemConfigPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read system config: %v", err)
	}

	var disk Config
	if err := json.Unmarshal(data, &disk); err != nil {
		t.Fatalf("unmarshal system config: %v", err)
	}
	for _, section := range []string{"pool", "font", "scheduler", "journal", "shell"} {
		if disk.Section(section) == nil {
			t.Fatalf("expected %s section to be present", section)
		}
	}
}

func TestSaveSystemWritesUpdates(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetStore()

	SetSystem(Config{
		"pool": map[string]interface{}{"history_lines": 5000},
	})
	if err := SaveSystem(); err != nil {
		t.Fatalf("SaveSystem: %v", err)
	}

	path, err := systemConfigPath()
	if err != nil {
		t.Fatalf("systemConfigPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read system config: %v", err)
	}
	var disk Config
	if err := json.Unmarshal(data, &disk); err != nil {
		t.Fatalf("unmarshal system config: %v", err)
	}
	if got := disk.GetInt("pool", "history_lines", 0); got != 5000 {
		t.Fatalf("expected history_lines 5000, got %d", got)
	}
	if got := disk.GetInt("scheduler", "fps", 0); got != 60 {
		t.Fatalf("expected defaults to be filled in, fps=%d", got)
	}
}

func TestExistingFileKeepsUserValues(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	resetStore()

	path := filepath.Join(root, "texelpool", systemConfigName)
	if err := writeConfig(path, Config{
		"font": map[string]interface{}{"size": 18},
	}); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := System()
	if got := cfg.GetFloat("font", "size", 0); got != 18 {
		t.Fatalf("expected font size 18, got %v", got)
	}
	if got := cfg.GetFloat("font", "line_height", 0); got != 1.9375 {
		t.Fatalf("expected default line_height, got %v", got)
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	resetStore()
	_ = System()

	path := filepath.Join(root, "texelpool", systemConfigName)
	if err := writeConfig(path, Config{"scheduler": map[string]interface{}{"fps": 30}}); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := System().GetInt("scheduler", "fps", 0); got != 30 {
		t.Fatalf("expected fps 30 after reload, got %d", got)
	}
}

func TestTypedGetters(t *testing.T) {
	cfg := Config{
		"s": map[string]interface{}{
			"ms":    250.0,
			"args":  []interface{}{"-l", 3, "-i"},
			"flag":  "true",
			"count": json.Number("7"),
		},
	}
	if got := cfg.GetDurationMs("s", "ms", 0); got != 250*time.Millisecond {
		t.Fatalf("GetDurationMs = %v", got)
	}
	if got := cfg.GetDurationMs("s", "missing", time.Second); got != time.Second {
		t.Fatalf("GetDurationMs default = %v", got)
	}
	args := cfg.GetStringSlice("s", "args", nil)
	if len(args) != 2 || args[0] != "-l" || args[1] != "-i" {
		t.Fatalf("GetStringSlice = %v", args)
	}
	if !cfg.GetBool("s", "flag", false) {
		t.Fatal("GetBool from string failed")
	}
	if got := cfg.GetInt("s", "count", 0); got != 7 {
		t.Fatalf("GetInt from json.Number = %d", got)
	}
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", root)
	got, err := ResolvePath("journal.db")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "texelpool", "journal.db"); got != want {
		t.Fatalf("ResolvePath = %q, want %q", got, want)
	}
	if got, _ := ResolvePath("/abs/x.db"); got != "/abs/x.db" {
		t.Fatalf("absolute path changed: %q", got)
	}
}

func TestParseOverride(t *testing.T) {
	cases := []struct {
		in      string
		section string
		key     string
		want    interface{}
	}{
		{"font.size=18", "font", "size", 18.0},
		{"pool.scroll_on_input=false", "pool", "scroll_on_input", false},
		{"shell.command=/bin/zsh", "shell", "command", "/bin/zsh"},
		{"shell.args=[\"-l\"]", "shell", "args", []interface{}{"-l"}},
		{"journal.path=a=b.db", "journal", "path", "a=b.db"},
	}
	for _, tc := range cases {
		o, err := ParseOverride(tc.in)
		if err != nil {
			t.Fatalf("ParseOverride(%q): %v", tc.in, err)
		}
		if o.Section != tc.section || o.Key != tc.key || !reflect.DeepEqual(o.Value, tc.want) {
			t.Fatalf("ParseOverride(%q) = %+v", tc.in, o)
		}
	}
	for _, bad := range []string{"", "font", "font.size", ".size=1", "font.=1"} {
		if _, err := ParseOverride(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSetCreatesSections(t *testing.T) {
	cfg := Config{"font": map[string]interface{}{"size": 14.0}}
	cfg.Apply([]Override{
		{Section: "font", Key: "size", Value: 20.0},
		{Section: "pool", Key: "max_terminals", Value: 4.0},
	})
	if got := cfg.GetFloat("font", "size", 0); got != 20 {
		t.Fatalf("font.size = %v", got)
	}
	if got := cfg.GetInt("pool", "max_terminals", 0); got != 4 {
		t.Fatalf("pool.max_terminals = %d", got)
	}
	cfg.RegisterDefaults("pool", Section{"max_terminals": 9.0, "history_lines": 100.0})
	if got := cfg.GetInt("pool", "max_terminals", 0); got != 4 {
		t.Fatalf("defaults overwrote a user value: %d", got)
	}
	if got := cfg.GetInt("pool", "history_lines", 0); got != 100 {
		t.Fatalf("defaults not registered: %d", got)
	}
	if _, ok := cfg.Lookup("missing", "x"); ok {
		t.Fatal("lookup in a missing section succeeded")
	}
}
