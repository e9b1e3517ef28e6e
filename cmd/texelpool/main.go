// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelpool/main.go
// Summary: Runs a pooled terminal in the local tcell host.
// Usage: `texelpool [-v] [-config file] [-set section.key=value] [-cwd dir]`;
// `-recent N` and `-transcript run/id` inspect the session journal,
// `-save-config` writes the effective config back. SIGHUP reloads it.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/framegrace/texelpool/config"
	"github.com/framegrace/texelpool/internal/devshell"
	"github.com/framegrace/texelpool/internal/ptysession"
	"github.com/framegrace/texelpool/journal"
	"github.com/framegrace/texelpool/parser"
	"github.com/framegrace/texelpool/pool"
	"github.com/framegrace/texelpool/scheduler"
)

const statsInterval = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run() (int, error) {
	fs := flag.NewFlagSet("texelpool", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Enable verbose logging")
	configPath := fs.String("config", "", "Load configuration from this file instead of the user config")
	logPath := fs.String("log", "", "Log file (default: <tmpdir>/texelpool.log)")
	cwd := fs.String("cwd", "", "Working directory for the shell")
	recent := fs.Int("recent", 0, "List the N most recent journaled terminals and exit")
	transcript := fs.String("transcript", "", "Print the transcript for <run-id>/<terminal-id> and exit")
	saveConfig := fs.Bool("save-config", false, "Write the effective config to the user config file and exit")
	var overrides []config.Override
	fs.Func("set", "Override a config value as section.key=value (repeatable)", func(v string) error {
		o, err := config.ParseOverride(v)
		if err != nil {
			return err
		}
		overrides = append(overrides, o)
		return nil
	})

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0, nil
		}
		return 0, err
	}

	if *configPath != "" {
		if err := config.LoadFile(*configPath); err != nil {
			return 0, fmt.Errorf("load config %s: %w", *configPath, err)
		}
	}
	if err := config.Err(); err != nil {
		log.Printf("Config: using defaults: %v", err)
	}
	cfg := applyOverrides(overrides)
	if *saveConfig {
		return 0, config.SaveSystem()
	}

	jcfg, journalEnabled, err := journal.FromSystem(cfg)
	if err != nil {
		return 0, err
	}
	if *recent > 0 || *transcript != "" {
		return 0, inspectJournal(jcfg, *recent, *transcript, os.Stdout)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return 0, errors.New("stdin is not a terminal")
	}

	logFile, err := redirectLogs(*logPath)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()
	setVerbose(*verbose)

	opts := pool.OptionsFromConfig(cfg)
	opts.Metrics = devshell.CellMetrics
	opts.RunID = uuid.New()
	if *verbose {
		opts.StatsObserver = pool.NewStatsLogger(nil)
		opts.StatsInterval = statsInterval
	}

	var j *journal.Journal
	if journalEnabled {
		j, err = journal.OpenWithConfig(jcfg)
		if err != nil {
			log.Printf("Journal: disabled: %v", err)
		} else {
			opts.Recorder = j.ForRun(opts.RunID)
		}
	}

	p, err := pool.New(opts)
	if err != nil {
		if j != nil {
			j.Close()
		}
		return 0, err
	}
	log.Printf("Pool: run %s started", opts.RunID)

	stopReload := watchReload(p, *configPath, overrides)
	code, runErr := devshell.Run(p, scheduler.New(scheduler.WithConfig(cfg)), *cwd)
	stopReload()
	if err := p.Close(); err != nil {
		log.Printf("Pool: close: %v", err)
	}
	if j != nil {
		if err := j.Close(); err != nil {
			log.Printf("Journal: close: %v", err)
		}
	}
	return code, runErr
}

// applyOverrides layers command-line values over the system config and
// returns the result.
func applyOverrides(overrides []config.Override) config.Config {
	if len(overrides) == 0 {
		return config.System()
	}
	cfg := config.Clone(config.System())
	cfg.Apply(overrides)
	config.SetSystem(cfg)
	return config.System()
}

// reloadConfig rereads the config source and reapplies overrides.
func reloadConfig(p *pool.Pool, configPath string, overrides []config.Override) error {
	var err error
	if configPath != "" {
		err = config.LoadFile(configPath)
	} else {
		err = config.Reload()
	}
	if err != nil {
		return err
	}
	p.ApplyConfig(applyOverrides(overrides))
	return nil
}

// watchReload reloads the config on SIGHUP until the returned func is called.
func watchReload(p *pool.Pool, configPath string, overrides []config.Override) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				if err := reloadConfig(p, configPath, overrides); err != nil {
					log.Printf("Config: reload failed: %v", err)
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// redirectLogs keeps log output off the screen tcell is drawing on.
func redirectLogs(path string) (*os.File, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "texelpool.log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	// Debug loggers write to os.Stderr when enabled.
	os.Stderr = f
	return f, nil
}

func setVerbose(on bool) {
	parser.SetVerboseLogging(on)
	ptysession.SetVerboseLogging(on)
	pool.SetVerboseLogging(on)
	scheduler.SetVerboseLogging(on)
	journal.SetVerboseLogging(on)
	devshell.SetVerboseLogging(on)
}

func inspectJournal(cfg journal.Config, recent int, transcript string, out io.Writer) error {
	j, err := journal.OpenWithConfig(cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	if transcript != "" {
		runID, id, err := parseTranscriptRef(transcript)
		if err != nil {
			return err
		}
		text, err := j.Transcript(runID, id)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	}

	entries, err := j.Recent(recent)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN/ID\tCREATED\tSIZE\tEXIT\tTRANSCRIPT\tTITLE")
	for _, e := range entries {
		exit := "-"
		if e.Exited {
			exit = strconv.Itoa(e.ExitCode)
		}
		fmt.Fprintf(tw, "%s/%d\t%s\t%dx%d\t%s\t%s\t%s\n",
			e.RunID, e.TerminalID, humanize.Time(e.Created), e.Cols, e.Rows,
			exit, humanize.Bytes(uint64(e.TranscriptLen)), e.Title)
	}
	return tw.Flush()
}

func parseTranscriptRef(ref string) (uuid.UUID, uint64, error) {
	runPart, idPart, ok := strings.Cut(ref, "/")
	if !ok {
		return uuid.Nil, 0, fmt.Errorf("transcript %q: want <run-id>/<terminal-id>", ref)
	}
	runID, err := uuid.Parse(runPart)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("transcript %q: %w", ref, err)
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("transcript %q: %w", ref, err)
	}
	return runID, id, nil
}
