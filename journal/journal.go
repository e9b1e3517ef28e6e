// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: journal/journal.go
// Summary: SQLite session journal for terminal lifecycles.
//
// Records every terminal a pool run creates, its title, exit status and a
// zstd-compressed transcript of its scrollback on close. Writes are queued
// and committed in batches by a background goroutine so callers never wait
// on disk.

package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound reports a missing terminal record or transcript.
	ErrNotFound = errors.New("journal: not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("journal: closed")
)

// Config holds journal tuning.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// BatchSize is the number of records committed per transaction.
	// Default: 64
	BatchSize int

	// FlushInterval bounds how long a partial batch waits.
	// Default: 250ms
	FlushInterval time.Duration

	// ChannelBuffer is the size of the record queue.
	// Default: 1024
	ChannelBuffer int

	// KeepSessions caps the number of terminal records kept; 0 keeps all.
	KeepSessions int

	// TranscriptMax caps the uncompressed transcript size; the tail is kept.
	TranscriptMax int
}

// DefaultConfig returns the defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		BatchSize:     64,
		FlushInterval: 250 * time.Millisecond,
		ChannelBuffer: 1024,
		KeepSessions:  200,
		TranscriptMax: 1 << 20,
	}
}

// Entry is one terminal as recorded.
type Entry struct {
	RunID         uuid.UUID
	TerminalID    uint64
	Cols, Rows    int
	Cwd           string
	Title         string
	Created       time.Time
	Exited        bool
	ExitCode      int
	Closed        time.Time
	TranscriptLen int
}

type recordKind int

const (
	recordRun recordKind = iota
	recordCreate
	recordTitle
	recordExit
	recordClose
)

type record struct {
	kind       recordKind
	run        uuid.UUID
	id         uint64
	at         time.Time
	cols, rows int
	text       string
	code       int
}

// Journal is safe for concurrent use.
type Journal struct {
	config Config
	db     *sql.DB

	enc *zstd.Encoder
	dec *zstd.Decoder

	records chan record
	stopCh  chan struct{}
	doneCh  chan struct{}
	flushCh chan chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
	dropped   atomic.Uint64

	mu sync.RWMutex
}

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS terminals (
    run_id TEXT NOT NULL,
    terminal_id INTEGER NOT NULL,
    cols INTEGER NOT NULL,
    rows INTEGER NOT NULL,
    cwd TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL DEFAULT '',
    created INTEGER NOT NULL,
    exited INTEGER,
    exit_code INTEGER,
    closed INTEGER,
    transcript BLOB,
    transcript_len INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, terminal_id)
);

CREATE INDEX IF NOT EXISTS idx_terminals_created ON terminals(created);
`

// Open opens or creates a journal at path with default settings.
func Open(path string) (*Journal, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens or creates a journal.
func OpenWithConfig(config Config) (*Journal, error) {
	def := DefaultConfig(config.Path)
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = def.ChannelBuffer
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}

	dsn := config.Path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=temp_store(MEMORY)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: connect: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("journal: zstd decoder: %w", err)
	}

	j := &Journal{
		config:  config,
		db:      db,
		enc:     enc,
		dec:     dec,
		records: make(chan record, config.ChannelBuffer),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		flushCh: make(chan chan struct{}),
	}
	j.prune()
	go j.writer()
	debugLog.Printf("Journal: opened %s", config.Path)
	return j, nil
}

// migrate creates the schema. Journal data is disposable, so an unknown
// version is dropped and recreated.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("journal: create schema: %w", err)
	}
	var current int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("journal: read schema version: %w", err)
	}
	if current == schemaVersion {
		return nil
	}
	if current != 0 {
		log.Printf("Journal: schema version %d unsupported, recreating", current)
		for _, stmt := range []string{"DROP TABLE IF EXISTS terminals", "DROP TABLE IF EXISTS runs"} {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("journal: migration %q: %w", stmt, err)
			}
		}
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("journal: recreate schema: %w", err)
		}
	}
	if _, err := db.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("journal: reset schema version: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("journal: write schema version: %w", err)
	}
	return nil
}

// enqueue never blocks; records are dropped when the queue is full.
func (j *Journal) enqueue(r record) {
	if j.closed.Load() {
		return
	}
	select {
	case j.records <- r:
	default:
		n := j.dropped.Add(1)
		log.Printf("Journal: queue full, dropped record (total %d)", n)
	}
}

// Dropped returns the number of records lost to a full queue or a failed
// write.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

func (j *Journal) writer() {
	defer close(j.doneCh)

	batch := make([]record, 0, j.config.BatchSize)
	timer := time.NewTimer(j.config.FlushInterval)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		j.flushBatch(batch)
		batch = batch[:0]
	}
	drain := func() {
		for {
			select {
			case r := <-j.records:
				batch = append(batch, r)
			default:
				return
			}
		}
	}

	for {
		select {
		case r := <-j.records:
			batch = append(batch, r)
			if len(batch) >= j.config.BatchSize {
				flush()
				timer.Reset(j.config.FlushInterval)
			}
		case <-timer.C:
			flush()
			timer.Reset(j.config.FlushInterval)
		case done := <-j.flushCh:
			drain()
			flush()
			close(done)
		case <-j.stopCh:
			drain()
			flush()
			return
		}
	}
}

// flushBatch commits a batch in one transaction. Each record runs under
// its own savepoint so a failing record is skipped without losing the rest.
func (j *Journal) flushBatch(batch []record) {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.db.Begin()
	if err != nil {
		n := j.dropped.Add(uint64(len(batch)))
		log.Printf("Journal: begin transaction: %v (dropped total %d)", err, n)
		return
	}
	for _, r := range batch {
		if _, err := tx.Exec("SAVEPOINT record"); err != nil {
			log.Printf("Journal: savepoint: %v", err)
			tx.Rollback()
			j.dropped.Add(uint64(len(batch)))
			return
		}
		if err := j.apply(tx, r); err != nil {
			n := j.dropped.Add(1)
			log.Printf("Journal: write terminal %d: %v (dropped total %d)", r.id, err, n)
			if _, err := tx.Exec("ROLLBACK TO record"); err != nil {
				log.Printf("Journal: rollback record: %v", err)
			}
		}
		if _, err := tx.Exec("RELEASE record"); err != nil {
			log.Printf("Journal: release savepoint: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		n := j.dropped.Add(uint64(len(batch)))
		log.Printf("Journal: commit batch: %v (dropped total %d)", err, n)
	}
}

func (j *Journal) apply(tx *sql.Tx, r record) error {
	run := r.run.String()
	at := r.at.UnixNano()
	var err error
	switch r.kind {
	case recordRun:
		_, err = tx.Exec("INSERT OR IGNORE INTO runs (id, started) VALUES (?, ?)", run, at)
	case recordCreate:
		_, err = tx.Exec(`INSERT OR REPLACE INTO terminals (run_id, terminal_id, cols, rows, cwd, created)
			VALUES (?, ?, ?, ?, ?, ?)`, run, int64(r.id), r.cols, r.rows, r.text, at)
	case recordTitle:
		_, err = tx.Exec("UPDATE terminals SET title = ? WHERE run_id = ? AND terminal_id = ?", r.text, run, int64(r.id))
	case recordExit:
		_, err = tx.Exec("UPDATE terminals SET exited = ?, exit_code = ? WHERE run_id = ? AND terminal_id = ?",
			at, r.code, run, int64(r.id))
	case recordClose:
		text := tail(r.text, j.config.TranscriptMax)
		blob := j.enc.EncodeAll([]byte(text), nil)
		_, err = tx.Exec(`UPDATE terminals SET closed = ?, transcript = ?, transcript_len = ?
			WHERE run_id = ? AND terminal_id = ?`, at, blob, len(text), run, int64(r.id))
	default:
		err = fmt.Errorf("unknown record kind %d", r.kind)
	}
	return err
}

// tail keeps at most max bytes from the end of s, starting at a line.
func tail(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	s = s[len(s)-max:]
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[i+1:]
		}
	}
	return s
}

// prune drops the oldest terminal records beyond KeepSessions.
func (j *Journal) prune() {
	if j.config.KeepSessions <= 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	res, err := j.db.Exec(`DELETE FROM terminals WHERE rowid NOT IN (
		SELECT rowid FROM terminals ORDER BY created DESC LIMIT ?)`, j.config.KeepSessions)
	if err != nil {
		log.Printf("Journal: prune: %v", err)
		return
	}
	if _, err := j.db.Exec("DELETE FROM runs WHERE id NOT IN (SELECT DISTINCT run_id FROM terminals)"); err != nil {
		log.Printf("Journal: prune runs: %v", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		debugLog.Printf("Journal: pruned %d terminal records", n)
	}
}

// Flush blocks until every queued record is committed.
func (j *Journal) Flush() error {
	if j.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	select {
	case j.flushCh <- done:
	case <-j.doneCh:
		return ErrClosed
	}
	<-done
	return nil
}

// Close commits pending records and closes the database.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		j.closed.Store(true)
		close(j.stopCh)
		<-j.doneCh
		j.prune()
		j.enc.Close()
		j.dec.Close()
		err = j.db.Close()
	})
	return err
}

// Recent returns up to limit terminal records, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if j.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.Query(`
		SELECT run_id, terminal_id, cols, rows, cwd, title, created, exited, exit_code, closed, transcript_len
		FROM terminals
		ORDER BY created DESC, terminal_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			run      string
			id       int64
			created  int64
			exited   sql.NullInt64
			exitCode sql.NullInt64
			closed   sql.NullInt64
		)
		if err := rows.Scan(&run, &id, &e.Cols, &e.Rows, &e.Cwd, &e.Title, &created,
			&exited, &exitCode, &closed, &e.TranscriptLen); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.RunID, _ = uuid.Parse(run)
		e.TerminalID = uint64(id)
		e.Created = time.Unix(0, created)
		e.Exited = exited.Valid
		e.ExitCode = -1
		if exitCode.Valid {
			e.ExitCode = int(exitCode.Int64)
		}
		if closed.Valid {
			e.Closed = time.Unix(0, closed.Int64)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Transcript returns the decompressed scrollback stored when the terminal
// closed.
func (j *Journal) Transcript(runID uuid.UUID, terminalID uint64) (string, error) {
	if j.closed.Load() {
		return "", ErrClosed
	}
	j.mu.RLock()
	var blob []byte
	err := j.db.QueryRow("SELECT transcript FROM terminals WHERE run_id = ? AND terminal_id = ?",
		runID.String(), int64(terminalID)).Scan(&blob)
	j.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) || (err == nil && blob == nil) {
		return "", fmt.Errorf("journal: transcript %s/%d: %w", runID, terminalID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("journal: transcript: %w", err)
	}
	text, err := j.dec.DecodeAll(blob, nil)
	if err != nil {
		return "", fmt.Errorf("journal: decode transcript: %w", err)
	}
	return string(text), nil
}
