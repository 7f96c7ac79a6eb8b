// Package journal keeps a durable per-run record in sqlite so an operator can
// reconstruct what the watchdog did across invocations: which mods changed,
// which state a run ended in, and why it aborted.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: migration: %w", err)
		}
	}
	return &Journal{db: db}, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		outcome TEXT NOT NULL,
		changed_mods TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
}

// Run is one journal row. ChangedMods is the ordered id list of the run's
// change set.
type Run struct {
	RunID       string
	Mode        string // check, test, refresh, message
	Outcome     string // no_change, restarted, dry_run, bootstrap, aborted, sent, refreshed
	ChangedMods []string
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Record inserts one run row. Safe on a nil receiver: the journal is optional
// and must never block a restart.
func (j *Journal) Record(run Run) error {
	if j == nil {
		return nil
	}
	errText := ""
	if run.Err != nil {
		errText = run.Err.Error()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	_, err := j.db.Exec(
		`INSERT INTO runs (run_id, mode, outcome, changed_mods, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Mode, run.Outcome, strings.Join(run.ChangedMods, ";"), errText,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: record run: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
