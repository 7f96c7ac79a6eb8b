package journal

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestJournal_RecordAndReadBack(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "pzwatch.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	run := Run{
		RunID:       "run-abc",
		Mode:        "check",
		Outcome:     "restarted",
		ChangedMods: []string{"101", "202"},
		StartedAt:   time.Now().Add(-time.Minute),
	}
	if err := j.Record(run); err != nil {
		t.Fatalf("record: %v", err)
	}

	var mode, outcome, changed string
	row := j.db.QueryRow(`SELECT mode, outcome, changed_mods FROM runs WHERE run_id = ?`, "run-abc")
	if err := row.Scan(&mode, &outcome, &changed); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if mode != "check" || outcome != "restarted" || changed != "101;202" {
		t.Fatalf("row=%q/%q/%q", mode, outcome, changed)
	}
}

func TestJournal_RecordsError(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "pzwatch.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	if err := j.Record(Run{RunID: "run-x", Mode: "check", Outcome: "aborted", Err: errors.New("rcon down"), StartedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	var errText string
	if err := j.db.QueryRow(`SELECT error FROM runs WHERE run_id = ?`, "run-x").Scan(&errText); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if errText != "rcon down" {
		t.Fatalf("error=%q", errText)
	}
}

func TestJournal_NilReceiverIsNoop(t *testing.T) {
	var j *Journal
	if err := j.Record(Run{RunID: "run-y"}); err != nil {
		t.Fatalf("nil journal record: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("nil journal close: %v", err)
	}
}
