package registry

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pzwatch/internal/steam"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "modinfo.json"))
	_, err := store.Load()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err=%v, want fs.ErrNotExist", err)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "modinfo.json"))
	want := Snapshot{
		"101": {Name: "Better Zombies", TimeUpdated: 1700000000},
		"202": {Name: "More Guns", TimeUpdated: 1700000100},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got["101"] != want["101"] || got["202"] != want["202"] {
		t.Fatalf("got=%v, want %v", got, want)
	}
}

func TestStore_CrashBeforeRenameLeavesSnapshotIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modinfo.json")
	store := NewStore(path)
	if err := store.Save(Snapshot{"101": {Name: "A", TimeUpdated: 1000}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Simulate a crash mid-write: a half-written temp file next to the
	// snapshot, rename never happened.
	stray := filepath.Join(dir, "modinfo.json.tmp-crashed")
	if err := os.WriteFile(stray, []byte(`{"101": {"name": "A", "time_up`), 0o644); err != nil {
		t.Fatalf("write stray temp: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load after simulated crash: %v", err)
	}
	if got["101"].TimeUpdated != 1000 {
		t.Fatalf("snapshot corrupted: %v", got)
	}
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "modinfo.json"))
	if err := store.Save(Snapshot{"101": {TimeUpdated: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestFromFetch_SkipsFailures(t *testing.T) {
	fetched := steam.FetchResult{
		"1": {Status: steam.StatusOK, Detail: steam.Detail{ID: "1", Title: "A", TimeUpdated: 10}},
		"2": {Status: steam.StatusTransient},
		"3": {Status: steam.StatusNotFound},
	}
	snap := FromFetch([]string{"1", "2", "3"}, fetched)
	if len(snap) != 1 {
		t.Fatalf("snap=%v, want only mod 1", snap)
	}
	if snap["1"] != (Record{Name: "A", TimeUpdated: 10}) {
		t.Fatalf("record=%+v", snap["1"])
	}
}
