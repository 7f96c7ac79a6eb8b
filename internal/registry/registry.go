// Package registry persists the last known update timestamp per workshop mod
// and diffs fresh metadata against it. The snapshot is a single JSON file
// replaced atomically; a crash mid-write leaves the previous snapshot valid.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pzwatch/internal/steam"
)

// Record is the durable per-mod state. The name is carried along for log and
// mod list output only; TimeUpdated is the change signal.
type Record struct {
	Name        string `json:"name"`
	TimeUpdated int64  `json:"time_updated"`
}

// Snapshot maps workshop id to its record.
type Snapshot map[string]Record

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file surfaces as fs.ErrNotExist so the
// caller can bootstrap a fresh snapshot instead of treating every mod as
// changed on the very first run.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", s.path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", s.path, err)
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, nil
}

// Save replaces the snapshot atomically: write to a temp file in the same
// directory, fsync, rename over the old file.
func (s *Store) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("registry: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("registry: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("registry: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("registry: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("registry: replace %s: %w", s.path, err)
	}
	return nil
}

// FromFetch builds a snapshot out of every successfully fetched mod, in one
// pass. Used by bootstrap and refresh runs.
func FromFetch(order []string, fetched steam.FetchResult) Snapshot {
	snap := make(Snapshot, len(order))
	for _, id := range order {
		res, ok := fetched[id]
		if !ok || res.Status != steam.StatusOK {
			continue
		}
		snap[id] = Record{Name: res.Detail.Title, TimeUpdated: res.Detail.TimeUpdated}
	}
	return snap
}
