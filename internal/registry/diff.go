package registry

import (
	"log/slog"
	"time"

	"pzwatch/internal/steam"
)

// Change records one mod whose upstream timestamp moved past the snapshot.
type Change struct {
	ID     string
	Name   string
	Local  int64 // zero when the mod was absent from the snapshot
	Remote int64
	New    bool // absent from the snapshot, seen for the first time
}

type Changes []Change

func (c Changes) IDs() []string {
	ids := make([]string, len(c))
	for i, ch := range c {
		ids[i] = ch.ID
	}
	return ids
}

func (c Changes) Names() []string {
	names := make([]string, len(c))
	for i, ch := range c {
		if ch.Name != "" {
			names[i] = ch.Name
		} else {
			names[i] = ch.ID
		}
	}
	return names
}

// Diff compares fetched metadata against the snapshot. Output order follows
// the input mod list. A mod counts as changed only when the remote timestamp
// is strictly greater than the stored one (a republish with an identical
// time_updated is not detectable), or when the snapshot has no record of it.
// Transient failures are skipped with the snapshot untouched so the next run
// retries them; vanished workshop items are logged as anomalies and skipped.
func Diff(order []string, snap Snapshot, fetched steam.FetchResult, log *slog.Logger) Changes {
	var changes Changes
	for _, id := range order {
		res, ok := fetched[id]
		if !ok {
			continue
		}
		switch res.Status {
		case steam.StatusTransient:
			log.Warn("mod metadata unavailable this run, will retry next run", "mod", id)
			continue
		case steam.StatusNotFound:
			log.Warn("workshop item no longer exists", "mod", id)
			continue
		}

		rec, exists := snap[id]
		if !exists {
			changes = append(changes, Change{
				ID:     id,
				Name:   res.Detail.Title,
				Remote: res.Detail.TimeUpdated,
				New:    true,
			})
			continue
		}
		if res.Detail.TimeUpdated > rec.TimeUpdated {
			log.Warn("mod is outdated",
				"mod", id,
				"name", res.Detail.Title,
				"local", formatTS(rec.TimeUpdated),
				"remote", formatTS(res.Detail.TimeUpdated))
			changes = append(changes, Change{
				ID:     id,
				Name:   res.Detail.Title,
				Local:  rec.TimeUpdated,
				Remote: res.Detail.TimeUpdated,
			})
		}
	}
	return changes
}

// Apply folds confirmed changes into the snapshot. Called only after the
// restart cycle completed.
func Apply(snap Snapshot, changes Changes) Snapshot {
	if snap == nil {
		snap = Snapshot{}
	}
	for _, ch := range changes {
		snap[ch.ID] = Record{Name: ch.Name, TimeUpdated: ch.Remote}
	}
	return snap
}

func formatTS(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
