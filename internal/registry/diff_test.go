package registry

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"pzwatch/internal/steam"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func ok(id, name string, updated int64) steam.Result {
	return steam.Result{Status: steam.StatusOK, Detail: steam.Detail{ID: id, Title: name, TimeUpdated: updated}}
}

func TestDiff_EqualTimestampsYieldNoChanges(t *testing.T) {
	snap := Snapshot{"101": {Name: "A", TimeUpdated: 1000}, "202": {Name: "B", TimeUpdated: 2000}}
	fetched := steam.FetchResult{"101": ok("101", "A", 1000), "202": ok("202", "B", 2000)}

	changes := Diff([]string{"101", "202"}, snap, fetched, discard())
	if len(changes) != 0 {
		t.Fatalf("changes=%v, want none", changes)
	}
}

func TestDiff_StrictInequality(t *testing.T) {
	snap := Snapshot{"101": {TimeUpdated: 1000}}
	tests := []struct {
		name    string
		remote  int64
		changed bool
	}{
		{"increased", 1001, true},
		{"equal", 1000, false},
		{"decreased", 999, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetched := steam.FetchResult{"101": ok("101", "A", tt.remote)}
			changes := Diff([]string{"101"}, snap, fetched, discard())
			if got := len(changes) == 1; got != tt.changed {
				t.Fatalf("changed=%v, want %v (changes=%v)", got, tt.changed, changes)
			}
		})
	}
}

func TestDiff_NewModCountsAsChanged(t *testing.T) {
	snap := Snapshot{"101": {Name: "A", TimeUpdated: 1000}}
	fetched := steam.FetchResult{
		"101": ok("101", "A", 1000),
		"202": ok("202", "B", 2000),
	}

	changes := Diff([]string{"101", "202"}, snap, fetched, discard())
	if got := changes.IDs(); !reflect.DeepEqual(got, []string{"202"}) {
		t.Fatalf("ids=%v, want [202]", got)
	}
	if !changes[0].New {
		t.Fatalf("expected change to be marked new")
	}
}

func TestDiff_SkipsTransientAndNotFound(t *testing.T) {
	snap := Snapshot{"101": {TimeUpdated: 1000}}
	fetched := steam.FetchResult{
		"101": {Status: steam.StatusTransient},
		"202": {Status: steam.StatusNotFound},
	}

	changes := Diff([]string{"101", "202"}, snap, fetched, discard())
	if len(changes) != 0 {
		t.Fatalf("changes=%v, want none", changes)
	}
}

func TestDiff_OrderFollowsInputList(t *testing.T) {
	fetched := steam.FetchResult{
		"3": ok("3", "C", 30),
		"1": ok("1", "A", 10),
		"2": ok("2", "B", 20),
	}

	changes := Diff([]string{"2", "3", "1"}, Snapshot{}, fetched, discard())
	if got := changes.IDs(); !reflect.DeepEqual(got, []string{"2", "3", "1"}) {
		t.Fatalf("ids=%v, want input order [2 3 1]", got)
	}
}

func TestDiff_Idempotent(t *testing.T) {
	snap := Snapshot{"101": {TimeUpdated: 500}}
	fetched := steam.FetchResult{"101": ok("101", "A", 900), "202": ok("202", "B", 100)}
	order := []string{"101", "202"}

	first := Diff(order, snap, fetched, discard())
	second := Diff(order, snap, fetched, discard())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("diff not deterministic: %v vs %v", first, second)
	}
}

func TestApply_FoldsChangesIntoSnapshot(t *testing.T) {
	snap := Snapshot{"101": {Name: "A", TimeUpdated: 1000}}
	changes := Changes{
		{ID: "101", Name: "A", Local: 1000, Remote: 1500},
		{ID: "202", Name: "B", Remote: 2000, New: true},
	}

	snap = Apply(snap, changes)
	if snap["101"].TimeUpdated != 1500 {
		t.Fatalf("101 time_updated=%d, want 1500", snap["101"].TimeUpdated)
	}
	if snap["202"].TimeUpdated != 2000 || snap["202"].Name != "B" {
		t.Fatalf("202 record=%+v", snap["202"])
	}
}

func TestChanges_NamesFallBackToID(t *testing.T) {
	c := Changes{{ID: "101"}, {ID: "202", Name: "B"}}
	if got := c.Names(); !reflect.DeepEqual(got, []string{"101", "B"}) {
		t.Fatalf("names=%v", got)
	}
}
