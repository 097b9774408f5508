// Package track maintains the in-memory baseline a session diffs its graph
// against. The baseline is owned by one Tracker per session and never
// persisted; surrounding session code captures it on load, commit, and
// explicit reset.
package track

import (
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"

	"archloom/loom/internal/model"
)

// Status classifies one entity relative to the baseline.
type Status string

const (
	StatusAdded     Status = "added"
	StatusModified  Status = "modified"
	StatusDeleted   Status = "deleted"
	StatusUnchanged Status = "unchanged"
)

// ChangeRecord is the derived per-entity change report. Entities absent from
// both baseline and current state are not reported.
type ChangeRecord struct {
	PersistentID string `json:"persistent_id"`
	SemanticID   string `json:"semantic_id"`
	Status       Status `json:"status"`
}

// Tracker compares graph snapshots against a captured baseline.
//
// A fresh tracker holds an empty baseline, which is legal and intentional:
// every live entity reads as added until the first capture. HasBaseline lets
// callers distinguish "never captured" from "captured an empty graph".
type Tracker struct {
	mu       sync.Mutex
	baseline *model.Snapshot
	captured bool
}

// New returns a tracker with an empty baseline and no capture recorded.
func New() *Tracker {
	return &Tracker{baseline: model.NewSnapshot(nil, nil)}
}

// CaptureBaseline replaces the baseline with the given snapshot. Capturing
// an empty snapshot is valid.
func (t *Tracker) CaptureBaseline(snap *model.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = snap.Clone()
	t.captured = true
}

// HasBaseline reports whether a capture has occurred this session.
func (t *Tracker) HasBaseline() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captured
}

// Reset discards the baseline, returning the tracker to its fresh state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = model.NewSnapshot(nil, nil)
	t.captured = false
}

// Status classifies a single entity by persistent id against the baseline.
func (t *Tracker) Status(persistentID string, current *model.Snapshot) Status {
	t.mu.Lock()
	base := t.baseline
	t.mu.Unlock()

	return classify(base.Nodes[persistentID], current.Nodes[persistentID])
}

// Changes reports every entity present in the baseline or the current
// snapshot, sorted by persistent id for deterministic output.
func (t *Tracker) Changes(current *model.Snapshot) []ChangeRecord {
	t.mu.Lock()
	base := t.baseline
	t.mu.Unlock()

	ids := make(map[string]bool, len(base.Nodes)+len(current.Nodes))
	for id := range base.Nodes {
		ids[id] = true
	}
	for id := range current.Nodes {
		ids[id] = true
	}

	records := make([]ChangeRecord, 0, len(ids))
	for id := range ids {
		before := base.Nodes[id]
		after := current.Nodes[id]
		rec := ChangeRecord{PersistentID: id, Status: classify(before, after)}
		if after != nil {
			rec.SemanticID = after.SemanticID
		} else {
			rec.SemanticID = before.SemanticID
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].PersistentID < records[j].PersistentID
	})
	return records
}

func classify(before, after *model.Node) Status {
	switch {
	case before == nil && after == nil:
		return StatusUnchanged
	case before == nil:
		return StatusAdded
	case after == nil:
		return StatusDeleted
	case !cmp.Equal(*before, *after):
		return StatusModified
	default:
		return StatusUnchanged
	}
}
