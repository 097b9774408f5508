package track

import (
	"testing"

	"archloom/loom/internal/model"
)

func node(pid, semID, name string) *model.Node {
	return &model.Node{PersistentID: pid, SemanticID: semID, Type: model.TypeFunction, Name: name}
}

func snapOf(nodes ...*model.Node) *model.Snapshot {
	return model.NewSnapshot(nodes, nil)
}

func TestFreshTrackerReportsEverythingAdded(t *testing.T) {
	tr := New()
	if tr.HasBaseline() {
		t.Fatal("fresh tracker claims a baseline")
	}

	current := snapOf(node("a", "A.FUN.1", "A"), node("b", "B.FUN.1", "B"))
	for _, rec := range tr.Changes(current) {
		if rec.Status != StatusAdded {
			t.Errorf("%s = %s, want added", rec.PersistentID, rec.Status)
		}
	}
}

func TestCaptureEmptyBaselineIsValid(t *testing.T) {
	tr := New()
	tr.CaptureBaseline(snapOf())
	if !tr.HasBaseline() {
		t.Fatal("capturing an empty snapshot did not record a baseline")
	}

	current := snapOf(node("a", "A.FUN.1", "A"))
	if got := tr.Status("a", current); got != StatusAdded {
		t.Errorf("Status = %s, want added", got)
	}
}

func TestStatusAfterCaptureIsUnchanged(t *testing.T) {
	current := snapOf(node("a", "A.FUN.1", "A"))
	tr := New()
	tr.CaptureBaseline(current)

	if got := tr.Status("a", current); got != StatusUnchanged {
		t.Errorf("Status = %s, want unchanged", got)
	}
	// Capturing again from the same state stays unchanged.
	tr.CaptureBaseline(current)
	if got := tr.Status("a", current); got != StatusUnchanged {
		t.Errorf("Status after recapture = %s, want unchanged", got)
	}
}

func TestModifiedDetection(t *testing.T) {
	tr := New()
	tr.CaptureBaseline(snapOf(node("a", "A.FUN.1", "A")))

	changed := node("a", "A.FUN.1", "A")
	changed.Description = "now documented"
	if got := tr.Status("a", snapOf(changed)); got != StatusModified {
		t.Errorf("Status = %s, want modified", got)
	}
}

func TestDeletedDetection(t *testing.T) {
	tr := New()
	tr.CaptureBaseline(snapOf(node("a", "A.FUN.1", "A")))

	if got := tr.Status("a", snapOf()); got != StatusDeleted {
		t.Errorf("Status = %s, want deleted", got)
	}
}

func TestChangesSortedAndComplete(t *testing.T) {
	tr := New()
	tr.CaptureBaseline(snapOf(node("a", "A.FUN.1", "A"), node("b", "B.FUN.1", "B")))

	// a deleted, b unchanged, c added.
	current := snapOf(node("b", "B.FUN.1", "B"), node("c", "C.FUN.1", "C"))
	records := tr.Changes(current)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	want := map[string]Status{"a": StatusDeleted, "b": StatusUnchanged, "c": StatusAdded}
	for i, rec := range records {
		if want[rec.PersistentID] != rec.Status {
			t.Errorf("%s = %s, want %s", rec.PersistentID, rec.Status, want[rec.PersistentID])
		}
		if i > 0 && records[i-1].PersistentID > rec.PersistentID {
			t.Error("records not sorted by persistent id")
		}
	}

	// Deleted entities keep their last known semantic id.
	if records[0].SemanticID != "A.FUN.1" {
		t.Errorf("deleted record semantic id = %q", records[0].SemanticID)
	}
}

func TestResetDiscardsBaseline(t *testing.T) {
	tr := New()
	tr.CaptureBaseline(snapOf(node("a", "A.FUN.1", "A")))
	tr.Reset()

	if tr.HasBaseline() {
		t.Fatal("reset tracker still claims a baseline")
	}
	current := snapOf(node("a", "A.FUN.1", "A"))
	if got := tr.Status("a", current); got != StatusAdded {
		t.Errorf("Status after reset = %s, want added", got)
	}
}

func TestBaselineIsolatedFromLaterMutation(t *testing.T) {
	n := node("a", "A.FUN.1", "A")
	current := snapOf(n)
	tr := New()
	tr.CaptureBaseline(current)

	// Mutating the captured snapshot's node must not bleed into the
	// baseline.
	n.Name = "renamed"
	if got := tr.Status("a", current); got != StatusModified {
		t.Errorf("Status = %s, want modified", got)
	}
}
