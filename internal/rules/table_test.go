package rules

import (
	"os"
	"path/filepath"
	"testing"

	"archloom/loom/internal/model"
)

func TestDefaultTableCombinations(t *testing.T) {
	table := DefaultTable()

	allowed := []struct {
		src model.NodeType
		et  model.EdgeType
		dst model.NodeType
	}{
		{model.TypeSystem, model.EdgeCompose, model.TypeFunction},
		{model.TypeFunction, model.EdgeIO, model.TypeFlow},
		{model.TypeFlow, model.EdgeIO, model.TypeFunction},
		{model.TypeTest, model.EdgeVerify, model.TypeRequirement},
		{model.TypeFunction, model.EdgeSatisfy, model.TypeRequirement},
		{model.TypeFunction, model.EdgeAllocate, model.TypeModule},
	}
	for _, c := range allowed {
		if !table.Allows(c.src, c.et, c.dst) {
			t.Errorf("%s -%s-> %s should be allowed", c.src, c.et, c.dst)
		}
	}

	denied := []struct {
		src model.NodeType
		et  model.EdgeType
		dst model.NodeType
	}{
		{model.TypeFlow, model.EdgeCompose, model.TypeSystem},
		{model.TypeRequirement, model.EdgeVerify, model.TypeTest},
		{model.TypeActor, model.EdgeIO, model.TypeFlow},
	}
	for _, c := range denied {
		if table.Allows(c.src, c.et, c.dst) {
			t.Errorf("%s -%s-> %s should be denied", c.src, c.et, c.dst)
		}
	}
}

func TestSeverityDefaults(t *testing.T) {
	table := DefaultTable()
	if got := table.SeverityOf("orphan-node"); got != SeverityWarning {
		t.Errorf("orphan-node severity = %q, want warning", got)
	}
	if got := table.SeverityOf("duplicate-node"); got != SeverityError {
		t.Errorf("duplicate-node severity = %q, want error", got)
	}
	if got := table.SeverityOf("some-future-rule"); got != SeverityError {
		t.Errorf("unknown rule severity = %q, want error", got)
	}
}

func TestLoadTableOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
version: 1
combinations:
  compose:
    - [System, System]
severities:
  bidirectional: warning
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if !table.Allows(model.TypeSystem, model.EdgeCompose, model.TypeSystem) {
		t.Error("override table lost its combination")
	}
	if table.Allows(model.TypeSystem, model.EdgeCompose, model.TypeFunction) {
		t.Error("override table kept a default combination")
	}
	if table.SeverityOf("bidirectional") != SeverityWarning {
		t.Error("severity override not applied")
	}
}

func TestLoadTableRejectsUnknownTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
version: 1
combinations:
  compose:
    - [System, Widget]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("expected error for unknown node type")
	}
}
