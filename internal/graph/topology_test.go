package graph

import (
	"testing"

	"archloom/loom/internal/model"
)

func buildSnapshot(nodeCount int, edges []model.Edge) *model.Snapshot {
	nodes := make([]*model.Node, nodeCount)
	for i := range nodes {
		id := string(rune('a' + i))
		nodes[i] = &model.Node{
			PersistentID: id,
			SemanticID:   "N" + id + ".FUN.1",
			Type:         model.TypeFunction,
			Name:         "N" + id,
		}
	}
	return model.NewSnapshot(nodes, edges)
}

func TestComputeTopologyEmpty(t *testing.T) {
	report := ComputeTopology(model.NewSnapshot(nil, nil), 5, 10)
	if report.TotalNodes != 0 || report.NumComponents != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestComputeTopologyComponentsAndOrphans(t *testing.T) {
	// a-b connected, c orphan.
	snap := buildSnapshot(3, []model.Edge{
		{SourceID: "a", TargetID: "b", Type: model.EdgeCompose},
	})

	report := ComputeTopology(snap, 5, 10)
	if report.NumComponents != 2 {
		t.Errorf("NumComponents = %d, want 2", report.NumComponents)
	}
	if report.LargestComponent != 2 || report.SmallestComponent != 1 {
		t.Errorf("component sizes = %d/%d", report.LargestComponent, report.SmallestComponent)
	}
	if report.OrphanCount != 1 || report.Orphans[0] != "Nc.FUN.1" {
		t.Errorf("orphans = %v", report.Orphans)
	}
	if report.NodesByType[model.TypeFunction] != 3 {
		t.Errorf("NodesByType = %v", report.NodesByType)
	}
	if report.EdgesByType[model.EdgeCompose] != 1 {
		t.Errorf("EdgesByType = %v", report.EdgesByType)
	}
}

func TestComputeTopologyHubs(t *testing.T) {
	// a has degree 3; the rest degree 1.
	snap := buildSnapshot(4, []model.Edge{
		{SourceID: "a", TargetID: "b", Type: model.EdgeCompose},
		{SourceID: "a", TargetID: "c", Type: model.EdgeCompose},
		{SourceID: "d", TargetID: "a", Type: model.EdgeCompose},
	})

	report := ComputeTopology(snap, 3, 10)
	if len(report.Hubs) != 1 {
		t.Fatalf("hubs = %v", report.Hubs)
	}
	hub := report.Hubs[0]
	if hub.SemanticID != "Na.FUN.1" || hub.Degree != 3 || hub.InDegree != 1 || hub.OutDegree != 2 {
		t.Errorf("hub = %+v", hub)
	}
}
