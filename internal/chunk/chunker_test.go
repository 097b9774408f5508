package chunk

import (
	"testing"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/model"
)

func addNode(line int, nodeID string) *diff.Operation {
	return &diff.Operation{Kind: diff.OpAddNode, Line: line, NodeID: nodeID}
}

func removeNode(line int, nodeID string) *diff.Operation {
	return &diff.Operation{Kind: diff.OpRemoveNode, Line: line, NodeID: nodeID}
}

func addEdge(line int, src, dst string) *diff.Operation {
	return &diff.Operation{Kind: diff.OpAddEdge, Line: line, SourceID: src, TargetID: dst, EdgeType: model.EdgeCompose}
}

func removeEdge(line int, src, dst string) *diff.Operation {
	return &diff.Operation{Kind: diff.OpRemoveEdge, Line: line, SourceID: src, TargetID: dst, EdgeType: model.EdgeCompose}
}

// chunkOf returns the index of the chunk containing op, or -1.
func chunkOf(chunks []Chunk, op *diff.Operation) int {
	for i, c := range chunks {
		for _, o := range c {
			if o == op {
				return i
			}
		}
	}
	return -1
}

func TestOrderEmptyBatch(t *testing.T) {
	chunks, err := Order(nil)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if chunks != nil {
		t.Errorf("got %v, want nil", chunks)
	}
}

func TestOrderEdgeAfterNodeCreation(t *testing.T) {
	nodeA := addNode(1, "tmp:1")
	nodeB := addNode(2, "tmp:2")
	edge := addEdge(3, "tmp:1", "tmp:2")

	chunks, err := Order([]*diff.Operation{edge, nodeA, nodeB})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}

	if chunkOf(chunks, edge) <= chunkOf(chunks, nodeA) {
		t.Error("edge creation not after its source's creation")
	}
	if chunkOf(chunks, edge) <= chunkOf(chunks, nodeB) {
		t.Error("edge creation not after its target's creation")
	}
}

func TestOrderIndependentOpsShareChunk(t *testing.T) {
	nodeA := addNode(1, "tmp:1")
	nodeB := addNode(2, "tmp:2")

	chunks, err := Order([]*diff.Operation{nodeA, nodeB})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if len(chunks) != 1 || len(chunks[0]) != 2 {
		t.Fatalf("got %d chunks, want 1 chunk of 2 ops", len(chunks))
	}
}

func TestOrderNodeRemovalAfterEdgeRemovals(t *testing.T) {
	edge1 := removeEdge(1, "pid-a", "pid-b")
	edge2 := removeEdge(2, "pid-c", "pid-a")
	node := removeNode(3, "pid-a")

	chunks, err := Order([]*diff.Operation{node, edge1, edge2})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if chunkOf(chunks, node) <= chunkOf(chunks, edge1) {
		t.Error("node removal not after first edge removal")
	}
	if chunkOf(chunks, node) <= chunkOf(chunks, edge2) {
		t.Error("node removal not after second edge removal")
	}
}

func TestOrderDirectionCorrection(t *testing.T) {
	// Removing b->a and adding a->b must commit the removal first.
	remove := removeEdge(1, "pid-b", "pid-a")
	add := addEdge(2, "pid-a", "pid-b")

	chunks, err := Order([]*diff.Operation{add, remove})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if chunkOf(chunks, add) <= chunkOf(chunks, remove) {
		t.Error("edge creation not after removal of its reverse")
	}
}

func TestOrderStableWithinChunk(t *testing.T) {
	ops := []*diff.Operation{addNode(1, "tmp:1"), addNode(2, "tmp:2"), addNode(3, "tmp:3")}
	chunks, err := Order(ops)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	for i, op := range chunks[0] {
		if op != ops[i] {
			t.Fatalf("chunk order differs from input order at %d", i)
		}
	}
}

func TestOrderSameEdgeReaddAfterRemoval(t *testing.T) {
	// Removing a->b and re-adding the identical edge must commit the
	// removal first, or the creation collides with the existing row.
	add := addEdge(1, "pid-a", "pid-b")
	remove := removeEdge(2, "pid-a", "pid-b")

	chunks, err := Order([]*diff.Operation{add, remove})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if chunkOf(chunks, add) <= chunkOf(chunks, remove) {
		t.Error("edge creation not after removal of the same edge")
	}
}

func TestOrderDirectionSwapRemovalsFirst(t *testing.T) {
	// Swapping both directions in one batch: every creation waits for both
	// removals, so the removals form the first chunk. (The batch is still
	// contradictory and gets rejected downstream by validation.)
	ops := []*diff.Operation{
		addEdge(1, "pid-a", "pid-b"),
		removeEdge(2, "pid-b", "pid-a"),
		addEdge(3, "pid-b", "pid-a"),
		removeEdge(4, "pid-a", "pid-b"),
	}

	chunks, err := Order(ops)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	for _, add := range []*diff.Operation{ops[0], ops[2]} {
		for _, remove := range []*diff.Operation{ops[1], ops[3]} {
			if chunkOf(chunks, add) <= chunkOf(chunks, remove) {
				t.Errorf("creation at line %d not after removal at line %d", add.Line, remove.Line)
			}
		}
	}
}

func TestFlattenPreservesChunkOrder(t *testing.T) {
	nodeA := addNode(1, "tmp:1")
	edge := addEdge(2, "tmp:1", "pid-b")

	chunks, err := Order([]*diff.Operation{edge, nodeA})
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	flat := Flatten(chunks)
	if len(flat) != 2 || flat[0] != nodeA || flat[1] != edge {
		t.Errorf("Flatten order wrong: %v", flat)
	}
}
