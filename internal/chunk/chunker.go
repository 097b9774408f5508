// Package chunk orders a resolved batch so every operation lands after the
// operations it depends on. The output is a sequence of chunks; operations
// within one chunk are mutually independent and safe to apply together.
package chunk

import (
	"fmt"
	"strings"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/resolve"
)

// Chunk is a dependency-ordered group of operations.
type Chunk []*diff.Operation

// CyclicDependencyError reports a batch whose operations cannot be ordered.
// No partial ordering is returned alongside it.
type CyclicDependencyError struct {
	Ops []*diff.Operation
}

func (e *CyclicDependencyError) Error() string {
	lines := make([]string, len(e.Ops))
	for i, op := range e.Ops {
		lines[i] = fmt.Sprintf("line %d (%s)", op.Line, op.Kind)
	}
	return "cyclic dependency between operations: " + strings.Join(lines, ", ")
}

// Order builds the operation dependency graph and layers it with a stable
// topological sort (ties broken by input order).
//
// Dependencies:
//   - an edge creation depends on the node creations minting its temp-id
//     endpoints;
//   - a node deletion depends on the batch's removals of edges touching it;
//   - an edge creation whose reverse edge is removed in the same batch
//     depends on that removal, so a direction correction commits cleanly;
//   - an edge creation whose exact edge is also removed in the same batch
//     depends on that removal, so the re-add replaces the old row instead
//     of colliding with it at commit.
func Order(ops []*diff.Operation) ([]Chunk, error) {
	n := len(ops)
	if n == 0 {
		return nil, nil
	}

	// Producers of temp ids and removers of edges, indexed for linking.
	tempProducer := make(map[string]int) // temp id -> op index
	edgeRemovals := make(map[string][]int)
	removedEdgeKeys := make(map[string]int) // edge key -> removal op index
	for i, op := range ops {
		switch op.Kind {
		case diff.OpAddNode:
			tempProducer[op.NodeID] = i
		case diff.OpRemoveEdge:
			edgeRemovals[op.SourceID] = append(edgeRemovals[op.SourceID], i)
			edgeRemovals[op.TargetID] = append(edgeRemovals[op.TargetID], i)
			removedEdgeKeys[op.ResolvedEdge().Key()] = i
		}
	}

	deps := make([]map[int]bool, n)
	addDep := func(i, j int) {
		if i == j {
			return
		}
		if deps[i] == nil {
			deps[i] = make(map[int]bool)
		}
		deps[i][j] = true
	}

	for i, op := range ops {
		switch op.Kind {
		case diff.OpAddEdge:
			for _, endpoint := range []string{op.SourceID, op.TargetID} {
				if !resolve.IsTemp(endpoint) {
					continue
				}
				if j, ok := tempProducer[endpoint]; ok {
					addDep(i, j)
				}
			}
			if j, ok := removedEdgeKeys[op.ResolvedEdge().Key()]; ok {
				addDep(i, j)
			}
			if j, ok := removedEdgeKeys[op.ResolvedEdge().Reverse().Key()]; ok {
				addDep(i, j)
			}
		case diff.OpRemoveNode:
			for _, j := range edgeRemovals[op.NodeID] {
				addDep(i, j)
			}
		}
	}

	// Kahn layering. Each round picks every operation whose dependencies
	// are all placed, in input order, so the output is deterministic.
	placed := make([]bool, n)
	remaining := n
	var chunks []Chunk

	for remaining > 0 {
		var ready []int
		for i := range ops {
			if placed[i] {
				continue
			}
			ok := true
			for j := range deps[i] {
				if !placed[j] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			var stuck []*diff.Operation
			for i := range ops {
				if !placed[i] {
					stuck = append(stuck, ops[i])
				}
			}
			return nil, &CyclicDependencyError{Ops: stuck}
		}
		chunk := make(Chunk, 0, len(ready))
		for _, i := range ready {
			placed[i] = true
			chunk = append(chunk, ops[i])
		}
		remaining -= len(ready)
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// Flatten returns the chunked operations as one ordered slice.
func Flatten(chunks []Chunk) []*diff.Operation {
	var out []*diff.Operation
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
