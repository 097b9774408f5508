package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/model"
)

// Memory is an in-memory Store. It backs sandboxed batch application (an
// isolated copy of the graph an exploratory caller can mutate freely) and
// the test suite.
type Memory struct {
	mu    sync.RWMutex
	nodes map[string]*model.Node
	edges map[string]model.Edge
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[string]*model.Node),
		edges: make(map[string]model.Edge),
	}
}

// NewMemoryFromSnapshot seeds an in-memory store from a snapshot, typically
// to sandbox a batch against a copy of the live graph.
func NewMemoryFromSnapshot(snap *model.Snapshot) *Memory {
	m := NewMemory()
	for _, n := range snap.Clone().Nodes {
		m.nodes[n.PersistentID] = n
	}
	for _, e := range snap.Edges {
		m.edges[e.Key()] = e
	}
	return m
}

// Seed inserts a node directly, minting a persistent id. Test helper and
// import path; bypasses the pipeline.
func (m *Memory) Seed(n model.Node) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.PersistentID == "" {
		n.PersistentID = uuid.NewString()
	}
	m.nodes[n.PersistentID] = &n
	return n.PersistentID
}

// SeedEdge inserts an edge directly. Test helper and import path.
func (m *Memory) SeedEdge(e model.Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[e.Key()] = e
}

// LookupSemantic maps a semantic id to its persistent id.
func (m *Memory) LookupSemantic(semanticID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.nodes {
		if n.SemanticID == semanticID {
			return n.PersistentID, true, nil
		}
	}
	return "", false, nil
}

// CommitChunk applies one chunk. All-or-nothing per chunk: the mutation set
// is staged and swapped in only if every operation succeeds.
func (m *Memory) CommitChunk(ctx context.Context, ops []*diff.Operation, bind Binder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[string]*model.Node, len(m.nodes))
	for id, n := range m.nodes {
		staged[id] = n
	}
	stagedEdges := make(map[string]model.Edge, len(m.edges))
	for k, e := range m.edges {
		stagedEdges[k] = e
	}

	for _, op := range ops {
		switch op.Kind {
		case diff.OpAddNode:
			pid := uuid.NewString()
			staged[pid] = &model.Node{
				PersistentID: pid,
				SemanticID:   op.SemanticID,
				Type:         op.NodeType,
				Name:         op.Name,
				Description:  op.Description,
				Attrs:        op.Attrs,
			}
			bind.Bind(op.NodeID, pid)
		case diff.OpRemoveNode:
			if _, ok := staged[op.NodeID]; !ok {
				return fmt.Errorf("node %s not found", op.SemanticID)
			}
			delete(staged, op.NodeID)
		case diff.OpAddEdge:
			e := model.Edge{
				SourceID: bind.Final(op.SourceID),
				TargetID: bind.Final(op.TargetID),
				Type:     op.EdgeType,
			}
			stagedEdges[e.Key()] = e
		case diff.OpRemoveEdge:
			e := model.Edge{
				SourceID: bind.Final(op.SourceID),
				TargetID: bind.Final(op.TargetID),
				Type:     op.EdgeType,
			}
			delete(stagedEdges, e.Key())
		}
	}

	m.nodes = staged
	m.edges = stagedEdges
	return nil
}

// Snapshot returns the current state.
func (m *Memory) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]*model.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		cp := *n
		nodes = append(nodes, &cp)
	}
	edges := make([]model.Edge, 0, len(m.edges))
	for _, e := range m.edges {
		edges = append(edges, e)
	}
	return model.NewSnapshot(nodes, edges), nil
}
