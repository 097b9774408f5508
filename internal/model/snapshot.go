package model

import "sort"

// Snapshot holds a full graph state with precomputed adjacency and a
// semantic-id index. Snapshots are value-ish: the pipeline's pre-commit
// phases only ever read them, so one snapshot can back any number of
// concurrent validations.
type Snapshot struct {
	Nodes    map[string]*Node // persistent id -> node
	Edges    []Edge
	OutAdj   map[string][]string // source -> targets
	InAdj    map[string][]string // target -> sources
	Semantic map[string]string   // semantic id -> persistent id
	edgeSet  map[string]bool
}

// NewSnapshot builds a Snapshot from raw nodes and edges. Edges referencing
// missing nodes are dropped rather than carried as dangling entries.
func NewSnapshot(nodes []*Node, edges []Edge) *Snapshot {
	nodeMap := make(map[string]*Node, len(nodes))
	outAdj := make(map[string][]string)
	inAdj := make(map[string][]string)
	semantic := make(map[string]string, len(nodes))

	for _, n := range nodes {
		nodeMap[n.PersistentID] = n
		outAdj[n.PersistentID] = nil
		inAdj[n.PersistentID] = nil
		semantic[n.SemanticID] = n.PersistentID
	}

	kept := make([]Edge, 0, len(edges))
	edgeSet := make(map[string]bool, len(edges))
	for _, e := range edges {
		if _, ok := nodeMap[e.SourceID]; !ok {
			continue
		}
		if _, ok := nodeMap[e.TargetID]; !ok {
			continue
		}
		kept = append(kept, e)
		edgeSet[e.Key()] = true
		outAdj[e.SourceID] = append(outAdj[e.SourceID], e.TargetID)
		inAdj[e.TargetID] = append(inAdj[e.TargetID], e.SourceID)
	}

	return &Snapshot{
		Nodes:    nodeMap,
		Edges:    kept,
		OutAdj:   outAdj,
		InAdj:    inAdj,
		Semantic: semantic,
		edgeSet:  edgeSet,
	}
}

// HasNode reports whether a node with the given persistent id exists.
func (s *Snapshot) HasNode(persistentID string) bool {
	_, ok := s.Nodes[persistentID]
	return ok
}

// HasEdge reports whether the exact (source, type, target) edge exists.
func (s *Snapshot) HasEdge(e Edge) bool {
	return s.edgeSet[e.Key()]
}

// NodeIDs returns all persistent ids in sorted order for deterministic output.
func (s *Snapshot) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy, used when a caller wants an isolated sandbox to
// apply a batch against without touching the shared state.
func (s *Snapshot) Clone() *Snapshot {
	nodes := make([]*Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		cp := *n
		if n.Attrs != nil {
			cp.Attrs = make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				cp.Attrs[k] = v
			}
		}
		nodes = append(nodes, &cp)
	}
	edges := make([]Edge, len(s.Edges))
	copy(edges, s.Edges)
	return NewSnapshot(nodes, edges)
}
