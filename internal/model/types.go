// Package model defines the typed ontology graph: nodes, edges, and the
// in-memory snapshots the mutation pipeline computes over.
package model

import "fmt"

// NodeType is one of the fixed ontology node kinds.
type NodeType string

const (
	TypeSystem      NodeType = "System"
	TypeUseCase     NodeType = "UseCase"
	TypeFunction    NodeType = "Function"
	TypeFlow        NodeType = "Flow"
	TypeRequirement NodeType = "Requirement"
	TypeTest        NodeType = "Test"
	TypeModule      NodeType = "Module"
	TypeActor       NodeType = "Actor"
)

// nodeTypeAbbrevs maps each node type to the abbreviation used inside
// semantic ids and diff text.
var nodeTypeAbbrevs = map[NodeType]string{
	TypeSystem:      "SYS",
	TypeUseCase:     "UC",
	TypeFunction:    "FUN",
	TypeFlow:        "FLW",
	TypeRequirement: "REQ",
	TypeTest:        "TST",
	TypeModule:      "MOD",
	TypeActor:       "ACT",
}

var abbrevToType = func() map[string]NodeType {
	m := make(map[string]NodeType, len(nodeTypeAbbrevs))
	for t, a := range nodeTypeAbbrevs {
		m[a] = t
	}
	return m
}()

// Abbrev returns the short form of a node type ("SYS", "FUN", ...).
func (t NodeType) Abbrev() string {
	return nodeTypeAbbrevs[t]
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	_, ok := nodeTypeAbbrevs[t]
	return ok
}

// ParseNodeType accepts a full type name or its abbreviation.
func ParseNodeType(s string) (NodeType, error) {
	if t := NodeType(s); t.Valid() {
		return t, nil
	}
	if t, ok := abbrevToType[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown node type %q", s)
}

// EdgeType is one of the fixed directed relationship kinds.
type EdgeType string

const (
	EdgeCompose  EdgeType = "compose"
	EdgeIO       EdgeType = "io"
	EdgeSatisfy  EdgeType = "satisfy"
	EdgeVerify   EdgeType = "verify"
	EdgeAllocate EdgeType = "allocate"
)

var edgeTypes = map[EdgeType]bool{
	EdgeCompose:  true,
	EdgeIO:       true,
	EdgeSatisfy:  true,
	EdgeVerify:   true,
	EdgeAllocate: true,
}

// Valid reports whether t is one of the known edge types.
func (t EdgeType) Valid() bool {
	return edgeTypes[t]
}

// ParseEdgeType validates an edge type token from diff text.
func ParseEdgeType(s string) (EdgeType, error) {
	if t := EdgeType(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown edge type %q", s)
}

// Node is one typed graph entity.
//
// PersistentID is the opaque storage key, assigned exactly once by the store
// and never reused. SemanticID is the human-readable handle the producer
// layer sees; it is stable within a session but not a durable storage key.
type Node struct {
	PersistentID string            `json:"persistent_id"`
	SemanticID   string            `json:"semantic_id"`
	Type         NodeType          `json:"type"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty"`
}

// Edge is a directed, typed relationship between two persistent node ids.
type Edge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Type     EdgeType `json:"type"`
}

// Key returns a canonical identity for the edge, used for duplicate and
// reverse-edge checks.
func (e Edge) Key() string {
	return e.SourceID + "|" + string(e.Type) + "|" + e.TargetID
}

// Reverse returns the same edge with endpoints swapped.
func (e Edge) Reverse() Edge {
	return Edge{SourceID: e.TargetID, TargetID: e.SourceID, Type: e.Type}
}
