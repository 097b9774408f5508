package diff

import "archloom/loom/internal/model"

// OpKind enumerates the four mutation kinds a diff can request.
type OpKind string

const (
	OpAddNode    OpKind = "add_node"
	OpRemoveNode OpKind = "remove_node"
	OpAddEdge    OpKind = "add_edge"
	OpRemoveEdge OpKind = "remove_edge"
)

// Operation is one requested mutation. The parser fills the semantic fields;
// the resolver rewrites the *ID fields to persistent ids or batch-scoped temp
// ids. Operations live only for the duration of one batch.
type Operation struct {
	Kind OpKind
	Line int // 1-based line in the concatenated diff text

	// Node operations.
	Name        string
	NodeType    model.NodeType
	SemanticID  string
	Description string
	Attrs       map[string]string
	NodeID      string // resolved: persistent id (remove) or temp id (add)

	// Edge operations. SourceRef/TargetRef hold the semantic identifiers as
	// written; SourceID/TargetID are filled by the resolver.
	SourceRef string
	TargetRef string
	EdgeType  model.EdgeType
	SourceID  string
	TargetID  string
}

// IsNodeOp reports whether the operation targets a node.
func (op *Operation) IsNodeOp() bool {
	return op.Kind == OpAddNode || op.Kind == OpRemoveNode
}

// IsEdgeOp reports whether the operation targets an edge.
func (op *Operation) IsEdgeOp() bool {
	return op.Kind == OpAddEdge || op.Kind == OpRemoveEdge
}

// ResolvedEdge returns the edge identity for a resolved edge operation.
func (op *Operation) ResolvedEdge() model.Edge {
	return model.Edge{SourceID: op.SourceID, TargetID: op.TargetID, Type: op.EdgeType}
}
