// Package rules validates a resolved, ordered batch as one unit against a
// declarative rule registry. Validation never runs per chunk: several rules
// need visibility across the whole batch, most notably the look-ahead
// exception that lets a remove/add pair correct an edge's direction.
package rules

import (
	"fmt"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/model"
	"archloom/loom/internal/resolve"
)

// Context is the read-only view a rule checks against: the batch plus the
// current graph snapshot, with the batch's scheduled additions and removals
// pre-indexed.
type Context struct {
	Ops  []*diff.Operation
	Snap *model.Snapshot

	RemovedNodes map[string]bool             // persistent ids scheduled for removal
	RemovedEdges map[string]bool             // edge keys scheduled for removal
	AddedEdges   map[string][]*diff.Operation // edge key -> creations in batch
	AddedNodes   map[string]*diff.Operation   // resolved id -> creation op
}

func newContext(ops []*diff.Operation, snap *model.Snapshot) *Context {
	c := &Context{
		Ops:          ops,
		Snap:         snap,
		RemovedNodes: make(map[string]bool),
		RemovedEdges: make(map[string]bool),
		AddedEdges:   make(map[string][]*diff.Operation),
		AddedNodes:   make(map[string]*diff.Operation),
	}
	for _, op := range ops {
		switch op.Kind {
		case diff.OpAddNode:
			c.AddedNodes[op.NodeID] = op
		case diff.OpRemoveNode:
			c.RemovedNodes[op.NodeID] = true
		case diff.OpAddEdge:
			key := op.ResolvedEdge().Key()
			c.AddedEdges[key] = append(c.AddedEdges[key], op)
		case diff.OpRemoveEdge:
			c.RemovedEdges[op.ResolvedEdge().Key()] = true
		}
	}
	return c
}

// TypeOf resolves the node type behind a batch-resolved id, consulting the
// batch's creations for temp ids and the snapshot for persistent ids.
func (c *Context) TypeOf(id string) (model.NodeType, bool) {
	if op, ok := c.AddedNodes[id]; ok {
		return op.NodeType, true
	}
	if n, ok := c.Snap.Nodes[id]; ok {
		return n.Type, true
	}
	return "", false
}

// Label renders an id for violation messages, preferring the semantic id.
func (c *Context) Label(id string) string {
	if op, ok := c.AddedNodes[id]; ok {
		return op.SemanticID
	}
	if n, ok := c.Snap.Nodes[id]; ok {
		return n.SemanticID
	}
	return id
}

// existsAfterBatch reports whether a node endpoint is present in the graph
// state the batch produces.
func (c *Context) existsAfterBatch(id string) bool {
	if resolve.IsTemp(id) {
		_, ok := c.AddedNodes[id]
		return ok
	}
	return c.Snap.HasNode(id) && !c.RemovedNodes[id]
}

// CheckFunc inspects the whole batch and returns any violations. Severity is
// assigned by the registry from the rule table.
type CheckFunc func(*Context, *Table) []Violation

// Rule is one entry in the typed rule registry.
type Rule struct {
	ID    string
	Check CheckFunc
}

// Registry holds the ordered rule set. Rules can be appended without
// touching pipeline control flow.
type Registry struct {
	table *Table
	rules []Rule
}

// NewRegistry builds a registry with the built-in structural rules bound to
// the given table.
func NewRegistry(table *Table) *Registry {
	r := &Registry{table: table}
	r.Register(Rule{ID: "duplicate-node", Check: checkDuplicateNodes})
	r.Register(Rule{ID: "duplicate-edge", Check: checkDuplicateEdges})
	r.Register(Rule{ID: "missing-edge", Check: checkMissingEdges})
	r.Register(Rule{ID: "dangling-endpoint", Check: checkDanglingEndpoints})
	r.Register(Rule{ID: "node-in-use", Check: checkNodeInUse})
	r.Register(Rule{ID: "type-combination", Check: checkTypeCombinations})
	r.Register(Rule{ID: "bidirectional", Check: checkBidirectional})
	r.Register(Rule{ID: "orphan-node", Check: checkOrphanNodes})
	return r
}

// Register appends a rule to the registry.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// Validate runs every rule over the batch and returns all violations,
// warnings included. The batch must already be resolved.
func (r *Registry) Validate(ops []*diff.Operation, snap *model.Snapshot) []Violation {
	ctx := newContext(ops, snap)
	var out []Violation
	for _, rule := range r.rules {
		for _, v := range rule.Check(ctx, r.table) {
			v.RuleID = rule.ID
			v.Severity = r.table.SeverityOf(rule.ID)
			out = append(out, v)
		}
	}
	return out
}

// Check validates the batch and converts error-severity violations into a
// ValidationError. Warnings alone do not reject the batch but are carried in
// the returned slice for feedback.
func (r *Registry) Check(ops []*diff.Operation, snap *model.Snapshot) ([]Violation, error) {
	violations := r.Validate(ops, snap)
	for _, v := range violations {
		if v.Severity == SeverityError {
			return violations, &ValidationError{Violations: violations}
		}
	}
	return violations, nil
}

// --- built-in rules ---

func checkDuplicateNodes(c *Context, _ *Table) []Violation {
	var out []Violation
	seen := make(map[string]bool)
	for _, op := range c.Ops {
		if op.Kind != diff.OpAddNode {
			continue
		}
		if _, exists := c.Snap.Semantic[op.SemanticID]; exists || seen[op.SemanticID] {
			out = append(out, Violation{
				Entities: []string{op.SemanticID},
				Message:  fmt.Sprintf("node %q already exists", op.SemanticID),
			})
		}
		seen[op.SemanticID] = true
	}
	return out
}

func checkDuplicateEdges(c *Context, _ *Table) []Violation {
	var out []Violation
	for key, creations := range c.AddedEdges {
		e := creations[0]
		label := fmt.Sprintf("%s -%s-> %s", c.Label(e.SourceID), e.EdgeType, c.Label(e.TargetID))
		if len(creations) > 1 {
			out = append(out, Violation{
				Entities: []string{label},
				Message:  "edge is created more than once in this batch",
			})
		}
		if c.Snap.HasEdge(e.ResolvedEdge()) && !c.RemovedEdges[key] {
			out = append(out, Violation{
				Entities: []string{label},
				Message:  "edge already exists",
			})
		}
	}
	return out
}

func checkMissingEdges(c *Context, _ *Table) []Violation {
	var out []Violation
	for _, op := range c.Ops {
		if op.Kind != diff.OpRemoveEdge {
			continue
		}
		key := op.ResolvedEdge().Key()
		if !c.Snap.HasEdge(op.ResolvedEdge()) && len(c.AddedEdges[key]) == 0 {
			out = append(out, Violation{
				Entities: []string{fmt.Sprintf("%s -%s-> %s", c.Label(op.SourceID), op.EdgeType, c.Label(op.TargetID))},
				Message:  "cannot remove an edge that does not exist",
			})
		}
	}
	return out
}

func checkDanglingEndpoints(c *Context, _ *Table) []Violation {
	var out []Violation
	for _, op := range c.Ops {
		if op.Kind != diff.OpAddEdge {
			continue
		}
		for _, id := range []string{op.SourceID, op.TargetID} {
			if !c.existsAfterBatch(id) {
				out = append(out, Violation{
					Entities: []string{c.Label(id)},
					Message:  fmt.Sprintf("edge endpoint %q does not exist in the resulting graph", c.Label(id)),
				})
			}
		}
	}
	return out
}

// checkNodeInUse enforces the invariant that no committed edge may reference
// a removed node: removing a node requires the batch to also remove every
// edge still touching it.
func checkNodeInUse(c *Context, _ *Table) []Violation {
	var out []Violation
	for id := range c.RemovedNodes {
		var remaining int
		for _, e := range c.Snap.Edges {
			if e.SourceID != id && e.TargetID != id {
				continue
			}
			if !c.RemovedEdges[e.Key()] {
				remaining++
			}
		}
		if remaining > 0 {
			out = append(out, Violation{
				Entities: []string{c.Label(id)},
				Message:  fmt.Sprintf("node %q still has %d edge(s) not removed by this batch", c.Label(id), remaining),
			})
		}
	}
	return out
}

func checkTypeCombinations(c *Context, table *Table) []Violation {
	var out []Violation
	for _, op := range c.Ops {
		if op.Kind != diff.OpAddEdge {
			continue
		}
		srcType, okSrc := c.TypeOf(op.SourceID)
		dstType, okDst := c.TypeOf(op.TargetID)
		if !okSrc || !okDst {
			// Dangling endpoints are reported by their own rule.
			continue
		}
		if !table.Allows(srcType, op.EdgeType, dstType) {
			out = append(out, Violation{
				Entities: []string{c.Label(op.SourceID), c.Label(op.TargetID)},
				Message: fmt.Sprintf("%s edge not allowed from %s to %s",
					op.EdgeType, srcType, dstType),
			})
		}
	}
	return out
}

// checkBidirectional rejects an edge creation whose reverse already exists,
// with the look-ahead exception: if the batch also removes the reverse edge,
// the pair is a direction correction and is valid.
func checkBidirectional(c *Context, _ *Table) []Violation {
	var out []Violation
	for _, op := range c.Ops {
		if op.Kind != diff.OpAddEdge {
			continue
		}
		reverse := op.ResolvedEdge().Reverse()
		reverseKey := reverse.Key()
		persists := c.Snap.HasEdge(reverse) && !c.RemovedEdges[reverseKey]
		addedReverse := len(c.AddedEdges[reverseKey]) > 0
		if persists || addedReverse {
			out = append(out, Violation{
				Entities: []string{c.Label(op.SourceID), c.Label(op.TargetID)},
				Message: fmt.Sprintf("adding %s edge %s -> %s conflicts with the reverse edge; remove it in the same batch to correct direction",
					op.EdgeType, c.Label(op.SourceID), c.Label(op.TargetID)),
			})
		}
	}
	return out
}

// checkOrphanNodes flags created nodes with no edge in the batch or the
// snapshot. Warning severity by default: useful feedback, not a rejection.
func checkOrphanNodes(c *Context, _ *Table) []Violation {
	connected := make(map[string]bool)
	for _, op := range c.Ops {
		if op.Kind == diff.OpAddEdge {
			connected[op.SourceID] = true
			connected[op.TargetID] = true
		}
	}
	var out []Violation
	for id, op := range c.AddedNodes {
		if !connected[id] {
			out = append(out, Violation{
				Entities: []string{op.SemanticID},
				Message:  fmt.Sprintf("node %q is created without any edges", op.SemanticID),
			})
		}
	}
	return out
}
