// Package resolve rewrites the human-readable identifiers in a parsed batch
// into persistent ids or batch-scoped temp ids. After resolution no semantic
// id flows further down the pipeline.
package resolve

import (
	"fmt"
	"strings"

	"archloom/loom/internal/diff"
)

// TempPrefix marks batch-scoped placeholder ids for nodes that do not exist
// yet. Temp ids are valid only inside one batch's resolution map and are
// bound to real persistent ids after commit.
const TempPrefix = "tmp:"

// IsTemp reports whether an id is a batch-scoped placeholder.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// Lookup is the read-only view of the durable semantic-id table the resolver
// needs. Implemented by the graph store; any snapshot-backed implementation
// works for sandboxed resolution.
type Lookup interface {
	LookupSemantic(semanticID string) (persistentID string, ok bool, err error)
}

// DuplicateEntityError is returned when an AddNode reuses a semantic id that
// already names an entity, either persisted or created earlier in the batch.
type DuplicateEntityError struct {
	SemanticID string
	Line       int
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity %q already exists (line %d)", e.SemanticID, e.Line)
}

// UnknownReferenceError is returned when an identifier resolves neither
// against the batch-local map nor the persistent table.
type UnknownReferenceError struct {
	Ref  string
	Line int
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q (line %d)", e.Ref, e.Line)
}

// LookupError wraps a store failure while consulting the semantic-id table.
// Unlike the other resolution errors it is an infrastructure failure, not a
// defect in the batch.
type LookupError struct {
	Ref string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("looking up %q: %v", e.Ref, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Batch is a resolved operation list plus the batch-local identifier map.
// The map is discarded with the batch after commit or rejection.
type Batch struct {
	Ops []*diff.Operation

	refs     map[string]string // semantic id -> temp or persistent id
	bindings map[string]string // temp id -> persistent id, filled at commit
	nextTemp int
}

// Resolve runs the two-phase resolution over a parsed operation list.
//
// Phase 1 walks node operations: creations mint temp ids, removals resolve
// against the persistent table. Phase 2 walks edge operations and resolves
// each endpoint first against the batch-local map (so a node created earlier
// in the same batch can be referenced) and then against the persistent table.
func Resolve(ops []*diff.Operation, lookup Lookup) (*Batch, error) {
	b := &Batch{
		Ops:      ops,
		refs:     make(map[string]string),
		bindings: make(map[string]string),
	}

	for _, op := range ops {
		switch op.Kind {
		case diff.OpAddNode:
			if _, taken := b.refs[op.SemanticID]; taken {
				return nil, &DuplicateEntityError{SemanticID: op.SemanticID, Line: op.Line}
			}
			_, exists, err := lookup.LookupSemantic(op.SemanticID)
			if err != nil {
				return nil, &LookupError{Ref: op.SemanticID, Err: err}
			}
			if exists {
				return nil, &DuplicateEntityError{SemanticID: op.SemanticID, Line: op.Line}
			}
			b.nextTemp++
			tempID := fmt.Sprintf("%s%d", TempPrefix, b.nextTemp)
			b.refs[op.SemanticID] = tempID
			op.NodeID = tempID

		case diff.OpRemoveNode:
			pid, exists, err := lookup.LookupSemantic(op.SemanticID)
			if err != nil {
				return nil, &LookupError{Ref: op.SemanticID, Err: err}
			}
			if !exists {
				return nil, &UnknownReferenceError{Ref: op.SemanticID, Line: op.Line}
			}
			op.NodeID = pid
		}
	}

	for _, op := range ops {
		if !op.IsEdgeOp() {
			continue
		}
		src, err := b.resolveRef(op.SourceRef, op.Line, lookup)
		if err != nil {
			return nil, err
		}
		dst, err := b.resolveRef(op.TargetRef, op.Line, lookup)
		if err != nil {
			return nil, err
		}
		op.SourceID = src
		op.TargetID = dst
	}

	return b, nil
}

func (b *Batch) resolveRef(ref string, line int, lookup Lookup) (string, error) {
	if id, ok := b.refs[ref]; ok {
		return id, nil
	}
	pid, exists, err := lookup.LookupSemantic(ref)
	if err != nil {
		return "", &LookupError{Ref: ref, Err: err}
	}
	if !exists {
		return "", &UnknownReferenceError{Ref: ref, Line: line}
	}
	return pid, nil
}

// Bind records the persistent id assigned to a minted temp id once the
// creation has committed.
func (b *Batch) Bind(tempID, persistentID string) {
	b.bindings[tempID] = persistentID
}

// Binding returns the persistent id a temp id was bound to at commit.
func (b *Batch) Binding(tempID string) (string, bool) {
	pid, ok := b.bindings[tempID]
	return pid, ok
}

// Final maps any resolved id to its post-commit persistent id: bound temp ids
// translate, persistent ids pass through.
func (b *Batch) Final(id string) string {
	if pid, ok := b.bindings[id]; ok {
		return pid
	}
	return id
}

// TempIDs returns how many temp ids this batch minted.
func (b *Batch) TempIDs() int {
	return b.nextTemp
}
