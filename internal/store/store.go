// Package store provides the persistent graph store the pipeline commits
// against: a SQLite implementation for durable graphs and an in-memory
// implementation for sandboxes and tests.
package store

import (
	"context"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/model"
)

// Binder receives the persistent ids assigned to batch temp ids during
// commit and translates resolved ids to their final form. Implemented by
// resolve.Batch.
type Binder interface {
	Bind(tempID, persistentID string)
	Final(id string) string
}

// Store is the graph persistence contract the orchestrator consumes. The
// pipeline never assumes a query language beyond these three operations.
type Store interface {
	// LookupSemantic maps a semantic id to its persistent id, if any.
	LookupSemantic(semanticID string) (string, bool, error)

	// CommitChunk applies one dependency-ordered chunk. Node creations
	// mint persistent ids and report them through the binder; edge
	// endpoints are translated through the binder before writing.
	CommitChunk(ctx context.Context, ops []*diff.Operation, bind Binder) error

	// Snapshot returns the full current graph state.
	Snapshot(ctx context.Context) (*model.Snapshot, error)
}
