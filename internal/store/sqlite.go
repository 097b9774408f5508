package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"archloom/loom/internal/diff"
	"archloom/loom/internal/model"
)

// DB is the SQLite-backed graph store.
type DB struct {
	conn   *sql.DB
	logger *zap.Logger
	Path   string
}

// Open opens (creating if necessary) a SQLite graph database with WAL mode
// and foreign keys enabled.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	d := &DB{conn: conn, logger: logger, Path: path}
	if err := d.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS nodes (
			persistent_id TEXT PRIMARY KEY,
			semantic_id   TEXT NOT NULL UNIQUE,
			type          TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			attrs         TEXT
		);
		CREATE TABLE IF NOT EXISTS edges (
			source_id TEXT NOT NULL REFERENCES nodes(persistent_id),
			target_id TEXT NOT NULL REFERENCES nodes(persistent_id),
			type      TEXT NOT NULL,
			PRIMARY KEY (source_id, type, target_id)
		);
		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// LookupSemantic maps a semantic id to its persistent id.
func (d *DB) LookupSemantic(semanticID string) (string, bool, error) {
	var pid string
	err := d.conn.QueryRow(
		`SELECT persistent_id FROM nodes WHERE semantic_id = ?`, semanticID,
	).Scan(&pid)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("looking up semantic id: %w", err)
	}
	return pid, true, nil
}

// CommitChunk applies one chunk inside a transaction. Persistent ids for
// created nodes are minted here, exactly once, and reported to the binder.
func (d *DB) CommitChunk(ctx context.Context, ops []*diff.Operation, bind Binder) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		switch op.Kind {
		case diff.OpAddNode:
			pid := uuid.NewString()
			var attrs any
			if len(op.Attrs) > 0 {
				data, err := json.Marshal(op.Attrs)
				if err != nil {
					return fmt.Errorf("encoding attrs for %s: %w", op.SemanticID, err)
				}
				attrs = string(data)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO nodes (persistent_id, semantic_id, type, name, description, attrs)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				pid, op.SemanticID, string(op.NodeType), op.Name, op.Description, attrs,
			); err != nil {
				return fmt.Errorf("inserting node %s: %w", op.SemanticID, err)
			}
			bind.Bind(op.NodeID, pid)
			d.logger.Debug("node created",
				zap.String("semantic_id", op.SemanticID),
				zap.String("persistent_id", pid))

		case diff.OpRemoveNode:
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM nodes WHERE persistent_id = ?`, op.NodeID,
			); err != nil {
				return fmt.Errorf("deleting node %s: %w", op.SemanticID, err)
			}

		case diff.OpAddEdge:
			src := bind.Final(op.SourceID)
			dst := bind.Final(op.TargetID)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO edges (source_id, target_id, type) VALUES (?, ?, ?)`,
				src, dst, string(op.EdgeType),
			); err != nil {
				return fmt.Errorf("inserting %s edge: %w", op.EdgeType, err)
			}

		case diff.OpRemoveEdge:
			src := bind.Final(op.SourceID)
			dst := bind.Final(op.TargetID)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM edges WHERE source_id = ? AND target_id = ? AND type = ?`,
				src, dst, string(op.EdgeType),
			); err != nil {
				return fmt.Errorf("deleting %s edge: %w", op.EdgeType, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunk: %w", err)
	}
	return nil
}

// Snapshot loads the full graph state.
func (d *DB) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT persistent_id, semantic_id, type, name, description, attrs FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		var n model.Node
		var nodeType string
		var attrs sql.NullString
		if err := rows.Scan(&n.PersistentID, &n.SemanticID, &nodeType, &n.Name, &n.Description, &attrs); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Type = model.NodeType(nodeType)
		if attrs.Valid && attrs.String != "" {
			if err := json.Unmarshal([]byte(attrs.String), &n.Attrs); err != nil {
				return nil, fmt.Errorf("decoding attrs for %s: %w", n.SemanticID, err)
			}
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading nodes: %w", err)
	}

	edgeRows, err := d.conn.QueryContext(ctx,
		`SELECT source_id, target_id, type FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer edgeRows.Close()

	var edges []model.Edge
	for edgeRows.Next() {
		var e model.Edge
		var edgeType string
		if err := edgeRows.Scan(&e.SourceID, &e.TargetID, &edgeType); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Type = model.EdgeType(edgeType)
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("reading edges: %w", err)
	}

	return model.NewSnapshot(nodes, edges), nil
}
