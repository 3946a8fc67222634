// Package sqlite implements workflow.Repository on an embedded SQLite
// database, for single-user setups that want persistence without a server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/meikuraledutech/workflow"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	version    INTEGER NOT NULL DEFAULT 1,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_nodes (
	workflow_id TEXT NOT NULL,
	id          TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	type        TEXT NOT NULL,
	x           REAL NOT NULL DEFAULT 0,
	y           REAL NOT NULL DEFAULT 0,
	data        TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (workflow_id, id)
);

CREATE TABLE IF NOT EXISTS workflow_edges (
	workflow_id TEXT NOT NULL,
	id          TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	source      TEXT NOT NULL,
	target      TEXT NOT NULL,
	PRIMARY KEY (workflow_id, id)
);
`

// Store implements workflow.Repository using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection: an in-memory database lives and dies with it.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.CreateSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CreateSchema creates the workflow tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("sqlite: create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a full workflow in one transaction, replacing any previous
// graph saved under the same ID.
func (s *Store) Save(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
	out, err := w.Prepare(time.Now())
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workflows (id, name, version, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, version = excluded.version, updated_at = excluded.updated_at`,
		out.ID, out.Name, out.State.Version, out.UpdatedAt.UnixMicro(),
	); err != nil {
		return nil, fmt.Errorf("sqlite: upsert %s: %w", out.ID, err)
	}
	if err := deleteGraph(ctx, tx, out.ID); err != nil {
		return nil, err
	}

	for i, n := range out.State.Nodes {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("sqlite: marshal node %s: %w", n.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_nodes (workflow_id, id, seq, type, x, y, data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			out.ID, n.ID, i, string(n.Type), n.Position.X, n.Position.Y, string(data),
		); err != nil {
			return nil, fmt.Errorf("sqlite: insert node %s: %w", n.ID, err)
		}
	}
	for i, e := range out.State.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workflow_edges (workflow_id, id, seq, source, target) VALUES (?, ?, ?, ?, ?)`,
			out.ID, e.ID, i, e.Source, e.Target,
		); err != nil {
			return nil, fmt.Errorf("sqlite: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return out, nil
}

// Get loads the workflow stored under id.
func (s *Store) Get(ctx context.Context, id string) (*workflow.Workflow, error) {
	w := &workflow.Workflow{ID: id}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT name, version, updated_at FROM workflows WHERE id = ?`, id,
	).Scan(&w.Name, &w.State.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", workflow.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", id, err)
	}
	w.UpdatedAt = time.UnixMicro(updated).UTC()

	if w.State.Nodes, err = s.nodes(ctx, id); err != nil {
		return nil, err
	}
	if w.State.Edges, err = s.edges(ctx, id); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) nodes(ctx context.Context, id string) ([]workflow.GraphNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, x, y, data FROM workflow_nodes WHERE workflow_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []workflow.GraphNode{}
	for rows.Next() {
		var (
			n    workflow.GraphNode
			typ  string
			data string
		)
		if err := rows.Scan(&n.ID, &typ, &n.Position.X, &n.Position.Y, &data); err != nil {
			return nil, fmt.Errorf("sqlite: scan node: %w", err)
		}
		n.Type = workflow.NodeType(typ)
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("sqlite: decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) edges(ctx context.Context, id string) ([]workflow.GraphEdge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, target FROM workflow_edges WHERE workflow_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list edges: %w", err)
	}
	defer rows.Close()

	edges := []workflow.GraphEdge{}
	for rows.Next() {
		var e workflow.GraphEdge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("sqlite: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Delete removes a workflow with its graph. Unknown IDs are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteGraph(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", id, err)
	}
	return tx.Commit()
}

// List returns workflow summaries, most recently updated first.
func (s *Store) List(ctx context.Context) ([]workflow.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.updated_at,
		       (SELECT COUNT(*) FROM workflow_nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM workflow_edges e WHERE e.workflow_id = w.id)
		FROM workflows w
		ORDER BY w.updated_at DESC, w.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	list := []workflow.Summary{}
	for rows.Next() {
		var (
			sum     workflow.Summary
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &updated, &sum.Nodes, &sum.Edges); err != nil {
			return nil, fmt.Errorf("sqlite: scan summary: %w", err)
		}
		sum.UpdatedAt = time.UnixMicro(updated).UTC()
		list = append(list, sum)
	}
	return list, rows.Err()
}

func deleteGraph(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_edges WHERE workflow_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete nodes: %w", err)
	}
	return nil
}
