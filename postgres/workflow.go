package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/meikuraledutech/workflow"
)

// Save stores a full workflow (header, nodes and edges) in one transaction.
// An empty ID gets an auto-generated UUID. Saving an existing ID replaces the
// stored graph.
func (s *PGStore) Save(ctx context.Context, w *workflow.Workflow) (*workflow.Workflow, error) {
	out, err := w.Prepare(time.Now())
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("workflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO workflows (id, name, version, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		out.ID, out.Name, out.State.Version, out.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("workflow: upsert %s: %w", out.ID, err)
	}

	// Replace semantics: edges go with their nodes.
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_nodes WHERE workflow_id = $1`, out.ID); err != nil {
		return nil, fmt.Errorf("workflow: delete nodes: %w", err)
	}
	if err := insertNodes(ctx, tx, out.ID, out.State.Nodes); err != nil {
		return nil, err
	}
	if err := insertEdges(ctx, tx, out.ID, out.State.Edges); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("workflow: commit: %w", err)
	}
	return out, nil
}

// Get retrieves a full workflow by its ID.
func (s *PGStore) Get(ctx context.Context, id string) (*workflow.Workflow, error) {
	w := &workflow.Workflow{ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT name, version, updated_at FROM workflows WHERE id = $1`, id,
	).Scan(&w.Name, &w.State.Version, &w.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %q", workflow.ErrWorkflowNotFound, id)
		}
		return nil, fmt.Errorf("workflow: get %s: %w", id, err)
	}

	if w.State.Nodes, err = listNodes(ctx, s.db, id); err != nil {
		return nil, err
	}
	if w.State.Edges, err = listEdges(ctx, s.db, id); err != nil {
		return nil, err
	}
	return w, nil
}

// Delete removes a workflow with its nodes and edges.
// No error if the ID doesn't exist.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id); err != nil {
		return fmt.Errorf("workflow: delete %s: %w", id, err)
	}
	return nil
}

// List returns workflow summaries, most recently updated first.
func (s *PGStore) List(ctx context.Context) ([]workflow.Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.name, w.updated_at,
		       (SELECT COUNT(*) FROM workflow_nodes n WHERE n.workflow_id = w.id),
		       (SELECT COUNT(*) FROM workflow_edges e WHERE e.workflow_id = w.id)
		FROM workflows w
		ORDER BY w.updated_at DESC, w.id`)
	if err != nil {
		return nil, fmt.Errorf("workflow: list: %w", err)
	}
	defer rows.Close()

	list := []workflow.Summary{}
	for rows.Next() {
		var sum workflow.Summary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.UpdatedAt, &sum.Nodes, &sum.Edges); err != nil {
			return nil, fmt.Errorf("workflow: scan summary: %w", err)
		}
		list = append(list, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workflow: rows summaries: %w", err)
	}
	return list, nil
}
