package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/workflow"
)

// insertEdges writes edges in order. Both endpoints must already be inserted.
func insertEdges(ctx context.Context, q querier, workflowID string, edges []workflow.GraphEdge) error {
	for i, e := range edges {
		if _, err := q.Exec(ctx,
			`INSERT INTO workflow_edges (workflow_id, id, seq, source, target) VALUES ($1, $2, $3, $4, $5)`,
			workflowID, e.ID, i, e.Source, e.Target,
		); err != nil {
			return fmt.Errorf("workflow: insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

// listEdges returns the edges of a workflow in insertion order.
// Returns an empty slice (not nil) if none found.
func listEdges(ctx context.Context, q querier, workflowID string) ([]workflow.GraphEdge, error) {
	rows, err := q.Query(ctx,
		`SELECT id, source, target FROM workflow_edges WHERE workflow_id = $1 ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list edges: %w", err)
	}
	defer rows.Close()

	edges := []workflow.GraphEdge{}
	for rows.Next() {
		var e workflow.GraphEdge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("workflow: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workflow: rows edges: %w", err)
	}

	return edges, nil
}
