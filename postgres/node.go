package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meikuraledutech/workflow"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// insertNodes writes nodes in order; seq records their position in the graph.
func insertNodes(ctx context.Context, q querier, workflowID string, nodes []workflow.GraphNode) error {
	for i, n := range nodes {
		data, err := json.Marshal(n.Data)
		if err != nil {
			return fmt.Errorf("workflow: marshal node %s: %w", n.ID, err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO workflow_nodes (workflow_id, id, seq, type, x, y, data) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			workflowID, n.ID, i, string(n.Type), n.Position.X, n.Position.Y, json.RawMessage(data),
		); err != nil {
			return fmt.Errorf("workflow: insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

// listNodes returns the nodes of a workflow in insertion order.
// Returns an empty slice (not nil) if none found.
func listNodes(ctx context.Context, q querier, workflowID string) ([]workflow.GraphNode, error) {
	rows, err := q.Query(ctx,
		`SELECT id, type, x, y, data FROM workflow_nodes WHERE workflow_id = $1 ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("workflow: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []workflow.GraphNode{}
	for rows.Next() {
		var (
			n    workflow.GraphNode
			typ  string
			data []byte
		)
		if err := rows.Scan(&n.ID, &typ, &n.Position.X, &n.Position.Y, &data); err != nil {
			return nil, fmt.Errorf("workflow: scan node: %w", err)
		}
		n.Type = workflow.NodeType(typ)
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("workflow: decode node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workflow: rows nodes: %w", err)
	}

	return nodes, nil
}
