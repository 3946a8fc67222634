package workflow

import (
	"context"
	"errors"
)

var (
	ErrInvalidConnection = errors.New("workflow: invalid connection")
	ErrUnknownNode       = errors.New("workflow: node not found")
	ErrInvalidRoleChange = errors.New("workflow: node role cannot change")
	ErrInvalidConfig     = errors.New("workflow: invalid node config")
	ErrMalformedDocument = errors.New("workflow: malformed document")
	ErrWorkflowNotFound  = errors.New("workflow: workflow not found")
)

// Repository defines the contract for persisting and retrieving workflows.
type Repository interface {
	// Save stores w, replacing any workflow with the same ID.
	// An empty ID gets a generated UUID. UpdatedAt is set by the repository.
	// The state is validated first; invalid states fail with ErrMalformedDocument.
	Save(ctx context.Context, w *Workflow) (*Workflow, error)

	// Get returns ErrWorkflowNotFound if no workflow has the ID.
	Get(ctx context.Context, id string) (*Workflow, error)

	// Delete is a no-op for unknown IDs.
	Delete(ctx context.Context, id string) error

	// List returns summaries, most recently updated first.
	List(ctx context.Context) ([]Summary, error)
}
