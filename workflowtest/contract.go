// Package workflowtest holds a reusable test suite for workflow.Repository
// implementations.
package workflowtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/workflow"
)

// SampleState returns a small valid graph: an agent feeding a supervisor.
func SampleState() workflow.FlowState {
	agent, _ := workflow.NewNodeConfig(workflow.RoleAgent)
	agent.Name = "Agent 1"
	agent.IsStartNode = true
	agent.Spec = workflow.AgentSpec{}.AddTool(workflow.ToolGetOrderDetailsMF)

	sup, _ := workflow.NewNodeConfig(workflow.RoleSupervisor)
	sup.Name = "Supervisor 1"
	sup.Spec = workflow.SupervisorSpec{}.AddHuman()

	return workflow.FlowState{
		Version: workflow.StateVersion,
		Nodes: []workflow.GraphNode{
			{ID: "node_0", Type: workflow.NodeTypeAgent, Position: workflow.Position{X: 100, Y: 100.5}, Data: agent},
			{ID: "node_1", Type: workflow.NodeTypeSupervisor, Position: workflow.Position{X: 400, Y: 200}, Data: sup},
		},
		Edges: []workflow.GraphEdge{workflow.NewEdge("node_0", "node_1")},
	}
}

// RunRepositoryContract verifies that repo behaves as a workflow.Repository.
// repo must start empty.
func RunRepositoryContract(t *testing.T, repo workflow.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		in := &workflow.Workflow{Name: "demo", State: SampleState()}
		saved, err := repo.Save(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.False(t, saved.UpdatedAt.IsZero())
		assert.Empty(t, in.ID, "input must not be modified")

		got, err := repo.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, "demo", got.Name)
		assert.Equal(t, SampleState(), got.State)
		assert.True(t, saved.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", saved.UpdatedAt, got.UpdatedAt)

		require.NoError(t, repo.Delete(ctx, saved.ID))
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		first, err := repo.Save(ctx, &workflow.Workflow{ID: "replace-me", Name: "v1", State: SampleState()})
		require.NoError(t, err)
		assert.Equal(t, "replace-me", first.ID)

		state := SampleState()
		state.Edges = nil
		state.Nodes = state.Nodes[:1]
		_, err = repo.Save(ctx, &workflow.Workflow{ID: "replace-me", Name: "v2", State: state})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "replace-me")
		require.NoError(t, err)
		assert.Equal(t, "v2", got.Name)
		assert.Len(t, got.State.Nodes, 1)
		assert.NotNil(t, got.State.Edges)
		assert.Empty(t, got.State.Edges)

		require.NoError(t, repo.Delete(ctx, "replace-me"))
	})

	t.Run("SaveEmptyState", func(t *testing.T) {
		saved, err := repo.Save(ctx, &workflow.Workflow{Name: "blank"})
		require.NoError(t, err)

		got, err := repo.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, workflow.StateVersion, got.State.Version)
		assert.NotNil(t, got.State.Nodes)
		assert.Empty(t, got.State.Nodes)

		require.NoError(t, repo.Delete(ctx, saved.ID))
	})

	t.Run("SaveRejectsInvalidState", func(t *testing.T) {
		state := SampleState()
		state.Edges = append(state.Edges, workflow.NewEdge("node_0", "ghost"))
		_, err := repo.Save(ctx, &workflow.Workflow{ID: "bad", State: state})
		assert.ErrorIs(t, err, workflow.ErrMalformedDocument)

		_, err = repo.Get(ctx, "bad")
		assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
	})

	t.Run("List", func(t *testing.T) {
		a, err := repo.Save(ctx, &workflow.Workflow{Name: "a", State: SampleState()})
		require.NoError(t, err)
		b, err := repo.Save(ctx, &workflow.Workflow{Name: "b"})
		require.NoError(t, err)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)

		byID := make(map[string]workflow.Summary)
		for _, s := range list {
			byID[s.ID] = s
		}
		require.Contains(t, byID, a.ID)
		require.Contains(t, byID, b.ID)
		assert.Equal(t, 2, byID[a.ID].Nodes)
		assert.Equal(t, 1, byID[a.ID].Edges)
		assert.Equal(t, "b", byID[b.ID].Name)
		assert.Zero(t, byID[b.ID].Nodes)
		assert.False(t, list[0].UpdatedAt.Before(list[1].UpdatedAt), "most recent first")

		require.NoError(t, repo.Delete(ctx, a.ID))
		require.NoError(t, repo.Delete(ctx, b.ID))
	})

	t.Run("Delete", func(t *testing.T) {
		saved, err := repo.Save(ctx, &workflow.Workflow{Name: "gone", State: SampleState()})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, saved.ID))
		_, err = repo.Get(ctx, saved.ID)
		assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)

		assert.NoError(t, repo.Delete(ctx, saved.ID))
		assert.NoError(t, repo.Delete(ctx, "never-existed"))

		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
