package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/memory"
	"github.com/meikuraledutech/workflow/workflowtest"
)

func TestMemoryStore_Contract(t *testing.T) {
	workflowtest.RunRepositoryContract(t, memory.New())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	saved, err := s.Save(ctx, &workflow.Workflow{Name: "demo", State: workflowtest.SampleState()})
	require.NoError(t, err)

	saved.State.Nodes[0].Data.Name = "mutated"
	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Agent 1", got.State.Nodes[0].Data.Name)

	got.State.Nodes = nil
	again, _ := s.Get(ctx, saved.ID)
	assert.Len(t, again.State.Nodes, 2)
}

func TestMemoryStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := memory.New(memory.WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))

	_, _ = s.Save(ctx, &workflow.Workflow{ID: "old"})
	_, _ = s.Save(ctx, &workflow.Workflow{ID: "new"})

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := memory.New(memory.WithTTL(10 * time.Millisecond))

	saved, err := s.Save(ctx, &workflow.Workflow{Name: "short"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, saved.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}
