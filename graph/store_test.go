package graph

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/workflow"
)

func newTestStore(opts ...Option) *Store {
	return New(append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)...)
}

func TestAddNode_DefaultConfig(t *testing.T) {
	s := newTestStore()

	id, err := s.AddNode(workflow.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, "node_0", id)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, workflow.NodeTypeAgent, n.Type)
	assert.Equal(t, workflow.RoleAgent, n.Data.Role())
	assert.Empty(t, n.Data.Name)
	assert.False(t, n.Data.IsStartNode)

	agent, ok := n.Data.Agent()
	require.True(t, ok)
	assert.Empty(t, agent.Tools)
	assert.Empty(t, agent.SopFunctions)

	assert.GreaterOrEqual(t, n.Position.X, 100.0)
	assert.Less(t, n.Position.X, 400.0)
	assert.GreaterOrEqual(t, n.Position.Y, 100.0)
	assert.Less(t, n.Position.Y, 400.0)
}

func TestAddNode_WithConfigAndPosition(t *testing.T) {
	s := newTestStore()

	cfg := workflow.NodeConfig{
		Name: "Supervisor 1",
		Spec: workflow.SupervisorSpec{Humans: []workflow.HumanNode{{Name: "h", Type: workflow.HumanText}}},
	}
	id, err := s.AddNode(workflow.RoleSupervisor, WithConfig(cfg), WithPosition(workflow.Position{X: 400, Y: 200}))
	require.NoError(t, err)

	n, _ := s.Node(id)
	assert.Equal(t, workflow.Position{X: 400, Y: 200}, n.Position)
	assert.Equal(t, "Supervisor 1", n.Data.Name)
	assert.Equal(t, workflow.NodeTypeSupervisor, n.Type)
}

func TestAddNode_Rejects(t *testing.T) {
	s := newTestStore()

	_, err := s.AddNode(workflow.Role("ROBOT"))
	assert.ErrorIs(t, err, workflow.ErrInvalidConfig)

	cfg, _ := workflow.NewNodeConfig(workflow.RoleSupervisor)
	_, err = s.AddNode(workflow.RoleAgent, WithConfig(cfg))
	assert.ErrorIs(t, err, workflow.ErrInvalidConfig)

	_, err = s.AddNode(workflow.RoleAgent, WithConfig(workflow.NodeConfig{
		Spec: workflow.AgentSpec{Tools: []workflow.Tool{"rm_rf"}},
	}))
	assert.ErrorIs(t, err, workflow.ErrInvalidConfig)
	assert.Equal(t, 0, s.Len())
}

func TestAddNode_RolePrefixedIDs(t *testing.T) {
	s := newTestStore(WithRolePrefixedIDs())

	a, _ := s.AddNode(workflow.RoleAgent)
	b, _ := s.AddNode(workflow.RoleSupervisor)
	assert.Equal(t, "agent_0", a)
	assert.Equal(t, "supervisor_1", b)
}

func TestConnect(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)
	b, _ := s.AddNode(workflow.RoleSupervisor)

	e, err := s.Connect(a, b)
	require.NoError(t, err)
	assert.Equal(t, workflow.GraphEdge{ID: "node_0-node_1", Source: a, Target: b}, e)

	again, err := s.Connect(a, b)
	require.NoError(t, err)
	assert.Equal(t, e, again)
	assert.Len(t, s.Snapshot().Edges, 1)

	// The reverse direction is a different edge.
	_, err = s.Connect(b, a)
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Edges, 2)
}

func TestConnect_MatchesOrderedPair(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)
	b, _ := s.AddNode(workflow.RoleAgent)
	c, _ := s.AddNode(workflow.RoleAgent)

	ab, err := s.Connect(a, b)
	require.NoError(t, err)
	bc, err := s.Connect(b, c)
	require.NoError(t, err)

	ac, err := s.Connect(a, c)
	require.NoError(t, err)
	assert.Equal(t, a, ac.Source)
	assert.Equal(t, c, ac.Target)
	assert.Equal(t, []workflow.GraphEdge{ab, bc, ac}, s.Snapshot().Edges)
}

func TestConnect_Invalid(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)

	_, err := s.Connect(a, a)
	assert.ErrorIs(t, err, workflow.ErrInvalidConnection)

	_, err = s.Connect(a, "node_42")
	assert.ErrorIs(t, err, workflow.ErrInvalidConnection)

	_, err = s.Connect("node_42", a)
	assert.ErrorIs(t, err, workflow.ErrInvalidConnection)

	assert.Empty(t, s.Snapshot().Edges)
}

func TestUpdateNodeConfig(t *testing.T) {
	s := newTestStore()
	id, _ := s.AddNode(workflow.RoleAgent)

	cfg := workflow.NodeConfig{
		Name:         "Agent 1",
		Description:  "Looks up orders",
		Instructions: "Be brief",
		IsStartNode:  true,
		Spec:         workflow.AgentSpec{}.AddTool(workflow.ToolGetOrderDetailsMF).AddSopFunction(workflow.SopGetSipSop),
	}
	require.NoError(t, s.UpdateNodeConfig(id, cfg))

	n, _ := s.Node(id)
	assert.Equal(t, cfg.Clone(), n.Data)
}

func TestUpdateNodeConfig_RoleChange(t *testing.T) {
	s := newTestStore()
	id, _ := s.AddNode(workflow.RoleAgent, WithConfig(workflow.NodeConfig{Name: "keep", Spec: workflow.AgentSpec{}}))

	err := s.UpdateNodeConfig(id, workflow.NodeConfig{Name: "changed", Spec: workflow.SupervisorSpec{}})
	assert.ErrorIs(t, err, workflow.ErrInvalidRoleChange)

	err = s.UpdateNodeConfig(id, workflow.NodeConfig{Name: "changed"})
	assert.ErrorIs(t, err, workflow.ErrInvalidRoleChange)

	n, _ := s.Node(id)
	assert.Equal(t, "keep", n.Data.Name)
	assert.Equal(t, workflow.RoleAgent, n.Data.Role())
}

func TestUpdateNodeConfig_UnknownNode(t *testing.T) {
	s := newTestStore()
	err := s.UpdateNodeConfig("node_9", workflow.NodeConfig{Spec: workflow.AgentSpec{}})
	assert.ErrorIs(t, err, workflow.ErrUnknownNode)
}

func TestUpdateNodeConfig_DoesNotAliasCaller(t *testing.T) {
	s := newTestStore()
	id, _ := s.AddNode(workflow.RoleSupervisor)

	humans := []workflow.HumanNode{{Name: "h1", Type: workflow.HumanText}}
	require.NoError(t, s.UpdateNodeConfig(id, workflow.NodeConfig{Spec: workflow.SupervisorSpec{Humans: humans}}))
	humans[0].Name = "mutated"

	n, _ := s.Node(id)
	sup, _ := n.Data.Supervisor()
	assert.Equal(t, "h1", sup.Humans[0].Name)
}

func TestRemoveNode(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)
	b, _ := s.AddNode(workflow.RoleAgent)
	c, _ := s.AddNode(workflow.RoleSupervisor)
	_, _ = s.Connect(a, b)
	_, _ = s.Connect(b, c)
	_, _ = s.Connect(a, c)
	require.NoError(t, s.Select(b))

	require.NoError(t, s.RemoveNode(b))

	snap := s.Snapshot()
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, []workflow.GraphEdge{workflow.NewEdge(a, c)}, snap.Edges)
	_, ok := s.Selected()
	assert.False(t, ok)

	assert.ErrorIs(t, s.RemoveNode(b), workflow.ErrUnknownNode)

	// Identities are not reused after deletion.
	d, _ := s.AddNode(workflow.RoleAgent)
	assert.Equal(t, "node_3", d)
}

func TestMoveNode(t *testing.T) {
	s := newTestStore()
	id, _ := s.AddNode(workflow.RoleAgent)

	require.NoError(t, s.MoveNode(id, workflow.Position{X: -5, Y: 12.5}))
	n, _ := s.Node(id)
	assert.Equal(t, workflow.Position{X: -5, Y: 12.5}, n.Position)

	assert.ErrorIs(t, s.MoveNode("nope", workflow.Position{}), workflow.ErrUnknownNode)
}

func TestSelection(t *testing.T) {
	s := newTestStore()
	id, _ := s.AddNode(workflow.RoleSupervisor)

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.ErrorIs(t, s.UpdateSelected(workflow.NodeConfig{Spec: workflow.SupervisorSpec{}}), workflow.ErrUnknownNode)
	assert.ErrorIs(t, s.Select("node_7"), workflow.ErrUnknownNode)

	require.NoError(t, s.Select(id))
	sel, ok := s.Selected()
	require.True(t, ok)
	sup, _ := sel.Data.Supervisor()

	cfg := sel.Data
	cfg.Name = "Supervisor 1"
	cfg.Spec = sup.AddHuman()
	require.NoError(t, s.UpdateSelected(cfg))

	sel, _ = s.Selected()
	assert.Equal(t, "Supervisor 1", sel.Data.Name)
	sup, _ = sel.Data.Supervisor()
	require.Len(t, sup.Humans, 1)
	assert.Equal(t, "human_1", sup.Humans[0].Name)

	s.ClearSelection()
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)
	b, _ := s.AddNode(workflow.RoleAgent)
	_, _ = s.Connect(a, b)
	require.NoError(t, s.Select(a))

	s.Clear()

	snap := s.Snapshot()
	assert.Empty(t, snap.Nodes)
	assert.Empty(t, snap.Edges)
	_, ok := s.Selected()
	assert.False(t, ok)

	c, _ := s.AddNode(workflow.RoleAgent)
	assert.Equal(t, "node_2", c)
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := newTestStore()
	id, _ := s.AddNode(workflow.RoleAgent, WithConfig(workflow.NodeConfig{
		Name: "a",
		Spec: workflow.AgentSpec{Tools: []workflow.Tool{workflow.ToolGetCancelledSipMF}},
	}))

	snap := s.Snapshot()
	assert.Equal(t, workflow.StateVersion, snap.Version)
	snap.Nodes[0].Data.Name = "mutated"
	agent, _ := snap.Nodes[0].Data.Agent()
	agent.Tools[0] = workflow.ToolGetOrderDetailsMF

	n, _ := s.Node(id)
	assert.Equal(t, "a", n.Data.Name)
	agent, _ = n.Data.Agent()
	assert.Equal(t, workflow.ToolGetCancelledSipMF, agent.Tools[0])
}

func TestRestore(t *testing.T) {
	src := newTestStore()
	a, _ := src.AddNode(workflow.RoleAgent, WithPosition(workflow.Position{X: 100, Y: 100}))
	b, _ := src.AddNode(workflow.RoleSupervisor, WithPosition(workflow.Position{X: 400, Y: 200}))
	_, _ = src.Connect(a, b)
	snap := src.Snapshot()

	dst := newTestStore()
	_, _ = dst.AddNode(workflow.RoleAgent)
	require.NoError(t, dst.Select("node_0"))

	require.NoError(t, dst.Restore(snap))
	assert.Equal(t, snap, dst.Snapshot())
	_, ok := dst.Selected()
	assert.False(t, ok)
}

func TestRestore_ReseedsCounter(t *testing.T) {
	s := newTestStore()
	cfg, _ := workflow.NewNodeConfig(workflow.RoleAgent)
	state := workflow.FlowState{
		Nodes: []workflow.GraphNode{
			{ID: "node_7", Type: workflow.NodeTypeAgent, Data: cfg},
			{ID: "supervisor_12", Type: workflow.NodeTypeAgent, Data: cfg},
			{ID: "custom", Type: workflow.NodeTypeAgent, Data: cfg},
		},
	}
	require.NoError(t, s.Restore(state))

	id, err := s.AddNode(workflow.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, "node_13", id)
}

func TestRestore_NeverRewindsCounter(t *testing.T) {
	s := newTestStore()
	for range 5 {
		_, _ = s.AddNode(workflow.RoleAgent)
	}
	require.NoError(t, s.Restore(workflow.FlowState{}))

	id, _ := s.AddNode(workflow.RoleAgent)
	assert.Equal(t, "node_5", id)
}

func TestRestore_MaxSuffixDoesNotWrapCounter(t *testing.T) {
	s := newTestStore()
	cfg, _ := workflow.NewNodeConfig(workflow.RoleAgent)
	state := workflow.FlowState{
		Nodes: []workflow.GraphNode{
			{ID: fmt.Sprintf("node_%d", math.MaxInt), Type: workflow.NodeTypeAgent, Data: cfg},
			{ID: "node_0", Type: workflow.NodeTypeAgent, Data: cfg},
		},
	}
	require.NoError(t, s.Restore(state))

	for range 3 {
		_, err := s.AddNode(workflow.RoleAgent)
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for _, n := range s.Snapshot().Nodes {
		assert.False(t, seen[n.ID], "identity %q appears twice", n.ID)
		seen[n.ID] = true
	}
	assert.Len(t, seen, 5)
}

func TestRestore_RejectsSeparatorInIDs(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)
	before := s.Snapshot()

	cfg, _ := workflow.NewNodeConfig(workflow.RoleAgent)
	state := workflow.FlowState{
		Nodes: []workflow.GraphNode{
			{ID: "a", Type: workflow.NodeTypeAgent, Data: cfg},
			{ID: "a-b", Type: workflow.NodeTypeAgent, Data: cfg},
			{ID: "b-c", Type: workflow.NodeTypeAgent, Data: cfg},
			{ID: "c", Type: workflow.NodeTypeAgent, Data: cfg},
		},
		Edges: []workflow.GraphEdge{workflow.NewEdge("a-b", "c")},
	}
	assert.ErrorIs(t, s.Restore(state), workflow.ErrMalformedDocument)
	assert.Equal(t, before, s.Snapshot())

	_, err := s.Connect(a, "b-c")
	assert.ErrorIs(t, err, workflow.ErrInvalidConnection)
}

func TestRestore_InvalidLeavesStoreUntouched(t *testing.T) {
	s := newTestStore()
	a, _ := s.AddNode(workflow.RoleAgent)
	before := s.Snapshot()

	cfg, _ := workflow.NewNodeConfig(workflow.RoleAgent)
	bad := workflow.FlowState{
		Nodes: []workflow.GraphNode{{ID: "x", Type: workflow.NodeTypeAgent, Data: cfg}},
		Edges: []workflow.GraphEdge{workflow.NewEdge("x", "missing")},
	}
	err := s.Restore(bad)
	assert.ErrorIs(t, err, workflow.ErrMalformedDocument)
	assert.Equal(t, before, s.Snapshot())

	_, ok := s.Node(a)
	assert.True(t, ok)
}
