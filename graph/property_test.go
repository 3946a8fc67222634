package graph

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/meikuraledutech/workflow"
)

// TestProperty_IdentitiesNeverRepeat drives a store through random add,
// remove, clear and restore steps and checks that no identity is minted twice
// or collides with a restored one.
func TestProperty_IdentitiesNeverRepeat(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var opts []Option
		if rapid.Bool().Draw(t, "rolePrefixed") {
			opts = append(opts, WithRolePrefixedIDs())
		}
		s := New(opts...)
		seen := make(map[string]bool)
		roles := rapid.SampledFrom(workflow.Roles)

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := range steps {
			switch rapid.IntRange(0, 9).Draw(t, fmt.Sprintf("op-%d", i)) {
			case 0:
				s.Clear()
			case 1:
				snap := s.Snapshot()
				if len(snap.Nodes) == 0 {
					continue
				}
				victim := rapid.SampledFrom(snap.Nodes).Draw(t, fmt.Sprintf("victim-%d", i))
				if err := s.RemoveNode(victim.ID); err != nil {
					t.Fatalf("remove %s: %v", victim.ID, err)
				}
			case 2:
				// Restore a foreign graph whose ids sit ahead of the counter.
				suffix := rapid.IntRange(0, 200).Draw(t, fmt.Sprintf("suffix-%d", i))
				cfg, _ := workflow.NewNodeConfig(workflow.RoleAgent)
				id := fmt.Sprintf("imported_%d", suffix)
				state := workflow.FlowState{Nodes: []workflow.GraphNode{{ID: id, Type: workflow.NodeTypeAgent, Data: cfg}}}
				if err := s.Restore(state); err != nil {
					t.Fatalf("restore: %v", err)
				}
				seen[id] = true
			default:
				id, err := s.AddNode(roles.Draw(t, fmt.Sprintf("role-%d", i)))
				if err != nil {
					t.Fatalf("add: %v", err)
				}
				if seen[id] {
					t.Fatalf("identity %q handed out twice", id)
				}
				seen[id] = true
			}
		}

		// Identities inside the store are unique.
		ids := make(map[string]bool)
		for _, n := range s.Snapshot().Nodes {
			if ids[n.ID] {
				t.Fatalf("duplicate identity %q in store", n.ID)
			}
			ids[n.ID] = true
		}
	})
}

// TestProperty_ConnectIsIdempotent checks that repeated connections between
// random node pairs never produce two edges with the same ordered pair.
func TestProperty_ConnectIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New()
		n := rapid.IntRange(1, 8).Draw(t, "nodes")
		for range n {
			if _, err := s.AddNode(workflow.RoleAgent); err != nil {
				t.Fatalf("add: %v", err)
			}
		}
		nodes := s.Snapshot().Nodes

		attempts := rapid.IntRange(0, 40).Draw(t, "attempts")
		for i := range attempts {
			a := rapid.SampledFrom(nodes).Draw(t, fmt.Sprintf("a-%d", i))
			b := rapid.SampledFrom(nodes).Draw(t, fmt.Sprintf("b-%d", i))
			_, err := s.Connect(a.ID, b.ID)
			if (a.ID == b.ID) != (err != nil) {
				t.Fatalf("connect(%s, %s) err=%v", a.ID, b.ID, err)
			}
		}

		pairs := make(map[[2]string]bool)
		for _, e := range s.Snapshot().Edges {
			key := [2]string{e.Source, e.Target}
			if pairs[key] {
				t.Fatalf("duplicate edge %s", e.ID)
			}
			pairs[key] = true
		}
	})
}
