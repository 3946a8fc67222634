// Package graph holds the editable workflow graph of one editing session.
package graph

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/internal/logging"
)

// Store is the single source of truth for the nodes and edges of an editing
// session. Every mutation goes through it.
//
// Nodes and edges keep their insertion order. Store is safe for concurrent
// use; each call is applied as one discrete interaction.
type Store struct {
	mu       sync.Mutex
	nodes    []workflow.GraphNode
	edges    []workflow.GraphEdge
	selected string
	ids      minter
	rand     *rand.Rand
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRolePrefixedIDs mints agent_<n> and supervisor_<n> instead of node_<n>.
func WithRolePrefixedIDs() Option {
	return func(s *Store) {
		s.ids.rolePrefixed = true
	}
}

// WithRand sets the source used to place nodes added without a position.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) {
		s.rand = r
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// NodeOption customises a node created by AddNode.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	config   *workflow.NodeConfig
	position *workflow.Position
}

// WithConfig creates the node with cfg instead of the role's default config.
func WithConfig(cfg workflow.NodeConfig) NodeOption {
	return func(o *nodeOptions) {
		o.config = &cfg
	}
}

// WithPosition places the node at p instead of a random position.
func WithPosition(p workflow.Position) NodeOption {
	return func(o *nodeOptions) {
		o.position = &p
	}
}

// AddNode creates a node for role and returns its freshly minted identity.
// A config supplied with WithConfig must have the same role.
func (s *Store) AddNode(role workflow.Role, opts ...NodeOption) (string, error) {
	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := workflow.NewNodeConfig(role)
	if err != nil {
		return "", err
	}
	if o.config != nil {
		if o.config.Role() != role {
			return "", fmt.Errorf("%w: config role %q does not match %q", workflow.ErrInvalidConfig, o.config.Role(), role)
		}
		if err := o.config.Validate(); err != nil {
			return "", err
		}
		cfg = o.config.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := workflow.Position{
		X: s.rand.Float64()*300 + 100,
		Y: s.rand.Float64()*300 + 100,
	}
	if o.position != nil {
		pos = *o.position
	}

	id := s.ids.mint(role)
	for s.indexOf(id) >= 0 {
		id = s.ids.mint(role)
	}
	s.nodes = append(s.nodes, workflow.GraphNode{
		ID:       id,
		Type:     role.NodeType(),
		Position: pos,
		Data:     cfg,
	})
	s.logger.Debug("node added", "id", id, "role", role)
	return id, nil
}

// Connect adds the edge from source to target. Connecting the same ordered
// pair again returns the existing edge.
func (s *Store) Connect(source, target string) (workflow.GraphEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source == target {
		return workflow.GraphEdge{}, fmt.Errorf("%w: self loop on %q", workflow.ErrInvalidConnection, source)
	}
	if s.indexOf(source) < 0 {
		return workflow.GraphEdge{}, fmt.Errorf("%w: unknown source %q", workflow.ErrInvalidConnection, source)
	}
	if s.indexOf(target) < 0 {
		return workflow.GraphEdge{}, fmt.Errorf("%w: unknown target %q", workflow.ErrInvalidConnection, target)
	}

	for _, e := range s.edges {
		if e.Source == source && e.Target == target {
			return e, nil
		}
	}
	edge := workflow.NewEdge(source, target)
	s.edges = append(s.edges, edge)
	s.logger.Debug("edge added", "id", edge.ID)
	return edge, nil
}

// UpdateNodeConfig replaces the config of node id wholesale.
// The role of cfg must equal the node's role; on any error the previous
// config is kept.
func (s *Store) UpdateNodeConfig(id string, cfg workflow.NodeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateConfig(id, cfg)
}

func (s *Store) updateConfig(id string, cfg workflow.NodeConfig) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownNode, id)
	}
	current := s.nodes[i].Data.Role()
	if cfg.Role() != current {
		return fmt.Errorf("%w: node %q is %s, got %q", workflow.ErrInvalidRoleChange, id, current, cfg.Role())
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.nodes[i].Data = cfg.Clone()
	s.logger.Debug("node config updated", "id", id)
	return nil
}

// MoveNode sets the canvas position of node id.
func (s *Store) MoveNode(id string, p workflow.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownNode, id)
	}
	s.nodes[i].Position = p
	return nil
}

// RemoveNode deletes node id together with every edge touching it.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownNode, id)
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	s.edges = slices.DeleteFunc(s.edges, func(e workflow.GraphEdge) bool {
		return e.Source == id || e.Target == id
	})
	if s.selected == id {
		s.selected = ""
	}
	s.logger.Debug("node removed", "id", id)
	return nil
}

// Select marks node id as the node being configured.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %q", workflow.ErrUnknownNode, id)
	}
	s.selected = id
	return nil
}

// Selected returns the selected node, if any.
func (s *Store) Selected() (workflow.GraphNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(s.selected)
	if s.selected == "" || i < 0 {
		return workflow.GraphNode{}, false
	}
	return s.nodes[i].Clone(), true
}

// UpdateSelected applies a config-panel edit to the selected node.
func (s *Store) UpdateSelected(cfg workflow.NodeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return fmt.Errorf("%w: no node selected", workflow.ErrUnknownNode)
	}
	return s.updateConfig(s.selected, cfg)
}

// ClearSelection deselects the selected node.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Node returns a copy of node id.
func (s *Store) Node(id string) (workflow.GraphNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return workflow.GraphNode{}, false
	}
	return s.nodes[i].Clone(), true
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// Clear removes every node and edge and resets the selection.
// Identities handed out before are still never reused.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = nil
	s.edges = nil
	s.selected = ""
	s.logger.Debug("graph cleared")
}

// Snapshot returns a deep copy of the graph in insertion order.
func (s *Store) Snapshot() workflow.FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := workflow.FlowState{Nodes: s.nodes, Edges: s.edges}.Clone()
	state.Version = workflow.StateVersion
	return state
}

// Restore replaces the graph with state. The state is validated first; on
// failure the store is left untouched and ErrMalformedDocument is returned.
// Identities minted afterwards never collide with restored ones.
func (s *Store) Restore(state workflow.FlowState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	state = state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = state.Nodes
	s.edges = state.Edges
	s.selected = ""

	ids := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.ID
	}
	s.ids.reseed(ids)
	s.logger.Debug("graph restored", "nodes", len(s.nodes), "edges", len(s.edges))
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.nodes, func(n workflow.GraphNode) bool { return n.ID == id })
}
