package workflow

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StateVersion is the version written into every complete-state capture.
const StateVersion = 1

// Position is the canvas location of a node. It is carried through export
// and import but never interpreted.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GraphNode is a vertex of the editable graph.
// Type is the renderer key and always matches Data's role.
type GraphNode struct {
	ID       string     `json:"id" validate:"required"`
	Type     NodeType   `json:"type" validate:"required,oneof=agent supervisor"`
	Position Position   `json:"position"`
	Data     NodeConfig `json:"data"`
}

// Clone returns a deep copy of n.
func (n GraphNode) Clone() GraphNode {
	n.Data = n.Data.Clone()
	return n
}

// GraphEdge is a directed connection between two nodes.
// Its ID is derived from the ordered (Source, Target) pair, see EdgeID.
type GraphEdge struct {
	ID     string `json:"id" validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

const edgeSeparator = "-"

// EdgeID returns the identifier of the edge from source to target.
// Node ids never contain the separator, so the pair is recoverable.
func EdgeID(source, target string) string {
	return source + edgeSeparator + target
}

// NewEdge builds the edge from source to target.
func NewEdge(source, target string) GraphEdge {
	return GraphEdge{ID: EdgeID(source, target), Source: source, Target: target}
}

// FlowState is the complete-state capture of a graph: node identities,
// positions, configs and edges. It is the only artifact that supports exact
// restoration.
type FlowState struct {
	Version int         `json:"version,omitempty" validate:"gte=0"`
	Nodes   []GraphNode `json:"nodes" validate:"dive"`
	Edges   []GraphEdge `json:"edges" validate:"dive"`
}

// Clone returns a deep copy of s. Nil slices come back empty.
func (s FlowState) Clone() FlowState {
	out := FlowState{
		Version: s.Version,
		Nodes:   make([]GraphNode, 0, len(s.Nodes)),
		Edges:   make([]GraphEdge, 0, len(s.Edges)),
	}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	out.Edges = append(out.Edges, s.Edges...)
	return out
}

// Workflow is a FlowState persisted under an ID by a Repository.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     FlowState `json:"flowState"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary describes a persisted workflow without its graph.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summarize returns the summary of w.
func (w *Workflow) Summarize() Summary {
	return Summary{
		ID:        w.ID,
		Name:      w.Name,
		Nodes:     len(w.State.Nodes),
		Edges:     len(w.State.Edges),
		UpdatedAt: w.UpdatedAt,
	}
}

// SortSummaries orders list most recently updated first, then by ID.
func SortSummaries(list []Summary) {
	slices.SortFunc(list, func(a, b Summary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Prepare validates w and returns the copy a Repository stores: the state is
// deep-copied and versioned, an empty ID gets a UUID and UpdatedAt is set to
// now, truncated to microseconds so every backend stores it exactly.
func (w *Workflow) Prepare(now time.Time) (*Workflow, error) {
	if err := w.State.Validate(); err != nil {
		return nil, err
	}
	out := &Workflow{
		ID:        w.ID,
		Name:      w.Name,
		State:     w.State.Clone(),
		UpdatedAt: now.UTC().Truncate(time.Microsecond),
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.State.Version == 0 {
		out.State.Version = StateVersion
	}
	return out, nil
}

// Clone returns a deep copy of w.
func (w *Workflow) Clone() *Workflow {
	out := *w
	out.State = w.State.Clone()
	return &out
}
