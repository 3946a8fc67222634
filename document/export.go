// Package document converts between the editable graph and the portable
// workflow.json document.
//
// A document carries two artifacts. WorkflowData is the logical, name-keyed
// view meant for people and downstream consumers; it drops identities and
// positions and cannot be imported. FlowState is the complete-state capture
// and is the only part read back on import.
package document

import (
	"encoding/json"

	"github.com/meikuraledutech/workflow"
)

const (
	// FileName is the name offered when a document is downloaded.
	FileName = "workflow.json"
	// MIMEType is the media type of a document.
	MIMEType = "application/json"
	// DataVersion is the version written into every WorkflowData.
	DataVersion = 1
)

// WorkflowData is the logical workflow: node configs plus an adjacency list
// keyed by node name. It never contains node identities.
type WorkflowData struct {
	Version       int                   `json:"version,omitempty" yaml:"version,omitempty"`
	Nodes         []workflow.NodeConfig `json:"nodes" yaml:"nodes"`
	AdjacencyList AdjacencyList         `json:"adjacencyList" yaml:"adjacencyList"`
}

// Document is the workflow.json envelope.
type Document struct {
	WorkflowData WorkflowData       `json:"workflowData"`
	FlowState    workflow.FlowState `json:"flowState"`
}

// Source is anything that can produce a complete-state capture, typically a
// *graph.Store.
type Source interface {
	Snapshot() workflow.FlowState
}

// Export snapshots src and builds both artifacts from the same snapshot.
func Export(src Source) Document {
	return FromState(src.Snapshot())
}

// FromState builds a document from a complete-state capture.
func FromState(state workflow.FlowState) Document {
	state = state.Clone()
	if state.Version == 0 {
		state.Version = workflow.StateVersion
	}
	return Document{
		WorkflowData: Logical(state),
		FlowState:    state,
	}
}

// Logical projects state onto its name-keyed view. Configs follow node
// insertion order; edges are folded in insertion order, so targets of one
// source keep the order they were connected in.
func Logical(state workflow.FlowState) WorkflowData {
	names := BuildNameIndex(state.Nodes)

	data := WorkflowData{
		Version: DataVersion,
		Nodes:   make([]workflow.NodeConfig, 0, len(state.Nodes)),
	}
	for _, n := range state.Nodes {
		data.Nodes = append(data.Nodes, n.Data.Clone())
	}
	for _, e := range state.Edges {
		data.AdjacencyList.Append(names[e.Source], names[e.Target])
	}
	return data
}

// Marshal renders d as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
