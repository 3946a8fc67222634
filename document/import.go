package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/meikuraledutech/workflow"
)

// DefaultMaxBytes caps how much of an uploaded document is read.
const DefaultMaxBytes int64 = 10 << 20

// Restorer replaces its graph with a complete-state capture, typically a
// *graph.Store.
type Restorer interface {
	Restore(state workflow.FlowState) error
}

// ImportOption configures Import.
type ImportOption func(*importOptions)

type importOptions struct {
	maxBytes int64
}

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) ImportOption {
	return func(o *importOptions) {
		o.maxBytes = n
	}
}

// Import reads a whole document from r, decodes it once and restores its
// complete-state capture into dst. Any failure leaves dst untouched.
func Import(r io.Reader, dst Restorer, opts ...ImportOption) error {
	o := importOptions{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(io.LimitReader(r, o.maxBytes+1))
	if err != nil {
		return fmt.Errorf("workflow: read document: %w", err)
	}
	if int64(len(data)) > o.maxBytes {
		return fmt.Errorf("%w: larger than %d bytes", workflow.ErrMalformedDocument, o.maxBytes)
	}

	state, err := Decode(data)
	if err != nil {
		return err
	}
	return dst.Restore(state)
}

// Decode parses a document and returns its validated complete-state capture.
// workflowData, if present, is ignored.
func Decode(data []byte) (workflow.FlowState, error) {
	var env struct {
		FlowState json.RawMessage `json:"flowState"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return workflow.FlowState{}, fmt.Errorf("%w: %v", workflow.ErrMalformedDocument, err)
	}

	raw := bytes.TrimSpace(env.FlowState)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return workflow.FlowState{}, fmt.Errorf("%w: missing flowState", workflow.ErrMalformedDocument)
	}
	if raw[0] != '{' {
		return workflow.FlowState{}, fmt.Errorf("%w: flowState must be an object", workflow.ErrMalformedDocument)
	}

	var state workflow.FlowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return workflow.FlowState{}, fmt.Errorf("%w: flowState: %v", workflow.ErrMalformedDocument, err)
	}
	if err := state.Validate(); err != nil {
		return workflow.FlowState{}, err
	}
	return state.Clone(), nil
}

// CheckFileName rejects uploads whose name does not end in .json.
func CheckFileName(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return fmt.Errorf("%w: %q is not a .json file", workflow.ErrMalformedDocument, name)
	}
	return nil
}
