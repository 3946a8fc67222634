package document

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// YAML renders the logical workflow as YAML, for reading and review.
func (d WorkflowData) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
