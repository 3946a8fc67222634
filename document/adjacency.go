package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// AdjacencyList maps a node name to the names of its successors.
// Keys keep the order in which they were first added, and so do the target
// lists; nothing is sorted or deduplicated.
type AdjacencyList struct {
	keys    []string
	targets map[string][]string
}

// Append adds target to the successors of source, creating the key on first use.
func (l *AdjacencyList) Append(source, target string) {
	if l.targets == nil {
		l.targets = make(map[string][]string)
	}
	if _, ok := l.targets[source]; !ok {
		l.keys = append(l.keys, source)
	}
	l.targets[source] = append(l.targets[source], target)
}

// Keys returns the source names in first-occurrence order.
func (l AdjacencyList) Keys() []string {
	return slices.Clone(l.keys)
}

// Targets returns the successors of name.
func (l AdjacencyList) Targets(name string) []string {
	return slices.Clone(l.targets[name])
}

// Len returns the number of keys.
func (l AdjacencyList) Len() int {
	return len(l.keys)
}

// Map returns the list as a plain map.
func (l AdjacencyList) Map() map[string][]string {
	m := make(map[string][]string, len(l.keys))
	for _, k := range l.keys {
		m[k] = slices.Clone(l.targets[k])
	}
	return m
}

// MarshalJSON writes a JSON object whose keys are in first-occurrence order.
func (l AdjacencyList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range l.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		targets, err := json.Marshal(l.targets[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(targets)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string arrays, keeping key order.
// A repeated key extends the earlier list.
func (l *AdjacencyList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = AdjacencyList{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("adjacency list must be an object")
	}

	out := AdjacencyList{targets: make(map[string][]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("adjacency list key must be a string")
		}
		var targets []string
		if err := dec.Decode(&targets); err != nil {
			return fmt.Errorf("adjacency list %q: %w", key, err)
		}
		if _, seen := out.targets[key]; !seen {
			out.keys = append(out.keys, key)
			out.targets[key] = []string{}
		}
		out.targets[key] = append(out.targets[key], targets...)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

// MarshalYAML emits a mapping in first-occurrence order.
func (l AdjacencyList) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range l.keys {
		var v yaml.Node
		if err := v.Encode(l.targets[k]); err != nil {
			return nil, err
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, &v)
	}
	return n, nil
}
