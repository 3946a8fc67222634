package workflow

import (
	"encoding/json"
	"fmt"
	"slices"
)

// NodeConfig is the semantic configuration of a workflow node, independent of
// where the node sits on the canvas.
//
// The role-specific part lives in Spec, which is either an AgentSpec or a
// SupervisorSpec. The concrete Spec type is the node's role.
type NodeConfig struct {
	Name         string
	Description  string
	Instructions string
	IsStartNode  bool
	Spec         RoleSpec
}

// RoleSpec is the role-specific half of a NodeConfig. It is implemented only
// by AgentSpec and SupervisorSpec.
type RoleSpec interface {
	Role() Role
	clone() RoleSpec
	validate() error
}

// AgentSpec holds the configuration only agents carry.
type AgentSpec struct {
	Tools        []Tool
	SopFunctions []SopFunction
}

// SupervisorSpec holds the configuration only supervisors carry.
type SupervisorSpec struct {
	Humans []HumanNode
}

// HumanNode is a human-in-the-loop step declared on a supervisor.
type HumanNode struct {
	Name         string    `json:"node_name" yaml:"node_name"`
	Description  string    `json:"node_description" yaml:"node_description"`
	Instructions string    `json:"instructions" yaml:"instructions"`
	Type         HumanType `json:"type" yaml:"type"`
}

// NewNodeConfig returns the default configuration for role: empty strings,
// empty collections and IsStartNode=false.
func NewNodeConfig(role Role) (NodeConfig, error) {
	switch role {
	case RoleAgent:
		return NodeConfig{Spec: AgentSpec{Tools: []Tool{}, SopFunctions: []SopFunction{}}}, nil
	case RoleSupervisor:
		return NodeConfig{Spec: SupervisorSpec{Humans: []HumanNode{}}}, nil
	}
	return NodeConfig{}, fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, role)
}

// Role returns the role of the config, or "" when Spec is unset.
func (c NodeConfig) Role() Role {
	if c.Spec == nil {
		return ""
	}
	return c.Spec.Role()
}

// Agent returns the agent half of the config.
func (c NodeConfig) Agent() (AgentSpec, bool) {
	a, ok := c.Spec.(AgentSpec)
	return a, ok
}

// Supervisor returns the supervisor half of the config.
func (c NodeConfig) Supervisor() (SupervisorSpec, bool) {
	s, ok := c.Spec.(SupervisorSpec)
	return s, ok
}

// Clone returns a deep copy of c. Nil collections come back empty.
func (c NodeConfig) Clone() NodeConfig {
	out := c
	if c.Spec != nil {
		out.Spec = c.Spec.clone()
	}
	return out
}

// Validate checks the role and the catalog membership of every collection.
func (c NodeConfig) Validate() error {
	if c.Spec == nil {
		return fmt.Errorf("%w: missing role", ErrInvalidConfig)
	}
	return c.Spec.validate()
}

// Role implements RoleSpec.
func (AgentSpec) Role() Role { return RoleAgent }

func (a AgentSpec) clone() RoleSpec {
	return AgentSpec{
		Tools:        append([]Tool{}, a.Tools...),
		SopFunctions: append([]SopFunction{}, a.SopFunctions...),
	}
}

func (a AgentSpec) validate() error {
	seen := make(map[Tool]bool, len(a.Tools))
	for _, t := range a.Tools {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown tool %q", ErrInvalidConfig, t)
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate tool %q", ErrInvalidConfig, t)
		}
		seen[t] = true
	}
	seenSop := make(map[SopFunction]bool, len(a.SopFunctions))
	for _, f := range a.SopFunctions {
		if !f.Valid() {
			return fmt.Errorf("%w: unknown sop function %q", ErrInvalidConfig, f)
		}
		if seenSop[f] {
			return fmt.Errorf("%w: duplicate sop function %q", ErrInvalidConfig, f)
		}
		seenSop[f] = true
	}
	return nil
}

// AddTool returns a copy of a with t appended. Adding a tool that is already
// present returns an unchanged copy.
func (a AgentSpec) AddTool(t Tool) AgentSpec {
	out := a.clone().(AgentSpec)
	if !slices.Contains(out.Tools, t) {
		out.Tools = append(out.Tools, t)
	}
	return out
}

// RemoveTool returns a copy of a without t.
func (a AgentSpec) RemoveTool(t Tool) AgentSpec {
	out := a.clone().(AgentSpec)
	out.Tools = slices.DeleteFunc(out.Tools, func(x Tool) bool { return x == t })
	return out
}

// AddSopFunction returns a copy of a with f appended, unless already present.
func (a AgentSpec) AddSopFunction(f SopFunction) AgentSpec {
	out := a.clone().(AgentSpec)
	if !slices.Contains(out.SopFunctions, f) {
		out.SopFunctions = append(out.SopFunctions, f)
	}
	return out
}

// RemoveSopFunction returns a copy of a without f.
func (a AgentSpec) RemoveSopFunction(f SopFunction) AgentSpec {
	out := a.clone().(AgentSpec)
	out.SopFunctions = slices.DeleteFunc(out.SopFunctions, func(x SopFunction) bool { return x == f })
	return out
}

// Role implements RoleSpec.
func (SupervisorSpec) Role() Role { return RoleSupervisor }

func (s SupervisorSpec) clone() RoleSpec {
	return SupervisorSpec{Humans: append([]HumanNode{}, s.Humans...)}
}

func (s SupervisorSpec) validate() error {
	for i, h := range s.Humans {
		if !h.Type.Valid() {
			return fmt.Errorf("%w: human %d: unknown type %q", ErrInvalidConfig, i, h.Type)
		}
	}
	return nil
}

// AddHuman returns a copy of s with a default human appended.
func (s SupervisorSpec) AddHuman() SupervisorSpec {
	out := s.clone().(SupervisorSpec)
	out.Humans = append(out.Humans, HumanNode{
		Name:        fmt.Sprintf("human_%d", len(s.Humans)+1),
		Description: "New human node",
		Type:        HumanTypes[0],
	})
	return out
}

// SetHuman returns a copy of s with the human at index i replaced.
// An out of range index returns an unchanged copy.
func (s SupervisorSpec) SetHuman(i int, h HumanNode) SupervisorSpec {
	out := s.clone().(SupervisorSpec)
	if i >= 0 && i < len(out.Humans) {
		out.Humans[i] = h
	}
	return out
}

// RemoveHuman returns a copy of s without the human at index i.
// An out of range index returns an unchanged copy.
func (s SupervisorSpec) RemoveHuman(i int) SupervisorSpec {
	out := s.clone().(SupervisorSpec)
	if i >= 0 && i < len(out.Humans) {
		out.Humans = slices.Delete(out.Humans, i, i+1)
	}
	return out
}

// nodeConfigJSON is the flat wire shape shared by both roles. Slices are
// pointers so that absent and empty can be told apart.
type nodeConfigJSON struct {
	Name         string         `json:"node_name" yaml:"node_name"`
	Description  string         `json:"node_description" yaml:"node_description"`
	Type         Role           `json:"type" yaml:"type"`
	Instructions string         `json:"instructions" yaml:"instructions"`
	IsStartNode  bool           `json:"is_start_node" yaml:"is_start_node"`
	Humans       *[]HumanNode   `json:"humans,omitempty" yaml:"humans,omitempty"`
	Tools        *[]Tool        `json:"tools,omitempty" yaml:"tools,omitempty"`
	SopFunctions *[]SopFunction `json:"sop_functions,omitempty" yaml:"sop_functions,omitempty"`
}

func (c NodeConfig) wire() nodeConfigJSON {
	c = c.Clone()
	w := nodeConfigJSON{
		Name:         c.Name,
		Description:  c.Description,
		Type:         c.Role(),
		Instructions: c.Instructions,
		IsStartNode:  c.IsStartNode,
	}
	switch spec := c.Spec.(type) {
	case AgentSpec:
		w.Tools = &spec.Tools
		w.SopFunctions = &spec.SopFunctions
	case SupervisorSpec:
		w.Humans = &spec.Humans
	}
	return w
}

// MarshalJSON writes the flat node_name/type/... shape. Only the fields of
// the config's own role are emitted.
func (c NodeConfig) MarshalJSON() ([]byte, error) {
	if c.Spec == nil {
		return nil, fmt.Errorf("%w: missing role", ErrInvalidConfig)
	}
	return json.Marshal(c.wire())
}

// MarshalYAML emits the same shape as MarshalJSON.
func (c NodeConfig) MarshalYAML() (any, error) {
	if c.Spec == nil {
		return nil, fmt.Errorf("%w: missing role", ErrInvalidConfig)
	}
	return c.wire(), nil
}

// UnmarshalJSON reads the flat shape. A non-empty collection that belongs to
// the other role is rejected.
func (c *NodeConfig) UnmarshalJSON(data []byte) error {
	var w nodeConfigJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	cfg := NodeConfig{
		Name:         w.Name,
		Description:  w.Description,
		Instructions: w.Instructions,
		IsStartNode:  w.IsStartNode,
	}
	switch w.Type {
	case RoleAgent:
		if w.Humans != nil && len(*w.Humans) > 0 {
			return fmt.Errorf("%w: agent %q carries humans", ErrInvalidConfig, w.Name)
		}
		spec := AgentSpec{Tools: []Tool{}, SopFunctions: []SopFunction{}}
		if w.Tools != nil {
			spec.Tools = append(spec.Tools, *w.Tools...)
		}
		if w.SopFunctions != nil {
			spec.SopFunctions = append(spec.SopFunctions, *w.SopFunctions...)
		}
		cfg.Spec = spec
	case RoleSupervisor:
		if (w.Tools != nil && len(*w.Tools) > 0) || (w.SopFunctions != nil && len(*w.SopFunctions) > 0) {
			return fmt.Errorf("%w: supervisor %q carries tools", ErrInvalidConfig, w.Name)
		}
		spec := SupervisorSpec{Humans: []HumanNode{}}
		if w.Humans != nil {
			spec.Humans = append(spec.Humans, *w.Humans...)
		}
		cfg.Spec = spec
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, w.Type)
	}
	*c = cfg
	return nil
}
