package workflow

import (
	"fmt"
	"slices"
)

// Role is the kind of a workflow node. It is fixed when the node is created.
type Role string

const (
	RoleAgent      Role = "AGENT"
	RoleSupervisor Role = "SUPERVISOR"
)

// Roles lists every node role in display order.
var Roles = []Role{RoleSupervisor, RoleAgent}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleSupervisor
}

// NodeType returns the renderer key used by the visual graph for this role.
func (r Role) NodeType() NodeType {
	switch r {
	case RoleAgent:
		return NodeTypeAgent
	case RoleSupervisor:
		return NodeTypeSupervisor
	}
	return ""
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, s)
	}
	return r, nil
}

// NodeType is the renderer key of a graph node ("agent", "supervisor").
type NodeType string

const (
	NodeTypeAgent      NodeType = "agent"
	NodeTypeSupervisor NodeType = "supervisor"
)

// Role returns the role rendered by t.
func (t NodeType) Role() Role {
	switch t {
	case NodeTypeAgent:
		return RoleAgent
	case NodeTypeSupervisor:
		return RoleSupervisor
	}
	return ""
}

// NodeTypes maps every role to its renderer key.
func NodeTypes() map[Role]NodeType {
	return map[Role]NodeType{
		RoleAgent:      NodeTypeAgent,
		RoleSupervisor: NodeTypeSupervisor,
	}
}

// Tool is an agent capability from a closed catalog.
type Tool string

const (
	ToolGetOrderDetailsMF Tool = "get_order_details_mf"
	ToolGetCancelledSipMF Tool = "get_cancelled_sip_mf"
)

// Tools is the tool catalog.
var Tools = []Tool{ToolGetOrderDetailsMF, ToolGetCancelledSipMF}

// Valid reports whether t is in the catalog.
func (t Tool) Valid() bool { return slices.Contains(Tools, t) }

// SopFunction is a standard operating procedure an agent may invoke.
type SopFunction string

const (
	SopGetSipSop SopFunction = "get_sip_sop"
)

// SopFunctions is the SOP function catalog.
var SopFunctions = []SopFunction{SopGetSipSop}

// Valid reports whether f is in the catalog.
func (f SopFunction) Valid() bool { return slices.Contains(SopFunctions, f) }

// HumanType is the interaction kind of a supervisor's human node.
type HumanType string

const (
	HumanOrderPicker HumanType = "ORDER_PICKER"
	HumanText        HumanType = "TEXT"
)

// HumanTypes is the human node type catalog. The first entry is the default
// for newly added humans.
var HumanTypes = []HumanType{HumanOrderPicker, HumanText}

// Valid reports whether h is in the catalog.
func (h HumanType) Valid() bool { return slices.Contains(HumanTypes, h) }

// Catalog groups every closed enumeration a config editor offers.
type Catalog struct {
	Roles        []Role            `json:"roles"`
	NodeTypes    map[Role]NodeType `json:"node_types"`
	Tools        []Tool            `json:"tools"`
	SopFunctions []SopFunction     `json:"sop_functions"`
	HumanTypes   []HumanType       `json:"human_types"`
}

// DefaultCatalog returns a copy of the built-in catalogs.
func DefaultCatalog() Catalog {
	return Catalog{
		Roles:        slices.Clone(Roles),
		NodeTypes:    NodeTypes(),
		Tools:        slices.Clone(Tools),
		SopFunctions: slices.Clone(SopFunctions),
		HumanTypes:   slices.Clone(HumanTypes),
	}
}
