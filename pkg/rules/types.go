// Package rules defines resource rule definitions discovered from resource
// agents and the sorted registry that owns them.
package rules

import "strings"

// ReservedTypeName may never be used as a resource type name. It collides with
// the action element of the resource tree configuration.
const ReservedTypeName = "action"

// IsReservedTypeName reports whether name is the reserved type name, ignoring case.
func IsReservedTypeName(name string) bool {
	return strings.EqualFold(name, ReservedTypeName)
}

// AttrFlags is the bitset of markers an agent may set on a parameter.
type AttrFlags uint8

const (
	// AttrRequired marks a parameter that must be supplied by every instance.
	AttrRequired AttrFlags = 1 << iota
	// AttrUnique marks a parameter whose value must be unique across instances.
	AttrUnique
	// AttrPrimary marks the parameter that identifies an instance. At most one per rule.
	AttrPrimary
	// AttrInherit marks a parameter whose value is taken from an ancestor resource.
	AttrInherit
)

// Has reports whether all bits of f are set.
func (a AttrFlags) Has(f AttrFlags) bool {
	return a&f == f
}

// String lists the set flags in display order.
func (a AttrFlags) String() string {
	var parts []string
	if a.Has(AttrPrimary) {
		parts = append(parts, "primary")
	}
	if a.Has(AttrUnique) {
		parts = append(parts, "unique")
	}
	if a.Has(AttrRequired) {
		parts = append(parts, "required")
	}
	if a.Has(AttrInherit) {
		parts = append(parts, "inherit")
	}
	return strings.Join(parts, ",")
}

// Attribute is one parameter declared by a resource agent.
type Attribute struct {
	Name string `json:"name" validate:"required"`

	// Value holds the literal default, or the inheritance expression when
	// Flags has AttrInherit. Nil means no default was declared.
	Value *string `json:"value,omitempty"`

	Flags AttrFlags `json:"flags"`
}

// Default returns the literal default value, if the attribute has one.
func (a *Attribute) Default() (string, bool) {
	if a.Value == nil || a.Flags.Has(AttrInherit) {
		return "", false
	}
	return *a.Value, true
}

// InheritFrom returns the inheritance expression, if the attribute is inherited.
func (a *Attribute) InheritFrom() (string, bool) {
	if a.Value == nil || !a.Flags.Has(AttrInherit) {
		return "", false
	}
	return *a.Value, true
}

// AllDepths is the action depth that matches every check depth.
const AllDepths = -1

// Action is one lifecycle operation an agent supports.
type Action struct {
	Name string `json:"name" validate:"required"`

	// Depth is the OCF check level for status and monitor. AllDepths collapses
	// every depth-specific entry into one.
	Depth int `json:"depth"`

	// Timeout is an advisory timeout in seconds.
	Timeout int `json:"timeout"`

	// Interval is the recurrence interval in seconds.
	Interval int `json:"interval"`
}

// sameSlot implements the action identity rule.
func (a *Action) sameSlot(name string, depth int) bool {
	if a.Name != name {
		return false
	}
	return a.Depth == depth || a.Depth == AllDepths || depth == AllDepths
}

// ChildType constrains which resource types may nest below a rule's instances.
type ChildType struct {
	Name       string `json:"name" validate:"required"`
	StartLevel int    `json:"start_level"`
	StopLevel  int    `json:"stop_level"`
	Forbid     bool   `json:"forbid"`

	// InlineDefined is set when the child type was declared in the resource
	// tree itself rather than by the agent.
	InlineDefined bool `json:"inline_defined"`
}

// RuleDefinition is the catalog entry for one resource type.
type RuleDefinition struct {
	Type         string      `json:"type" validate:"required"`
	AgentPath    string      `json:"agent"`
	Version      string      `json:"version,omitempty"`
	MaxInstances int         `json:"max_instances" validate:"gte=0"`
	Attributes   []Attribute `json:"attributes" validate:"dive"`
	Actions      []Action    `json:"actions" validate:"dive"`
	ChildTypes   []ChildType `json:"child_types" validate:"dive"`
}

// NewRuleDefinition creates an empty rule for the given type and agent.
func NewRuleDefinition(typeName, agentPath string) *RuleDefinition {
	return &RuleDefinition{
		Type:      typeName,
		AgentPath: agentPath,
	}
}

// PrimaryAttribute returns the primary attribute, if the rule declares one.
func (r *RuleDefinition) PrimaryAttribute() (*Attribute, bool) {
	if len(r.Attributes) > 0 && r.Attributes[0].Flags.Has(AttrPrimary) {
		return &r.Attributes[0], true
	}
	return nil, false
}

// Attribute looks up an attribute by name.
func (r *RuleDefinition) Attribute(name string) (*Attribute, bool) {
	for i := range r.Attributes {
		if r.Attributes[i].Name == name {
			return &r.Attributes[i], true
		}
	}
	return nil, false
}

// Action looks up the action slot for name at depth, honoring AllDepths.
func (r *RuleDefinition) Action(name string, depth int) (*Action, bool) {
	for i := range r.Actions {
		if r.Actions[i].sameSlot(name, depth) {
			return &r.Actions[i], true
		}
	}
	return nil, false
}

// ForbidsChild reports whether the rule forbids instances of typeName below it.
func (r *RuleDefinition) ForbidsChild(typeName string) bool {
	for _, c := range r.ChildTypes {
		if c.Name == typeName && c.Forbid {
			return true
		}
	}
	return false
}
