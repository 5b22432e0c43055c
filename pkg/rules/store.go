package rules

import "fmt"

// StoreAttribute appends an attribute to the rule. A primary attribute is
// placed at index 0 and the attribute previously there moves to the end.
// Duplicate names are appended, not merged.
func (r *RuleDefinition) StoreAttribute(name string, value *string, flags AttrFlags) error {
	if name == "" {
		return NewSkipError(ErrCodeInvalidRule, "attribute name is required", nil).WithType(r.Type)
	}

	attr := Attribute{Name: name, Value: value, Flags: flags}
	if flags.Has(AttrPrimary) && len(r.Attributes) > 0 {
		r.Attributes = append(r.Attributes, r.Attributes[0])
		r.Attributes[0] = attr
		return nil
	}

	r.Attributes = append(r.Attributes, attr)
	return nil
}

// StoreAction merges an action into the rule. Every existing slot with the same
// name and a compatible depth has its timeout and interval replaced; a negative
// timeout or interval leaves that field unchanged. When nothing matched the
// action is appended. It returns the number of slots replaced.
func (r *RuleDefinition) StoreAction(act Action) (int, error) {
	if act.Name == "" {
		return 0, NewSkipError(ErrCodeInvalidRule, "action name is required", nil).WithType(r.Type)
	}
	if act.Depth < 0 && act.Timeout < 0 && act.Interval < 0 {
		return 0, NewSkipError(ErrCodeInvalidRule,
			fmt.Sprintf("action %s carries no usable values", act.Name), nil).WithType(r.Type)
	}

	replaced := 0
	for i := range r.Actions {
		if !r.Actions[i].sameSlot(act.Name, act.Depth) {
			continue
		}
		if act.Timeout >= 0 {
			r.Actions[i].Timeout = act.Timeout
		}
		if act.Interval >= 0 {
			r.Actions[i].Interval = act.Interval
		}
		replaced++
	}
	if replaced > 0 {
		return replaced, nil
	}

	if (act.Depth < 0 && act.Depth != AllDepths) || act.Timeout < 0 || act.Interval < 0 {
		return 0, NewSkipError(ErrCodeInvalidRule,
			fmt.Sprintf("cannot create action %s with negative values", act.Name), nil).WithType(r.Type)
	}

	r.Actions = append(r.Actions, act)
	return 0, nil
}

// StoreChildType appends a child type constraint. Repeated names are kept as
// separate entries.
func (r *RuleDefinition) StoreChildType(child ChildType) error {
	if child.Name == "" {
		return NewSkipError(ErrCodeInvalidRule, "child type name is required", nil).WithType(r.Type)
	}
	r.ChildTypes = append(r.ChildTypes, child)
	return nil
}
