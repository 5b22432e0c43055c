package rules

import (
	"fmt"
	"iter"
	"sort"
	"sync"
)

// Registry owns the rule definitions discovered by a scan. Rules are kept in
// strict ascending order of their type names compared case-insensitively, so
// enumeration is reproducible whatever order the agents were found in.
type Registry struct {
	// mu protects rules.
	mu sync.RWMutex

	// rules is sorted by compareFold on Type.
	rules []*RuleDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Store inserts rule at its sorted position. A rule whose type name equals an
// existing one ignoring case is rejected and the registry is left unchanged.
func (r *Registry) Store(rule *RuleDefinition) error {
	if rule == nil {
		return NewSkipError(ErrCodeInvalidRule, "nil rule", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.rules), func(i int) bool {
		return compareFold(r.rules[i].Type, rule.Type) >= 0
	})
	if i < len(r.rules) && compareFold(r.rules[i].Type, rule.Type) == 0 {
		return NewSkipError(ErrCodeDuplicateType,
			fmt.Sprintf("error storing %s: duplicate", rule.Type), nil).
			WithType(rule.Type).
			WithAgent(rule.AgentPath)
	}

	r.rules = append(r.rules, nil)
	copy(r.rules[i+1:], r.rules[i:])
	r.rules[i] = rule
	return nil
}

// FindByType returns the rule whose type name is exactly typeName. Unlike the
// ordering used by Store, this comparison is case-sensitive.
func (r *Registry) FindByType(typeName string) (*RuleDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		if rule.Type == typeName {
			return rule, true
		}
	}
	return nil, false
}

// Len returns the number of stored rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Rules returns a snapshot of the stored rules in registry order.
func (r *Registry) Rules() []*RuleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*RuleDefinition, len(r.rules))
	copy(out, r.rules)
	return out
}

// TypeNames returns the stored type names in registry order.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Type
	}
	return names
}

// All iterates over a snapshot of the stored rules in registry order.
func (r *Registry) All() iter.Seq[*RuleDefinition] {
	snapshot := r.Rules()
	return func(yield func(*RuleDefinition) bool) {
		for _, rule := range snapshot {
			if !yield(rule) {
				return
			}
		}
	}
}

// DestroyAll drops every rule together with its attributes, actions and child
// types. The registry stays usable.
func (r *Registry) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rule := range r.rules {
		rule.Attributes = nil
		rule.Actions = nil
		rule.ChildTypes = nil
		r.rules[i] = nil
	}
	r.rules = nil
}

// compareFold compares two strings byte-wise after folding ASCII letters to
// lower case.
func compareFold(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := lowerASCII(a[i]), lowerASCII(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
