package rules

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a rule's structure and the cross-field invariants between
// attributes: a non-reserved type name, at most one primary attribute, kept at
// index 0, and no inherited attribute that is also required, unique or primary.
func Validate(rule *RuleDefinition) error {
	if rule == nil {
		return NewSkipError(ErrCodeInvalidRule, "nil rule", nil)
	}

	if err := structValidator().Struct(rule); err != nil {
		return NewSkipError(ErrCodeInvalidRule, "rule failed validation", err).
			WithType(rule.Type).
			WithAgent(rule.AgentPath)
	}

	if IsReservedTypeName(rule.Type) {
		return NewSkipError(ErrCodeReservedType,
			fmt.Sprintf("resource type '%s' is reserved", rule.Type), nil).
			WithAgent(rule.AgentPath)
	}

	primaries := 0
	for i, attr := range rule.Attributes {
		if attr.Flags.Has(AttrPrimary) {
			primaries++
			if primaries > 1 {
				return NewSkipError(ErrCodeMultiplePrimary,
					"multiple primary definitions", nil).WithType(rule.Type)
			}
			if i != 0 {
				return NewSkipError(ErrCodeInvalidRule,
					fmt.Sprintf("primary attribute %s is not first", attr.Name), nil).WithType(rule.Type)
			}
		}
		if attr.Flags.Has(AttrInherit) && attr.Flags&(AttrRequired|AttrUnique|AttrPrimary) != 0 {
			return NewSkipError(ErrCodeInheritConflict,
				fmt.Sprintf("attribute %s can not inherit and be primary, unique, or required", attr.Name), nil).
				WithType(rule.Type)
		}
	}

	return nil
}
