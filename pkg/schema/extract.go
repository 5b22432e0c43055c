package schema

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfroyo/resrules/pkg/rules"
)

// Extractor fills a rule definition from one resource-agent block.
type Extractor struct {
	doc    *Document
	logger zerolog.Logger
}

// NewExtractor creates an extractor over doc.
func NewExtractor(doc *Document, logger zerolog.Logger) *Extractor {
	return &Extractor{
		doc:    doc,
		logger: logger,
	}
}

// Version returns the version reported by the block, or "".
func (e *Extractor) Version(b Block) string {
	v, _ := e.doc.Attr(b.Base(), "version")
	return v
}

// MaxInstances returns the maximum instance count from the vendor section.
// Absent and negative values yield 0.
func (e *Extractor) MaxInstances(b Block) int {
	v, ok := e.doc.Attr(b.Special()+"/attributes", "maxinstances")
	if !ok {
		return 0
	}
	return max(rules.Atoi(v), 0)
}

// Attributes reads parameter entries into rule. A second primary parameter or
// an inherited parameter that is also required, unique or primary aborts the
// extraction with a skip error; rule must then be discarded.
func (e *Extractor) Attributes(b Block, rule *rules.RuleDefinition) error {
	base := b.Parameters()
	primaryFound := false

	for i := 1; ; i++ {
		param := fmt.Sprintf("%s/parameter[%d]", base, i)
		name, ok := e.doc.Name(param, "name")
		if !ok {
			return nil
		}

		var flags rules.AttrFlags
		var value *string
		if dflt, ok := e.doc.Attr(param+"/content", "default"); ok {
			value = &dflt
		}

		if v, ok := e.doc.Attr(param, "required"); ok && rules.Truthy(v) {
			flags |= rules.AttrRequired
		}
		if v, ok := e.doc.Attr(param, "unique"); ok && rules.Truthy(v) {
			flags |= rules.AttrUnique
		}
		if v, ok := e.doc.Attr(param, "primary"); ok && rules.Truthy(v) {
			if primaryFound {
				return rules.NewSkipError(rules.ErrCodeMultiplePrimary,
					"multiple primary definitions", nil).WithType(rule.Type)
			}
			flags |= rules.AttrPrimary
			primaryFound = true
		}

		if expr, ok := e.doc.Attr(param, "inherit"); ok {
			flags |= rules.AttrInherit
			if flags&(rules.AttrRequired|rules.AttrPrimary|rules.AttrUnique) != 0 {
				return rules.NewSkipError(rules.ErrCodeInheritConflict,
					fmt.Sprintf("attribute %s can not inherit and be primary, unique, or required", name), nil).
					WithType(rule.Type)
			}
			value = &expr
		}

		if err := rule.StoreAttribute(name, value, flags); err != nil {
			return err
		}
	}
}

// Actions reads action entries into rule, merging entries that address the
// same action slot.
func (e *Extractor) Actions(b Block, rule *rules.RuleDefinition) {
	base := b.Actions()

	for i := 1; ; i++ {
		entry := fmt.Sprintf("%s/action[%d]", base, i)
		name, ok := e.doc.Name(entry, "name")
		if !ok {
			return
		}

		act := rules.Action{Name: name}
		if v, ok := e.doc.Attr(entry, "timeout"); ok {
			act.Timeout = max(rules.ExpandTime(v), 0)
		}
		if v, ok := e.doc.Attr(entry, "interval"); ok {
			act.Interval = max(rules.ExpandTime(v), 0)
		}
		if hasDepth(name) {
			if v, ok := e.doc.Attr(entry, "depth"); ok {
				act.Depth = max(rules.Atoi(v), 0)
			}
		}

		replaced, err := rule.StoreAction(act)
		if err != nil {
			e.logger.Warn().Err(err).Str("type", rule.Type).Str("action", name).Msg("Ignoring action")
			continue
		}
		if replaced > 0 {
			e.logger.Debug().
				Str("type", rule.Type).
				Str("action", name).
				Int("depth", act.Depth).
				Int("timeout", act.Timeout).
				Int("interval", act.Interval).
				Msg("Replacing action")
		}
	}
}

// ChildTypes reads child entries from the vendor section into rule.
func (e *Extractor) ChildTypes(b Block, rule *rules.RuleDefinition) {
	base := b.Special()

	for i := 1; ; i++ {
		entry := fmt.Sprintf("%s/child[%d]", base, i)
		name, ok := e.doc.Name(entry, "type")
		if !ok {
			return
		}

		child := rules.ChildType{Name: name}
		if v, ok := e.doc.Attr(entry, "start"); ok {
			child.StartLevel = rules.Atoi(v)
		}
		if v, ok := e.doc.Attr(entry, "stop"); ok {
			child.StopLevel = rules.Atoi(v)
		}
		if v, ok := e.doc.Attr(entry, "forbid"); ok {
			child.Forbid = rules.Atoi(v) != 0
		}

		// name is non-empty, so this cannot fail
		_ = rule.StoreChildType(child)
	}
}

// hasDepth reports whether the named action takes a check depth.
func hasDepth(action string) bool {
	return action == "status" || action == "monitor"
}
