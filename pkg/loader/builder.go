// Package loader turns resource agent executables into registered rule
// definitions: it scans a directory, probes each candidate and builds one
// rule per resource-agent block found in its metadata.
package loader

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/resrules/pkg/rules"
	"github.com/openfroyo/resrules/pkg/schema"
	"github.com/openfroyo/resrules/pkg/telemetry"
)

// RuleOutcome describes what happened to one resource-agent block.
type RuleOutcome struct {
	Type   string `json:"type"`
	Stored bool   `json:"stored"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Builder assembles rule definitions from metadata documents.
type Builder struct {
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// NewBuilder creates a Builder. A nil metrics value disables metrics.
func NewBuilder(logger zerolog.Logger, metrics *telemetry.Metrics) *Builder {
	return &Builder{
		logger:  logger,
		metrics: metrics,
	}
}

// Build creates one rule for every resource-agent block of doc and stores it
// in reg. A block that fails validation or collides with a stored type is
// discarded and the remaining blocks are still processed. Each stored rule is
// added as an event to the span in ctx.
func (b *Builder) Build(ctx context.Context, doc *schema.Document, agentPath string, reg *rules.Registry) []RuleOutcome {
	var outcomes []RuleOutcome
	span := trace.SpanFromContext(ctx)

	for _, block := range doc.Blocks() {
		typeName, _ := doc.TypeName(block)

		rule, err := b.buildRule(doc, block, typeName, agentPath)
		if err == nil {
			err = reg.Store(rule)
		}
		if err != nil {
			outcomes = append(outcomes, b.reject(typeName, agentPath, err))
			continue
		}

		b.metrics.RecordRuleStored()
		span.AddEvent("rule.stored", trace.WithAttributes(telemetry.AttrRuleType.String(rule.Type)))
		b.logger.Debug().
			Str("agent", agentPath).
			Str("type", rule.Type).
			Int("attributes", len(rule.Attributes)).
			Int("actions", len(rule.Actions)).
			Int("child_types", len(rule.ChildTypes)).
			Msg("Stored resource rule")
		outcomes = append(outcomes, RuleOutcome{Type: rule.Type, Stored: true})
	}

	return outcomes
}

// buildRule extracts one block into a fresh rule definition.
func (b *Builder) buildRule(doc *schema.Document, block schema.Block, typeName, agentPath string) (*rules.RuleDefinition, error) {
	if rules.IsReservedTypeName(typeName) {
		return nil, rules.NewSkipError(rules.ErrCodeReservedType,
			"resource type '"+typeName+"' is reserved", nil).WithAgent(agentPath)
	}

	rule := rules.NewRuleDefinition(typeName, agentPath)
	ex := schema.NewExtractor(doc, b.logger)

	rule.Version = ex.Version(block)
	rule.MaxInstances = ex.MaxInstances(block)
	ex.ChildTypes(block, rule)
	ex.Actions(block, rule)
	if err := ex.Attributes(block, rule); err != nil {
		return nil, err
	}

	if err := rules.Validate(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (b *Builder) reject(typeName, agentPath string, err error) RuleOutcome {
	code := rules.CodeOf(err)
	if code == "" {
		code = rules.ErrCodeInvalidRule
	}

	b.metrics.RecordRuleRejected(code)
	b.logger.Warn().
		Err(err).
		Str("agent", agentPath).
		Str("type", typeName).
		Str("reason", code).
		Msg("Skipping resource rule")

	return RuleOutcome{
		Type:   typeName,
		Code:   code,
		Reason: err.Error(),
	}
}
