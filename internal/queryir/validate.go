package queryir

import (
	"fmt"

	"github.com/roach88/kspace/internal/ir"
)

// ValidationResult contains the static analysis of a request.
//
// Requests with warnings still execute. Warnings flag constructs that
// decode fine but whose runtime behaviour is probably not what the author
// meant, such as an unknown operator (which matches every item) or
// STARTS_WITH with a non-string value (which always fails at runtime).
type ValidationResult struct {
	// Clean is true when no warnings were produced.
	Clean bool

	// Warnings lists the suspicious constructs, in request order.
	Warnings []string
}

// Validate inspects a decoded request without executing it.
// Validate is a pure function with no side effects.
func Validate(req Request) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateRequest(req)

	return ValidationResult{
		Clean:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateRequest(req Request) {
	switch r := req.(type) {
	case nil:
		v.addWarning("nil request")
	case *Get:
		v.validateGet(r, "")
	case *Create:
		v.validateTarget(r.Target, "")
		if d, ok := r.Directive.(GeneratedContent); ok && r.Type == "" {
			v.addWarning("generated item via %q has no type", d.Processor)
		}
	case *Update:
		v.validateTarget(r.Target, "")
		if len(r.Conditions) == 0 {
			v.addWarning("update without conditions will be rejected")
		}
		v.validateConditions(r.Conditions, "")
		if _, ok := r.Update["id"]; ok {
			v.addWarning("update sets id, which is immutable and will be rejected")
		}
		if len(r.Update) == 0 {
			v.addWarning("update object is empty; matched items are left unchanged")
		}
	case *Batch:
		if len(r.Queries) == 0 {
			v.addWarning("batch has no queries")
		}
		for i, q := range r.Queries {
			v.validateGet(q, fmt.Sprintf("queries[%d].", i))
		}
	default:
		v.addWarning("unknown request type: %T", req)
	}
}

func (v *validator) validateGet(g *Get, prefix string) {
	v.validateTarget(g.Target, prefix)
	v.validateConditions(g.Conditions, prefix)

	if g.OrderBy != nil && g.OrderBy.Field == "" {
		v.addWarning("%sorder_by has no field", prefix)
	}
	if g.Limit != nil && *g.Limit == 0 {
		v.addWarning("%slimit 0 is ignored; all results are returned", prefix)
	}
	if g.Alias == "" && g.Limit != nil && *g.Limit == 1 {
		v.addWarning("%slimit 1 without alias returns a one-element array", prefix)
	}
}

func (v *validator) validateTarget(target, prefix string) {
	if target != TargetKnowledgeItem {
		v.addWarning("%starget %q is not %q and will be rejected", prefix, target, TargetKnowledgeItem)
	}
}

func (v *validator) validateConditions(conds []Condition, prefix string) {
	for i, c := range conds {
		path := fmt.Sprintf("%sconditions[%d]", prefix, i)

		if c.Operator == "" {
			v.addWarning("%s: missing operator matches every item", path)
			continue
		}
		if !c.Operator.Known() {
			v.addWarning("%s: unknown operator %q matches every item", path, c.Operator)
			continue
		}

		switch c.Operator {
		case OpStartsWith:
			if _, ok := ir.ScalarText(c.Value); !ok {
				v.addWarning("%s: STARTS_WITH needs a scalar value, got %s", path, ir.KindOf(c.Value))
			}
		case OpContains:
			if c.Value == nil {
				v.addWarning("%s: CONTAINS without a value", path)
			}
		}
	}
}
