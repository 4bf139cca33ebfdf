package engine

import (
	"slices"
	"strings"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
)

// FieldGetter is the lookup capability conditions are evaluated against.
// A missing field reports ok=false and is treated as undefined.
//
// space.Item and ir.IRObject both satisfy it.
type FieldGetter interface {
	Get(field string) (ir.IRValue, bool)
}

// Matches evaluates one condition against one item.
//
// Operator semantics:
//   - "=" / "!=": strict equality (ir.Equal); a missing field equals only a
//     missing value
//   - CONTAINS: substring test on a string field, or element membership on
//     an array field
//   - STARTS_WITH: prefix test on a string field
//   - anything else: true
//
// On a string field a number, boolean or null value is tested by its JSON
// text, so {type CONTAINS 1} looks for "1". CONTAINS and STARTS_WITH on an
// incompatible field, or with an array or object value against a string
// field, return a FIELD_OPERATION error.
func Matches(item FieldGetter, c queryir.Condition) (bool, error) {
	field, _ := item.Get(c.Field)

	switch c.Operator {
	case queryir.OpEquals:
		return ir.Equal(field, c.Value), nil

	case queryir.OpNotEquals:
		return !ir.Equal(field, c.Value), nil

	case queryir.OpContains:
		switch fv := field.(type) {
		case ir.IRString:
			sub, ok := ir.ScalarText(c.Value)
			if !ok {
				return false, NewFieldOperationError(c, ir.KindOf(field))
			}
			return strings.Contains(string(fv), sub), nil
		case ir.IRArray:
			return slices.ContainsFunc(fv, func(elem ir.IRValue) bool {
				return ir.Equal(elem, c.Value)
			}), nil
		default:
			return false, NewFieldOperationError(c, ir.KindOf(field))
		}

	case queryir.OpStartsWith:
		fv, ok := field.(ir.IRString)
		if !ok {
			return false, NewFieldOperationError(c, ir.KindOf(field))
		}
		prefix, ok := ir.ScalarText(c.Value)
		if !ok {
			return false, NewFieldOperationError(c, ir.KindOf(field))
		}
		return strings.HasPrefix(string(fv), prefix), nil

	default:
		// Unknown operators match every item; queryir.Validate flags them.
		return true, nil
	}
}

// MatchesAll is the conjunction of all conditions. It stops at the first
// condition that does not match or errors. An empty list matches.
func MatchesAll(item FieldGetter, conds []queryir.Condition) (bool, error) {
	for _, c := range conds {
		ok, err := Matches(item, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
