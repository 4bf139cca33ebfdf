package queryir

import (
	"fmt"
	"slices"

	"github.com/roach88/kspace/internal/ir"
)

// UpdateConditions returns a copy of req with its condition values rewritten.
//
// Each update is applied in order. An update replaces the value of the first
// condition on the same field (and the same operator, when the update names
// one). When no condition matches, the update is appended, with operator "="
// if none was given. Only *Get and *Update carry conditions; other requests
// are rejected. req itself is never modified.
func UpdateConditions(req Request, updates []Condition) (Request, error) {
	switch r := req.(type) {
	case *Get:
		out := *r
		out.Conditions = applyConditionUpdates(r.Conditions, updates)
		if r.OrderBy != nil {
			order := *r.OrderBy
			out.OrderBy = &order
		}
		return &out, nil
	case *Update:
		out := *r
		out.Conditions = applyConditionUpdates(r.Conditions, updates)
		out.Update = r.Update.Clone()
		return &out, nil
	default:
		return nil, decodeErr(ErrCodeInvalidRequest, "conditions",
			"conditions can only be updated on GET and UPDATE requests, got %s", requestName(req))
	}
}

// ConditionUpdatesFromValue decodes a list of {field, operator?, value}
// objects as accepted by UpdateConditions.
func ConditionUpdatesFromValue(v ir.IRValue) ([]Condition, error) {
	list, ok := v.(ir.IRArray)
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, "updates", "updates must be an array, got %s", ir.KindOf(v))
	}

	updates := make([]Condition, 0, len(list))
	for i, elem := range list {
		path := fmt.Sprintf("updates[%d]", i)
		obj, ok := elem.(ir.IRObject)
		if !ok {
			return nil, decodeErr(ErrCodeInvalidRequest, path, "update must be an object, got %s", ir.KindOf(elem))
		}
		field, err := requiredString(obj, "field", path)
		if err != nil {
			return nil, err
		}
		op, err := optionalString(obj, path+".operator")
		if err != nil {
			return nil, err
		}
		updates = append(updates, Condition{Field: field, Operator: Operator(op), Value: obj["value"]})
	}
	return updates, nil
}

func applyConditionUpdates(conds, updates []Condition) []Condition {
	out := slices.Clone(conds)
	for _, u := range updates {
		idx := slices.IndexFunc(out, func(c Condition) bool {
			return c.Field == u.Field && (u.Operator == "" || c.Operator == u.Operator)
		})
		if idx >= 0 {
			out[idx].Value = u.Value
			continue
		}
		if u.Operator == "" {
			u.Operator = OpEquals
		}
		out = append(out, u)
	}
	return out
}

func requestName(req Request) string {
	switch req.(type) {
	case *Create:
		return string(ActionCreate)
	case *Batch:
		return "batch"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", req)
	}
}
