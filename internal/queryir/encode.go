package queryir

import (
	"fmt"

	"github.com/roach88/kspace/internal/ir"
)

// Encode renders a Request back into its object form.
// Decode(Encode(r)) yields a request equal to r.
func Encode(req Request) (ir.IRObject, error) {
	switch r := req.(type) {
	case *Get:
		obj := encodeGet(r)
		obj["action"] = ir.IRString(ActionGet)
		return obj, nil
	case *Create:
		return encodeCreate(r)
	case *Update:
		obj := ir.IRObject{
			"action":     ir.IRString(ActionUpdate),
			"target":     ir.IRString(r.Target),
			"conditions": encodeConditions(r.Conditions),
			"update":     r.Update.Clone(),
		}
		return obj, nil
	case *Batch:
		queries := make(ir.IRArray, len(r.Queries))
		for i, q := range r.Queries {
			queries[i] = encodeGet(q)
		}
		return ir.IRObject{"batch": ir.IRBool(true), "queries": queries}, nil
	default:
		return nil, fmt.Errorf("unsupported request type: %T", req)
	}
}

func encodeGet(g *Get) ir.IRObject {
	obj := ir.IRObject{"target": ir.IRString(g.Target)}
	if len(g.Conditions) > 0 {
		obj["conditions"] = encodeConditions(g.Conditions)
	}
	if g.OrderBy != nil {
		obj["order_by"] = ir.IRObject{
			"field":     ir.IRString(g.OrderBy.Field),
			"direction": ir.IRString(g.OrderBy.Direction),
		}
	}
	if g.Offset != nil {
		obj["offset"] = ir.IRInt(*g.Offset)
	}
	if g.Limit != nil {
		obj["limit"] = ir.IRInt(*g.Limit)
	}
	if g.Alias != "" {
		obj["alias"] = ir.IRString(g.Alias)
	}
	return obj
}

func encodeCreate(c *Create) (ir.IRObject, error) {
	obj := ir.IRObject{
		"action": ir.IRString(ActionCreate),
		"target": ir.IRString(c.Target),
	}
	if c.Type != "" {
		obj["type"] = ir.IRString(c.Type)
	}

	switch d := c.Directive.(type) {
	case DirectValue:
		content := d.Content
		if content == nil {
			content = ir.IRNull{}
		}
		obj["value"] = content
	case GeneratedContent:
		obj["processor"] = ir.IRString(d.Processor)
		obj["meta"] = ir.IRObject{"config_path": ir.IRString(d.ConfigPath)}
	default:
		return nil, fmt.Errorf("unsupported create directive: %T", c.Directive)
	}
	return obj, nil
}

func encodeConditions(conds []Condition) ir.IRArray {
	out := make(ir.IRArray, len(conds))
	for i, c := range conds {
		obj := ir.IRObject{
			"field":    ir.IRString(c.Field),
			"operator": ir.IRString(c.Operator),
		}
		if c.Value != nil {
			obj["value"] = c.Value
		}
		out[i] = obj
	}
	return out
}
