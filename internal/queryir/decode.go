package queryir

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/kspace/internal/ir"
)

// Decode turns a request object into a typed Request.
//
// Routing is by shape first ({batch: true} is a batch regardless of any
// action field) and then by action. Target values are carried through
// unchecked; the engine rejects unsupported targets when the request runs.
func Decode(obj ir.IRObject) (Request, error) {
	if obj == nil {
		return nil, decodeErr(ErrCodeInvalidRequest, "", "request must be an object")
	}

	if b, ok := obj["batch"].(ir.IRBool); ok && bool(b) {
		return decodeBatch(obj)
	}

	action, err := optionalString(obj, "action")
	if err != nil {
		return nil, err
	}

	switch Action(action) {
	case ActionGet:
		return decodeGet(obj, "")
	case ActionCreate:
		return decodeCreate(obj)
	case ActionUpdate:
		return decodeUpdate(obj)
	default:
		return nil, invalidActionErr(action)
	}
}

// DecodeValue decodes a request held in an arbitrary IRValue.
func DecodeValue(v ir.IRValue) (Request, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, "", "request must be an object, got %s", ir.KindOf(v))
	}
	return Decode(obj)
}

// Unwrap returns the request nested under "dslQuery" when present, the
// envelope used by DSL files, or the object itself otherwise.
func Unwrap(obj ir.IRObject) ir.IRObject {
	if inner, ok := obj["dslQuery"].(ir.IRObject); ok {
		return inner
	}
	return obj
}

func invalidActionErr(action string) *DecodeError {
	names := make([]string, len(SupportedActions))
	for i, a := range SupportedActions {
		names[i] = string(a)
	}
	return decodeErr(ErrCodeInvalidAction, "action",
		"invalid action %q: only %s are supported", action, strings.Join(names, ", "))
}

func decodeBatch(obj ir.IRObject) (*Batch, error) {
	raw, ok := obj["queries"]
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, "queries", "batch requires a queries list")
	}
	list, ok := raw.(ir.IRArray)
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, "queries", "queries must be an array, got %s", ir.KindOf(raw))
	}

	// Validate every member's action before decoding any of them so an
	// invalid member is reported even when an earlier member is malformed.
	members := make([]ir.IRObject, len(list))
	for i, elem := range list {
		path := fmt.Sprintf("queries[%d]", i)
		member, ok := elem.(ir.IRObject)
		if !ok {
			return nil, decodeErr(ErrCodeInvalidRequest, path, "batch member must be an object, got %s", ir.KindOf(elem))
		}
		if rawAction, present := member["action"]; present {
			action, isString := rawAction.(ir.IRString)
			if !isString || Action(action) != ActionGet {
				return nil, decodeErr(ErrCodeInvalidAction, path+".action",
					"batch members must be GET queries, got %s", describe(rawAction))
			}
		}
		members[i] = member
	}

	batch := &Batch{Queries: make([]*Get, 0, len(members))}
	seen := make(map[string]int, len(members))
	for i, member := range members {
		path := fmt.Sprintf("queries[%d]", i)
		get, err := decodeGet(member, path+".")
		if err != nil {
			return nil, err
		}
		if get.Alias == "" {
			return nil, decodeErr(ErrCodeInvalidRequest, path+".alias", "batch members require an alias")
		}
		if prev, dup := seen[get.Alias]; dup {
			return nil, decodeErr(ErrCodeInvalidRequest, path+".alias",
				"alias %q already used by queries[%d]", get.Alias, prev)
		}
		seen[get.Alias] = i
		batch.Queries = append(batch.Queries, get)
	}

	return batch, nil
}

func decodeGet(obj ir.IRObject, prefix string) (*Get, error) {
	get := &Get{}
	var err error

	if get.Target, err = optionalString(obj, prefix+"target"); err != nil {
		return nil, err
	}
	if get.Conditions, err = decodeConditions(obj, prefix); err != nil {
		return nil, err
	}
	if get.OrderBy, err = decodeOrderBy(obj, prefix); err != nil {
		return nil, err
	}
	if get.Offset, err = optionalCount(obj, prefix+"offset"); err != nil {
		return nil, err
	}
	if get.Limit, err = optionalCount(obj, prefix+"limit"); err != nil {
		return nil, err
	}
	if get.Alias, err = optionalString(obj, prefix+"alias"); err != nil {
		return nil, err
	}

	return get, nil
}

func decodeCreate(obj ir.IRObject) (*Create, error) {
	create := &Create{}
	var err error

	if create.Target, err = optionalString(obj, "target"); err != nil {
		return nil, err
	}
	if create.Type, err = optionalString(obj, "type"); err != nil {
		return nil, err
	}
	processor, err := optionalString(obj, "processor")
	if err != nil {
		return nil, err
	}

	if processor == ProcessorPromptContextBuilder {
		configPath, err := decodeConfigPath(obj)
		if err != nil {
			return nil, err
		}
		if configPath == "" {
			return nil, decodeErr(ErrCodeMissingConfigPath, "meta.config_path",
				"config path is required for processor %q", processor)
		}
		create.Directive = GeneratedContent{Processor: processor, ConfigPath: configPath}
		return create, nil
	}

	if value, ok := obj["value"]; ok {
		create.Directive = DirectValue{Content: value}
		return create, nil
	}

	if processor != "" {
		return nil, decodeErr(ErrCodeInvalidCreateMethod, "processor",
			"unknown processor %q and no value given", processor)
	}
	return nil, decodeErr(ErrCodeInvalidCreateMethod, "",
		"invalid create method: either processor or value must be provided")
}

// decodeConfigPath reads meta.config_path, falling back to a top-level
// config_path.
func decodeConfigPath(obj ir.IRObject) (string, error) {
	if raw, ok := obj["meta"]; ok {
		meta, isObj := raw.(ir.IRObject)
		if !isObj {
			return "", decodeErr(ErrCodeInvalidRequest, "meta", "meta must be an object, got %s", ir.KindOf(raw))
		}
		path, err := optionalString(meta, "config_path")
		if err != nil {
			return "", decodeErr(ErrCodeInvalidRequest, "meta.config_path", "config_path must be a string")
		}
		if path != "" {
			return path, nil
		}
	}
	return optionalString(obj, "config_path")
}

func decodeUpdate(obj ir.IRObject) (*Update, error) {
	update := &Update{}
	var err error

	if update.Target, err = optionalString(obj, "target"); err != nil {
		return nil, err
	}
	if update.Conditions, err = decodeConditions(obj, ""); err != nil {
		return nil, err
	}

	raw, ok := obj["update"]
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, "update", "update requires an update object")
	}
	fields, ok := raw.(ir.IRObject)
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, "update", "update must be an object, got %s", ir.KindOf(raw))
	}
	update.Update = fields

	return update, nil
}

func decodeConditions(obj ir.IRObject, prefix string) ([]Condition, error) {
	raw, ok := obj["conditions"]
	if !ok {
		return nil, nil
	}
	if _, isNull := raw.(ir.IRNull); isNull {
		return nil, nil
	}
	list, ok := raw.(ir.IRArray)
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, prefix+"conditions",
			"conditions must be an array, got %s", ir.KindOf(raw))
	}

	conds := make([]Condition, 0, len(list))
	for i, elem := range list {
		path := fmt.Sprintf("%sconditions[%d]", prefix, i)
		c, ok := elem.(ir.IRObject)
		if !ok {
			return nil, decodeErr(ErrCodeInvalidRequest, path, "condition must be an object, got %s", ir.KindOf(elem))
		}
		field, err := requiredString(c, "field", path)
		if err != nil {
			return nil, err
		}
		// A missing operator decodes as "" and, like any unknown
		// operator, matches every item.
		op, err := optionalString(c, path+".operator")
		if err != nil {
			return nil, err
		}
		conds = append(conds, Condition{
			Field:    field,
			Operator: Operator(op),
			Value:    c["value"], // nil when absent
		})
	}
	return conds, nil
}

// decodeOrderBy reads order_by. direction is case-insensitive and defaults
// to ASC; values other than ASC and DESC are rejected.
func decodeOrderBy(obj ir.IRObject, prefix string) (*OrderSpec, error) {
	raw, ok := obj["order_by"]
	if !ok {
		return nil, nil
	}
	if _, isNull := raw.(ir.IRNull); isNull {
		return nil, nil
	}
	spec, ok := raw.(ir.IRObject)
	if !ok {
		return nil, decodeErr(ErrCodeInvalidRequest, prefix+"order_by", "order_by must be an object, got %s", ir.KindOf(raw))
	}

	field, err := requiredString(spec, "field", prefix+"order_by")
	if err != nil {
		return nil, err
	}
	dir, err := optionalString(spec, "direction")
	if err != nil {
		return nil, decodeErr(ErrCodeInvalidRequest, prefix+"order_by.direction", "direction must be a string")
	}

	switch Direction(strings.ToUpper(dir)) {
	case "", Ascending:
		return &OrderSpec{Field: field, Direction: Ascending}, nil
	case Descending:
		return &OrderSpec{Field: field, Direction: Descending}, nil
	default:
		return nil, decodeErr(ErrCodeInvalidRequest, prefix+"order_by.direction",
			"direction must be ASC or DESC, got %q", dir)
	}
}

// optionalString reads a string field, returning "" when absent or null.
// path is the dotted location used in errors; its last segment is the key.
func optionalString(obj ir.IRObject, path string) (string, error) {
	key := lastSegment(path)
	raw, ok := obj[key]
	if !ok {
		return "", nil
	}
	switch v := raw.(type) {
	case ir.IRString:
		return string(v), nil
	case ir.IRNull:
		return "", nil
	default:
		return "", decodeErr(ErrCodeInvalidRequest, path, "%s must be a string, got %s", key, ir.KindOf(raw))
	}
}

func requiredString(obj ir.IRObject, key, parent string) (string, error) {
	path := parent + "." + key
	s, err := optionalString(obj, path)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", decodeErr(ErrCodeInvalidRequest, path, "%s is required", key)
	}
	return s, nil
}

// optionalCount reads a non-negative integer field such as offset or limit.
func optionalCount(obj ir.IRObject, path string) (*int, error) {
	key := lastSegment(path)
	raw, ok := obj[key]
	if !ok {
		return nil, nil
	}

	var n float64
	switch v := raw.(type) {
	case ir.IRNull:
		return nil, nil
	case ir.IRInt:
		n = float64(v)
	case ir.IRFloat:
		n = float64(v)
	default:
		return nil, decodeErr(ErrCodeInvalidRequest, path, "%s must be a number, got %s", key, ir.KindOf(raw))
	}

	if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
		return nil, decodeErr(ErrCodeInvalidRequest, path, "%s must be a non-negative integer, got %v", key, n)
	}
	return IntPtr(int(n)), nil
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// describe renders a value for error messages.
func describe(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		return fmt.Sprintf("%q", string(s))
	}
	return ir.KindOf(v)
}
