// Package querysql compiles GET requests to parameterized SQLite SQL over
// the archived item table (see internal/store).
//
// Items are archived as one canonical JSON document per row, so every field
// reference becomes a json_extract/json_type call on the body column.
// The compiled query returns item bodies in result order; alias shaping is
// left to the caller.
//
// The SQL form mirrors the in-memory pipeline for uniformly typed fields.
// Two differences are inherent: a CONTAINS or STARTS_WITH on a field of the
// wrong kind simply does not match (the engine reports FIELD_OPERATION), and
// ORDER BY uses SQLite's cross-type ordering where the engine treats mixed
// kinds as ties.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
)

// SQLCompiler compiles queryir.Get requests to parameterized SQL for SQLite.
//
// All values and JSON paths are parameterized, never interpolated. Every
// query ends with ORDER BY position so ties keep insertion order.
type SQLCompiler struct {
	// Space is the archived space name every query is scoped to.
	Space string
}

// NewSQLCompiler creates a compiler scoped to the named archived space.
func NewSQLCompiler(space string) *SQLCompiler {
	return &SQLCompiler{Space: space}
}

// Compile converts a GET request to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(get *queryir.Get) (string, []any, error) {
	if get == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if get.Target != queryir.TargetKnowledgeItem {
		return "", nil, fmt.Errorf("unsupported target %q", get.Target)
	}

	var sb strings.Builder
	params := []any{c.Space}
	sb.WriteString("SELECT body FROM items WHERE space = ?")

	for i, cond := range get.Conditions {
		frag, condParams, err := compileCondition(cond)
		if err != nil {
			return "", nil, fmt.Errorf("compile conditions[%d]: %w", i, err)
		}
		sb.WriteString(" AND ")
		sb.WriteString(frag)
		params = append(params, condParams...)
	}

	orderSQL, orderParams, err := compileOrder(get.OrderBy)
	if err != nil {
		return "", nil, fmt.Errorf("compile order_by: %w", err)
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderSQL)
	params = append(params, orderParams...)

	pageSQL, pageParams := compilePage(get.Offset, get.Limit)
	sb.WriteString(pageSQL)
	params = append(params, pageParams...)

	return sb.String(), params, nil
}

// compileCondition compiles one condition to a WHERE fragment that is
// never NULL, so negation behaves like the engine's != on missing fields.
func compileCondition(cond queryir.Condition) (string, []any, error) {
	path, err := fieldPath(cond.Field)
	if err != nil {
		return "", nil, err
	}

	switch cond.Operator {
	case queryir.OpEquals:
		return compileEquals(path, cond.Value)
	case queryir.OpNotEquals:
		sql, params, err := compileEquals(path, cond.Value)
		if err != nil {
			return "", nil, err
		}
		return "NOT " + sql, params, nil
	case queryir.OpContains:
		return compileContains(path, cond.Value)
	case queryir.OpStartsWith:
		prefix, ok := ir.ScalarText(cond.Value)
		if !ok {
			return "", nil, fmt.Errorf("%s needs a scalar value, got %s", cond.Operator, ir.KindOf(cond.Value))
		}
		return "COALESCE(json_type(body, ?) = 'text' AND substr(json_extract(body, ?), 1, length(?)) = ?, 0)",
			[]any{path, path, prefix, prefix}, nil
	default:
		// Unknown operators match every item.
		return "1 = 1", nil, nil
	}
}

// compileEquals compiles strict equality: the JSON type must agree, except
// that integers and reals compare numerically.
func compileEquals(path string, v ir.IRValue) (string, []any, error) {
	switch val := v.(type) {
	case nil:
		return "json_type(body, ?) IS NULL", []any{path}, nil
	case ir.IRNull:
		return "COALESCE(json_type(body, ?) = 'null', 0)", []any{path}, nil
	case ir.IRBool:
		return "COALESCE(json_type(body, ?) = ?, 0)", []any{path, boolType(bool(val))}, nil
	case ir.IRString, ir.IRInt, ir.IRFloat:
		param, err := irValueToParam(val)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("COALESCE(json_type(body, ?) %s AND json_extract(body, ?) = ?, 0)", scalarType(val)),
			[]any{path, path, param}, nil
	default:
		return "", nil, fmt.Errorf("%s values cannot be compared in SQL", ir.KindOf(v))
	}
}

// compileContains matches a substring of a text field or an equal element
// of an array field. Non-string scalars are looked up in text fields by
// their JSON text.
func compileContains(path string, v ir.IRValue) (string, []any, error) {
	elem, elemParams, err := compileElementEquals(v)
	if err != nil {
		return "", nil, err
	}
	text, _ := ir.ScalarText(v)

	textSQL := "COALESCE(json_type(body, ?) = 'text' AND instr(json_extract(body, ?), ?) > 0, 0)"
	textParams := []any{path, path, text}
	arraySQL := "EXISTS (SELECT 1 FROM json_each(body, ?) AS e WHERE COALESCE(json_type(body, ?) = 'array', 0) AND " + elem + ")"
	arrayParams := append([]any{path, path}, elemParams...)

	return "(" + textSQL + " OR " + arraySQL + ")", append(textParams, arrayParams...), nil
}

// compileElementEquals is compileEquals over a json_each row.
func compileElementEquals(v ir.IRValue) (string, []any, error) {
	switch val := v.(type) {
	case ir.IRNull:
		return "e.type = 'null'", nil, nil
	case ir.IRBool:
		return "e.type = ?", []any{boolType(bool(val))}, nil
	case ir.IRString, ir.IRInt, ir.IRFloat:
		param, err := irValueToParam(val)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("e.type %s AND e.value = ?", scalarType(val)), []any{param}, nil
	default:
		return "", nil, fmt.Errorf("CONTAINS with a %s value cannot be compiled to SQL", ir.KindOf(v))
	}
}

// compileOrder returns the ORDER BY list. position is always the last key.
// Uses COLLATE BINARY for deterministic text ordering.
func compileOrder(order *queryir.OrderSpec) (string, []any, error) {
	if order == nil || order.Field == "" {
		return "position ASC", nil, nil
	}
	path, err := fieldPath(order.Field)
	if err != nil {
		return "", nil, err
	}
	dir := "ASC"
	if order.Direction == queryir.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf("json_extract(body, ?) COLLATE BINARY %s, position ASC", dir), []any{path}, nil
}

// compilePage renders LIMIT/OFFSET. Zero and absent values are no-ops;
// SQLite needs LIMIT -1 to express an offset alone.
func compilePage(offset, limit *int) (string, []any) {
	hasOffset := offset != nil && *offset > 0
	hasLimit := limit != nil && *limit > 0

	switch {
	case hasLimit && hasOffset:
		return " LIMIT ? OFFSET ?", []any{int64(*limit), int64(*offset)}
	case hasLimit:
		return " LIMIT ?", []any{int64(*limit)}
	case hasOffset:
		return " LIMIT -1 OFFSET ?", []any{int64(*offset)}
	}
	return "", nil
}

// fieldPath builds the JSON path of a top-level field. The key is quoted so
// dots and brackets in field names stay literal.
func fieldPath(field string) (string, error) {
	if strings.Contains(field, `"`) {
		return "", fmt.Errorf("field %q cannot be addressed in SQL", field)
	}
	return `$."` + field + `"`, nil
}

func scalarType(v ir.IRValue) string {
	if _, ok := v.(ir.IRString); ok {
		return "= 'text'"
	}
	return "IN ('integer', 'real')"
}

func boolType(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// irValueToParam converts an ir.IRValue to a Go native type for SQL parameter.
// Arrays and objects are not supported as SQL parameters.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRNull:
		return nil, nil
	case ir.IRArray:
		return nil, fmt.Errorf("IRArray cannot be used as SQL parameter directly")
	case ir.IRObject:
		return nil, fmt.Errorf("IRObject cannot be used as SQL parameter directly")
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
