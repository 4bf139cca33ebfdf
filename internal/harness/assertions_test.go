package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kspace/internal/ir"
)

func sampleResult() *Result {
	r := NewResult()
	r.Value = ir.IRObject{
		"items": ir.IRArray{
			ir.IRObject{"id": ir.IRInt(1), "title": ir.IRString("Stra\u00dfe")},
			ir.IRObject{"id": ir.IRInt(2), "title": ir.IRString("\U0001F600 smile")},
		},
		"count": ir.IRInt(2),
		"empty": ir.IRNull{},
	}
	return r
}

func TestLookup(t *testing.T) {
	v := sampleResult().Value

	tests := []struct {
		path string
		want ir.IRValue
	}{
		{"", v},
		{"count", ir.IRInt(2)},
		{"items.1.id", ir.IRInt(2)},
		{"empty", ir.IRNull{}},
		{"missing", nil},
		{"items.7", nil},
		{"items.-1", nil},
		{"items.first", nil},
		{"count.x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Lookup(v, tt.path))
		})
	}
}

func TestEvaluateThen_Equality(t *testing.T) {
	r := sampleResult()

	assert.Empty(t, EvaluateThen(r, map[string]any{
		"count":         2,
		"items.0.title": "Stra\u00dfe",
		"empty":         nil,
		"items.1":       map[string]any{"id": 2, "title": "\U0001F600 smile"},
	}))

	errs := EvaluateThen(r, map[string]any{"count": 3, "nope": "x"})
	assert.Equal(t, []string{
		"equal on count: expected 3, got 2",
		`equal on nope: expected "x", got undefined`,
	}, errs)
}

func TestEvaluateThen_IntAndFloatCompareNumerically(t *testing.T) {
	assert.Empty(t, EvaluateThen(sampleResult(), map[string]any{"count": 2.0}))
}

func TestEvaluateThen_Rules(t *testing.T) {
	tests := []struct {
		name string
		rule map[string]any
		ok   bool
	}{
		{"hasKey", map[string]any{"type": RuleHasKey, "value": "count"}, true},
		{"hasKey missing", map[string]any{"type": RuleHasKey, "value": "total"}, false},
		{"hasKey on array", map[string]any{"type": RuleHasKey, "target": "items", "value": "id"}, false},
		{"isArray", map[string]any{"type": RuleIsArray, "target": "items"}, true},
		{"isArray on object", map[string]any{"type": RuleIsArray}, false},
		{"isObject", map[string]any{"type": RuleIsObject, "target": "items.0"}, true},
		{"isObject on null", map[string]any{"type": RuleIsObject, "target": "empty"}, false},
		{"lengthEquals", map[string]any{"type": RuleLengthEquals, "target": "items", "value": 2}, true},
		{"lengthEquals wrong", map[string]any{"type": RuleLengthEquals, "target": "items", "value": 3}, false},
		{"lengthEquals string", map[string]any{"type": RuleLengthEquals, "target": "items.0.title", "value": 6}, true},
		{"length in utf16 units", map[string]any{"type": RuleLengthEquals, "target": "items.1.title", "value": 8}, true},
		{"lengthEquals on number", map[string]any{"type": RuleLengthEquals, "target": "count", "value": 2}, false},
		{"lengthNotGreaterThan equal", map[string]any{"type": RuleLengthNotGreaterThan, "target": "items", "value": 2}, true},
		{"lengthNotGreaterThan over", map[string]any{"type": RuleLengthNotGreaterThan, "target": "items", "value": 1}, false},
		{"lengthGreaterThan", map[string]any{"type": RuleLengthGreaterThan, "target": "items", "value": 1}, true},
		{"lengthGreaterThan equal", map[string]any{"type": RuleLengthGreaterThan, "target": "items", "value": 2}, false},
		{"ignore case", map[string]any{"type": RuleStringEqualsIgnoreCase, "target": "items.0.title", "value": "STRASSE"}, true},
		{"ignore case differs", map[string]any{"type": RuleStringEqualsIgnoreCase, "target": "items.0.title", "value": "street"}, false},
		{"ignore case on number", map[string]any{"type": RuleStringEqualsIgnoreCase, "target": "count", "value": "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateThen(sampleResult(), map[string]any{KeyRuleMatch: []any{tt.rule}})
			if tt.ok {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
			}
		})
	}
}

func TestEvaluateThen_ExpectedError(t *testing.T) {
	r := NewResult()
	r.Code = "NO_MATCHING_ITEMS"
	r.ErrorMessage = "no items matched"

	assert.Empty(t, EvaluateThen(r, map[string]any{KeyError: "NO_MATCHING_ITEMS"}))
	assert.Equal(t,
		[]string{`error on result: expected "INVALID_TARGET", got "NO_MATCHING_ITEMS"`},
		EvaluateThen(r, map[string]any{KeyError: "INVALID_TARGET"}))
	assert.Equal(t,
		[]string{"operation failed: no items matched"},
		EvaluateThen(r, map[string]any{"count": 1}))
}

func TestEvaluateThen_ErrorExpectedButSucceeded(t *testing.T) {
	errs := EvaluateThen(sampleResult(), map[string]any{KeyError: "INVALID_TARGET"})
	assert.Equal(t, []string{`error on result: expected "INVALID_TARGET", got ""`}, errs)
}

func TestEvaluateThen_Space(t *testing.T) {
	r := sampleResult()
	r.Space = ir.IRObject{"knowledge_space": ir.IRObject{"knowledge_items": ir.IRArray{}}}

	assert.Empty(t, EvaluateThen(r, map[string]any{
		KeySpace: map[string]any{"knowledge_space": map[string]any{"knowledge_items": []any{}}},
	}))
	assert.Len(t, EvaluateThen(r, map[string]any{
		KeySpace: map[string]any{"knowledge_space": map[string]any{"knowledge_items": []any{1}}},
	}), 1)
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"not a list", map[string]any{"type": "isArray"}, "must be a list"},
		{"not an object", []any{"isArray"}, "rule must be an object"},
		{"no type", []any{map[string]any{"target": "x"}}, "rule type is required"},
		{"unknown type", []any{map[string]any{"type": "isEmpty"}}, `unhandled rule type "isEmpty"`},
		{"hasKey number", []any{map[string]any{"type": RuleHasKey, "value": 1}}, "needs a string value"},
		{"length string", []any{map[string]any{"type": RuleLengthGreaterThan, "value": "1"}}, "needs an integer value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRules(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Check: RuleIsArray, Target: "items", Expected: "array", Actual: "object"}
	assert.Equal(t, "isArray on items: expected array, got object", err.Error())

	err.Target = ""
	assert.Equal(t, "isArray on result: expected array, got object", err.Error())
}
