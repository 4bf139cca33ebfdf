package harness

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"

	"github.com/roach88/kspace/internal/ir"
)

// Reserved keys of a case's then block.
const (
	KeyRuleMatch = "ruleMatch"
	KeySpace     = "space"
	KeyError     = "error"
)

// Rule types accepted in ruleMatch.
const (
	RuleHasKey                 = "hasKey"
	RuleIsArray                = "isArray"
	RuleIsObject               = "isObject"
	RuleLengthEquals           = "lengthEquals"
	RuleLengthNotGreaterThan   = "lengthNotGreaterThan"
	RuleLengthGreaterThan      = "lengthGreaterThan"
	RuleStringEqualsIgnoreCase = "stringEqualsIgnoreCase"
)

// Rule is one ruleMatch entry.
type Rule struct {
	Type   string
	Target string
	Value  ir.IRValue
}

// AssertionError is returned when a then check fails.
type AssertionError struct {
	Check    string // then key or rule type
	Target   string // dotted path, "" for the whole result
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	target := e.Target
	if target == "" {
		target = "result"
	}
	return fmt.Sprintf("%s on %s: expected %s, got %s", e.Check, target, e.Expected, e.Actual)
}

// EvaluateThen checks a result against a case's then block and returns the
// failure messages. Keys are checked in sorted order.
func EvaluateThen(result *Result, then map[string]any) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if _, expectsError := then[KeyError]; !expectsError && result.ErrorMessage != "" {
		errs = append(errs, fmt.Sprintf("operation failed: %s", result.ErrorMessage))
		return errs
	}

	keys := make([]string, 0, len(then))
	for k := range then {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := then[key]
		switch key {
		case KeyRuleMatch:
			rules, err := parseRules(raw)
			if err != nil {
				add(err)
				continue
			}
			for _, rule := range rules {
				add(evaluateRule(result.Value, rule))
			}
		case KeySpace:
			add(checkEqual(KeySpace, "", raw, spaceValue(result.Space)))
		case KeyError:
			want, _ := raw.(string)
			if result.Code != want {
				add(&AssertionError{Check: KeyError, Expected: strconv.Quote(want), Actual: strconv.Quote(result.Code)})
			}
		default:
			add(checkEqual("equal", key, raw, Lookup(result.Value, key)))
		}
	}
	return errs
}

func spaceValue(sp ir.IRObject) ir.IRValue {
	if sp == nil {
		return nil
	}
	return sp
}

// checkEqual compares a decoded YAML expectation with an actual value.
func checkEqual(check, target string, raw any, actual ir.IRValue) error {
	want, err := ir.FromGo(raw)
	if err != nil {
		return fmt.Errorf("then.%s: %w", target, err)
	}
	if ir.Equal(want, actual) {
		return nil
	}
	return &AssertionError{Check: check, Target: target, Expected: render(want), Actual: render(actual)}
}

// Lookup resolves a dotted path. Numeric segments index arrays; a missing
// step yields nil. An empty path returns v.
func Lookup(v ir.IRValue, path string) ir.IRValue {
	if path == "" {
		return v
	}
	current := v
	for _, seg := range strings.Split(path, ".") {
		switch node := current.(type) {
		case ir.IRObject:
			next, ok := node[seg]
			if !ok {
				return nil
			}
			current = next
		case ir.IRArray:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			current = node[i]
		default:
			return nil
		}
	}
	return current
}

// parseRules converts the decoded ruleMatch list into rules, rejecting
// unknown types and values of the wrong kind.
func parseRules(raw any) ([]Rule, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("ruleMatch must be a list, got %T", raw)
	}

	rules := make([]Rule, 0, len(list))
	for i, entry := range list {
		v, err := ir.FromGo(entry)
		if err != nil {
			return nil, fmt.Errorf("ruleMatch[%d]: %w", i, err)
		}
		obj, ok := v.(ir.IRObject)
		if !ok {
			return nil, fmt.Errorf("ruleMatch[%d]: rule must be an object", i)
		}

		rule := Rule{Value: obj["value"]}
		typ, _ := obj["type"].(ir.IRString)
		rule.Type = string(typ)
		if target, ok := obj["target"].(ir.IRString); ok {
			rule.Target = string(target)
		}

		if err := checkRule(rule); err != nil {
			return nil, fmt.Errorf("ruleMatch[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func checkRule(r Rule) error {
	switch r.Type {
	case RuleIsArray, RuleIsObject:
		return nil
	case RuleHasKey, RuleStringEqualsIgnoreCase:
		if _, ok := r.Value.(ir.IRString); !ok {
			return fmt.Errorf("%s needs a string value, got %s", r.Type, ir.KindOf(r.Value))
		}
		return nil
	case RuleLengthEquals, RuleLengthNotGreaterThan, RuleLengthGreaterThan:
		if _, ok := r.Value.(ir.IRInt); !ok {
			return fmt.Errorf("%s needs an integer value, got %s", r.Type, ir.KindOf(r.Value))
		}
		return nil
	case "":
		return fmt.Errorf("rule type is required")
	default:
		return fmt.Errorf("unhandled rule type %q", r.Type)
	}
}

// evaluateRule applies one parsed rule to the result.
func evaluateRule(result ir.IRValue, r Rule) error {
	actual := Lookup(result, r.Target)
	fail := func(expected, got string) error {
		return &AssertionError{Check: r.Type, Target: r.Target, Expected: expected, Actual: got}
	}

	switch r.Type {
	case RuleHasKey:
		key := string(r.Value.(ir.IRString))
		obj, ok := actual.(ir.IRObject)
		if !ok {
			return fail(fmt.Sprintf("object with key %q", key), ir.KindOf(actual))
		}
		if _, has := obj[key]; !has {
			return fail(fmt.Sprintf("object with key %q", key), fmt.Sprintf("keys %v", obj.SortedKeys()))
		}
	case RuleIsArray:
		if _, ok := actual.(ir.IRArray); !ok {
			return fail("array", ir.KindOf(actual))
		}
	case RuleIsObject:
		if _, ok := actual.(ir.IRObject); !ok {
			return fail("object", ir.KindOf(actual))
		}
	case RuleLengthEquals, RuleLengthNotGreaterThan, RuleLengthGreaterThan:
		want := int(r.Value.(ir.IRInt))
		n, ok := lengthOf(actual)
		if !ok {
			return fail("array or string", ir.KindOf(actual))
		}
		switch {
		case r.Type == RuleLengthEquals && n != want:
			return fail(fmt.Sprintf("length %d", want), fmt.Sprintf("length %d", n))
		case r.Type == RuleLengthNotGreaterThan && n > want:
			return fail(fmt.Sprintf("length at most %d", want), fmt.Sprintf("length %d", n))
		case r.Type == RuleLengthGreaterThan && n <= want:
			return fail(fmt.Sprintf("length greater than %d", want), fmt.Sprintf("length %d", n))
		}
	case RuleStringEqualsIgnoreCase:
		want := string(r.Value.(ir.IRString))
		s, ok := actual.(ir.IRString)
		if !ok {
			return fail(strconv.Quote(want)+" ignoring case", ir.KindOf(actual))
		}
		fold := cases.Fold()
		if fold.String(string(s)) != fold.String(want) {
			return fail(strconv.Quote(want)+" ignoring case", strconv.Quote(string(s)))
		}
	default:
		return fmt.Errorf("unhandled rule type %q", r.Type)
	}
	return nil
}

// lengthOf measures arrays by element count and strings in UTF-16 code
// units.
func lengthOf(v ir.IRValue) (int, bool) {
	switch val := v.(type) {
	case ir.IRArray:
		return len(val), true
	case ir.IRString:
		return len(utf16.Encode([]rune(string(val)))), true
	}
	return 0, false
}

// render formats a value for failure messages.
func render(v ir.IRValue) string {
	if v == nil {
		return "undefined"
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
