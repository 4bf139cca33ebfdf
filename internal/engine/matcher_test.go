package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
)

func TestMatches_Equality(t *testing.T) {
	it := ir.IRObject{
		"id":    ir.IRInt(1),
		"type":  ir.IRString("note"),
		"score": ir.IRFloat(3.0),
		"done":  ir.IRBool(false),
		"none":  ir.IRNull{},
		"tags":  ir.IRArray{ir.IRString("go")},
	}

	tests := []struct {
		name  string
		field string
		value ir.IRValue
		want  bool
	}{
		{"string equal", "type", ir.IRString("note"), true},
		{"string differs", "type", ir.IRString("Note"), false},
		{"int equals float", "id", ir.IRFloat(1), true},
		{"float equals int", "score", ir.IRInt(3), true},
		{"number vs string", "id", ir.IRString("1"), false},
		{"bool", "done", ir.IRBool(false), true},
		{"bool vs number", "done", ir.IRInt(0), false},
		{"null equals null", "none", ir.IRNull{}, true},
		{"missing vs null", "missing", ir.IRNull{}, false},
		{"missing vs absent value", "missing", nil, true},
		{"null vs absent value", "none", nil, false},
		{"array deep equal", "tags", ir.IRArray{ir.IRString("go")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eq, err := Matches(it, cond(tt.field, queryir.OpEquals, tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, eq, "=")

			ne, err := Matches(it, cond(tt.field, queryir.OpNotEquals, tt.value))
			require.NoError(t, err)
			assert.Equal(t, !tt.want, ne, "!= is the negation of =")
		})
	}
}

func TestMatches_Contains(t *testing.T) {
	it := ir.IRObject{
		"title": ir.IRString("Go concurrency patterns"),
		"tags":  ir.IRArray{ir.IRString("go"), ir.IRInt(7)},
	}

	tests := []struct {
		name  string
		field string
		value ir.IRValue
		want  bool
	}{
		{"substring", "title", ir.IRString("concurrency"), true},
		{"case sensitive", "title", ir.IRString("GO"), false},
		{"empty substring", "title", ir.IRString(""), true},
		{"array element", "tags", ir.IRString("go"), true},
		{"array number element", "tags", ir.IRInt(7), true},
		{"array missing element", "tags", ir.IRString("rust"), false},
		{"array element is not substring", "tags", ir.IRString("g"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(it, cond(tt.field, queryir.OpContains, tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_StartsWith(t *testing.T) {
	it := ir.IRObject{"title": ir.IRString("Go basics")}

	got, err := Matches(it, cond("title", queryir.OpStartsWith, ir.IRString("Go")))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Matches(it, cond("title", queryir.OpStartsWith, ir.IRString("basics")))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMatches_FieldOperationErrors(t *testing.T) {
	it := ir.IRObject{
		"id":    ir.IRInt(1),
		"title": ir.IRString("Go"),
		"meta":  ir.IRObject{"k": ir.IRString("v")},
		"tags":  ir.IRArray{ir.IRString("go")},
	}

	tests := []struct {
		name string
		c    queryir.Condition
	}{
		{"contains on number", cond("id", queryir.OpContains, ir.IRInt(1))},
		{"contains on object", cond("meta", queryir.OpContains, ir.IRString("k"))},
		{"contains on missing field", cond("missing", queryir.OpContains, ir.IRString("x"))},
		{"contains string with array value", cond("title", queryir.OpContains, ir.IRArray{ir.IRString("G")})},
		{"starts_with on number", cond("id", queryir.OpStartsWith, ir.IRString("1"))},
		{"starts_with on array", cond("tags", queryir.OpStartsWith, ir.IRString("go"))},
		{"starts_with on missing field", cond("missing", queryir.OpStartsWith, ir.IRString("x"))},
		{"starts_with with object value", cond("title", queryir.OpStartsWith, ir.IRObject{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Matches(it, tt.c)
			require.Error(t, err)
			assert.True(t, IsCode(err, queryir.ErrCodeFieldOperation))

			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.c.Field, re.Field)
		})
	}
}

func TestMatches_ScalarValuesOnStringFields(t *testing.T) {
	it := ir.IRObject{
		"code":  ir.IRString("v1.25-beta"),
		"flag":  ir.IRString("true story"),
		"empty": ir.IRString("nullable"),
	}

	tests := []struct {
		name string
		c    queryir.Condition
		want bool
	}{
		{"contains int", cond("code", queryir.OpContains, ir.IRInt(1)), true},
		{"contains float", cond("code", queryir.OpContains, ir.IRFloat(1.25)), true},
		{"contains missing int", cond("code", queryir.OpContains, ir.IRInt(7)), false},
		{"contains bool", cond("flag", queryir.OpContains, ir.IRBool(true)), true},
		{"contains null", cond("empty", queryir.OpContains, ir.IRNull{}), true},
		{"starts_with int", cond("code", queryir.OpStartsWith, ir.IRInt(1)), false},
		{"starts_with bool", cond("flag", queryir.OpStartsWith, ir.IRBool(true)), true},
		{"starts_with null", cond("empty", queryir.OpStartsWith, ir.IRNull{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(it, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_UnknownOperatorIsPermissive(t *testing.T) {
	it := ir.IRObject{"n": ir.IRInt(1)}
	for _, op := range []queryir.Operator{">", "LIKE", "", "contains"} {
		got, err := Matches(it, cond("n", op, ir.IRInt(100)))
		require.NoError(t, err)
		assert.True(t, got, "operator %q", op)
	}
}

func TestMatchesAll(t *testing.T) {
	it := ir.IRObject{"type": ir.IRString("note"), "n": ir.IRInt(1)}

	ok, err := MatchesAll(it, nil)
	require.NoError(t, err)
	assert.True(t, ok, "empty conditions match everything")

	ok, err = MatchesAll(it, []queryir.Condition{
		cond("type", queryir.OpEquals, ir.IRString("note")),
		cond("n", queryir.OpEquals, ir.IRInt(1)),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchesAll(it, []queryir.Condition{
		cond("type", queryir.OpEquals, ir.IRString("task")),
		cond("n", queryir.OpEquals, ir.IRInt(1)),
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchesAll_ShortCircuits(t *testing.T) {
	it := ir.IRObject{"type": ir.IRString("note"), "n": ir.IRInt(1)}

	// The failing condition comes after a false one and is never evaluated.
	ok, err := MatchesAll(it, []queryir.Condition{
		cond("type", queryir.OpEquals, ir.IRString("task")),
		cond("n", queryir.OpContains, ir.IRString("x")),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = MatchesAll(it, []queryir.Condition{
		cond("type", queryir.OpEquals, ir.IRString("note")),
		cond("n", queryir.OpContains, ir.IRString("x")),
	})
	assert.True(t, IsCode(err, queryir.ErrCodeFieldOperation))
}

func TestMatchesAll_RemovingConditionNeverShrinks(t *testing.T) {
	sp := fixtureSpace()
	conds := []queryir.Condition{
		cond("type", queryir.OpEquals, ir.IRString("note")),
		cond("tags", queryir.OpContains, ir.IRString("go")),
		cond("difficulty", queryir.OpNotEquals, ir.IRString("hard")),
	}

	count := func(cs []queryir.Condition) int {
		n := 0
		for _, it := range sp.Items() {
			ok, err := MatchesAll(it, cs)
			require.NoError(t, err)
			if ok {
				n++
			}
		}
		return n
	}

	full := count(conds)
	for i := range conds {
		reduced := append(append([]queryir.Condition{}, conds[:i]...), conds[i+1:]...)
		assert.GreaterOrEqual(t, count(reduced), full, "dropping condition %d", i)
	}
}
