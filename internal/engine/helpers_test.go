package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
	"github.com/roach88/kspace/internal/testutil"
)

// newTestEngine returns an engine with a fixed clock and sequential ids.
func newTestEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(testutil.NewDeterministicClock(testutil.SuiteTime)),
		WithOperationIDs(testutil.NewSequenceIDGenerator("op")),
	}
	return New(append(base, opts...)...)
}

// item builds a fixture item with extra fields.
func item(id int64, typ, content string, extra ir.IRObject) space.Item {
	it := space.NewItem(id, typ, ir.IRString(content), testutil.SuiteTime)
	return it.Merge(extra)
}

// fixtureSpace returns five items:
//
//	id type difficulty score tags
//	1  note easy       3     go,intro
//	2  note hard       5     go
//	3  task medium     4     rust
//	4  note easy       2     python,intro
//	5  task medium     3     go,testing
func fixtureSpace() *space.Space {
	tags := func(ts ...string) ir.IRArray {
		arr := make(ir.IRArray, len(ts))
		for i, t := range ts {
			arr[i] = ir.IRString(t)
		}
		return arr
	}
	return space.New(
		item(1, "note", "Go basics", ir.IRObject{"difficulty": ir.IRString("easy"), "score": ir.IRInt(3), "tags": tags("go", "intro")}),
		item(2, "note", "Go concurrency", ir.IRObject{"difficulty": ir.IRString("hard"), "score": ir.IRInt(5), "tags": tags("go")}),
		item(3, "task", "Rust ownership", ir.IRObject{"difficulty": ir.IRString("medium"), "score": ir.IRInt(4), "tags": tags("rust")}),
		item(4, "note", "Python intro", ir.IRObject{"difficulty": ir.IRString("easy"), "score": ir.IRInt(2), "tags": tags("python", "intro")}),
		item(5, "task", "Go testing", ir.IRObject{"difficulty": ir.IRString("medium"), "score": ir.IRInt(3), "tags": tags("go", "testing")}),
	)
}

// ids extracts item ids from a result array.
func ids(t *testing.T, v ir.IRValue) []int64 {
	t.Helper()
	arr, ok := v.(ir.IRArray)
	require.True(t, ok, "expected array, got %s", ir.KindOf(v))
	out := make([]int64, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(ir.IRObject)
		require.True(t, ok)
		out[i] = space.Item(obj).ID()
	}
	return out
}

func cond(field string, op queryir.Operator, value ir.IRValue) queryir.Condition {
	return queryir.Condition{Field: field, Operator: op, Value: value}
}

func getAll(conds ...queryir.Condition) *queryir.Get {
	return &queryir.Get{Target: queryir.TargetKnowledgeItem, Conditions: conds}
}

func mustObject(t *testing.T, src string) ir.IRObject {
	t.Helper()
	v, err := ir.UnmarshalIRValue([]byte(src))
	require.NoError(t, err)
	obj, ok := v.(ir.IRObject)
	require.True(t, ok)
	return obj
}
