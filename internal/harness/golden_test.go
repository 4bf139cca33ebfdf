package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kspace/internal/ir"
)

func TestSnapshot(t *testing.T) {
	c := &Case{Name: "get/one", Desc: "one item"}

	r := NewResult()
	r.Value = ir.IRObject{"b": ir.IRInt(1), "a": ir.IRString("x")}
	r.Space = ir.IRObject{"knowledge_space": ir.IRObject{"knowledge_items": ir.IRArray{}}}

	data, err := Snapshot(c, r)
	require.NoError(t, err)
	assert.Equal(t, `{"case":"get/one","desc":"one item","result":{"a":"x","b":1}}`+"\n", string(data),
		"unchanged space is left out")

	r.Changed = true
	data, err = Snapshot(c, r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"space":{"knowledge_space":{"knowledge_items":[]}}`)
}

func TestSnapshot_Error(t *testing.T) {
	r := NewResult()
	r.Code = "INVALID_TARGET"
	r.ErrorMessage = "invalid target"

	data, err := Snapshot(&Case{Name: "bad", Desc: "d"}, r)
	require.NoError(t, err)
	assert.Equal(t, `{"case":"bad","desc":"d","error":"INVALID_TARGET"}`+"\n", string(data))
}

func TestGoldenFiles(t *testing.T) {
	dir := t.TempDir()
	c := &Case{Name: "update/by-id"}
	snapshot := []byte("{\"case\":\"update/by-id\"}\n")

	assert.Equal(t, filepath.Join(dir, "update", "by-id"+GoldenSuffix), GoldenPath(dir, c))

	match, exists, err := CompareGolden(dir, c, snapshot)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, match)

	require.NoError(t, WriteGolden(dir, c, snapshot))

	match, exists, err = CompareGolden(dir, c, snapshot)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, match)

	match, _, err = CompareGolden(dir, c, []byte("{}\n"))
	require.NoError(t, err)
	assert.False(t, match)

	data, err := os.ReadFile(GoldenPath(dir, c))
	require.NoError(t, err)
	assert.Equal(t, snapshot, data)
}
