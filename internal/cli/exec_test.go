package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kspace/internal/engine"
	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/space"
	"github.com/roach88/kspace/internal/store"
	"github.com/roach88/kspace/internal/testutil"
)

func newTestExecCommand(format string) *cobra.Command {
	return newExecCommand(&ExecOptions{
		RootOptions:  &RootOptions{Format: format},
		Clock:        testutil.NewDeterministicClock(testutil.SuiteTime),
		OperationIDs: engine.NewFixedGenerator("op-1"),
	})
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestExec_GetText(t *testing.T) {
	unsetEnv(t, EnvSpace)
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "query.json", `{"dslQuery": {
		"action": "GET", "target": "knowledge_item", "alias": "hard",
		"conditions": [{"field": "difficulty", "operator": "=", "value": "hard"}]
	}}`)

	out, err := execute(newTestExecCommand("text"), query, "--space", spacePath)
	require.NoError(t, err)
	assert.Contains(t, out, `"content": "Linear algebra"`)
	assert.JSONEq(t, fixtureSpaceJSON, readFile(t, spacePath), "GET never writes")
}

func TestExec_GetJSONCarriesOperationID(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "query.json", `{"action": "GET", "target": "knowledge_item", "order_by": {"field": "id", "direction": "DESC"}, "limit": 2}`)

	out, err := execute(newTestExecCommand("json"), query, "--space", spacePath)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "op-1", resp.TraceID)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "GET", data["action"])
	assert.Equal(t, false, data["saved"])
	items := data["result"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, float64(3), items[0].(map[string]any)["id"])
	assert.Equal(t, float64(2), items[1].(map[string]any)["id"])
}

func TestExec_CreateWritesSpace(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.yaml", "knowledge_space:\n  knowledge_items:\n    - id: 1\n      type: note\n      content: first\n")
	query := writeFile(t, dir, "create.yaml", "dslQuery:\n  action: CREATE\n  target: knowledge_item\n  type: flashcard\n  value: Integrals\n")

	out, err := execute(newTestExecCommand("json"), query, "--space", spacePath)
	require.NoError(t, err)

	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, true, data["saved"])
	assert.Equal(t, float64(2), data["result"].(map[string]any)["id"])

	sp, err := space.Load(spacePath)
	require.NoError(t, err)
	require.Equal(t, 2, sp.Len())
	created := sp.Items()[1]
	assert.Equal(t, ir.IRString("Integrals"), created["content"])
	assert.Equal(t, ir.IRString("2024-03-17T12:55:48.000Z"), created["created_at"])
}

func TestExec_DryRunLeavesSpace(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "update.json", `{"action": "UPDATE", "target": "knowledge_item",
		"conditions": [{"field": "id", "operator": "=", "value": 1}],
		"update": {"difficulty": "medium"}}`)

	out, err := execute(newTestExecCommand("text"), query, "--space", spacePath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "1 item(s) updated successfully.")
	assert.JSONEq(t, fixtureSpaceJSON, readFile(t, spacePath))
}

func TestExec_UpdateWritesSpace(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "update.json", `{"action": "UPDATE", "target": "knowledge_item",
		"conditions": [{"field": "tags", "operator": "CONTAINS", "value": "math"}],
		"update": {"reviewed": true}}`)

	out, err := execute(newTestExecCommand("text"), query, "--space", spacePath)
	require.NoError(t, err)
	assert.Contains(t, out, "3 item(s) updated successfully.")

	sp, err := space.Load(spacePath)
	require.NoError(t, err)
	for _, it := range sp.Items() {
		assert.Equal(t, ir.IRBool(true), it["reviewed"])
	}
}

func TestExec_OperationErrors(t *testing.T) {
	tests := []struct {
		name string
		dsl  string
		code string
	}{
		{"no matching items", `{"action": "UPDATE", "target": "knowledge_item", "conditions": [{"field": "id", "operator": "=", "value": 42}], "update": {"x": 1}}`, "NO_MATCHING_ITEMS"},
		{"invalid target", `{"action": "GET", "target": "users"}`, "INVALID_TARGET"},
		{"invalid action", `{"action": "DELETE", "target": "knowledge_item"}`, "INVALID_ACTION"},
		{"field operation", `{"action": "GET", "target": "knowledge_item", "conditions": [{"field": "id", "operator": "STARTS_WITH", "value": "1"}]}`, "FIELD_OPERATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
			query := writeFile(t, dir, "query.json", tt.dsl)

			out, err := execute(newTestExecCommand("json"), query, "--space", spacePath)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.JSONEq(t, fixtureSpaceJSON, readFile(t, spacePath), "space untouched on error")
		})
	}
}

func TestExec_StrictRejectsWarnings(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "query.json", `{"action": "GET", "target": "knowledge_item", "conditions": [{"field": "id", "operator": ">", "value": 1}]}`)

	out, err := execute(newTestExecCommand("text"), query, "--space", spacePath)
	require.NoError(t, err, "unknown operators match everything without --strict")
	assert.Contains(t, out, "Algebra quiz")

	out, err = execute(newTestExecCommand("text"), query, "--space", spacePath, "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeWarnings+"]")
}

func TestExec_CommandErrors(t *testing.T) {
	unsetEnv(t, EnvSpace)
	unsetEnv(t, EnvDB)
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "query.json", `{"action": "GET", "target": "knowledge_item"}`)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no space", []string{query}, ErrCodeGeneric},
		{"space and db", []string{query, "--space", spacePath, "--db", filepath.Join(dir, "a.db")}, ErrCodeGeneric},
		{"missing request", []string{filepath.Join(dir, "nope.json"), "--space", spacePath}, ErrCodeNotFound},
		{"malformed request", []string{writeFile(t, dir, "bad.json", `{"action"`), "--space", spacePath}, ErrCodeLoadFailed},
		{"missing space", []string{query, "--space", filepath.Join(dir, "none.json")}, ErrCodeLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(newTestExecCommand("json"), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Equal(t, tt.code, decodeResponse(t, out).Error.Code)
		})
	}
}

func TestExec_SpaceFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvSpace, writeFile(t, dir, "space.json", fixtureSpaceJSON))
	query := writeFile(t, dir, "query.json", `{"action": "GET", "target": "knowledge_item", "alias": "first", "limit": 1}`)

	out, err := execute(newTestExecCommand("text"), query)
	require.NoError(t, err)
	assert.Contains(t, out, "Math basics")
}

func TestExec_Batch(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "batch.json", `{"dslQuery": {"batch": true, "queries": [
		{"target": "knowledge_item", "alias": "notes", "conditions": [{"field": "type", "operator": "=", "value": "note"}]},
		{"target": "knowledge_item", "alias": "quiz", "conditions": [{"field": "type", "operator": "=", "value": "quiz"}]}
	]}}`)

	out, err := execute(newTestExecCommand("json"), query, "--space", spacePath)
	require.NoError(t, err)

	data := decodeResponse(t, out).Data.(map[string]any)
	assert.Equal(t, "BATCH", data["action"])
	result := data["result"].(map[string]any)
	assert.Len(t, result["notes"], 2)
	assert.Equal(t, "Algebra quiz", result["quiz"].(map[string]any)["content"])
}

func TestExec_ArchivedSpace(t *testing.T) {
	unsetEnv(t, EnvSpace)
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kspace.db")

	sp, err := space.Load(writeFile(t, dir, "space.json", fixtureSpaceJSON))
	require.NoError(t, err)
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.SaveSpace(context.Background(), "notes", sp, testutil.SuiteTime))
	require.NoError(t, st.Close())

	query := writeFile(t, dir, "update.json", `{"action": "UPDATE", "target": "knowledge_item",
		"conditions": [{"field": "id", "operator": "=", "value": 2}],
		"update": {"difficulty": "medium"}}`)

	_, err = execute(newTestExecCommand("text"), query, "--db", dbPath, "--name", "notes")
	require.NoError(t, err)

	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	archived, err := st.LoadSpace(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("medium"), archived.Items()[1]["difficulty"])
}

func TestExec_GeneratedContentResolvesAgainstRequestDir(t *testing.T) {
	dir := t.TempDir()
	spacePath := writeFile(t, dir, "space.json", `{"knowledge_space": {"knowledge_items": []}}`)
	writeFile(t, dir, "requests/src/readme.md", "hello")
	writeFile(t, dir, "requests/gen.json", `{"project": {"base_path": "src"}, "template": "{{range .Files}}{{.Path}}={{.Content}}{{end}}"}`)
	query := writeFile(t, dir, "requests/create.json", `{"action": "CREATE", "target": "knowledge_item", "type": "project_context",
		"processor": "prompt_context_builder", "meta": {"config_path": "gen.json"}}`)

	_, err := execute(newTestExecCommand("text"), query, "--space", spacePath)
	require.NoError(t, err)

	sp, err := space.Load(spacePath)
	require.NoError(t, err)
	require.Equal(t, 1, sp.Len())
	assert.Equal(t, ir.IRString("readme.md=hello"), sp.Items()[0]["content"])
}
