package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kspace", cmd.Use)
	assert.Contains(t, cmd.Long, "knowledge")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"exec"}, {"validate"}, {"explain"}, {"test"}, {"watch"},
		{"archive", "save"}, {"archive", "load"}, {"archive", "list"}, {"archive", "delete"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, DefaultEnvFile, envFlag.DefValue)
}

func TestExecCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	execCmd, _, err := cmd.Find([]string{"exec"})
	require.NoError(t, err)

	for _, name := range []string{"space", "db", "name", "base-dir", "dry-run", "strict"} {
		assert.NotNil(t, execCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, DefaultArchiveName, execCmd.Flags().Lookup("name").DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
	assert.NotNil(t, testCmd.Flags().Lookup("golden-dir"))
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := execute(NewRootCommand(), "--format", "invalid", "validate", "query.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestEnvFileSetsDefaults(t *testing.T) {
	unsetEnv(t, EnvFormat)
	unsetEnv(t, EnvSpace)

	dir := t.TempDir()
	envFile := writeFile(t, dir, "kspace.env", "KSPACE_FORMAT=json\nKSPACE_SPACE="+filepath.Join(dir, "space.json")+"\n")
	writeFile(t, dir, "space.json", fixtureSpaceJSON)
	query := writeFile(t, dir, "query.json", `{"action": "GET", "target": "knowledge_item", "alias": "quiz", "conditions": [{"field": "type", "operator": "=", "value": "quiz"}]}`)

	out, err := execute(NewRootCommand(), "--env-file", envFile, "exec", query)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "format taken from the env file")
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Algebra quiz", data["result"].(map[string]any)["quiz"].(map[string]any)["content"])
}

func TestEnvDoesNotOverrideFlags(t *testing.T) {
	t.Setenv(EnvFormat, "json")

	dir := t.TempDir()
	query := writeFile(t, dir, "query.json", `{"action": "GET", "target": "knowledge_item"}`)

	out, err := execute(NewRootCommand(), "--env-file", "", "--format", "text", "validate", query)
	require.NoError(t, err)
	assert.Contains(t, out, "GET request is valid")
}

func TestMissingExplicitEnvFile(t *testing.T) {
	_, err := execute(NewRootCommand(), "--env-file", filepath.Join(t.TempDir(), "missing.env"), "validate", "query.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestMissingDefaultEnvFileIsIgnored(t *testing.T) {
	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), DefaultEnvFile), false))
	assert.NoError(t, loadEnv("", true))
}
