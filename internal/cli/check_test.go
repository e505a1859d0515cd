package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCleanSource(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "text", "check", src)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ add: 1 function(s), 0 class(es)")
}

func TestCheckJSON(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "json", "check", src)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "add", data["module"])
	assert.Equal(t, float64(1), data["functions"])
}

func TestCheckParseRejection(t *testing.T) {
	src := writeSource(t, "bad.py", "def broken(:\n")

	out, err := runCommand(t, "text", "check", src)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeParse)
}

func TestCheckBuildRejection(t *testing.T) {
	src := writeSource(t, "bad.py", `
def loopless() -> None:
    break
`)

	out, err := runCommand(t, "text", "check", src)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBuild)
}

func TestCheckOracleDiagnostics(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	oraclePath := writeSource(t, "add.types.yaml", `
module: add
errors:
  - line: 3
    column: 12
    message: incompatible return value type
`)

	out, err := runCommand(t, "text", "check", src, "--oracle", oraclePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Type check failed")
	assert.Contains(t, out, "line 3:12: incompatible return value type")
}

func TestCheckOracleModuleMismatch(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	oraclePath := writeSource(t, "other.types.yaml", "module: other\n")

	out, err := runCommand(t, "text", "check", src, "--oracle", oraclePath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeTypeCheck)
}
