package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpIRTextDefault(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "text", "dump-ir", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Module: add (c_name: add)")
	assert.Contains(t, out, "def add(a: int, b: int) -> int:")
	assert.Contains(t, out, "return (a + b)")
}

func TestDumpIRTree(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "text", "dump-ir", src, "--ir-format", "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "Module [name=add c_name=add]")
	assert.Contains(t, out, "`-- ")
}

func TestDumpIRJSON(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "text", "dump-ir", src, "--ir-format", "json")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Module", doc["_type"])
	assert.Equal(t, "add", doc["name"])
}

func TestDumpIRSingleFunction(t *testing.T) {
	src := writeSource(t, "pair.py", `
def first(a: int, b: int) -> int:
    return a

def second(a: int, b: int) -> int:
    return b
`)

	out, err := runCommand(t, "text", "dump-ir", src, "--function", "second")
	require.NoError(t, err)
	assert.Contains(t, out, "def second")
	assert.NotContains(t, out, "def first")
}

func TestDumpIRUnknownFunction(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "text", "dump-ir", src, "--function", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeDump)
}

func TestDumpIRUnknownFormat(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "text", "dump-ir", src, "--ir-format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unknown dump format")
}

func TestDumpIRParseRejection(t *testing.T) {
	src := writeSource(t, "bad.py", "def broken(:\n")

	out, err := runCommand(t, "text", "dump-ir", src)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeParse)
}
