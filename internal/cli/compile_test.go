package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addSource = `
def add(a: int, b: int) -> int:
    return a + b
`

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--format", format}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileWritesUnit(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	outDir := t.TempDir()

	out, err := runCommand(t, "text", "compile", src, "-o", outDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled add, build ")
	assert.Contains(t, out, filepath.Join(outDir, "usermod_add", "add.c"))

	cCode, err := os.ReadFile(filepath.Join(outDir, "usermod_add", "add.c"))
	require.NoError(t, err)
	assert.Contains(t, string(cCode), "MP_REGISTER_MODULE(MP_QSTR_add, add_user_cmodule);")

	for _, name := range []string{"micropython.mk", "micropython.cmake"} {
		_, err := os.Stat(filepath.Join(outDir, "usermod_add", name))
		assert.NoError(t, err, name)
	}
}

func TestCompileJSON(t *testing.T) {
	src := writeSource(t, "add.py", addSource)

	out, err := runCommand(t, "json", "compile", src, "-o", t.TempDir())
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "add", data["module"])
	assert.NotEmpty(t, data["build_id"])
	assert.Equal(t, false, data["from_cache"])
}

func TestCompileRejectionExitsOne(t *testing.T) {
	src := writeSource(t, "bad.py", "def broken(:\n")

	out, err := runCommand(t, "text", "compile", src, "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, ErrCodeBuild)
}

func TestCompileMissingSourceExitsTwo(t *testing.T) {
	out, err := runCommand(t, "text", "compile", filepath.Join(t.TempDir(), "nope.py"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCompileOracleDiagnostics(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	oraclePath := writeSource(t, "add.types.yaml", `
module: add
errors:
  - line: 3
    message: incompatible return value type
`)

	out, err := runCommand(t, "text", "compile", src, "--oracle", oraclePath, "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeTypeCheck)
	assert.Contains(t, out, "type check failed")
}

func TestCompileCacheRoundTrip(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	cachePath := filepath.Join(t.TempDir(), "cache.db")
	outDir := t.TempDir()

	first, err := runCommand(t, "text", "compile", src, "-o", outDir, "--cache", cachePath)
	require.NoError(t, err)
	assert.NotContains(t, first, "(cached)")

	second, err := runCommand(t, "text", "compile", src, "-o", outDir, "--cache", cachePath)
	require.NoError(t, err)
	assert.Contains(t, second, "(cached)")
}

func TestCompileFromProjectDescriptor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blinky.py"), []byte(addSource), 0o644))
	descriptor := filepath.Join(dir, "pyrite.cue")
	require.NoError(t, os.WriteFile(descriptor, []byte(`
project: {
	source: "blinky.py"
	output: "build"
}
`), 0o644))

	out, err := runCommand(t, "text", "compile", "--project", descriptor)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled blinky, build ")

	_, err = os.Stat(filepath.Join(dir, "build", "usermod_blinky", "blinky.c"))
	assert.NoError(t, err)
}
