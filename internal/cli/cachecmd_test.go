package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheListEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	out, err := runCommand(t, "text", "cache", "list", "--cache", cachePath)
	require.NoError(t, err)
	assert.Contains(t, out, "cache is empty")
}

func TestCacheListAfterCompile(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	_, err := runCommand(t, "text", "compile", src, "-o", t.TempDir(), "--cache", cachePath)
	require.NoError(t, err)

	out, err := runCommand(t, "text", "cache", "list", "--cache", cachePath)
	require.NoError(t, err)
	assert.Contains(t, out, "1 cached compilation(s)")
	assert.Contains(t, out, "add")
}

func TestCacheListJSON(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	_, err := runCommand(t, "text", "compile", src, "-o", t.TempDir(), "--cache", cachePath)
	require.NoError(t, err)

	out, err := runCommand(t, "json", "cache", "list", "--cache", cachePath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	entries, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "add", entry["module"])
	assert.NotEmpty(t, entry["build_id"])
}

func TestCacheClear(t *testing.T) {
	src := writeSource(t, "add.py", addSource)
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	_, err := runCommand(t, "text", "compile", src, "-o", t.TempDir(), "--cache", cachePath)
	require.NoError(t, err)

	out, err := runCommand(t, "text", "cache", "clear", "--cache", cachePath)
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 cached compilation(s)")

	out, err = runCommand(t, "text", "cache", "list", "--cache", cachePath)
	require.NoError(t, err)
	assert.Contains(t, out, "cache is empty")
}

func TestCacheRequiresPath(t *testing.T) {
	out, err := runCommand(t, "text", "cache", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeCacheFailed)
}
