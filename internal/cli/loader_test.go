package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pyrite.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProjectResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, `
project: {
	module: "mathx"
	source: "src/mathx.py"
	output: "build"
	oracle: "mathx.types.yaml"
	cache:  ".pyrite/cache.db"
}
`)

	proj, err := LoadProject(path)
	require.NoError(t, err)

	assert.Equal(t, "mathx", proj.Module)
	assert.Equal(t, filepath.Join(dir, "src", "mathx.py"), proj.Source)
	assert.Equal(t, filepath.Join(dir, "build"), proj.Output)
	assert.Equal(t, filepath.Join(dir, "mathx.types.yaml"), proj.Oracle)
	assert.Equal(t, filepath.Join(dir, ".pyrite", "cache.db"), proj.Cache)
}

func TestLoadProjectModuleDefaultsToStem(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), `
project: {
	source: "blinky.py"
}
`)

	proj, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, "blinky", proj.Module)
}

func TestLoadProjectKeepsAbsolutePaths(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), `
project: {
	source: "/abs/mathx.py"
}
`)

	proj, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/mathx.py", proj.Source)
}

func TestLoadProjectRequiresSource(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), `
project: {
	module: "mathx"
}
`)

	_, err := LoadProject(path)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
	assert.Contains(t, le.Message, "project.source is required")
}

func TestLoadProjectMissingBlock(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), `other: 1`)

	_, err := LoadProject(path)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
}

func TestLoadProjectMissingFile(t *testing.T) {
	_, err := LoadProject(filepath.Join(t.TempDir(), "pyrite.cue"))
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadProjectBadCUE(t *testing.T) {
	path := writeDescriptor(t, t.TempDir(), `project: { source: `)

	_, err := LoadProject(path)
	require.Error(t, err)
	le, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeLoadFailed, le.Code)
}
