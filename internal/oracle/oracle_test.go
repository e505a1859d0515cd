package oracle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `
module: sensors
types:
  clamp.v: int
  clamp.lo: int
  clamp.hi: int
  clamp.<return>: int
  clamp.<local>.span: int
  Point.x: int
  Point.scale.factor: float
  Point.scale.<return>: float
`

func TestParseAndLookup(t *testing.T) {
	report, err := Parse([]byte(sampleReport))
	require.NoError(t, err)
	assert.Equal(t, "sensors", report.Module)
	require.NoError(t, report.Err())

	typ, ok := report.LookupParam("", "clamp", "v")
	require.True(t, ok)
	assert.Equal(t, "int", typ)

	typ, ok = report.LookupReturn("", "clamp")
	require.True(t, ok)
	assert.Equal(t, "int", typ)

	typ, ok = report.LookupLocal("", "clamp", "span")
	require.True(t, ok)
	assert.Equal(t, "int", typ)

	typ, ok = report.LookupField("Point", "x")
	require.True(t, ok)
	assert.Equal(t, "int", typ)

	typ, ok = report.LookupParam("Point", "scale", "factor")
	require.True(t, ok)
	assert.Equal(t, "float", typ)

	_, ok = report.Lookup("no.such.name")
	assert.False(t, ok)
}

func TestParseDiagnostics(t *testing.T) {
	report, err := Parse([]byte(`
module: sensors
errors:
  - line: 12
    column: 5
    message: incompatible types in assignment
  - line: 30
    message: undefined name "speeed"
`))
	require.NoError(t, err)
	err = report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 error(s)")
	assert.Contains(t, err.Error(), "line 12:5")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("module: m\ntyps:\n  a.b: int\n"))
	require.Error(t, err)
}

func TestParseRequiresModule(t *testing.T) {
	_, err := Parse([]byte("types:\n  a.b: int\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module is required")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0o644))

	report, err := Load(path)
	require.NoError(t, err)
	typ, ok := report.LookupField("Point", "x")
	require.True(t, ok)
	assert.Equal(t, "int", typ)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestNilReportLookups(t *testing.T) {
	var report *Report
	_, ok := report.Lookup("a.b")
	assert.False(t, ok)
	assert.NoError(t, report.Err())
}
