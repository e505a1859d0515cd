package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pyrite/internal/oracle"
	"github.com/roach88/pyrite/internal/testutil"
)

const addSource = `
def add(a: int, b: int) -> int:
    return a + b
`

func TestCompileSourceSuccess(t *testing.T) {
	res := CompileSource(addSource, Options{
		ModuleName: "mathx",
		IDs:        testutil.NewFixedIDGenerator("build-1"),
	})

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, "mathx", res.ModuleName)
	assert.Equal(t, "build-1", res.BuildID)
	assert.Contains(t, res.CCode, "MP_REGISTER_MODULE(MP_QSTR_mathx, mathx_user_cmodule);")
	assert.Contains(t, res.MkCode, "MATHX_MOD_DIR := $(USERMOD_DIR)")
	assert.Contains(t, res.CMakeCode, "add_library(usermod_mathx INTERFACE)")
	assert.Contains(t, res.CMakeCode, "target_link_libraries(usermod INTERFACE usermod_mathx)")
}

func TestCompileSourceParseError(t *testing.T) {
	res := CompileSource("def broken(:\n", Options{ModuleName: "bad"})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Empty(t, res.CCode)
	assert.Empty(t, res.BuildID)
}

func TestOracleDiagnosticsAbortBeforeLowering(t *testing.T) {
	report := &oracle.Report{
		Module: "mathx",
		Errors: []oracle.Diagnostic{{Line: 3, Message: `incompatible return value type`}},
	}
	res := CompileSource(addSource, Options{ModuleName: "mathx", Oracle: report})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "type check failed with 1 error(s)")
	assert.Contains(t, res.Errors[0], "line 3")
}

func TestOracleModuleMismatch(t *testing.T) {
	report := &oracle.Report{Module: "other"}
	res := CompileSource(addSource, Options{ModuleName: "mathx", Oracle: report})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `oracle report is for module "other", not "mathx"`)
}

func TestCompileFileUsesStem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blinky.py")
	require.NoError(t, os.WriteFile(path, []byte(addSource), 0o644))

	res := CompileFile(path, Options{IDs: testutil.NewFixedIDGenerator("build-1")})

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, "blinky", res.ModuleName)
}

func TestCompileFileMissing(t *testing.T) {
	res := CompileFile(filepath.Join(t.TempDir(), "nope.py"), Options{})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "source file not found")
}

func TestWriteUnitLayout(t *testing.T) {
	res := CompileSource(addSource, Options{
		ModuleName: "mathx",
		IDs:        testutil.NewFixedIDGenerator("build-1"),
	})
	require.True(t, res.Success)

	dir := t.TempDir()
	unit, err := res.WriteUnit(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "usermod_mathx"), unit)

	for _, name := range []string{"mathx.c", "micropython.mk", "micropython.cmake"} {
		data, err := os.ReadFile(filepath.Join(unit, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
}

func TestWriteUnitRejectsFailure(t *testing.T) {
	res := CompileSource("def broken(:\n", Options{ModuleName: "bad"})

	_, err := res.WriteUnit(t.TempDir())
	assert.ErrorContains(t, err, "cannot write failed compilation")
}

func TestGoldenBuildFragments(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "mathx_mk", []byte(MicropythonMk("mathx")))
	g.Assert(t, "mathx_cmake", []byte(MicropythonCMake("mathx")))
}
