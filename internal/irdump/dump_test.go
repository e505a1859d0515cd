package irdump

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/irbuild"
	"github.com/roach88/pyrite/internal/pysrc"
)

func buildIR(t *testing.T, src string) *ir.ModuleIR {
	t.Helper()
	mod, err := pysrc.Parse(src)
	require.NoError(t, err)
	out, err := irbuild.New("demo", nil).Build(mod)
	require.NoError(t, err)
	return out
}

const dumpSource = `
def add(a: int, b: int) -> int:
    return a + b

def count(n: int):
    for i in range(n):
        yield i

class Point:
    x: int
    y: int

    def __init__(self, x: int, y: int) -> None:
        self.x = x
        self.y = y

    def norm(self) -> int:
        return self.x * self.x + self.y * self.y
`

func TestTextModule(t *testing.T) {
	m := buildIR(t, dumpSource)
	out, err := Module(m, FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "Module: demo (c_name: demo)")
	assert.Contains(t, out, "def add(a: int, b: int) -> int:")
	assert.Contains(t, out, "c_name: add")
	assert.Contains(t, out, "return (a + b)")
	assert.Contains(t, out, "generator: 1 yield states")
	assert.Contains(t, out, "yield i [state_id=1]")
	assert.Contains(t, out, "Class: Point (c_name: Point)")
	assert.Contains(t, out, "x: int")
	assert.Contains(t, out, "def norm() -> int")
}

func TestTextFunctionOnly(t *testing.T) {
	m := buildIR(t, dumpSource)
	out, err := Function(m, "add", FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "def add(a: int, b: int) -> int:")
	assert.NotContains(t, out, "count")
	assert.NotContains(t, out, "Point")
}

func TestTextPreludeComments(t *testing.T) {
	m := buildIR(t, `
def first(xs: list) -> int:
    v = xs[0]
    return v
`)
	out, err := Function(m, "first", FormatText)
	require.NoError(t, err)

	assert.Contains(t, out, "# prelude:")
	assert.Contains(t, out, "= ListGetFast(xs, 0)")
}

func TestTreeConnectors(t *testing.T) {
	m := buildIR(t, dumpSource)
	out, err := Module(m, FormatTree)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Module [name=demo c_name=demo]"))
	assert.Contains(t, out, "|-- functions (2)")
	assert.Contains(t, out, "FuncIR [name=add")
	assert.Contains(t, out, "`-- ")
	assert.Contains(t, out, "ClassIR [name=Point")
}

func TestJSONIsValidAndOrdered(t *testing.T) {
	m := buildIR(t, dumpSource)
	out, err := Module(m, FormatJSON)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Module", doc["_type"])
	assert.Equal(t, "demo", doc["name"])

	// _type leads every object so consumers can dispatch on it.
	assert.True(t, strings.HasPrefix(out, "{\n  \"_type\": \"Module\""))

	fns, ok := doc["functions"].([]any)
	require.True(t, ok)
	require.Len(t, fns, 2)
	first := fns[0].(map[string]any)
	assert.Equal(t, "FuncIR", first["_type"])
	assert.Equal(t, "add", first["name"])
}

func TestUnknownFunctionAndFormat(t *testing.T) {
	m := buildIR(t, dumpSource)

	_, err := Function(m, "missing", FormatText)
	assert.ErrorContains(t, err, `no function "missing"`)

	_, err = ParseFormat("yaml")
	assert.ErrorContains(t, err, `unknown dump format "yaml"`)
}

func TestGoldenTextDump(t *testing.T) {
	m := buildIR(t, `
def clamp(v: int, lo: int, hi: int) -> int:
    if v < lo:
        return lo
    if v > hi:
        return hi
    return v
`)
	out, err := Module(m, FormatText)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "clamp_text", []byte(out))
}
