package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("disk full")
	err := WrapExitError(ExitCommandError, "writing output", inner)

	assert.Equal(t, "writing output: disk full", err.Error())
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCodeDefaultsToFailure(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestOutputFormatterJSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]string{"module": "mathx"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "mathx", data["module"])
}

func TestOutputFormatterJSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error(ErrCodeBuild, "line 2:5: break outside loop", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBuild, resp.Error.Code)
}

func TestOutputFormatterTextError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error(ErrCodeParse, "unexpected token", nil))
	assert.Equal(t, "Error [E101]: unexpected token\n", buf.String())
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("compiling %s", "mathx")

	assert.Empty(t, out.String())
	assert.Equal(t, "compiling mathx\n", errOut.String())
}

func TestVerboseLogSuppressedWhenQuiet(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: false}

	f.VerboseLog("never shown")
	assert.Empty(t, buf.String())
}
