package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Project is the build descriptor loaded from a pyrite.cue file:
//
//	project: {
//	    module: "mathx"         // optional, defaults to the source stem
//	    source: "mathx.py"      // required
//	    output: "build"         // optional, defaults to the source directory
//	    oracle: "mathx.types.yaml"  // optional type-oracle report
//	    cache:  ".pyrite/cache.db"  // optional compilation cache
//	}
//
// Relative paths resolve against the descriptor's directory.
type Project struct {
	Module string `json:"module"`
	Source string `json:"source"`
	Output string `json:"output"`
	Oracle string `json:"oracle"`
	Cache  string `json:"cache"`
}

// LoadError represents an error that occurred during descriptor loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProject reads and validates a pyrite.cue build descriptor.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("project descriptor not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading project descriptor: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeLoadFailed, "parsing project descriptor", err)
	}

	projVal := value.LookupPath(cue.ParsePath("project"))
	if !projVal.Exists() {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("no project block in %s", path)}
	}

	var proj Project
	if err := projVal.Decode(&proj); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "decoding project block", err)
	}
	if proj.Source == "" {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "project.source is required"}
	}

	base := filepath.Dir(path)
	proj.Source = resolve(base, proj.Source)
	proj.Output = resolve(base, proj.Output)
	proj.Oracle = resolve(base, proj.Oracle)
	proj.Cache = resolve(base, proj.Cache)

	if proj.Module == "" {
		stem := filepath.Base(proj.Source)
		proj.Module = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	return &proj, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func cueLoadError(code, context string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", context, err)}
	if positions := cueerrors.Positions(cueerrors.Promote(err, context)); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeLoadFailed  = "E003" // Descriptor parse failed
	ErrCodeBuildFailed = "E004" // Descriptor validation failed
	ErrCodeWriteFailed = "E005" // File write error
	ErrCodeCacheFailed = "E006" // Cache open/read/write error

	// Compilation errors
	ErrCodeParse     = "E101" // Source parse rejection
	ErrCodeBuild     = "E102" // IR build rejection
	ErrCodeTypeCheck = "E103" // Type-oracle diagnostics
	ErrCodeDump      = "E104" // Dump selection error
)
