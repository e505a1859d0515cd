// Package pipeline turns one annotated source unit into a MicroPython
// usermod output unit: the generated C file, a micropython.mk fragment,
// a micropython.cmake fragment, and a build descriptor. The core stays
// stateless; callers own caching and file placement.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/pyrite/internal/cemit"
	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/irbuild"
	"github.com/roach88/pyrite/internal/oracle"
	"github.com/roach88/pyrite/internal/pysrc"
)

// Version identifies the code generator. It participates in cache keys
// so stale entries from older generators never satisfy a lookup.
const Version = "0.3.0"

// Options configure one compilation.
type Options struct {
	// ModuleName names the output module. Empty means the caller's
	// file stem (CompileFile) or "mymodule" (CompileSource).
	ModuleName string

	// Oracle is the optional external type report. Its diagnostics
	// abort compilation before lowering; its resolved types take
	// precedence over source annotations.
	Oracle *oracle.Report

	// IDs generates the build identifier. Nil means UUIDv7.
	IDs BuildIDGenerator
}

// Result describes one output unit. Errors is non-empty exactly when
// Success is false.
type Result struct {
	ModuleName string
	CCode      string
	MkCode     string
	CMakeCode  string
	BuildID    string
	Success    bool
	Errors     []string
}

// CompileSource compiles annotated source text into an output unit.
func CompileSource(source string, opts Options) Result {
	name := opts.ModuleName
	if name == "" {
		name = "mymodule"
	}
	ids := opts.IDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	if err := opts.Oracle.Err(); err != nil {
		return failure(name, err)
	}
	if opts.Oracle != nil && opts.Oracle.Module != name {
		return failure(name, fmt.Errorf(
			"oracle report is for module %q, not %q", opts.Oracle.Module, name))
	}

	mod, err := pysrc.Parse(source)
	if err != nil {
		return failure(name, err)
	}
	out, err := irbuild.New(name, opts.Oracle).Build(mod)
	if err != nil {
		return failure(name, err)
	}

	return Result{
		ModuleName: name,
		CCode:      cemit.EmitModule(out),
		MkCode:     MicropythonMk(name),
		CMakeCode:  MicropythonCMake(name),
		BuildID:    ids.Generate(),
		Success:    true,
	}
}

// CompileFile reads and compiles a source file. The module name
// defaults to the file stem.
func CompileFile(path string, opts Options) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return failure(opts.ModuleName, fmt.Errorf("source file not found: %s", path))
	}
	if opts.ModuleName == "" {
		base := filepath.Base(path)
		opts.ModuleName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return CompileSource(string(data), opts)
}

// WriteUnit lays the result out on disk:
//
//	<dir>/usermod_<name>/
//	  <name>.c
//	  micropython.mk
//	  micropython.cmake
//
// It returns the unit directory path.
func (r Result) WriteUnit(dir string) (string, error) {
	if !r.Success {
		return "", fmt.Errorf("cannot write failed compilation of %s", r.ModuleName)
	}
	unit := filepath.Join(dir, "usermod_"+ir.SanitizeName(r.ModuleName))
	if err := os.MkdirAll(unit, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	files := map[string]string{
		r.ModuleName + ".c": r.CCode,
		"micropython.mk":    r.MkCode,
		"micropython.cmake": r.CMakeCode,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(unit, name), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return unit, nil
}

func failure(name string, err error) Result {
	return Result{ModuleName: name, Errors: []string{err.Error()}}
}

// MicropythonMk renders the make fragment that adds the unit to a
// MicroPython user-C-module build.
func MicropythonMk(moduleName string) string {
	upper := strings.ToUpper(ir.SanitizeName(moduleName))
	return fmt.Sprintf(`%[1]s_MOD_DIR := $(USERMOD_DIR)
SRC_USERMOD += $(wildcard $(%[1]s_MOD_DIR)/*.c)
CFLAGS_USERMOD += -I$(%[1]s_MOD_DIR)
`, upper)
}

// MicropythonCMake renders the cmake fragment. The interface library
// name uses the sanitized module name; the source filename keeps the
// original spelling.
func MicropythonCMake(moduleName string) string {
	cname := ir.SanitizeName(moduleName)
	return fmt.Sprintf(`add_library(usermod_%[1]s INTERFACE)

target_sources(usermod_%[1]s INTERFACE
    ${CMAKE_CURRENT_LIST_DIR}/%[2]s.c
)

target_include_directories(usermod_%[1]s INTERFACE
    ${CMAKE_CURRENT_LIST_DIR}
)

target_link_libraries(usermod INTERFACE usermod_%[1]s)
`, cname, moduleName)
}
