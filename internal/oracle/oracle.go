// Package oracle loads the optional external type-inference report
// consumed by the IR builder. When a report is present its resolved
// types take precedence over source annotations, and any diagnostics
// it carries abort compilation before lowering begins.
package oracle

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Diagnostic is one upstream type-check error. The report producer is
// whole-program, so diagnostics refer to source locations directly.
type Diagnostic struct {
	// Line is the 1-based source line the diagnostic refers to.
	Line int `yaml:"line"`

	// Column is the 1-based source column, zero when unknown.
	Column int `yaml:"column,omitempty"`

	// Message is the human-readable diagnostic text.
	Message string `yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.Column > 0 {
		return fmt.Sprintf("line %d:%d: %s", d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// Report is a parsed type-oracle file.
type Report struct {
	// Module names the source unit the report was produced for.
	Module string `yaml:"module"`

	// Types maps qualified names to resolved type strings. Keys use
	// dotted paths: "func.param", "func.<return>", "func.<local>.x",
	// "Class.field", "Class.method.param".
	Types map[string]string `yaml:"types,omitempty"`

	// Errors carries upstream type-check diagnostics. A non-empty
	// list makes the report unusable for lowering.
	Errors []Diagnostic `yaml:"errors,omitempty"`
}

// Load reads and parses a type-oracle YAML file.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle file: %w", err)
	}
	return Parse(data)
}

// Parse parses type-oracle YAML with strict field validation.
func Parse(data []byte) (*Report, error) {
	var report Report
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to parse oracle YAML: %w", err)
	}
	if report.Module == "" {
		return nil, fmt.Errorf("invalid oracle report: module is required")
	}
	return &report, nil
}

// Err returns a single error summarizing the report's diagnostics, or
// nil when the report is clean.
func (r *Report) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("type check failed with %d error(s): %s",
		len(r.Errors), r.Errors[0].String())
}

// Lookup resolves a qualified name to its reported type string. A nil
// report resolves nothing.
func (r *Report) Lookup(qualified string) (string, bool) {
	if r == nil {
		return "", false
	}
	typ, ok := r.Types[qualified]
	return typ, ok
}

// LookupParam resolves the type of a function or method parameter.
// class is empty for top-level functions.
func (r *Report) LookupParam(class, fn, param string) (string, bool) {
	return r.Lookup(qualify(class, fn, param))
}

// LookupReturn resolves a function or method return type.
func (r *Report) LookupReturn(class, fn string) (string, bool) {
	return r.Lookup(qualify(class, fn, "<return>"))
}

// LookupLocal resolves the type of a local variable.
func (r *Report) LookupLocal(class, fn, local string) (string, bool) {
	return r.Lookup(qualify(class, fn, "<local>."+local))
}

// LookupField resolves the type of a class field.
func (r *Report) LookupField(class, field string) (string, bool) {
	return r.Lookup(class + "." + field)
}

func qualify(class, fn, leaf string) string {
	if class == "" {
		return fn + "." + leaf
	}
	return class + "." + fn + "." + leaf
}
