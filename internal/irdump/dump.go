package irdump

import (
	"fmt"

	"github.com/roach88/pyrite/internal/ir"
)

// Format selects the rendering of a dump.
type Format string

const (
	// FormatText prints pseudo-source close to the input program.
	FormatText Format = "text"
	// FormatTree draws the node structure as an ASCII diagram.
	FormatTree Format = "tree"
	// FormatJSON exports the structure for external tools.
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatTree, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown dump format %q (use text, tree, or json)", s)
	}
}

// Module renders the whole lowered module.
func Module(m *ir.ModuleIR, f Format) (string, error) {
	switch f {
	case FormatText:
		p := &textPrinter{}
		return p.module(m) + "\n", nil
	case FormatTree:
		return renderTree(visitModule(m)), nil
	case FormatJSON:
		return renderJSON(visitModule(m)), nil
	default:
		return "", fmt.Errorf("unknown dump format %q (use text, tree, or json)", f)
	}
}

// Function renders a single function of the module.
func Function(m *ir.ModuleIR, name string, f Format) (string, error) {
	fn, ok := m.Functions[name]
	if !ok {
		return "", fmt.Errorf("no function %q in module %s", name, m.Name)
	}
	switch f {
	case FormatText:
		p := &textPrinter{}
		return p.function(fn) + "\n", nil
	case FormatTree:
		return renderTree(visitFunc(fn)), nil
	case FormatJSON:
		return renderJSON(visitFunc(fn)), nil
	default:
		return "", fmt.Errorf("unknown dump format %q (use text, tree, or json)", f)
	}
}
