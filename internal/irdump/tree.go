package irdump

import (
	"fmt"
	"strings"
)

// renderTree draws the node document as an ASCII diagram. Each node
// prints its type name, scalar fields inline as name=value on the same
// line, and structured fields as children with |-- / `-- connectors.
func renderTree(n *node) string {
	var sb strings.Builder
	writeTreeNode(&sb, n, "", "", "")
	return sb.String()
}

func writeTreeNode(sb *strings.Builder, n *node, label, connector, prefix string) {
	scalars, children := splitFields(n)

	line := prefix + connector
	if label != "" {
		line += label + ": "
	}
	line += n.typeName
	if len(scalars) > 0 {
		var parts []string
		for _, f := range scalars {
			parts = append(parts, fmt.Sprintf("%s=%s", f.name, scalarString(f.value)))
		}
		line += " [" + strings.Join(parts, " ") + "]"
	}
	sb.WriteString(line + "\n")

	childPrefix := prefix
	switch connector {
	case "|-- ":
		childPrefix += "|   "
	case "`-- ":
		childPrefix += "    "
	}

	for i, f := range children {
		conn := "|-- "
		if i == len(children)-1 {
			conn = "`-- "
		}
		switch v := f.value.(type) {
		case *node:
			writeTreeNode(sb, v, f.name, conn, childPrefix)
		case []any:
			writeTreeList(sb, f.name, v, conn, childPrefix)
		}
	}
}

func writeTreeList(sb *strings.Builder, label string, items []any, connector, prefix string) {
	sb.WriteString(fmt.Sprintf("%s%s%s (%d)\n", prefix, connector, label, len(items)))

	childPrefix := prefix
	switch connector {
	case "|-- ":
		childPrefix += "|   "
	case "`-- ":
		childPrefix += "    "
	}

	for i, item := range items {
		conn := "|-- "
		if i == len(items)-1 {
			conn = "`-- "
		}
		switch v := item.(type) {
		case *node:
			writeTreeNode(sb, v, "", conn, childPrefix)
		default:
			sb.WriteString(childPrefix + conn + scalarString(v) + "\n")
		}
	}
}

// splitFields separates inline scalars from fields that become child
// lines. Scalars stay on the node's own line so small nodes stay small.
func splitFields(n *node) (scalars, children []field) {
	for _, f := range n.fields {
		switch f.value.(type) {
		case *node, []any:
			children = append(children, f)
		default:
			scalars = append(scalars, f)
		}
	}
	return scalars, children
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", s)
	}
}
