package irdump

import (
	"encoding/json"
	"strings"
)

// renderJSON writes the node document as JSON preserving field order,
// which encoding/json's map marshaling would not. Structure is written
// by hand; scalar values round-trip through json.Marshal so escaping
// stays correct.
func renderJSON(n *node) string {
	var sb strings.Builder
	writeJSONNode(&sb, n, 0)
	sb.WriteString("\n")
	return sb.String()
}

func writeJSONNode(sb *strings.Builder, n *node, depth int) {
	sb.WriteString("{\n")
	writeJSONKey(sb, depth+1, "_type")
	writeJSONScalar(sb, n.typeName)
	for _, f := range n.fields {
		sb.WriteString(",\n")
		writeJSONKey(sb, depth+1, f.name)
		writeJSONValue(sb, f.value, depth+1)
	}
	sb.WriteString("\n" + jsonIndent(depth) + "}")
}

func writeJSONValue(sb *strings.Builder, v any, depth int) {
	switch val := v.(type) {
	case *node:
		writeJSONNode(sb, val, depth)
	case []any:
		if len(val) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for i, item := range val {
			sb.WriteString(jsonIndent(depth + 1))
			writeJSONValue(sb, item, depth+1)
			if i < len(val)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString(jsonIndent(depth) + "]")
	default:
		writeJSONScalar(sb, val)
	}
}

func writeJSONKey(sb *strings.Builder, depth int, key string) {
	sb.WriteString(jsonIndent(depth))
	writeJSONScalar(sb, key)
	sb.WriteString(": ")
}

func writeJSONScalar(sb *strings.Builder, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte("null")
	}
	sb.Write(b)
}

func jsonIndent(depth int) string {
	return strings.Repeat("  ", depth)
}
