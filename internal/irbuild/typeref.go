package irbuild

import (
	"strings"

	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/pysrc"
)

// staticType is everything the builder tracks about one binding beyond
// its representation kind: class identity for typed dispatch, flat-tuple
// shape, and list element kinds for the direct-structure fast paths.
type staticType struct {
	kind     ir.Kind
	class    string // module class name for class-typed bindings
	rt       *ir.RTuple
	isList   bool
	listElem ir.Kind
	isFinal  bool
}

func dynamicType() staticType { return staticType{kind: ir.KindDynamic} }

// resolveTypeRef maps a parsed annotation onto a staticType. The oracle
// report takes precedence over annotations at every resolution site; both
// funnel through here after the oracle string is reparsed.
func (b *Builder) resolveTypeRef(ref *pysrc.TypeRef) staticType {
	if ref == nil {
		return dynamicType()
	}
	if ref.Name == "Final" {
		var t staticType
		if len(ref.Args) == 1 {
			t = b.resolveTypeRef(&ref.Args[0])
		} else {
			t = dynamicType()
		}
		t.isFinal = true
		return t
	}
	switch ref.Name {
	case "int":
		return staticType{kind: ir.KindInt}
	case "float":
		return staticType{kind: ir.KindFloat}
	case "bool":
		return staticType{kind: ir.KindBool}
	case "None":
		return staticType{kind: ir.KindVoid}
	case "str", "object", "dict", "set":
		return dynamicType()
	case "list":
		t := staticType{kind: ir.KindDynamic, isList: true, listElem: ir.KindDynamic}
		if len(ref.Args) == 1 {
			t.listElem = ir.KindOfAnnotation(ref.Args[0].Name)
		}
		return t
	case "tuple":
		if rt, ok := flatTupleOf(ref); ok {
			return staticType{kind: ir.KindDynamic, rt: &rt}
		}
		return dynamicType()
	}
	if _, ok := b.module.Classes[ref.Name]; ok {
		return staticType{kind: ir.KindDynamic, class: ref.Name}
	}
	return dynamicType()
}

// flatTupleOf reports whether a tuple annotation qualifies for the flat
// struct representation: fixed arity, every element a native scalar.
func flatTupleOf(ref *pysrc.TypeRef) (ir.RTuple, bool) {
	if ref.Name != "tuple" || len(ref.Args) == 0 {
		return ir.RTuple{}, false
	}
	elems := make([]ir.Kind, len(ref.Args))
	for i, a := range ref.Args {
		k := ir.KindOfAnnotation(a.Name)
		if !k.Native() {
			return ir.RTuple{}, false
		}
		elems[i] = k
	}
	return ir.RTuple{Elems: elems}, true
}

// resolveAnnotated resolves a binding's type, letting an oracle entry
// override the source annotation when both exist.
func (b *Builder) resolveAnnotated(ann *pysrc.TypeRef, oracleType string, haveOracle bool) staticType {
	if haveOracle {
		if ref := parseTypeString(oracleType); ref != nil {
			return b.resolveTypeRef(ref)
		}
	}
	return b.resolveTypeRef(ann)
}

// parseTypeString reparses an oracle type string ("int", "list[int]",
// "tuple[int, float]", "Point") into the annotation shape.
func parseTypeString(s string) *pysrc.TypeRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return &pysrc.TypeRef{Name: s}
	}
	ref := &pysrc.TypeRef{Name: strings.TrimSpace(s[:open])}
	inner := s[open+1 : len(s)-1]
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				if arg := parseTypeString(inner[start:i]); arg != nil {
					ref.Args = append(ref.Args, *arg)
				}
				start = i + 1
			}
		}
	}
	if arg := parseTypeString(inner[start:]); arg != nil {
		ref.Args = append(ref.Args, *arg)
	}
	return ref
}
