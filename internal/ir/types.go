package ir

import (
	"fmt"
	"strings"
)

// Kind is the representation kind of a value.
//
// Dynamic values are boxed mp_obj_t references; Int, Float and Bool are
// unboxed native scalars. Void only appears as a return kind.
type Kind int

const (
	KindDynamic Kind = iota
	KindInt
	KindFloat
	KindBool
	KindVoid
)

// CType returns the C type spelling for this kind.
func (k Kind) CType() string {
	switch k {
	case KindDynamic:
		return "mp_obj_t"
	case KindInt:
		return "mp_int_t"
	case KindFloat:
		return "mp_float_t"
	case KindBool:
		return "bool"
	case KindVoid:
		return "void"
	default:
		return "mp_obj_t"
	}
}

// String returns the source-level name of this kind.
func (k Kind) String() string {
	switch k {
	case KindDynamic:
		return "object"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindVoid:
		return "None"
	default:
		return "object"
	}
}

// Native reports whether values of this kind live unboxed.
func (k Kind) Native() bool {
	return k == KindInt || k == KindFloat || k == KindBool
}

// RTuple is a fixed-arity tuple lowered to a flat C struct instead of a
// heap tuple object. Element kinds are fixed at build time.
type RTuple struct {
	Elems []Kind
}

// Key returns a stable identity string, used to deduplicate typedefs.
func (r RTuple) Key() string {
	parts := make([]string, len(r.Elems))
	for i, k := range r.Elems {
		parts[i] = kindToken(k)
	}
	return strings.Join(parts, "_")
}

// StructName returns the C struct name, e.g. rtuple_int_int_t.
func (r RTuple) StructName() string {
	return "rtuple_" + r.Key() + "_t"
}

// Typedef returns the full C typedef for this tuple shape. Fields are
// named f0..fn in element order.
func (r RTuple) Typedef() string {
	var b strings.Builder
	b.WriteString("typedef struct { ")
	for i, k := range r.Elems {
		fmt.Fprintf(&b, "%s f%d; ", k.CType(), i)
	}
	b.WriteString("} ")
	b.WriteString(r.StructName())
	b.WriteString(";")
	return b.String()
}

func kindToken(k Kind) string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "obj"
	}
}

// KindOfAnnotation maps a source annotation string to a representation
// kind. Container and class annotations are Dynamic; richer structure is
// tracked by the builder, not here.
func KindOfAnnotation(ann string) Kind {
	switch ann {
	case "int":
		return KindInt
	case "float":
		return KindFloat
	case "bool":
		return KindBool
	case "None":
		return KindVoid
	default:
		return KindDynamic
	}
}
