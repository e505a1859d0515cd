package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindCType(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		want string
	}{
		{"dynamic is boxed", KindDynamic, "mp_obj_t"},
		{"int is native", KindInt, "mp_int_t"},
		{"float is native", KindFloat, "mp_float_t"},
		{"bool is native", KindBool, "bool"},
		{"void", KindVoid, "void"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.CType())
		})
	}
}

func TestKindNative(t *testing.T) {
	assert.False(t, KindDynamic.Native())
	assert.True(t, KindInt.Native())
	assert.True(t, KindFloat.Native())
	assert.True(t, KindBool.Native())
	assert.False(t, KindVoid.Native())
}

func TestKindOfAnnotation(t *testing.T) {
	assert.Equal(t, KindInt, KindOfAnnotation("int"))
	assert.Equal(t, KindFloat, KindOfAnnotation("float"))
	assert.Equal(t, KindBool, KindOfAnnotation("bool"))
	assert.Equal(t, KindVoid, KindOfAnnotation("None"))

	// Containers and classes are boxed.
	assert.Equal(t, KindDynamic, KindOfAnnotation("list[int]"))
	assert.Equal(t, KindDynamic, KindOfAnnotation("Point"))
	assert.Equal(t, KindDynamic, KindOfAnnotation("str"))
}

func TestRTupleStructName(t *testing.T) {
	r := RTuple{Elems: []Kind{KindInt, KindInt}}
	assert.Equal(t, "rtuple_int_int_t", r.StructName())

	mixed := RTuple{Elems: []Kind{KindInt, KindFloat, KindDynamic}}
	assert.Equal(t, "rtuple_int_float_obj_t", mixed.StructName())
}

func TestRTupleTypedef(t *testing.T) {
	r := RTuple{Elems: []Kind{KindInt, KindBool}}
	want := "typedef struct { mp_int_t f0; bool f1; } rtuple_int_bool_t;"
	assert.Equal(t, want, r.Typedef())
}

func TestRTupleKeyIsStable(t *testing.T) {
	a := RTuple{Elems: []Kind{KindInt, KindFloat}}
	b := RTuple{Elems: []Kind{KindInt, KindFloat}}
	assert.Equal(t, a.Key(), b.Key())

	c := RTuple{Elems: []Kind{KindFloat, KindInt}}
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestLiteralKind(t *testing.T) {
	assert.Equal(t, KindInt, LiteralKind(IntLit(3)))
	assert.Equal(t, KindFloat, LiteralKind(FloatLit(1.5)))
	assert.Equal(t, KindBool, LiteralKind(BoolLit(true)))
	assert.Equal(t, KindDynamic, LiteralKind(StrLit("s")))
	assert.Equal(t, KindDynamic, LiteralKind(NoneLit{}))
}

func TestBinOpRuntimeOp(t *testing.T) {
	assert.Equal(t, "MP_BINARY_OP_ADD", OpAdd.RuntimeOp())
	assert.Equal(t, "MP_BINARY_OP_FLOOR_DIVIDE", OpFloorDiv.RuntimeOp())
	assert.Equal(t, "MP_BINARY_OP_MODULO", OpMod.RuntimeOp())
}

func TestCmpOpTokens(t *testing.T) {
	assert.Equal(t, "<=", CmpLe.CToken())
	assert.Equal(t, "MP_BINARY_OP_MORE", CmpGt.RuntimeOp())
}
