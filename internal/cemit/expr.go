package cemit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// emitExpr renders an expression and reports the kind of the rendered C
// value. Preludes were hoisted by the builder, so every node here is
// side-effect free.
func (b *baseEmitter) emitExpr(e ir.Expr) (string, ir.Kind) {
	switch v := e.(type) {
	case ir.Const:
		return literalC(v.Value)
	case ir.Name:
		return b.ref(v.C), v.Kind
	case ir.Temp:
		return v.Name, v.Kind
	case ir.Binary:
		return b.emitBinary(v)
	case ir.Unary:
		return b.emitUnary(v)
	case ir.Compare:
		return b.emitCompare(v), ir.KindBool
	case ir.BoolChain:
		return b.emitBoolChain(v), ir.KindBool
	case ir.SelfAttr:
		return "self->" + v.Path, v.Kind
	case ir.ParamAttr:
		return fmt.Sprintf("((%s_obj_t *)MP_OBJ_TO_PTR(%s))->%s", v.ClassC, v.CParam, v.Attr), v.Kind
	case ir.Subscript:
		return b.emitSubscript(v)
	case ir.Call:
		return b.emitCall(v)
	case ir.IfExpr:
		cond := truthy(b.self.emitExpr(v.Cond))
		then := b.emitAs(v.Then, v.Kind)
		els := b.emitAs(v.Else, v.Kind)
		return fmt.Sprintf("(%s ? %s : %s)", cond, then, els), v.Kind
	case ir.SelfRef:
		return "MP_OBJ_FROM_PTR(self)", ir.KindDynamic
	case ir.CtorCall:
		return b.emitCtorCall(v), ir.KindDynamic
	case ir.SuperCall:
		return b.emitSuperCall(v)
	case ir.Builtin:
		return b.emitBuiltin(v)
	case ir.NCall:
		return b.emitNCall(v)
	case ir.VCall:
		return b.emitVCall(v)
	case ir.FFICall:
		args := b.emitBoxedArgs(v.Args)
		return fmt.Sprintf("%s_%s(%s)", ir.SanitizeName(v.Alias), ir.SanitizeName(v.Member),
			strings.Join(args, ", ")), ir.KindDynamic
	case ir.RTupleNew:
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			items[i] = b.emitAs(it, v.Tuple.Elems[i])
		}
		return fmt.Sprintf("((%s){%s})", v.Tuple.StructName(), strings.Join(items, ", ")), ir.KindDynamic
	case ir.RTupleField:
		return fmt.Sprintf("%s.f%d", b.ref(v.CName), v.Index), v.Kind
	default:
		return "mp_const_none", ir.KindDynamic
	}
}

func (b *baseEmitter) emitBinary(v ir.Binary) (string, ir.Kind) {
	if v.Kind == ir.KindDynamic {
		l := b.emitBoxed(v.Left)
		r := b.emitBoxed(v.Right)
		return fmt.Sprintf("mp_binary_op(%s, %s, %s)", v.Op.RuntimeOp(), l, r), ir.KindDynamic
	}
	l := b.emitAs(v.Left, v.Kind)
	r := b.emitAs(v.Right, v.Kind)
	if v.Kind == ir.KindInt {
		switch v.Op {
		case ir.OpFloorDiv:
			return fmt.Sprintf("mp_int_floor_divide_checked(%s, %s)", l, r), ir.KindInt
		case ir.OpMod:
			return fmt.Sprintf("mp_int_modulo_checked(%s, %s)", l, r), ir.KindInt
		}
	}
	if v.Kind == ir.KindFloat {
		switch v.Op {
		case ir.OpMod:
			return fmt.Sprintf("MICROPY_FLOAT_C_FUN(fmod)(%s, %s)", l, r), ir.KindFloat
		case ir.OpFloorDiv:
			return fmt.Sprintf("MICROPY_FLOAT_C_FUN(floor)((%s) / (%s))", l, r), ir.KindFloat
		}
	}
	return fmt.Sprintf("(%s %s %s)", l, v.Op.CToken(), r), v.Kind
}

func (b *baseEmitter) emitUnary(v ir.Unary) (string, ir.Kind) {
	switch v.Op {
	case ir.UnaryNot:
		return fmt.Sprintf("(!%s)", truthy(b.self.emitExpr(v.Operand))), ir.KindBool
	case ir.UnaryInvert:
		return fmt.Sprintf("(~%s)", b.emitAs(v.Operand, ir.KindInt)), ir.KindInt
	default:
		if v.Kind == ir.KindDynamic {
			return fmt.Sprintf("mp_unary_op(MP_UNARY_OP_NEGATIVE, %s)", b.emitBoxed(v.Operand)), ir.KindDynamic
		}
		return fmt.Sprintf("(-%s)", b.emitAs(v.Operand, v.Kind)), v.Kind
	}
}

// emitCompare renders a (possibly chained) comparison as a conjunction
// of pairwise tests. Runtime dispatch applies per pair when either side
// is boxed; membership and identity always compare boxed values.
func (b *baseEmitter) emitCompare(v ir.Compare) string {
	var parts []string
	prev, prevKind := b.self.emitExpr(v.Left)
	for i, op := range v.Ops {
		right, rightKind := b.self.emitExpr(v.Comparators[i])

		switch {
		case op == ir.CmpIn:
			parts = append(parts, fmt.Sprintf("mp_obj_is_true(mp_binary_op(MP_BINARY_OP_IN, %s, %s))",
				boxValue(prev, prevKind), boxValue(right, rightKind)))
		case op == ir.CmpIs:
			parts = append(parts, fmt.Sprintf("(%s == %s)",
				boxValue(prev, prevKind), boxValue(right, rightKind)))
		case prevKind == ir.KindDynamic || rightKind == ir.KindDynamic:
			parts = append(parts, fmt.Sprintf("mp_obj_is_true(mp_binary_op(%s, %s, %s))",
				op.RuntimeOp(), boxValue(prev, prevKind), boxValue(right, rightKind)))
		default:
			target := ir.KindInt
			if prevKind == ir.KindFloat || rightKind == ir.KindFloat {
				target = ir.KindFloat
			}
			parts = append(parts, fmt.Sprintf("(%s %s %s)",
				convertValue(prev, prevKind, target), op.CToken(),
				convertValue(right, rightKind, target)))
		}
		prev, prevKind = right, rightKind
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

func (b *baseEmitter) emitBoolChain(v ir.BoolChain) string {
	tok := " && "
	if v.Op == ir.BoolOr {
		tok = " || "
	}
	parts := make([]string, len(v.Values))
	for i, val := range v.Values {
		parts[i] = truthy(b.self.emitExpr(val))
	}
	return "(" + strings.Join(parts, tok) + ")"
}

func (b *baseEmitter) emitSubscript(v ir.Subscript) (string, ir.Kind) {
	if v.IsRTuple {
		// Constant index into a flat tuple resolved at build time; the
		// value must be a named local holding the struct.
		expr, _ := b.self.emitExpr(v.Value)
		return fmt.Sprintf("%s.f%d", expr, v.RTupleIndex), v.Kind
	}
	container := b.emitBoxed(v.Value)
	key := b.emitBoxed(v.Index)
	expr := fmt.Sprintf("mp_obj_subscr(%s, %s, MP_OBJ_SENTINEL)", container, key)
	if v.Kind.Native() {
		return unboxValue(expr, v.Kind), v.Kind
	}
	return expr, ir.KindDynamic
}

// emitCall renders a direct call. Boxed targets are generated mp
// wrappers: every argument is boxed, the result comes back as mp_obj_t
// and is unboxed to the call's kind. Everything else is a native entry
// whose boundary kinds the builder recorded in ArgKinds.
func (b *baseEmitter) emitCall(v ir.Call) (string, ir.Kind) {
	if !v.Boxed {
		args := b.emitArgs(v.Args, v.ArgKinds)
		return fmt.Sprintf("%s(%s)", v.Target, strings.Join(args, ", ")), v.Kind
	}

	args := b.emitBoxedArgs(v.Args)
	var call string
	if v.VarArgs {
		if len(args) == 0 {
			call = fmt.Sprintf("%s(0, NULL)", v.Target)
		} else {
			call = fmt.Sprintf("%s(%d, (const mp_obj_t[]){%s})",
				v.Target, len(args), strings.Join(args, ", "))
		}
	} else {
		call = fmt.Sprintf("%s(%s)", v.Target, strings.Join(args, ", "))
	}
	if v.Kind.Native() {
		return unboxValue(call, v.Kind), v.Kind
	}
	return call, ir.KindDynamic
}

// recvPtr renders a receiver as a typed instance pointer.
func (b *baseEmitter) recvPtr(recv ir.Expr, classC string) string {
	if _, ok := recv.(ir.SelfRef); ok {
		return fmt.Sprintf("((%s_obj_t *)self)", classC)
	}
	expr, _ := b.self.emitExpr(recv)
	return fmt.Sprintf("((%s_obj_t *)MP_OBJ_TO_PTR(%s))", classC, expr)
}

func (b *baseEmitter) emitNCall(v ir.NCall) (string, ir.Kind) {
	parts := append([]string{b.recvPtr(v.Recv, v.ClassC)}, b.emitArgs(v.Args, v.ArgKinds)...)
	return fmt.Sprintf("%s(%s)", v.Target, strings.Join(parts, ", ")), v.Kind
}

func (b *baseEmitter) emitVCall(v ir.VCall) (string, ir.Kind) {
	recv := b.recvPtr(v.Recv, v.ClassC)
	parts := append([]string{fmt.Sprintf("(%s_obj_t *)%s", v.RootC, recv)},
		b.emitArgs(v.Args, v.ArgKinds)...)
	return fmt.Sprintf("%s->%s->%s(%s)", recv, v.VtablePath, v.Method,
		strings.Join(parts, ", ")), v.Kind
}

func (b *baseEmitter) emitSuperCall(v ir.SuperCall) (string, ir.Kind) {
	parts := append([]string{fmt.Sprintf("(%s_obj_t *)self", v.ParentC)},
		b.emitArgs(v.Args, v.ArgKinds)...)
	call := fmt.Sprintf("%s_native(%s)", v.MethodC, strings.Join(parts, ", "))
	if v.IsInit {
		return call, ir.KindVoid
	}
	return call, v.Kind
}

func (b *baseEmitter) emitCtorCall(v ir.CtorCall) string {
	if len(v.Args) == 0 {
		return fmt.Sprintf("%s_make_new(&%s_type, 0, 0, NULL)", v.ClassC, v.ClassC)
	}
	args := b.emitBoxedArgs(v.Args)
	return fmt.Sprintf("%s_make_new(&%s_type, %d, 0, (const mp_obj_t[]){%s})",
		v.ClassC, v.ClassC, len(args), strings.Join(args, ", "))
}

func (b *baseEmitter) emitBuiltin(v ir.Builtin) (string, ir.Kind) {
	switch v.Name {
	case "len":
		if v.ListFast {
			expr, _ := b.self.emitExpr(v.Args[0])
			return fmt.Sprintf("(mp_int_t)mp_list_len_fast(%s)", expr), ir.KindInt
		}
		return fmt.Sprintf("mp_obj_get_int(mp_obj_len(%s))", b.emitBoxed(v.Args[0])), ir.KindInt
	case "abs":
		a := b.emitAs(v.Args[0], v.Kind)
		if v.Kind.Native() {
			return fmt.Sprintf("((%s) < 0 ? -(%s) : (%s))", a, a, a), v.Kind
		}
		return fmt.Sprintf("mp_unary_op(MP_UNARY_OP_ABS, %s)", b.emitBoxed(v.Args[0])), ir.KindDynamic
	case "sum":
		if v.ListFast {
			expr, _ := b.self.emitExpr(v.Args[0])
			if v.Kind == ir.KindFloat {
				return fmt.Sprintf("mp_list_sum_float(%s)", expr), ir.KindFloat
			}
			return fmt.Sprintf("mp_list_sum_int(%s)", expr), ir.KindInt
		}
		call := fmt.Sprintf("mp_call_function_1(MP_OBJ_FROM_PTR(&mp_builtin_sum_obj), %s)",
			b.emitBoxed(v.Args[0]))
		if v.Kind.Native() {
			return unboxValue(call, v.Kind), v.Kind
		}
		return call, ir.KindDynamic
	case "min", "max":
		if v.Kind.Native() {
			x := b.emitAs(v.Args[0], v.Kind)
			y := b.emitAs(v.Args[1], v.Kind)
			tok := "<"
			if v.Name == "max" {
				tok = ">"
			}
			return fmt.Sprintf("((%s) %s (%s) ? (%s) : (%s))", x, tok, y, x, y), v.Kind
		}
		return fmt.Sprintf("mp_call_function_2(MP_OBJ_FROM_PTR(&mp_builtin_%s_obj), %s, %s)",
			v.Name, b.emitBoxed(v.Args[0]), b.emitBoxed(v.Args[1])), ir.KindDynamic
	case "int":
		return b.emitAs(v.Args[0], ir.KindInt), ir.KindInt
	case "float":
		return b.emitAs(v.Args[0], ir.KindFloat), ir.KindFloat
	case "bool":
		return truthy(b.self.emitExpr(v.Args[0])), ir.KindBool
	case "list", "tuple", "set", "dict":
		return b.emitContainerBuiltin(v), ir.KindDynamic
	default:
		return "mp_const_none", ir.KindDynamic
	}
}

func (b *baseEmitter) emitContainerBuiltin(v ir.Builtin) string {
	if len(v.Args) == 0 {
		switch v.Name {
		case "list":
			return "mp_obj_new_list(0, NULL)"
		case "tuple":
			return "mp_const_empty_tuple"
		case "set":
			return "mp_obj_new_set(0, NULL)"
		default:
			return "mp_obj_new_dict(0)"
		}
	}
	arg := b.emitBoxed(v.Args[0])
	return fmt.Sprintf("mp_call_function_1(MP_OBJ_FROM_PTR(&mp_type_%s), %s)", v.Name, arg)
}

func intC(n int64) string {
	return strconv.FormatInt(n, 10)
}
