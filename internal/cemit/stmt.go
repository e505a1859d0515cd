package cemit

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// emitStmt renders one statement at one indent level. Derived emitters
// hook the statements whose shape depends on the body kind; everything
// else is shared here.
func (b *baseEmitter) emitStmt(s ir.Stmt) []string {
	switch v := s.(type) {
	case ir.Assign:
		return b.self.emitAssign(v)
	case ir.AugAssign:
		return b.self.emitAugAssign(v)
	case ir.AttrAssign:
		return b.emitAttrAssign(v)
	case ir.ExprStmt:
		return b.emitExprStmt(v)
	case ir.Print:
		return b.emitPrint(v)
	case ir.Return:
		return b.self.emitReturn(v)
	case ir.If:
		return b.emitIf(v)
	case ir.While:
		return b.emitWhile(v)
	case ir.ForRange:
		return b.self.emitForRange(v)
	case ir.ForIter:
		return b.self.emitForIter(v)
	case ir.Break:
		return append(b.unwindLoop(), "    break;")
	case ir.Continue:
		return append(b.unwindLoop(), "    continue;")
	case ir.Pass:
		return nil
	case ir.Raise:
		return b.emitRaise(v)
	case ir.Try:
		return b.emitTry(v)
	case ir.Yield:
		return b.self.emitYield(v)
	default:
		return nil
	}
}

func (b *baseEmitter) emitBody(body []ir.Stmt) []string {
	var lines []string
	for _, s := range body {
		lines = append(lines, b.self.emitStmt(s)...)
	}
	return lines
}

func (b *baseEmitter) emitAssign(v ir.Assign) []string {
	lines := b.emitPrelude(v.Prelude)

	if v.RT != nil {
		return append(lines, b.emitRTupleAssign(v)...)
	}

	expr := b.emitAs(v.Value, v.Kind)
	if v.Declare && b.namePrefix == "" {
		return append(lines, fmt.Sprintf("    %s %s = %s;", v.Kind.CType(), v.CTarget, expr))
	}
	return append(lines, fmt.Sprintf("    %s = %s;", b.ref(v.CTarget), expr))
}

// emitRTupleAssign stores a flat tuple value. A literal tuple fills the
// struct fields directly; any other source is a heap tuple unpacked
// element by element.
func (b *baseEmitter) emitRTupleAssign(v ir.Assign) []string {
	rt := *v.RT
	if lit, ok := v.Value.(ir.RTupleNew); ok {
		items := make([]string, len(lit.Items))
		for i, it := range lit.Items {
			items[i] = b.emitAs(it, rt.Elems[i])
		}
		agg := fmt.Sprintf("{%s}", strings.Join(items, ", "))
		if v.Declare && b.namePrefix == "" {
			return []string{fmt.Sprintf("    %s %s = %s;", rt.StructName(), v.CTarget, agg)}
		}
		return []string{fmt.Sprintf("    %s = (%s)%s;", b.ref(v.CTarget), rt.StructName(), agg)}
	}

	boxed := b.emitBoxed(v.Value)
	tup := b.freshTemp()
	lines := []string{fmt.Sprintf("    mp_obj_tuple_t *%s = MP_OBJ_TO_PTR(%s);", tup, boxed)}
	if v.Declare && b.namePrefix == "" {
		lines = append(lines, fmt.Sprintf("    %s %s;", rt.StructName(), v.CTarget))
	}
	for i, k := range rt.Elems {
		lines = append(lines, fmt.Sprintf("    %s.f%d = %s;",
			b.ref(v.CTarget), i, unboxValue(fmt.Sprintf("%s->items[%d]", tup, i), k)))
	}
	return lines
}

var inplaceOps = map[ir.BinOp]string{
	ir.OpAdd:      "MP_BINARY_OP_INPLACE_ADD",
	ir.OpSub:      "MP_BINARY_OP_INPLACE_SUBTRACT",
	ir.OpMul:      "MP_BINARY_OP_INPLACE_MULTIPLY",
	ir.OpTrueDiv:  "MP_BINARY_OP_INPLACE_TRUE_DIVIDE",
	ir.OpFloorDiv: "MP_BINARY_OP_INPLACE_FLOOR_DIVIDE",
	ir.OpMod:      "MP_BINARY_OP_INPLACE_MODULO",
	ir.OpBitAnd:   "MP_BINARY_OP_INPLACE_AND",
	ir.OpBitOr:    "MP_BINARY_OP_INPLACE_OR",
	ir.OpBitXor:   "MP_BINARY_OP_INPLACE_XOR",
	ir.OpShl:      "MP_BINARY_OP_INPLACE_LSHIFT",
	ir.OpShr:      "MP_BINARY_OP_INPLACE_RSHIFT",
}

func (b *baseEmitter) emitAugAssign(v ir.AugAssign) []string {
	lines := b.emitPrelude(v.Prelude)
	target := b.ref(v.CTarget)

	if v.Kind == ir.KindDynamic {
		return append(lines, fmt.Sprintf("    %s = mp_binary_op(%s, %s, %s);",
			target, inplaceOps[v.Op], target, b.emitBoxed(v.Value)))
	}

	expr := b.emitAs(v.Value, v.Kind)
	if v.Kind == ir.KindInt {
		switch v.Op {
		case ir.OpFloorDiv:
			return append(lines, fmt.Sprintf("    %s = mp_int_floor_divide_checked(%s, %s);",
				target, target, expr))
		case ir.OpMod:
			return append(lines, fmt.Sprintf("    %s = mp_int_modulo_checked(%s, %s);",
				target, target, expr))
		}
	}
	if v.Kind == ir.KindFloat && v.Op == ir.OpMod {
		return append(lines, fmt.Sprintf("    %s = MICROPY_FLOAT_C_FUN(fmod)(%s, %s);",
			target, target, expr))
	}
	return append(lines, fmt.Sprintf("    %s %s= %s;", target, v.Op.CToken(), expr))
}

func (b *baseEmitter) emitAttrAssign(v ir.AttrAssign) []string {
	lines := b.emitPrelude(v.Prelude)
	switch t := v.Target.(type) {
	case ir.SelfAttr:
		return append(lines, fmt.Sprintf("    self->%s = %s;", t.Path, b.emitAs(v.Value, t.Kind)))
	case ir.ParamAttr:
		return append(lines, fmt.Sprintf("    ((%s_obj_t *)MP_OBJ_TO_PTR(%s))->%s = %s;",
			t.ClassC, t.CParam, t.Attr, b.emitAs(v.Value, t.Kind)))
	default:
		return lines
	}
}

func (b *baseEmitter) emitExprStmt(v ir.ExprStmt) []string {
	lines := b.emitPrelude(v.Prelude)
	if v.Value == nil {
		return lines
	}
	expr, k := b.self.emitExpr(v.Value)
	if k == ir.KindVoid {
		return append(lines, fmt.Sprintf("    %s;", expr))
	}
	return append(lines, fmt.Sprintf("    (void)%s;", expr))
}

func (b *baseEmitter) emitPrint(v ir.Print) []string {
	lines := b.emitPrelude(v.Prelude)
	for i, a := range v.Args {
		if i > 0 {
			lines = append(lines, `    mp_print_str(&mp_plat_print, " ");`)
		}
		lines = append(lines, fmt.Sprintf(
			"    mp_obj_print_helper(&mp_plat_print, %s, PRINT_STR);", b.emitBoxed(a)))
	}
	return append(lines, `    mp_print_str(&mp_plat_print, "\n");`)
}

func (b *baseEmitter) emitIf(v ir.If) []string {
	lines := b.emitPrelude(v.Prelude)
	lines = append(lines, fmt.Sprintf("    if (%s) {", truthy(b.self.emitExpr(v.Cond))))
	lines = append(lines, indentLines(b.emitBody(v.Then))...)
	if len(v.Else) > 0 {
		lines = append(lines, "    } else {")
		lines = append(lines, indentLines(b.emitBody(v.Else))...)
	}
	return append(lines, "    }")
}

// emitWhile re-evaluates the condition prelude every iteration, so a
// prelude-carrying condition turns into an endless loop with an
// explicit exit test.
func (b *baseEmitter) emitWhile(v ir.While) []string {
	if len(v.Prelude) == 0 {
		lines := []string{fmt.Sprintf("    while (%s) {", truthy(b.self.emitExpr(v.Cond)))}
		lines = append(lines, indentLines(b.emitLoopBody(v.Body))...)
		return append(lines, "    }")
	}
	lines := []string{"    for (;;) {"}
	var inner []string
	inner = append(inner, b.emitPrelude(v.Prelude)...)
	inner = append(inner, fmt.Sprintf("    if (!(%s)) {", truthy(b.self.emitExpr(v.Cond))),
		"        break;",
		"    }")
	inner = append(inner, b.emitLoopBody(v.Body)...)
	lines = append(lines, indentLines(inner)...)
	return append(lines, "    }")
}

func (b *baseEmitter) emitForRange(v ir.ForRange) []string {
	lines := b.emitPrelude(v.Prelude)
	if v.NewVar {
		lines = append(lines, fmt.Sprintf("    mp_int_t %s;", v.CLoopVar))
	}

	start := "0"
	if v.Start != nil {
		start = b.emitAs(v.Start, ir.KindInt)
	}
	end := b.freshTemp()
	lines = append(lines, fmt.Sprintf("    mp_int_t %s = %s;", end, b.emitAs(v.End, ir.KindInt)))

	var open string
	switch {
	case v.StepConst && v.StepValue == 1:
		open = fmt.Sprintf("    for (%s = %s; %s < %s; %s++) {", v.CLoopVar, start, v.CLoopVar, end, v.CLoopVar)
	case v.StepConst && v.StepValue == -1:
		open = fmt.Sprintf("    for (%s = %s; %s > %s; %s--) {", v.CLoopVar, start, v.CLoopVar, end, v.CLoopVar)
	case v.StepConst && v.StepValue > 0:
		open = fmt.Sprintf("    for (%s = %s; %s < %s; %s += %d) {",
			v.CLoopVar, start, v.CLoopVar, end, v.CLoopVar, v.StepValue)
	case v.StepConst:
		open = fmt.Sprintf("    for (%s = %s; %s > %s; %s += %d) {",
			v.CLoopVar, start, v.CLoopVar, end, v.CLoopVar, v.StepValue)
	default:
		// Runtime step of unknown sign: the direction test picks the
		// comparison each iteration.
		step := b.freshTemp()
		lines = append(lines, fmt.Sprintf("    mp_int_t %s = %s;", step, b.emitAs(v.Step, ir.KindInt)))
		open = fmt.Sprintf("    for (%s = %s; (%s > 0) ? (%s < %s) : (%s > %s); %s += %s) {",
			v.CLoopVar, start, step, v.CLoopVar, end, v.CLoopVar, end, v.CLoopVar, step)
	}
	lines = append(lines, open)
	lines = append(lines, indentLines(b.emitLoopBody(v.Body))...)
	return append(lines, "    }")
}

func (b *baseEmitter) emitForIter(v ir.ForIter) []string {
	lines := b.emitPrelude(v.IterPrelude)
	if v.NewVar {
		lines = append(lines, fmt.Sprintf("    mp_obj_t %s;", v.CLoopVar))
	}
	buf := b.freshTemp()
	it := b.freshTemp()
	lines = append(lines,
		fmt.Sprintf("    mp_obj_iter_buf_t %s;", buf),
		fmt.Sprintf("    mp_obj_t %s = mp_getiter(%s, &%s);", it, b.emitBoxed(v.Iterable), buf),
		fmt.Sprintf("    while ((%s = mp_iternext(%s)) != MP_OBJ_STOP_ITERATION) {", v.CLoopVar, it),
	)
	lines = append(lines, indentLines(b.emitLoopBody(v.Body))...)
	return append(lines, "    }")
}

func (b *baseEmitter) emitRaise(v ir.Raise) []string {
	lines := b.emitPrelude(v.Prelude)
	if v.HasMsg {
		return append(lines, fmt.Sprintf("    mp_raise_msg(&%s, MP_ERROR_TEXT(\"%s\"));",
			v.TypeC, escapeC(v.Msg)))
	}
	return append(lines, fmt.Sprintf("    mp_raise_msg(&%s, NULL);", v.TypeC))
}

// emitTry lowers try/except/else/finally onto nlr protection. The body
// runs under a pushed nlr frame; the else branch stays inside the same
// if-arm after the pop. Handlers dispatch on exception subclass checks;
// an unmatched exception re-raises through nlr_jump, or defers the jump
// past the finally body.
func (b *baseEmitter) emitTry(v ir.Try) []string {
	var lines []string
	hasFinally := len(v.Finally) > 0
	hasHandlers := len(v.Handlers) > 0

	var caught string
	if hasFinally {
		caught = b.freshTemp()
		lines = append(lines, fmt.Sprintf("    bool %s = false;", caught))
	}

	buf := b.freshTemp()
	lines = append(lines,
		fmt.Sprintf("    nlr_buf_t %s;", buf),
		fmt.Sprintf("    if (nlr_push(&%s) == 0) {", buf),
	)

	b.frames = append(b.frames, tryFrame{finally: v.Finally, nlr: true})
	lines = append(lines, indentLines(b.emitBody(v.Body))...)
	b.frames = b.frames[:len(b.frames)-1]

	lines = append(lines, "        nlr_pop();")
	// Else and handler bodies run after the pop but still owe the
	// finally block on any early exit.
	if hasFinally {
		b.frames = append(b.frames, tryFrame{finally: v.Finally})
	}
	lines = append(lines, indentLines(b.emitBody(v.OrElse))...)
	lines = append(lines, "    } else {")

	if hasHandlers {
		exc := b.freshTemp()
		lines = append(lines, fmt.Sprintf("        mp_obj_t %s = MP_OBJ_FROM_PTR(%s.ret_val);", exc, buf))

		bareExcept := false
		for i, h := range v.Handlers {
			if h.TypeC == "" {
				bareExcept = true
				if i == 0 {
					lines = append(lines, "        {")
				} else {
					lines = append(lines, "        } else {")
				}
			} else {
				cond := fmt.Sprintf(
					"mp_obj_is_subclass_fast(MP_OBJ_FROM_PTR(mp_obj_get_type(%s)), MP_OBJ_FROM_PTR(&%s))",
					exc, h.TypeC)
				if i == 0 {
					lines = append(lines, fmt.Sprintf("        if (%s) {", cond))
				} else {
					lines = append(lines, fmt.Sprintf("        } else if (%s) {", cond))
				}
			}
			if h.Name != "" {
				lines = append(lines, fmt.Sprintf("            mp_obj_t %s = %s;", h.Name, exc))
			}
			lines = append(lines, indentLines(indentLines(b.emitBody(h.Body)))...)
		}

		if !bareExcept {
			lines = append(lines, "        } else {")
			if hasFinally {
				lines = append(lines, fmt.Sprintf("            %s = true;", caught))
			} else {
				lines = append(lines, fmt.Sprintf("            nlr_jump(%s.ret_val);", buf))
			}
			lines = append(lines, "        }")
		} else {
			lines = append(lines, "        }")
		}
	} else {
		if hasFinally {
			lines = append(lines, fmt.Sprintf("        %s = true;", caught))
		} else {
			lines = append(lines, fmt.Sprintf("        nlr_jump(%s.ret_val);", buf))
		}
	}
	lines = append(lines, "    }")

	if hasFinally {
		b.frames = b.frames[:len(b.frames)-1]
		lines = append(lines, b.emitBody(v.Finally)...)
		lines = append(lines,
			fmt.Sprintf("    if (%s) {", caught),
			fmt.Sprintf("        nlr_jump(%s.ret_val);", buf),
			"    }",
		)
	}
	return lines
}

// emitReturn is the boxed-boundary default: the value is boxed to
// mp_obj_t, then every enclosing try frame unwinds (nlr_pop plus its
// finally body) before control leaves. Bodies that return a named
// flat-tuple local box it element by element; resolveLocalRT is set by
// the owning emitter.
func (b *baseEmitter) emitReturn(v ir.Return) []string {
	return b.emitBoxedReturn(v, nil)
}

func (b *baseEmitter) emitBoxedReturn(v ir.Return, localRT func(string) *ir.RTuple) []string {
	lines := b.emitPrelude(v.Prelude)

	if v.Value == nil {
		lines = append(lines, b.unwindReturn()...)
		return append(lines, "    return mp_const_none;")
	}

	if n, ok := v.Value.(ir.Name); ok && localRT != nil {
		if rt := localRT(n.Py); rt != nil {
			items := make([]string, len(rt.Elems))
			for i, k := range rt.Elems {
				items[i] = boxValue(fmt.Sprintf("%s.f%d", n.C, i), k)
			}
			tmp := b.freshTemp()
			lines = append(lines, fmt.Sprintf("    mp_obj_t %s_items[] = {%s};", tmp, strings.Join(items, ", ")))
			lines = append(lines, fmt.Sprintf("    mp_obj_t %s = mp_obj_new_tuple(%d, %s_items);",
				tmp, len(rt.Elems), tmp))
			lines = append(lines, b.unwindReturn()...)
			return append(lines, fmt.Sprintf("    return %s;", tmp))
		}
	}

	boxed := b.emitBoxed(v.Value)
	if len(b.frames) > 0 {
		// The return value is computed before the finally bodies run.
		tmp := b.freshTemp()
		lines = append(lines, fmt.Sprintf("    mp_obj_t %s = %s;", tmp, boxed))
		lines = append(lines, b.unwindReturn()...)
		return append(lines, fmt.Sprintf("    return %s;", tmp))
	}
	return append(lines, fmt.Sprintf("    return %s;", boxed))
}

// emitNativeReturn converts the value to the native return kind.
func (b *baseEmitter) emitNativeReturn(v ir.Return, ret ir.Kind) []string {
	lines := b.emitPrelude(v.Prelude)

	if v.Value == nil {
		lines = append(lines, b.unwindReturn()...)
		if ret == ir.KindVoid {
			return append(lines, "    return;")
		}
		return append(lines, "    return mp_const_none;")
	}

	expr := b.emitAs(v.Value, ret)
	if ret == ir.KindVoid {
		lines = append(lines, fmt.Sprintf("    (void)%s;", expr))
		lines = append(lines, b.unwindReturn()...)
		return append(lines, "    return;")
	}
	if len(b.frames) > 0 {
		tmp := b.freshTemp()
		lines = append(lines, fmt.Sprintf("    %s %s = %s;", ret.CType(), tmp, expr))
		lines = append(lines, b.unwindReturn()...)
		return append(lines, fmt.Sprintf("    return %s;", tmp))
	}
	return append(lines, fmt.Sprintf("    return %s;", expr))
}

// emitYield only applies to generator bodies.
func (b *baseEmitter) emitYield(v ir.Yield) []string {
	return nil
}
