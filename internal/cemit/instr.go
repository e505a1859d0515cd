package cemit

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// emitPrelude renders hoisted side-effecting instructions. Lines come
// out at one indent level; callers nest them with indentLines.
func (b *baseEmitter) emitPrelude(instrs []ir.Instr) []string {
	var lines []string
	for _, in := range instrs {
		lines = append(lines, b.emitInstr(in)...)
	}
	return lines
}

func (b *baseEmitter) emitInstr(in ir.Instr) []string {
	switch v := in.(type) {
	case ir.ListNew:
		return b.emitContainerNew(v.Result, v.Items, "mp_obj_new_list")
	case ir.TupleNew:
		if len(v.Items) == 0 {
			return []string{fmt.Sprintf("    mp_obj_t %s = mp_const_empty_tuple;", v.Result.Name)}
		}
		return b.emitContainerNew(v.Result, v.Items, "mp_obj_new_tuple")
	case ir.SetNew:
		return b.emitContainerNew(v.Result, v.Items, "mp_obj_new_set")
	case ir.DictNew:
		lines := []string{fmt.Sprintf("    mp_obj_t %s = mp_obj_new_dict(%d);", v.Result.Name, len(v.Entries))}
		for _, e := range v.Entries {
			lines = append(lines, fmt.Sprintf("    mp_obj_dict_store(%s, %s, %s);",
				v.Result.Name, b.emitBoxed(e.Key), b.emitBoxed(e.Value)))
		}
		return lines
	case ir.GetItem:
		expr := fmt.Sprintf("mp_obj_subscr(%s, %s, MP_OBJ_SENTINEL)",
			b.emitBoxed(v.Container), b.emitBoxed(v.Key))
		return []string{b.declTemp(v.Result, expr, ir.KindDynamic)}
	case ir.SetItem:
		return []string{fmt.Sprintf("    mp_obj_subscr(%s, %s, %s);",
			b.emitBoxed(v.Container), b.emitBoxed(v.Key), b.emitBoxed(v.Value))}
	case ir.FastGetItem:
		return []string{b.emitFastGetItem(v)}
	case ir.MethodCall:
		return b.emitMethodCall(v)
	case ir.Box:
		return []string{fmt.Sprintf("    mp_obj_t %s = %s;", v.Result.Name, b.emitBoxed(v.Value))}
	case ir.Unbox:
		expr, k := b.self.emitExpr(v.Value)
		return []string{fmt.Sprintf("    %s %s = %s;",
			v.Target.CType(), v.Result.Name, convertValue(expr, k, v.Target))}
	case ir.AttrLoad:
		return []string{fmt.Sprintf("    %s %s = %s->%s;",
			v.Kind.CType(), v.Result.Name, b.recvPtr(v.Obj, v.ClassC), v.Attr)}
	case ir.AttrLoadDyn:
		return []string{fmt.Sprintf("    mp_obj_t %s = mp_load_attr(%s, MP_QSTR_%s);",
			v.Result.Name, b.emitBoxed(v.Obj), v.Attr)}
	case ir.ListComp:
		return b.emitListComp(v)
	default:
		return nil
	}
}

func (b *baseEmitter) emitContainerNew(result ir.Temp, items []ir.Expr, ctor string) []string {
	if len(items) == 0 {
		return []string{fmt.Sprintf("    mp_obj_t %s = %s(0, NULL);", result.Name, ctor)}
	}
	boxed := b.emitBoxedArgs(items)
	return []string{
		fmt.Sprintf("    mp_obj_t %s_items[] = {%s};", result.Name, strings.Join(boxed, ", ")),
		fmt.Sprintf("    mp_obj_t %s = %s(%d, %s_items);", result.Name, ctor, len(items), result.Name),
	}
}

// declTemp declares a temp, converting the given expression (of kind
// from) to the temp's kind.
func (b *baseEmitter) declTemp(t ir.Temp, expr string, from ir.Kind) string {
	return fmt.Sprintf("    %s %s = %s;", t.Kind.CType(), t.Name, convertValue(expr, from, t.Kind))
}

func (b *baseEmitter) emitFastGetItem(v ir.FastGetItem) string {
	list, _ := b.self.emitExpr(v.List)
	idx := b.emitAs(v.Index, ir.KindInt)
	var expr string
	switch {
	case v.Signed:
		expr = fmt.Sprintf("mp_list_get_int(%s, %s)", list, idx)
	case v.IndexNeg:
		expr = fmt.Sprintf("mp_list_get_neg(%s, %s)", list, idx)
	default:
		expr = fmt.Sprintf("mp_list_get_fast(%s, (size_t)(%s))", list, idx)
	}
	return b.declTemp(v.Result, expr, ir.KindDynamic)
}

func (b *baseEmitter) emitMethodCall(v ir.MethodCall) []string {
	recv := b.emitBoxed(v.Receiver)
	boxed := b.emitBoxedArgs(v.Args)

	assign := func(expr string) []string {
		if v.Result == nil {
			return []string{fmt.Sprintf("    %s;", expr)}
		}
		return []string{fmt.Sprintf("    mp_obj_t %s = %s;", v.Result.Name, expr)}
	}

	switch v.Op {
	case ir.MethodAppend:
		return assign(fmt.Sprintf("mp_obj_list_append(%s, %s)", recv, boxed[0]))
	case ir.MethodSetAdd:
		return assign(fmt.Sprintf("mp_obj_set_store(%s, %s)", recv, boxed[0]))
	case ir.MethodDictGet:
		if len(boxed) == 1 {
			return assign(fmt.Sprintf("mp_obj_dict_get(%s, %s)", recv, boxed[0]))
		}
		return assign(fmt.Sprintf("mp_call_function_2(mp_load_attr(%s, MP_QSTR_get), %s, %s)",
			recv, boxed[0], boxed[1]))
	case ir.MethodSetDefault:
		if len(boxed) == 1 {
			return assign(fmt.Sprintf("mp_call_function_1(mp_load_attr(%s, MP_QSTR_setdefault), %s)",
				recv, boxed[0]))
		}
		return assign(fmt.Sprintf("mp_call_function_2(mp_load_attr(%s, MP_QSTR_setdefault), %s, %s)",
			recv, boxed[0], boxed[1]))
	case ir.MethodUpdate:
		if len(boxed) == 0 {
			return assign(fmt.Sprintf("mp_call_function_0(mp_load_attr(%s, MP_QSTR_update))", recv))
		}
		return assign(fmt.Sprintf("mp_call_function_1(mp_load_attr(%s, MP_QSTR_update), %s)",
			recv, boxed[0]))
	case ir.MethodZeroArg:
		return assign(fmt.Sprintf("mp_call_function_0(mp_load_attr(%s, MP_QSTR_%s))", recv, v.Name))
	case ir.MethodOneArg:
		return assign(fmt.Sprintf("mp_call_function_1(mp_load_attr(%s, MP_QSTR_%s), %s)",
			recv, v.Name, boxed[0]))
	case ir.MethodTwoArg:
		switch len(boxed) {
		case 0:
			return assign(fmt.Sprintf("mp_call_function_0(mp_load_attr(%s, MP_QSTR_%s))", recv, v.Name))
		case 1:
			return assign(fmt.Sprintf("mp_call_function_1(mp_load_attr(%s, MP_QSTR_%s), %s)",
				recv, v.Name, boxed[0]))
		default:
			return assign(fmt.Sprintf("mp_call_function_2(mp_load_attr(%s, MP_QSTR_%s), %s, %s)",
				recv, v.Name, boxed[0], boxed[1]))
		}
	default:
		// Load-method/call-method fallback inside a statement expression
		// so the method buffer stays scoped to this call.
		n := len(boxed)
		var sb strings.Builder
		fmt.Fprintf(&sb, "({ mp_obj_t __method[%d]; mp_load_method(%s, MP_QSTR_%s, __method);",
			2+n, recv, v.Name)
		for i, a := range boxed {
			fmt.Fprintf(&sb, " __method[%d] = %s;", 2+i, a)
		}
		fmt.Fprintf(&sb, " mp_call_method_n_kw(%d, 0, __method); })", n)
		return assign(sb.String())
	}
}

func (b *baseEmitter) emitListComp(v ir.ListComp) []string {
	lines := []string{fmt.Sprintf("    mp_obj_t %s = mp_obj_new_list(0, NULL);", v.Result.Name)}
	lines = append(lines, "    {")

	loopVar := b.ref(v.CLoopVar)
	var inner []string
	var loopOpen string
	if v.IsRange {
		start := "0"
		if v.RangeStart != nil {
			start = b.emitAs(v.RangeStart, ir.KindInt)
		}
		end := b.emitAs(v.RangeEnd, ir.KindInt)
		step := "1"
		if v.RangeStep != nil {
			step = b.emitAs(v.RangeStep, ir.KindInt)
		}
		cmp := "<"
		if c, ok := v.RangeStep.(ir.Const); ok {
			if n, ok := c.Value.(ir.IntLit); ok && n < 0 {
				cmp = ">"
			}
		}
		decl := "mp_int_t "
		if b.namePrefix != "" {
			decl = ""
		}
		loopOpen = fmt.Sprintf("    for (%s%s = %s; %s %s %s; %s += %s) {",
			decl, loopVar, start, loopVar, cmp, end, loopVar, step)
	} else {
		inner = append(inner, b.emitPrelude(v.IterPrelude)...)
		iter := b.emitBoxed(v.Iterable)
		buf := b.freshTemp()
		it := b.freshTemp()
		inner = append(inner,
			fmt.Sprintf("    mp_obj_iter_buf_t %s;", buf),
			fmt.Sprintf("    mp_obj_t %s = mp_getiter(%s, &%s);", it, iter, buf),
		)
		if b.namePrefix == "" {
			inner = append(inner, fmt.Sprintf("    mp_obj_t %s;", loopVar))
		}
		loopOpen = fmt.Sprintf("    while ((%s = mp_iternext(%s)) != MP_OBJ_STOP_ITERATION) {",
			loopVar, it)
	}
	inner = append(inner, loopOpen)

	var body []string
	if v.Condition != nil {
		body = append(body, b.emitPrelude(v.ConditionPrelude)...)
		body = append(body, fmt.Sprintf("    if (%s) {", truthy(b.self.emitExpr(v.Condition))))
		var store []string
		store = append(store, b.emitPrelude(v.ElementPrelude)...)
		store = append(store, fmt.Sprintf("    mp_obj_list_append(%s, %s);",
			v.Result.Name, b.emitBoxed(v.Element)))
		body = append(body, indentLines(store)...)
		body = append(body, "    }")
	} else {
		body = append(body, b.emitPrelude(v.ElementPrelude)...)
		body = append(body, fmt.Sprintf("    mp_obj_list_append(%s, %s);",
			v.Result.Name, b.emitBoxed(v.Element)))
	}
	inner = append(inner, indentLines(body)...)
	inner = append(inner, "    }")

	lines = append(lines, indentLines(inner)...)
	lines = append(lines, "    }")
	return lines
}
