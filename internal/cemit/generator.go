package cemit

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// GeneratorEmitter renders a generator function as a heap object plus an
// iternext handler. Every local lives in the generator struct so it
// survives suspension; the body becomes straight-line C where each yield
// stores a resume state and returns, and resumption jumps to the label
// planted just past it.
type GeneratorEmitter struct {
	baseEmitter
	fn *ir.FuncIR
}

func NewGeneratorEmitter(fn *ir.FuncIR) *GeneratorEmitter {
	e := &GeneratorEmitter{fn: fn}
	e.temp = fn.MaxTemp
	e.namePrefix = "self->"
	e.self = e
	return e
}

func (e *GeneratorEmitter) structName() string {
	return e.fn.CName + "_gen_t"
}

type genField struct {
	ctype string
	name  string
	kind  ir.Kind
	isRT  bool
}

// structFields lists everything the body may touch across a suspension:
// parameters, declared locals, loop variables, hoisted range bounds, and
// one iterator handle per runtime-protocol loop.
func (e *GeneratorEmitter) structFields() []genField {
	seen := map[string]bool{}
	var fields []genField
	add := func(ctype, name string, kind ir.Kind, isRT bool) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		fields = append(fields, genField{ctype: ctype, name: name, kind: kind, isRT: isRT})
	}

	for _, p := range e.fn.Params {
		add(p.Kind.CType(), p.CName, p.Kind, false)
	}
	for _, l := range e.fn.Locals {
		if l.RT != nil {
			add(l.RT.StructName(), l.CName, ir.KindDynamic, true)
			continue
		}
		add(l.Kind.CType(), l.CName, l.Kind, false)
	}
	collectLoopState(e.fn.Body, func(ctype, name string, kind ir.Kind) {
		add(ctype, name, kind, false)
	})
	return fields
}

// collectLoopState walks the body for loop machinery that must persist
// in the generator struct.
func collectLoopState(body []ir.Stmt, add func(ctype, name string, kind ir.Kind)) {
	instrs := func(pre []ir.Instr) {
		for _, in := range pre {
			lc, ok := in.(ir.ListComp)
			if !ok {
				continue
			}
			if lc.IsRange {
				add("mp_int_t", lc.CLoopVar, ir.KindInt)
			} else {
				add("mp_obj_t", lc.CLoopVar, ir.KindDynamic)
			}
		}
	}
	for _, s := range body {
		switch v := s.(type) {
		case ir.Assign:
			instrs(v.Prelude)
		case ir.AugAssign:
			instrs(v.Prelude)
		case ir.AttrAssign:
			instrs(v.Prelude)
		case ir.ExprStmt:
			instrs(v.Prelude)
		case ir.Print:
			instrs(v.Prelude)
		case ir.Return:
			instrs(v.Prelude)
		case ir.Raise:
			instrs(v.Prelude)
		case ir.Yield:
			instrs(v.Prelude)
		case ir.If:
			instrs(v.Prelude)
			collectLoopState(v.Then, add)
			collectLoopState(v.Else, add)
		case ir.While:
			instrs(v.Prelude)
			collectLoopState(v.Body, add)
		case ir.ForRange:
			instrs(v.Prelude)
			add("mp_int_t", v.CLoopVar, ir.KindInt)
			add("mp_int_t", "_end_"+v.CLoopVar, ir.KindInt)
			collectLoopState(v.Body, add)
		case ir.ForIter:
			instrs(v.IterPrelude)
			add("mp_obj_t", v.CLoopVar, ir.KindDynamic)
			add("mp_obj_t", "_iter_"+v.CLoopVar, ir.KindDynamic)
			collectLoopState(v.Body, add)
		case ir.Try:
			collectLoopState(v.Body, add)
			for _, h := range v.Handlers {
				collectLoopState(h.Body, add)
			}
			collectLoopState(v.OrElse, add)
			collectLoopState(v.Finally, add)
		}
	}
}

// yieldStates lists suspension ids in body order.
func yieldStates(body []ir.Stmt) []int {
	var ids []int
	for _, s := range body {
		switch v := s.(type) {
		case ir.Yield:
			ids = append(ids, v.StateID)
		case ir.If:
			ids = append(ids, yieldStates(v.Then)...)
			ids = append(ids, yieldStates(v.Else)...)
		case ir.While:
			ids = append(ids, yieldStates(v.Body)...)
		case ir.ForRange:
			ids = append(ids, yieldStates(v.Body)...)
		case ir.ForIter:
			ids = append(ids, yieldStates(v.Body)...)
		case ir.Try:
			ids = append(ids, yieldStates(v.Body)...)
			for _, h := range v.Handlers {
				ids = append(ids, yieldStates(h.Body)...)
			}
			ids = append(ids, yieldStates(v.OrElse)...)
			ids = append(ids, yieldStates(v.Finally)...)
		}
	}
	return ids
}

// EmitStruct renders the generator instance layout.
func (e *GeneratorEmitter) EmitStruct() string {
	var b strings.Builder
	fmt.Fprintf(&b, "typedef struct _%s {\n", e.structName())
	b.WriteString("    mp_obj_base_t base;\n")
	b.WriteString("    uint16_t state;\n")
	for _, f := range e.structFields() {
		fmt.Fprintf(&b, "    %s %s;\n", f.ctype, f.name)
	}
	fmt.Fprintf(&b, "} %s;\n", e.structName())
	return b.String()
}

// EmitIternext renders the resume handler and the generator type. Entry
// pre-marks the generator exhausted so an escaping exception cannot
// resume it; each yield overwrites the mark with its own state.
func (e *GeneratorEmitter) EmitIternext() string {
	c := e.fn.CName
	var b strings.Builder

	fmt.Fprintf(&b, "static mp_obj_t %s_gen_iternext(mp_obj_t self_in) {\n", c)
	fmt.Fprintf(&b, "    %s *self = MP_OBJ_TO_PTR(self_in);\n", e.structName())
	b.WriteString("    uint16_t st = self->state;\n")
	b.WriteString("    self->state = 0xFFFF;\n")
	b.WriteString("    switch (st) {\n")
	b.WriteString("    case 0:\n        goto state_0;\n")
	for _, id := range yieldStates(e.fn.Body) {
		fmt.Fprintf(&b, "    case %d:\n        goto state_%d;\n", id, id)
	}
	b.WriteString("    default:\n        return MP_OBJ_STOP_ITERATION;\n")
	b.WriteString("    }\n")
	b.WriteString("state_0:;\n")

	for _, s := range e.fn.Body {
		for _, line := range e.emitStmt(s) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteString("    self->state = 0xFFFF;\n")
	b.WriteString("    return MP_OBJ_STOP_ITERATION;\n")
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "MP_DEFINE_CONST_OBJ_TYPE(\n")
	fmt.Fprintf(&b, "    %s_gen_type,\n", c)
	b.WriteString("    MP_QSTR_generator,\n")
	b.WriteString("    MP_TYPE_FLAG_ITER_IS_ITERNEXT,\n")
	fmt.Fprintf(&b, "    iter, %s_gen_iternext\n", c)
	b.WriteString(");\n")
	return b.String()
}

// EmitWrapper renders the callable that allocates a fresh suspended
// generator. Parameters land in their struct fields; every other field
// gets a defined initial value so the collector never scans garbage.
func (e *GeneratorEmitter) EmitWrapper() string {
	sig, objDef := functionSignature(e.fn)
	fn := e.fn
	params := positionalParams(fn)
	num := len(params)
	variadic := fn.StarArgs || fn.StarKwargs || hasDefaults(fn) || num > 3

	argsArray := "args"
	if fn.StarKwargs {
		argsArray = "pos_args"
	}

	var body []string
	body = append(body, fmt.Sprintf("    %s *gen = mp_obj_malloc(%s, &%s_gen_type);",
		e.structName(), e.structName(), fn.CName))
	body = append(body, "    gen->state = 0;")

	isParam := map[string]bool{}
	for i, p := range params {
		isParam[p.CName] = true
		var src string
		if variadic {
			src = fmt.Sprintf("%s[%d]", argsArray, i)
		} else {
			src = p.CName + "_obj"
		}
		if variadic && p.Default != nil {
			body = append(body, fmt.Sprintf("    gen->%s = (n_args > %d) ? %s : %s;",
				p.CName, i, unboxValue(src, p.Kind), defaultC(p.Default, p.Kind)))
			continue
		}
		body = append(body, fmt.Sprintf("    gen->%s = %s;", p.CName, unboxValue(src, p.Kind)))
	}
	if fn.StarArgs {
		star := fn.Params[num]
		isParam[star.CName] = true
		body = append(body, fmt.Sprintf(
			"    gen->%s = mp_obj_new_tuple(n_args > %d ? n_args - %d : 0, n_args > %d ? %s + %d : NULL);",
			star.CName, num, num, num, argsArray, num))
	}
	if fn.StarKwargs {
		star := fn.Params[len(fn.Params)-1]
		isParam[star.CName] = true
		body = append(body,
			fmt.Sprintf("    gen->%s = mp_obj_new_dict(kw_args ? kw_args->used : 0);", star.CName),
			"    if (kw_args) {",
			"        for (size_t i = 0; i < kw_args->alloc; i++) {",
			"            if (mp_map_slot_is_filled(kw_args, i)) {",
			fmt.Sprintf("                mp_obj_dict_store(gen->%s, kw_args->table[i].key, kw_args->table[i].value);", star.CName),
			"            }",
			"        }",
			"    }",
		)
	}

	for _, f := range e.structFields() {
		if isParam[f.name] || f.isRT {
			continue
		}
		body = append(body, fmt.Sprintf("    gen->%s = %s;", f.name, zeroC(f.kind)))
	}
	body = append(body, "    return MP_OBJ_FROM_PTR(gen);")

	return sig + " {\n" + strings.Join(body, "\n") + "\n}\n" + objDef
}

func zeroC(k ir.Kind) string {
	switch k {
	case ir.KindInt:
		return "0"
	case ir.KindFloat:
		return "(mp_float_t)0"
	case ir.KindBool:
		return "false"
	default:
		return "mp_const_none"
	}
}

func (e *GeneratorEmitter) emitYield(v ir.Yield) []string {
	lines := []string{"    {"}
	var inner []string
	inner = append(inner, e.emitPrelude(v.Prelude)...)
	val := "mp_const_none"
	if v.Value != nil {
		val = e.emitBoxed(v.Value)
	}
	inner = append(inner, fmt.Sprintf("    self->state = %d;", v.StateID))
	inner = append(inner, fmt.Sprintf("    return %s;", val))
	lines = append(lines, indentLines(inner)...)
	lines = append(lines, "    }")
	// The trailing empty statement keeps the label legal wherever the
	// yield sits in a block.
	lines = append(lines, fmt.Sprintf("state_%d:;", v.StateID))
	return lines
}

// emitReturn finishes the generator; the exhausted state is already set
// on entry, so only the sentinel return remains.
func (e *GeneratorEmitter) emitReturn(v ir.Return) []string {
	lines := e.emitPrelude(v.Prelude)
	return append(lines, "    return MP_OBJ_STOP_ITERATION;")
}

// emitForRange hoists the bound into a struct field so the loop header
// stays valid after resumption: a goto lands in the body, and the next
// iteration re-reads the persisted fields. The builder only admits
// ranges with a constant step of 1 inside generators.
func (e *GeneratorEmitter) emitForRange(v ir.ForRange) []string {
	lines := e.emitPrelude(v.Prelude)
	loopVar := e.ref(v.CLoopVar)
	end := e.ref("_end_" + v.CLoopVar)

	start := "0"
	if v.Start != nil {
		start = e.emitAs(v.Start, ir.KindInt)
	}
	lines = append(lines, fmt.Sprintf("    for (%s = %s, %s = %s; %s < %s; %s++) {",
		loopVar, start, end, e.emitAs(v.End, ir.KindInt), loopVar, end, loopVar))
	lines = append(lines, indentLines(e.emitBody(v.Body))...)
	return append(lines, "    }")
}

// emitForIter keeps the iterator handle in the struct. No iter buf: the
// handle must survive suspension, so it always heap-allocates.
func (e *GeneratorEmitter) emitForIter(v ir.ForIter) []string {
	lines := e.emitPrelude(v.IterPrelude)
	loopVar := e.ref(v.CLoopVar)
	it := e.ref("_iter_" + v.CLoopVar)

	lines = append(lines,
		fmt.Sprintf("    %s = mp_getiter(%s, NULL);", it, e.emitBoxed(v.Iterable)),
		fmt.Sprintf("    while ((%s = mp_iternext(%s)) != MP_OBJ_STOP_ITERATION) {", loopVar, it),
	)
	lines = append(lines, indentLines(e.emitBody(v.Body))...)
	return append(lines, "    }")
}
