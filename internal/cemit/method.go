package cemit

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// MethodEmitter renders one method as a typed native entry holding the
// body plus a boxed mp wrapper delegating to it. The split keeps
// intra-module calls free of boxing while the wrapper serves the
// locals dict and interpreted callers.
type MethodEmitter struct {
	baseEmitter
	cls *ir.ClassIR
	m   *ir.MethodIR
}

func NewMethodEmitter(cls *ir.ClassIR, m *ir.MethodIR) *MethodEmitter {
	e := &MethodEmitter{cls: cls, m: m}
	e.temp = m.MaxTemp
	e.self = e
	return e
}

func (e *MethodEmitter) hasSelf() bool {
	return !e.m.IsStatic && !e.m.IsClassMethod
}

// nativeSignature is shared with the module-level prototype block.
func (e *MethodEmitter) nativeSignature() string {
	var params []string
	if e.hasSelf() {
		params = append(params, fmt.Sprintf("%s_obj_t *self", e.cls.CName))
	}
	for _, p := range e.m.Params {
		params = append(params, fmt.Sprintf("%s %s", p.Kind.CType(), p.CName))
	}
	paramStr := "void"
	if len(params) > 0 {
		paramStr = strings.Join(params, ", ")
	}
	return fmt.Sprintf("static %s %s_native(%s)", e.m.RetKind.CType(), e.m.CName, paramStr)
}

// EmitNative returns the typed entry containing the method body.
func (e *MethodEmitter) EmitNative() string {
	lines := []string{e.nativeSignature() + " {"}
	for _, s := range e.m.Body {
		lines = append(lines, e.emitStmt(s)...)
	}
	if needsFallthroughReturn(e.m.Body) {
		switch e.m.RetKind {
		case ir.KindVoid:
			// Implicit return.
		case ir.KindDynamic:
			lines = append(lines, "    return mp_const_none;")
		default:
			lines = append(lines, "    return 0;")
		}
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

func (e *MethodEmitter) emitReturn(v ir.Return) []string {
	return e.emitNativeReturn(v, e.m.RetKind)
}

// EmitWrapper returns the boxed wrapper and its function object macro.
func (e *MethodEmitter) EmitWrapper() string {
	m := e.m
	num := len(m.Params)
	if e.hasSelf() {
		num++
	}
	required := num
	for _, p := range m.Params {
		if p.Default != nil {
			required--
		}
	}
	variadic := num > 3 || required < num

	objName := m.CName + "_obj"
	if !e.hasSelf() {
		objName = m.CName + "_fun_obj"
	}

	var sig, objDef string
	if variadic {
		sig = fmt.Sprintf("static mp_obj_t %s_mp(size_t n_args, const mp_obj_t *args)", m.CName)
		objDef = fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_VAR_BETWEEN(%s, %d, %d, %s_mp);",
			objName, required, num, m.CName)
	} else {
		var parts []string
		if e.hasSelf() {
			parts = append(parts, "mp_obj_t self_in")
		}
		for i := range m.Params {
			parts = append(parts, fmt.Sprintf("mp_obj_t arg%d_obj", i))
		}
		paramStr := "void"
		if len(parts) > 0 {
			paramStr = strings.Join(parts, ", ")
		}
		sig = fmt.Sprintf("static mp_obj_t %s_mp(%s)", m.CName, paramStr)
		objDef = fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_%d(%s, %s_mp);", num, objName, m.CName)
	}

	lines := []string{sig + " {"}
	if e.hasSelf() {
		if variadic {
			lines = append(lines, fmt.Sprintf("    %s_obj_t *self = MP_OBJ_TO_PTR(args[0]);", e.cls.CName))
		} else {
			lines = append(lines, fmt.Sprintf("    %s_obj_t *self = MP_OBJ_TO_PTR(self_in);", e.cls.CName))
		}
	}

	for i, p := range m.Params {
		var src string
		if variadic {
			idx := i
			if e.hasSelf() {
				idx++
			}
			src = fmt.Sprintf("args[%d]", idx)
			if p.Default != nil {
				lines = append(lines, fmt.Sprintf("    %s %s = (n_args > %d) ? %s : %s;",
					p.Kind.CType(), p.CName, idx, unboxValue(src, p.Kind), defaultC(p.Default, p.Kind)))
				continue
			}
		} else {
			src = fmt.Sprintf("arg%d_obj", i)
		}
		lines = append(lines, fmt.Sprintf("    %s %s = %s;", p.Kind.CType(), p.CName, unboxValue(src, p.Kind)))
	}

	callArgs := make([]string, 0, num)
	if e.hasSelf() {
		callArgs = append(callArgs, "self")
	}
	for _, p := range m.Params {
		callArgs = append(callArgs, p.CName)
	}
	call := fmt.Sprintf("%s_native(%s)", m.CName, strings.Join(callArgs, ", "))

	switch m.RetKind {
	case ir.KindVoid:
		lines = append(lines, fmt.Sprintf("    %s;", call), "    return mp_const_none;")
	case ir.KindDynamic:
		lines = append(lines, fmt.Sprintf("    return %s;", call))
	default:
		lines = append(lines, fmt.Sprintf("    return %s;", boxValue(call, m.RetKind)))
	}
	lines = append(lines, "}", objDef)
	return strings.Join(lines, "\n")
}
