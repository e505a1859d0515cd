package cemit

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// FunctionEmitter renders one module-level function as a static C
// function plus its const function object definition.
type FunctionEmitter struct {
	baseEmitter
	fn *ir.FuncIR
}

func NewFunctionEmitter(fn *ir.FuncIR) *FunctionEmitter {
	e := &FunctionEmitter{fn: fn}
	e.temp = fn.MaxTemp
	e.self = e
	return e
}

// Emit returns the full function definition followed by the function
// object macro.
func (e *FunctionEmitter) Emit() string {
	sig, objDef := functionSignature(e.fn)

	var body []string
	body = append(body, e.unboxArguments()...)
	if len(body) > 0 {
		body = append(body, "")
	}
	for _, s := range e.fn.Body {
		body = append(body, e.emitStmt(s)...)
	}
	if needsFallthroughReturn(e.fn.Body) {
		body = append(body, "    return mp_const_none;")
	}

	return sig + " {\n" + strings.Join(body, "\n") + "\n}\n" + objDef
}

// positionalParams strips the trailing star captures.
func positionalParams(fn *ir.FuncIR) []ir.Param {
	n := len(fn.Params)
	if fn.StarArgs {
		n--
	}
	if fn.StarKwargs {
		n--
	}
	return fn.Params[:n]
}

func requiredArgs(fn *ir.FuncIR) int {
	req := 0
	for _, p := range positionalParams(fn) {
		if p.Default == nil {
			req++
		}
	}
	return req
}

func hasDefaults(fn *ir.FuncIR) bool {
	for _, p := range positionalParams(fn) {
		if p.Default != nil {
			return true
		}
	}
	return false
}

func functionSignature(fn *ir.FuncIR) (string, string) {
	c := fn.CName
	params := positionalParams(fn)
	num := len(params)

	switch {
	case fn.StarKwargs:
		return fmt.Sprintf("static mp_obj_t %s(size_t n_args, const mp_obj_t *pos_args, mp_map_t *kw_args)", c),
			fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_KW(%s_obj, %d, %s);", c, requiredArgs(fn), c)
	case fn.StarArgs:
		return fmt.Sprintf("static mp_obj_t %s(size_t n_args, const mp_obj_t *args)", c),
			fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_VAR(%s_obj, %d, %s);", c, requiredArgs(fn), c)
	case hasDefaults(fn):
		return fmt.Sprintf("static mp_obj_t %s(size_t n_args, const mp_obj_t *args)", c),
			fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_VAR_BETWEEN(%s_obj, %d, %d, %s);", c, requiredArgs(fn), num, c)
	case num == 0:
		return fmt.Sprintf("static mp_obj_t %s(void)", c),
			fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_0(%s_obj, %s);", c, c)
	case num <= 3:
		parts := make([]string, num)
		for i, p := range params {
			parts[i] = fmt.Sprintf("mp_obj_t %s_obj", p.CName)
		}
		return fmt.Sprintf("static mp_obj_t %s(%s)", c, strings.Join(parts, ", ")),
			fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_%d(%s_obj, %s);", num, c, c)
	default:
		return fmt.Sprintf("static mp_obj_t %s(size_t n_args, const mp_obj_t *args)", c),
			fmt.Sprintf("MP_DEFINE_CONST_FUN_OBJ_VAR_BETWEEN(%s_obj, %d, %d, %s);", c, num, num, c)
	}
}

// unboxArguments converts the wrapper's boxed arguments into the typed
// locals the body references. Optional arguments test n_args against
// their position and fall back to the default literal.
func (e *FunctionEmitter) unboxArguments() []string {
	var lines []string
	params := positionalParams(e.fn)
	num := len(params)
	variadic := e.fn.StarArgs || e.fn.StarKwargs || hasDefaults(e.fn) || num > 3

	argsArray := "args"
	if e.fn.StarKwargs {
		argsArray = "pos_args"
	}

	for i, p := range params {
		var src string
		if variadic {
			src = fmt.Sprintf("%s[%d]", argsArray, i)
		} else {
			src = p.CName + "_obj"
		}

		if variadic && p.Default != nil {
			def := defaultC(p.Default, p.Kind)
			lines = append(lines, fmt.Sprintf("    %s %s = (n_args > %d) ? %s : %s;",
				p.Kind.CType(), p.CName, i, unboxValue(src, p.Kind), def))
			continue
		}
		lines = append(lines, fmt.Sprintf("    %s %s = %s;",
			p.Kind.CType(), p.CName, unboxValue(src, p.Kind)))
	}

	if e.fn.StarArgs {
		star := e.fn.Params[num]
		lines = append(lines, fmt.Sprintf(
			"    mp_obj_t %s = mp_obj_new_tuple(n_args > %d ? n_args - %d : 0, n_args > %d ? %s + %d : NULL);",
			star.CName, num, num, num, argsArray, num))
	}
	if e.fn.StarKwargs {
		star := e.fn.Params[len(e.fn.Params)-1]
		lines = append(lines,
			fmt.Sprintf("    mp_obj_t %s = mp_obj_new_dict(kw_args ? kw_args->used : 0);", star.CName),
			"    if (kw_args) {",
			"        for (size_t i = 0; i < kw_args->alloc; i++) {",
			"            if (mp_map_slot_is_filled(kw_args, i)) {",
			fmt.Sprintf("                mp_obj_dict_store(%s, kw_args->table[i].key, kw_args->table[i].value);", star.CName),
			"            }",
			"        }",
			"    }",
		)
	}
	return lines
}

// defaultC renders a default literal at the parameter's representation.
func defaultC(l ir.Literal, k ir.Kind) string {
	expr, from := literalC(l)
	return convertValue(expr, from, k)
}

func (e *FunctionEmitter) emitReturn(v ir.Return) []string {
	return e.emitBoxedReturn(v, func(name string) *ir.RTuple {
		if l, ok := e.fn.LocalByName(name); ok {
			return l.RT
		}
		return nil
	})
}

func needsFallthroughReturn(body []ir.Stmt) bool {
	if len(body) == 0 {
		return true
	}
	_, isReturn := body[len(body)-1].(ir.Return)
	return !isReturn
}
