package cemit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// codeEmitter is the open-recursion surface of the emitter hierarchy.
// baseEmitter routes every nested statement through this interface, so a
// derived emitter's overrides take effect at any nesting depth.
type codeEmitter interface {
	emitStmt(s ir.Stmt) []string
	emitExpr(e ir.Expr) (string, ir.Kind)
	emitReturn(s ir.Return) []string
	emitAssign(s ir.Assign) []string
	emitAugAssign(s ir.AugAssign) []string
	emitForRange(s ir.ForRange) []string
	emitForIter(s ir.ForIter) []string
	emitYield(s ir.Yield) []string
}

// baseEmitter carries per-body emission state: a temp counter continuing
// where irbuild's left off, and the stack of enclosing try statements so
// early exits can pop every nlr frame they escape and run every finally
// body they owe.
type baseEmitter struct {
	self codeEmitter

	temp      int
	frames    []tryFrame
	loopMarks []int

	// namePrefix rewrites local references; generator bodies keep their
	// variables in the generator struct and set it to "self->".
	namePrefix string
}

// tryFrame is one enclosing try statement. nlr is true while the
// protected body renders; handler and else bodies run after the pop but
// still owe the finally block on any early exit.
type tryFrame struct {
	finally []ir.Stmt
	nlr     bool
}

func (b *baseEmitter) ref(cname string) string {
	return b.namePrefix + cname
}

func (b *baseEmitter) freshTemp() string {
	t := fmt.Sprintf("_t%d", b.temp)
	b.temp++
	return t
}

// unwindTo emits the cleanup for leaving every frame above keep,
// innermost first: each frame pops its nlr buffer while still pushed,
// then runs its finally body. The stack is truncated while a finally
// body renders so an exit inside it unwinds only the frames that remain.
func (b *baseEmitter) unwindTo(keep int) []string {
	saved := append([]tryFrame(nil), b.frames...)
	var lines []string
	for len(b.frames) > keep {
		f := b.frames[len(b.frames)-1]
		b.frames = b.frames[:len(b.frames)-1]
		if f.nlr {
			lines = append(lines, "    nlr_pop();")
		}
		lines = append(lines, b.emitBody(f.finally)...)
	}
	b.frames = saved
	return lines
}

// unwindReturn is the full unwind for a return leaving the body.
func (b *baseEmitter) unwindReturn() []string {
	return b.unwindTo(0)
}

// unwindLoop unwinds the frames entered since the innermost loop, for
// break and continue.
func (b *baseEmitter) unwindLoop() []string {
	mark := 0
	if len(b.loopMarks) > 0 {
		mark = b.loopMarks[len(b.loopMarks)-1]
	}
	return b.unwindTo(mark)
}

// emitLoopBody records the loop boundary so break and continue inside
// the body unwind only the frames entered after it.
func (b *baseEmitter) emitLoopBody(body []ir.Stmt) []string {
	b.loopMarks = append(b.loopMarks, len(b.frames))
	lines := b.emitBody(body)
	b.loopMarks = b.loopMarks[:len(b.loopMarks)-1]
	return lines
}

func indentLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		if l == "" {
			out[i] = ""
			continue
		}
		out[i] = "    " + l
	}
	return out
}

// boxValue converts a native C expression to mp_obj_t.
func boxValue(expr string, k ir.Kind) string {
	switch k {
	case ir.KindInt:
		return fmt.Sprintf("mp_obj_new_int(%s)", expr)
	case ir.KindFloat:
		return fmt.Sprintf("mp_obj_new_float(%s)", expr)
	case ir.KindBool:
		return fmt.Sprintf("mp_obj_new_bool(%s)", expr)
	default:
		return expr
	}
}

// unboxValue converts an mp_obj_t expression to the target native kind.
func unboxValue(expr string, target ir.Kind) string {
	switch target {
	case ir.KindInt:
		return fmt.Sprintf("mp_obj_get_int(%s)", expr)
	case ir.KindFloat:
		return fmt.Sprintf("mp_get_float_checked(%s)", expr)
	case ir.KindBool:
		return fmt.Sprintf("mp_obj_is_true(%s)", expr)
	default:
		return expr
	}
}

// convertValue coerces an expression from one kind to another: boxing,
// unboxing, or a native cast.
func convertValue(expr string, from, to ir.Kind) string {
	if from == to || to == ir.KindVoid {
		return expr
	}
	if to == ir.KindDynamic {
		return boxValue(expr, from)
	}
	if from == ir.KindDynamic {
		return unboxValue(expr, to)
	}
	switch to {
	case ir.KindInt:
		return fmt.Sprintf("((mp_int_t)(%s))", expr)
	case ir.KindFloat:
		return fmt.Sprintf("((mp_float_t)(%s))", expr)
	case ir.KindBool:
		return fmt.Sprintf("((%s) != 0)", expr)
	default:
		return expr
	}
}

// truthy renders an expression as a C condition.
func truthy(expr string, k ir.Kind) string {
	switch k {
	case ir.KindBool:
		return expr
	case ir.KindInt, ir.KindFloat:
		return fmt.Sprintf("((%s) != 0)", expr)
	default:
		return fmt.Sprintf("mp_obj_is_true(%s)", expr)
	}
}

// literalC renders a literal in its natural representation.
func literalC(l ir.Literal) (string, ir.Kind) {
	switch v := l.(type) {
	case ir.IntLit:
		return strconv.FormatInt(int64(v), 10), ir.KindInt
	case ir.FloatLit:
		return floatC(float64(v)), ir.KindFloat
	case ir.BoolLit:
		if v {
			return "true", ir.KindBool
		}
		return "false", ir.KindBool
	case ir.StrLit:
		s := string(v)
		return fmt.Sprintf("mp_obj_new_str(\"%s\", %d)", escapeC(s), len(s)), ir.KindDynamic
	default:
		return "mp_const_none", ir.KindDynamic
	}
}

// floatC renders a float with an explicit decimal point so the C
// constant keeps floating type.
func floatC(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func escapeC(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// emitBoxed renders an expression already converted to mp_obj_t.
func (b *baseEmitter) emitBoxed(e ir.Expr) string {
	expr, k := b.self.emitExpr(e)
	return boxValue(expr, k)
}

// emitAs renders an expression converted to the wanted kind.
func (b *baseEmitter) emitAs(e ir.Expr, want ir.Kind) string {
	expr, k := b.self.emitExpr(e)
	return convertValue(expr, k, want)
}

// emitArgs renders a call argument list converted to the callee's
// boundary kinds. A missing kinds entry keeps the argument as-is.
func (b *baseEmitter) emitArgs(args []ir.Expr, kinds []ir.Kind) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if i < len(kinds) {
			out[i] = b.emitAs(a, kinds[i])
		} else {
			out[i], _ = b.self.emitExpr(a)
		}
	}
	return out
}

// emitBoxedArgs renders a call argument list with every value boxed.
func (b *baseEmitter) emitBoxedArgs(args []ir.Expr) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = b.emitBoxed(a)
	}
	return out
}
