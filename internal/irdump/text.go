package irdump

import (
	"fmt"
	"strings"

	"github.com/roach88/pyrite/internal/ir"
)

// textPrinter prints pseudo-source: statements read like the input
// program, with hoisted prelude instructions shown as comments above
// the statement that consumes their temps.
type textPrinter struct {
	indent int
}

func (p *textPrinter) i() string {
	return strings.Repeat("  ", p.indent)
}

func (p *textPrinter) module(m *ir.ModuleIR) string {
	lines := []string{fmt.Sprintf("Module: %s (c_name: %s)", m.Name, m.CName), ""}

	if len(m.FunctionOrder) > 0 {
		lines = append(lines, "Functions:")
		p.indent++
		for _, name := range m.FunctionOrder {
			lines = append(lines, p.function(m.Functions[name]), "")
		}
		p.indent--
	}

	if len(m.ClassOrder) > 0 {
		lines = append(lines, "Classes:")
		p.indent++
		for _, name := range m.ClassOrder {
			lines = append(lines, p.class(m.Classes[name]), "")
		}
		p.indent--
	}

	if len(m.FFIBindings) > 0 {
		lines = append(lines, "Extern bindings:")
		p.indent++
		for _, b := range m.FFIBindings {
			lines = append(lines, fmt.Sprintf("%s%s.%s/%d", p.i(), b.Alias, b.Member, b.NArgs))
		}
		p.indent--
	}
	return strings.Join(lines, "\n")
}

func (p *textPrinter) function(f *ir.FuncIR) string {
	var lines []string
	params := paramList(f.Params)
	if f.StarArgs {
		params = joinNonEmpty(params, "*args")
	}
	if f.StarKwargs {
		params = joinNonEmpty(params, "**kwargs")
	}
	sig := fmt.Sprintf("%sdef %s(%s) -> %s:", p.i(), f.Name, params, f.RetKind)
	lines = append(lines, sig)
	lines = append(lines, fmt.Sprintf("%s  c_name: %s", p.i(), f.CName))
	lines = append(lines, fmt.Sprintf("%s  max_temp: %d", p.i(), f.MaxTemp))
	if f.IsGenerator {
		lines = append(lines, fmt.Sprintf("%s  generator: %d yield states", p.i(), f.YieldStates))
	}
	if len(f.Locals) > 0 {
		var parts []string
		for _, l := range f.Locals {
			if l.RT != nil {
				parts = append(parts, fmt.Sprintf("%s: %s", l.Name, l.RT.StructName()))
			} else {
				parts = append(parts, fmt.Sprintf("%s: %s", l.Name, l.Kind))
			}
		}
		lines = append(lines, fmt.Sprintf("%s  locals: {%s}", p.i(), strings.Join(parts, ", ")))
	}
	if len(f.UsedRTuples) > 0 {
		var parts []string
		for _, rt := range f.UsedRTuples {
			parts = append(parts, rt.StructName())
		}
		lines = append(lines, fmt.Sprintf("%s  rtuples: [%s]", p.i(), strings.Join(parts, ", ")))
	}
	if len(f.Body) > 0 {
		lines = append(lines, fmt.Sprintf("%s  body:", p.i()))
		p.indent += 2
		for _, s := range f.Body {
			lines = append(lines, p.stmt(s))
		}
		p.indent -= 2
	}
	return strings.Join(lines, "\n")
}

func (p *textPrinter) class(c *ir.ClassIR) string {
	lines := []string{fmt.Sprintf("%sClass: %s (c_name: %s)", p.i(), c.Name, c.CName)}
	p.indent++
	if c.BaseName != "" {
		lines = append(lines, fmt.Sprintf("%sBase: %s", p.i(), c.BaseName))
	}
	if c.IsDataclass {
		lines = append(lines, p.i()+"@dataclass")
	}
	if c.IsFinal {
		lines = append(lines, p.i()+"@final")
	}
	if len(c.Fields) > 0 {
		lines = append(lines, p.i()+"Fields:")
		p.indent++
		for i := range c.Fields {
			lines = append(lines, p.field(&c.Fields[i]))
		}
		p.indent--
	}
	if len(c.MethodOrder) > 0 {
		lines = append(lines, p.i()+"Methods:")
		p.indent++
		for _, name := range c.MethodOrder {
			lines = append(lines, p.methodLine(c.Methods[name]))
		}
		p.indent--
	}
	if len(c.VTable) > 0 {
		var parts []string
		for _, s := range c.VTable {
			parts = append(parts, fmt.Sprintf("%s->%s", s.Name, s.Impl.Name))
		}
		lines = append(lines, fmt.Sprintf("%sVTable: [%s]", p.i(), strings.Join(parts, ", ")))
	}
	p.indent--
	return strings.Join(lines, "\n")
}

func (p *textPrinter) field(f *ir.FieldIR) string {
	typ := f.Kind.String()
	if f.Class != "" {
		typ = f.Class
	}
	s := fmt.Sprintf("%s%s: %s", p.i(), f.Name, typ)
	if f.Default != nil {
		s += " = " + literalString(f.Default)
	}
	if f.IsFinal {
		s += " [Final]"
	}
	return s
}

func (p *textPrinter) methodLine(m *ir.MethodIR) string {
	var decorators []string
	if m.IsStatic {
		decorators = append(decorators, "@staticmethod")
	}
	if m.IsClassMethod {
		decorators = append(decorators, "@classmethod")
	}
	if m.IsProperty {
		decorators = append(decorators, "@property")
	}
	if m.IsSetter {
		decorators = append(decorators, "@setter")
	}
	if m.IsFinal {
		decorators = append(decorators, "@final")
	}
	if m.IsPrivate {
		decorators = append(decorators, "[private]")
	}
	dec := ""
	if len(decorators) > 0 {
		dec = strings.Join(decorators, " ") + " "
	}
	virt := ""
	if m.IsVirtual {
		virt = " [virtual]"
	}
	return fmt.Sprintf("%s%sdef %s(%s) -> %s%s", p.i(), dec, m.Name, paramList(m.Params), m.RetKind, virt)
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return a + ", " + b
}

func paramList(params []ir.Param) string {
	var parts []string
	for _, p := range params {
		typ := p.Kind.String()
		if p.Class != "" {
			typ = p.Class
		}
		s := fmt.Sprintf("%s: %s", p.Name, typ)
		if p.Default != nil {
			s += " = " + literalString(p.Default)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func (p *textPrinter) prelude(pre []ir.Instr) []string {
	if len(pre) == 0 {
		return nil
	}
	lines := []string{p.i() + "# prelude:"}
	p.indent++
	for _, in := range pre {
		lines = append(lines, p.i()+instrString(in))
	}
	p.indent--
	return lines
}

func (p *textPrinter) block(body []ir.Stmt) []string {
	p.indent++
	var lines []string
	for _, s := range body {
		lines = append(lines, p.stmt(s))
	}
	p.indent--
	return lines
}

func (p *textPrinter) stmt(s ir.Stmt) string {
	switch v := s.(type) {
	case ir.Assign:
		lines := p.prelude(v.Prelude)
		decl := ""
		if v.Declare {
			decl = "(new) "
		}
		lines = append(lines, fmt.Sprintf("%s%s%s = %s", p.i(), decl, v.CTarget, exprString(v.Value)))
		return strings.Join(lines, "\n")
	case ir.AugAssign:
		lines := p.prelude(v.Prelude)
		lines = append(lines, fmt.Sprintf("%s%s %s= %s", p.i(), v.CTarget, pyBinOp(v.Op), exprString(v.Value)))
		return strings.Join(lines, "\n")
	case ir.AttrAssign:
		lines := p.prelude(v.Prelude)
		lines = append(lines, fmt.Sprintf("%s%s = %s", p.i(), exprString(v.Target), exprString(v.Value)))
		return strings.Join(lines, "\n")
	case ir.ExprStmt:
		lines := p.prelude(v.Prelude)
		if v.Value != nil {
			lines = append(lines, p.i()+exprString(v.Value))
		}
		return strings.Join(lines, "\n")
	case ir.Print:
		lines := p.prelude(v.Prelude)
		lines = append(lines, fmt.Sprintf("%sprint(%s)", p.i(), exprListString(v.Args)))
		return strings.Join(lines, "\n")
	case ir.Return:
		lines := p.prelude(v.Prelude)
		if v.Value == nil {
			lines = append(lines, p.i()+"return")
		} else {
			lines = append(lines, fmt.Sprintf("%sreturn %s", p.i(), exprString(v.Value)))
		}
		return strings.Join(lines, "\n")
	case ir.If:
		lines := p.prelude(v.Prelude)
		lines = append(lines, fmt.Sprintf("%sif %s:", p.i(), exprString(v.Cond)))
		lines = append(lines, p.block(v.Then)...)
		if len(v.Else) > 0 {
			lines = append(lines, p.i()+"else:")
			lines = append(lines, p.block(v.Else)...)
		}
		return strings.Join(lines, "\n")
	case ir.While:
		lines := p.prelude(v.Prelude)
		lines = append(lines, fmt.Sprintf("%swhile %s:", p.i(), exprString(v.Cond)))
		lines = append(lines, p.block(v.Body)...)
		return strings.Join(lines, "\n")
	case ir.ForRange:
		lines := p.prelude(v.Prelude)
		start := "0"
		if v.Start != nil {
			start = exprString(v.Start)
		}
		step := "1"
		if v.Step != nil {
			step = exprString(v.Step)
		}
		lines = append(lines, fmt.Sprintf("%sfor %s in range(%s, %s, %s):",
			p.i(), v.CLoopVar, start, exprString(v.End), step))
		lines = append(lines, p.block(v.Body)...)
		return strings.Join(lines, "\n")
	case ir.ForIter:
		lines := p.prelude(v.IterPrelude)
		lines = append(lines, fmt.Sprintf("%sfor %s in %s:", p.i(), v.CLoopVar, exprString(v.Iterable)))
		lines = append(lines, p.block(v.Body)...)
		return strings.Join(lines, "\n")
	case ir.Break:
		return p.i() + "break"
	case ir.Continue:
		return p.i() + "continue"
	case ir.Pass:
		return p.i() + "pass"
	case ir.Raise:
		if v.HasMsg {
			return fmt.Sprintf("%sraise %s(%q)", p.i(), v.TypeC, v.Msg)
		}
		return fmt.Sprintf("%sraise %s", p.i(), v.TypeC)
	case ir.Try:
		lines := []string{p.i() + "try:"}
		lines = append(lines, p.block(v.Body)...)
		for _, h := range v.Handlers {
			switch {
			case h.TypeC == "":
				lines = append(lines, p.i()+"except:")
			case h.Name != "":
				lines = append(lines, fmt.Sprintf("%sexcept %s as %s:", p.i(), h.TypeC, h.Name))
			default:
				lines = append(lines, fmt.Sprintf("%sexcept %s:", p.i(), h.TypeC))
			}
			lines = append(lines, p.block(h.Body)...)
		}
		if len(v.OrElse) > 0 {
			lines = append(lines, p.i()+"else:")
			lines = append(lines, p.block(v.OrElse)...)
		}
		if len(v.Finally) > 0 {
			lines = append(lines, p.i()+"finally:")
			lines = append(lines, p.block(v.Finally)...)
		}
		return strings.Join(lines, "\n")
	case ir.Yield:
		lines := p.prelude(v.Prelude)
		val := "None"
		if v.Value != nil {
			val = exprString(v.Value)
		}
		lines = append(lines, fmt.Sprintf("%syield %s [state_id=%d]", p.i(), val, v.StateID))
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%s# unknown stmt: %T", p.i(), s)
	}
}

func instrString(in ir.Instr) string {
	switch v := in.(type) {
	case ir.ListNew:
		return fmt.Sprintf("%s = ListNew([%s])", v.Result.Name, exprListString(v.Items))
	case ir.TupleNew:
		return fmt.Sprintf("%s = TupleNew((%s))", v.Result.Name, exprListString(v.Items))
	case ir.SetNew:
		return fmt.Sprintf("%s = SetNew({%s})", v.Result.Name, exprListString(v.Items))
	case ir.DictNew:
		var parts []string
		for _, e := range v.Entries {
			parts = append(parts, fmt.Sprintf("%s: %s", exprString(e.Key), exprString(e.Value)))
		}
		return fmt.Sprintf("%s = DictNew({%s})", v.Result.Name, strings.Join(parts, ", "))
	case ir.GetItem:
		return fmt.Sprintf("%s = %s[%s]", v.Result.Name, exprString(v.Container), exprString(v.Key))
	case ir.SetItem:
		return fmt.Sprintf("%s[%s] = %s", exprString(v.Container), exprString(v.Key), exprString(v.Value))
	case ir.FastGetItem:
		return fmt.Sprintf("%s = ListGetFast(%s, %s)", v.Result.Name, exprString(v.List), exprString(v.Index))
	case ir.MethodCall:
		call := fmt.Sprintf("%s.%s(%s)", exprString(v.Receiver), v.Name, exprListString(v.Args))
		if v.Result != nil {
			return fmt.Sprintf("%s = %s", v.Result.Name, call)
		}
		return call
	case ir.Box:
		return fmt.Sprintf("%s = Box(%s)", v.Result.Name, exprString(v.Value))
	case ir.Unbox:
		return fmt.Sprintf("%s = Unbox(%s, %s)", v.Result.Name, exprString(v.Value), v.Target)
	case ir.AttrLoad:
		return fmt.Sprintf("%s = %s.%s", v.Result.Name, exprString(v.Obj), v.Attr)
	case ir.AttrLoadDyn:
		return fmt.Sprintf("%s = %s.%s [dyn]", v.Result.Name, exprString(v.Obj), v.Attr)
	case ir.ListComp:
		src := ""
		if v.IsRange {
			start := "0"
			if v.RangeStart != nil {
				start = exprString(v.RangeStart)
			}
			step := "1"
			if v.RangeStep != nil {
				step = exprString(v.RangeStep)
			}
			src = fmt.Sprintf("range(%s, %s, %s)", start, exprString(v.RangeEnd), step)
		} else {
			src = exprString(v.Iterable)
		}
		filter := ""
		if v.Condition != nil {
			filter = " if " + exprString(v.Condition)
		}
		return fmt.Sprintf("%s = [%s for %s in %s%s]",
			v.Result.Name, exprString(v.Element), v.CLoopVar, src, filter)
	default:
		return fmt.Sprintf("# unknown instr: %T", in)
	}
}

func exprListString(exprs []ir.Expr) string {
	var parts []string
	for _, e := range exprs {
		parts = append(parts, exprString(e))
	}
	return strings.Join(parts, ", ")
}

func exprString(e ir.Expr) string {
	switch v := e.(type) {
	case ir.Const:
		return literalString(v.Value)
	case ir.Name:
		return v.Py
	case ir.Temp:
		return v.Name
	case ir.Binary:
		return fmt.Sprintf("(%s %s %s)", exprString(v.Left), pyBinOp(v.Op), exprString(v.Right))
	case ir.Unary:
		if v.Op == ir.UnaryNot {
			return fmt.Sprintf("(not %s)", exprString(v.Operand))
		}
		return fmt.Sprintf("(%s%s)", pyUnaryOp(v.Op), exprString(v.Operand))
	case ir.Compare:
		parts := []string{exprString(v.Left)}
		for i, op := range v.Ops {
			parts = append(parts, pyCmpOp(op), exprString(v.Comparators[i]))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case ir.BoolChain:
		op := " and "
		if v.Op == ir.BoolOr {
			op = " or "
		}
		var parts []string
		for _, val := range v.Values {
			parts = append(parts, exprString(val))
		}
		return "(" + strings.Join(parts, op) + ")"
	case ir.SelfAttr:
		return "self." + v.Path
	case ir.ParamAttr:
		return fmt.Sprintf("%s.%s", v.CParam, v.Attr)
	case ir.Subscript:
		return fmt.Sprintf("%s[%s]", exprString(v.Value), exprString(v.Index))
	case ir.Call:
		return fmt.Sprintf("%s(%s)", v.Target, exprListString(v.Args))
	case ir.IfExpr:
		return fmt.Sprintf("(%s if %s else %s)", exprString(v.Then), exprString(v.Cond), exprString(v.Else))
	case ir.SelfRef:
		return "self"
	case ir.CtorCall:
		return fmt.Sprintf("%s(%s)", v.ClassC, exprListString(v.Args))
	case ir.SuperCall:
		return fmt.Sprintf("super().%s(%s)", v.MethodC, exprListString(v.Args))
	case ir.Builtin:
		return fmt.Sprintf("%s(%s)", v.Name, exprListString(v.Args))
	case ir.NCall:
		return fmt.Sprintf("%s.%s(%s)", exprString(v.Recv), v.Target, exprListString(v.Args))
	case ir.VCall:
		return fmt.Sprintf("%s.%s(%s) [virtual]", exprString(v.Recv), v.Method, exprListString(v.Args))
	case ir.FFICall:
		return fmt.Sprintf("%s.%s(%s)", v.Alias, v.Member, exprListString(v.Args))
	case ir.RTupleNew:
		return fmt.Sprintf("(%s)", exprListString(v.Items))
	case ir.RTupleField:
		return fmt.Sprintf("%s.f%d", v.CName, v.Index)
	default:
		return fmt.Sprintf("<%T>", e)
	}
}
