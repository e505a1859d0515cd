package irdump

import (
	"fmt"

	"github.com/roach88/pyrite/internal/ir"
)

// node is the ordered generic document the tree and json renderers
// consume. Field order follows declaration order in the IR types, which
// keeps both outputs deterministic.
type node struct {
	typeName string
	fields   []field
}

// field holds one named child. value is a *node, a []any of *node or
// scalars, or a scalar (string, int64, float64, bool, nil).
type field struct {
	name  string
	value any
}

func (n *node) add(name string, value any) {
	n.fields = append(n.fields, field{name: name, value: value})
}

func newNode(typeName string) *node {
	return &node{typeName: typeName}
}

func visitModule(m *ir.ModuleIR) *node {
	n := newNode("Module")
	n.add("name", m.Name)
	n.add("c_name", m.CName)

	var fns []any
	for _, name := range m.FunctionOrder {
		fns = append(fns, visitFunc(m.Functions[name]))
	}
	if len(fns) > 0 {
		n.add("functions", fns)
	}

	var classes []any
	for _, name := range m.ClassOrder {
		classes = append(classes, visitClass(m.Classes[name]))
	}
	if len(classes) > 0 {
		n.add("classes", classes)
	}

	var ffi []any
	for _, b := range m.FFIBindings {
		f := newNode("FFIBinding")
		f.add("alias", b.Alias)
		f.add("member", b.Member)
		f.add("n_args", int64(b.NArgs))
		ffi = append(ffi, f)
	}
	if len(ffi) > 0 {
		n.add("ffi_bindings", ffi)
	}
	return n
}

func visitFunc(f *ir.FuncIR) *node {
	n := newNode("FuncIR")
	n.add("name", f.Name)
	n.add("c_name", f.CName)
	n.add("params", visitParams(f.Params))
	n.add("return", f.RetKind.String())
	if f.StarArgs {
		n.add("star_args", true)
	}
	if f.StarKwargs {
		n.add("star_kwargs", true)
	}
	if f.IsGenerator {
		n.add("generator", true)
		n.add("yield_states", int64(f.YieldStates))
	}
	n.add("max_temp", int64(f.MaxTemp))
	if len(f.Locals) > 0 {
		var locals []any
		for _, l := range f.Locals {
			ln := newNode("Local")
			ln.add("name", l.Name)
			if l.RT != nil {
				ln.add("type", l.RT.StructName())
			} else {
				ln.add("type", l.Kind.String())
			}
			locals = append(locals, ln)
		}
		n.add("locals", locals)
	}
	if len(f.UsedRTuples) > 0 {
		var rts []any
		for _, rt := range f.UsedRTuples {
			rts = append(rts, rt.StructName())
		}
		n.add("rtuples", rts)
	}
	n.add("body", visitStmts(f.Body))
	return n
}

func visitClass(c *ir.ClassIR) *node {
	n := newNode("ClassIR")
	n.add("name", c.Name)
	n.add("c_name", c.CName)
	if c.BaseName != "" {
		n.add("base", c.BaseName)
	}
	if c.IsDataclass {
		dc := newNode("Dataclass")
		dc.add("eq", c.Dataclass.Eq)
		dc.add("repr", c.Dataclass.Repr)
		dc.add("frozen", c.Dataclass.Frozen)
		n.add("dataclass", dc)
	}
	if c.IsFinal {
		n.add("final", true)
	}
	if len(c.Fields) > 0 {
		var fields []any
		for i := range c.Fields {
			fields = append(fields, visitField(&c.Fields[i]))
		}
		n.add("fields", fields)
	}
	var methods []any
	for _, name := range c.MethodOrder {
		methods = append(methods, visitMethod(c.Methods[name]))
	}
	if len(methods) > 0 {
		n.add("methods", methods)
	}
	if len(c.VTable) > 0 {
		var slots []any
		for _, s := range c.VTable {
			sn := newNode("Slot")
			sn.add("name", s.Name)
			sn.add("impl", s.Impl.Name)
			slots = append(slots, sn)
		}
		n.add("vtable", slots)
	}
	return n
}

func visitField(f *ir.FieldIR) *node {
	n := newNode("FieldIR")
	n.add("name", f.Name)
	if f.Class != "" {
		n.add("type", f.Class)
	} else {
		n.add("type", f.Kind.String())
	}
	if f.Default != nil {
		n.add("default", literalString(f.Default))
	}
	if f.IsFinal {
		n.add("final", true)
		n.add("value", literalString(f.FinalValue))
	}
	return n
}

func visitMethod(m *ir.MethodIR) *node {
	n := newNode("MethodIR")
	n.add("name", m.Name)
	n.add("c_name", m.CName)
	n.add("params", visitParams(m.Params))
	n.add("return", m.RetKind.String())
	switch {
	case m.IsStatic:
		n.add("static", true)
	case m.IsClassMethod:
		n.add("classmethod", true)
	case m.IsProperty:
		n.add("property", true)
	case m.IsSetter:
		n.add("setter", true)
	}
	if m.IsVirtual {
		n.add("virtual", true)
	}
	if m.IsPrivate {
		n.add("private", true)
	}
	n.add("max_temp", int64(m.MaxTemp))
	n.add("body", visitStmts(m.Body))
	return n
}

func visitParams(params []ir.Param) []any {
	var out []any
	for _, p := range params {
		n := newNode("Param")
		n.add("name", p.Name)
		if p.Class != "" {
			n.add("type", p.Class)
		} else {
			n.add("type", p.Kind.String())
		}
		if p.Default != nil {
			n.add("default", literalString(p.Default))
		}
		out = append(out, n)
	}
	return out
}

func visitStmts(body []ir.Stmt) []any {
	var out []any
	for _, s := range body {
		out = append(out, visitStmt(s))
	}
	return out
}

func visitStmt(s ir.Stmt) *node {
	switch v := s.(type) {
	case ir.Assign:
		n := newNode("Assign")
		addPrelude(n, v.Prelude)
		n.add("target", v.CTarget)
		if v.Declare {
			n.add("declare", true)
		}
		if v.RT != nil {
			n.add("type", v.RT.StructName())
		} else {
			n.add("type", v.Kind.String())
		}
		n.add("value", visitExpr(v.Value))
		return n
	case ir.AugAssign:
		n := newNode("AugAssign")
		addPrelude(n, v.Prelude)
		n.add("target", v.CTarget)
		n.add("op", pyBinOp(v.Op))
		n.add("value", visitExpr(v.Value))
		return n
	case ir.AttrAssign:
		n := newNode("AttrAssign")
		addPrelude(n, v.Prelude)
		n.add("target", visitExpr(v.Target))
		n.add("value", visitExpr(v.Value))
		return n
	case ir.ExprStmt:
		n := newNode("ExprStmt")
		addPrelude(n, v.Prelude)
		if v.Value != nil {
			n.add("value", visitExpr(v.Value))
		}
		return n
	case ir.Print:
		n := newNode("Print")
		addPrelude(n, v.Prelude)
		n.add("args", visitExprs(v.Args))
		return n
	case ir.Return:
		n := newNode("Return")
		addPrelude(n, v.Prelude)
		if v.Value != nil {
			n.add("value", visitExpr(v.Value))
		}
		return n
	case ir.If:
		n := newNode("If")
		addPrelude(n, v.Prelude)
		n.add("cond", visitExpr(v.Cond))
		n.add("then", visitStmts(v.Then))
		if len(v.Else) > 0 {
			n.add("else", visitStmts(v.Else))
		}
		return n
	case ir.While:
		n := newNode("While")
		addPrelude(n, v.Prelude)
		n.add("cond", visitExpr(v.Cond))
		n.add("body", visitStmts(v.Body))
		return n
	case ir.ForRange:
		n := newNode("ForRange")
		addPrelude(n, v.Prelude)
		n.add("var", v.CLoopVar)
		if v.Start != nil {
			n.add("start", visitExpr(v.Start))
		}
		n.add("end", visitExpr(v.End))
		if v.Step != nil {
			n.add("step", visitExpr(v.Step))
		}
		n.add("body", visitStmts(v.Body))
		return n
	case ir.ForIter:
		n := newNode("ForIter")
		addPrelude(n, v.IterPrelude)
		n.add("var", v.CLoopVar)
		n.add("iterable", visitExpr(v.Iterable))
		n.add("body", visitStmts(v.Body))
		return n
	case ir.Break:
		return newNode("Break")
	case ir.Continue:
		return newNode("Continue")
	case ir.Pass:
		return newNode("Pass")
	case ir.Raise:
		n := newNode("Raise")
		addPrelude(n, v.Prelude)
		n.add("type", v.TypeC)
		if v.HasMsg {
			n.add("msg", v.Msg)
		}
		return n
	case ir.Try:
		n := newNode("Try")
		n.add("body", visitStmts(v.Body))
		var handlers []any
		for _, h := range v.Handlers {
			hn := newNode("ExceptHandler")
			if h.TypeC != "" {
				hn.add("type", h.TypeC)
			}
			if h.Name != "" {
				hn.add("as", h.Name)
			}
			hn.add("body", visitStmts(h.Body))
			handlers = append(handlers, hn)
		}
		if len(handlers) > 0 {
			n.add("handlers", handlers)
		}
		if len(v.OrElse) > 0 {
			n.add("orelse", visitStmts(v.OrElse))
		}
		if len(v.Finally) > 0 {
			n.add("finally", visitStmts(v.Finally))
		}
		return n
	case ir.Yield:
		n := newNode("Yield")
		addPrelude(n, v.Prelude)
		if v.Value != nil {
			n.add("value", visitExpr(v.Value))
		}
		n.add("state_id", int64(v.StateID))
		return n
	default:
		return newNode(fmt.Sprintf("unknown(%T)", s))
	}
}

func addPrelude(n *node, pre []ir.Instr) {
	if len(pre) == 0 {
		return
	}
	var out []any
	for _, in := range pre {
		out = append(out, visitInstr(in))
	}
	n.add("prelude", out)
}

func visitInstr(in ir.Instr) *node {
	switch v := in.(type) {
	case ir.ListNew:
		n := newNode("ListNew")
		n.add("result", v.Result.Name)
		n.add("items", visitExprs(v.Items))
		return n
	case ir.TupleNew:
		n := newNode("TupleNew")
		n.add("result", v.Result.Name)
		n.add("items", visitExprs(v.Items))
		return n
	case ir.SetNew:
		n := newNode("SetNew")
		n.add("result", v.Result.Name)
		n.add("items", visitExprs(v.Items))
		return n
	case ir.DictNew:
		n := newNode("DictNew")
		n.add("result", v.Result.Name)
		var entries []any
		for _, e := range v.Entries {
			en := newNode("Entry")
			en.add("key", visitExpr(e.Key))
			en.add("value", visitExpr(e.Value))
			entries = append(entries, en)
		}
		if len(entries) > 0 {
			n.add("entries", entries)
		}
		return n
	case ir.GetItem:
		n := newNode("GetItem")
		n.add("result", v.Result.Name)
		n.add("container", visitExpr(v.Container))
		n.add("key", visitExpr(v.Key))
		return n
	case ir.SetItem:
		n := newNode("SetItem")
		n.add("container", visitExpr(v.Container))
		n.add("key", visitExpr(v.Key))
		n.add("value", visitExpr(v.Value))
		return n
	case ir.FastGetItem:
		n := newNode("FastGetItem")
		n.add("result", v.Result.Name)
		n.add("list", visitExpr(v.List))
		n.add("index", visitExpr(v.Index))
		if v.IndexNeg {
			n.add("negative", true)
		}
		if v.Signed {
			n.add("signed", true)
		}
		return n
	case ir.MethodCall:
		n := newNode("MethodCall")
		if v.Result != nil {
			n.add("result", v.Result.Name)
		}
		n.add("receiver", visitExpr(v.Receiver))
		n.add("method", v.Name)
		n.add("args", visitExprs(v.Args))
		return n
	case ir.Box:
		n := newNode("Box")
		n.add("result", v.Result.Name)
		n.add("value", visitExpr(v.Value))
		return n
	case ir.Unbox:
		n := newNode("Unbox")
		n.add("result", v.Result.Name)
		n.add("value", visitExpr(v.Value))
		n.add("target", v.Target.String())
		return n
	case ir.AttrLoad:
		n := newNode("AttrLoad")
		n.add("result", v.Result.Name)
		n.add("obj", visitExpr(v.Obj))
		n.add("attr", v.Attr)
		return n
	case ir.AttrLoadDyn:
		n := newNode("AttrLoadDyn")
		n.add("result", v.Result.Name)
		n.add("obj", visitExpr(v.Obj))
		n.add("attr", v.Attr)
		return n
	case ir.ListComp:
		n := newNode("ListComp")
		n.add("result", v.Result.Name)
		n.add("var", v.CLoopVar)
		if v.IsRange {
			if v.RangeStart != nil {
				n.add("start", visitExpr(v.RangeStart))
			}
			n.add("end", visitExpr(v.RangeEnd))
			if v.RangeStep != nil {
				n.add("step", visitExpr(v.RangeStep))
			}
		} else {
			n.add("iterable", visitExpr(v.Iterable))
		}
		n.add("element", visitExpr(v.Element))
		if v.Condition != nil {
			n.add("condition", visitExpr(v.Condition))
		}
		return n
	default:
		return newNode(fmt.Sprintf("unknown(%T)", in))
	}
}

func visitExprs(exprs []ir.Expr) []any {
	var out []any
	for _, e := range exprs {
		out = append(out, visitExpr(e))
	}
	return out
}

func visitExpr(e ir.Expr) *node {
	switch v := e.(type) {
	case ir.Const:
		n := newNode("Const")
		n.add("value", literalString(v.Value))
		return n
	case ir.Name:
		n := newNode("Name")
		n.add("name", v.Py)
		n.add("kind", v.Kind.String())
		return n
	case ir.Temp:
		n := newNode("Temp")
		n.add("name", v.Name)
		n.add("kind", v.Kind.String())
		return n
	case ir.Binary:
		n := newNode("Binary")
		n.add("op", pyBinOp(v.Op))
		n.add("left", visitExpr(v.Left))
		n.add("right", visitExpr(v.Right))
		n.add("kind", v.Kind.String())
		return n
	case ir.Unary:
		n := newNode("Unary")
		n.add("op", pyUnaryOp(v.Op))
		n.add("operand", visitExpr(v.Operand))
		return n
	case ir.Compare:
		n := newNode("Compare")
		n.add("left", visitExpr(v.Left))
		var ops []any
		for _, op := range v.Ops {
			ops = append(ops, pyCmpOp(op))
		}
		n.add("ops", ops)
		n.add("comparators", visitExprs(v.Comparators))
		return n
	case ir.BoolChain:
		n := newNode("BoolChain")
		if v.Op == ir.BoolAnd {
			n.add("op", "and")
		} else {
			n.add("op", "or")
		}
		n.add("values", visitExprs(v.Values))
		return n
	case ir.SelfAttr:
		n := newNode("SelfAttr")
		n.add("path", v.Path)
		n.add("kind", v.Kind.String())
		return n
	case ir.ParamAttr:
		n := newNode("ParamAttr")
		n.add("param", v.CParam)
		n.add("attr", v.Attr)
		return n
	case ir.Subscript:
		n := newNode("Subscript")
		n.add("value", visitExpr(v.Value))
		n.add("index", visitExpr(v.Index))
		if v.IsRTuple {
			n.add("rtuple_index", int64(v.RTupleIndex))
		}
		return n
	case ir.Call:
		n := newNode("Call")
		n.add("target", v.Target)
		n.add("args", visitExprs(v.Args))
		if v.Boxed {
			n.add("boxed", true)
		}
		return n
	case ir.IfExpr:
		n := newNode("IfExpr")
		n.add("cond", visitExpr(v.Cond))
		n.add("then", visitExpr(v.Then))
		n.add("else", visitExpr(v.Else))
		return n
	case ir.SelfRef:
		return newNode("SelfRef")
	case ir.CtorCall:
		n := newNode("CtorCall")
		n.add("class", v.ClassC)
		n.add("args", visitExprs(v.Args))
		return n
	case ir.SuperCall:
		n := newNode("SuperCall")
		n.add("parent", v.ParentC)
		n.add("method", v.MethodC)
		n.add("args", visitExprs(v.Args))
		return n
	case ir.Builtin:
		n := newNode("Builtin")
		n.add("name", v.Name)
		n.add("args", visitExprs(v.Args))
		if v.ListFast {
			n.add("list_fast", true)
		}
		return n
	case ir.NCall:
		n := newNode("NCall")
		n.add("target", v.Target)
		n.add("receiver", visitExpr(v.Recv))
		n.add("args", visitExprs(v.Args))
		return n
	case ir.VCall:
		n := newNode("VCall")
		n.add("method", v.Method)
		n.add("receiver", visitExpr(v.Recv))
		n.add("args", visitExprs(v.Args))
		return n
	case ir.FFICall:
		n := newNode("FFICall")
		n.add("alias", v.Alias)
		n.add("member", v.Member)
		n.add("args", visitExprs(v.Args))
		return n
	case ir.RTupleNew:
		n := newNode("RTupleNew")
		n.add("type", v.Tuple.StructName())
		n.add("items", visitExprs(v.Items))
		return n
	case ir.RTupleField:
		n := newNode("RTupleField")
		n.add("name", v.CName)
		n.add("index", int64(v.Index))
		return n
	default:
		return newNode(fmt.Sprintf("unknown(%T)", e))
	}
}

func literalString(l ir.Literal) string {
	switch v := l.(type) {
	case ir.IntLit:
		return fmt.Sprintf("%d", int64(v))
	case ir.FloatLit:
		return fmt.Sprintf("%g", float64(v))
	case ir.BoolLit:
		if v {
			return "True"
		}
		return "False"
	case ir.StrLit:
		return fmt.Sprintf("%q", string(v))
	case ir.NoneLit:
		return "None"
	default:
		return "?"
	}
}

// pyBinOp prints operators with source-level spelling; the C tokens
// collapse floor and true division.
func pyBinOp(op ir.BinOp) string {
	switch op {
	case ir.OpTrueDiv:
		return "/"
	case ir.OpFloorDiv:
		return "//"
	default:
		return op.CToken()
	}
}

func pyCmpOp(op ir.CmpOp) string {
	switch op {
	case ir.CmpIn:
		return "in"
	case ir.CmpIs:
		return "is"
	default:
		return op.CToken()
	}
}

func pyUnaryOp(op ir.UnaryOp) string {
	if op == ir.UnaryNot {
		return "not"
	}
	return op.CToken()
}
