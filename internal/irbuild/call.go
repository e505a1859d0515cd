package irbuild

import (
	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/pysrc"
)

// builtinNames is the closed set of recognized builtins. Anything else
// spelled like a call to an undeclared name is a build error.
var builtinNames = map[string]bool{
	"len": true, "abs": true, "sum": true, "min": true, "max": true,
	"int": true, "float": true, "bool": true,
	"list": true, "tuple": true, "set": true, "dict": true,
}

func isRangeCall(e *pysrc.CallExpr) bool {
	name, ok := e.Func.(*pysrc.NameExpr)
	return ok && name.Name == "range"
}

func rangeStepArg(e *pysrc.CallExpr) pysrc.Expr {
	if len(e.Args) == 3 {
		return e.Args[2]
	}
	return nil
}

// buildRangeArgs lowers range(end) / range(start, end) / range(start,
// end, step) argument forms. step is nil for the implicit step of 1.
func (c *fnCtx) buildRangeArgs(e *pysrc.CallExpr) (start, end, step ir.Expr, pre []ir.Instr, err error) {
	if len(e.Kwargs) > 0 {
		return nil, nil, nil, nil, errorf(e.Pos, "range() does not take keyword arguments")
	}
	if len(e.Args) < 1 || len(e.Args) > 3 {
		return nil, nil, nil, nil, errorf(e.Pos, "range() takes 1 to 3 arguments")
	}
	build := func(arg pysrc.Expr) (ir.Expr, error) {
		expr, apre, err := c.buildExpr(arg)
		if err != nil {
			return nil, err
		}
		pre = append(pre, apre...)
		return expr, nil
	}
	switch len(e.Args) {
	case 1:
		if end, err = build(e.Args[0]); err != nil {
			return nil, nil, nil, nil, err
		}
	case 2:
		if start, err = build(e.Args[0]); err != nil {
			return nil, nil, nil, nil, err
		}
		if end, err = build(e.Args[1]); err != nil {
			return nil, nil, nil, nil, err
		}
	case 3:
		if start, err = build(e.Args[0]); err != nil {
			return nil, nil, nil, nil, err
		}
		if end, err = build(e.Args[1]); err != nil {
			return nil, nil, nil, nil, err
		}
		if step, err = build(e.Args[2]); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return start, end, step, pre, nil
}

func (c *fnCtx) buildCall(e *pysrc.CallExpr) (ir.Expr, []ir.Instr, error) {
	switch fn := e.Func.(type) {
	case *pysrc.NameExpr:
		return c.buildNameCall(e, fn)
	case *pysrc.AttrExpr:
		return c.buildAttrCall(e, fn)
	}
	return nil, nil, errorf(e.Pos, "expression is not callable")
}

func (c *fnCtx) buildNameCall(e *pysrc.CallExpr, fn *pysrc.NameExpr) (ir.Expr, []ir.Instr, error) {
	switch fn.Name {
	case "print":
		return nil, nil, errorf(e.Pos, "print is only supported as a statement")
	case "range":
		return nil, nil, errorf(e.Pos, "range() is only supported as a loop or comprehension iterable")
	case "super":
		return nil, nil, errorf(e.Pos, "super() is only valid as a method call receiver")
	}

	if cls, ok := c.b.module.Classes[fn.Name]; ok {
		return c.buildCtorCall(e, cls)
	}

	if builtinNames[fn.Name] {
		return c.buildBuiltin(e, fn.Name)
	}

	target, ok := c.b.module.Functions[fn.Name]
	if !ok {
		if _, isVar := c.vars[fn.Name]; isVar {
			return nil, nil, errorf(e.Pos, "local %q is not callable", fn.Name)
		}
		return nil, nil, errorf(e.Pos, "unknown function %q", fn.Name)
	}
	if len(e.Kwargs) > 0 {
		return nil, nil, errorf(e.Pos, "keyword arguments are only supported at the module boundary")
	}
	if target.StarArgs || target.StarKwargs {
		return nil, nil, errorf(e.Pos, "functions with star captures can only be called from interpreted code")
	}

	args, argKinds, pre, err := c.buildBoundArgs(e, target.Params, "function "+fn.Name)
	if err != nil {
		return nil, nil, err
	}
	kind := target.RetKind
	if target.IsGenerator {
		kind = ir.KindDynamic
	}
	hasDefaults := false
	for _, p := range target.Params {
		if p.Default != nil {
			hasDefaults = true
		}
	}
	return ir.Call{
		Target:   target.CName,
		Args:     args,
		ArgKinds: argKinds,
		Kind:     kind,
		Boxed:    true,
		VarArgs:  hasDefaults || len(target.Params) > 3,
	}, pre, nil
}

// buildBoundArgs checks arity against a parameter list, fills trailing
// defaults, and returns the callee-boundary kinds for box/unbox
// decisions at emission.
func (c *fnCtx) buildBoundArgs(e *pysrc.CallExpr, params []ir.Param, what string) ([]ir.Expr, []ir.Kind, []ir.Instr, error) {
	required := 0
	for _, p := range params {
		if p.Default == nil {
			required++
		}
	}
	if len(e.Args) < required || len(e.Args) > len(params) {
		if required == len(params) {
			return nil, nil, nil, errorf(e.Pos, "%s takes %d argument(s), got %d", what, len(params), len(e.Args))
		}
		return nil, nil, nil, errorf(e.Pos, "%s takes %d to %d argument(s), got %d", what, required, len(params), len(e.Args))
	}

	args, pre, err := c.buildItems(e.Args)
	if err != nil {
		return nil, nil, nil, err
	}
	argKinds := make([]ir.Kind, 0, len(params))
	for i, p := range params {
		if i >= len(args) {
			args = append(args, ir.Const{Value: p.Default})
		}
		argKinds = append(argKinds, p.Kind)
	}
	return args, argKinds, pre, nil
}

func (c *fnCtx) buildCtorCall(e *pysrc.CallExpr, cls *ir.ClassIR) (ir.Expr, []ir.Instr, error) {
	if len(e.Kwargs) > 0 {
		return nil, nil, errorf(e.Pos, "keyword arguments in constructor calls are not supported")
	}

	var params []ir.Param
	if cls.IsDataclass {
		for _, f := range cls.Fields {
			if f.IsFinal {
				continue
			}
			params = append(params, ir.Param{Name: f.Name, Kind: f.Kind, Default: f.Default})
		}
	} else if init, _, ok := cls.MethodLookup("__init__"); ok {
		params = init.Params
	}

	args, _, pre, err := c.buildBoundArgs(e, params, "class "+cls.Name)
	if err != nil {
		return nil, nil, err
	}
	return ir.CtorCall{ClassC: cls.CName, Args: args}, pre, nil
}

func (c *fnCtx) buildBuiltin(e *pysrc.CallExpr, name string) (ir.Expr, []ir.Instr, error) {
	if len(e.Kwargs) > 0 {
		return nil, nil, errorf(e.Pos, "%s() does not take keyword arguments", name)
	}
	args, pre, err := c.buildItems(e.Args)
	if err != nil {
		return nil, nil, err
	}
	arity := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			return errorf(e.Pos, "%s() takes %d to %d argument(s), got %d", name, lo, hi, len(args))
		}
		return nil
	}

	out := ir.Builtin{Name: name, Args: args}
	switch name {
	case "len":
		if err := arity(1, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindInt
		if v := c.listVarOf(e.Args[0]); v != nil {
			out.ListFast = true
			c.usesListOpt = true
		} else {
			c.usesBuiltins = true
		}
	case "abs":
		if err := arity(1, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindInt
		if k := args[0].ExprKind(); k == ir.KindFloat {
			out.Kind = ir.KindFloat
		}
		c.usesBuiltins = true
	case "sum":
		if err := arity(1, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindInt
		if v := c.listVarOf(e.Args[0]); v != nil {
			out.ListFast = true
			c.usesListOpt = true
			if v.t.listElem == ir.KindFloat {
				out.Kind = ir.KindFloat
			}
		} else {
			c.usesBuiltins = true
		}
	case "min", "max":
		if err := arity(2, 2); err != nil {
			return nil, nil, err
		}
		lk, rk := args[0].ExprKind(), args[1].ExprKind()
		switch {
		case lk == ir.KindFloat || rk == ir.KindFloat:
			out.Kind = ir.KindFloat
		case lk.Native() && rk.Native():
			out.Kind = ir.KindInt
		default:
			out.Kind = ir.KindDynamic
		}
		c.usesBuiltins = true
	case "int":
		if err := arity(1, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindInt
		c.usesBuiltins = true
	case "float":
		if err := arity(1, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindFloat
		c.usesBuiltins = true
	case "bool":
		if err := arity(1, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindBool
		c.usesBuiltins = true
	case "list", "tuple", "set", "dict":
		if err := arity(0, 1); err != nil {
			return nil, nil, err
		}
		out.Kind = ir.KindDynamic
		c.usesBuiltins = true
	}
	return out, pre, nil
}

// listVarOf returns the varInfo of a list-typed local reference, or nil.
func (c *fnCtx) listVarOf(e pysrc.Expr) *varInfo {
	name, ok := e.(*pysrc.NameExpr)
	if !ok {
		return nil
	}
	v, have := c.vars[name.Name]
	if !have || !v.t.isList {
		return nil
	}
	return v
}

func (c *fnCtx) buildAttrCall(e *pysrc.CallExpr, fn *pysrc.AttrExpr) (ir.Expr, []ir.Instr, error) {
	if len(e.Kwargs) > 0 {
		return nil, nil, errorf(e.Pos, "keyword arguments in method calls are not supported")
	}

	// super().method(...)
	if inner, ok := fn.Value.(*pysrc.CallExpr); ok {
		if name, ok := inner.Func.(*pysrc.NameExpr); ok && name.Name == "super" {
			return c.buildSuperCall(e, fn, inner)
		}
	}

	// alias.member(...) delegates to the extern binding surface.
	if recv, ok := fn.Value.(*pysrc.NameExpr); ok {
		if _, isAlias := c.b.aliases[recv.Name]; isAlias {
			args, pre, err := c.buildItems(e.Args)
			if err != nil {
				return nil, nil, err
			}
			c.b.module.AddFFIBinding(ir.FFIBinding{
				Alias:  recv.Name,
				Member: fn.Attr,
				NArgs:  len(args),
			})
			return ir.FFICall{Alias: recv.Name, Member: fn.Attr, Args: args}, pre, nil
		}
	}

	// Typed receiver: resolve the method statically.
	if cls, ok := c.staticClassOf(fn.Value); ok {
		if m, decl, found := cls.MethodLookup(fn.Attr); found {
			return c.buildTypedMethodCall(e, fn, cls, decl, m)
		}
		return nil, nil, errorf(e.Pos, "class %s has no method %q", cls.Name, fn.Attr)
	}

	// Dynamic receiver: container/string strategy table or the generic
	// load-method/call-method fallback.
	recv, pre, err := c.buildExpr(fn.Value)
	if err != nil {
		return nil, nil, err
	}
	args, apre, err := c.buildItems(e.Args)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, apre...)

	result := c.newTemp(ir.KindDynamic)
	pre = append(pre, ir.MethodCall{
		Result:   &result,
		Receiver: recv,
		Name:     fn.Attr,
		Op:       classifyMethodOp(fn.Attr),
		Args:     args,
	})
	return result, pre, nil
}

func (c *fnCtx) buildSuperCall(e *pysrc.CallExpr, fn *pysrc.AttrExpr, superExpr *pysrc.CallExpr) (ir.Expr, []ir.Instr, error) {
	if len(superExpr.Args) > 0 || len(superExpr.Kwargs) > 0 {
		return nil, nil, errorf(e.Pos, "super() takes no arguments")
	}
	if !c.hasSelf {
		return nil, nil, errorf(e.Pos, "super() is only valid inside instance methods")
	}
	if c.class.Base == nil {
		return nil, nil, errorf(e.Pos, "class %s has no base class", c.class.Name)
	}
	m, decl, found := c.class.Base.MethodLookup(fn.Attr)
	if !found {
		return nil, nil, errorf(e.Pos, "no ancestor of %s defines %q", c.class.Name, fn.Attr)
	}
	args, argKinds, pre, err := c.buildBoundArgs(e, m.Params, "method "+fn.Attr)
	if err != nil {
		return nil, nil, err
	}
	return ir.SuperCall{
		ParentC:  decl.CName,
		MethodC:  m.CName,
		IsInit:   fn.Attr == "__init__",
		Args:     args,
		ArgKinds: argKinds,
		Kind:     m.RetKind,
	}, pre, nil
}

func (c *fnCtx) buildTypedMethodCall(e *pysrc.CallExpr, fn *pysrc.AttrExpr, recvClass, declClass *ir.ClassIR, m *ir.MethodIR) (ir.Expr, []ir.Instr, error) {
	if m.IsPrivate && recvClass != c.class {
		return nil, nil, errorf(e.Pos, "method %q of class %s is private", fn.Attr, recvClass.Name)
	}
	if m.IsProperty || m.IsSetter {
		return nil, nil, errorf(e.Pos, "property %q is not callable", fn.Attr)
	}
	if m.IsStatic || m.IsClassMethod {
		args, argKinds, pre, err := c.buildBoundArgs(e, m.Params, "method "+fn.Attr)
		if err != nil {
			return nil, nil, err
		}
		return ir.Call{Target: m.CName + "_native", Args: args, ArgKinds: argKinds, Kind: m.RetKind}, pre, nil
	}

	recv, pre, err := c.buildExpr(fn.Value)
	if err != nil {
		return nil, nil, err
	}
	args, argKinds, apre, err := c.buildBoundArgs(e, m.Params, "method "+fn.Attr)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, apre...)

	// Self-calls and calls on sealed classes, final methods, or
	// non-virtual methods bind directly to the native entry. Everything
	// else dispatches through the vtable.
	_, selfRecv := recv.(ir.SelfRef)
	if selfRecv || recvClass.IsFinal || m.IsFinal || !m.IsVirtual {
		return ir.NCall{
			ClassC:   declClass.CName,
			Target:   m.CName + "_native",
			Recv:     recv,
			Args:     args,
			ArgKinds: argKinds,
			Kind:     m.RetKind,
		}, pre, nil
	}
	return ir.VCall{
		ClassC:     recvClass.CName,
		RootC:      recvClass.Root().CName,
		VtablePath: recvClass.VTablePath(),
		Method:     fn.Attr,
		Recv:       recv,
		Args:       args,
		ArgKinds:   argKinds,
		Kind:       m.RetKind,
	}, pre, nil
}

// classifyMethodOp maps a method name onto its lowering strategy.
// Supporting a new container/string method means adding its name here.
func classifyMethodOp(name string) ir.MethodOp {
	switch name {
	case "append":
		return ir.MethodAppend
	case "pop":
		return ir.MethodPop
	case "get":
		return ir.MethodDictGet
	case "setdefault":
		return ir.MethodSetDefault
	case "update":
		return ir.MethodUpdate
	case "add":
		return ir.MethodSetAdd
	case "clear", "keys", "values", "items", "copy", "sort", "reverse",
		"upper", "lower", "strip", "lstrip", "rstrip", "title", "capitalize":
		return ir.MethodZeroArg
	case "extend", "remove", "count", "index", "discard", "join", "split",
		"startswith", "endswith", "find":
		return ir.MethodOneArg
	case "insert", "replace":
		return ir.MethodTwoArg
	default:
		return ir.MethodGeneric
	}
}
