package irbuild

import (
	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/pysrc"
)

var augOps = map[pysrc.TokenType]ir.BinOp{
	pysrc.TokenPlusEq:        ir.OpAdd,
	pysrc.TokenMinusEq:       ir.OpSub,
	pysrc.TokenStarEq:        ir.OpMul,
	pysrc.TokenSlashEq:       ir.OpTrueDiv,
	pysrc.TokenDoubleSlashEq: ir.OpFloorDiv,
	pysrc.TokenPercentEq:     ir.OpMod,
}

// mpExceptionTypes maps source exception names onto runtime type symbols.
var mpExceptionTypes = map[string]string{
	"Exception":           "mp_type_Exception",
	"ValueError":          "mp_type_ValueError",
	"TypeError":           "mp_type_TypeError",
	"KeyError":            "mp_type_KeyError",
	"IndexError":          "mp_type_IndexError",
	"ZeroDivisionError":   "mp_type_ZeroDivisionError",
	"RuntimeError":        "mp_type_RuntimeError",
	"StopIteration":       "mp_type_StopIteration",
	"OSError":             "mp_type_OSError",
	"AttributeError":      "mp_type_AttributeError",
	"NotImplementedError": "mp_type_NotImplementedError",
	"OverflowError":       "mp_type_OverflowError",
}

func (c *fnCtx) buildStmts(stmts []pysrc.Stmt) ([]ir.Stmt, error) {
	var out []ir.Stmt
	for _, s := range stmts {
		built, err := c.buildStmt(s)
		if err != nil {
			return nil, err
		}
		if built != nil {
			out = append(out, built)
		}
	}
	return out, nil
}

func (c *fnCtx) buildStmt(s pysrc.Stmt) (ir.Stmt, error) {
	switch s := s.(type) {
	case *pysrc.ExprStmtNode:
		return c.buildExprStmt(s)
	case *pysrc.AssignStmt:
		return c.buildAssign(s)
	case *pysrc.AnnAssignStmt:
		return c.buildAnnAssign(s)
	case *pysrc.AugAssignStmt:
		return c.buildAugAssign(s)
	case *pysrc.ReturnStmt:
		return c.buildReturn(s)
	case *pysrc.IfStmt:
		return c.buildIf(s)
	case *pysrc.WhileStmt:
		return c.buildWhile(s)
	case *pysrc.ForStmt:
		return c.buildFor(s)
	case *pysrc.TryStmt:
		return c.buildTry(s)
	case *pysrc.RaiseStmt:
		return c.buildRaise(s)
	case *pysrc.YieldStmt:
		return c.buildYield(s)
	case *pysrc.BreakStmt:
		if c.loops == 0 {
			return nil, errorf(s.Pos, "break outside loop")
		}
		return ir.Break{}, nil
	case *pysrc.ContinueStmt:
		if c.loops == 0 {
			return nil, errorf(s.Pos, "continue outside loop")
		}
		return ir.Continue{}, nil
	case *pysrc.PassStmt:
		return ir.Pass{}, nil
	case *pysrc.FuncDef:
		return nil, errorf(s.Pos, "nested function definitions are not supported")
	case *pysrc.ClassDef:
		return nil, errorf(s.Pos, "class definitions inside functions are not supported")
	case *pysrc.ImportStmt:
		return nil, errorf(s.Pos, "imports are only allowed at module level")
	}
	return nil, errorf(s.Position(), "unsupported statement")
}

func (c *fnCtx) buildExprStmt(s *pysrc.ExprStmtNode) (ir.Stmt, error) {
	if _, ok := s.Value.(*pysrc.StrExpr); ok {
		return nil, nil // docstring
	}
	if call, ok := s.Value.(*pysrc.CallExpr); ok {
		if name, ok := call.Func.(*pysrc.NameExpr); ok && name.Name == "print" {
			return c.buildPrint(call)
		}
	}
	value, pre, err := c.buildExpr(s.Value)
	if err != nil {
		return nil, err
	}
	// A discarded method-call result needs no temp at all.
	if t, ok := value.(ir.Temp); ok && len(pre) > 0 {
		if mc, ok := pre[len(pre)-1].(ir.MethodCall); ok && mc.Result != nil && mc.Result.Name == t.Name {
			mc.Result = nil
			pre[len(pre)-1] = mc
			return ir.ExprStmt{Prelude: pre}, nil
		}
	}
	return ir.ExprStmt{Prelude: pre, Value: value}, nil
}

func (c *fnCtx) buildPrint(call *pysrc.CallExpr) (ir.Stmt, error) {
	if len(call.Kwargs) > 0 {
		return nil, errorf(call.Pos, "print() keyword arguments are not supported")
	}
	args, pre, err := c.buildItems(call.Args)
	if err != nil {
		return nil, err
	}
	c.usesPrint = true
	return ir.Print{Prelude: pre, Args: args}, nil
}

// valueStatic derives the tracked type of an assignment's right-hand
// side beyond its kind: class identity and list-ness propagate through
// plain copies and constructor calls.
func (c *fnCtx) valueStatic(src pysrc.Expr, value ir.Expr) staticType {
	if v, ok := value.(ir.CtorCall); ok {
		for name, cls := range c.b.module.Classes {
			if cls.CName == v.ClassC {
				return staticType{kind: ir.KindDynamic, class: name}
			}
		}
	}
	if name, ok := src.(*pysrc.NameExpr); ok {
		if info, have := c.vars[name.Name]; have {
			return info.t
		}
	}
	t := staticType{kind: value.ExprKind()}
	switch src := src.(type) {
	case *pysrc.ListExpr:
		t.isList = true
		t.listElem = displayElemKind(src.Items)
	case *pysrc.ListCompExpr:
		t.isList = true
		t.listElem = ir.KindDynamic
	case *pysrc.CallExpr:
		if name, ok := src.Func.(*pysrc.NameExpr); ok && name.Name == "list" {
			t.isList = true
			t.listElem = ir.KindDynamic
		}
	}
	return t
}

func displayElemKind(items []pysrc.Expr) ir.Kind {
	kind := ir.KindDynamic
	for i, item := range items {
		var k ir.Kind
		switch item.(type) {
		case *pysrc.IntExpr, *pysrc.BoolExpr:
			k = ir.KindInt
		case *pysrc.FloatExpr:
			k = ir.KindFloat
		default:
			return ir.KindDynamic
		}
		if i == 0 {
			kind = k
		} else if kind != k {
			return ir.KindDynamic
		}
	}
	return kind
}

func (c *fnCtx) buildAssign(s *pysrc.AssignStmt) (ir.Stmt, error) {
	switch target := s.Target.(type) {
	case *pysrc.NameExpr:
		return c.buildNameAssign(s, target)
	case *pysrc.AttrExpr:
		return c.buildAttrAssign(s.Pos, target, s.Value)
	case *pysrc.SubscriptExpr:
		return c.buildItemAssign(s, target)
	case *pysrc.TupleExpr:
		return nil, errorf(s.Pos, "tuple unpacking is not supported")
	}
	return nil, errorf(s.Pos, "cannot assign to this expression")
}

func (c *fnCtx) buildNameAssign(s *pysrc.AssignStmt, target *pysrc.NameExpr) (ir.Stmt, error) {
	if target.Name == "self" {
		return nil, errorf(s.Pos, "cannot assign to self")
	}

	if v, exists := c.vars[target.Name]; exists {
		if v.t.rt != nil {
			return c.buildRTupleAssign(s.Pos, v, s.Value, false)
		}
		value, pre, err := c.buildExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return ir.Assign{Prelude: pre, CTarget: v.cName, Value: value, Kind: v.t.kind}, nil
	}

	// First assignment declares the local. The oracle's view of the
	// variable wins over inference from the right-hand side.
	if t, ok := c.localType(target.Name); ok {
		v := c.declareLocal(target.Name, t)
		if t.rt != nil {
			return c.buildRTupleAssign(s.Pos, v, s.Value, true)
		}
		value, pre, err := c.buildExpr(s.Value)
		if err != nil {
			return nil, err
		}
		return ir.Assign{Prelude: pre, CTarget: v.cName, Value: value, Kind: t.kind, Declare: true}, nil
	}

	value, pre, err := c.buildExpr(s.Value)
	if err != nil {
		return nil, err
	}
	t := c.valueStatic(s.Value, value)
	t.rt = nil // flat tuples require an annotation or oracle entry
	v := c.declareLocal(target.Name, t)
	return ir.Assign{Prelude: pre, CTarget: v.cName, Value: value, Kind: t.kind, Declare: true}, nil
}

func (c *fnCtx) buildRTupleAssign(pos pysrc.Position, v *varInfo, value pysrc.Expr, declare bool) (ir.Stmt, error) {
	display, ok := value.(*pysrc.TupleExpr)
	if !ok {
		return nil, errorf(pos, "flat tuple locals must be assigned a tuple display")
	}
	if len(display.Items) != len(v.t.rt.Elems) {
		return nil, errorf(pos, "tuple display has %d element(s), annotation expects %d", len(display.Items), len(v.t.rt.Elems))
	}
	items, pre, err := c.buildItems(display.Items)
	if err != nil {
		return nil, err
	}
	c.rtuples[v.t.rt.Key()] = *v.t.rt
	return ir.Assign{
		Prelude: pre,
		CTarget: v.cName,
		Value:   ir.RTupleNew{Tuple: *v.t.rt, Items: items},
		Kind:    ir.KindDynamic,
		Declare: declare,
		RT:      v.t.rt,
	}, nil
}

func (c *fnCtx) buildAttrAssign(pos pysrc.Position, target *pysrc.AttrExpr, valueExpr pysrc.Expr) (ir.Stmt, error) {
	value, pre, err := c.buildExpr(valueExpr)
	if err != nil {
		return nil, err
	}

	if recv, ok := target.Value.(*pysrc.NameExpr); ok && recv.Name == "self" && c.hasSelf {
		path, field, found := c.class.FieldPath(target.Attr)
		if !found {
			return nil, errorf(pos, "class %s has no field %q", c.class.Name, target.Attr)
		}
		if field.IsFinal {
			return nil, errorf(pos, "cannot assign to final field %q", target.Attr)
		}
		if c.class.IsDataclass && c.class.Dataclass.Frozen {
			return nil, errorf(pos, "cannot assign to field of frozen dataclass %s", c.class.Name)
		}
		return ir.AttrAssign{
			Prelude: pre,
			Target:  ir.SelfAttr{Path: path, Kind: fieldKind(field)},
			Value:   value,
		}, nil
	}

	if cls, ok := c.staticClassOf(target.Value); ok {
		recv, isName := target.Value.(*pysrc.NameExpr)
		if !isName {
			return nil, errorf(pos, "chained attribute targets are not supported")
		}
		v, have := c.vars[recv.Name]
		if !have {
			return nil, errorf(pos, "undefined name %q", recv.Name)
		}
		path, field, found := cls.FieldPath(target.Attr)
		if !found {
			return nil, errorf(pos, "class %s has no field %q", cls.Name, target.Attr)
		}
		if field.IsFinal {
			return nil, errorf(pos, "cannot assign to final field %q", target.Attr)
		}
		if isPrivateName(target.Attr) && cls != c.class {
			return nil, errorf(pos, "field %q of class %s is private", target.Attr, cls.Name)
		}
		if cls.IsDataclass && cls.Dataclass.Frozen {
			return nil, errorf(pos, "cannot assign to field of frozen dataclass %s", cls.Name)
		}
		return ir.AttrAssign{
			Prelude: pre,
			Target: ir.ParamAttr{
				ClassC: cls.CName,
				CParam: v.cName,
				Attr:   path,
				Kind:   fieldKind(field),
			},
			Value: value,
		}, nil
	}
	return nil, errorf(pos, "cannot assign to an attribute of an untyped value")
}

func (c *fnCtx) buildItemAssign(s *pysrc.AssignStmt, target *pysrc.SubscriptExpr) (ir.Stmt, error) {
	if recv, ok := target.Value.(*pysrc.NameExpr); ok {
		if v, have := c.vars[recv.Name]; have && v.t.rt != nil {
			return nil, errorf(s.Pos, "tuples do not support item assignment")
		}
	}
	container, pre, err := c.buildExpr(target.Value)
	if err != nil {
		return nil, err
	}
	key, kpre, err := c.buildExpr(target.Index)
	if err != nil {
		return nil, err
	}
	value, vpre, err := c.buildExpr(s.Value)
	if err != nil {
		return nil, err
	}
	pre = append(pre, kpre...)
	pre = append(pre, vpre...)
	pre = append(pre, ir.SetItem{Container: container, Key: key, Value: value})
	return ir.ExprStmt{Prelude: pre}, nil
}

func (c *fnCtx) buildAnnAssign(s *pysrc.AnnAssignStmt) (ir.Stmt, error) {
	target, ok := s.Target.(*pysrc.NameExpr)
	if !ok {
		return nil, errorf(s.Pos, "annotated assignment requires a plain name target")
	}
	if s.Value == nil {
		return nil, errorf(s.Pos, "a local annotation requires a value")
	}
	if _, exists := c.vars[target.Name]; exists {
		return nil, errorf(s.Pos, "variable %q is already declared", target.Name)
	}

	oracleType, haveOracle := "", false
	if c.b.report != nil {
		oracleType, haveOracle = c.b.report.LookupLocal(c.className(), c.fnName, target.Name)
	}
	t := c.b.resolveAnnotated(&s.Annotation, oracleType, haveOracle)
	v := c.declareLocal(target.Name, t)

	if t.rt != nil {
		return c.buildRTupleAssign(s.Pos, v, s.Value, true)
	}
	value, pre, err := c.buildExpr(s.Value)
	if err != nil {
		return nil, err
	}
	return ir.Assign{Prelude: pre, CTarget: v.cName, Value: value, Kind: t.kind, Declare: true}, nil
}

func (c *fnCtx) buildAugAssign(s *pysrc.AugAssignStmt) (ir.Stmt, error) {
	op, ok := augOps[s.Op]
	if !ok {
		return nil, errorf(s.Pos, "unsupported augmented assignment operator")
	}

	switch target := s.Target.(type) {
	case *pysrc.NameExpr:
		v, exists := c.vars[target.Name]
		if !exists {
			return nil, errorf(s.Pos, "undefined name %q", target.Name)
		}
		if v.t.rt != nil {
			return nil, errorf(s.Pos, "flat tuples do not support augmented assignment")
		}
		value, pre, err := c.buildExpr(s.Value)
		if err != nil {
			return nil, err
		}
		if v.t.kind == ir.KindInt && (op == ir.OpFloorDiv || op == ir.OpMod) {
			c.usesCheckedDiv = true
		}
		return ir.AugAssign{Prelude: pre, CTarget: v.cName, Op: op, Value: value, Kind: v.t.kind}, nil

	case *pysrc.AttrExpr:
		// Read-modify-write through the resolved field path.
		read, _, err := c.buildAttrRead(target)
		if err != nil {
			return nil, err
		}
		value, pre, err := c.buildExpr(s.Value)
		if err != nil {
			return nil, err
		}
		kind := binaryKind(op, read.ExprKind(), value.ExprKind())
		if kind == ir.KindInt && (op == ir.OpFloorDiv || op == ir.OpMod) {
			c.usesCheckedDiv = true
		}
		combined := ir.Binary{Op: op, Left: read, Right: value, Kind: kind}
		switch read.(type) {
		case ir.SelfAttr, ir.ParamAttr:
			return ir.AttrAssign{Prelude: pre, Target: read, Value: combined}, nil
		case ir.Const:
			return nil, errorf(s.Pos, "cannot assign to final field %q", target.Attr)
		}
		return nil, errorf(s.Pos, "cannot assign to this attribute")
	}
	return nil, errorf(s.Pos, "unsupported augmented assignment target")
}

func (c *fnCtx) buildReturn(s *pysrc.ReturnStmt) (ir.Stmt, error) {
	if s.Value == nil {
		return ir.Return{}, nil
	}
	if c.isGen {
		return nil, errorf(s.Pos, "return with a value is not supported inside generators")
	}
	value, pre, err := c.buildExpr(s.Value)
	if err != nil {
		return nil, err
	}
	return ir.Return{Prelude: pre, Value: value}, nil
}

func (c *fnCtx) buildIf(s *pysrc.IfStmt) (ir.Stmt, error) {
	cond, pre, err := c.buildExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.buildStmts(s.Body)
	if err != nil {
		return nil, err
	}
	orelse, err := c.buildStmts(s.Else)
	if err != nil {
		return nil, err
	}
	return ir.If{Prelude: pre, Cond: cond, Then: then, Else: orelse}, nil
}

func (c *fnCtx) buildWhile(s *pysrc.WhileStmt) (ir.Stmt, error) {
	cond, pre, err := c.buildExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	c.loops++
	body, err := c.buildStmts(s.Body)
	c.loops--
	if err != nil {
		return nil, err
	}
	return ir.While{Prelude: pre, Cond: cond, Body: body}, nil
}

func (c *fnCtx) buildFor(s *pysrc.ForStmt) (ir.Stmt, error) {
	target, ok := s.Target.(*pysrc.NameExpr)
	if !ok {
		return nil, errorf(s.Pos, "for targets must be plain names")
	}

	if call, isCall := s.Iter.(*pysrc.CallExpr); isCall && isRangeCall(call) {
		return c.buildForRange(s, target, call)
	}

	iterable, pre, err := c.buildExpr(s.Iter)
	if err != nil {
		return nil, err
	}
	// Iterator loops in generators keep their handle in the state struct
	// across suspensions, so arbitrary iterables are fine there too.
	_, existed := c.vars[target.Name]
	v := c.loopVar(target.Name, staticType{kind: ir.KindDynamic})
	c.loops++
	body, err := c.buildStmts(s.Body)
	c.loops--
	if err != nil {
		return nil, err
	}
	return ir.ForIter{IterPrelude: pre, CLoopVar: v.cName, NewVar: !existed, Iterable: iterable, Body: body}, nil
}

func (c *fnCtx) buildForRange(s *pysrc.ForStmt, target *pysrc.NameExpr, call *pysrc.CallExpr) (ir.Stmt, error) {
	start, end, step, pre, err := c.buildRangeArgs(call)
	if err != nil {
		return nil, err
	}

	loop := ir.ForRange{Prelude: pre, Start: start, End: end, Step: step}
	if step == nil {
		loop.StepConst = true
		loop.StepValue = 1
	} else if v, isConst := constIntOf(rangeStepArg(call)); isConst {
		if v == 0 {
			return nil, errorf(call.Pos, "range() step must not be zero")
		}
		loop.StepConst = true
		loop.StepValue = v
	}

	if c.isGen {
		if !loop.StepConst || loop.StepValue != 1 {
			return nil, errorf(call.Pos, "generator range() loops require a constant step of 1")
		}
		for _, arg := range call.Args {
			switch arg.(type) {
			case *pysrc.IntExpr, *pysrc.NameExpr:
			default:
				return nil, errorf(call.Pos, "generator range() bounds must be names or constants")
			}
		}
	}

	_, existed := c.vars[target.Name]
	v := c.loopVar(target.Name, staticType{kind: ir.KindInt})
	loop.CLoopVar = v.cName
	loop.NewVar = !existed
	c.loops++
	body, err := c.buildStmts(s.Body)
	c.loops--
	if err != nil {
		return nil, err
	}
	loop.Body = body
	return loop, nil
}

// loopVar declares (or reuses) the loop variable binding.
func (c *fnCtx) loopVar(name string, t staticType) *varInfo {
	if v, exists := c.vars[name]; exists {
		v.t = t
		return v
	}
	return c.declareLocal(name, t)
}

func (c *fnCtx) buildTry(s *pysrc.TryStmt) (ir.Stmt, error) {
	if c.isGen {
		return nil, errorf(s.Pos, "try is not supported inside generators")
	}
	body, err := c.buildStmts(s.Body)
	if err != nil {
		return nil, err
	}
	var handlers []ir.ExceptHandler
	for _, h := range s.Handlers {
		handler := ir.ExceptHandler{}
		if h.Type != "" {
			typeC, known := mpExceptionTypes[h.Type]
			if !known {
				return nil, errorf(h.Pos, "unknown exception type %q", h.Type)
			}
			handler.TypeC = typeC
		}
		if h.Name != "" {
			v := c.loopVar(h.Name, staticType{kind: ir.KindDynamic})
			handler.Name = v.cName
		}
		hbody, err := c.buildStmts(h.Body)
		if err != nil {
			return nil, err
		}
		handler.Body = hbody
		handlers = append(handlers, handler)
	}
	orelse, err := c.buildStmts(s.OrElse)
	if err != nil {
		return nil, err
	}
	finally, err := c.buildStmts(s.Finally)
	if err != nil {
		return nil, err
	}
	return ir.Try{Body: body, Handlers: handlers, OrElse: orelse, Finally: finally}, nil
}

func (c *fnCtx) buildRaise(s *pysrc.RaiseStmt) (ir.Stmt, error) {
	if s.Exc == nil {
		return nil, errorf(s.Pos, "bare raise is not supported")
	}
	switch exc := s.Exc.(type) {
	case *pysrc.NameExpr:
		typeC, known := mpExceptionTypes[exc.Name]
		if !known {
			return nil, errorf(s.Pos, "unknown exception type %q", exc.Name)
		}
		return ir.Raise{TypeC: typeC}, nil
	case *pysrc.CallExpr:
		name, ok := exc.Func.(*pysrc.NameExpr)
		if !ok {
			return nil, errorf(s.Pos, "raise requires an exception type")
		}
		typeC, known := mpExceptionTypes[name.Name]
		if !known {
			return nil, errorf(s.Pos, "unknown exception type %q", name.Name)
		}
		switch len(exc.Args) {
		case 0:
			return ir.Raise{TypeC: typeC}, nil
		case 1:
			msg, isStr := exc.Args[0].(*pysrc.StrExpr)
			if !isStr {
				return nil, errorf(s.Pos, "exception message must be a string literal")
			}
			return ir.Raise{TypeC: typeC, Msg: msg.Value, HasMsg: true}, nil
		default:
			return nil, errorf(s.Pos, "exceptions take at most one argument")
		}
	}
	return nil, errorf(s.Pos, "raise requires an exception type")
}

func (c *fnCtx) buildYield(s *pysrc.YieldStmt) (ir.Stmt, error) {
	if !c.isGen {
		return nil, errorf(s.Pos, "yield is only supported in top-level functions")
	}
	c.yields++
	y := ir.Yield{StateID: c.yields}
	if s.Value == nil {
		y.Value = ir.Const{Value: ir.NoneLit{}}
		return y, nil
	}
	value, pre, err := c.buildExpr(s.Value)
	if err != nil {
		return nil, err
	}
	y.Prelude = pre
	y.Value = value
	return y, nil
}
