package irbuild

import (
	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/pysrc"
)

var binOps = map[pysrc.TokenType]ir.BinOp{
	pysrc.TokenPlus:        ir.OpAdd,
	pysrc.TokenMinus:       ir.OpSub,
	pysrc.TokenStar:        ir.OpMul,
	pysrc.TokenSlash:       ir.OpTrueDiv,
	pysrc.TokenDoubleSlash: ir.OpFloorDiv,
	pysrc.TokenPercent:     ir.OpMod,
	pysrc.TokenAmp:         ir.OpBitAnd,
	pysrc.TokenPipe:        ir.OpBitOr,
	pysrc.TokenCaret:       ir.OpBitXor,
	pysrc.TokenShl:         ir.OpShl,
	pysrc.TokenShr:         ir.OpShr,
}

var cmpOps = map[pysrc.TokenType]ir.CmpOp{
	pysrc.TokenEq: ir.CmpEq,
	pysrc.TokenNe: ir.CmpNe,
	pysrc.TokenLt: ir.CmpLt,
	pysrc.TokenLe: ir.CmpLe,
	pysrc.TokenGt: ir.CmpGt,
	pysrc.TokenGe: ir.CmpGe,
	pysrc.TokenIn: ir.CmpIn,
	pysrc.TokenIs: ir.CmpIs,
}

// buildExpr lowers one expression. Side effects are hoisted into the
// returned prelude; the expression itself is pure at emission time.
func (c *fnCtx) buildExpr(e pysrc.Expr) (ir.Expr, []ir.Instr, error) {
	switch e := e.(type) {
	case *pysrc.IntExpr:
		return ir.Const{Value: ir.IntLit(e.Value)}, nil, nil
	case *pysrc.FloatExpr:
		return ir.Const{Value: ir.FloatLit(e.Value)}, nil, nil
	case *pysrc.StrExpr:
		return ir.Const{Value: ir.StrLit(e.Value)}, nil, nil
	case *pysrc.BoolExpr:
		return ir.Const{Value: ir.BoolLit(e.Value)}, nil, nil
	case *pysrc.NoneExpr:
		return ir.Const{Value: ir.NoneLit{}}, nil, nil

	case *pysrc.NameExpr:
		return c.buildName(e)

	case *pysrc.UnaryExpr:
		return c.buildUnary(e)
	case *pysrc.BinaryExpr:
		return c.buildBinary(e)
	case *pysrc.CompareExpr:
		return c.buildCompare(e)
	case *pysrc.BoolOpExpr:
		return c.buildBoolOp(e)
	case *pysrc.IfExpExpr:
		return c.buildIfExp(e)

	case *pysrc.AttrExpr:
		return c.buildAttrRead(e)
	case *pysrc.SubscriptExpr:
		return c.buildSubscript(e)
	case *pysrc.CallExpr:
		return c.buildCall(e)

	case *pysrc.ListExpr:
		return c.buildListDisplay(e)
	case *pysrc.TupleExpr:
		return c.buildTupleDisplay(e)
	case *pysrc.SetExpr:
		return c.buildSetDisplay(e)
	case *pysrc.DictExpr:
		return c.buildDictDisplay(e)
	case *pysrc.ListCompExpr:
		return c.buildListComp(e)
	}
	return nil, nil, errorf(e.Position(), "unsupported expression")
}

func (c *fnCtx) buildName(e *pysrc.NameExpr) (ir.Expr, []ir.Instr, error) {
	if e.Name == "self" {
		if !c.hasSelf {
			return nil, nil, errorf(e.Pos, "self is only valid inside instance methods")
		}
		return ir.SelfRef{}, nil, nil
	}
	if v, ok := c.vars[e.Name]; ok {
		kind := v.t.kind
		if v.t.rt != nil {
			kind = ir.KindDynamic
		}
		return ir.Name{Py: e.Name, C: v.cName, Kind: kind}, nil, nil
	}
	if _, ok := c.b.module.Functions[e.Name]; ok {
		return nil, nil, errorf(e.Pos, "function %q used as a value; only direct calls are supported", e.Name)
	}
	if _, ok := c.b.module.Classes[e.Name]; ok {
		return nil, nil, errorf(e.Pos, "class %q used as a value; only constructor calls are supported", e.Name)
	}
	if _, ok := c.b.aliases[e.Name]; ok {
		return nil, nil, errorf(e.Pos, "imported module %q used as a value", e.Name)
	}
	return nil, nil, errorf(e.Pos, "undefined name %q", e.Name)
}

func (c *fnCtx) buildUnary(e *pysrc.UnaryExpr) (ir.Expr, []ir.Instr, error) {
	operand, pre, err := c.buildExpr(e.Operand)
	if err != nil {
		return nil, nil, err
	}
	switch e.Op {
	case pysrc.TokenNot:
		return ir.Unary{Op: ir.UnaryNot, Operand: operand, Kind: ir.KindBool}, pre, nil
	case pysrc.TokenMinus:
		if k, ok := operand.(ir.Const); ok {
			switch v := k.Value.(type) {
			case ir.IntLit:
				return ir.Const{Value: ir.IntLit(-v)}, pre, nil
			case ir.FloatLit:
				return ir.Const{Value: ir.FloatLit(-v)}, pre, nil
			}
		}
		kind := operand.ExprKind()
		if !kind.Native() {
			kind = ir.KindDynamic
		}
		return ir.Unary{Op: ir.UnaryNeg, Operand: operand, Kind: kind}, pre, nil
	case pysrc.TokenPlus:
		return operand, pre, nil
	case pysrc.TokenTilde:
		return ir.Unary{Op: ir.UnaryInvert, Operand: operand, Kind: ir.KindInt}, pre, nil
	}
	return nil, nil, errorf(e.Pos, "unsupported unary operator")
}

// binaryKind resolves the result representation: float contagion between
// natives, the unboxed operand wins over a boxed one, two boxed operands
// stay boxed and go through the runtime.
func binaryKind(op ir.BinOp, left, right ir.Kind) ir.Kind {
	switch op {
	case ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor, ir.OpShl, ir.OpShr:
		return ir.KindInt
	}
	lk, rk := left, right
	if lk == ir.KindBool {
		lk = ir.KindInt
	}
	if rk == ir.KindBool {
		rk = ir.KindInt
	}
	switch {
	case lk == ir.KindFloat || rk == ir.KindFloat:
		return ir.KindFloat
	case lk == ir.KindInt && rk == ir.KindInt:
		return ir.KindInt
	case lk == ir.KindInt || rk == ir.KindInt:
		return ir.KindInt
	default:
		return ir.KindDynamic
	}
}

func (c *fnCtx) buildBinary(e *pysrc.BinaryExpr) (ir.Expr, []ir.Instr, error) {
	op, ok := binOps[e.Op]
	if !ok {
		return nil, nil, errorf(e.Pos, "unsupported binary operator")
	}
	left, pre, err := c.buildExpr(e.Left)
	if err != nil {
		return nil, nil, err
	}
	right, rpre, err := c.buildExpr(e.Right)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, rpre...)

	kind := binaryKind(op, left.ExprKind(), right.ExprKind())
	if kind == ir.KindInt && (op == ir.OpFloorDiv || op == ir.OpMod) {
		c.usesCheckedDiv = true
	}
	return ir.Binary{Op: op, Left: left, Right: right, Kind: kind}, pre, nil
}

func (c *fnCtx) buildCompare(e *pysrc.CompareExpr) (ir.Expr, []ir.Instr, error) {
	left, pre, err := c.buildExpr(e.Left)
	if err != nil {
		return nil, nil, err
	}
	cmp := ir.Compare{Left: left}
	for i, tok := range e.Ops {
		op, ok := cmpOps[tok]
		if !ok {
			return nil, nil, errorf(e.Pos, "unsupported comparison operator")
		}
		right, rpre, err := c.buildExpr(e.Comparators[i])
		if err != nil {
			return nil, nil, err
		}
		pre = append(pre, rpre...)
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, right)
	}
	return cmp, pre, nil
}

func (c *fnCtx) buildBoolOp(e *pysrc.BoolOpExpr) (ir.Expr, []ir.Instr, error) {
	chain := ir.BoolChain{Op: ir.BoolAnd}
	if e.Op == pysrc.TokenOr {
		chain.Op = ir.BoolOr
	}
	var pre []ir.Instr
	for _, v := range e.Values {
		expr, vpre, err := c.buildExpr(v)
		if err != nil {
			return nil, nil, err
		}
		pre = append(pre, vpre...)
		chain.Values = append(chain.Values, expr)
	}
	return chain, pre, nil
}

func (c *fnCtx) buildIfExp(e *pysrc.IfExpExpr) (ir.Expr, []ir.Instr, error) {
	cond, pre, err := c.buildExpr(e.Cond)
	if err != nil {
		return nil, nil, err
	}
	then, tpre, err := c.buildExpr(e.Then)
	if err != nil {
		return nil, nil, err
	}
	orelse, epre, err := c.buildExpr(e.Else)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, tpre...)
	pre = append(pre, epre...)

	tk, ek := then.ExprKind(), orelse.ExprKind()
	kind := tk
	switch {
	case tk == ek:
	case tk.Native() && ek.Native():
		kind = ir.KindInt
		if tk == ir.KindFloat || ek == ir.KindFloat {
			kind = ir.KindFloat
		}
	default:
		kind = ir.KindDynamic
	}
	return ir.IfExpr{Cond: cond, Then: then, Else: orelse, Kind: kind}, pre, nil
}

func fieldKind(f *ir.FieldIR) ir.Kind {
	if f.Class != "" {
		return ir.KindDynamic
	}
	return f.Kind
}

func (c *fnCtx) buildAttrRead(e *pysrc.AttrExpr) (ir.Expr, []ir.Instr, error) {
	// self.attr in a method body
	if recv, ok := e.Value.(*pysrc.NameExpr); ok && recv.Name == "self" && c.hasSelf {
		path, field, found := c.class.FieldPath(e.Attr)
		if !found {
			if _, _, isMethod := c.class.MethodLookup(e.Attr); isMethod {
				return nil, nil, errorf(e.Pos, "method %q used as a value; only direct calls are supported", e.Attr)
			}
			return nil, nil, errorf(e.Pos, "class %s has no field %q", c.class.Name, e.Attr)
		}
		if field.IsFinal {
			return ir.Const{Value: field.FinalValue}, nil, nil
		}
		return ir.SelfAttr{Path: path, Kind: fieldKind(field)}, nil, nil
	}

	// Attribute of a value whose class is statically known.
	if cls, ok := c.staticClassOf(e.Value); ok {
		path, field, found := cls.FieldPath(e.Attr)
		if !found {
			return nil, nil, errorf(e.Pos, "class %s has no field %q", cls.Name, e.Attr)
		}
		if isPrivateName(e.Attr) && cls != c.class {
			return nil, nil, errorf(e.Pos, "field %q of class %s is private", e.Attr, cls.Name)
		}
		if field.IsFinal {
			return ir.Const{Value: field.FinalValue}, nil, nil
		}
		if recv, ok := e.Value.(*pysrc.NameExpr); ok {
			if v, have := c.vars[recv.Name]; have {
				return ir.ParamAttr{
					ClassC: cls.CName,
					CParam: v.cName,
					Attr:   path,
					Kind:   fieldKind(field),
				}, nil, nil
			}
		}
		obj, pre, err := c.buildExpr(e.Value)
		if err != nil {
			return nil, nil, err
		}
		result := c.newTemp(fieldKind(field))
		pre = append(pre, ir.AttrLoad{
			Result: result,
			Obj:    obj,
			ClassC: cls.CName,
			Attr:   path,
			Kind:   fieldKind(field),
		})
		return result, pre, nil
	}

	if recv, ok := e.Value.(*pysrc.NameExpr); ok {
		if _, isAlias := c.b.aliases[recv.Name]; isAlias {
			return nil, nil, errorf(e.Pos, "reading attributes of imported module %q is not supported; call its functions instead", recv.Name)
		}
	}

	// Dynamic receiver: runtime attribute load.
	obj, pre, err := c.buildExpr(e.Value)
	if err != nil {
		return nil, nil, err
	}
	result := c.newTemp(ir.KindDynamic)
	pre = append(pre, ir.AttrLoadDyn{Result: result, Obj: obj, Attr: e.Attr})
	return result, pre, nil
}

// staticClassOf resolves the module class of an expression when it is
// statically known: self, class-typed locals and params, and single-hop
// field chains through class-typed fields.
func (c *fnCtx) staticClassOf(e pysrc.Expr) (*ir.ClassIR, bool) {
	switch e := e.(type) {
	case *pysrc.NameExpr:
		if e.Name == "self" && c.hasSelf {
			return c.class, true
		}
		if v, ok := c.vars[e.Name]; ok && v.t.class != "" {
			return c.b.module.Classes[v.t.class], true
		}
	case *pysrc.AttrExpr:
		if inner, ok := c.staticClassOf(e.Value); ok {
			if _, field, found := inner.FieldPath(e.Attr); found && field.Class != "" {
				return c.b.module.Classes[field.Class], true
			}
		}
	case *pysrc.CallExpr:
		if name, ok := e.Func.(*pysrc.NameExpr); ok {
			if cls, isCtor := c.b.module.Classes[name.Name]; isCtor {
				return cls, true
			}
		}
	}
	return nil, false
}

func constIntOf(e pysrc.Expr) (int64, bool) {
	switch e := e.(type) {
	case *pysrc.IntExpr:
		return e.Value, true
	case *pysrc.UnaryExpr:
		if e.Op == pysrc.TokenMinus {
			if inner, ok := e.Operand.(*pysrc.IntExpr); ok {
				return -inner.Value, true
			}
		}
	}
	return 0, false
}

func (c *fnCtx) buildSubscript(e *pysrc.SubscriptExpr) (ir.Expr, []ir.Instr, error) {
	// Flat-tuple locals resolve constant indices to struct fields.
	if recv, ok := e.Value.(*pysrc.NameExpr); ok {
		if v, have := c.vars[recv.Name]; have && v.t.rt != nil {
			idx, isConst := constIntOf(e.Index)
			if !isConst {
				return nil, nil, errorf(e.Pos, "flat tuple %q requires a constant index", recv.Name)
			}
			n := int64(len(v.t.rt.Elems))
			if idx < 0 {
				idx += n
			}
			if idx < 0 || idx >= n {
				return nil, nil, errorf(e.Pos, "tuple index %d out of range for %q", idx, recv.Name)
			}
			return ir.RTupleField{
				CName: v.cName,
				Index: int(idx),
				Kind:  v.t.rt.Elems[idx],
			}, nil, nil
		}

		// List-typed locals take the direct-structure fast path.
		if v, have := c.vars[recv.Name]; have && v.t.isList {
			index, pre, err := c.buildExpr(e.Index)
			if err != nil {
				return nil, nil, err
			}
			result := c.newTemp(ir.KindDynamic)
			get := ir.FastGetItem{
				Result: result,
				List:   ir.Name{Py: recv.Name, C: v.cName, Kind: ir.KindDynamic},
				Index:  index,
			}
			if idx, isConst := constIntOf(e.Index); isConst {
				get.IndexNeg = idx < 0
			} else {
				get.Signed = true
			}
			pre = append(pre, get)
			c.usesListOpt = true
			return result, pre, nil
		}
	}

	value, pre, err := c.buildExpr(e.Value)
	if err != nil {
		return nil, nil, err
	}
	index, ipre, err := c.buildExpr(e.Index)
	if err != nil {
		return nil, nil, err
	}
	pre = append(pre, ipre...)
	return ir.Subscript{Value: value, Index: index, Kind: ir.KindDynamic}, pre, nil
}

func (c *fnCtx) buildItems(items []pysrc.Expr) ([]ir.Expr, []ir.Instr, error) {
	var exprs []ir.Expr
	var pre []ir.Instr
	for _, item := range items {
		e, ipre, err := c.buildExpr(item)
		if err != nil {
			return nil, nil, err
		}
		pre = append(pre, ipre...)
		exprs = append(exprs, e)
	}
	return exprs, pre, nil
}

func (c *fnCtx) buildListDisplay(e *pysrc.ListExpr) (ir.Expr, []ir.Instr, error) {
	items, pre, err := c.buildItems(e.Items)
	if err != nil {
		return nil, nil, err
	}
	result := c.newTemp(ir.KindDynamic)
	pre = append(pre, ir.ListNew{Result: result, Items: items})
	return result, pre, nil
}

func (c *fnCtx) buildTupleDisplay(e *pysrc.TupleExpr) (ir.Expr, []ir.Instr, error) {
	items, pre, err := c.buildItems(e.Items)
	if err != nil {
		return nil, nil, err
	}
	result := c.newTemp(ir.KindDynamic)
	pre = append(pre, ir.TupleNew{Result: result, Items: items})
	return result, pre, nil
}

func (c *fnCtx) buildSetDisplay(e *pysrc.SetExpr) (ir.Expr, []ir.Instr, error) {
	items, pre, err := c.buildItems(e.Items)
	if err != nil {
		return nil, nil, err
	}
	result := c.newTemp(ir.KindDynamic)
	pre = append(pre, ir.SetNew{Result: result, Items: items})
	return result, pre, nil
}

func (c *fnCtx) buildDictDisplay(e *pysrc.DictExpr) (ir.Expr, []ir.Instr, error) {
	var entries []ir.DictEntry
	var pre []ir.Instr
	for _, item := range e.Items {
		key, kpre, err := c.buildExpr(item.Key)
		if err != nil {
			return nil, nil, err
		}
		value, vpre, err := c.buildExpr(item.Value)
		if err != nil {
			return nil, nil, err
		}
		pre = append(pre, kpre...)
		pre = append(pre, vpre...)
		entries = append(entries, ir.DictEntry{Key: key, Value: value})
	}
	result := c.newTemp(ir.KindDynamic)
	pre = append(pre, ir.DictNew{Result: result, Entries: entries})
	return result, pre, nil
}

func (c *fnCtx) buildListComp(e *pysrc.ListCompExpr) (ir.Expr, []ir.Instr, error) {
	comp := ir.ListComp{Result: c.newTemp(ir.KindDynamic)}

	loopVar := &varInfo{cName: ir.SanitizeName(e.Var), t: staticType{kind: ir.KindDynamic}}
	saved, shadowed := c.vars[e.Var]

	var pre []ir.Instr
	if call, ok := e.Iter.(*pysrc.CallExpr); ok && isRangeCall(call) {
		start, end, step, spre, err := c.buildRangeArgs(call)
		if err != nil {
			return nil, nil, err
		}
		if step != nil {
			v, isConst := constIntOf(rangeStepArg(call))
			if !isConst || v <= 0 {
				return nil, nil, errorf(call.Pos, "comprehension range() step must be a positive constant")
			}
		}
		pre = append(pre, spre...)
		comp.IsRange = true
		comp.RangeStart = start
		comp.RangeEnd = end
		comp.RangeStep = step
		comp.CLoopVar = loopVar.cName
		loopVar.t = staticType{kind: ir.KindInt}
	} else {
		iterable, ipre, err := c.buildExpr(e.Iter)
		if err != nil {
			return nil, nil, err
		}
		comp.IterPrelude = ipre
		comp.Iterable = iterable
		comp.CLoopVar = loopVar.cName
	}

	c.vars[e.Var] = loopVar
	elt, epre, err := c.buildExpr(e.Elt)
	if err != nil {
		return nil, nil, err
	}
	comp.ElementPrelude = epre
	comp.Element = elt
	if e.Cond != nil {
		cond, cpre, err := c.buildExpr(e.Cond)
		if err != nil {
			return nil, nil, err
		}
		comp.ConditionPrelude = cpre
		comp.Condition = cond
	}
	if shadowed {
		c.vars[e.Var] = saved
	} else {
		delete(c.vars, e.Var)
	}

	pre = append(pre, comp)
	return comp.Result, pre, nil
}
