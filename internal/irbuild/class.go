package irbuild

import (
	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/pysrc"
)

func (b *Builder) declareClass(def *pysrc.ClassDef) error {
	if _, dup := b.module.Classes[def.Name]; dup {
		return errorf(def.Pos, "duplicate class %q", def.Name)
	}
	if _, dup := b.module.Functions[def.Name]; dup {
		return errorf(def.Pos, "%q is already declared as a function", def.Name)
	}

	cls := &ir.ClassIR{
		Name:     def.Name,
		CName:    ir.SanitizeName(def.Name),
		BaseName: def.Base,
		Methods:  make(map[string]*ir.MethodIR),
	}
	for _, d := range def.Decorators {
		switch d.Name {
		case "final":
			cls.IsFinal = true
		case "dataclass":
			cls.IsDataclass = true
			cls.Dataclass = ir.DataclassInfo{Eq: true, Repr: true}
			for _, kw := range d.Kwargs {
				val, ok := kw.Value.(*pysrc.BoolExpr)
				if !ok {
					return errorf(d.Pos, "dataclass option %q must be True or False", kw.Name)
				}
				switch kw.Name {
				case "eq":
					cls.Dataclass.Eq = val.Value
				case "repr":
					cls.Dataclass.Repr = val.Value
				case "frozen":
					cls.Dataclass.Frozen = val.Value
				default:
					return errorf(d.Pos, "unsupported dataclass option %q", kw.Name)
				}
			}
			if len(d.Args) > 0 {
				return errorf(d.Pos, "dataclass options must be keywords")
			}
		default:
			return errorf(d.Pos, "decorator @%s is not supported on classes", d.Name)
		}
	}

	for _, s := range def.Body {
		switch s := s.(type) {
		case *pysrc.AnnAssignStmt:
			if err := b.declareField(cls, s); err != nil {
				return err
			}
		case *pysrc.FuncDef:
			if err := b.declareMethod(cls, s); err != nil {
				return err
			}
		case *pysrc.ExprStmtNode:
			if _, ok := s.Value.(*pysrc.StrExpr); ok {
				continue // docstring
			}
			return errorf(s.Pos, "only field annotations and methods are allowed in class bodies")
		case *pysrc.PassStmt:
		default:
			return errorf(s.Position(), "only field annotations and methods are allowed in class bodies")
		}
	}
	if cls.IsDataclass {
		if _, has := cls.Methods["__init__"]; has {
			return errorf(def.Pos, "dataclass %q cannot also define __init__", def.Name)
		}
	}

	b.module.AddClass(cls)
	return nil
}

func findMethodDef(def *pysrc.ClassDef, name string) *pysrc.FuncDef {
	for _, s := range def.Body {
		if m, ok := s.(*pysrc.FuncDef); ok && m.Name == name {
			return m
		}
	}
	return nil
}

func (b *Builder) declareField(cls *ir.ClassIR, ann *pysrc.AnnAssignStmt) error {
	name, ok := ann.Target.(*pysrc.NameExpr)
	if !ok {
		return errorf(ann.Pos, "field declarations must annotate a plain name")
	}
	for _, f := range cls.Fields {
		if f.Name == name.Name {
			return errorf(ann.Pos, "duplicate field %q", name.Name)
		}
	}

	oracleType, haveOracle := "", false
	if b.report != nil {
		oracleType, haveOracle = b.report.LookupField(cls.Name, name.Name)
	}
	t := b.resolveAnnotated(&ann.Annotation, oracleType, haveOracle)
	if ann.Annotation.Name == "Final" {
		t.isFinal = true
	}
	if t.rt != nil {
		return errorf(ann.Pos, "flat tuples are not supported as fields; use a heap tuple annotation")
	}

	field := ir.FieldIR{
		Name:    name.Name,
		CName:   ir.SanitizeName(name.Name),
		Kind:    t.kind,
		Class:   t.class,
		IsFinal: t.isFinal,
	}
	if ann.Value != nil {
		lit, ok := literalOf(ann.Value)
		if !ok {
			return errorf(ann.Pos, "field default for %q must be a literal", name.Name)
		}
		field.Default = lit
		if t.isFinal {
			field.FinalValue = lit
		}
	} else if t.isFinal {
		return errorf(ann.Pos, "final field %q requires a literal value", name.Name)
	}
	cls.Fields = append(cls.Fields, field)
	return nil
}

// methodKey distinguishes a property setter from its getter, which share
// a source name.
func methodKey(def *pysrc.FuncDef) string {
	for _, d := range def.Decorators {
		if d.Name == def.Name+".setter" {
			return def.Name + ".setter"
		}
	}
	return def.Name
}

func (b *Builder) declareMethod(cls *ir.ClassIR, def *pysrc.FuncDef) error {
	key := methodKey(def)
	if _, dup := cls.Methods[key]; dup {
		return errorf(def.Pos, "duplicate method %q", def.Name)
	}
	if containsYield(def.Body) {
		return errorf(def.Pos, "yield is only supported in top-level functions")
	}

	m := &ir.MethodIR{
		Name:      def.Name,
		CName:     cls.CName + "_" + ir.SanitizeName(def.Name),
		IsPrivate: isPrivateName(def.Name),
		IsSpecial: isDunder(def.Name),
	}
	for _, d := range def.Decorators {
		switch d.Name {
		case "staticmethod":
			m.IsStatic = true
		case "classmethod":
			m.IsClassMethod = true
		case "property":
			m.IsProperty = true
		case "final":
			m.IsFinal = true
		default:
			if len(d.Args) == 0 && !d.Called && d.Name == def.Name+".setter" {
				m.IsSetter = true
				continue
			}
			return errorf(d.Pos, "decorator @%s is not supported on methods", d.Name)
		}
	}

	params := def.Params
	switch {
	case m.IsStatic:
	case len(params) == 0:
		return errorf(def.Pos, "method %q is missing its receiver parameter", def.Name)
	default:
		recv := params[0].Name
		if m.IsClassMethod && recv != "cls" {
			return errorf(def.Pos, "classmethod %q must take cls first", def.Name)
		}
		if !m.IsClassMethod && recv != "self" {
			return errorf(def.Pos, "method %q must take self first", def.Name)
		}
		params = params[1:]
	}

	irParams, star, starKw, err := b.declareParams(def.Name, cls.Name, params)
	if err != nil {
		return err
	}
	if star || starKw {
		return errorf(def.Pos, "star parameters are not supported in methods")
	}
	m.Params = irParams

	retType, haveRet := "", false
	if b.report != nil {
		retType, haveRet = b.report.LookupReturn(cls.Name, def.Name)
	}
	m.RetKind = b.resolveAnnotated(def.Returns, retType, haveRet).kind
	if def.Returns == nil && !haveRet {
		m.RetKind = ir.KindVoid
	}
	if def.Name == "__init__" {
		m.RetKind = ir.KindVoid
	}

	m.IsVirtual = methodIsVirtual(m)
	if m.IsSetter {
		m.CName += "_set"
	}

	cls.Methods[key] = m
	cls.MethodOrder = append(cls.MethodOrder, key)
	return nil
}

// methodIsVirtual decides vtable participation. Special methods stay out
// except the container protocol trio, which subclasses commonly override.
func methodIsVirtual(m *ir.MethodIR) bool {
	if m.IsStatic || m.IsClassMethod || m.IsPrivate || m.IsProperty || m.IsSetter {
		return false
	}
	if m.IsSpecial {
		switch m.Name {
		case "__len__", "__getitem__", "__setitem__":
			return true
		}
		return false
	}
	return true
}

// inferInitFields adds storage for attributes first assigned in __init__.
// Runs after base resolution so assignments to inherited fields are not
// re-declared. Kinds come from the oracle, then from the assigned
// parameter's annotation, then default to boxed.
func (b *Builder) inferInitFields(cls *ir.ClassIR, initDef *pysrc.FuncDef) error {
	m := cls.Methods["__init__"]
	for _, s := range initDef.Body {
		assign, ok := s.(*pysrc.AssignStmt)
		if !ok {
			continue
		}
		attr, ok := assign.Target.(*pysrc.AttrExpr)
		if !ok {
			continue
		}
		if recv, ok := attr.Value.(*pysrc.NameExpr); !ok || recv.Name != "self" {
			continue
		}
		if _, _, known := cls.FieldPath(attr.Attr); known {
			continue
		}

		t := dynamicType()
		if b.report != nil {
			if typ, ok := b.report.LookupField(cls.Name, attr.Attr); ok {
				if ref := parseTypeString(typ); ref != nil {
					t = b.resolveTypeRef(ref)
				}
			}
		}
		if t.kind == ir.KindDynamic && t.class == "" {
			if src, ok := assign.Value.(*pysrc.NameExpr); ok {
				for _, p := range m.Params {
					if p.Name == src.Name {
						t = staticType{kind: p.Kind, class: p.Class}
						break
					}
				}
			}
		}
		if t.rt != nil {
			t = dynamicType()
		}
		cls.Fields = append(cls.Fields, ir.FieldIR{
			Name:  attr.Attr,
			CName: ir.SanitizeName(attr.Attr),
			Kind:  t.kind,
			Class: t.class,
		})
	}
	return nil
}

func (b *Builder) buildClassBodies(def *pysrc.ClassDef) error {
	cls := b.module.Classes[def.Name]
	for _, s := range def.Body {
		mdef, ok := s.(*pysrc.FuncDef)
		if !ok {
			continue
		}
		m := cls.Methods[methodKey(mdef)]
		c := newFnCtx(b, cls, mdef.Name, false)
		c.hasSelf = !m.IsStatic && !m.IsClassMethod
		params := mdef.Params
		if !m.IsStatic && len(params) > 0 {
			params = params[1:] // self / cls
		}
		for _, p := range params {
			t := b.paramStatic(cls.Name, mdef.Name, p)
			if t.rt != nil {
				t = dynamicType()
			}
			c.vars[p.Name] = &varInfo{
				cName: ir.SanitizeName(p.Name),
				t:     t,
				param: true,
			}
		}
		body, err := c.buildStmts(mdef.Body)
		if err != nil {
			return err
		}
		m.Body = body
		c.finish(&m.Locals, &m.MaxTemp, &m.UsesPrint, &m.UsesListOpt, &m.UsesBuiltins, &m.UsesCheckedDiv, &m.UsedRTuples)
	}
	return nil
}
