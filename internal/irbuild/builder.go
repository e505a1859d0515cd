package irbuild

import (
	"strings"

	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/oracle"
	"github.com/roach88/pyrite/internal/pysrc"
)

// Builder lowers a parsed source unit into module IR. All per-function
// state lives in fnCtx values created for each translation; the Builder
// itself only holds module-wide registries.
type Builder struct {
	moduleName string
	report     *oracle.Report
	module     *ir.ModuleIR
	aliases    map[string]string // import alias -> module path
}

// New creates a builder for one module. report may be nil when no type
// oracle output is available; annotations then stand alone.
func New(moduleName string, report *oracle.Report) *Builder {
	return &Builder{
		moduleName: moduleName,
		report:     report,
		module:     ir.NewModuleIR(moduleName, ir.SanitizeName(moduleName)),
		aliases:    make(map[string]string),
	}
}

// Build lowers the module in two passes: declarations first (so calls,
// class-typed annotations and base references may point forward), then
// bodies against the fully-resolved registry.
func (b *Builder) Build(m *pysrc.Module) (*ir.ModuleIR, error) {
	for _, s := range m.Body {
		if err := b.declare(s); err != nil {
			return nil, err
		}
	}
	if err := b.module.ResolveBases(); err != nil {
		return nil, &BuildError{Msg: err.Error()}
	}
	for _, c := range b.module.ClassesInOrder() {
		c.ComputeLayout()
	}
	// Infer __init__-assigned fields parents-first so subclasses see
	// inherited storage before adding their own.
	classDefs := make(map[string]*pysrc.ClassDef)
	for _, s := range m.Body {
		if def, ok := s.(*pysrc.ClassDef); ok {
			classDefs[def.Name] = def
		}
	}
	for _, cls := range b.module.ClassesInOrder() {
		def := classDefs[cls.Name]
		if def == nil {
			continue
		}
		if initDef := findMethodDef(def, "__init__"); initDef != nil {
			if err := b.inferInitFields(cls, initDef); err != nil {
				return nil, err
			}
		}
	}
	// Param/field class references may name classes declared after their
	// binding site; re-resolve them now that every class is registered.
	for _, s := range m.Body {
		switch def := s.(type) {
		case *pysrc.ClassDef:
			if err := b.redeclareTypes(def); err != nil {
				return nil, err
			}
		case *pysrc.FuncDef:
			f := b.module.Functions[def.Name]
			for i, p := range def.Params {
				if i >= len(f.Params) || f.Params[i].Class != "" || p.Annotation == nil {
					continue
				}
				if t := b.resolveTypeRef(p.Annotation); t.class != "" {
					f.Params[i].Kind = t.kind
					f.Params[i].Class = t.class
				}
			}
		}
	}
	for _, s := range m.Body {
		switch s := s.(type) {
		case *pysrc.FuncDef:
			if err := b.buildFunctionBody(s); err != nil {
				return nil, err
			}
		case *pysrc.ClassDef:
			if err := b.buildClassBodies(s); err != nil {
				return nil, err
			}
		}
	}
	return b.module, nil
}

func (b *Builder) declare(s pysrc.Stmt) error {
	switch s := s.(type) {
	case *pysrc.ImportStmt:
		alias := s.Alias
		if alias == "" {
			alias = s.Module
		}
		b.aliases[alias] = s.Module
		return nil
	case *pysrc.FuncDef:
		return b.declareFunction(s)
	case *pysrc.ClassDef:
		return b.declareClass(s)
	case *pysrc.ExprStmtNode:
		if _, ok := s.Value.(*pysrc.StrExpr); ok {
			return nil // module docstring
		}
	case *pysrc.PassStmt:
		return nil
	}
	return errorf(s.Position(), "only def, class and import are allowed at module level")
}

func (b *Builder) declareFunction(def *pysrc.FuncDef) error {
	if _, dup := b.module.Functions[def.Name]; dup {
		return errorf(def.Pos, "duplicate function %q", def.Name)
	}
	if _, dup := b.module.Classes[def.Name]; dup {
		return errorf(def.Pos, "%q is already declared as a class", def.Name)
	}
	if len(def.Decorators) > 0 {
		return errorf(def.Pos, "decorator @%s is not supported on functions", def.Decorators[0].Name)
	}

	f := &ir.FuncIR{
		Name:  def.Name,
		CName: ir.SanitizeName(def.Name),
	}
	params, star, starKw, err := b.declareParams(def.Name, "", def.Params)
	if err != nil {
		return err
	}
	f.Params = params
	f.StarArgs = star
	f.StarKwargs = starKw

	retType, haveRet := "", false
	if b.report != nil {
		retType, haveRet = b.report.LookupReturn("", def.Name)
	}
	f.RetKind = b.resolveAnnotated(def.Returns, retType, haveRet).kind
	if def.Returns == nil && !haveRet {
		f.RetKind = ir.KindVoid
	}

	if containsYield(def.Body) {
		f.IsGenerator = true
		f.RetKind = ir.KindDynamic
	}
	b.module.AddFunction(f)
	return nil
}

func (b *Builder) declareParams(fnName, class string, nodes []pysrc.ParamNode) (params []ir.Param, star, starKw bool, err error) {
	for i, p := range nodes {
		if p.Star || p.DoubleStar {
			if class != "" {
				return nil, false, false, errorf(p.Pos, "star parameters are not supported in methods")
			}
			rest := nodes[i:]
			if len(rest) > 2 {
				return nil, false, false, errorf(p.Pos, "star captures must be the trailing parameters")
			}
			for _, r := range rest {
				switch {
				case r.Star:
					star = true
				case r.DoubleStar:
					starKw = true
				default:
					return nil, false, false, errorf(r.Pos, "positional parameter after star capture")
				}
				// Prefixed so the capture local cannot collide with the
				// wrapper's own args array.
				params = append(params, ir.Param{
					Name:  r.Name,
					CName: "_star_" + ir.SanitizeName(r.Name),
					Kind:  ir.KindDynamic,
				})
			}
			return params, star, starKw, nil
		}

		oracleType, haveOracle := "", false
		if b.report != nil {
			oracleType, haveOracle = b.report.LookupParam(class, fnName, p.Name)
		}
		t := b.resolveAnnotated(p.Annotation, oracleType, haveOracle)
		param := ir.Param{
			Name:  p.Name,
			CName: ir.SanitizeName(p.Name),
			Kind:  t.kind,
			Class: t.class,
		}
		if p.Default != nil {
			lit, ok := literalOf(p.Default)
			if !ok {
				return nil, false, false, errorf(p.Pos, "parameter default for %q must be a literal", p.Name)
			}
			param.Default = lit
		}
		params = append(params, param)
	}
	return params, star, starKw, nil
}

// redeclareTypes re-resolves class-typed params and fields declared in
// pass one, picking up classes that were registered after them.
func (b *Builder) redeclareTypes(def *pysrc.ClassDef) error {
	cls := b.module.Classes[def.Name]
	for _, s := range def.Body {
		m, ok := s.(*pysrc.FuncDef)
		if !ok {
			continue
		}
		mir := cls.Methods[methodKey(m)]
		if mir == nil {
			continue
		}
		src := m.Params
		if !mir.IsStatic && len(src) > 0 {
			src = src[1:] // self / cls
		}
		for i, p := range src {
			if i >= len(mir.Params) || mir.Params[i].Class != "" || p.Annotation == nil {
				continue
			}
			if t := b.resolveTypeRef(p.Annotation); t.class != "" {
				mir.Params[i].Kind = t.kind
				mir.Params[i].Class = t.class
			}
		}
	}
	for i := range cls.Fields {
		f := &cls.Fields[i]
		if f.Class != "" {
			continue
		}
		if t, ok := b.fieldAnnotation(def, f.Name); ok && t.class != "" {
			f.Class = t.class
		}
	}
	return nil
}

func (b *Builder) fieldAnnotation(def *pysrc.ClassDef, field string) (staticType, bool) {
	for _, s := range def.Body {
		ann, ok := s.(*pysrc.AnnAssignStmt)
		if !ok {
			continue
		}
		if name, ok := ann.Target.(*pysrc.NameExpr); ok && name.Name == field {
			return b.resolveTypeRef(&ann.Annotation), true
		}
	}
	return staticType{}, false
}

func containsYield(body []pysrc.Stmt) bool {
	for _, s := range body {
		switch s := s.(type) {
		case *pysrc.YieldStmt:
			return true
		case *pysrc.IfStmt:
			if containsYield(s.Body) || containsYield(s.Else) {
				return true
			}
		case *pysrc.WhileStmt:
			if containsYield(s.Body) {
				return true
			}
		case *pysrc.ForStmt:
			if containsYield(s.Body) {
				return true
			}
		case *pysrc.TryStmt:
			if containsYield(s.Body) || containsYield(s.OrElse) || containsYield(s.Finally) {
				return true
			}
			for _, h := range s.Handlers {
				if containsYield(h.Body) {
					return true
				}
			}
		}
	}
	return false
}

func literalOf(e pysrc.Expr) (ir.Literal, bool) {
	switch e := e.(type) {
	case *pysrc.IntExpr:
		return ir.IntLit(e.Value), true
	case *pysrc.FloatExpr:
		return ir.FloatLit(e.Value), true
	case *pysrc.BoolExpr:
		return ir.BoolLit(e.Value), true
	case *pysrc.StrExpr:
		return ir.StrLit(e.Value), true
	case *pysrc.NoneExpr:
		return ir.NoneLit{}, true
	case *pysrc.UnaryExpr:
		if e.Op == pysrc.TokenMinus {
			switch inner := e.Operand.(type) {
			case *pysrc.IntExpr:
				return ir.IntLit(-inner.Value), true
			case *pysrc.FloatExpr:
				return ir.FloatLit(-inner.Value), true
			}
		}
	}
	return nil, false
}

// isPrivateName reports source-level privacy: a leading underscore that
// is not a dunder.
func isPrivateName(name string) bool {
	return strings.HasPrefix(name, "_") && !isDunder(name)
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// paramStatic resolves the full static type of a parameter for body
// lowering; ir.Param only carries the kind and class that emission needs.
func (b *Builder) paramStatic(class, fnName string, p pysrc.ParamNode) staticType {
	if p.Star || p.DoubleStar {
		return dynamicType()
	}
	oracleType, haveOracle := "", false
	if b.report != nil {
		oracleType, haveOracle = b.report.LookupParam(class, fnName, p.Name)
	}
	return b.resolveAnnotated(p.Annotation, oracleType, haveOracle)
}

func (b *Builder) buildFunctionBody(def *pysrc.FuncDef) error {
	f := b.module.Functions[def.Name]
	c := newFnCtx(b, nil, def.Name, f.IsGenerator)
	for i, p := range def.Params {
		t := b.paramStatic("", def.Name, p)
		if t.rt != nil {
			t = dynamicType() // boxed at the call boundary
		}
		// Reuse the declared C name; star captures carry a prefix so they
		// cannot collide with the wrapper's args array.
		c.vars[p.Name] = &varInfo{
			cName: f.Params[i].CName,
			t:     t,
			param: true,
		}
	}
	body, err := c.buildStmts(def.Body)
	if err != nil {
		return err
	}
	f.Body = body
	c.finish(&f.Locals, &f.MaxTemp, &f.UsesPrint, &f.UsesListOpt, &f.UsesBuiltins, &f.UsesCheckedDiv, &f.UsedRTuples)
	f.YieldStates = c.yields
	return nil
}
