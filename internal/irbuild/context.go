package irbuild

import (
	"fmt"
	"sort"

	"github.com/roach88/pyrite/internal/ir"
)

// varInfo is the builder's view of one in-scope binding.
type varInfo struct {
	cName string
	t     staticType
	param bool
}

// fnCtx is the per-translation state for one function or method body.
// A fresh context is created for every body; nothing leaks between
// translations.
type fnCtx struct {
	b       *Builder
	class   *ir.ClassIR // receiver class in method context
	hasSelf bool
	fnName  string
	isGen   bool

	vars   map[string]*varInfo
	locals []ir.Local
	temp   int
	loops  int
	yields int

	usesPrint      bool
	usesListOpt    bool
	usesBuiltins   bool
	usesCheckedDiv bool
	rtuples        map[string]ir.RTuple
}

func newFnCtx(b *Builder, class *ir.ClassIR, fnName string, isGen bool) *fnCtx {
	return &fnCtx{
		b:       b,
		class:   class,
		fnName:  fnName,
		isGen:   isGen,
		vars:    make(map[string]*varInfo),
		rtuples: make(map[string]ir.RTuple),
	}
}

func (c *fnCtx) className() string {
	if c.class == nil {
		return ""
	}
	return c.class.Name
}

func (c *fnCtx) newTemp(kind ir.Kind) ir.Temp {
	t := ir.Temp{Name: fmt.Sprintf("_t%d", c.temp), Kind: kind}
	c.temp++
	return t
}

// declareLocal registers a new binding and its backing C variable.
func (c *fnCtx) declareLocal(name string, t staticType) *varInfo {
	v := &varInfo{cName: ir.SanitizeName(name), t: t}
	c.vars[name] = v
	c.locals = append(c.locals, ir.Local{
		Name:  name,
		CName: v.cName,
		Kind:  t.kind,
		RT:    t.rt,
	})
	if t.rt != nil {
		c.rtuples[t.rt.Key()] = *t.rt
	}
	return v
}

// localType resolves a local's type from the oracle report, when present.
func (c *fnCtx) localType(name string) (staticType, bool) {
	if c.b.report == nil {
		return staticType{}, false
	}
	typ, ok := c.b.report.LookupLocal(c.className(), c.fnName, name)
	if !ok {
		return staticType{}, false
	}
	ref := parseTypeString(typ)
	if ref == nil {
		return staticType{}, false
	}
	return c.b.resolveTypeRef(ref), true
}

// finish copies the accumulated per-translation facts onto the owning
// function or method record.
func (c *fnCtx) finish(locals *[]ir.Local, maxTemp *int, usesPrint, usesListOpt, usesBuiltins, usesCheckedDiv *bool, usedRTuples *[]ir.RTuple) {
	*locals = c.locals
	*maxTemp = c.temp
	*usesPrint = c.usesPrint
	*usesListOpt = c.usesListOpt
	*usesBuiltins = c.usesBuiltins
	*usesCheckedDiv = c.usesCheckedDiv

	keys := make([]string, 0, len(c.rtuples))
	for k := range c.rtuples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		*usedRTuples = append(*usedRTuples, c.rtuples[k])
	}
}
