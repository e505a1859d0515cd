package ir

import "fmt"

// Param is one function/method parameter.
type Param struct {
	Name    string
	CName   string
	Kind    Kind
	Class   string  // non-empty for class-typed parameters
	Default Literal // nil when the parameter has no default
}

// Local records the declared type of one local variable.
type Local struct {
	Name  string
	CName string
	Kind  Kind
	RT    *RTuple // non-nil for flat-tuple locals
}

// FuncIR is one top-level function.
type FuncIR struct {
	Name  string
	CName string

	Params     []Param
	RetKind    Kind
	Body       []Stmt
	Locals     []Local
	MaxTemp    int
	StarArgs   bool // trailing *args capture
	StarKwargs bool // trailing **kwargs capture

	IsGenerator bool
	YieldStates int // number of suspension points

	// Emission requirements discovered during building.
	UsesPrint      bool
	UsesListOpt    bool
	UsesBuiltins   bool
	UsesCheckedDiv bool
	UsedRTuples    []RTuple
}

// LocalByName returns the local descriptor for a Python name.
func (f *FuncIR) LocalByName(name string) (Local, bool) {
	for _, l := range f.Locals {
		if l.Name == name {
			return l, true
		}
	}
	return Local{}, false
}

// FieldIR is one declared class field.
type FieldIR struct {
	Name  string
	CName string
	Kind  Kind
	Class string // non-empty for class-typed fields (self-referential allowed)

	Default    Literal // nil when no literal default
	IsFinal    bool
	FinalValue Literal // folded literal for final fields; never stored
}

// MethodIR is one method of a class. It reuses the function body shape;
// dispatch flags decide whether a native entry, an mp wrapper, or both
// are emitted.
type MethodIR struct {
	Name  string
	CName string

	Params  []Param // excludes self
	RetKind Kind
	Body    []Stmt
	Locals  []Local
	MaxTemp int

	IsVirtual     bool
	IsStatic      bool
	IsClassMethod bool
	IsProperty    bool
	IsSetter      bool
	IsPrivate     bool
	IsFinal       bool
	IsSpecial     bool // __init__ and friends

	UsesPrint      bool
	UsesListOpt    bool
	UsesBuiltins   bool
	UsesCheckedDiv bool
	UsedRTuples    []RTuple
}

// VTableEntry is one slot of a class's virtual-dispatch table.
type VTableEntry struct {
	Name string
	Impl *ClassIR // class providing the implementation for this slot
}

// DataclassInfo configures auto-derivation for data-record classes.
// Frozen rejects all field stores at build time.
type DataclassInfo struct {
	Eq     bool
	Repr   bool
	Frozen bool
}

// ClassIR is one class of the module. Base is nil until ResolveBases has
// run; BaseName carries the source-level reference until then.
type ClassIR struct {
	Name  string
	CName string

	BaseName string
	Base     *ClassIR

	Fields      []FieldIR
	Methods     map[string]*MethodIR
	MethodOrder []string

	IsDataclass bool
	Dataclass   DataclassInfo
	IsFinal     bool // sealed: direct dispatch, no subclasses, no new slots

	// VTable is the override-aware ordered slot list, computed by
	// ComputeLayout after base resolution. Empty for sealed root classes;
	// sealed subclasses keep the slots their open ancestors opened.
	VTable []VTableEntry
}

// Depth returns the inheritance depth (0 for a root class).
func (c *ClassIR) Depth() int {
	d := 0
	for p := c.Base; p != nil; p = p.Base {
		d++
	}
	return d
}

// Root returns the base-most ancestor (possibly c itself). The vtable
// pointer lives in the root's struct.
func (c *ClassIR) Root() *ClassIR {
	r := c
	for r.Base != nil {
		r = r.Base
	}
	return r
}

// VTablePath returns the C member path from an instance pointer to its
// vtable pointer: one "super." hop per inheritance level.
func (c *ClassIR) VTablePath() string {
	path := ""
	for i := 0; i < c.Depth(); i++ {
		path += "super."
	}
	return path + "vtable"
}

// FieldPath returns the C member path to a field, walking up the base
// chain. The second result is the class that declares the field.
func (c *ClassIR) FieldPath(name string) (string, *FieldIR, bool) {
	prefix := ""
	for cls := c; cls != nil; cls = cls.Base {
		for i := range cls.Fields {
			if cls.Fields[i].Name == name {
				return prefix + cls.Fields[i].CName, &cls.Fields[i], true
			}
		}
		prefix += "super."
	}
	return "", nil, false
}

// MethodLookup finds a method walking up the base chain, returning the
// declaring class. Used for super() resolution and devirtualization.
func (c *ClassIR) MethodLookup(name string) (*MethodIR, *ClassIR, bool) {
	for cls := c; cls != nil; cls = cls.Base {
		if m, ok := cls.Methods[name]; ok {
			return m, cls, true
		}
	}
	return nil, nil, false
}

// ComputeLayout populates the vtable: the base's slots copied in order,
// overrides replacing their inherited slot in place, then this class's
// newly-declared virtuals appended in declaration order. A sealed root
// gets no vtable; a sealed subclass keeps the inherited slots populated
// (instances still flow into base-typed receivers that dispatch through
// them) but opens no new slots of its own. Must run after ResolveBases,
// parents first.
func (c *ClassIR) ComputeLayout() {
	if c.IsFinal && c.Base == nil {
		c.VTable = nil
		return
	}
	var table []VTableEntry
	if c.Base != nil {
		table = make([]VTableEntry, len(c.Base.VTable))
		copy(table, c.Base.VTable)
	}
	for _, name := range c.MethodOrder {
		m := c.Methods[name]
		if !m.IsVirtual || m.IsSpecial || m.IsPrivate {
			continue
		}
		replaced := false
		for i := range table {
			if table[i].Name == name {
				table[i].Impl = c
				replaced = true
				break
			}
		}
		if !replaced && !c.IsFinal {
			table = append(table, VTableEntry{Name: name, Impl: c})
		}
	}
	c.VTable = table
}

// FFIBinding records one extern call site delegated to the sibling
// binding generator: alias.member with the observed argument count.
type FFIBinding struct {
	Alias  string
	Member string
	NArgs  int
}

// ModuleIR is one source unit. Declaration order is preserved for
// deterministic registration-table emission and forward references.
type ModuleIR struct {
	Name  string
	CName string

	Functions     map[string]*FuncIR
	FunctionOrder []string
	Classes       map[string]*ClassIR
	ClassOrder    []string

	FFIBindings []FFIBinding
}

// NewModuleIR creates an empty module.
func NewModuleIR(name, cName string) *ModuleIR {
	return &ModuleIR{
		Name:      name,
		CName:     cName,
		Functions: make(map[string]*FuncIR),
		Classes:   make(map[string]*ClassIR),
	}
}

// AddFunction registers a function preserving declaration order.
func (m *ModuleIR) AddFunction(f *FuncIR) {
	m.Functions[f.Name] = f
	m.FunctionOrder = append(m.FunctionOrder, f.Name)
}

// AddClass registers a class preserving declaration order.
func (m *ModuleIR) AddClass(c *ClassIR) {
	m.Classes[c.Name] = c
	m.ClassOrder = append(m.ClassOrder, c.Name)
}

// AddFFIBinding records an extern call site, deduplicating on
// alias/member/arity.
func (m *ModuleIR) AddFFIBinding(b FFIBinding) {
	for _, have := range m.FFIBindings {
		if have == b {
			return
		}
	}
	m.FFIBindings = append(m.FFIBindings, b)
}

// ResolveBases wires Base pointers from BaseName in a second pass, so
// classes may reference bases declared later in the unit. Unknown bases
// are an error, not a silent dynamic fallback.
func (m *ModuleIR) ResolveBases() error {
	for _, name := range m.ClassOrder {
		c := m.Classes[name]
		if c.BaseName == "" {
			continue
		}
		base, ok := m.Classes[c.BaseName]
		if !ok {
			return fmt.Errorf("class %s: unknown base class %s", c.Name, c.BaseName)
		}
		if base == c {
			return fmt.Errorf("class %s: cannot inherit from itself", c.Name)
		}
		if base.IsFinal {
			return fmt.Errorf("class %s: cannot subclass final class %s", c.Name, base.Name)
		}
		c.Base = base
	}
	// Reject cycles before layout computation walks the chain.
	for _, name := range m.ClassOrder {
		seen := map[*ClassIR]bool{}
		for p := m.Classes[name]; p != nil; p = p.Base {
			if seen[p] {
				return fmt.Errorf("class %s: inheritance cycle through %s", name, p.Name)
			}
			seen[p] = true
		}
	}
	// A method marked final may not be overridden anywhere below its
	// declaring class.
	for _, name := range m.ClassOrder {
		c := m.Classes[name]
		if c.Base == nil {
			continue
		}
		for _, key := range c.MethodOrder {
			if inherited, owner, ok := c.Base.MethodLookup(key); ok && inherited.IsFinal {
				return fmt.Errorf("class %s: cannot override final method %s.%s", c.Name, owner.Name, key)
			}
		}
	}
	return nil
}

// ClassesInOrder returns classes parents-before-children so layout and
// emission see resolved bases first, preserving declaration order among
// unrelated classes.
func (m *ModuleIR) ClassesInOrder() []*ClassIR {
	var out []*ClassIR
	emitted := make(map[string]bool, len(m.ClassOrder))
	var emit func(c *ClassIR)
	emit = func(c *ClassIR) {
		if emitted[c.Name] {
			return
		}
		if c.Base != nil {
			emit(c.Base)
		}
		emitted[c.Name] = true
		out = append(out, c)
	}
	for _, name := range m.ClassOrder {
		emit(m.Classes[name])
	}
	return out
}
