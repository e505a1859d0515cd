package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClass(name, base string, virtuals ...string) *ClassIR {
	c := &ClassIR{
		Name:     name,
		CName:    SanitizeName(name),
		BaseName: base,
		Methods:  make(map[string]*MethodIR),
	}
	for _, v := range virtuals {
		c.Methods[v] = &MethodIR{Name: v, CName: SanitizeName(v), IsVirtual: true}
		c.MethodOrder = append(c.MethodOrder, v)
	}
	return c
}

func TestResolveBasesSecondPass(t *testing.T) {
	m := NewModuleIR("m", "m")
	// Child declared before its base: resolution is a second pass.
	child := newClass("Child", "Base")
	base := newClass("Base", "")
	m.AddClass(child)
	m.AddClass(base)

	require.NoError(t, m.ResolveBases())
	assert.Same(t, base, child.Base)
	assert.Nil(t, base.Base)
}

func TestResolveBasesUnknownBase(t *testing.T) {
	m := NewModuleIR("m", "m")
	m.AddClass(newClass("Child", "Missing"))

	err := m.ResolveBases()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown base class Missing")
}

func TestResolveBasesRejectsSelfInheritance(t *testing.T) {
	m := NewModuleIR("m", "m")
	m.AddClass(newClass("A", "A"))

	err := m.ResolveBases()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot inherit from itself")
}

func TestResolveBasesRejectsCycle(t *testing.T) {
	m := NewModuleIR("m", "m")
	m.AddClass(newClass("A", "B"))
	m.AddClass(newClass("B", "A"))

	err := m.ResolveBases()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inheritance cycle")
}

func TestClassesInOrderParentsFirst(t *testing.T) {
	m := NewModuleIR("m", "m")
	child := newClass("Child", "Base")
	base := newClass("Base", "")
	m.AddClass(child)
	m.AddClass(base)
	require.NoError(t, m.ResolveBases())

	ordered := m.ClassesInOrder()
	require.Len(t, ordered, 2)
	assert.Equal(t, "Base", ordered[0].Name)
	assert.Equal(t, "Child", ordered[1].Name)
}

func TestComputeLayoutInheritThenOverride(t *testing.T) {
	m := NewModuleIR("m", "m")
	base := newClass("Animal", "", "speak", "name")
	child := newClass("Dog", "Animal", "speak", "fetch")
	m.AddClass(base)
	m.AddClass(child)
	require.NoError(t, m.ResolveBases())

	base.ComputeLayout()
	child.ComputeLayout()

	// Base slots in declaration order.
	require.Len(t, base.VTable, 2)
	assert.Equal(t, "speak", base.VTable[0].Name)
	assert.Same(t, base, base.VTable[0].Impl)

	// Child: override replaces the inherited slot in place, new virtuals
	// append after inherited ones.
	require.Len(t, child.VTable, 3)
	assert.Equal(t, "speak", child.VTable[0].Name)
	assert.Same(t, child, child.VTable[0].Impl)
	assert.Equal(t, "name", child.VTable[1].Name)
	assert.Same(t, base, child.VTable[1].Impl)
	assert.Equal(t, "fetch", child.VTable[2].Name)
	assert.Same(t, child, child.VTable[2].Impl)
}

func TestComputeLayoutSealedClassHasNoVTable(t *testing.T) {
	c := newClass("Point", "", "norm")
	c.IsFinal = true
	c.ComputeLayout()
	assert.Empty(t, c.VTable)
}

func TestComputeLayoutSealedSubclassKeepsInheritedSlots(t *testing.T) {
	m := NewModuleIR("m", "m")
	base := newClass("Animal", "", "speak")
	child := newClass("Dog", "Animal", "speak", "fetch")
	child.IsFinal = true
	m.AddClass(base)
	m.AddClass(child)
	require.NoError(t, m.ResolveBases())

	base.ComputeLayout()
	child.ComputeLayout()

	// Instances still reach base-typed receivers, so the inherited slot
	// stays populated with the override; no new slot opens.
	require.Len(t, child.VTable, 1)
	assert.Equal(t, "speak", child.VTable[0].Name)
	assert.Same(t, child, child.VTable[0].Impl)
}

func TestResolveBasesRejectsSubclassOfFinal(t *testing.T) {
	m := NewModuleIR("m", "m")
	base := newClass("Point", "")
	base.IsFinal = true
	m.AddClass(base)
	m.AddClass(newClass("Point3D", "Point"))

	err := m.ResolveBases()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot subclass final class Point")
}

func TestResolveBasesRejectsFinalMethodOverride(t *testing.T) {
	m := NewModuleIR("m", "m")
	base := newClass("Animal", "", "speak")
	base.Methods["speak"].IsFinal = true
	m.AddClass(base)
	m.AddClass(newClass("Dog", "Animal", "speak"))

	err := m.ResolveBases()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot override final method Animal.speak")
}

func TestComputeLayoutSkipsPrivateAndSpecial(t *testing.T) {
	c := newClass("C", "")
	c.Methods["__init__"] = &MethodIR{Name: "__init__", IsVirtual: true, IsSpecial: true}
	c.Methods["_hidden"] = &MethodIR{Name: "_hidden", IsVirtual: true, IsPrivate: true}
	c.Methods["visible"] = &MethodIR{Name: "visible", IsVirtual: true}
	c.MethodOrder = []string{"__init__", "_hidden", "visible"}

	c.ComputeLayout()
	require.Len(t, c.VTable, 1)
	assert.Equal(t, "visible", c.VTable[0].Name)
}

func TestVTablePathDepth(t *testing.T) {
	m := NewModuleIR("m", "m")
	a := newClass("A", "")
	b := newClass("B", "A")
	c := newClass("C", "B")
	m.AddClass(a)
	m.AddClass(b)
	m.AddClass(c)
	require.NoError(t, m.ResolveBases())

	assert.Equal(t, "vtable", a.VTablePath())
	assert.Equal(t, "super.vtable", b.VTablePath())
	assert.Equal(t, "super.super.vtable", c.VTablePath())
	assert.Same(t, a, c.Root())
}

func TestFieldPathWalksBaseChain(t *testing.T) {
	m := NewModuleIR("m", "m")
	a := newClass("A", "")
	a.Fields = []FieldIR{{Name: "x", CName: "x", Kind: KindInt}}
	b := newClass("B", "A")
	b.Fields = []FieldIR{{Name: "y", CName: "y", Kind: KindInt}}
	m.AddClass(a)
	m.AddClass(b)
	require.NoError(t, m.ResolveBases())

	path, field, ok := b.FieldPath("y")
	require.True(t, ok)
	assert.Equal(t, "y", path)
	assert.Equal(t, KindInt, field.Kind)

	path, field, ok = b.FieldPath("x")
	require.True(t, ok)
	assert.Equal(t, "super.x", path)
	assert.Equal(t, "x", field.Name)

	_, _, ok = b.FieldPath("z")
	assert.False(t, ok)
}

func TestMethodLookupWalksBaseChain(t *testing.T) {
	m := NewModuleIR("m", "m")
	a := newClass("A", "", "describe")
	b := newClass("B", "A")
	m.AddClass(a)
	m.AddClass(b)
	require.NoError(t, m.ResolveBases())

	meth, owner, ok := b.MethodLookup("describe")
	require.True(t, ok)
	assert.Equal(t, "describe", meth.Name)
	assert.Same(t, a, owner)
}

func TestAddFFIBindingDeduplicates(t *testing.T) {
	m := NewModuleIR("m", "m")
	m.AddFFIBinding(FFIBinding{Alias: "gpio", Member: "read", NArgs: 1})
	m.AddFFIBinding(FFIBinding{Alias: "gpio", Member: "read", NArgs: 1})
	m.AddFFIBinding(FFIBinding{Alias: "gpio", Member: "write", NArgs: 2})
	assert.Len(t, m.FFIBindings, 2)
}
