package irbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pyrite/internal/ir"
	"github.com/roach88/pyrite/internal/oracle"
	"github.com/roach88/pyrite/internal/pysrc"
)

func build(t *testing.T, src string) *ir.ModuleIR {
	t.Helper()
	mod, err := pysrc.Parse(src)
	require.NoError(t, err)
	out, err := New("demo", nil).Build(mod)
	require.NoError(t, err)
	return out
}

func buildWithOracle(t *testing.T, src string, types map[string]string) *ir.ModuleIR {
	t.Helper()
	mod, err := pysrc.Parse(src)
	require.NoError(t, err)
	out, err := New("demo", &oracle.Report{Module: "demo", Types: types}).Build(mod)
	require.NoError(t, err)
	return out
}

func buildErr(t *testing.T, src string) error {
	t.Helper()
	mod, err := pysrc.Parse(src)
	require.NoError(t, err)
	_, err = New("demo", nil).Build(mod)
	require.Error(t, err)
	return err
}

func TestFunctionSignature(t *testing.T) {
	out := build(t, `
def scale(x: int, factor: float) -> float:
    return x * factor
`)
	f := out.Functions["scale"]
	require.NotNil(t, f)
	require.Len(t, f.Params, 2)
	assert.Equal(t, ir.KindInt, f.Params[0].Kind)
	assert.Equal(t, ir.KindFloat, f.Params[1].Kind)
	assert.Equal(t, ir.KindFloat, f.RetKind)

	require.Len(t, f.Body, 1)
	ret := f.Body[0].(ir.Return)
	bin := ret.Value.(ir.Binary)
	assert.Equal(t, ir.OpMul, bin.Op)
	assert.Equal(t, ir.KindFloat, bin.Kind)
}

func TestBinaryKindResolution(t *testing.T) {
	out := build(t, `
def f(a: int, b) -> int:
    return a + b

def g(a, b):
    return a - b
`)
	// Boxed operand resolves toward the unboxed one.
	bin := out.Functions["f"].Body[0].(ir.Return).Value.(ir.Binary)
	assert.Equal(t, ir.KindInt, bin.Kind)

	// Two boxed operands stay boxed for the runtime.
	bin = out.Functions["g"].Body[0].(ir.Return).Value.(ir.Binary)
	assert.Equal(t, ir.KindDynamic, bin.Kind)
}

func TestCheckedDivisionFlag(t *testing.T) {
	out := build(t, `
def f(a: int, b: int) -> int:
    return a // b
`)
	assert.True(t, out.Functions["f"].UsesCheckedDiv)
}

func TestOracleOverridesInference(t *testing.T) {
	out := buildWithOracle(t, `
def f() -> float:
    x = 1
    return x
`, map[string]string{"f.<local>.x": "float"})
	f := out.Functions["f"]
	assign := f.Body[0].(ir.Assign)
	assert.Equal(t, ir.KindFloat, assign.Kind)
	assert.True(t, assign.Declare)
}

func TestClassLayoutAndInheritance(t *testing.T) {
	out := build(t, `
class Animal:
    name: str

    def speak(self) -> int:
        return 1

class Dog(Animal):
    def speak(self) -> int:
        return 2

    def fetch(self) -> int:
        return 3
`)
	animal := out.Classes["Animal"]
	dog := out.Classes["Dog"]
	require.NotNil(t, animal)
	require.NotNil(t, dog)
	assert.Same(t, animal, dog.Base)
	assert.Equal(t, 1, dog.Depth())
	assert.Equal(t, "super.vtable", dog.VTablePath())

	// Override replaces the inherited slot in place; new virtuals append.
	require.Len(t, dog.VTable, 2)
	assert.Equal(t, "speak", dog.VTable[0].Name)
	assert.Same(t, dog, dog.VTable[0].Impl)
	assert.Equal(t, "fetch", dog.VTable[1].Name)

	path, field, found := dog.FieldPath("name")
	require.True(t, found)
	assert.Equal(t, "super.name", path)
	assert.Equal(t, ir.KindDynamic, field.Kind)
}

func TestVirtualDispatchThroughVTable(t *testing.T) {
	out := build(t, `
class Animal:
    def speak(self) -> int:
        return 1

def poke(a: Animal) -> int:
    return a.speak()
`)
	ret := out.Functions["poke"].Body[0].(ir.Return)
	call := ret.Value.(ir.VCall)
	assert.Equal(t, "vtable", call.VtablePath)
	assert.Equal(t, "speak", call.Method)
	assert.Equal(t, ir.KindInt, call.Kind)
}

func TestSealedClassCallsDirect(t *testing.T) {
	out := build(t, `
@final
class Cat:
    def speak(self) -> int:
        return 4

def poke(c: Cat) -> int:
    return c.speak()
`)
	cat := out.Classes["Cat"]
	assert.True(t, cat.IsFinal)
	assert.Empty(t, cat.VTable)

	ret := out.Functions["poke"].Body[0].(ir.Return)
	call := ret.Value.(ir.NCall)
	assert.Equal(t, "Cat_speak_native", call.Target)
}

func TestSubclassOfSealedClassRejected(t *testing.T) {
	err := buildErr(t, `
@final
class Cat:
    def speak(self) -> int:
        return 1

class Kitten(Cat):
    pass
`)
	assert.Contains(t, err.Error(), "cannot subclass final class Cat")
}

func TestFinalMethodOverrideRejected(t *testing.T) {
	err := buildErr(t, `
class Animal:
    @final
    def speak(self) -> int:
        return 1

class Dog(Animal):
    def speak(self) -> int:
        return 2
`)
	assert.Contains(t, err.Error(), "cannot override final method Animal.speak")
}

func TestStarArgsBodyUsesCaptureName(t *testing.T) {
	out := build(t, `
def collect(*args) -> int:
    return len(args)
`)
	f := out.Functions["collect"]
	require.True(t, f.StarArgs)
	require.Len(t, f.Params, 1)
	assert.Equal(t, "_star_args", f.Params[0].CName)

	// The body reference resolves to the declared capture, not the raw
	// wrapper array.
	arg := f.Body[0].(ir.Return).Value.(ir.Builtin).Args[0].(ir.Name)
	assert.Equal(t, "args", arg.Py)
	assert.Equal(t, "_star_args", arg.C)
}

func TestSelfCallsAreDirect(t *testing.T) {
	out := build(t, `
class Counter:
    def step(self) -> int:
        return 1

    def run(self) -> int:
        return self.step()
`)
	run := out.Classes["Counter"].Methods["run"]
	call := run.Body[0].(ir.Return).Value.(ir.NCall)
	assert.Equal(t, "Counter_step_native", call.Target)
	assert.IsType(t, ir.SelfRef{}, call.Recv)
}

func TestFinalFieldFoldsToConstant(t *testing.T) {
	out := build(t, `
class Config:
    LIMIT: Final[int] = 10

    def limit(self) -> int:
        return self.LIMIT
`)
	cfg := out.Classes["Config"]
	require.Len(t, cfg.Fields, 1)
	assert.True(t, cfg.Fields[0].IsFinal)
	assert.Equal(t, ir.IntLit(10), cfg.Fields[0].FinalValue)

	ret := cfg.Methods["limit"].Body[0].(ir.Return)
	assert.Equal(t, ir.Const{Value: ir.IntLit(10)}, ret.Value)
}

func TestFinalFieldWriteRejected(t *testing.T) {
	err := buildErr(t, `
class Config:
    LIMIT: Final[int] = 10

    def bump(self) -> None:
        self.LIMIT = 11
`)
	assert.Contains(t, err.Error(), "final field")
}

func TestFlatTupleLocal(t *testing.T) {
	out := build(t, `
def origin() -> float:
    p: tuple[int, float] = (1, 2.5)
    return p[1]
`)
	f := out.Functions["origin"]
	assign := f.Body[0].(ir.Assign)
	require.NotNil(t, assign.RT)
	assert.Equal(t, "rtuple_int_float_t", assign.RT.StructName())
	_, isNew := assign.Value.(ir.RTupleNew)
	assert.True(t, isNew)

	field := f.Body[1].(ir.Return).Value.(ir.RTupleField)
	assert.Equal(t, 1, field.Index)
	assert.Equal(t, ir.KindFloat, field.Kind)
	require.Len(t, f.UsedRTuples, 1)
}

func TestFlatTupleIndexOutOfRange(t *testing.T) {
	err := buildErr(t, `
def f() -> int:
    p: tuple[int, int] = (1, 2)
    return p[2]
`)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRangeLoopDirections(t *testing.T) {
	out := build(t, `
def down(n: int) -> None:
    for i in range(10, 0, -1):
        pass

def dynamic(n: int) -> None:
    for i in range(0, 10, n):
        pass
`)
	loop := out.Functions["down"].Body[0].(ir.ForRange)
	assert.True(t, loop.StepConst)
	assert.Equal(t, int64(-1), loop.StepValue)

	loop = out.Functions["dynamic"].Body[0].(ir.ForRange)
	assert.False(t, loop.StepConst)
}

func TestRangeZeroStepRejected(t *testing.T) {
	err := buildErr(t, `
def f() -> None:
    for i in range(0, 10, 0):
        pass
`)
	assert.Contains(t, err.Error(), "step must not be zero")
}

func TestGeneratorLowering(t *testing.T) {
	out := build(t, `
def count(n: int):
    for i in range(n):
        yield i
`)
	f := out.Functions["count"]
	assert.True(t, f.IsGenerator)
	assert.Equal(t, ir.KindDynamic, f.RetKind)
	assert.Equal(t, 1, f.YieldStates)

	loop := f.Body[0].(ir.ForRange)
	y := loop.Body[0].(ir.Yield)
	assert.Equal(t, 1, y.StateID)
}

func TestGeneratorRestrictions(t *testing.T) {
	err := buildErr(t, `
def g(n: int):
    yield 1
    return 2
`)
	assert.Contains(t, err.Error(), "inside generators")

	err = buildErr(t, `
def g(n: int):
    for i in range(0, n, 2):
        yield i
`)
	assert.Contains(t, err.Error(), "constant step of 1")
}

func TestLoopControlOutsideLoop(t *testing.T) {
	err := buildErr(t, `
def f() -> None:
    break
`)
	assert.Contains(t, err.Error(), "break outside loop")
}

func TestExternBindingsDeduplicated(t *testing.T) {
	out := build(t, `
import machine as hw

def f() -> None:
    hw.reset()
    hw.reset()
`)
	require.Len(t, out.FFIBindings, 1)
	assert.Equal(t, ir.FFIBinding{Alias: "hw", Member: "reset", NArgs: 0}, out.FFIBindings[0])
}

func TestPrintStatement(t *testing.T) {
	out := build(t, `
def f(x: int) -> None:
    print(x, 2)
`)
	f := out.Functions["f"]
	assert.True(t, f.UsesPrint)
	p := f.Body[0].(ir.Print)
	require.Len(t, p.Args, 2)
}

func TestDiscardedMethodCallHasNoResult(t *testing.T) {
	out := build(t, `
def f(xs) -> None:
    xs.append(1)
`)
	stmt := out.Functions["f"].Body[0].(ir.ExprStmt)
	require.Len(t, stmt.Prelude, 1)
	call := stmt.Prelude[0].(ir.MethodCall)
	assert.Equal(t, ir.MethodAppend, call.Op)
	assert.Nil(t, call.Result)
}

func TestListFastPaths(t *testing.T) {
	out := build(t, `
def f(xs: list[int]) -> int:
    return len(xs) + xs[0]
`)
	f := out.Functions["f"]
	assert.True(t, f.UsesListOpt)
	ret := f.Body[0].(ir.Return)
	bin := ret.Value.(ir.Binary)
	b := bin.Left.(ir.Builtin)
	assert.True(t, b.ListFast)
	require.Len(t, ret.Prelude, 1)
	assert.IsType(t, ir.FastGetItem{}, ret.Prelude[0])
}

func TestDataclassOptions(t *testing.T) {
	out := build(t, `
@dataclass(eq=False, frozen=True)
class Point:
    x: int
    y: int
`)
	p := out.Classes["Point"]
	assert.True(t, p.IsDataclass)
	assert.False(t, p.Dataclass.Eq)
	assert.True(t, p.Dataclass.Repr)
	assert.True(t, p.Dataclass.Frozen)
}

func TestDataclassWithInitRejected(t *testing.T) {
	err := buildErr(t, `
@dataclass
class Point:
    x: int

    def __init__(self, x: int) -> None:
        self.x = x
`)
	assert.Contains(t, err.Error(), "cannot also define __init__")
}

func TestInitFieldInference(t *testing.T) {
	out := build(t, `
class Node:
    def __init__(self, value: int) -> None:
        self.value = value
`)
	node := out.Classes["Node"]
	require.Len(t, node.Fields, 1)
	assert.Equal(t, "value", node.Fields[0].Name)
	assert.Equal(t, ir.KindInt, node.Fields[0].Kind)
}

func TestPrivateMethodOutsideClass(t *testing.T) {
	err := buildErr(t, `
class Safe:
    def _hidden(self) -> int:
        return 1

def f(s: Safe) -> int:
    return s._hidden()
`)
	assert.Contains(t, err.Error(), "private")
}

func TestSuperCallResolution(t *testing.T) {
	out := build(t, `
class Base:
    def __init__(self, x: int) -> None:
        self.x = x

    def value(self) -> int:
        return self.x

class Child(Base):
    def __init__(self, x: int) -> None:
        super().__init__(x)

    def value(self) -> int:
        return super().value() + 1
`)
	child := out.Classes["Child"]
	init := child.Methods["__init__"].Body[0].(ir.ExprStmt)
	sc := init.Value.(ir.SuperCall)
	assert.True(t, sc.IsInit)
	assert.Equal(t, "Base", sc.ParentC)

	val := child.Methods["value"].Body[0].(ir.Return).Value.(ir.Binary)
	sc = val.Left.(ir.SuperCall)
	assert.False(t, sc.IsInit)
	assert.Equal(t, "Base_value", sc.MethodC)
}

func TestConstructorCall(t *testing.T) {
	out := build(t, `
class Point:
    def __init__(self, x: int, y: int) -> None:
        self.x = x
        self.y = y

def make() -> None:
    p = Point(1, 2)
`)
	assign := out.Functions["make"].Body[0].(ir.Assign)
	ctor := assign.Value.(ir.CtorCall)
	assert.Equal(t, "Point", ctor.ClassC)
	require.Len(t, ctor.Args, 2)
}

func TestConstructorArityChecked(t *testing.T) {
	err := buildErr(t, `
class Point:
    def __init__(self, x: int, y: int) -> None:
        self.x = x
        self.y = y

def make() -> None:
    p = Point(1)
`)
	assert.Contains(t, err.Error(), "argument")
}

func TestTopLevelStatementRejected(t *testing.T) {
	err := buildErr(t, `
x = 1
`)
	assert.Contains(t, err.Error(), "module level")
}

func TestUndefinedNameRejected(t *testing.T) {
	err := buildErr(t, `
def f() -> int:
    return missing
`)
	assert.Contains(t, err.Error(), "undefined name")
}

func TestUnknownBaseClass(t *testing.T) {
	err := buildErr(t, `
class Dog(Animal):
    pass
`)
	assert.Contains(t, err.Error(), "unknown base class")
}

func TestForwardBaseReference(t *testing.T) {
	out := build(t, `
class Dog(Animal):
    def speak(self) -> int:
        return 2

class Animal:
    def speak(self) -> int:
        return 1
`)
	dog := out.Classes["Dog"]
	require.NotNil(t, dog.Base)
	assert.Equal(t, "Animal", dog.Base.Name)

	ordered := out.ClassesInOrder()
	assert.Equal(t, "Animal", ordered[0].Name)
	assert.Equal(t, "Dog", ordered[1].Name)
}

func TestBuildErrorPosition(t *testing.T) {
	mod, err := pysrc.Parse(`
def f() -> None:
    break
`)
	require.NoError(t, err)
	_, err = New("demo", nil).Build(mod)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 3, be.Pos.Line)
}

func TestListComprehension(t *testing.T) {
	out := build(t, `
def squares(n: int):
    result = [i * i for i in range(n) if i % 2 == 0]
`)
	f := out.Functions["squares"]
	assign := f.Body[0].(ir.Assign)
	require.NotEmpty(t, assign.Prelude)
	comp := assign.Prelude[len(assign.Prelude)-1].(ir.ListComp)
	assert.True(t, comp.IsRange)
	assert.NotNil(t, comp.Condition)
	assert.Equal(t, "i", comp.CLoopVar)
}

func TestMembershipComparison(t *testing.T) {
	out := build(t, `
def f(x, xs) -> bool:
    return x in xs
`)
	cmp := out.Functions["f"].Body[0].(ir.Return).Value.(ir.Compare)
	require.Len(t, cmp.Ops, 1)
	assert.Equal(t, ir.CmpIn, cmp.Ops[0])
}

func TestPropertyAndSetter(t *testing.T) {
	out := build(t, `
class Temp:
    def __init__(self, c: float) -> None:
        self._c = c

    @property
    def celsius(self) -> float:
        return self._c

    @celsius.setter
    def celsius(self, value: float) -> None:
        self._c = value
`)
	temp := out.Classes["Temp"]
	getter := temp.Methods["celsius"]
	require.NotNil(t, getter)
	assert.True(t, getter.IsProperty)

	setter := temp.Methods["celsius.setter"]
	require.NotNil(t, setter)
	assert.True(t, setter.IsSetter)
	assert.Equal(t, "Temp_celsius_set", setter.CName)
}
