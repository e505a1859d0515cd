package pysrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, input string) Stmt {
	t.Helper()
	mod, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	return mod.Body[0]
}

func TestParseFuncDef(t *testing.T) {
	input := "def add(a: int, b: int = 0) -> int:\n    return a + b\n"
	fn, ok := parseOne(t, input).(*FuncDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)

	assert.Equal(t, "a", fn.Params[0].Name)
	require.NotNil(t, fn.Params[0].Annotation)
	assert.Equal(t, "int", fn.Params[0].Annotation.Name)
	assert.Nil(t, fn.Params[0].Default)

	assert.Equal(t, "b", fn.Params[1].Name)
	require.NotNil(t, fn.Params[1].Default)
	assert.Equal(t, int64(0), fn.Params[1].Default.(*IntExpr).Value)

	require.NotNil(t, fn.Returns)
	assert.Equal(t, "int", fn.Returns.Name)

	require.Len(t, fn.Body, 1)
	ret := fn.Body[0].(*ReturnStmt)
	bin := ret.Value.(*BinaryExpr)
	assert.Equal(t, TokenPlus, bin.Op)
}

func TestParseStarParams(t *testing.T) {
	input := "def f(a: int, *args, **kwargs):\n    pass\n"
	fn := parseOne(t, input).(*FuncDef)
	require.Len(t, fn.Params, 3)
	assert.False(t, fn.Params[0].Star)
	assert.True(t, fn.Params[1].Star)
	assert.True(t, fn.Params[2].DoubleStar)
}

func TestParseParameterizedAnnotations(t *testing.T) {
	input := "def f(xs: list[int]) -> tuple[int, float]:\n    pass\n"
	fn := parseOne(t, input).(*FuncDef)
	assert.Equal(t, "list[int]", fn.Params[0].Annotation.String())
	assert.Equal(t, "tuple[int, float]", fn.Returns.String())
}

func TestParseClassDef(t *testing.T) {
	input := "class Dog(Animal):\n    def speak(self) -> str:\n        return \"woof\"\n"
	cls := parseOne(t, input).(*ClassDef)
	assert.Equal(t, "Dog", cls.Name)
	assert.Equal(t, "Animal", cls.Base)
	require.Len(t, cls.Body, 1)
	_, ok := cls.Body[0].(*FuncDef)
	assert.True(t, ok)
}

func TestParseDecorators(t *testing.T) {
	input := "@dataclass(eq=False)\nclass Point:\n    x: int\n    y: int\n"
	cls := parseOne(t, input).(*ClassDef)
	require.Len(t, cls.Decorators, 1)
	dec := cls.Decorators[0]
	assert.Equal(t, "dataclass", dec.Name)
	assert.True(t, dec.Called)
	require.Len(t, dec.Kwargs, 1)
	assert.Equal(t, "eq", dec.Kwargs[0].Name)
	assert.False(t, dec.Kwargs[0].Value.(*BoolExpr).Value)

	require.Len(t, cls.Body, 2)
	ann := cls.Body[0].(*AnnAssignStmt)
	assert.Equal(t, "x", ann.Target.(*NameExpr).Name)
	assert.Equal(t, "int", ann.Annotation.Name)
	assert.Nil(t, ann.Value)
}

func TestParseDottedDecorator(t *testing.T) {
	input := "class C:\n    @x.setter\n    def x(self, v: int):\n        pass\n"
	cls := parseOne(t, input).(*ClassDef)
	fn := cls.Body[0].(*FuncDef)
	require.Len(t, fn.Decorators, 1)
	assert.Equal(t, "x.setter", fn.Decorators[0].Name)
	assert.False(t, fn.Decorators[0].Called)
}

func TestParseElifChain(t *testing.T) {
	input := "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"
	stmt := parseOne(t, input).(*IfStmt)
	require.Len(t, stmt.Else, 1)
	nested := stmt.Else[0].(*IfStmt)
	require.Len(t, nested.Else, 1)
	_, ok := nested.Else[0].(*AssignStmt)
	assert.True(t, ok)
}

func TestParseForAndWhile(t *testing.T) {
	input := "for i in range(10):\n    while i > 0:\n        i -= 1\n"
	forStmt := parseOne(t, input).(*ForStmt)
	assert.Equal(t, "i", forStmt.Target.(*NameExpr).Name)
	call := forStmt.Iter.(*CallExpr)
	assert.Equal(t, "range", call.Func.(*NameExpr).Name)

	whileStmt := forStmt.Body[0].(*WhileStmt)
	aug := whileStmt.Body[0].(*AugAssignStmt)
	assert.Equal(t, TokenMinusEq, aug.Op)
}

func TestParseTryExceptFinally(t *testing.T) {
	input := "try:\n    risky()\nexcept ValueError as e:\n    pass\nexcept:\n    pass\nfinally:\n    cleanup()\n"
	stmt := parseOne(t, input).(*TryStmt)
	require.Len(t, stmt.Handlers, 2)
	assert.Equal(t, "ValueError", stmt.Handlers[0].Type)
	assert.Equal(t, "e", stmt.Handlers[0].Name)
	assert.Empty(t, stmt.Handlers[1].Type)
	require.Len(t, stmt.Finally, 1)
}

func TestParseImportAs(t *testing.T) {
	input := "import machine_ffi as hw\n"
	stmt := parseOne(t, input).(*ImportStmt)
	assert.Equal(t, "machine_ffi", stmt.Module)
	assert.Equal(t, "hw", stmt.Alias)
}

func TestParsePrecedence(t *testing.T) {
	// a + b * c parses as a + (b * c)
	stmt := parseOne(t, "x = a + b * c\n").(*AssignStmt)
	add := stmt.Value.(*BinaryExpr)
	assert.Equal(t, TokenPlus, add.Op)
	mul := add.Right.(*BinaryExpr)
	assert.Equal(t, TokenStar, mul.Op)

	// a | b & c parses as a | (b & c)
	stmt = parseOne(t, "x = a | b & c\n").(*AssignStmt)
	or := stmt.Value.(*BinaryExpr)
	assert.Equal(t, TokenPipe, or.Op)
	assert.Equal(t, TokenAmp, or.Right.(*BinaryExpr).Op)

	// comparison binds looser than arithmetic
	stmt = parseOne(t, "x = a + 1 < b\n").(*AssignStmt)
	cmp := stmt.Value.(*CompareExpr)
	assert.Equal(t, []TokenType{TokenLt}, cmp.Ops)
	assert.Equal(t, TokenPlus, cmp.Left.(*BinaryExpr).Op)
}

func TestParseChainedComparison(t *testing.T) {
	stmt := parseOne(t, "x = 0 <= i < n\n").(*AssignStmt)
	cmp := stmt.Value.(*CompareExpr)
	assert.Equal(t, []TokenType{TokenLe, TokenLt}, cmp.Ops)
	require.Len(t, cmp.Comparators, 2)
}

func TestParseMembership(t *testing.T) {
	stmt := parseOne(t, "x = k in d\n").(*AssignStmt)
	cmp := stmt.Value.(*CompareExpr)
	assert.Equal(t, []TokenType{TokenIn}, cmp.Ops)

	// "not in" wraps the membership test in a negation
	stmt = parseOne(t, "x = k not in d\n").(*AssignStmt)
	not := stmt.Value.(*UnaryExpr)
	assert.Equal(t, TokenNot, not.Op)
	inner := not.Operand.(*CompareExpr)
	assert.Equal(t, []TokenType{TokenIn}, inner.Ops)
}

func TestParseBoolChains(t *testing.T) {
	stmt := parseOne(t, "x = a and b and c or d\n").(*AssignStmt)
	or := stmt.Value.(*BoolOpExpr)
	assert.Equal(t, TokenOr, or.Op)
	require.Len(t, or.Values, 2)
	and := or.Values[0].(*BoolOpExpr)
	assert.Equal(t, TokenAnd, and.Op)
	assert.Len(t, and.Values, 3)
}

func TestParseCallWithKwargs(t *testing.T) {
	stmt := parseOne(t, "p = Point(1, y=2)\n").(*AssignStmt)
	call := stmt.Value.(*CallExpr)
	require.Len(t, call.Args, 1)
	require.Len(t, call.Kwargs, 1)
	assert.Equal(t, "y", call.Kwargs[0].Name)
}

func TestParseAttributeAndSubscript(t *testing.T) {
	stmt := parseOne(t, "v = self.items[0]\n").(*AssignStmt)
	sub := stmt.Value.(*SubscriptExpr)
	attr := sub.Value.(*AttrExpr)
	assert.Equal(t, "items", attr.Attr)
	assert.Equal(t, "self", attr.Value.(*NameExpr).Name)
	assert.Equal(t, int64(0), sub.Index.(*IntExpr).Value)
}

func TestParseContainerDisplays(t *testing.T) {
	stmt := parseOne(t, "x = [1, 2, 3]\n").(*AssignStmt)
	assert.Len(t, stmt.Value.(*ListExpr).Items, 3)

	stmt = parseOne(t, "x = (1, 2.5)\n").(*AssignStmt)
	assert.Len(t, stmt.Value.(*TupleExpr).Items, 2)

	stmt = parseOne(t, "x = {1, 2}\n").(*AssignStmt)
	assert.Len(t, stmt.Value.(*SetExpr).Items, 2)

	stmt = parseOne(t, "x = {\"a\": 1}\n").(*AssignStmt)
	assert.Len(t, stmt.Value.(*DictExpr).Items, 1)

	stmt = parseOne(t, "x = {}\n").(*AssignStmt)
	assert.Empty(t, stmt.Value.(*DictExpr).Items)
}

func TestParseListComprehension(t *testing.T) {
	stmt := parseOne(t, "x = [i * i for i in range(10) if i % 2 == 0]\n").(*AssignStmt)
	comp := stmt.Value.(*ListCompExpr)
	assert.Equal(t, "i", comp.Var)
	assert.NotNil(t, comp.Cond)

	stmt = parseOne(t, "x = [v + 1 for v in values]\n").(*AssignStmt)
	comp = stmt.Value.(*ListCompExpr)
	assert.Nil(t, comp.Cond)
}

func TestParseConditionalExpression(t *testing.T) {
	stmt := parseOne(t, "x = a if a > b else b\n").(*AssignStmt)
	ife := stmt.Value.(*IfExpExpr)
	assert.Equal(t, "a", ife.Then.(*NameExpr).Name)
	assert.Equal(t, "b", ife.Else.(*NameExpr).Name)
	_, ok := ife.Cond.(*CompareExpr)
	assert.True(t, ok)

	// The comprehension filter keeps its meaning next to the ternary form.
	comp := parseOne(t, "x = [i if i > 0 else 0 for i in xs if i != 9]\n").(*AssignStmt).
		Value.(*ListCompExpr)
	_, ok = comp.Elt.(*IfExpExpr)
	assert.True(t, ok)
	assert.NotNil(t, comp.Cond)
}

func TestParseYield(t *testing.T) {
	input := "def gen(n: int):\n    for i in range(n):\n        yield i\n"
	fn := parseOne(t, input).(*FuncDef)
	forStmt := fn.Body[0].(*ForStmt)
	y := forStmt.Body[0].(*YieldStmt)
	assert.NotNil(t, y.Value)
}

func TestParseRaise(t *testing.T) {
	stmt := parseOne(t, "raise ValueError(\"bad\")\n").(*RaiseStmt)
	call := stmt.Exc.(*CallExpr)
	assert.Equal(t, "ValueError", call.Func.(*NameExpr).Name)

	bare := parseOne(t, "raise\n").(*RaiseStmt)
	assert.Nil(t, bare.Exc)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"lambda", "f = lambda x: x\n", "lambda"},
		{"global", "global x\n", "global"},
		{"with", "with open(f) as fp:\n    pass\n", "with"},
		{"del", "del x\n", "del"},
		{"assert", "assert x\n", "assert"},
		{"from import", "from os import path\n", "from-imports"},
		{"power", "x = a ** 2\n", "** operator"},
		{"slice", "x = xs[1:2]\n", "slice"},
		{"chained assign", "a = b = 1\n", "chained assignment"},
		{"multiple bases", "class C(A, B):\n    pass\n", "multiple inheritance"},
		{"tuple for target", "for a, b in pairs:\n    pass\n", "tuple unpacking"},
		{"yield from", "def g():\n    yield from other()\n", "yield from"},
		{"nested comp", "x = [i for i in a for j in b]\n", "nested comprehension"},
		{"while else", "while x:\n    pass\nelse:\n    pass\n", "while/else"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("x = 1\ny = lambda z: z\n")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Pos.Line)
}

func TestParseWholeModule(t *testing.T) {
	input := `import sensor_ffi as hw

GRAVITY: float = 9.81

def clamp(v: int, lo: int, hi: int) -> int:
    if v < lo:
        return lo
    if v > hi:
        return hi
    return v

class Animal:
    def __init__(self, name: str):
        self.name = name

    def speak(self) -> str:
        return "..."

class Dog(Animal):
    def speak(self) -> str:
        return "woof"
`
	mod, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, mod.Body, 5)
	_, ok := mod.Body[0].(*ImportStmt)
	assert.True(t, ok)
	_, ok = mod.Body[1].(*AnnAssignStmt)
	assert.True(t, ok)
	_, ok = mod.Body[2].(*FuncDef)
	assert.True(t, ok)
	_, ok = mod.Body[3].(*ClassDef)
	assert.True(t, ok)
	dog := mod.Body[4].(*ClassDef)
	assert.Equal(t, "Animal", dog.Base)
}
