package ir

// Literal is a sealed interface over source literal values.
// Only IntLit, FloatLit, BoolLit, StrLit and NoneLit implement it.
type Literal interface {
	literal() // Sealed - only these types implement it
}

// IntLit is an integer literal.
type IntLit int64

func (IntLit) literal() {}

// FloatLit is a floating-point literal.
type FloatLit float64

func (FloatLit) literal() {}

// BoolLit is a boolean literal.
type BoolLit bool

func (BoolLit) literal() {}

// StrLit is a string literal.
type StrLit string

func (StrLit) literal() {}

// NoneLit is the None literal.
type NoneLit struct{}

func (NoneLit) literal() {}

// LiteralKind returns the representation kind of a literal value.
// Strings and None are always boxed.
func LiteralKind(l Literal) Kind {
	switch l.(type) {
	case IntLit:
		return KindInt
	case FloatLit:
		return KindFloat
	case BoolLit:
		return KindBool
	default:
		return KindDynamic
	}
}

// BinOp enumerates the binary arithmetic operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
)

// CToken returns the C operator token. Floor division and modulo on
// native integers go through checked helpers instead; see cemit.
func (op BinOp) CToken() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpTrueDiv, OpFloorDiv:
		return "/"
	case OpMod:
		return "%"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpShl:
		return "<<"
	case OpShr:
		return ">>"
	default:
		return "+"
	}
}

// RuntimeOp returns the MicroPython binary-op constant used when either
// operand is boxed.
func (op BinOp) RuntimeOp() string {
	switch op {
	case OpAdd:
		return "MP_BINARY_OP_ADD"
	case OpSub:
		return "MP_BINARY_OP_SUBTRACT"
	case OpMul:
		return "MP_BINARY_OP_MULTIPLY"
	case OpTrueDiv:
		return "MP_BINARY_OP_TRUE_DIVIDE"
	case OpFloorDiv:
		return "MP_BINARY_OP_FLOOR_DIVIDE"
	case OpMod:
		return "MP_BINARY_OP_MODULO"
	case OpBitAnd:
		return "MP_BINARY_OP_AND"
	case OpBitOr:
		return "MP_BINARY_OP_OR"
	case OpBitXor:
		return "MP_BINARY_OP_XOR"
	case OpShl:
		return "MP_BINARY_OP_LSHIFT"
	case OpShr:
		return "MP_BINARY_OP_RSHIFT"
	default:
		return "MP_BINARY_OP_ADD"
	}
}

// CmpOp enumerates comparison operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpIn // membership; always lowered through the runtime
	CmpIs // identity; object-pointer equality on boxed values
)

// CToken returns the C comparison token.
func (op CmpOp) CToken() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNe:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpGe:
		return ">="
	default:
		return "=="
	}
}

// RuntimeOp returns the MicroPython binary-op constant for boxed
// comparisons.
func (op CmpOp) RuntimeOp() string {
	switch op {
	case CmpEq:
		return "MP_BINARY_OP_EQUAL"
	case CmpNe:
		return "MP_BINARY_OP_NOT_EQUAL"
	case CmpLt:
		return "MP_BINARY_OP_LESS"
	case CmpLe:
		return "MP_BINARY_OP_LESS_EQUAL"
	case CmpGt:
		return "MP_BINARY_OP_MORE"
	case CmpGe:
		return "MP_BINARY_OP_MORE_EQUAL"
	case CmpIn:
		return "MP_BINARY_OP_IN"
	default:
		return "MP_BINARY_OP_EQUAL"
	}
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryInvert
)

// CToken returns the C unary operator token.
func (op UnaryOp) CToken() string {
	switch op {
	case UnaryNeg:
		return "-"
	case UnaryNot:
		return "!"
	case UnaryInvert:
		return "~"
	default:
		return "-"
	}
}

// Expr is a sealed interface over expression IR nodes. Expressions are
// pure with respect to emission: side-effecting subexpressions are hoisted
// into prelude instructions by the builder and referenced here as Temps.
type Expr interface {
	expr() // Sealed - only types in this package implement it
	// ExprKind is the representation kind of the value this expression
	// produces.
	ExprKind() Kind
}

// Const is a literal constant.
type Const struct {
	Value Literal
}

func (Const) expr()            {}
func (c Const) ExprKind() Kind { return LiteralKind(c.Value) }

// Name references a parameter or local by its sanitized C name.
type Name struct {
	Py   string
	C    string
	Kind Kind
}

func (Name) expr()            {}
func (n Name) ExprKind() Kind { return n.Kind }

// Temp references a prelude-instruction result.
type Temp struct {
	Name string
	Kind Kind
}

func (Temp) expr()            {}
func (t Temp) ExprKind() Kind { return t.Kind }

// Binary is a binary arithmetic operation. Kind is the result kind after
// float-contagion resolution by the builder.
type Binary struct {
	Op    BinOp
	Left  Expr
	Right Expr
	Kind  Kind
}

func (Binary) expr()            {}
func (b Binary) ExprKind() Kind { return b.Kind }

// Unary is a unary operation.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	Kind    Kind
}

func (Unary) expr()            {}
func (u Unary) ExprKind() Kind { return u.Kind }

// Compare is a (possibly chained) comparison. Always produces a bool.
type Compare struct {
	Left        Expr
	Ops         []CmpOp
	Comparators []Expr
}

func (Compare) expr()          {}
func (Compare) ExprKind() Kind { return KindBool }

// BoolAnd/BoolOr values for BoolChain.
type BoolOpKind int

const (
	BoolAnd BoolOpKind = iota
	BoolOr
)

// BoolChain is a short-circuit and/or chain over boolean operands.
type BoolChain struct {
	Op     BoolOpKind
	Values []Expr
}

func (BoolChain) expr()          {}
func (BoolChain) ExprKind() Kind { return KindBool }

// SelfAttr reads a field through the method receiver. Path is the full C
// member path relative to self, including any super hops ("super.x").
type SelfAttr struct {
	Path string
	Kind Kind
}

func (SelfAttr) expr()            {}
func (a SelfAttr) ExprKind() Kind { return a.Kind }

// ParamAttr reads a field of a parameter whose class is statically known.
type ParamAttr struct {
	ClassC string
	CParam string
	Attr   string
	Kind   Kind
}

func (ParamAttr) expr()            {}
func (a ParamAttr) ExprKind() Kind { return a.Kind }

// Subscript indexes a value. RTuple-backed subscripts with constant
// indices resolve to flat struct fields at emission time.
type Subscript struct {
	Value       Expr
	Index       Expr
	IsRTuple    bool
	RTupleIndex int
	Kind        Kind
}

func (Subscript) expr()            {}
func (s Subscript) ExprKind() Kind { return s.Kind }

// Call invokes a C symbol directly: a generated module function, a
// devirtualized native method, or a runtime builtin. Args are emitted in
// order; boxing at the boundary is already decided by the builder via
// ArgKinds. Boxed marks targets with the mp wrapper boundary (all
// arguments boxed, mp_obj_t result unboxed to Kind at the call site);
// VarArgs marks wrappers using the (size_t, const mp_obj_t *) calling
// convention.
type Call struct {
	Target   string
	Args     []Expr
	ArgKinds []Kind // expected kind per argument at the callee boundary
	Kind     Kind
	Boxed    bool
	VarArgs  bool
}

func (Call) expr()            {}
func (c Call) ExprKind() Kind { return c.Kind }

// IfExpr is a conditional expression. Kind is the then-arm's kind.
type IfExpr struct {
	Cond Expr
	Then Expr
	Else Expr
	Kind Kind
}

func (IfExpr) expr()            {}
func (e IfExpr) ExprKind() Kind { return e.Kind }

// SelfRef is the typed receiver pointer inside a native method body.
type SelfRef struct{}

func (SelfRef) expr()          {}
func (SelfRef) ExprKind() Kind { return KindDynamic }

// CtorCall constructs an instance of a module class through its
// make_new entry.
type CtorCall struct {
	ClassC string
	Args   []Expr
}

func (CtorCall) expr()          {}
func (CtorCall) ExprKind() Kind { return KindDynamic }

// SuperCall invokes the nearest ancestor implementation of a method,
// resolved at build time by walking the base chain. Init calls go
// through the boxed wrapper; everything else calls the native entry
// with a downcast receiver.
type SuperCall struct {
	ParentC  string
	MethodC  string
	IsInit   bool
	Args     []Expr
	ArgKinds []Kind
	Kind     Kind
}

func (SuperCall) expr()            {}
func (s SuperCall) ExprKind() Kind { return s.Kind }

// Builtin is a call to one of the closed builtin set recognized by the
// builder (len, abs, sum, min, max, int, float, bool, list, tuple, set,
// dict). ListFast marks len/sum calls on list-typed locals eligible for
// the direct-structure helpers.
type Builtin struct {
	Name     string
	Args     []Expr
	ListFast bool
	Kind     Kind
}

func (Builtin) expr()            {}
func (b Builtin) ExprKind() Kind { return b.Kind }

// NCall invokes a native method entry directly on a receiver whose
// class is statically known (devirtualized dispatch). The receiver is
// downcast to ClassC's instance struct; SelfRef receivers emit as the
// already-typed self pointer.
type NCall struct {
	ClassC   string
	Target   string
	Recv     Expr
	Args     []Expr
	ArgKinds []Kind
	Kind     Kind
}

func (NCall) expr()            {}
func (n NCall) ExprKind() Kind { return n.Kind }

// VCall invokes a virtual method through the receiver's vtable.
// VtablePath is the member path to the vtable pointer ("vtable",
// "super.vtable", ...), resolved at build time from inheritance depth.
// ClassC is the receiver's static class, used for the instance
// downcast; slot signatures use the root class, so the receiver is
// passed as a RootC pointer.
type VCall struct {
	ClassC     string
	RootC      string
	VtablePath string
	Method     string
	Recv       Expr
	Args       []Expr
	ArgKinds   []Kind
	Kind       Kind
}

func (VCall) expr()            {}
func (v VCall) ExprKind() Kind { return v.Kind }

// FFICall is a call into an external native library through an imported
// namespace alias. Lowering of the call convention belongs to the sibling
// binding generator; the core only records alias and member and emits a
// call against the extern wrapper symbol.
type FFICall struct {
	Alias  string
	Member string
	Args   []Expr
}

func (FFICall) expr()          {}
func (FFICall) ExprKind() Kind { return KindDynamic }

// RTupleNew constructs a flat tuple value in place.
type RTupleNew struct {
	Tuple RTuple
	Items []Expr
}

func (RTupleNew) expr()          {}
func (RTupleNew) ExprKind() Kind { return KindDynamic } // struct value; boxed only via BoxTuple

// RTupleField reads one field of a flat tuple held in a named local.
type RTupleField struct {
	CName string
	Index int
	Kind  Kind
}

func (RTupleField) expr()            {}
func (f RTupleField) ExprKind() Kind { return f.Kind }
