package ir

// Stmt is a sealed interface over statement IR nodes.
type Stmt interface {
	stmt() // Sealed - only types in this package implement it
}

// Assign stores a value into a local. Declare marks the first assignment
// in a scope, which also declares the C variable. RT is set when the
// target holds a flat tuple value.
type Assign struct {
	Prelude []Instr
	CTarget string
	Value   Expr
	Kind    Kind
	Declare bool
	RT      *RTuple
}

func (Assign) stmt() {}

// AugAssign is target op= value.
type AugAssign struct {
	Prelude []Instr
	CTarget string
	Op      BinOp
	Value   Expr
	Kind    Kind
}

func (AugAssign) stmt() {}

// AttrAssign stores into a field of self or of a statically-typed
// parameter. Target must be SelfAttr or ParamAttr.
type AttrAssign struct {
	Prelude []Instr
	Target  Expr
	Value   Expr
}

func (AttrAssign) stmt() {}

// ExprStmt evaluates an expression (or only its prelude) for effect.
type ExprStmt struct {
	Prelude []Instr
	Value   Expr // nil when the whole statement lives in the prelude
}

func (ExprStmt) stmt() {}

// Print writes arguments to the platform stream separated by spaces,
// followed by a newline.
type Print struct {
	Prelude []Instr
	Args    []Expr
}

func (Print) stmt() {}

// Return exits the function. Value is nil for bare return / void.
type Return struct {
	Prelude []Instr
	Value   Expr
}

func (Return) stmt() {}

// If is a two-armed conditional.
type If struct {
	Prelude []Instr
	Cond    Expr
	Then    []Stmt
	Else    []Stmt
}

func (If) stmt() {}

// While re-evaluates its condition prelude on every iteration.
type While struct {
	Prelude []Instr
	Cond    Expr
	Body    []Stmt
}

func (While) stmt() {}

// ForRange is a counting loop over range(start, end, step). When the step
// is a nonzero constant the comparison/increment direction is fixed at
// build time; otherwise the emitter tests the sign at runtime.
type ForRange struct {
	Prelude   []Instr
	CLoopVar  string
	NewVar    bool // first binding of the loop variable in this scope
	Start     Expr // nil means 0
	End       Expr
	Step      Expr // nil means 1
	StepConst bool
	StepValue int64
	Body      []Stmt
}

func (ForRange) stmt() {}

// ForIter iterates an arbitrary iterable through the runtime protocol:
// get an iterator handle, advance, stop on the exhaustion sentinel.
type ForIter struct {
	IterPrelude []Instr
	CLoopVar    string
	NewVar      bool
	Iterable    Expr
	Body        []Stmt
}

func (ForIter) stmt() {}

// Break exits the innermost loop. The builder guarantees loop context.
type Break struct{}

func (Break) stmt() {}

// Continue advances the innermost loop.
type Continue struct{}

func (Continue) stmt() {}

// Pass is a no-op.
type Pass struct{}

func (Pass) stmt() {}

// Raise raises a runtime exception of a well-known type. TypeC is the
// mp_type_* symbol; Msg is an optional message literal.
type Raise struct {
	Prelude []Instr
	TypeC   string
	Msg     string
	HasMsg  bool
}

func (Raise) stmt() {}

// ExceptHandler is one except clause. TypeC empty means catch-all.
type ExceptHandler struct {
	TypeC string
	Name  string // bound exception variable, sanitized; empty when unused
	Body  []Stmt
}

// Try lowers to nlr_push/nlr_pop protection. Finally runs on every exit
// path: normal, exceptional, and early return.
type Try struct {
	Body     []Stmt
	Handlers []ExceptHandler
	OrElse   []Stmt
	Finally  []Stmt
}

func (Try) stmt() {}

// Yield suspends a generator. StateID is the resumption label assigned by
// the builder; state 0 is reserved for initial entry.
type Yield struct {
	Prelude []Instr
	Value   Expr // nil yields None
	StateID int
}

func (Yield) stmt() {}
