package pysrc

import "strings"

// Node is the base interface for all AST nodes.
type Node interface {
	Position() Position
}

// Expr is a sealed expression node interface.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a sealed statement node interface.
type Stmt interface {
	Node
	stmtNode()
}

// TypeRef is a parsed annotation: a named type with optional parameters,
// e.g. int, list[int], tuple[int, float], Point.
type TypeRef struct {
	Name string
	Args []TypeRef
}

// String renders the annotation in source form.
func (t TypeRef) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return t.Name + "[" + strings.Join(parts, ", ") + "]"
}

// Module is one parsed source unit.
type Module struct {
	Body []Stmt
}

// ParamNode is one parameter of a def.
type ParamNode struct {
	Pos        Position
	Name       string
	Annotation *TypeRef
	Default    Expr // nil when absent
	Star       bool // *args capture
	DoubleStar bool // **kwargs capture
}

// DecoratorNode is one @decorator line. Args are present only for the
// call form, e.g. @dataclass(eq=False).
type DecoratorNode struct {
	Pos    Position
	Name   string // dotted path joined: "staticmethod", "x.setter"
	Called bool
	Args   []Expr
	Kwargs []KeywordArg
}

// FuncDef is a def statement (top-level function or method).
type FuncDef struct {
	Pos        Position
	Name       string
	Decorators []DecoratorNode
	Params     []ParamNode
	Returns    *TypeRef
	Body       []Stmt
}

func (s *FuncDef) Position() Position { return s.Pos }
func (s *FuncDef) stmtNode()          {}

// ClassDef is a class statement.
type ClassDef struct {
	Pos        Position
	Name       string
	Base       string // empty when no base
	Decorators []DecoratorNode
	Body       []Stmt
}

func (s *ClassDef) Position() Position { return s.Pos }
func (s *ClassDef) stmtNode()          {}

// ImportStmt is `import name` or `import name as alias`. Only the alias
// form participates in FFI-call recognition.
type ImportStmt struct {
	Pos    Position
	Module string
	Alias  string
}

func (s *ImportStmt) Position() Position { return s.Pos }
func (s *ImportStmt) stmtNode()          {}

// AssignStmt is a single-target assignment.
type AssignStmt struct {
	Pos    Position
	Target Expr
	Value  Expr
}

func (s *AssignStmt) Position() Position { return s.Pos }
func (s *AssignStmt) stmtNode()          {}

// AnnAssignStmt is an annotated assignment (value may be nil for a bare
// declaration, which is only legal in class bodies).
type AnnAssignStmt struct {
	Pos        Position
	Target     Expr
	Annotation TypeRef
	Value      Expr
}

func (s *AnnAssignStmt) Position() Position { return s.Pos }
func (s *AnnAssignStmt) stmtNode()          {}

// AugAssignStmt is target op= value.
type AugAssignStmt struct {
	Pos    Position
	Target Expr
	Op     TokenType // TokenPlusEq etc.
	Value  Expr
}

func (s *AugAssignStmt) Position() Position { return s.Pos }
func (s *AugAssignStmt) stmtNode()          {}

// ExprStmtNode is a bare expression statement.
type ExprStmtNode struct {
	Pos   Position
	Value Expr
}

func (s *ExprStmtNode) Position() Position { return s.Pos }
func (s *ExprStmtNode) stmtNode()          {}

// ReturnStmt is return with optional value.
type ReturnStmt struct {
	Pos   Position
	Value Expr
}

func (s *ReturnStmt) Position() Position { return s.Pos }
func (s *ReturnStmt) stmtNode()          {}

// IfStmt is if/elif/else; elif chains parse as nested IfStmt in Else.
type IfStmt struct {
	Pos  Position
	Cond Expr
	Body []Stmt
	Else []Stmt
}

func (s *IfStmt) Position() Position { return s.Pos }
func (s *IfStmt) stmtNode()          {}

// WhileStmt is a while loop.
type WhileStmt struct {
	Pos  Position
	Cond Expr
	Body []Stmt
}

func (s *WhileStmt) Position() Position { return s.Pos }
func (s *WhileStmt) stmtNode()          {}

// ForStmt is a for loop. Target must be a plain name; anything else is
// rejected downstream.
type ForStmt struct {
	Pos    Position
	Target Expr
	Iter   Expr
	Body   []Stmt
}

func (s *ForStmt) Position() Position { return s.Pos }
func (s *ForStmt) stmtNode()          {}

// ExceptClause is one except handler. Type empty means bare except.
type ExceptClause struct {
	Pos  Position
	Type string
	Name string
	Body []Stmt
}

// TryStmt is try/except/else/finally.
type TryStmt struct {
	Pos      Position
	Body     []Stmt
	Handlers []ExceptClause
	OrElse   []Stmt
	Finally  []Stmt
}

func (s *TryStmt) Position() Position { return s.Pos }
func (s *TryStmt) stmtNode()          {}

// RaiseStmt raises an exception; Exc is nil for a bare re-raise.
type RaiseStmt struct {
	Pos Position
	Exc Expr
}

func (s *RaiseStmt) Position() Position { return s.Pos }
func (s *RaiseStmt) stmtNode()          {}

// BreakStmt is break.
type BreakStmt struct{ Pos Position }

func (s *BreakStmt) Position() Position { return s.Pos }
func (s *BreakStmt) stmtNode()          {}

// ContinueStmt is continue.
type ContinueStmt struct{ Pos Position }

func (s *ContinueStmt) Position() Position { return s.Pos }
func (s *ContinueStmt) stmtNode()          {}

// PassStmt is pass.
type PassStmt struct{ Pos Position }

func (s *PassStmt) Position() Position { return s.Pos }
func (s *PassStmt) stmtNode()          {}

// YieldStmt is a statement-level yield with optional value.
type YieldStmt struct {
	Pos   Position
	Value Expr
}

func (s *YieldStmt) Position() Position { return s.Pos }
func (s *YieldStmt) stmtNode()          {}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

// NameExpr is a variable reference.
type NameExpr struct {
	Pos  Position
	Name string
}

func (e *NameExpr) Position() Position { return e.Pos }
func (e *NameExpr) exprNode()          {}

// IntExpr is an integer literal.
type IntExpr struct {
	Pos   Position
	Value int64
}

func (e *IntExpr) Position() Position { return e.Pos }
func (e *IntExpr) exprNode()          {}

// FloatExpr is a float literal.
type FloatExpr struct {
	Pos   Position
	Value float64
}

func (e *FloatExpr) Position() Position { return e.Pos }
func (e *FloatExpr) exprNode()          {}

// StrExpr is a string literal.
type StrExpr struct {
	Pos   Position
	Value string
}

func (e *StrExpr) Position() Position { return e.Pos }
func (e *StrExpr) exprNode()          {}

// BoolExpr is True or False.
type BoolExpr struct {
	Pos   Position
	Value bool
}

func (e *BoolExpr) Position() Position { return e.Pos }
func (e *BoolExpr) exprNode()          {}

// NoneExpr is None.
type NoneExpr struct{ Pos Position }

func (e *NoneExpr) Position() Position { return e.Pos }
func (e *NoneExpr) exprNode()          {}

// UnaryExpr is a unary operation.
type UnaryExpr struct {
	Pos     Position
	Op      TokenType // TokenMinus, TokenNot, TokenTilde, TokenPlus
	Operand Expr
}

func (e *UnaryExpr) Position() Position { return e.Pos }
func (e *UnaryExpr) exprNode()          {}

// BinaryExpr is a binary arithmetic/bitwise operation.
type BinaryExpr struct {
	Pos   Position
	Left  Expr
	Op    TokenType
	Right Expr
}

func (e *BinaryExpr) Position() Position { return e.Pos }
func (e *BinaryExpr) exprNode()          {}

// CompareExpr is a possibly chained comparison: a < b <= c.
type CompareExpr struct {
	Pos         Position
	Left        Expr
	Ops         []TokenType
	Comparators []Expr
}

func (e *CompareExpr) Position() Position { return e.Pos }
func (e *CompareExpr) exprNode()          {}

// BoolOpExpr is an and/or chain.
type BoolOpExpr struct {
	Pos    Position
	Op     TokenType // TokenAnd or TokenOr
	Values []Expr
}

func (e *BoolOpExpr) Position() Position { return e.Pos }
func (e *BoolOpExpr) exprNode()          {}

// IfExpExpr is a conditional expression: then if cond else orelse.
type IfExpExpr struct {
	Pos  Position
	Cond Expr
	Then Expr
	Else Expr
}

func (e *IfExpExpr) Position() Position { return e.Pos }
func (e *IfExpExpr) exprNode()          {}

// KeywordArg is one keyword argument of a call.
type KeywordArg struct {
	Name  string
	Value Expr
}

// CallExpr is a call with positional and keyword arguments.
type CallExpr struct {
	Pos    Position
	Func   Expr
	Args   []Expr
	Kwargs []KeywordArg
}

func (e *CallExpr) Position() Position { return e.Pos }
func (e *CallExpr) exprNode()          {}

// AttrExpr is value.attr.
type AttrExpr struct {
	Pos   Position
	Value Expr
	Attr  string
}

func (e *AttrExpr) Position() Position { return e.Pos }
func (e *AttrExpr) exprNode()          {}

// SubscriptExpr is value[index].
type SubscriptExpr struct {
	Pos   Position
	Value Expr
	Index Expr
}

func (e *SubscriptExpr) Position() Position { return e.Pos }
func (e *SubscriptExpr) exprNode()          {}

// ListExpr is a list display.
type ListExpr struct {
	Pos   Position
	Items []Expr
}

func (e *ListExpr) Position() Position { return e.Pos }
func (e *ListExpr) exprNode()          {}

// TupleExpr is a tuple display.
type TupleExpr struct {
	Pos   Position
	Items []Expr
}

func (e *TupleExpr) Position() Position { return e.Pos }
func (e *TupleExpr) exprNode()          {}

// SetExpr is a set display.
type SetExpr struct {
	Pos   Position
	Items []Expr
}

func (e *SetExpr) Position() Position { return e.Pos }
func (e *SetExpr) exprNode()          {}

// DictItem is one key: value pair of a dict display.
type DictItem struct {
	Key   Expr
	Value Expr
}

// DictExpr is a dict display.
type DictExpr struct {
	Pos   Position
	Items []DictItem
}

func (e *DictExpr) Position() Position { return e.Pos }
func (e *DictExpr) exprNode()          {}

// ListCompExpr is [elt for var in iter if cond] with a single generator
// and at most one condition.
type ListCompExpr struct {
	Pos  Position
	Elt  Expr
	Var  string
	Iter Expr
	Cond Expr // nil when absent
}

func (e *ListCompExpr) Position() Position { return e.Pos }
func (e *ListCompExpr) exprNode()          {}
