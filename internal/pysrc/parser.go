package pysrc

import (
	"fmt"
	"strconv"
)

// ParseError is a build-rejection error with a source location.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Parser parses one annotated source unit into an AST.
type Parser struct {
	lexer   *Lexer
	current Token
	peek    Token
}

// Parse parses a complete source unit.
func Parse(input string) (*Module, error) {
	p := NewParser(input)
	return p.ParseModule()
}

// NewParser creates a parser over the input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read two tokens to initialize current and peek.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) errorf(pos Position, format string, args ...any) error {
	return &ParseError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.current.Type != t {
		return Token{}, p.errorf(p.current.Pos, "expected %s, found %s", t, p.current.Type)
	}
	tok := p.current
	p.nextToken()
	return tok, nil
}

func (p *Parser) skipNewlines() {
	for p.current.Type == TokenNewline {
		p.nextToken()
	}
}

// ParseModule parses top-level statements until EOF.
func (p *Parser) ParseModule() (*Module, error) {
	mod := &Module{}
	p.skipNewlines()
	for p.current.Type != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		mod.Body = append(mod.Body, stmt)
		p.skipNewlines()
	}
	if err := p.lexer.Err(); err != nil {
		return nil, err
	}
	return mod, nil
}

// ---------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------

func (p *Parser) parseExpression() (Expr, error) {
	value, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	// Conditional expression: value if cond else orelse.
	if p.current.Type != TokenIf {
		return value, nil
	}
	pos := p.current.Pos
	p.nextToken()
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenElse); err != nil {
		return nil, err
	}
	orelse, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &IfExpExpr{Pos: pos, Cond: cond, Then: value, Else: orelse}, nil
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenOr {
		return left, nil
	}
	values := []Expr{left}
	pos := p.current.Pos
	for p.current.Type == TokenOr {
		p.nextToken()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		values = append(values, right)
	}
	return &BoolOpExpr{Pos: pos, Op: TokenOr, Values: values}, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenAnd {
		return left, nil
	}
	values := []Expr{left}
	pos := p.current.Pos
	for p.current.Type == TokenAnd {
		p.nextToken()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		values = append(values, right)
	}
	return &BoolOpExpr{Pos: pos, Op: TokenAnd, Values: values}, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.current.Type == TokenNot {
		pos := p.current.Pos
		p.nextToken()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: pos, Op: TokenNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func isCompareToken(t TokenType) bool {
	switch t {
	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe, TokenIn, TokenIs:
		return true
	default:
		return false
	}
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	if !isCompareToken(p.current.Type) &&
		!(p.current.Type == TokenNot && p.peek.Type == TokenIn) {
		return left, nil
	}

	pos := p.current.Pos
	var ops []TokenType
	var comparators []Expr
	negate := false
	for {
		var op TokenType
		switch {
		case p.current.Type == TokenNot && p.peek.Type == TokenIn:
			// "not in" lowers as negated membership.
			p.nextToken()
			op = TokenIn
			negate = true
		case p.current.Type == TokenIs && p.peek.Type == TokenNot:
			p.nextToken()
			op = TokenIs
			negate = true
		case isCompareToken(p.current.Type):
			op = p.current.Type
		default:
			expr := Expr(&CompareExpr{Pos: pos, Left: left, Ops: ops, Comparators: comparators})
			if negate {
				expr = &UnaryExpr{Pos: pos, Op: TokenNot, Operand: expr}
			}
			return expr, nil
		}
		p.nextToken()
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comparators = append(comparators, right)
	}
}

func (p *Parser) parseBitOr() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitXor, TokenPipe)
}

func (p *Parser) parseBitXor() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitAnd, TokenCaret)
}

func (p *Parser) parseBitAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseShift, TokenAmp)
}

func (p *Parser) parseShift() (Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, TokenShl, TokenShr)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parseUnary,
		TokenStar, TokenSlash, TokenDoubleSlash, TokenPercent)
}

func (p *Parser) parseBinaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.current.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		op := p.current.Type
		pos := p.current.Pos
		p.nextToken()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: pos, Left: left, Op: op, Right: right}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	switch p.current.Type {
	case TokenMinus, TokenPlus, TokenTilde:
		pos := p.current.Pos
		op := p.current.Type
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: pos, Op: op, Operand: operand}, nil
	case TokenDoubleStar:
		return nil, p.errorf(p.current.Pos, "the ** operator is not supported")
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current.Type {
		case TokenLParen:
			call, err := p.parseCall(expr)
			if err != nil {
				return nil, err
			}
			expr = call
		case TokenDot:
			pos := p.current.Pos
			p.nextToken()
			name, err := p.expect(TokenName)
			if err != nil {
				return nil, err
			}
			expr = &AttrExpr{Pos: pos, Value: expr, Attr: name.Value}
		case TokenLBracket:
			pos := p.current.Pos
			p.nextToken()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if p.current.Type == TokenColon {
				return nil, p.errorf(p.current.Pos, "slice expressions are not supported")
			}
			if _, err := p.expect(TokenRBracket); err != nil {
				return nil, err
			}
			expr = &SubscriptExpr{Pos: pos, Value: expr, Index: index}
		case TokenDoubleStar:
			return nil, p.errorf(p.current.Pos, "the ** operator is not supported")
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCall(fn Expr) (*CallExpr, error) {
	pos := p.current.Pos
	p.nextToken() // consume '('
	call := &CallExpr{Pos: pos, Func: fn}
	for p.current.Type != TokenRParen {
		if p.current.Type == TokenEOF {
			return nil, p.errorf(pos, "unterminated call argument list")
		}
		if p.current.Type == TokenName && p.peek.Type == TokenAssign {
			name := p.current.Value
			p.nextToken()
			p.nextToken()
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Kwargs = append(call.Kwargs, KeywordArg{Name: name, Value: value})
		} else {
			if len(call.Kwargs) > 0 {
				return nil, p.errorf(p.current.Pos, "positional argument after keyword argument")
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		if p.current.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseAtom() (Expr, error) {
	tok := p.current
	switch tok.Type {
	case TokenInt:
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid integer literal %q", tok.Value)
		}
		p.nextToken()
		return &IntExpr{Pos: tok.Pos, Value: v}, nil
	case TokenFloat:
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf(tok.Pos, "invalid float literal %q", tok.Value)
		}
		p.nextToken()
		return &FloatExpr{Pos: tok.Pos, Value: v}, nil
	case TokenString:
		p.nextToken()
		return &StrExpr{Pos: tok.Pos, Value: tok.Value}, nil
	case TokenTrue:
		p.nextToken()
		return &BoolExpr{Pos: tok.Pos, Value: true}, nil
	case TokenFalse:
		p.nextToken()
		return &BoolExpr{Pos: tok.Pos, Value: false}, nil
	case TokenNone:
		p.nextToken()
		return &NoneExpr{Pos: tok.Pos}, nil
	case TokenName:
		p.nextToken()
		return &NameExpr{Pos: tok.Pos, Name: tok.Value}, nil
	case TokenLParen:
		return p.parseParenOrTuple()
	case TokenLBracket:
		return p.parseListOrComp()
	case TokenLBrace:
		return p.parseSetOrDict()
	case TokenLambda:
		return nil, p.errorf(tok.Pos, "lambda expressions are not supported")
	default:
		return nil, p.errorf(tok.Pos, "unexpected %s in expression", tok.Type)
	}
}

func (p *Parser) parseParenOrTuple() (Expr, error) {
	pos := p.current.Pos
	p.nextToken() // consume '('
	if p.current.Type == TokenRParen {
		p.nextToken()
		return &TupleExpr{Pos: pos}, nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenComma {
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return first, nil
	}
	items := []Expr{first}
	for p.current.Type == TokenComma {
		p.nextToken()
		if p.current.Type == TokenRParen {
			break
		}
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return &TupleExpr{Pos: pos, Items: items}, nil
}

func (p *Parser) parseListOrComp() (Expr, error) {
	pos := p.current.Pos
	p.nextToken() // consume '['
	if p.current.Type == TokenRBracket {
		p.nextToken()
		return &ListExpr{Pos: pos}, nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenFor {
		p.nextToken()
		target, err := p.expect(TokenName)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenIn); err != nil {
			return nil, err
		}
		// parseOr, not parseExpression: the comprehension's own "if"
		// must not parse as a conditional expression on the iterable.
		iter, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		var cond Expr
		if p.current.Type == TokenIf {
			p.nextToken()
			cond, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if p.current.Type == TokenFor {
			return nil, p.errorf(p.current.Pos, "nested comprehension generators are not supported")
		}
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
		return &ListCompExpr{Pos: pos, Elt: first, Var: target.Value, Iter: iter, Cond: cond}, nil
	}
	items := []Expr{first}
	for p.current.Type == TokenComma {
		p.nextToken()
		if p.current.Type == TokenRBracket {
			break
		}
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return nil, err
	}
	return &ListExpr{Pos: pos, Items: items}, nil
}

func (p *Parser) parseSetOrDict() (Expr, error) {
	pos := p.current.Pos
	p.nextToken() // consume '{'
	if p.current.Type == TokenRBrace {
		p.nextToken()
		return &DictExpr{Pos: pos}, nil // {} is an empty dict
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenColon {
		// Dict display.
		p.nextToken()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items := []DictItem{{Key: first, Value: value}}
		for p.current.Type == TokenComma {
			p.nextToken()
			if p.current.Type == TokenRBrace {
				break
			}
			k, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenColon); err != nil {
				return nil, err
			}
			v, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			items = append(items, DictItem{Key: k, Value: v})
		}
		if _, err := p.expect(TokenRBrace); err != nil {
			return nil, err
		}
		return &DictExpr{Pos: pos, Items: items}, nil
	}
	// Set display.
	items := []Expr{first}
	for p.current.Type == TokenComma {
		p.nextToken()
		if p.current.Type == TokenRBrace {
			break
		}
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if _, err := p.expect(TokenRBrace); err != nil {
		return nil, err
	}
	return &SetExpr{Pos: pos, Items: items}, nil
}
