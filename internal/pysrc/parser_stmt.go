package pysrc

// parseStatement dispatches on the leading token of a statement line.
func (p *Parser) parseStatement() (Stmt, error) {
	switch p.current.Type {
	case TokenAt, TokenDef, TokenClass:
		return p.parseDecorated()
	case TokenImport:
		return p.parseImport()
	case TokenFrom:
		return nil, p.errorf(p.current.Pos, "from-imports are not supported; use import module as alias")
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFor:
		return p.parseFor()
	case TokenTry:
		return p.parseTry()
	case TokenGlobal, TokenNonlocal, TokenDel, TokenWith, TokenAssert:
		return nil, p.errorf(p.current.Pos, "the %s statement is not supported", p.current.Type)
	default:
		stmt, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return stmt, nil
	}
}

// endStatement consumes the statement terminator. Semicolons separate
// simple statements only in one-line suites, which parseBlock handles,
// so at statement level only a newline (or EOF/Dedent) is legal.
func (p *Parser) endStatement() error {
	switch p.current.Type {
	case TokenNewline:
		p.nextToken()
		return nil
	case TokenEOF, TokenDedent:
		return nil
	case TokenSemicolon:
		p.nextToken()
		if p.current.Type == TokenNewline {
			p.nextToken()
		}
		return nil
	default:
		return p.errorf(p.current.Pos, "expected end of statement, found %s", p.current.Type)
	}
}

// parseBlock parses the suite after a colon: either an indented block
// or a one-line suite of simple statements.
func (p *Parser) parseBlock() ([]Stmt, error) {
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	if p.current.Type != TokenNewline {
		// One-line suite: simple statements separated by semicolons.
		var body []Stmt
		for {
			stmt, err := p.parseSimpleStmt()
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
			if p.current.Type == TokenSemicolon {
				p.nextToken()
				if p.current.Type == TokenNewline || p.current.Type == TokenEOF {
					break
				}
				continue
			}
			break
		}
		if p.current.Type == TokenNewline {
			p.nextToken()
		}
		return body, nil
	}
	p.nextToken() // consume newline
	p.skipNewlines()
	if _, err := p.expect(TokenIndent); err != nil {
		return nil, err
	}
	var body []Stmt
	p.skipNewlines()
	for p.current.Type != TokenDedent && p.current.Type != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		p.skipNewlines()
	}
	if _, err := p.expect(TokenDedent); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, p.errorf(p.current.Pos, "empty block")
	}
	return body, nil
}

// parseSimpleStmt parses one statement that fits on a line.
func (p *Parser) parseSimpleStmt() (Stmt, error) {
	pos := p.current.Pos
	switch p.current.Type {
	case TokenReturn:
		p.nextToken()
		if p.current.Type == TokenNewline || p.current.Type == TokenEOF ||
			p.current.Type == TokenSemicolon || p.current.Type == TokenDedent {
			return &ReturnStmt{Pos: pos}, nil
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Pos: pos, Value: value}, nil
	case TokenBreak:
		p.nextToken()
		return &BreakStmt{Pos: pos}, nil
	case TokenContinue:
		p.nextToken()
		return &ContinueStmt{Pos: pos}, nil
	case TokenPass:
		p.nextToken()
		return &PassStmt{Pos: pos}, nil
	case TokenRaise:
		p.nextToken()
		if p.current.Type == TokenNewline || p.current.Type == TokenEOF ||
			p.current.Type == TokenSemicolon || p.current.Type == TokenDedent {
			return &RaiseStmt{Pos: pos}, nil
		}
		exc, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current.Type == TokenFrom {
			return nil, p.errorf(p.current.Pos, "raise ... from is not supported")
		}
		return &RaiseStmt{Pos: pos, Exc: exc}, nil
	case TokenYield:
		p.nextToken()
		if p.current.Type == TokenFrom {
			return nil, p.errorf(p.current.Pos, "yield from is not supported")
		}
		if p.current.Type == TokenNewline || p.current.Type == TokenEOF ||
			p.current.Type == TokenSemicolon || p.current.Type == TokenDedent {
			return &YieldStmt{Pos: pos}, nil
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &YieldStmt{Pos: pos, Value: value}, nil
	case TokenGlobal, TokenNonlocal, TokenDel, TokenWith, TokenAssert:
		return nil, p.errorf(pos, "the %s statement is not supported", p.current.Type)
	default:
		return p.parseExprOrAssign()
	}
}

var augAssignOps = map[TokenType]bool{
	TokenPlusEq:        true,
	TokenMinusEq:       true,
	TokenStarEq:        true,
	TokenSlashEq:       true,
	TokenDoubleSlashEq: true,
	TokenPercentEq:     true,
}

// parseExprOrAssign parses an expression statement, an assignment, an
// annotated assignment, or an augmented assignment.
func (p *Parser) parseExprOrAssign() (Stmt, error) {
	pos := p.current.Pos
	target, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	switch {
	case p.current.Type == TokenAssign:
		p.nextToken()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current.Type == TokenAssign {
			return nil, p.errorf(p.current.Pos, "chained assignment targets are not supported")
		}
		return &AssignStmt{Pos: pos, Target: target, Value: value}, nil
	case p.current.Type == TokenColon:
		p.nextToken()
		ann, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		stmt := &AnnAssignStmt{Pos: pos, Target: target, Annotation: ann}
		if p.current.Type == TokenAssign {
			p.nextToken()
			stmt.Value, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		return stmt, nil
	case augAssignOps[p.current.Type]:
		op := p.current.Type
		p.nextToken()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &AugAssignStmt{Pos: pos, Target: target, Op: op, Value: value}, nil
	default:
		return &ExprStmtNode{Pos: pos, Value: target}, nil
	}
}

// parseTypeRef parses an annotation: a name optionally parameterized
// with bracketed type arguments, a quoted forward reference, or None.
func (p *Parser) parseTypeRef() (TypeRef, error) {
	switch p.current.Type {
	case TokenNone:
		p.nextToken()
		return TypeRef{Name: "None"}, nil
	case TokenString:
		name := p.current.Value
		p.nextToken()
		return TypeRef{Name: name}, nil
	case TokenName:
	default:
		return TypeRef{}, p.errorf(p.current.Pos, "expected type annotation, found %s", p.current.Type)
	}
	ref := TypeRef{Name: p.current.Value}
	p.nextToken()
	if p.current.Type != TokenLBracket {
		return ref, nil
	}
	p.nextToken()
	for {
		arg, err := p.parseTypeRef()
		if err != nil {
			return TypeRef{}, err
		}
		ref.Args = append(ref.Args, arg)
		if p.current.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return TypeRef{}, err
	}
	return ref, nil
}

// parseDecorated parses zero or more decorator lines followed by a def
// or class statement.
func (p *Parser) parseDecorated() (Stmt, error) {
	var decorators []DecoratorNode
	for p.current.Type == TokenAt {
		dec, err := p.parseDecorator()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, dec)
		p.skipNewlines()
	}
	switch p.current.Type {
	case TokenDef:
		return p.parseFuncDef(decorators)
	case TokenClass:
		return p.parseClassDef(decorators)
	default:
		return nil, p.errorf(p.current.Pos, "expected def or class after decorator, found %s", p.current.Type)
	}
}

func (p *Parser) parseDecorator() (DecoratorNode, error) {
	pos := p.current.Pos
	p.nextToken() // consume '@'
	name, err := p.expect(TokenName)
	if err != nil {
		return DecoratorNode{}, err
	}
	dec := DecoratorNode{Pos: pos, Name: name.Value}
	for p.current.Type == TokenDot {
		p.nextToken()
		part, err := p.expect(TokenName)
		if err != nil {
			return DecoratorNode{}, err
		}
		dec.Name += "." + part.Value
	}
	if p.current.Type == TokenLParen {
		dec.Called = true
		call, err := p.parseCall(&NameExpr{Pos: pos, Name: dec.Name})
		if err != nil {
			return DecoratorNode{}, err
		}
		dec.Args = call.Args
		dec.Kwargs = call.Kwargs
	}
	if _, err := p.expect(TokenNewline); err != nil {
		return DecoratorNode{}, err
	}
	return dec, nil
}

func (p *Parser) parseFuncDef(decorators []DecoratorNode) (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'def'
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	fn := &FuncDef{Pos: pos, Name: name.Value, Decorators: decorators}
	for p.current.Type != TokenRParen {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)
		if p.current.Type == TokenComma {
			p.nextToken()
			continue
		}
		break
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if p.current.Type == TokenArrow {
		p.nextToken()
		ret, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		fn.Returns = &ret
	}
	fn.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseParam() (ParamNode, error) {
	param := ParamNode{Pos: p.current.Pos}
	switch p.current.Type {
	case TokenStar:
		param.Star = true
		p.nextToken()
	case TokenDoubleStar:
		param.DoubleStar = true
		p.nextToken()
	}
	name, err := p.expect(TokenName)
	if err != nil {
		return ParamNode{}, err
	}
	param.Name = name.Value
	if p.current.Type == TokenColon {
		p.nextToken()
		ann, err := p.parseTypeRef()
		if err != nil {
			return ParamNode{}, err
		}
		param.Annotation = &ann
	}
	if p.current.Type == TokenAssign {
		p.nextToken()
		param.Default, err = p.parseExpression()
		if err != nil {
			return ParamNode{}, err
		}
	}
	return param, nil
}

func (p *Parser) parseClassDef(decorators []DecoratorNode) (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'class'
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}
	cls := &ClassDef{Pos: pos, Name: name.Value, Decorators: decorators}
	if p.current.Type == TokenLParen {
		p.nextToken()
		if p.current.Type != TokenRParen {
			base, err := p.expect(TokenName)
			if err != nil {
				return nil, err
			}
			cls.Base = base.Value
			if p.current.Type == TokenComma {
				return nil, p.errorf(p.current.Pos, "multiple inheritance is not supported")
			}
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
	}
	cls.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	return cls, nil
}

func (p *Parser) parseImport() (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'import'
	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}
	stmt := &ImportStmt{Pos: pos, Module: name.Value}
	for p.current.Type == TokenDot {
		p.nextToken()
		part, err := p.expect(TokenName)
		if err != nil {
			return nil, err
		}
		stmt.Module += "." + part.Value
	}
	if p.current.Type == TokenAs {
		p.nextToken()
		alias, err := p.expect(TokenName)
		if err != nil {
			return nil, err
		}
		stmt.Alias = alias.Value
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Pos: pos, Cond: cond}
	stmt.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	switch p.current.Type {
	case TokenElif:
		// elif chains nest in the else arm.
		p.current.Type = TokenIf
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.Else = []Stmt{nested}
	case TokenElse:
		p.nextToken()
		stmt.Else, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'while'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &WhileStmt{Pos: pos, Cond: cond}
	stmt.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if p.current.Type == TokenElse {
		return nil, p.errorf(p.current.Pos, "while/else is not supported")
	}
	return stmt, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'for'
	target, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenComma {
		return nil, p.errorf(p.current.Pos, "tuple unpacking in for targets is not supported")
	}
	if _, err := p.expect(TokenIn); err != nil {
		return nil, err
	}
	iter, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &ForStmt{Pos: pos, Target: target, Iter: iter}
	stmt.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if p.current.Type == TokenElse {
		return nil, p.errorf(p.current.Pos, "for/else is not supported")
	}
	return stmt, nil
}

func (p *Parser) parseTry() (Stmt, error) {
	pos := p.current.Pos
	p.nextToken() // consume 'try'
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &TryStmt{Pos: pos, Body: body}
	p.skipNewlines()
	for p.current.Type == TokenExcept {
		clause := ExceptClause{Pos: p.current.Pos}
		p.nextToken()
		if p.current.Type == TokenName {
			clause.Type = p.current.Value
			p.nextToken()
			if p.current.Type == TokenAs {
				p.nextToken()
				name, err := p.expect(TokenName)
				if err != nil {
					return nil, err
				}
				clause.Name = name.Value
			}
		}
		clause.Body, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Handlers = append(stmt.Handlers, clause)
		p.skipNewlines()
	}
	if p.current.Type == TokenElse {
		p.nextToken()
		stmt.OrElse, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		p.skipNewlines()
	}
	if p.current.Type == TokenFinally {
		p.nextToken()
		stmt.Finally, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	if len(stmt.Handlers) == 0 && stmt.Finally == nil {
		return nil, p.errorf(pos, "try statement needs an except or finally clause")
	}
	return stmt, nil
}
