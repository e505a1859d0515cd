package pysrc

import (
	"fmt"
	"strings"
)

// Lexer tokenizes annotated source. Leading whitespace on logical lines
// becomes Indent/Dedent tokens; newlines inside brackets are implicit
// continuations and produce no Newline token.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int

	indents      []int
	pending      []Token // queued Indent/Dedent tokens
	parenDepth   int
	atLineStart  bool
	eofAtBOL     bool // input ended at a line start; no synthetic newline needed
	emittedFinal bool
	err          error
}

// NewLexer creates a lexer over one source unit.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		column:      0,
		indents:     []int{0},
		atLineStart: true,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() error {
	return l.err
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) pos() Position {
	return Position{Line: l.line, Column: l.column}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}

	if l.atLineStart && l.parenDepth == 0 {
		if tok, ok := l.handleLineStart(); ok {
			return tok
		}
	}

	l.skipSpaces()
	if l.ch == '#' {
		l.skipComment()
	}

	pos := l.pos()

	switch {
	case l.ch == 0:
		return l.finalTokens(pos)
	case l.ch == '\n':
		l.readChar()
		if l.parenDepth > 0 {
			return l.NextToken()
		}
		l.atLineStart = true
		return Token{Type: TokenNewline, Value: "\n", Pos: pos}
	case l.ch == '\\' && l.peekChar() == '\n':
		// Explicit line continuation.
		l.readChar()
		l.readChar()
		return l.NextToken()
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return l.readNumber(pos)
	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)
	case isLetter(l.ch):
		return l.readName(pos)
	default:
		return l.readOperator(pos)
	}
}

// handleLineStart measures indentation and queues Indent/Dedent tokens.
// Blank and comment-only lines produce nothing.
func (l *Lexer) handleLineStart() (Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' {
			if l.ch == '\t' {
				width += 8 - width%8
			} else {
				width++
			}
			l.readChar()
		}
		if l.ch == '#' {
			l.skipComment()
		}
		if l.ch == '\n' {
			l.readChar()
			continue // blank line: no layout tokens
		}
		if l.ch == 0 {
			l.atLineStart = false
			l.eofAtBOL = true
			return Token{}, false
		}

		l.atLineStart = false
		current := l.indents[len(l.indents)-1]
		pos := l.pos()
		switch {
		case width > current:
			l.indents = append(l.indents, width)
			return Token{Type: TokenIndent, Pos: pos}, true
		case width < current:
			for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos})
			}
			if l.indents[len(l.indents)-1] != width {
				l.err = fmt.Errorf("line %d: inconsistent indentation", pos.Line)
			}
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return tok, true
		default:
			return Token{}, false
		}
	}
}

// finalTokens drains open indentation levels at end of input.
func (l *Lexer) finalTokens(pos Position) Token {
	if !l.emittedFinal {
		l.emittedFinal = true
		// A trailing logical line without '\n' still terminates.
		if !l.eofAtBOL {
			l.pending = append(l.pending, Token{Type: TokenNewline, Value: "\n", Pos: pos})
		}
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, Token{Type: TokenDedent, Pos: pos})
		}
		l.pending = append(l.pending, Token{Type: TokenEOF, Pos: pos})
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	return Token{Type: TokenEOF, Pos: pos}
}

func (l *Lexer) skipSpaces() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.position
	isFloat := false
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			isFloat = true
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	value := strings.ReplaceAll(l.input[start:l.position], "_", "")
	if isFloat {
		return Token{Type: TokenFloat, Value: value, Pos: pos}
	}
	return Token{Type: TokenInt, Value: value, Pos: pos}
}

func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar()
	var b strings.Builder
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			l.err = fmt.Errorf("line %d: unterminated string literal", pos.Line)
			return Token{Type: TokenIllegal, Value: b.String(), Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\':
				b.WriteByte('\\')
			case '\'':
				b.WriteByte('\'')
			case '"':
				b.WriteByte('"')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte('\\')
				b.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // closing quote
	return Token{Type: TokenString, Value: b.String(), Pos: pos}
}

func (l *Lexer) readName(pos Position) Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	value := l.input[start:l.position]
	if kw, ok := keywords[value]; ok {
		return Token{Type: kw, Value: value, Pos: pos}
	}
	return Token{Type: TokenName, Value: value, Pos: pos}
}

func (l *Lexer) readOperator(pos Position) Token {
	two := func(t TokenType) Token {
		v := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return Token{Type: t, Value: v, Pos: pos}
	}
	one := func(t TokenType) Token {
		v := string(l.ch)
		l.readChar()
		return Token{Type: t, Value: v, Pos: pos}
	}

	switch l.ch {
	case '+':
		if l.peekChar() == '=' {
			return two(TokenPlusEq)
		}
		return one(TokenPlus)
	case '-':
		switch l.peekChar() {
		case '=':
			return two(TokenMinusEq)
		case '>':
			return two(TokenArrow)
		}
		return one(TokenMinus)
	case '*':
		switch l.peekChar() {
		case '=':
			return two(TokenStarEq)
		case '*':
			return two(TokenDoubleStar)
		}
		return one(TokenStar)
	case '/':
		switch l.peekChar() {
		case '=':
			return two(TokenSlashEq)
		case '/':
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				l.readChar()
				return Token{Type: TokenDoubleSlashEq, Value: "//=", Pos: pos}
			}
			l.readChar()
			return Token{Type: TokenDoubleSlash, Value: "//", Pos: pos}
		}
		return one(TokenSlash)
	case '%':
		if l.peekChar() == '=' {
			return two(TokenPercentEq)
		}
		return one(TokenPercent)
	case '=':
		if l.peekChar() == '=' {
			return two(TokenEq)
		}
		return one(TokenAssign)
	case '!':
		if l.peekChar() == '=' {
			return two(TokenNe)
		}
		return one(TokenIllegal)
	case '<':
		switch l.peekChar() {
		case '=':
			return two(TokenLe)
		case '<':
			return two(TokenShl)
		}
		return one(TokenLt)
	case '>':
		switch l.peekChar() {
		case '=':
			return two(TokenGe)
		case '>':
			return two(TokenShr)
		}
		return one(TokenGt)
	case '&':
		return one(TokenAmp)
	case '|':
		return one(TokenPipe)
	case '^':
		return one(TokenCaret)
	case '~':
		return one(TokenTilde)
	case '(':
		l.parenDepth++
		return one(TokenLParen)
	case ')':
		l.parenDepth--
		return one(TokenRParen)
	case '[':
		l.parenDepth++
		return one(TokenLBracket)
	case ']':
		l.parenDepth--
		return one(TokenRBracket)
	case '{':
		l.parenDepth++
		return one(TokenLBrace)
	case '}':
		l.parenDepth--
		return one(TokenRBrace)
	case ',':
		return one(TokenComma)
	case ':':
		return one(TokenColon)
	case '.':
		return one(TokenDot)
	case '@':
		return one(TokenAt)
	case ';':
		return one(TokenSemicolon)
	default:
		return one(TokenIllegal)
	}
}

func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
