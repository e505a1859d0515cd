package pysrc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	require.NoError(t, l.Err())
	return tokens
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestLexerSimpleAssignment(t *testing.T) {
	tokens := lexAll(t, "x = 42\n")
	assert.Equal(t, []TokenType{
		TokenName, TokenAssign, TokenInt, TokenNewline, TokenEOF,
	}, types(tokens))
	assert.Equal(t, "x", tokens[0].Value)
	assert.Equal(t, "42", tokens[2].Value)
}

func TestLexerIndentDedent(t *testing.T) {
	input := "def f():\n    return 1\n"
	tokens := lexAll(t, input)
	assert.Equal(t, []TokenType{
		TokenDef, TokenName, TokenLParen, TokenRParen, TokenColon, TokenNewline,
		TokenIndent, TokenReturn, TokenInt, TokenNewline,
		TokenDedent, TokenEOF,
	}, types(tokens))
}

func TestLexerNestedDedents(t *testing.T) {
	input := "def f():\n    if x:\n        return 1\n    return 2\n"
	tokens := lexAll(t, input)
	var indents, dedents int
	for _, tok := range tokens {
		switch tok.Type {
		case TokenIndent:
			indents++
		case TokenDedent:
			dedents++
		}
	}
	assert.Equal(t, 2, indents)
	assert.Equal(t, 2, dedents)
}

func TestLexerMissingTrailingNewline(t *testing.T) {
	tokens := lexAll(t, "x = 1")
	assert.Equal(t, []TokenType{
		TokenName, TokenAssign, TokenInt, TokenNewline, TokenEOF,
	}, types(tokens))
}

func TestLexerBlankAndCommentLines(t *testing.T) {
	input := "x = 1\n\n# comment\n    # indented comment\ny = 2\n"
	tokens := lexAll(t, input)
	assert.Equal(t, []TokenType{
		TokenName, TokenAssign, TokenInt, TokenNewline,
		TokenName, TokenAssign, TokenInt, TokenNewline, TokenEOF,
	}, types(tokens))
}

func TestLexerParensSuppressNewline(t *testing.T) {
	input := "f(1,\n  2)\n"
	tokens := lexAll(t, input)
	assert.Equal(t, []TokenType{
		TokenName, TokenLParen, TokenInt, TokenComma, TokenInt, TokenRParen,
		TokenNewline, TokenEOF,
	}, types(tokens))
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		value string
	}{
		{"0", TokenInt, "0"},
		{"12345", TokenInt, "12345"},
		{"1_000_000", TokenInt, "1000000"},
		{"3.14", TokenFloat, "3.14"},
		{"1e9", TokenFloat, "1e9"},
		{"2.5e-3", TokenFloat, "2.5e-3"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.typ, tok.Type)
			assert.Equal(t, tt.value, tok.Value)
		})
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote\"inside"`, `quote"inside`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, TokenString, tok.Type)
			assert.Equal(t, tt.want, tok.Value)
		})
	}
}

func TestLexerOperators(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"+", TokenPlus},
		{"-", TokenMinus},
		{"*", TokenStar},
		{"**", TokenDoubleStar},
		{"/", TokenSlash},
		{"//", TokenDoubleSlash},
		{"//=", TokenDoubleSlashEq},
		{"%", TokenPercent},
		{"==", TokenEq},
		{"!=", TokenNe},
		{"<=", TokenLe},
		{">=", TokenGe},
		{"<<", TokenShl},
		{">>", TokenShr},
		{"->", TokenArrow},
		{"+=", TokenPlusEq},
		{"@", TokenAt},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			assert.Equal(t, tt.typ, tok.Type, "input %q", tt.input)
		})
	}
}

func TestLexerKeywordsVsNames(t *testing.T) {
	tokens := lexAll(t, "while whilex\n")
	assert.Equal(t, TokenWhile, tokens[0].Type)
	assert.Equal(t, TokenName, tokens[1].Type)
	assert.Equal(t, "whilex", tokens[1].Value)
}

func TestLexerPositions(t *testing.T) {
	tokens := lexAll(t, "x = 1\ny = 2\n")
	assert.Equal(t, Position{Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, Position{Line: 1, Column: 5}, tokens[2].Pos)
	// y on line 2
	assert.Equal(t, 2, tokens[4].Pos.Line)
}

func TestLexerInconsistentIndent(t *testing.T) {
	input := "if x:\n        a = 1\n    b = 2\n"
	l := NewLexer(input)
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF || tok.Type == TokenIllegal {
			break
		}
	}
	assert.Error(t, l.Err())
}

func TestLexerLineContinuation(t *testing.T) {
	tokens := lexAll(t, "x = 1 + \\\n    2\n")
	assert.Equal(t, []TokenType{
		TokenName, TokenAssign, TokenInt, TokenPlus, TokenInt,
		TokenNewline, TokenEOF,
	}, types(tokens))
}
