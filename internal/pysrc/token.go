package pysrc

// TokenType enumerates the lexical token kinds of the source subset.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Layout tokens. The lexer converts leading whitespace into
	// Indent/Dedent pairs and logical line ends into Newline.
	TokenNewline
	TokenIndent
	TokenDedent

	// Literals
	TokenInt
	TokenFloat
	TokenString
	TokenName

	// Keywords
	TokenDef
	TokenClass
	TokenReturn
	TokenIf
	TokenElif
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenBreak
	TokenContinue
	TokenPass
	TokenTry
	TokenExcept
	TokenFinally
	TokenRaise
	TokenYield
	TokenImport
	TokenAs
	TokenNot
	TokenAnd
	TokenOr
	TokenTrue
	TokenFalse
	TokenNone
	TokenIs
	TokenLambda
	TokenGlobal
	TokenNonlocal
	TokenDel
	TokenWith
	TokenAssert
	TokenFrom

	// Operators
	TokenPlus        // +
	TokenMinus       // -
	TokenStar        // *
	TokenDoubleStar  // **
	TokenSlash       // /
	TokenDoubleSlash // //
	TokenPercent     // %
	TokenAmp         // &
	TokenPipe        // |
	TokenCaret       // ^
	TokenTilde       // ~
	TokenShl         // <<
	TokenShr         // >>

	TokenAssign        // =
	TokenPlusEq        // +=
	TokenMinusEq       // -=
	TokenStarEq        // *=
	TokenSlashEq       // /=
	TokenDoubleSlashEq // //=
	TokenPercentEq     // %=

	TokenEq // ==
	TokenNe // !=
	TokenLt // <
	TokenLe // <=
	TokenGt // >
	TokenGe // >=

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenLBrace    // {
	TokenRBrace    // }
	TokenComma     // ,
	TokenColon     // :
	TokenDot       // .
	TokenArrow     // ->
	TokenAt        // @
	TokenSemicolon // ;
)

// Position is a line/column location in the source unit. Lines and
// columns are 1-based.
type Position struct {
	Line   int
	Column int
}

// Token is one lexical token.
type Token struct {
	Type  TokenType
	Value string
	Pos   Position
}

var keywords = map[string]TokenType{
	"def":      TokenDef,
	"class":    TokenClass,
	"return":   TokenReturn,
	"if":       TokenIf,
	"elif":     TokenElif,
	"else":     TokenElse,
	"while":    TokenWhile,
	"for":      TokenFor,
	"in":       TokenIn,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"pass":     TokenPass,
	"try":      TokenTry,
	"except":   TokenExcept,
	"finally":  TokenFinally,
	"raise":    TokenRaise,
	"yield":    TokenYield,
	"import":   TokenImport,
	"as":       TokenAs,
	"not":      TokenNot,
	"and":      TokenAnd,
	"or":       TokenOr,
	"True":     TokenTrue,
	"False":    TokenFalse,
	"None":     TokenNone,
	"is":       TokenIs,
	"lambda":   TokenLambda,
	"global":   TokenGlobal,
	"nonlocal": TokenNonlocal,
	"del":      TokenDel,
	"with":     TokenWith,
	"assert":   TokenAssert,
	"from":     TokenFrom,
}

// String returns a readable name for the token type, used in error
// messages.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of file"
	case TokenNewline:
		return "newline"
	case TokenIndent:
		return "indent"
	case TokenDedent:
		return "dedent"
	case TokenInt:
		return "integer literal"
	case TokenFloat:
		return "float literal"
	case TokenString:
		return "string literal"
	case TokenName:
		return "identifier"
	case TokenDef:
		return "'def'"
	case TokenClass:
		return "'class'"
	case TokenReturn:
		return "'return'"
	case TokenIf:
		return "'if'"
	case TokenElif:
		return "'elif'"
	case TokenElse:
		return "'else'"
	case TokenWhile:
		return "'while'"
	case TokenFor:
		return "'for'"
	case TokenIn:
		return "'in'"
	case TokenBreak:
		return "'break'"
	case TokenContinue:
		return "'continue'"
	case TokenPass:
		return "'pass'"
	case TokenTry:
		return "'try'"
	case TokenExcept:
		return "'except'"
	case TokenFinally:
		return "'finally'"
	case TokenRaise:
		return "'raise'"
	case TokenYield:
		return "'yield'"
	case TokenImport:
		return "'import'"
	case TokenAs:
		return "'as'"
	case TokenColon:
		return "':'"
	case TokenComma:
		return "','"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenArrow:
		return "'->'"
	case TokenAssign:
		return "'='"
	case TokenAt:
		return "'@'"
	case TokenLambda:
		return "'lambda'"
	case TokenGlobal:
		return "'global'"
	case TokenNonlocal:
		return "'nonlocal'"
	case TokenDel:
		return "'del'"
	case TokenWith:
		return "'with'"
	case TokenAssert:
		return "'assert'"
	case TokenFrom:
		return "'from'"
	case TokenIllegal:
		return "illegal character"
	default:
		return "operator"
	}
}
