// Package pysrc lexes and parses the annotated source subset accepted
// by the compiler.
//
// The lexer turns physical indentation into Indent/Dedent tokens and
// suppresses newlines inside brackets. The parser is a recursive
// descent parser producing the AST in ast.go; constructs outside the
// subset (lambda, global, with, slices, the ** operator, tuple
// unpacking in loop targets) are rejected with positioned errors at
// parse time rather than later in lowering.
package pysrc
