package irbuild

import (
	"fmt"

	"github.com/roach88/pyrite/internal/pysrc"
)

// BuildError is a lowering failure tied to a source position. Everything
// the builder rejects is a BuildError; malformed input never degrades to
// silently-dynamic output.
type BuildError struct {
	Pos pysrc.Position
	Msg string
}

func (e *BuildError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("line %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return e.Msg
}

func errorf(pos pysrc.Position, format string, args ...any) error {
	return &BuildError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
