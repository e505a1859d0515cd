// Package irbuild lowers a parsed source module into emission-ready IR.
//
// Lowering runs in two passes. The first pass registers every class,
// function signature, and import alias so bodies may reference
// declarations that appear later in the unit; base classes are then
// resolved and vtable layouts computed. The second pass lowers bodies,
// threading all mutable state through per-translation contexts.
//
// Type information comes from the external checker's report when one is
// supplied, falling back to source annotations. Everything the subset
// does not cover is rejected with a positioned BuildError rather than
// degraded to slower dynamic code.
package irbuild
