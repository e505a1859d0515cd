// Package ir provides the typed intermediate representation for pyrite.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This ensures IR remains the
// foundational layer with no circular dependencies.
//
// The IR is built once per source unit by internal/irbuild and consumed by
// the emitters in internal/cemit. Entities are immutable after construction
// except for the base-class back-reference on ClassIR, which is populated
// by ModuleIR.ResolveBases after every class in the unit is known.
//
// SEALED INTERFACES:
//
// Expr, Stmt, Instr and Literal are sealed interfaces using the marker
// method pattern. Only types in this package can implement them.
//
// This enables:
//   - Exhaustive type switches in the emitters
//   - Compile-time safety against external extensions
//   - A closed set of node kinds per lowering pass
package ir
