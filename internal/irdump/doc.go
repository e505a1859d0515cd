// Package irdump renders lowered modules for inspection. Three formats
// share one hand-written visitor: text prints pseudo-source close to
// the input program, tree draws the node structure as an ASCII diagram,
// and json exports it for external tools.
package irdump
