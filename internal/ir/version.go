package ir

// Version constants for the IR schema and compiler.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// CompilerVersion is the pyrite compiler version. It participates in
	// compilation-cache keys so cached output never survives a compiler
	// upgrade.
	CompilerVersion = "0.1.0"
)
