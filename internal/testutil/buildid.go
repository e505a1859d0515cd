package testutil

import "sync"

// FixedIDGenerator returns predetermined build identifiers for testing.
//
// This enables deterministic pipeline runs and golden output comparison:
// tests provide a known sequence of IDs and verify exact descriptors.
//
// Thread-safety: FixedIDGenerator is safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := testutil.NewFixedIDGenerator("build-1", "build-2")
//	gen.Generate() // "build-1"
//	gen.Generate() // "build-2"
//	gen.Generate() // panic: all ids exhausted
//
// With no ids, Generate always returns "build-test-default".
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined identifier.
//
// Panics once all ids are consumed. This is a fail-fast approach to
// catch test misconfiguration (more compilations than the test expected).
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.ids) == 0 {
		return "build-test-default"
	}
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
