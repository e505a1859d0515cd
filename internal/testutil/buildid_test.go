package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGeneratorSequence(t *testing.T) {
	gen := NewFixedIDGenerator("build-1", "build-2")

	assert.Equal(t, "build-1", gen.Generate())
	assert.Equal(t, "build-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestFixedIDGeneratorDefault(t *testing.T) {
	gen := NewFixedIDGenerator()

	assert.Equal(t, "build-test-default", gen.Generate())
	assert.Equal(t, "build-test-default", gen.Generate())
}
