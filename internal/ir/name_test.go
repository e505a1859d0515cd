package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain identifier passes through", "counter", "counter"},
		{"dots become underscores", "my.module", "my_module"},
		{"dashes become underscores", "my-mod", "my_mod"},
		{"leading digit gets prefix", "3d", "_3d"},
		{"reserved word gets suffix", "switch", "switch_"},
		{"reserved word default", "default", "default_"},
		{"underscores preserved", "_private", "_private"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestSanitizeNameNormalizesNFC(t *testing.T) {
	// "é" composed vs "e"+combining acute must sanitize identically.
	composed := "café"
	decomposed := "café"
	assert.Equal(t, SanitizeName(composed), SanitizeName(decomposed))
}

func TestSanitizeNameNonASCII(t *testing.T) {
	// Non-ASCII runes collapse to underscores after normalization.
	got := SanitizeName("пуск")
	for _, r := range got {
		assert.True(t, r == '_' || (r >= 'a' && r <= 'z'))
	}
}
