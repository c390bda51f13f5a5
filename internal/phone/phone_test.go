package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRussianVariants(t *testing.T) {
	inputs := []string{
		"+7 912 345-67-89",
		"7 912 345 67 89",
		"8 912 345 67 89",
		"+7 (912) 345-67-89",
		"8(912)3456789",
	}

	for _, in := range inputs {
		assert.Equal(t, "89123456789", Normalize(in), "input %q", in)
	}
}

func TestNormalizePassThrough(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"abc":              "",
		"+1 (555) 010-999": "+1555010999",
		"9123456789":       "9123456789",
		"+":                "+",
		"+49 30 123456":    "+4930123456",
	}

	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"+7 912 345-67-89",
		"7 912 345 67 89",
		"77",
		"+77",
		"++7 1",
		"+1 202 555 0100",
		"tel: 8-800-555-35-35",
		"",
		"7",
		"+7",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestHasDigits(t *testing.T) {
	tests := map[string]bool{
		"":            false,
		"+":           false,
		"++":          false,
		"89123456789": true,
		"+1":          true,
	}

	for key, want := range tests {
		assert.Equal(t, want, HasDigits(key), "key %q", key)
	}
	assert.False(t, HasDigits(Normalize("+ (---) +")))
}
