// Package phone derives the canonical lookup key used to match customers by phone number.
package phone

import "strings"

// Normalize returns the canonical key for a raw phone number.
//
// Everything except digits and '+' is dropped, then the Russian mobile prefixes
// "+7" and "7" are rewritten to "8", so "+7 912 345-67-89", "7 912 345 67 89" and
// "8 912 345 67 89" share one key. Numbers in any other format are returned
// cleaned but otherwise unchanged.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "+7"):
		return "8" + cleaned[2:]
	case strings.HasPrefix(cleaned, "7"):
		return "8" + cleaned[1:]
	default:
		return cleaned
	}
}

// HasDigits reports whether a key can identify a customer. Keys made only of '+'
// signs would collide across unrelated inputs.
func HasDigits(key string) bool {
	return strings.ContainsAny(key, "0123456789")
}
