// Package phone normalizes, validates and masks WhatsApp phone numbers.
package phone

import (
	"fmt"
	"strings"
)

const (
	minDigits = 10
	maxDigits = 15
)

// Normalize strips every non-digit character from raw and validates the
// remaining digit count against the international numbering bounds.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", fmt.Errorf("phone number %q has %d digits, want %d to %d", raw, len(digits), minDigits, maxDigits)
	}

	return digits, nil
}

// NormalizeList splits raw on commas and newlines, normalizes each entry
// independently and removes duplicates by normalized value. The first
// occurrence wins and first-seen order is preserved. Entries that fail
// validation are returned as-is in rejected.
func NormalizeList(raw string) (valid []string, rejected []string) {
	seen := make(map[string]struct{})

	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	}) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		number, err := Normalize(part)
		if err != nil {
			rejected = append(rejected, part)
			continue
		}

		if _, dup := seen[number]; dup {
			continue
		}
		seen[number] = struct{}{}
		valid = append(valid, number)
	}

	return valid, rejected
}

// Mask hides the middle of a number for display and logging. Numbers shorter
// than six characters are fully masked at the same length.
func Mask(number string) string {
	if len(number) < 6 {
		return strings.Repeat("*", len(number))
	}
	return number[:3] + strings.Repeat("*", len(number)-6) + number[len(number)-3:]
}
