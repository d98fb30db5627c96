// Package textnorm cleans free-text transaction descriptions and derives
// merchant keys from them.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanDescription trims s and collapses internal whitespace runs to one space.
func CleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// MerchantKey folds accents, lower-cases s, replaces each run of characters
// outside [a-z0-9] with one space and trims the result.
func MerchantKey(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(foldAccents(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
