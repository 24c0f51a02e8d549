package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD normalization. Used for usernames and search terms
// so that visually equivalent inputs compare equal.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// NormalizeLower is Normalize followed by lower-casing, the canonical form
// for case-insensitive matching.
func NormalizeLower(s string) string {
	return strings.ToLower(Normalize(s))
}
