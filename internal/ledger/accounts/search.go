package accounts

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// searchLimit caps search result size.
const searchLimit = 50

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeTerm lowercases and strips diacritics so a query matches bilingual
// account names regardless of accent marks.
func normalizeTerm(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

func matchesQuery(a Account, normalized string) bool {
	if normalized == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.Code), normalized) {
		return true
	}
	if strings.Contains(normalizeTerm(a.Name), normalized) {
		return true
	}
	if a.NameAlt != nil && strings.Contains(normalizeTerm(*a.NameAlt), normalized) {
		return true
	}
	if a.Description != nil && strings.Contains(normalizeTerm(*a.Description), normalized) {
		return true
	}
	return false
}
