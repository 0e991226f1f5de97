package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a display name for comparison (lowercase, no
// diacritics, dashes to spaces, collapsed whitespace).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeRollNumber canonicalizes a roll number: trimmed, upper case,
// width-folded (full-width digits become ASCII).
func NormalizeRollNumber(roll string) string {
	roll = norm.NFKC.String(roll)
	return strings.ToUpper(strings.TrimSpace(roll))
}

// MatchesQuery reports whether a student's name or roll number contains the
// query after normalization. An empty query matches everything.
func MatchesQuery(name, rollNumber, query string) bool {
	if strings.TrimSpace(query) == "" {
		return true
	}
	if q := NormalizeName(query); q != "" && strings.Contains(NormalizeName(name), q) {
		return true
	}
	return strings.Contains(NormalizeRollNumber(rollNumber), NormalizeRollNumber(query))
}
