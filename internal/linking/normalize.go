package linking

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nameFolder strips diacritics after NFKD decomposition so "café" and
// "cafe" normalize identically.
var nameFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName produces the canonical lookup form of an entity name or
// mention: lower-cased, trimmed, underscores and hyphens collapsed to
// single spaces, diacritics folded.
func NormalizeName(name string) string {
	folded, _, err := transform.String(nameFolder, name)
	if err != nil {
		// Fold failure leaves the input usable as-is.
		folded = name
	}

	normalized := strings.ToLower(strings.TrimSpace(folded))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")

	// Collapse runs of whitespace
	return strings.Join(strings.Fields(normalized), " ")
}

// SignificantWords extracts the set of lower-cased words longer than two
// characters, split on non-alphanumeric boundaries. Used by the context
// relevance factor.
func SignificantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	if text == "" {
		return words
	}

	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, f := range fields {
		if len(f) > 2 {
			words[f] = struct{}{}
		}
	}
	return words
}

// jaccard computes set overlap in [0,1]. Empty union yields 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
