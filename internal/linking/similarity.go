package linking

import (
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Jaro-Winkler parameters. The standard boost threshold and prefix size
// work well for short entity names.
const (
	jaroWinklerBoost      = 0.7
	jaroWinklerPrefixSize = 4
)

// NameSimilarity returns a name-oriented string similarity in [0,1].
// Both inputs are expected to be normalized already.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}
	return smetrics.JaroWinkler(a, b, jaroWinklerBoost, jaroWinklerPrefixSize)
}

// EditDistance returns the Levenshtein distance between two strings.
// Fuzzy candidates must satisfy both a similarity floor and an
// edit-distance ceiling.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}
