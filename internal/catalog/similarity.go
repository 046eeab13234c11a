package catalog

import "strings"

// bigramSimilarity computes the Sorensen-Dice coefficient over character
// bigrams of the two strings, case-insensitive. Returns a value in [0, 1];
// 1 means identical bigram multisets.
func bigramSimilarity(a, b string) float32 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)

	var overlap int
	for bg, countA := range bigramsA {
		if countB, ok := bigramsB[bg]; ok {
			if countA < countB {
				overlap += countA
			} else {
				overlap += countB
			}
		}
	}

	totalA := len(a) - 1
	totalB := len(b) - 1
	return float32(2*overlap) / float32(totalA+totalB)
}

// bigrams returns the multiset of byte bigrams in s.
func bigrams(s string) map[string]int {
	result := make(map[string]int, len(s))
	for i := 0; i+2 <= len(s); i++ {
		result[s[i:i+2]]++
	}
	return result
}
