package cache

import "strings"

// containmentScore is returned when one key contains the other.
const containmentScore = 0.95

// minFuzzyRunes is the shortest input that may earn partial credit.
const minFuzzyRunes = 3

// Similarity scores two normalized keys in [0,1].
// Equal strings score 1. Inputs shorter than three runes only match exactly.
// Containment short-circuits to a fixed high score; everything else is
// 1 - levenshtein/max(len).
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < minFuzzyRunes || len(rb) < minFuzzyRunes {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentScore
	}
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes the edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	// keep the shorter slice in the inner loop
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// lastWords returns the trailing n whitespace-separated words of s.
func lastWords(s string, n int) string {
	if n <= 0 {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[len(fields)-n:], " ")
}

// NormalizeKey folds s into a cache key: the trailing window of at most
// window runes, lowercased and trimmed.
func NormalizeKey(s string, window int) string {
	r := []rune(s)
	if window > 0 && len(r) > window {
		r = r[len(r)-window:]
	}
	return strings.TrimSpace(strings.ToLower(string(r)))
}
