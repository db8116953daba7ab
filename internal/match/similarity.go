// Package match provides edit-distance string similarity for near-duplicate
// title clustering.
package match

import "strings"

// Similarity returns a score in [0,1] for two titles: 1 minus the Levenshtein
// distance over the longer normalized length. Empty input scores 0. Inputs
// are case-folded and runs of whitespace collapsed before comparison, so
// titles that differ only in spacing or case are identical.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	dist := levenshtein(ra, rb)

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(dist)/float64(maxLen)
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// levenshtein computes the classic unit-cost edit distance by dynamic
// programming over the full pair. Per-bucket clusters are small, so no
// early-exit heuristics.
func levenshtein(a, b []rune) int {
	m, n := len(a), len(b)

	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
