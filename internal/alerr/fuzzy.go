package alerr

import (
	"fmt"
	"strings"
)

// editDistance is the optimal string alignment distance between a and b,
// compared case-insensitively by rune. An adjacent swap ("Wrads") costs one
// edit.
func editDistance(a, b string) int {
	s := []rune(strings.ToLower(a))
	t := []rune(strings.ToLower(b))
	if len(s) == 0 {
		return len(t)
	}
	if len(t) == 0 {
		return len(s)
	}

	// Three rolling rows: i-2, i-1 and i.
	prev2 := make([]int, len(t)+1)
	prev := make([]int, len(t)+1)
	cur := make([]int, len(t)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s); i++ {
		cur[0] = i
		for j := 1; j <= len(t); j++ {
			cost := 1
			if s[i-1] == t[j-1] {
				cost = 0
			}
			d := min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && s[i-1] == t[j-2] && s[i-2] == t[j-1] {
				d = min(d, prev2[j-2]+1)
			}
			cur[j] = d
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return prev[len(t)]
}

// maxEdits scales the accepted distance with the input so short names
// ("Id", "Usrs") only match near-identical options.
func maxEdits(input string) int {
	return min(max(len([]rune(input))/3, 1), 3)
}

// FindClosestMatch returns the option nearest to input, ignoring case.
// The first of equally near options wins, so pass options sorted.
func FindClosestMatch(input string, options []string) (string, bool) {
	limit := maxEdits(input)
	best, bestDist := "", limit+1
	for _, opt := range options {
		if d := editDistance(input, opt); d < bestDist {
			best, bestDist = opt, d
		}
	}
	return best, bestDist <= limit
}

// SuggestSimilar returns "did you mean 'X'?" for the closest option, or ""
// when nothing is close enough.
func SuggestSimilar(input string, options []string) string {
	if match, ok := FindClosestMatch(input, options); ok {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return ""
}
