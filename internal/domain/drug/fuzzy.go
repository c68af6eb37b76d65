package drug

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// defaultSuggestionThreshold is the minimum normalized similarity for a
// known name to count as a plausible correction of a misspelled query.
const defaultSuggestionThreshold = 0.6

// SuggestNames returns up to max known drug names ranked by similarity to
// the (possibly misspelled) query. Names below the similarity threshold are
// dropped; ties keep the order of the known list.
func SuggestNames(query string, known []string, max int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || max <= 0 {
		return nil
	}

	type scored struct {
		name  string
		score float64
	}
	candidates := make([]scored, 0, len(known))
	for _, name := range known {
		s := NameSimilarity(query, strings.ToLower(name))
		if s >= defaultSuggestionThreshold {
			candidates = append(candidates, scored{name: name, score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

// NameSimilarity returns the normalized Levenshtein similarity of two
// strings in [0, 1], where 1.0 means equal.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance over runes with the classic
// two-row dynamic program.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
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
