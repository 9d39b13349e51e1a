package textutil

import (
	"sort"
	"strings"
)

// Ratio computes a normalized indel similarity between two strings in [0, 1]:
// 1 - (insertions+deletions needed to transform a into b) / (len(a)+len(b)).
// Identical strings score 1; strings with no common characters score 0.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	lcs := lcsLength(ra, rb)
	return float64(2*lcs) / float64(total)
}

// TokenSetRatio compares two strings as token sets, ignoring duplicate tokens
// and token order. The score is the maximum Ratio over the sorted intersection
// and each side's sorted union, which makes one string that fully contains the
// other's tokens score 1.
func TokenSetRatio(a, b string) float64 {
	tokensA := uniqueSorted(strings.Fields(a))
	tokensB := uniqueSorted(strings.Fields(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		if len(tokensA) == 0 && len(tokensB) == 0 {
			return 1
		}
		return 0
	}

	intersection, diffA, diffB := partitionTokens(tokensA, tokensB)

	common := strings.Join(intersection, " ")
	sideA := joinNonEmpty(common, strings.Join(diffA, " "))
	sideB := joinNonEmpty(common, strings.Join(diffB, " "))

	best := Ratio(sideA, sideB)
	if common != "" {
		if score := Ratio(common, sideA); score > best {
			best = score
		}
		if score := Ratio(common, sideB); score > best {
			best = score
		}
	}
	return best
}

func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func uniqueSorted(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}

func partitionTokens(a, b []string) (intersection, onlyA, onlyB []string) {
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}
	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
		if _, ok := setB[token]; ok {
			intersection = append(intersection, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	for _, token := range b {
		if _, ok := setA[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}
	return intersection, onlyA, onlyB
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
