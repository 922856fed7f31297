package filter

import "strings"

// SimilarityRatio returns 2*LCS / (len(a)+len(b)) over runes of the
// normalized inputs, in [0,1]. Titles are short, so the quadratic table is
// cheap.
func SimilarityRatio(a, b string) float64 {
	ra := []rune(normalizeTitle(a))
	rb := []rune(normalizeTitle(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]

	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
