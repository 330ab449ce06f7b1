// Package textgen produces controlled corruptions of contribution text:
// Levenshtein distance and similarity, randomized character-level mutation
// toward a target distance, and injection of known violation or constructive
// phrases. Everything here is pure computation; determinism is guaranteed
// when a seed is supplied.
package textgen

// Distance returns the Levenshtein edit distance between a and b, counting
// single-rune insertions, deletions and substitutions at cost 1 each.
// Rune-based so accented French text measures correctly.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, ca := range ra {
		curr[0] = i + 1
		for j, cb := range rb {
			ins := prev[j+1] + 1
			del := curr[j] + 1
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min3(ins, del, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Ratio returns a similarity score in [0,1]: 1 - distance/maxLen.
// Two empty strings are identical by convention.
func Ratio(a, b string) float64 {
	maxLen := len([]rune(a))
	if lb := len([]rune(b)); lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(a, b))/float64(maxLen)
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
