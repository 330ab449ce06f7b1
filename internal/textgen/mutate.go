package textgen

import (
	"math/rand"
	"strings"
	"unicode"
)

// Character sets for mutations. Vowels carry the accented forms common in
// French contributions so substitution stays orthographically plausible.
const (
	vowels      = "aeiouàâäéèêëïîôùûü"
	consonants  = "bcdfghjklmnpqrstvwxyz"
	punctuation = ".,;:!?-'\"()"
)

// minLenForDelete guards against degenerate near-empty strings: deletions
// are skipped once the text shrinks to this length.
const minLenForDelete = 10

// ApplyDistance mutates text with random single-rune edits (insert, delete,
// substitute, adjacent swap) until target edits have been applied, and
// returns the mutated text together with its actual Levenshtein distance
// from the original.
//
// The actual distance approximates the target rather than matching it
// exactly: overlapping edits can cancel each other out (an insert next to a
// delete, a swap undone by a substitute). Callers must treat the returned
// distance as authoritative. A target <= 0 returns the input unchanged.
//
// The same seed with the same inputs yields byte-identical output.
func ApplyDistance(text string, target int, seed int64) (string, int) {
	if target <= 0 {
		return text, 0
	}

	rng := rand.New(rand.NewSource(seed))
	chars := []rune(text)
	applied := 0

	for applied < target && len(chars) > 0 {
		kind := rng.Intn(4)
		pos := rng.Intn(len(chars))

		switch kind {
		case 0: // insert
			var c rune
			if rng.Float64() < 0.7 {
				letters := vowels + consonants
				c = []rune(letters)[rng.Intn(len([]rune(letters)))]
			} else {
				extras := punctuation + "   "
				c = []rune(extras)[rng.Intn(len([]rune(extras)))]
			}
			chars = append(chars[:pos], append([]rune{c}, chars[pos:]...)...)
			applied++

		case 1: // delete
			if len(chars) > minLenForDelete {
				chars = append(chars[:pos], chars[pos+1:]...)
				applied++
			}

		case 2: // substitute, same class and case as the original rune
			chars[pos] = substituteRune(rng, chars[pos])
			applied++

		case 3: // adjacent swap
			if pos < len(chars)-1 {
				chars[pos], chars[pos+1] = chars[pos+1], chars[pos]
				applied++
			}
		}
	}

	mutated := string(chars)
	return mutated, Distance(text, mutated)
}

func substituteRune(rng *rand.Rand, orig rune) rune {
	lower := unicode.ToLower(orig)
	var pool []rune
	switch {
	case strings.ContainsRune(vowels, lower):
		pool = runesExcept(vowels, lower)
	case strings.ContainsRune(consonants, lower):
		pool = runesExcept(consonants, lower)
	default:
		pool = []rune(vowels + consonants)
	}
	c := pool[rng.Intn(len(pool))]
	if unicode.IsUpper(orig) {
		c = unicode.ToUpper(c)
	}
	return c
}

func runesExcept(set string, drop rune) []rune {
	out := make([]rune, 0, len(set))
	for _, r := range set {
		if r != drop {
			out = append(out, r)
		}
	}
	return out
}
