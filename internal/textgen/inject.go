package textgen

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// ViolationCategory is the closed set of injectable charter violations.
// Order is severity order: the progressive variation series maps its late
// steps onto the later (harsher) categories.
type ViolationCategory string

const (
	ViolationPersonalAttack  ViolationCategory = "personal_attack"
	ViolationOffTopic        ViolationCategory = "off_topic"
	ViolationNonConstructive ViolationCategory = "non_constructive"
	ViolationAggressive      ViolationCategory = "aggressive"
)

// ViolationCategories lists all categories in severity order.
func ViolationCategories() []ViolationCategory {
	return []ViolationCategory{
		ViolationPersonalAttack,
		ViolationOffTopic,
		ViolationNonConstructive,
		ViolationAggressive,
	}
}

// UnknownCategoryError is returned when an injector is asked for a category
// outside the closed catalog. Silent fallback here would poison the
// expected-validity labels downstream, so this always fails loudly.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown violation category %q", e.Category)
}

var violationPatterns = map[ViolationCategory][]string{
	ViolationPersonalAttack: {
		"cet incompétent de maire",
		"ces idiots du conseil",
		"le maire est un menteur",
		"ils sont tous corrompus",
		"bande d'incapables",
	},
	ViolationOffTopic: {
		"d'ailleurs, parlons de la politique nationale",
		"comme le président Macron",
		"les immigrés sont responsables",
		"le gouvernement devrait",
	},
	ViolationNonConstructive: {
		"c'est nul",
		"ça ne marchera jamais",
		"personne ne fait rien",
		"tout est pourri",
		"ça sert à rien",
	},
	ViolationAggressive: {
		"!!!",
		"RÉVEILLEZ-VOUS",
		"C'EST SCANDALEUX",
		"HONTE À VOUS",
		"INADMISSIBLE",
	},
}

// ConstructiveKind selects the catalog used to nudge a borderline text
// toward validity.
type ConstructiveKind string

const (
	ConstructiveProposal      ConstructiveKind = "proposal"
	ConstructiveCollaboration ConstructiveKind = "collaboration"
	ConstructivePositive      ConstructiveKind = "positive"
)

var constructivePatterns = map[ConstructiveKind][]string{
	ConstructiveProposal: {
		"Je propose que",
		"Il serait intéressant de",
		"Une solution pourrait être",
		"Nous pourrions envisager",
	},
	ConstructiveCollaboration: {
		"ensemble, nous pourrions",
		"en collaboration avec les habitants",
		"avec le soutien de la communauté",
		"en impliquant les citoyens",
	},
	ConstructivePositive: {
		"pour améliorer",
		"pour le bien de tous",
		"dans l'intérêt général",
		"pour notre commune",
	},
}

// InjectViolation inserts one phrase from the category's catalog into text.
// Intensity steers placement: below 0.3 the phrase is appended, below 0.7 it
// becomes a new sentence at the structural midpoint, otherwise it is
// prepended before the first sentence. Returns the modified text and the
// category tag actually applied.
func InjectViolation(text string, category ViolationCategory, intensity float64, seed int64) (string, ViolationCategory, error) {
	patterns, ok := violationPatterns[category]
	if !ok {
		return text, "", &UnknownCategoryError{Category: string(category)}
	}

	rng := rand.New(rand.NewSource(seed))
	pattern := patterns[rng.Intn(len(patterns))]

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return fmt.Sprintf("%s. %s", pattern, text), category, nil
	}

	var modified string
	switch {
	case intensity < 0.3:
		modified = fmt.Sprintf("%s %s.", text, pattern)
	case intensity < 0.7:
		mid := len(sentences) / 2
		withInsert := make([]string, 0, len(sentences)+1)
		withInsert = append(withInsert, sentences[:mid]...)
		withInsert = append(withInsert, pattern)
		withInsert = append(withInsert, sentences[mid:]...)
		modified = strings.Join(withInsert, " ")
	default:
		sentences[0] = fmt.Sprintf("%s. %s", pattern, sentences[0])
		modified = strings.Join(sentences, " ")
	}
	return modified, category, nil
}

// InjectConstructive prepends a proposal phrase (lowering the original's
// first letter) or appends a collaboration/positive phrase as a trailer.
func InjectConstructive(text string, kind ConstructiveKind, seed int64) (string, error) {
	patterns, ok := constructivePatterns[kind]
	if !ok {
		return text, &UnknownCategoryError{Category: string(kind)}
	}

	rng := rand.New(rand.NewSource(seed))
	pattern := patterns[rng.Intn(len(patterns))]

	if kind == ConstructiveProposal {
		runes := []rune(text)
		if len(runes) == 0 {
			return pattern, nil
		}
		return fmt.Sprintf("%s %s%s", pattern, strings.ToLower(string(runes[0])), string(runes[1:])), nil
	}
	return fmt.Sprintf("%s %s.", text, pattern), nil
}

// splitSentences breaks text after sentence-ending punctuation followed by
// whitespace. Trailing punctuation stays attached to its sentence.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			// Consume the run of terminal punctuation, then break on
			// following whitespace.
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
				j++
			}
			if j+1 < len(runes) && unicode.IsSpace(runes[j+1]) {
				out = append(out, strings.TrimSpace(string(runes[start:j+1])))
				start = j + 2
				for start < len(runes) && unicode.IsSpace(runes[start]) {
					start++
				}
				i = start - 1
			} else {
				i = j
			}
		}
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}
