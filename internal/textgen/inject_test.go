package textgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const injectText = "Le port manque de places. Les visiteurs se garent sur les trottoirs. Il faut agir rapidement."

func TestInjectViolation_UnknownCategory(t *testing.T) {
	_, _, err := InjectViolation(injectText, "sarcasme", 0.5, 1)
	require.Error(t, err)

	var unknownErr *UnknownCategoryError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "sarcasme", unknownErr.Category)
}

func TestInjectViolation_Deterministic(t *testing.T) {
	for _, cat := range ViolationCategories() {
		a, tagA, errA := InjectViolation(injectText, cat, 0.5, 99)
		b, tagB, errB := InjectViolation(injectText, cat, 0.5, 99)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a, b, "category %s must be reproducible", cat)
		assert.Equal(t, tagA, tagB)
		assert.Equal(t, cat, tagA)
	}
}

func TestInjectViolation_LowIntensityAppends(t *testing.T) {
	out, _, err := InjectViolation(injectText, ViolationNonConstructive, 0.1, 4)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, injectText), "low intensity must leave the original prefix intact")
	assert.Greater(t, len(out), len(injectText))
}

func TestInjectViolation_HighIntensityPrepends(t *testing.T) {
	out, _, err := InjectViolation(injectText, ViolationPersonalAttack, 0.9, 4)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(out, "Le port"), "high intensity must displace the opening sentence")
	assert.Contains(t, out, "Le port manque de places.")
}

func TestInjectViolation_MediumIntensityKeepsEnds(t *testing.T) {
	out, _, err := InjectViolation(injectText, ViolationOffTopic, 0.5, 4)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Le port manque de places."))
	assert.True(t, strings.HasSuffix(out, "Il faut agir rapidement."))
}

func TestInjectViolation_ChangesText(t *testing.T) {
	for _, cat := range ViolationCategories() {
		out, tag, err := InjectViolation(injectText, cat, 0.5, 11)
		require.NoError(t, err)
		assert.NotEqual(t, injectText, out)
		assert.Equal(t, cat, tag)
	}
}

func TestInjectConstructive_Proposal(t *testing.T) {
	out, err := InjectConstructive("Il faudrait plus de pistes cyclables.", ConstructiveProposal, 2)
	require.NoError(t, err)
	// Proposal phrases prepend and lower-case the original opening.
	assert.Contains(t, out, " il faudrait plus de pistes cyclables.")
}

func TestInjectConstructive_PositiveAppends(t *testing.T) {
	orig := "Aménager la place du marché"
	out, err := InjectConstructive(orig, ConstructivePositive, 2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, orig))
	assert.True(t, strings.HasSuffix(out, "."))
}

func TestInjectConstructive_UnknownKind(t *testing.T) {
	_, err := InjectConstructive("texte", ConstructiveKind("inconnu"), 2)
	var unknownErr *UnknownCategoryError
	require.ErrorAs(t, err, &unknownErr)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Une phrase.", []string{"Une phrase."}},
		{"Deux phrases. Voici la seconde.", []string{"Deux phrases.", "Voici la seconde."}},
		{"Exclamation ! Question ? Point.", []string{"Exclamation !", "Question ?", "Point."}},
		{"Pas de ponctuation finale", []string{"Pas de ponctuation finale"}},
		{"", nil},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, splitSentences(tc.in), "input %q", tc.in)
	}
}
