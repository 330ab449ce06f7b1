package textgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "Le port manque de places de stationnement pendant la saison estivale. " +
	"Les visiteurs se garent sur les trottoirs et bloquent les accès."

func TestApplyDistance_ZeroTarget(t *testing.T) {
	out, dist := ApplyDistance(sampleText, 0, 1)
	assert.Equal(t, sampleText, out)
	assert.Equal(t, 0, dist)

	out, dist = ApplyDistance(sampleText, -3, 1)
	assert.Equal(t, sampleText, out)
	assert.Equal(t, 0, dist)
}

func TestApplyDistance_Deterministic(t *testing.T) {
	for _, seed := range []int64{0, 1, 42, 1234} {
		a, distA := ApplyDistance(sampleText, 15, seed)
		b, distB := ApplyDistance(sampleText, 15, seed)
		require.Equal(t, a, b, "seed %d must reproduce identical output", seed)
		assert.Equal(t, distA, distB)
	}
}

func TestApplyDistance_DifferentSeedsDiffer(t *testing.T) {
	a, _ := ApplyDistance(sampleText, 20, 1)
	b, _ := ApplyDistance(sampleText, 20, 2)
	assert.NotEqual(t, a, b)
}

func TestApplyDistance_ReportsActualDistance(t *testing.T) {
	for _, target := range []int{5, 10, 20, 30} {
		out, dist := ApplyDistance(sampleText, target, 7)
		assert.Equal(t, Distance(sampleText, out), dist, "returned distance must be recomputed, target %d", target)
	}
}

func TestApplyDistance_Convergence(t *testing.T) {
	// Targets up to ~30% of text length: the achieved distance may not equal
	// the target (edits can cancel) but must stay in the same ballpark.
	n := len([]rune(sampleText))
	for _, target := range []int{n / 10, n / 5, n * 3 / 10} {
		for seed := int64(0); seed < 5; seed++ {
			_, dist := ApplyDistance(sampleText, target, seed)
			assert.Greater(t, dist, 0, "target %d seed %d", target, seed)
			assert.LessOrEqual(t, dist, 2*target, "target %d seed %d: distance %d wildly over target", target, seed, dist)
		}
	}
}

func TestApplyDistance_ShortTextNeverDeletedAway(t *testing.T) {
	// Deletion is disabled below the length floor, so even an aggressive
	// target cannot empty a short string.
	out, _ := ApplyDistance("court.", 50, 3)
	assert.NotEmpty(t, out)
}
