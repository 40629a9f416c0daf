package words

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoadsEveryTier(t *testing.T) {
	require.NoError(t, Init())
	stats := Stats()
	for _, tier := range Tiers {
		assert.Greater(t, stats[tier], 0, "tier %s should have words", tier)
	}
}

func TestRandomFallsBackWhenTierUnknown(t *testing.T) {
	require.NoError(t, Init())
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, FallbackWord, Random("NoSuchTier", rng))
}

func TestRandomReturnsLowercasedMember(t *testing.T) {
	require.NoError(t, Init())
	rng := rand.New(rand.NewSource(7))
	w := Random("Beginner", rng)
	assert.Contains(t, ForTier("Beginner"), w)
}

func TestPickTierRandomizeStaysEasy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	easy := map[string]bool{"Beginner": true, "Novice": true, "Moderate": true}
	for i := 0; i < 50; i++ {
		assert.True(t, easy[PickTier("Randomize", rng)])
	}
	assert.Equal(t, "Master", PickTier("Master", rng))
}
