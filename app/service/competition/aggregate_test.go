package competition

import (
	"testing"

	"pitchlab/app/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateEmptyInput(t *testing.T) {
	stats := Aggregate(nil, nil)

	require.Len(t, stats.Groups, groupCount)
	assert.Zero(t, stats.TotalRatings)
	assert.Zero(t, stats.TotalWords)
	assert.Zero(t, stats.UniqueVoters)

	for i, g := range stats.Groups {
		assert.Equal(t, domain.GroupNumber(i+1), g.GroupNumber)
		assert.Equal(t, float64(0), g.AverageStars)
		assert.False(t, g.AverageStars != g.AverageStars, "average must never be NaN")
		assert.Zero(t, g.TotalRatings)
		assert.Zero(t, g.TotalWords)
		assert.Zero(t, g.UniqueVoters)
		assert.Empty(t, g.TopWords)
	}
}

func TestAggregateAverages(t *testing.T) {
	ratings := []domain.StarRating{
		{UserID: "u1", GroupNumber: 3, Stars: 5},
		{UserID: "u2", GroupNumber: 3, Stars: 4},
		{UserID: "u3", GroupNumber: 1, Stars: 2},
	}

	stats := Aggregate(ratings, nil)

	g3 := stats.Groups[2]
	assert.InDelta(t, 4.5, g3.AverageStars, 0.001)
	assert.Equal(t, 2, g3.TotalRatings)
	assert.Equal(t, 2, g3.UniqueVoters)

	g1 := stats.Groups[0]
	assert.InDelta(t, 2.0, g1.AverageStars, 0.001)
	assert.Equal(t, 1, g1.TotalRatings)

	assert.Equal(t, 3, stats.TotalRatings)
	assert.Equal(t, 3, stats.UniqueVoters)
}

func TestAggregateWordCounts(t *testing.T) {
	words := []domain.WordCloudEntry{
		{UserID: "u1", GroupNumber: 2, Word: "Claro"},
		{UserID: "u2", GroupNumber: 2, Word: "claro"},
		{UserID: "u3", GroupNumber: 2, Word: "seguro"},
		{UserID: "u4", GroupNumber: 5, Word: "rápido"},
	}

	stats := Aggregate(nil, words)

	g2 := stats.Groups[1]
	assert.Equal(t, 3, g2.TotalWords)
	require.Len(t, g2.TopWords, 2)
	assert.Equal(t, WordCount{Word: "claro", Count: 2}, g2.TopWords[0])
	assert.Equal(t, WordCount{Word: "seguro", Count: 1}, g2.TopWords[1])

	assert.Equal(t, 4, stats.TotalWords)
	assert.Equal(t, 4, stats.UniqueVoters)
}

func TestAggregateTopWordsTieBreak(t *testing.T) {
	words := []domain.WordCloudEntry{
		{UserID: "u1", GroupNumber: 1, Word: "zeta"},
		{UserID: "u2", GroupNumber: 1, Word: "alfa"},
	}

	stats := Aggregate(nil, words)

	top := stats.Groups[0].TopWords
	require.Len(t, top, 2)
	assert.Equal(t, "alfa", top[0].Word)
	assert.Equal(t, "zeta", top[1].Word)
}

func TestAggregateVoterCountedOncePerGroup(t *testing.T) {
	ratings := []domain.StarRating{
		{UserID: "u1", GroupNumber: 1, Stars: 5},
	}
	words := []domain.WordCloudEntry{
		{UserID: "u1", GroupNumber: 1, Word: "bien"},
	}

	stats := Aggregate(ratings, words)

	assert.Equal(t, 1, stats.Groups[0].UniqueVoters)
	assert.Equal(t, 1, stats.UniqueVoters)
}

func TestAggregateSkipsBlankWords(t *testing.T) {
	words := []domain.WordCloudEntry{
		{UserID: "u1", GroupNumber: 1, Word: "   "},
	}

	stats := Aggregate(nil, words)

	assert.Zero(t, stats.Groups[0].TotalWords)
	assert.Zero(t, stats.TotalWords)
}
