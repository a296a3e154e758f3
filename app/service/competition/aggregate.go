package competition

import (
	"strings"

	"pitchlab/app/domain"

	"github.com/elliotchance/pie/v2"
)

const groupCount = 8

// WordCount is a word with its number of occurrences within a group.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type GroupStats struct {
	GroupNumber  domain.GroupNumber `json:"groupNumber"`
	AverageStars float64            `json:"averageStars"`
	TotalRatings int                `json:"totalRatings"`
	TotalWords   int                `json:"totalWords"`
	UniqueVoters int                `json:"uniqueVoters"`
	TopWords     []WordCount        `json:"topWords"`
}

type Stats struct {
	Groups       []GroupStats `json:"groups"`
	TotalRatings int          `json:"totalRatings"`
	TotalWords   int          `json:"totalWords"`
	UniqueVoters int          `json:"uniqueVoters"`
}

// Aggregate folds raw ratings and word entries into per-group statistics.
// Every group appears in the result even with no submissions, with zero
// averages rather than NaN.
func Aggregate(ratings []domain.StarRating, words []domain.WordCloudEntry) Stats {
	type groupAcc struct {
		starSum int
		ratings int
		words   map[string]int
		voters  map[string]struct{}
	}

	accs := make(map[domain.GroupNumber]*groupAcc, groupCount)
	acc := func(group domain.GroupNumber) *groupAcc {
		a, ok := accs[group]
		if !ok {
			a = &groupAcc{
				words:  make(map[string]int),
				voters: make(map[string]struct{}),
			}
			accs[group] = a
		}
		return a
	}

	allVoters := make(map[string]struct{})

	for _, r := range ratings {
		a := acc(r.GroupNumber)
		a.starSum += r.Stars
		a.ratings++
		a.voters[r.UserID] = struct{}{}
		allVoters[r.UserID] = struct{}{}
	}

	for _, w := range words {
		word := strings.ToLower(strings.TrimSpace(w.Word))
		if word == "" {
			continue
		}

		a := acc(w.GroupNumber)
		a.words[word]++
		a.voters[w.UserID] = struct{}{}
		allVoters[w.UserID] = struct{}{}
	}

	result := Stats{
		Groups:       make([]GroupStats, 0, groupCount),
		TotalRatings: len(ratings),
		UniqueVoters: len(allVoters),
	}

	for group := domain.GroupNumber(1); group <= groupCount; group++ {
		stats := GroupStats{GroupNumber: group, TopWords: []WordCount{}}

		if a, ok := accs[group]; ok {
			stats.TotalRatings = a.ratings
			stats.UniqueVoters = len(a.voters)

			if a.ratings > 0 {
				stats.AverageStars = float64(a.starSum) / float64(a.ratings)
			}

			for word, count := range a.words {
				stats.TotalWords += count
				stats.TopWords = append(stats.TopWords, WordCount{Word: word, Count: count})
			}

			stats.TopWords = topWords(stats.TopWords, 10)
		}

		result.TotalWords += stats.TotalWords
		result.Groups = append(result.Groups, stats)
	}

	return result
}

// topWords orders by count descending with alphabetical ties and keeps at
// most limit entries.
func topWords(words []WordCount, limit int) []WordCount {
	sorted := pie.SortUsing(words, func(a, b WordCount) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Word < b.Word
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return sorted
}
