package store

import (
	"context"

	"pitchlab/app/domain"
)

// Store persists the competition records. Ratings and words are keyed by a
// deterministic (user, group) composite id, so a repeated submission
// overwrites instead of duplicating.
type Store interface {
	UpsertStarRating(ctx context.Context, rating domain.StarRating) error
	ListStarRatings(ctx context.Context) ([]domain.StarRating, error)

	UpsertWordEntry(ctx context.Context, entry domain.WordCloudEntry) error
	ListWordEntries(ctx context.Context) ([]domain.WordCloudEntry, error)

	GetVotingConfig(ctx context.Context) (domain.VotingConfig, error)
	SetVotingConfig(ctx context.Context, cfg domain.VotingConfig) error

	Close() error
}
