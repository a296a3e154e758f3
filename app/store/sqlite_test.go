package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pitchlab/app/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestStarRatingUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertStarRating(ctx, domain.StarRating{
		UserID: "u1", GroupNumber: 3, Stars: 2, CreatedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertStarRating(ctx, domain.StarRating{
		UserID: "u1", GroupNumber: 3, Stars: 5, CreatedAt: time.Now(),
	}))

	ratings, err := s.ListStarRatings(ctx)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, 5, ratings[0].Stars)
}

func TestStarRatingDifferentGroupsKept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertStarRating(ctx, domain.StarRating{
		UserID: "u1", GroupNumber: 1, Stars: 4, CreatedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertStarRating(ctx, domain.StarRating{
		UserID: "u1", GroupNumber: 2, Stars: 3, CreatedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertStarRating(ctx, domain.StarRating{
		UserID: "u2", GroupNumber: 1, Stars: 5, CreatedAt: time.Now(),
	}))

	ratings, err := s.ListStarRatings(ctx)
	require.NoError(t, err)
	assert.Len(t, ratings, 3)
}

func TestWordEntryUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertWordEntry(ctx, domain.WordCloudEntry{
		UserID: "u1", GroupNumber: 3, Word: "claro", CreatedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertWordEntry(ctx, domain.WordCloudEntry{
		UserID: "u1", GroupNumber: 3, Word: "convincente", CreatedAt: time.Now(),
	}))

	words, err := s.ListWordEntries(ctx)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "convincente", words[0].Word)
}

func TestVotingConfigDefaultsOpen(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.GetVotingConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.IsOpen)
	assert.Nil(t, cfg.CloseTime)
}

func TestVotingConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	closeTime := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, s.SetVotingConfig(ctx, domain.VotingConfig{
		IsOpen:    true,
		CloseTime: &closeTime,
	}))

	cfg, err := s.GetVotingConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.IsOpen)
	require.NotNil(t, cfg.CloseTime)
	assert.Equal(t, closeTime.Unix(), cfg.CloseTime.Unix())

	require.NoError(t, s.SetVotingConfig(ctx, domain.VotingConfig{IsOpen: false}))

	cfg, err = s.GetVotingConfig(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.IsOpen)
	assert.Nil(t, cfg.CloseTime)
}
