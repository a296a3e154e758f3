package competition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pitchlab/app/domain"
	"pitchlab/app/store"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

var (
	ErrVotingClosed      = errors.New("voting is closed")
	ErrInvalidSubmission = errors.New("invalid submission")
)

// Service accepts audience votes and serves the aggregated standings.
type Service struct {
	store store.Store
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		store: do.MustInvoke[store.Store](di),
	}, nil
}

// Rate records a star rating for a group. A repeated rating from the same
// user for the same group replaces the previous one.
func (s *Service) Rate(ctx context.Context, userID string, group domain.GroupNumber, stars int) error {
	if err := s.checkVotingOpen(ctx); err != nil {
		return err
	}
	if err := validateVoter(userID, group); err != nil {
		return err
	}
	if stars < 1 || stars > 5 {
		return fmt.Errorf("%w: stars must be between 1 and 5, got %d", ErrInvalidSubmission, stars)
	}

	return s.store.UpsertStarRating(ctx, domain.StarRating{
		UserID:      userID,
		GroupNumber: group,
		Stars:       stars,
		CreatedAt:   time.Now(),
	})
}

// SubmitWord records a one-word impression for a group, replacing any
// previous word from the same user for that group.
func (s *Service) SubmitWord(ctx context.Context, userID string, group domain.GroupNumber, word string) error {
	if err := s.checkVotingOpen(ctx); err != nil {
		return err
	}
	if err := validateVoter(userID, group); err != nil {
		return err
	}

	word = strings.TrimSpace(word)
	if word == "" {
		return fmt.Errorf("%w: word is empty", ErrInvalidSubmission)
	}
	if strings.ContainsAny(word, " \t\n") {
		return fmt.Errorf("%w: expected a single word", ErrInvalidSubmission)
	}
	if len([]rune(word)) > 30 {
		return fmt.Errorf("%w: word is too long", ErrInvalidSubmission)
	}

	return s.store.UpsertWordEntry(ctx, domain.WordCloudEntry{
		UserID:      userID,
		GroupNumber: group,
		Word:        word,
		CreatedAt:   time.Now(),
	})
}

// Stats aggregates everything stored so far.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var (
		ratings []domain.StarRating
		words   []domain.WordCloudEntry
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		ratings, err = s.store.ListStarRatings(ctx)
		return err
	})
	group.Go(func() error {
		var err error
		words, err = s.store.ListWordEntries(ctx)
		return err
	})

	if err := group.Wait(); err != nil {
		return Stats{}, fmt.Errorf("load competition records: %w", err)
	}

	return Aggregate(ratings, words), nil
}

func (s *Service) VotingConfig(ctx context.Context) (domain.VotingConfig, error) {
	return s.store.GetVotingConfig(ctx)
}

func (s *Service) SetVotingConfig(ctx context.Context, cfg domain.VotingConfig) error {
	return s.store.SetVotingConfig(ctx, cfg)
}

func (s *Service) checkVotingOpen(ctx context.Context) error {
	cfg, err := s.store.GetVotingConfig(ctx)
	if err != nil {
		return fmt.Errorf("get voting config: %w", err)
	}

	if !cfg.Effective(time.Now()) {
		return ErrVotingClosed
	}

	return nil
}

func validateVoter(userID string, group domain.GroupNumber) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is empty", ErrInvalidSubmission)
	}
	if group < 1 || group > groupCount {
		return fmt.Errorf("%w: group number must be between 1 and %d, got %d", ErrInvalidSubmission, groupCount, group)
	}
	return nil
}
