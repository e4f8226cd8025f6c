package scheduler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ankora/ankora/internal/domain"
	"github.com/ankora/ankora/internal/sm2"
)

// Store is the card and review-history persistence the scheduler needs.
// *storage.DB satisfies it; tests use an in-memory fake.
type Store interface {
	FindCard(cardID, userID string) (*domain.Card, error)
	ApplyReview(r domain.ReviewResult) (bool, error)
	DueCards(userID string, now time.Time) ([]domain.Card, error)
	CardsForUser(userID string) ([]domain.Card, error)
	ReviewsSince(userID string, since time.Time) ([]domain.ReviewResult, error)
}

// Scheduler owns all mutation of card scheduling state. It is safe for
// concurrent use; per-card serialization is delegated to the store's
// atomic single-row update.
type Scheduler struct {
	store  Store
	params sm2.Params
	now    func() time.Time

	mu  sync.Mutex // guards rng; rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source. Tests pin it to a fixed instant.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithRand overrides the randomness source used for interval fuzzing.
// Tests pass a seeded generator to make fuzz bounds assertable.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// New creates a Scheduler backed by the given store.
func New(store Store, params sm2.Params, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		params: params,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessAnswer records one answer for a card: it fetches the card,
// validates the quality score, runs the SM-2 recurrence, persists the
// new scheduling state together with the history row, and returns the
// scheduling decision. An unknown card is reported before a bad quality
// score, so callers never learn whether a card exists from a validation
// error.
func (s *Scheduler) ProcessAnswer(cardID, userID string, quality, timeTaken int) (*domain.ReviewResult, error) {
	card, err := s.store.FindCard(cardID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching card %s: %w", cardID, err)
	}
	if card == nil {
		return nil, domain.ErrCardNotFound
	}
	if quality < 0 || quality > 5 {
		return nil, domain.ErrInvalidQuality
	}

	now := s.now()

	s.mu.Lock()
	res, err := s.params.Review(s.rng, now, card.EaseFactor, card.Interval, quality, card.ReviewCount)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := domain.ReviewResult{
		CardID:      card.ID,
		UserID:      card.UserID,
		Quality:     quality,
		TimeTaken:   timeTaken,
		OldEase:     card.EaseFactor,
		NewEase:     res.EaseFactor,
		OldInterval: card.Interval,
		NewInterval: res.Interval,
		NextReview:  res.NextReview,
		Stage:       res.Stage,
		IsLapse:     res.IsLapse,
		ReviewedAt:  now,
	}

	updated, err := s.store.ApplyReview(result)
	if err != nil {
		return nil, fmt.Errorf("persisting review for card %s: %w", cardID, err)
	}
	if !updated {
		// The card was deleted between the read and the write.
		return nil, domain.ErrCardNotFound
	}

	return &result, nil
}

// DueCards returns the user's cards due at or before now, highest review
// priority first. A limit of zero means unlimited. When includeLearning
// is false, cards that have never been answered are left out.
func (s *Scheduler) DueCards(userID string, limit int, includeLearning bool) ([]domain.Card, error) {
	now := s.now()
	cards, err := s.store.DueCards(userID, now)
	if err != nil {
		return nil, fmt.Errorf("fetching due cards for user %s: %w", userID, err)
	}

	if !includeLearning {
		kept := cards[:0]
		for _, c := range cards {
			if c.ReviewCount > 0 {
				kept = append(kept, c)
			}
		}
		cards = kept
	}

	Prioritize(cards, now)

	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}
