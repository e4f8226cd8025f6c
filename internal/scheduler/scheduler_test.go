package scheduler

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ankora/ankora/internal/domain"
	"github.com/ankora/ankora/internal/sm2"
)

// fakeStore is an in-memory Store for tests.
type fakeStore struct {
	cards   map[string]domain.Card
	reviews []domain.ReviewResult

	findErr    error
	applyErr   error
	dueErr     error
	cardsErr   error
	reviewsErr error

	applyVanishes bool
}

func newFakeStore(cards ...domain.Card) *fakeStore {
	fs := &fakeStore{cards: make(map[string]domain.Card)}
	for _, c := range cards {
		fs.cards[c.ID] = c
	}
	return fs
}

func (f *fakeStore) FindCard(cardID, userID string) (*domain.Card, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.cards[cardID]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) ApplyReview(r domain.ReviewResult) (bool, error) {
	if f.applyErr != nil {
		return false, f.applyErr
	}
	if f.applyVanishes {
		return false, nil
	}
	c, ok := f.cards[r.CardID]
	if !ok || c.UserID != r.UserID {
		return false, nil
	}
	c.EaseFactor = r.NewEase
	c.Interval = r.NewInterval
	c.NextReview = r.NextReview
	c.ReviewCount++
	if r.IsLapse {
		c.IncorrectCount++
	} else {
		c.CorrectCount++
	}
	f.cards[r.CardID] = c
	f.reviews = append(f.reviews, r)
	return true, nil
}

func (f *fakeStore) DueCards(userID string, now time.Time) ([]domain.Card, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var due []domain.Card
	for _, c := range f.cards {
		if c.UserID == userID && !c.NextReview.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (f *fakeStore) CardsForUser(userID string) ([]domain.Card, error) {
	if f.cardsErr != nil {
		return nil, f.cardsErr
	}
	var cards []domain.Card
	for _, c := range f.cards {
		if c.UserID == userID {
			cards = append(cards, c)
		}
	}
	return cards, nil
}

func (f *fakeStore) ReviewsSince(userID string, since time.Time) ([]domain.ReviewResult, error) {
	if f.reviewsErr != nil {
		return nil, f.reviewsErr
	}
	var out []domain.ReviewResult
	for _, r := range f.reviews {
		if r.UserID == userID && !r.ReviewedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestScheduler(store Store) *Scheduler {
	return New(store, sm2.DefaultParams(),
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(1))),
	)
}

func TestProcessAnswer(t *testing.T) {
	t.Run("new card answered perfectly", func(t *testing.T) {
		store := newFakeStore(domain.NewCard("c1", "alice", "Q", "A", testNow))
		s := newTestScheduler(store)

		res, err := s.ProcessAnswer("c1", "alice", 5, 12)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.NewInterval != 1 {
			t.Errorf("expected interval 1, got %d", res.NewInterval)
		}
		if res.NewEase <= res.OldEase {
			t.Errorf("expected ease to rise from %v, got %v", res.OldEase, res.NewEase)
		}
		if res.Stage != domain.StageReviewing {
			t.Errorf("expected reviewing, got %q", res.Stage)
		}
		if res.IsLapse {
			t.Error("quality 5 must not be a lapse")
		}

		stored := store.cards["c1"]
		if stored.ReviewCount != 1 {
			t.Errorf("expected review count 1, got %d", stored.ReviewCount)
		}
		if stored.CorrectCount != 1 || stored.IncorrectCount != 0 {
			t.Errorf("expected 1 correct / 0 incorrect, got %d/%d", stored.CorrectCount, stored.IncorrectCount)
		}
		if len(store.reviews) != 1 {
			t.Fatalf("expected one history row, got %d", len(store.reviews))
		}
		if store.reviews[0].TimeTaken != 12 {
			t.Errorf("expected time taken 12, got %d", store.reviews[0].TimeTaken)
		}
	})

	t.Run("lapse resets interval and records incorrect", func(t *testing.T) {
		card := domain.NewCard("c1", "alice", "Q", "A", testNow)
		card.Interval = 6
		card.ReviewCount = 1
		store := newFakeStore(card)
		s := newTestScheduler(store)

		res, err := s.ProcessAnswer("c1", "alice", 2, 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.NewInterval != 1 {
			t.Errorf("expected interval reset to 1, got %d", res.NewInterval)
		}
		if res.Stage != domain.StageRelearning {
			t.Errorf("expected relearning, got %q", res.Stage)
		}
		if !res.IsLapse {
			t.Error("quality 2 must be a lapse")
		}
		stored := store.cards["c1"]
		if stored.IncorrectCount != 1 {
			t.Errorf("expected 1 incorrect, got %d", stored.IncorrectCount)
		}
	})

	t.Run("unknown card", func(t *testing.T) {
		s := newTestScheduler(newFakeStore())
		if _, err := s.ProcessAnswer("nope", "alice", 4, 5); !errors.Is(err, domain.ErrCardNotFound) {
			t.Errorf("expected ErrCardNotFound, got %v", err)
		}
	})

	t.Run("card owned by another user", func(t *testing.T) {
		store := newFakeStore(domain.NewCard("c1", "bob", "Q", "A", testNow))
		s := newTestScheduler(store)
		if _, err := s.ProcessAnswer("c1", "alice", 4, 5); !errors.Is(err, domain.ErrCardNotFound) {
			t.Errorf("expected ErrCardNotFound, got %v", err)
		}
	})

	t.Run("invalid quality", func(t *testing.T) {
		store := newFakeStore(domain.NewCard("c1", "alice", "Q", "A", testNow))
		s := newTestScheduler(store)
		if _, err := s.ProcessAnswer("c1", "alice", 6, 5); !errors.Is(err, domain.ErrInvalidQuality) {
			t.Errorf("expected ErrInvalidQuality, got %v", err)
		}
		if len(store.reviews) != 0 {
			t.Error("invalid quality must not write history")
		}
	})

	t.Run("unknown card wins over invalid quality", func(t *testing.T) {
		s := newTestScheduler(newFakeStore())
		if _, err := s.ProcessAnswer("nope", "alice", 9, 5); !errors.Is(err, domain.ErrCardNotFound) {
			t.Errorf("expected ErrCardNotFound, got %v", err)
		}
	})

	t.Run("store errors propagate", func(t *testing.T) {
		store := newFakeStore(domain.NewCard("c1", "alice", "Q", "A", testNow))
		store.applyErr = errors.New("disk full")
		s := newTestScheduler(store)
		if _, err := s.ProcessAnswer("c1", "alice", 4, 5); err == nil || !errors.Is(err, store.applyErr) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})

	t.Run("card deleted mid-flight", func(t *testing.T) {
		store := newFakeStore(domain.NewCard("c1", "alice", "Q", "A", testNow))
		store.applyVanishes = true
		s := newTestScheduler(store)
		if _, err := s.ProcessAnswer("c1", "alice", 4, 5); !errors.Is(err, domain.ErrCardNotFound) {
			t.Errorf("expected ErrCardNotFound, got %v", err)
		}
	})
}

func TestDueCards(t *testing.T) {
	overdue2d := domain.NewCard("a", "alice", "Q1", "A1", testNow)
	overdue2d.NextReview = testNow.AddDate(0, 0, -2)
	overdue1d := domain.NewCard("b", "alice", "Q2", "A2", testNow)
	overdue1d.NextReview = testNow.AddDate(0, 0, -1)
	future := domain.NewCard("c", "alice", "Q3", "A3", testNow)
	future.NextReview = testNow.AddDate(0, 0, 1)

	t.Run("returns only due cards, most overdue first", func(t *testing.T) {
		s := newTestScheduler(newFakeStore(overdue2d, overdue1d, future))
		cards, err := s.DueCards("alice", 0, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cards) != 2 {
			t.Fatalf("expected 2 due cards, got %d", len(cards))
		}
		if cards[0].ID != "a" || cards[1].ID != "b" {
			t.Errorf("expected order [a b], got [%s %s]", cards[0].ID, cards[1].ID)
		}
	})

	t.Run("limit truncates after prioritization", func(t *testing.T) {
		s := newTestScheduler(newFakeStore(overdue2d, overdue1d, future))
		cards, err := s.DueCards("alice", 1, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cards) != 1 || cards[0].ID != "a" {
			t.Errorf("expected just card a, got %v", cards)
		}
	})

	t.Run("excluding learning drops unanswered cards", func(t *testing.T) {
		practised := overdue1d
		practised.ReviewCount = 3
		s := newTestScheduler(newFakeStore(overdue2d, practised))
		cards, err := s.DueCards("alice", 0, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cards) != 1 || cards[0].ID != "b" {
			t.Errorf("expected just the practised card b, got %v", cards)
		}
	})

	t.Run("store errors propagate", func(t *testing.T) {
		store := newFakeStore()
		store.dueErr = errors.New("closed")
		s := newTestScheduler(store)
		if _, err := s.DueCards("alice", 0, true); err == nil {
			t.Error("expected error")
		}
	})
}
