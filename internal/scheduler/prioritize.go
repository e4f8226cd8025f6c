package scheduler

import (
	"sort"
	"time"

	"github.com/ankora/ankora/internal/domain"
)

// Priority scores a card for review ordering. Overdue cards score
// higher the longer they have waited; among equally overdue cards,
// harder (low-ease) and less-practised cards come first, front-loading
// the ones most at risk of being forgotten.
func Priority(card domain.Card, now time.Time) float64 {
	overdueDays := now.Sub(card.NextReview).Seconds() / 86400
	if overdueDays < 0 {
		overdueDays = 0
	}

	score := overdueDays + (3.0-card.EaseFactor)*10
	if card.ReviewCount < 10 {
		score += float64(10 - card.ReviewCount)
	}
	return score
}

// Prioritize sorts cards in place, highest priority first. Ties are
// broken by card id so the ordering is reproducible.
func Prioritize(cards []domain.Card, now time.Time) {
	sort.Slice(cards, func(i, j int) bool {
		pi, pj := Priority(cards[i], now), Priority(cards[j], now)
		if pi != pj {
			return pi > pj
		}
		return cards[i].ID < cards[j].ID
	})
}
