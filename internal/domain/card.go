package domain

import "time"

// DefaultEaseFactor is the SM-2 starting ease for a freshly created card.
const DefaultEaseFactor = 2.5

// Card is a single unit of recallable knowledge together with its
// SM-2 scheduling state. Question and Answer are opaque to the
// scheduler; only the scheduling fields are mutated on review.
type Card struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	SourceID       int64     `json:"sourceId,omitempty"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Context        string    `json:"context,omitempty"`
	EaseFactor     float64   `json:"easeFactor"`
	Interval       int       `json:"interval"`
	NextReview     time.Time `json:"nextReview"`
	ReviewCount    int       `json:"reviewCount"`
	CorrectCount   int       `json:"correctCount"`
	IncorrectCount int       `json:"incorrectCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewCard returns a card with the initial scheduling state: due
// immediately, default ease, one-day interval.
func NewCard(id, userID, question, answer string, now time.Time) Card {
	return Card{
		ID:         id,
		UserID:     userID,
		Question:   question,
		Answer:     answer,
		EaseFactor: DefaultEaseFactor,
		Interval:   1,
		NextReview: now,
		CreatedAt:  now,
	}
}
