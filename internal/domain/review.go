package domain

import "time"

// Stage is the learning stage a card is in after a review.
type Stage string

const (
	StageNew        Stage = "new"
	StageLearning   Stage = "learning"
	StageReviewing  Stage = "reviewing"
	StageRelearning Stage = "relearning"
	StageGraduated  Stage = "graduated"
)

// ReviewResult is the immutable record of one scheduling decision.
type ReviewResult struct {
	CardID      string    `json:"cardId"`
	UserID      string    `json:"userId"`
	Quality     int       `json:"quality"`
	TimeTaken   int       `json:"timeTaken"`
	OldEase     float64   `json:"oldEaseFactor"`
	NewEase     float64   `json:"newEaseFactor"`
	OldInterval int       `json:"oldInterval"`
	NewInterval int       `json:"newInterval"`
	NextReview  time.Time `json:"nextReview"`
	Stage       Stage     `json:"stage"`
	IsLapse     bool      `json:"isLapse"`
	ReviewedAt  time.Time `json:"reviewedAt"`
}
