package sm2

import (
	"math"
	"math/rand"
	"time"

	"github.com/ankora/ankora/internal/domain"
)

// Params holds the tunable constants of the SM-2 variant.
type Params struct {
	MinEase        float64 // lower ease factor bound
	MaxEase        float64 // upper ease factor bound
	LapseThreshold int     // quality below this is a failed recall
	SecondInterval int     // interval after the second successful review
	GraduationDays int     // interval at which an easy card graduates
	FuzzFactor     float64 // fractional perturbation applied to intervals
	MaxInterval    int     // interval ceiling in days
}

// DefaultParams returns the standard SM-2 constants.
func DefaultParams() Params {
	return Params{
		MinEase:        1.3,
		MaxEase:        4.0,
		LapseThreshold: 3,
		SecondInterval: 6,
		GraduationDays: 21,
		FuzzFactor:     0.25,
		MaxInterval:    365,
	}
}

// Result is the scheduling outcome of a single review.
type Result struct {
	EaseFactor float64
	Interval   int
	NextReview time.Time
	Stage      domain.Stage
	IsLapse    bool
}

// Review applies one review to a card's scheduling state and returns the
// new state. The interval is fuzzed through rng before the next review
// time is computed, so the output is deterministic for a seeded rng.
// A quality outside [0,5] returns domain.ErrInvalidQuality.
func (p Params) Review(rng *rand.Rand, now time.Time, easeFactor float64, interval, quality, reviewCount int) (Result, error) {
	if quality < 0 || quality > 5 {
		return Result{}, domain.ErrInvalidQuality
	}

	isLapse := quality < p.LapseThreshold
	newEase := p.nextEase(easeFactor, quality)
	newInterval := p.nextInterval(interval, newEase, quality, reviewCount)
	newInterval = Fuzz(rng, p.FuzzFactor, newInterval)

	return Result{
		EaseFactor: newEase,
		Interval:   newInterval,
		NextReview: now.AddDate(0, 0, newInterval),
		Stage:      Classify(p, newEase, newInterval, isLapse),
		IsLapse:    isLapse,
	}, nil
}

// nextEase applies the SM-2 ease recurrence and clamps the result.
// EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))
func (p Params) nextEase(easeFactor float64, quality int) float64 {
	q := float64(quality)
	ease := easeFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < p.MinEase {
		ease = p.MinEase
	}
	if ease > p.MaxEase {
		ease = p.MaxEase
	}
	return ease
}

// nextInterval computes the unfuzzed interval in days. A lapse restarts
// the schedule regardless of how far along the card was.
func (p Params) nextInterval(interval int, newEase float64, quality, reviewCount int) int {
	var next int
	switch {
	case quality < p.LapseThreshold:
		next = 1
	case reviewCount == 0:
		next = 1
	case reviewCount == 1:
		next = p.SecondInterval
	default:
		next = int(math.Round(float64(interval) * newEase))
	}
	if next < 1 {
		next = 1
	}
	if next > p.MaxInterval {
		next = p.MaxInterval
	}
	return next
}

// Fuzz perturbs an interval by up to ±factor of its length so that cards
// reviewed together do not all fall due on the same day. Intervals under
// two days pass through untouched; the result never drops below one day.
func Fuzz(rng *rand.Rand, factor float64, interval int) int {
	if interval < 2 {
		return interval
	}
	delta := (rng.Float64()*2 - 1) * factor * float64(interval)
	fuzzed := int(math.Round(float64(interval) + delta))
	if fuzzed < 1 {
		return 1
	}
	return fuzzed
}

// Classify derives the learning stage from post-review state. The "new"
// stage only exists before the first review, so it is never returned here.
func Classify(p Params, easeFactor float64, interval int, isLapse bool) domain.Stage {
	switch {
	case isLapse:
		return domain.StageRelearning
	case interval < 1:
		return domain.StageLearning
	case easeFactor > 2.5 && interval >= p.GraduationDays:
		return domain.StageGraduated
	default:
		return domain.StageReviewing
	}
}
