package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ankora/ankora/internal/domain"
	"github.com/ankora/ankora/internal/sm2"
)

// retentionWindowDays is how far back LearningStatistics looks when
// computing retention and review pace.
const retentionWindowDays = 30

// forgettingCurveBands are the upper bounds, in days, of the interval
// buckets the forgetting curve groups reviews into. The last band
// collects everything longer.
var forgettingCurveBands = []int{1, 3, 7, 14, 30, 90, 365}

// LearningStatistics aggregates a user's cards and recent review history.
// Statistics are advisory: on a store failure the zero value is returned
// and the error only logged, never propagated.
func (s *Scheduler) LearningStatistics(userID string) domain.LearningStats {
	var stats domain.LearningStats

	cards, err := s.store.CardsForUser(userID)
	if err != nil {
		slog.Warn("learning statistics degraded to defaults", "user", userID, "error", err)
		return stats
	}

	now := s.now()
	reviews, err := s.store.ReviewsSince(userID, now.AddDate(0, 0, -retentionWindowDays))
	if err != nil {
		slog.Warn("learning statistics missing review history", "user", userID, "error", err)
		reviews = nil
	}

	stats.TotalCards = len(cards)

	var correct, incorrect int
	var easeSum, intervalSum float64
	for _, c := range cards {
		stats.TotalReviews += c.ReviewCount
		correct += c.CorrectCount
		incorrect += c.IncorrectCount
		easeSum += c.EaseFactor
		intervalSum += float64(c.Interval)
		if !c.NextReview.After(now) {
			stats.CardsDueToday++
		}
		if sm2.Classify(s.params, c.EaseFactor, c.Interval, false) == domain.StageGraduated {
			stats.GraduatedCards++
		}
		if c.ReviewCount > 0 && c.EaseFactor < 2.0 {
			stats.StrugglingCards++
		}
	}
	if len(cards) > 0 {
		stats.AverageEase = easeSum / float64(len(cards))
		stats.AverageInterval = intervalSum / float64(len(cards))
	}
	if correct+incorrect > 0 {
		stats.AccuracyRate = float64(correct) / float64(correct+incorrect)
	}

	// No history means nothing observed to have been forgotten.
	stats.RetentionRate = 1.0
	if len(reviews) > 0 {
		var retained int
		var timeSum float64
		for _, r := range reviews {
			if !r.IsLapse {
				retained++
			}
			timeSum += float64(r.TimeTaken)
		}
		stats.RetentionRate = float64(retained) / float64(len(reviews))
		stats.ReviewsPerDay = float64(len(reviews)) / retentionWindowDays
		stats.AverageTimeTaken = timeSum / float64(len(reviews))
	}

	return stats
}

// PredictWorkload projects how many cards fall due on each of the next
// daysAhead calendar days, assuming no reviews happen in between. Cards
// already overdue are counted into the first day, since that is when
// they will actually be seen.
func (s *Scheduler) PredictWorkload(userID string, daysAhead int) []domain.WorkloadDay {
	if daysAhead < 1 {
		return nil
	}

	cards, err := s.store.CardsForUser(userID)
	if err != nil {
		slog.Warn("workload prediction degraded to empty", "user", userID, "error", err)
		return nil
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	workload := make([]domain.WorkloadDay, daysAhead)
	for i := range workload {
		workload[i].Date = dayStart.AddDate(0, 0, i).Format("2006-01-02")
	}

	for _, c := range cards {
		day := int(c.NextReview.Sub(dayStart).Hours() / 24)
		if day < 0 {
			day = 0 // overdue backlog lands today
		}
		if day >= daysAhead {
			continue
		}
		workload[day].DueCards++
	}
	return workload
}

// ForgettingCurve buckets the user's review history by the interval the
// card carried going into each review, and reports the observed retention
// and average quality per bucket. Empty buckets are omitted.
func (s *Scheduler) ForgettingCurve(userID string, daysBack int) []domain.ForgettingCurvePoint {
	if daysBack < 1 {
		daysBack = retentionWindowDays
	}

	reviews, err := s.store.ReviewsSince(userID, s.now().AddDate(0, 0, -daysBack))
	if err != nil {
		slog.Warn("forgetting curve degraded to empty", "user", userID, "error", err)
		return nil
	}

	type bucket struct {
		reviews  int
		retained int
		quality  int
	}
	buckets := make([]bucket, len(forgettingCurveBands))

	for _, r := range reviews {
		idx := len(forgettingCurveBands) - 1
		for i, bound := range forgettingCurveBands {
			if r.OldInterval <= bound {
				idx = i
				break
			}
		}
		buckets[idx].reviews++
		buckets[idx].quality += r.Quality
		if !r.IsLapse {
			buckets[idx].retained++
		}
	}

	var points []domain.ForgettingCurvePoint
	for i, b := range buckets {
		if b.reviews == 0 {
			continue
		}
		points = append(points, domain.ForgettingCurvePoint{
			IntervalDays:  forgettingCurveBands[i],
			Reviews:       b.reviews,
			RetentionRate: float64(b.retained) / float64(b.reviews),
			AvgQuality:    float64(b.quality) / float64(b.reviews),
		})
	}
	return points
}

// optimizeHorizonDays is how far ahead OptimizeSchedule projects.
const optimizeHorizonDays = 14

// OptimizeSchedule compares the predicted workload against the user's
// target review pace and recommends how many new cards per day the
// schedule can absorb.
func (s *Scheduler) OptimizeSchedule(userID string, targetDailyReviews, maxNewCards int) domain.ScheduleRecommendation {
	if targetDailyReviews < 1 {
		targetDailyReviews = 20
	}
	if maxNewCards < 0 {
		maxNewCards = 0
	}

	rec := domain.ScheduleRecommendation{
		TargetDailyReviews: targetDailyReviews,
		MaxNewCards:        maxNewCards,
		PredictedWorkload:  s.PredictWorkload(userID, optimizeHorizonDays),
	}

	now := s.now()
	due, err := s.store.DueCards(userID, now)
	if err != nil {
		slog.Warn("schedule optimization missing backlog count", "user", userID, "error", err)
	}
	rec.BacklogSize = len(due)

	var total int
	for _, day := range rec.PredictedWorkload {
		total += day.DueCards
		if day.DueCards > targetDailyReviews {
			rec.OverloadedDays = append(rec.OverloadedDays, day.Date)
		}
	}

	avgLoad := 0
	if len(rec.PredictedWorkload) > 0 {
		avgLoad = total / len(rec.PredictedWorkload)
	}
	spare := targetDailyReviews - avgLoad
	if spare < 0 {
		spare = 0
	}
	if spare > maxNewCards {
		spare = maxNewCards
	}
	rec.SuggestedNewCards = spare

	if rec.BacklogSize > targetDailyReviews {
		rec.Advice = append(rec.Advice,
			fmt.Sprintf("clear the backlog of %d overdue cards before adding new material", rec.BacklogSize))
	}
	if len(rec.OverloadedDays) > 0 {
		rec.Advice = append(rec.Advice,
			fmt.Sprintf("%d of the next %d days exceed the target of %d reviews", len(rec.OverloadedDays), optimizeHorizonDays, targetDailyReviews))
	}
	if rec.SuggestedNewCards == 0 {
		rec.Advice = append(rec.Advice, "hold off introducing new cards until the load drops")
	} else {
		rec.Advice = append(rec.Advice,
			fmt.Sprintf("the schedule can absorb about %d new cards per day", rec.SuggestedNewCards))
	}
	return rec
}
