package domain

// LearningStats is a read-only aggregate over a user's cards and
// review history. Recomputed on demand, never stored.
type LearningStats struct {
	TotalCards       int     `json:"totalCards"`
	TotalReviews     int     `json:"totalReviews"`
	AccuracyRate     float64 `json:"accuracyRate"`
	RetentionRate    float64 `json:"retentionRate"`
	AverageEase      float64 `json:"averageEaseFactor"`
	AverageInterval  float64 `json:"averageInterval"`
	CardsDueToday    int     `json:"cardsDueToday"`
	GraduatedCards   int     `json:"graduatedCards"`
	StrugglingCards  int     `json:"strugglingCards"`
	ReviewsPerDay    float64 `json:"reviewsPerDay"`
	AverageTimeTaken float64 `json:"averageTimeSeconds"`
}

// ForgettingCurvePoint is the observed retention within one
// interval band, e.g. all reviews whose prior interval was <=7 days.
type ForgettingCurvePoint struct {
	IntervalDays  int     `json:"intervalDays"`
	Reviews       int     `json:"reviews"`
	RetentionRate float64 `json:"retentionRate"`
	AvgQuality    float64 `json:"avgQuality"`
}

// WorkloadDay is the predicted number of cards falling due on one
// calendar day, assuming no reviews happen in between.
type WorkloadDay struct {
	Date     string `json:"date"`
	DueCards int    `json:"dueCards"`
}

// ScheduleRecommendation is the output of the schedule optimizer.
type ScheduleRecommendation struct {
	TargetDailyReviews int           `json:"targetDailyReviews"`
	MaxNewCards        int           `json:"maxNewCards"`
	PredictedWorkload  []WorkloadDay `json:"predictedWorkload"`
	OverloadedDays     []string      `json:"overloadedDays"`
	SuggestedNewCards  int           `json:"suggestedNewCardsPerDay"`
	BacklogSize        int           `json:"backlogSize"`
	Advice             []string      `json:"advice"`
}
