package domain

import "errors"

// Errors the scheduler surfaces to callers. Storage failures are not
// sentinels; they are wrapped with context and propagate as-is.
var (
	// ErrCardNotFound means the card id is absent or owned by a
	// different user. Not retryable.
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidQuality means the quality score is outside [0,5].
	ErrInvalidQuality = errors.New("quality must be between 0 and 5")
)
