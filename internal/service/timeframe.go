package service

import (
	"fmt"
	"time"

	"attempt-service/internal/apperrors"
)

const (
	TimeframeAll   = "all"
	TimeframeWeek  = "week"
	TimeframeMonth = "month"
	TimeframeYear  = "year"
)

// windowStart computes the inclusive lower bound of a timeframe window
// from a single reading of now. The zero time means no lower bound.
func windowStart(timeframe string, now time.Time) (time.Time, error) {
	switch timeframe {
	case "", TimeframeAll:
		return time.Time{}, nil
	case TimeframeWeek:
		return now.AddDate(0, 0, -7), nil
	case TimeframeMonth:
		return now.AddDate(0, -1, 0), nil
	case TimeframeYear:
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown timeframe %q: %w", timeframe, apperrors.ErrInvalidInput)
	}
}
