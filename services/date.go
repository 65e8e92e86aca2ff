package services

import (
	"fmt"
	"time"

	"writ_docket_go/models"
)

// ParseDate parses a calendar date (YYYY-MM-DD) as UTC midnight
func ParseDate(dateStr string) (time.Time, error) {
	parsedTime, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}
	return parsedTime, nil
}

// StartOfDay truncates t to midnight UTC
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last instant of t's UTC day
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseDateRange parses an optional inclusive from/to pair of calendar dates.
// Empty strings leave the bound unset.
func ParseDateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if from != "" {
		t, err := ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, NewValidationError("dateFrom", err.Error())
		}
		start = t
	}
	if to != "" {
		t, err := ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, NewValidationError("dateTo", err.Error())
		}
		end = EndOfDay(t)
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, NewValidationError("dateFrom", "must not be after dateTo")
	}
	return start, end, nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(models.DateLayout)
}
