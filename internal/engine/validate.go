package engine

import (
	"sort"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/models"
)

// NormalizeWeekdays checks that every value is 1..7 and returns the set
// sorted without duplicates. An empty set is rejected.
func NormalizeWeekdays(weekdays []int) ([]int, error) {
	if len(weekdays) == 0 {
		return nil, apperrors.Validation("at least one weekday is required")
	}
	seen := make(map[int]bool, len(weekdays))
	out := make([]int, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < 1 || wd > 7 {
			return nil, apperrors.Validation("weekday %d out of range 1-7", wd)
		}
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	sort.Ints(out)
	return out, nil
}

func ValidatePercent(field string, v int) error {
	if v < 1 || v > 100 {
		return apperrors.Validation("%s must be between 1 and 100", field)
	}
	return nil
}

func ValidateWindow(start, end models.Date) error {
	if end.Before(start) {
		return apperrors.Validation("end date %s is before start date %s", end, start)
	}
	return nil
}
