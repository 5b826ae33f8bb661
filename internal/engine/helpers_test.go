package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/models"
)

func day(month time.Month, d int) models.Date {
	return models.NewDate(2026, month, d)
}

func datePtr(d models.Date) *models.Date { return &d }

func newMilestone(start, end models.Date, pct int) *models.Milestone {
	return &models.Milestone{
		ID:                uuid.New(),
		GoalID:            uuid.New(),
		Title:             "January",
		StartDate:         start,
		EndDate:           end,
		CompletionPercent: pct,
	}
}

func newRecurring(title string, weekdays []int, target int) models.RecurringAction {
	return models.RecurringAction{
		ID:            uuid.New(),
		Title:         title,
		Weekdays:      weekdays,
		TargetPercent: target,
	}
}

// completeAll logs every rule date of a in [from, to] as completed except
// the given skips.
func completeAll(a *models.RecurringAction, ms *models.Milestone, from, to models.Date, skip ...models.Date) {
	skipped := make(map[models.Date]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for _, o := range Occurrences(a, ms, from, to) {
		a.Logs = append(a.Logs, models.RecurringActionLog{
			ID:                uuid.New(),
			RecurringActionID: a.ID,
			Date:              o.Date,
			Completed:         !skipped[o.Date],
		})
	}
}

var noon = time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
