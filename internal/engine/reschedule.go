package engine

import (
	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/models"
)

// OccurrenceMove says how to persist moving one recurring occurrence.
type OccurrenceMove struct {
	// Log is the existing row to re-date; nil means a new, uncompleted row.
	Log     *models.RecurringActionLog
	NewDate models.Date
	// MovedFrom is the rule date the occurrence replaces, or nil when it lands
	// back on its own rule date.
	MovedFrom *models.Date
	// Stale is a leftover row on NewDate that is not an occurrence and must be
	// removed before the move to keep (action, date) unique.
	Stale *models.RecurringActionLog
}

// PlanOccurrenceMove validates moving the occurrence of a on oldDate to
// newDate. The weekday rule is never changed.
func PlanOccurrenceMove(a *models.RecurringAction, ms *models.Milestone, oldDate, newDate models.Date) (OccurrenceMove, error) {
	if oldDate.Equal(newDate) {
		return OccurrenceMove{}, apperrors.Validation("new date must differ from old date")
	}
	old, ok := FindOccurrence(a, ms, oldDate)
	if !ok {
		return OccurrenceMove{}, apperrors.NotFound("%q has no occurrence on %s", a.Title, oldDate)
	}
	start, end := EffectiveWindow(a, ms)
	if !newDate.Within(start, end) {
		return OccurrenceMove{}, apperrors.Conflict("%s is outside the window %s to %s", newDate, start, end)
	}
	if _, taken := FindOccurrence(a, ms, newDate); taken {
		return OccurrenceMove{}, apperrors.Conflict("%q already has an occurrence on %s", a.Title, newDate)
	}

	home := oldDate
	if old.Log != nil && old.Log.MovedFrom != nil {
		home = *old.Log.MovedFrom
	}
	move := OccurrenceMove{Log: old.Log, NewDate: newDate}
	if !home.Equal(newDate) {
		move.MovedFrom = &home
	}
	for i := range a.Logs {
		if a.Logs[i].Date.Equal(newDate) {
			move.Stale = &a.Logs[i]
		}
	}
	return move, nil
}

// CheckDeadlineMove validates moving a one-time action's deadline.
func CheckDeadlineMove(a *models.OneTimeAction, ms *models.Milestone, newDate models.Date) error {
	if a.Deadline.Equal(newDate) {
		return apperrors.Validation("new date must differ from the current deadline")
	}
	if !newDate.Within(ms.StartDate, ms.EndDate) {
		return apperrors.Conflict("%s is outside the milestone window %s to %s", newDate, ms.StartDate, ms.EndDate)
	}
	return nil
}
