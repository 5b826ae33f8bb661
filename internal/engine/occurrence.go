// Package engine holds the pure progress and scheduling rules. Nothing here
// touches the database; callers load models, call in, and persist results.
package engine

import (
	"github.com/arnold/milestones-api/internal/models"
)

// EffectiveWindow is the action's own date range where set, falling back to
// the milestone's bounds field by field.
func EffectiveWindow(a *models.RecurringAction, ms *models.Milestone) (models.Date, models.Date) {
	start, end := ms.StartDate, ms.EndDate
	if a.StartDate != nil {
		start = *a.StartDate
	}
	if a.EndDate != nil {
		end = *a.EndDate
	}
	return start, end
}

// Occurrence is one obligation date of a recurring action and its log row,
// if one exists.
type Occurrence struct {
	Date models.Date
	Log  *models.RecurringActionLog
}

// Occurrences lists the obligation dates of a inside [from, to] intersected
// with its effective window, in date order. Rule dates that were rescheduled
// away are dropped and the dates they were moved to are added.
func Occurrences(a *models.RecurringAction, ms *models.Milestone, from, to models.Date) []Occurrence {
	start, end := EffectiveWindow(a, ms)
	lo := models.MaxDate(start, from)
	hi := models.MinDate(end, to)
	if lo.After(hi) {
		return nil
	}

	byDate := make(map[models.Date]*models.RecurringActionLog, len(a.Logs))
	movedAway := make(map[models.Date]bool)
	for i := range a.Logs {
		log := &a.Logs[i]
		byDate[log.Date] = log
		if log.MovedFrom != nil {
			movedAway[*log.MovedFrom] = true
		}
	}

	var out []Occurrence
	for d := lo; !d.After(hi); d = d.AddDays(1) {
		log := byDate[d]
		onRule := a.HasWeekday(d.ISOWeekday()) && !movedAway[d]
		movedIn := log != nil && log.MovedFrom != nil
		if onRule || movedIn {
			out = append(out, Occurrence{Date: d, Log: log})
		}
	}
	return out
}

// RecurringProgress is the elapsed-time progress of a recurring action.
type RecurringProgress struct {
	ExpectedCount  int     `json:"expected_count"`
	CompletedCount int     `json:"completed_count"`
	CurrentPercent float64 `json:"current_percent"`
}

// ComputeRecurringProgress counts obligations from the start of the effective
// window through asOf (never past the window end). Days that have not elapsed
// yet are not expected, so a mid-period percentage reads as "on track".
func ComputeRecurringProgress(a *models.RecurringAction, ms *models.Milestone, asOf models.Date) RecurringProgress {
	start, _ := EffectiveWindow(a, ms)
	occ := Occurrences(a, ms, start, asOf)

	p := RecurringProgress{ExpectedCount: len(occ)}
	for _, o := range occ {
		if o.Log != nil && o.Log.Completed {
			p.CompletedCount++
		}
	}
	if p.ExpectedCount > 0 {
		p.CurrentPercent = clampPercent(float64(p.CompletedCount) / float64(p.ExpectedCount) * 100)
	}
	return p
}

// FindOccurrence returns the occurrence of a on d, if d is an obligation date.
func FindOccurrence(a *models.RecurringAction, ms *models.Milestone, d models.Date) (Occurrence, bool) {
	occ := Occurrences(a, ms, d, d)
	if len(occ) == 0 {
		return Occurrence{}, false
	}
	return occ[0], true
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
