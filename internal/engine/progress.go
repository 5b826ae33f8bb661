package engine

import (
	"github.com/arnold/milestones-api/internal/models"
)

// LiveMilestoneProgress is the mean score of the milestone's actions as of
// asOf. Recurring actions score their current percent and one-time actions
// score 100 when completed. A milestone with no actions scores 0.
func LiveMilestoneProgress(ms *models.Milestone, asOf models.Date) float64 {
	n := len(ms.RecurringActions) + len(ms.OneTimeActions)
	if n == 0 {
		return 0
	}

	var total float64
	for i := range ms.RecurringActions {
		total += ComputeRecurringProgress(&ms.RecurringActions[i], ms, asOf).CurrentPercent
	}
	for _, a := range ms.OneTimeActions {
		if a.Completed {
			total += 100
		}
	}
	return clampPercent(total / float64(n))
}

// MilestoneProgress returns the frozen value for closed milestones and the
// live value otherwise.
func MilestoneProgress(ms *models.Milestone, asOf models.Date) float64 {
	if ms.IsClosed && ms.ClosedProgress != nil {
		return *ms.ClosedProgress
	}
	return LiveMilestoneProgress(ms, asOf)
}

// AllTargetsReached reports whether every recurring action has met its own
// target and every one-time action is done. It is a preview for clients and
// never closes a milestone by itself.
func AllTargetsReached(ms *models.Milestone, asOf models.Date) bool {
	if len(ms.RecurringActions)+len(ms.OneTimeActions) == 0 {
		return false
	}
	for i := range ms.RecurringActions {
		a := &ms.RecurringActions[i]
		if ComputeRecurringProgress(a, ms, asOf).CurrentPercent < float64(a.TargetPercent) {
			return false
		}
	}
	for _, a := range ms.OneTimeActions {
		if !a.Completed {
			return false
		}
	}
	return true
}

// MilestoneCompleted is true for a closed milestone whose condition was met.
func MilestoneCompleted(ms *models.Milestone) bool {
	return ms.IsClosed && ms.ConditionMet != nil && *ms.ConditionMet
}

// GoalProgress averages milestone progress. The goal is completed when it has
// milestones and all of them are closed.
func GoalProgress(g *models.Goal, asOf models.Date) (float64, bool) {
	if len(g.Milestones) == 0 {
		return 0, false
	}
	var total float64
	completed := true
	for i := range g.Milestones {
		ms := &g.Milestones[i]
		total += MilestoneProgress(ms, asOf)
		if !ms.IsClosed {
			completed = false
		}
	}
	return clampPercent(total / float64(len(g.Milestones))), completed
}

// AnnotateMilestone fills the derived, non-persisted fields of ms and its
// recurring actions.
func AnnotateMilestone(ms *models.Milestone, today models.Date) {
	for i := range ms.RecurringActions {
		a := &ms.RecurringActions[i]
		p := ComputeRecurringProgress(a, ms, today)
		a.ExpectedCount = p.ExpectedCount
		a.CompletedCount = p.CompletedCount
		a.CurrentPercent = p.CurrentPercent
		a.IsTargetReached = p.CurrentPercent >= float64(a.TargetPercent)
	}
	ms.Progress = MilestoneProgress(ms, today)
	ms.State = State(ms, today)
	ms.AllTargetsReached = AllTargetsReached(ms, today)
}

// AnnotateGoal fills derived fields on g and every loaded milestone.
func AnnotateGoal(g *models.Goal, today models.Date) {
	for i := range g.Milestones {
		AnnotateMilestone(&g.Milestones[i], today)
	}
	g.Progress, g.IsCompleted = GoalProgress(g, today)
}

// Breakdown builds the per-milestone, per-action progress report of g.
func Breakdown(g *models.Goal, today models.Date) models.GoalProgressResponse {
	AnnotateGoal(g, today)
	resp := models.GoalProgressResponse{
		GoalID:          g.ID,
		Title:           g.Title,
		OverallProgress: g.Progress,
		IsCompleted:     g.IsCompleted,
		Milestones:      make([]models.MilestoneProgressResponse, 0, len(g.Milestones)),
	}
	for _, ms := range g.Milestones {
		mr := models.MilestoneProgressResponse{
			ID:                        ms.ID,
			Title:                     ms.Title,
			Progress:                  ms.Progress,
			CompletionPercentRequired: ms.CompletionPercent,
			IsOnTrack:                 ms.Progress >= float64(ms.CompletionPercent),
			IsCompleted:               MilestoneCompleted(&ms),
			State:                     ms.State,
			RecurringActions:          make([]models.ActionProgressBrief, 0, len(ms.RecurringActions)),
			OneTimeActions:            make([]models.OneTimeActionBrief, 0, len(ms.OneTimeActions)),
		}
		for _, a := range ms.RecurringActions {
			mr.RecurringActions = append(mr.RecurringActions, models.ActionProgressBrief{
				ID:              a.ID,
				Title:           a.Title,
				Progress:        a.CurrentPercent,
				TargetPercent:   a.TargetPercent,
				IsTargetReached: a.IsTargetReached,
			})
		}
		for _, a := range ms.OneTimeActions {
			mr.OneTimeActions = append(mr.OneTimeActions, models.OneTimeActionBrief{
				ID:        a.ID,
				Title:     a.Title,
				Completed: a.Completed,
				Deadline:  a.Deadline,
			})
		}
		resp.Milestones = append(resp.Milestones, mr)
	}
	return resp
}
