package handlers

import (
	"strings"

	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/models"
)

const defaultPercent = 80

func requireTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.Validation("Title is required")
	}
	return title, nil
}

func percentOrDefault(field string, v *int) (int, error) {
	if v == nil {
		return defaultPercent, nil
	}
	if err := engine.ValidatePercent(field, *v); err != nil {
		return 0, err
	}
	return *v, nil
}

func buildGoal(userID uuid.UUID, req models.CreateGoalRequest) (*models.Goal, error) {
	title, err := requireTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if req.StartDate != nil && req.EndDate != nil {
		if err := engine.ValidateWindow(*req.StartDate, *req.EndDate); err != nil {
			return nil, err
		}
	}

	goal := &models.Goal{
		UserID:    userID,
		Title:     title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	for _, mr := range req.Milestones {
		ms, err := buildMilestone(uuid.Nil, mr)
		if err != nil {
			return nil, err
		}
		goal.Milestones = append(goal.Milestones, *ms)
	}
	return goal, nil
}

// buildMilestone validates a milestone with its bundled actions. goalID may
// be Nil when the milestone is created through its goal.
func buildMilestone(goalID uuid.UUID, req models.CreateMilestoneRequest) (*models.Milestone, error) {
	title, err := requireTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if req.StartDate == nil || req.EndDate == nil {
		return nil, apperrors.Validation("start_date and end_date are required")
	}
	if err := engine.ValidateWindow(*req.StartDate, *req.EndDate); err != nil {
		return nil, err
	}
	pct, err := percentOrDefault("completion_percent", req.CompletionPercent)
	if err != nil {
		return nil, err
	}

	ms := &models.Milestone{
		GoalID:            goalID,
		Title:             title,
		StartDate:         *req.StartDate,
		EndDate:           *req.EndDate,
		CompletionPercent: pct,
	}
	for _, ar := range req.RecurringActions {
		a, err := buildRecurringAction(ms, ar)
		if err != nil {
			return nil, err
		}
		ms.RecurringActions = append(ms.RecurringActions, a)
	}
	for _, ar := range req.OneTimeActions {
		a, err := buildOneTimeAction(ms, ar)
		if err != nil {
			return nil, err
		}
		ms.OneTimeActions = append(ms.OneTimeActions, a)
	}
	return ms, nil
}

func buildRecurringAction(ms *models.Milestone, req models.CreateRecurringActionRequest) (models.RecurringAction, error) {
	title, err := requireTitle(req.Title)
	if err != nil {
		return models.RecurringAction{}, err
	}
	weekdays, err := engine.NormalizeWeekdays(req.Weekdays)
	if err != nil {
		return models.RecurringAction{}, err
	}
	target, err := percentOrDefault("target_percent", req.TargetPercent)
	if err != nil {
		return models.RecurringAction{}, err
	}

	a := models.RecurringAction{
		MilestoneID:   ms.ID,
		Title:         title,
		Weekdays:      weekdays,
		TargetPercent: target,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	}
	start, end := engine.EffectiveWindow(&a, ms)
	if err := engine.ValidateWindow(start, end); err != nil {
		return models.RecurringAction{}, err
	}
	return a, nil
}

func buildOneTimeAction(ms *models.Milestone, req models.CreateOneTimeActionRequest) (models.OneTimeAction, error) {
	title, err := requireTitle(req.Title)
	if err != nil {
		return models.OneTimeAction{}, err
	}
	if req.Deadline == nil {
		return models.OneTimeAction{}, apperrors.Validation("deadline is required")
	}
	if !req.Deadline.Within(ms.StartDate, ms.EndDate) {
		return models.OneTimeAction{}, apperrors.Validation("deadline %s is outside the milestone window %s to %s", *req.Deadline, ms.StartDate, ms.EndDate)
	}
	return models.OneTimeAction{
		MilestoneID: ms.ID,
		Title:       title,
		Deadline:    *req.Deadline,
	}, nil
}
