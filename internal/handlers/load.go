package handlers

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/models"
	"github.com/arnold/milestones-api/internal/services"
)

func loadGoal(tx *gorm.DB, userID, goalID uuid.UUID) (*models.Goal, error) {
	var goal models.Goal
	err := tx.Scopes(database.GoalTree).
		Where("id = ? AND user_id = ?", goalID, userID).
		First(&goal).Error
	if err != nil {
		return nil, notFound(err, "Goal")
	}
	return &goal, nil
}

// loadOwnerGoals returns the owner's goals in creation order, which is also
// the order colours are assigned in.
func loadOwnerGoals(tx *gorm.DB, userID uuid.UUID) ([]models.Goal, error) {
	var goals []models.Goal
	err := tx.Scopes(database.GoalTree).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&goals).Error
	return goals, err
}

func loadMilestone(tx *gorm.DB, userID, milestoneID uuid.UUID) (*models.Milestone, error) {
	var ms models.Milestone
	err := tx.Scopes(database.MilestoneTree, database.OwnedMilestones(userID), database.ForUpdate).
		Preload("Goal").
		First(&ms, "milestones.id = ?", milestoneID).Error
	if err != nil {
		return nil, notFound(err, "Milestone")
	}
	return &ms, nil
}

// loadRecurringAction returns the action as an element of its loaded
// milestone, so occurrence rules see the parent window.
func loadRecurringAction(tx *gorm.DB, userID, actionID uuid.UUID) (*models.RecurringAction, *models.Milestone, error) {
	var ref models.RecurringAction
	if err := tx.Select("id", "milestone_id").First(&ref, "id = ?", actionID).Error; err != nil {
		return nil, nil, notFound(err, "Recurring action")
	}
	ms, err := loadMilestone(tx, userID, ref.MilestoneID)
	if err != nil {
		return nil, nil, apperrors.NotFound("Recurring action not found")
	}
	for i := range ms.RecurringActions {
		if ms.RecurringActions[i].ID == actionID {
			return &ms.RecurringActions[i], ms, nil
		}
	}
	return nil, nil, apperrors.NotFound("Recurring action not found")
}

func loadOneTimeAction(tx *gorm.DB, userID, actionID uuid.UUID) (*models.OneTimeAction, *models.Milestone, error) {
	var ref models.OneTimeAction
	if err := tx.Select("id", "milestone_id").First(&ref, "id = ?", actionID).Error; err != nil {
		return nil, nil, notFound(err, "One-time action")
	}
	ms, err := loadMilestone(tx, userID, ref.MilestoneID)
	if err != nil {
		return nil, nil, apperrors.NotFound("One-time action not found")
	}
	for i := range ms.OneTimeActions {
		if ms.OneTimeActions[i].ID == actionID {
			return &ms.OneTimeActions[i], ms, nil
		}
	}
	return nil, nil, apperrors.NotFound("One-time action not found")
}

// refresh evaluates closure on every goal and fills the derived fields.
func refresh(tx *gorm.DB, goals []models.Goal, today models.Date) error {
	for i := range goals {
		if err := services.EvaluateGoal(tx, &goals[i], today); err != nil {
			return err
		}
		engine.AnnotateGoal(&goals[i], today)
	}
	return nil
}

func refreshMilestone(tx *gorm.DB, userID uuid.UUID, ms *models.Milestone, today models.Date) error {
	title := ""
	if ms.Goal != nil {
		title = ms.Goal.Title
	}
	if _, err := services.EvaluateMilestone(tx, userID, title, ms, today); err != nil {
		return err
	}
	engine.AnnotateMilestone(ms, today)
	return nil
}

// goalFilter narrows goal lists by the goal_ids and include_archived query
// parameters.
type goalFilter struct {
	ids             map[uuid.UUID]bool
	includeArchived bool
}

func parseGoalFilter(goalIDs string, includeArchived bool) (goalFilter, error) {
	f := goalFilter{includeArchived: includeArchived}
	for _, raw := range strings.Split(goalIDs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperrors.Validation("Invalid goal ID %q", raw)
		}
		if f.ids == nil {
			f.ids = make(map[uuid.UUID]bool)
		}
		f.ids[id] = true
	}
	return f, nil
}

func (f goalFilter) apply(goals []models.Goal) []models.Goal {
	out := make([]models.Goal, 0, len(goals))
	for _, g := range goals {
		if g.IsArchived && !f.includeArchived {
			continue
		}
		if f.ids != nil && !f.ids[g.ID] {
			continue
		}
		out = append(out, g)
	}
	return out
}
