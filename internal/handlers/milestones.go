package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/models"
	"github.com/arnold/milestones-api/internal/services"
)

func CreateMilestone(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := paramID(c, "id", "goal")
	if err != nil {
		return respondError(c, err)
	}

	var req models.CreateMilestoneRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ms, err := buildMilestone(goalID, req)
	if err != nil {
		return respondError(c, err)
	}

	var created *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		if _, err := loadGoal(tx, userID, goalID); err != nil {
			return err
		}
		if err := tx.Create(ms).Error; err != nil {
			return err
		}
		created, err = loadMilestone(tx, userID, ms.ID)
		if err != nil {
			return err
		}
		return refreshMilestone(tx, userID, created, services.Today())
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goalID, EventMilestoneUpdated, created)
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetMilestones lists a goal's milestones in start order.
func GetMilestones(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := paramID(c, "id", "goal")
	if err != nil {
		return respondError(c, err)
	}

	var goal *models.Goal
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		goal, err = loadGoal(tx, userID, goalID)
		if err != nil {
			return err
		}
		return refreshGoal(tx, goal)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(goal.Milestones)
}

func GetMilestone(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		ms, err = loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}
		return refreshMilestone(tx, userID, ms, services.Today())
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ms)
}

// UpdateMilestone edits an open milestone. Closed milestones only accept a
// new title since their progress is frozen.
func UpdateMilestone(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var req models.UpdateMilestoneRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		ms, err = loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}

		if ms.IsClosed && (req.StartDate != nil || req.EndDate != nil || req.CompletionPercent != nil) {
			return apperrors.Conflict("Milestone is closed")
		}
		if req.Title != nil {
			title, err := requireTitle(*req.Title)
			if err != nil {
				return err
			}
			ms.Title = title
		}
		if req.StartDate != nil {
			ms.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			ms.EndDate = *req.EndDate
			// A new window gets a fresh pending notification.
			ms.DecisionNotified = false
		}
		if err := engine.ValidateWindow(ms.StartDate, ms.EndDate); err != nil {
			return err
		}
		if req.CompletionPercent != nil {
			if err := engine.ValidatePercent("completion_percent", *req.CompletionPercent); err != nil {
				return err
			}
			ms.CompletionPercent = *req.CompletionPercent
		}
		for _, a := range ms.OneTimeActions {
			if !a.Deadline.Within(ms.StartDate, ms.EndDate) {
				return apperrors.Conflict("One-time action %q is due %s, outside the new window", a.Title, a.Deadline)
			}
		}

		if err := tx.Model(&models.Milestone{}).Where("id = ?", ms.ID).Updates(map[string]interface{}{
			"title":              ms.Title,
			"start_date":         ms.StartDate,
			"end_date":           ms.EndDate,
			"completion_percent": ms.CompletionPercent,
			"decision_notified":  ms.DecisionNotified,
		}).Error; err != nil {
			return err
		}
		return refreshMilestone(tx, userID, ms, services.Today())
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(ms.GoalID, EventMilestoneUpdated, ms)
	return c.JSON(ms)
}

func DeleteMilestone(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var goalID uuid.UUID
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		ms, err := loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}
		goalID = ms.GoalID
		return deleteMilestones(tx, []uuid.UUID{ms.ID})
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goalID, EventGoalUpdated, fiber.Map{"deleted_milestone_id": msID})
	return c.JSON(fiber.Map{"success": true})
}

// deleteMilestones cascades to actions and their logs.
func deleteMilestones(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	var actionIDs []uuid.UUID
	if err := tx.Model(&models.RecurringAction{}).Where("milestone_id IN ?", ids).Pluck("id", &actionIDs).Error; err != nil {
		return err
	}
	if len(actionIDs) > 0 {
		if err := tx.Where("recurring_action_id IN ?", actionIDs).Delete(&models.RecurringActionLog{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("milestone_id IN ?", ids).Delete(&models.RecurringAction{}).Error; err != nil {
		return err
	}
	if err := tx.Where("milestone_id IN ?", ids).Delete(&models.OneTimeAction{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Milestone{}).Error
}

// CloseMilestone applies one closure decision: close_as_is, extend or
// reduce_percent.
func CloseMilestone(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var req models.CloseMilestoneRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	decision, err := engine.ParseDecision(req)
	if err != nil {
		return respondError(c, err)
	}
	return decide(c, userID, msID, decision)
}

// CompleteMilestone force-closes a milestone at its current progress, the
// same as close_as_is. Without force_complete an open milestone is returned
// unchanged.
func CompleteMilestone(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var req models.CompleteMilestoneRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	var decision engine.Decision
	if req.ForceComplete {
		decision = engine.CloseAsIs{}
	}
	return decide(c, userID, msID, decision)
}

// decide applies decision to an open milestone. A nil decision only checks
// that the milestone is still open.
func decide(c *fiber.Ctx, userID, msID uuid.UUID, decision engine.Decision) error {
	today := services.Today()
	var ms *models.Milestone
	err := services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		var err error
		ms, err = loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}
		if err := refreshMilestone(tx, userID, ms, today); err != nil {
			return err
		}
		if ms.IsClosed {
			return apperrors.Conflict("milestone is already closed")
		}
		if decision == nil {
			return nil
		}
		if err := engine.Decide(ms, decision, today, services.Now()); err != nil {
			return err
		}
		if err := tx.Model(&models.Milestone{}).Where("id = ?", ms.ID).Updates(services.ClosureColumns(ms)).Error; err != nil {
			return err
		}

		activity := models.ActivityMilestoneClosed
		meta := map[string]interface{}{"title": ms.Title, "decision": decision.Name()}
		if ms.IsClosed {
			meta["progress"] = *ms.ClosedProgress
			meta["condition_met"] = *ms.ConditionMet
		} else {
			activity = models.ActivityMilestoneExtended
			meta["end_date"] = ms.EndDate.String()
		}
		if err := services.LogActivity(tx, ms.GoalID, userID, activity, &ms.ID, meta); err != nil {
			return err
		}
		engine.AnnotateMilestone(ms, today)
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	if decision == nil {
		return c.JSON(ms)
	}

	event := EventMilestoneUpdated
	if ms.IsClosed {
		event = EventMilestoneClosed
	}
	WS.Broadcast(ms.GoalID, event, ms)
	return c.JSON(ms)
}
