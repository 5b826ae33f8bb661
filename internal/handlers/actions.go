package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/models"
	"github.com/arnold/milestones-api/internal/services"
)

func openMilestone(tx *gorm.DB, userID, msID uuid.UUID) (*models.Milestone, error) {
	ms, err := loadMilestone(tx, userID, msID)
	if err != nil {
		return nil, err
	}
	if ms.IsClosed {
		return nil, apperrors.Conflict("Milestone is closed")
	}
	return ms, nil
}

func createRecurringAction(tx *gorm.DB, userID, msID uuid.UUID, req models.CreateRecurringActionRequest) (*models.RecurringAction, error) {
	ms, err := openMilestone(tx, userID, msID)
	if err != nil {
		return nil, err
	}
	a, err := buildRecurringAction(ms, req)
	if err != nil {
		return nil, err
	}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func createOneTimeAction(tx *gorm.DB, userID, msID uuid.UUID, req models.CreateOneTimeActionRequest) (*models.OneTimeAction, error) {
	ms, err := openMilestone(tx, userID, msID)
	if err != nil {
		return nil, err
	}
	a, err := buildOneTimeAction(ms, req)
	if err != nil {
		return nil, err
	}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func CreateRecurringAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var req models.CreateRecurringActionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		if _, err := createRecurringAction(tx, userID, msID, req); err != nil {
			return err
		}
		ms, err = loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}
		return refreshMilestone(tx, userID, ms, services.Today())
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(ms.GoalID, EventMilestoneUpdated, ms)
	return c.Status(fiber.StatusCreated).JSON(ms)
}

func UpdateRecurringAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	actionID, err := paramID(c, "id", "recurring action")
	if err != nil {
		return respondError(c, err)
	}

	var req models.UpdateRecurringActionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		a, parent, err := loadRecurringAction(tx, userID, actionID)
		if err != nil {
			return err
		}
		ms = parent
		if ms.IsClosed && req.ChangesRule() {
			return apperrors.Conflict("Milestone is closed")
		}
		if (req.ClearStartDate && req.StartDate != nil) || (req.ClearEndDate && req.EndDate != nil) {
			return apperrors.Validation("a window bound cannot be set and cleared at once")
		}

		if req.Title != nil {
			title, err := requireTitle(*req.Title)
			if err != nil {
				return err
			}
			a.Title = title
		}
		if req.Weekdays != nil {
			weekdays, err := engine.NormalizeWeekdays(req.Weekdays)
			if err != nil {
				return err
			}
			a.Weekdays = weekdays
		}
		if req.TargetPercent != nil {
			if err := engine.ValidatePercent("target_percent", *req.TargetPercent); err != nil {
				return err
			}
			a.TargetPercent = *req.TargetPercent
		}
		if req.StartDate != nil {
			a.StartDate = req.StartDate
		}
		if req.ClearStartDate {
			a.StartDate = nil
		}
		if req.EndDate != nil {
			a.EndDate = req.EndDate
		}
		if req.ClearEndDate {
			a.EndDate = nil
		}
		start, end := engine.EffectiveWindow(a, ms)
		if err := engine.ValidateWindow(start, end); err != nil {
			return err
		}

		if err := tx.Model(&models.RecurringAction{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"title":          a.Title,
			"weekdays":       a.Weekdays,
			"target_percent": a.TargetPercent,
			"start_date":     a.StartDate,
			"end_date":       a.EndDate,
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

func DeleteRecurringAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	actionID, err := paramID(c, "id", "recurring action")
	if err != nil {
		return respondError(c, err)
	}

	var goalID uuid.UUID
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		a, ms, err := loadRecurringAction(tx, userID, actionID)
		if err != nil {
			return err
		}
		goalID = ms.GoalID
		if err := tx.Where("recurring_action_id = ?", a.ID).Delete(&models.RecurringActionLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.RecurringAction{}, "id = ?", a.ID).Error
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goalID, EventGoalUpdated, fiber.Map{"deleted_action_id": actionID})
	return c.JSON(fiber.Map{"success": true})
}

// setOccurrence records the completion state of a's occurrence on d. It is
// an explicit assignment, so repeating it is harmless and the last write for
// an (action, date) pair wins.
func setOccurrence(tx *gorm.DB, a *models.RecurringAction, ms *models.Milestone, d models.Date, completed bool) error {
	occ, ok := engine.FindOccurrence(a, ms, d)
	if !ok {
		return apperrors.Validation("%q is not scheduled on %s", a.Title, d)
	}
	if occ.Log != nil {
		return tx.Model(&models.RecurringActionLog{}).Where("id = ?", occ.Log.ID).Update("completed", completed).Error
	}

	log := models.RecurringActionLog{RecurringActionID: a.ID, Date: d, Completed: completed}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recurring_action_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
	}).Create(&log).Error
}

// LogRecurringAction sets the completion of one occurrence, today by default.
func LogRecurringAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	actionID, err := paramID(c, "id", "recurring action")
	if err != nil {
		return respondError(c, err)
	}

	var req models.LogRecurringActionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	today := services.Today()
	d := today
	if req.Date != nil {
		d = *req.Date
	}

	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		a, parent, err := loadRecurringAction(tx, userID, actionID)
		if err != nil {
			return err
		}
		if err := setOccurrence(tx, a, parent, d, req.Completed); err != nil {
			return err
		}
		if err := logTaskActivity(tx, parent.GoalID, userID, a.ID, a.Title, d, req.Completed); err != nil {
			return err
		}
		ms, err = loadMilestone(tx, userID, parent.ID)
		if err != nil {
			return err
		}
		return refreshMilestone(tx, userID, ms, today)
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(ms.GoalID, EventMilestoneUpdated, ms)
	return c.JSON(ms)
}

func logTaskActivity(tx *gorm.DB, goalID, userID, actionID uuid.UUID, title string, d models.Date, completed bool) error {
	kind := models.ActivityTaskCompleted
	if !completed {
		kind = models.ActivityTaskReopened
	}
	return services.LogActivity(tx, goalID, userID, kind, &actionID, map[string]interface{}{
		"title": title,
		"date":  d.String(),
	})
}

func CreateOneTimeAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	msID, err := paramID(c, "id", "milestone")
	if err != nil {
		return respondError(c, err)
	}

	var req models.CreateOneTimeActionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		if _, err := createOneTimeAction(tx, userID, msID, req); err != nil {
			return err
		}
		ms, err = loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}
		return refreshMilestone(tx, userID, ms, services.Today())
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(ms.GoalID, EventMilestoneUpdated, ms)
	return c.Status(fiber.StatusCreated).JSON(ms)
}

// UpdateOneTimeAction edits the title or deadline and sets completed to the
// value sent.
func UpdateOneTimeAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	actionID, err := paramID(c, "id", "one-time action")
	if err != nil {
		return respondError(c, err)
	}

	var req models.UpdateOneTimeActionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	today := services.Today()
	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		a, parent, err := loadOneTimeAction(tx, userID, actionID)
		if err != nil {
			return err
		}
		ms = parent

		if req.Title != nil {
			title, err := requireTitle(*req.Title)
			if err != nil {
				return err
			}
			a.Title = title
		}
		if req.Deadline != nil {
			if ms.IsClosed {
				return apperrors.Conflict("Milestone is closed")
			}
			if !req.Deadline.Within(ms.StartDate, ms.EndDate) {
				return apperrors.Validation("deadline %s is outside the milestone window %s to %s", *req.Deadline, ms.StartDate, ms.EndDate)
			}
			a.Deadline = *req.Deadline
		}
		toggled := req.Completed != nil && *req.Completed != a.Completed
		if req.Completed != nil {
			a.SetCompleted(*req.Completed, services.Now())
		}

		if err := tx.Model(&models.OneTimeAction{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"title":        a.Title,
			"deadline":     a.Deadline,
			"completed":    a.Completed,
			"completed_at": a.CompletedAt,
		}).Error; err != nil {
			return err
		}
		if toggled {
			if err := logTaskActivity(tx, ms.GoalID, userID, a.ID, a.Title, a.Deadline, a.Completed); err != nil {
				return err
			}
		}
		return refreshMilestone(tx, userID, ms, today)
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(ms.GoalID, EventMilestoneUpdated, ms)
	return c.JSON(ms)
}

func DeleteOneTimeAction(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	actionID, err := paramID(c, "id", "one-time action")
	if err != nil {
		return respondError(c, err)
	}

	var goalID uuid.UUID
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		a, ms, err := loadOneTimeAction(tx, userID, actionID)
		if err != nil {
			return err
		}
		goalID = ms.GoalID
		return tx.Delete(&models.OneTimeAction{}, "id = ?", a.ID).Error
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goalID, EventGoalUpdated, fiber.Map{"deleted_action_id": actionID})
	return c.JSON(fiber.Map{"success": true})
}
