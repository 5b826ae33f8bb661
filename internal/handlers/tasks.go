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

// MaxTaskRangeDays is how many days end_date may lie after start_date in
// GET /tasks/range.
const MaxTaskRangeDays = 31

func queryDate(c *fiber.Ctx, name string) (models.Date, error) {
	raw := c.Query(name)
	if raw == "" {
		return models.Date{}, apperrors.Validation("%s is required", name)
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, apperrors.Validation("%s: %v", name, err)
	}
	return d, nil
}

// GetTasksRange projects every action of the owner's goals into tasks
// between start_date and end_date inclusive.
func GetTasksRange(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	start, err := queryDate(c, "start_date")
	if err != nil {
		return respondError(c, err)
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		return respondError(c, err)
	}
	if err := engine.ValidateWindow(start, end); err != nil {
		return respondError(c, err)
	}
	if start.DaysUntil(end) > MaxTaskRangeDays {
		return respondError(c, apperrors.Validation("end_date may be at most %d days after start_date", MaxTaskRangeDays))
	}
	filter, err := parseGoalFilter(c.Query("goal_ids"), c.QueryBool("include_archived", false))
	if err != nil {
		return respondError(c, err)
	}

	today := services.Today()
	var tasks []models.Task
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		all, err := loadOwnerGoals(tx, userID)
		if err != nil {
			return err
		}
		goals := filter.apply(all)
		if err := refresh(tx, goals, today); err != nil {
			return err
		}
		tasks = engine.ProjectTasks(engine.Milestones(goals), start, end, today)
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.TaskRangeResponse{Tasks: tasks})
}

// taskRef resolves the task in the path against the type sent in the body.
func taskRef(c *fiber.Ctx, bodyType string) (models.TaskRef, error) {
	ref, err := models.ParseTaskID(c.Params("id"))
	if err != nil {
		return ref, apperrors.Validation("Invalid task ID")
	}
	if ref.Type == "" {
		ref.Type = bodyType
	}
	if bodyType != "" && bodyType != ref.Type {
		return ref, apperrors.Validation("type %q does not match task %s", bodyType, c.Params("id"))
	}
	switch ref.Type {
	case models.TaskRecurring, models.TaskOneTime:
		return ref, nil
	default:
		return ref, apperrors.Validation("type must be %q or %q", models.TaskRecurring, models.TaskOneTime)
	}
}

// occurrenceDate picks the date of a recurring task: from the task id, then
// the body, then the log the client referenced.
func occurrenceDate(a *models.RecurringAction, fromID, fromBody *models.Date, logID *uuid.UUID) (models.Date, error) {
	if fromID != nil {
		return *fromID, nil
	}
	if fromBody != nil {
		return *fromBody, nil
	}
	if logID != nil {
		for _, l := range a.Logs {
			if l.ID == *logID {
				return l.Date, nil
			}
		}
		return models.Date{}, apperrors.NotFound("Log not found")
	}
	return models.Date{}, apperrors.Validation("date is required for recurring tasks")
}

func CompleteTask(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CompleteTaskRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ref, err := taskRef(c, req.Type)
	if err != nil {
		return respondError(c, err)
	}

	today := services.Today()
	var ms *models.Milestone
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		var msID uuid.UUID
		switch ref.Type {
		case models.TaskRecurring:
			a, parent, err := loadRecurringAction(tx, userID, ref.ActionID)
			if err != nil {
				return err
			}
			d, err := occurrenceDate(a, ref.Date, req.Date, req.LogID)
			if err != nil {
				return err
			}
			if err := setOccurrence(tx, a, parent, d, req.Completed); err != nil {
				return err
			}
			if err := logTaskActivity(tx, parent.GoalID, userID, a.ID, a.Title, d, req.Completed); err != nil {
				return err
			}
			msID = parent.ID
		default:
			a, parent, err := loadOneTimeAction(tx, userID, ref.ActionID)
			if err != nil {
				return err
			}
			if a.Completed != req.Completed {
				if err := logTaskActivity(tx, parent.GoalID, userID, a.ID, a.Title, a.Deadline, req.Completed); err != nil {
					return err
				}
			}
			a.SetCompleted(req.Completed, services.Now())
			if err := tx.Model(&models.OneTimeAction{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
				"completed":    a.Completed,
				"completed_at": a.CompletedAt,
			}).Error; err != nil {
				return err
			}
			msID = parent.ID
		}

		ms, err = loadMilestone(tx, userID, msID)
		if err != nil {
			return err
		}
		return refreshMilestone(tx, userID, ms, today)
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(ms.GoalID, EventTaskUpdated, fiber.Map{
		"task_id":            c.Params("id"),
		"completed":          req.Completed,
		"milestone_id":       ms.ID,
		"milestone_progress": ms.Progress,
	})
	return c.JSON(models.CompleteTaskResponse{Success: true, MilestoneProgress: ms.Progress})
}

// RescheduleTask moves a one-time deadline, or a single recurring occurrence
// as an exception to its weekday rule.
func RescheduleTask(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.RescheduleTaskRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ref, err := taskRef(c, req.Type)
	if err != nil {
		return respondError(c, err)
	}
	if req.NewDate == nil {
		return respondError(c, apperrors.Validation("new_date is required"))
	}
	newDate := *req.NewDate

	var goalID uuid.UUID
	var oldDate models.Date
	var newTaskID string
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		switch ref.Type {
		case models.TaskRecurring:
			a, ms, err := loadRecurringAction(tx, userID, ref.ActionID)
			if err != nil {
				return err
			}
			if ms.IsClosed {
				return apperrors.Conflict("Milestone is closed")
			}
			oldDate, err = occurrenceDate(a, ref.Date, req.OldDate, req.LogID)
			if err != nil {
				return err
			}
			move, err := engine.PlanOccurrenceMove(a, ms, oldDate, newDate)
			if err != nil {
				return err
			}
			if err := applyMove(tx, a, move); err != nil {
				return err
			}
			goalID = ms.GoalID
			newTaskID = models.RecurringTaskID(a.ID, newDate)
			return logRescheduled(tx, goalID, userID, a.ID, a.Title, oldDate, newDate)
		default:
			a, ms, err := loadOneTimeAction(tx, userID, ref.ActionID)
			if err != nil {
				return err
			}
			if ms.IsClosed {
				return apperrors.Conflict("Milestone is closed")
			}
			if err := engine.CheckDeadlineMove(a, ms, newDate); err != nil {
				return err
			}
			oldDate = a.Deadline
			if err := tx.Model(&models.OneTimeAction{}).Where("id = ?", a.ID).Update("deadline", newDate).Error; err != nil {
				return err
			}
			goalID = ms.GoalID
			newTaskID = models.OneTimeTaskID(a.ID)
			return logRescheduled(tx, goalID, userID, a.ID, a.Title, oldDate, newDate)
		}
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goalID, EventTaskRescheduled, fiber.Map{
		"task_id":     c.Params("id"),
		"new_task_id": newTaskID,
		"old_date":    oldDate,
		"new_date":    newDate,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"task_id": newTaskID,
		"date":    newDate,
	})
}

func applyMove(tx *gorm.DB, a *models.RecurringAction, move engine.OccurrenceMove) error {
	if move.Stale != nil {
		if err := tx.Delete(&models.RecurringActionLog{}, "id = ?", move.Stale.ID).Error; err != nil {
			return err
		}
	}
	if move.Log != nil {
		return tx.Model(&models.RecurringActionLog{}).Where("id = ?", move.Log.ID).Updates(map[string]interface{}{
			"date":       move.NewDate,
			"moved_from": move.MovedFrom,
		}).Error
	}
	return tx.Create(&models.RecurringActionLog{
		RecurringActionID: a.ID,
		Date:              move.NewDate,
		MovedFrom:         move.MovedFrom,
	}).Error
}

func logRescheduled(tx *gorm.DB, goalID, userID, actionID uuid.UUID, title string, from, to models.Date) error {
	return services.LogActivity(tx, goalID, userID, models.ActivityTaskRescheduled, &actionID, map[string]interface{}{
		"title": title,
		"from":  from.String(),
		"to":    to.String(),
	})
}

// CreateTask adds an action from the task board: a one-time action with a
// deadline or a recurring action with weekdays.
func CreateTask(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateTaskRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.MilestoneID == uuid.Nil {
		return respondError(c, apperrors.Validation("milestone_id is required"))
	}

	var resp models.CreateTaskResponse
	var goalID uuid.UUID
	err := services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		switch req.Type {
		case models.TaskOneTime:
			a, err := createOneTimeAction(tx, userID, req.MilestoneID, models.CreateOneTimeActionRequest{
				Title:    req.Title,
				Deadline: req.Deadline,
			})
			if err != nil {
				return err
			}
			resp = models.CreateTaskResponse{ID: a.ID, Type: models.TaskOneTime, Title: a.Title}
		case models.TaskRecurring:
			a, err := createRecurringAction(tx, userID, req.MilestoneID, models.CreateRecurringActionRequest{
				Title:         req.Title,
				Weekdays:      req.Weekdays,
				TargetPercent: req.TargetPercent,
			})
			if err != nil {
				return err
			}
			resp = models.CreateTaskResponse{ID: a.ID, Type: models.TaskRecurring, Title: a.Title}
		default:
			return apperrors.Validation("type must be %q or %q", models.TaskRecurring, models.TaskOneTime)
		}

		ms, err := loadMilestone(tx, userID, req.MilestoneID)
		if err != nil {
			return err
		}
		goalID = ms.GoalID
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goalID, EventMilestoneUpdated, fiber.Map{"milestone_id": req.MilestoneID, "created_task": resp})
	return c.Status(fiber.StatusCreated).JSON(resp)
}
