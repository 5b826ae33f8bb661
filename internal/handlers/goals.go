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

// GetGoals lists the owner's goals with their milestone trees and derived
// progress. Archived goals are hidden unless include_archived is set.
func GetGoals(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	today := services.Today()
	filter := goalFilter{includeArchived: c.QueryBool("include_archived", false)}

	var goals []models.Goal
	err := services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		all, err := loadOwnerGoals(tx, userID)
		if err != nil {
			return err
		}
		goals = filter.apply(all)
		return refresh(tx, goals, today)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(goals)
}

func CreateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req models.CreateGoalRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	goal, err := buildGoal(userID, req)
	if err != nil {
		return respondError(c, err)
	}

	var created *models.Goal
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		if err := tx.Create(goal).Error; err != nil {
			return err
		}
		created, err = loadGoal(tx, userID, goal.ID)
		if err != nil {
			return err
		}
		return refreshGoal(tx, created)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func GetGoal(c *fiber.Ctx) error {
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
	return c.JSON(goal)
}

func refreshGoal(tx *gorm.DB, goal *models.Goal) error {
	today := services.Today()
	if err := services.EvaluateGoal(tx, goal, today); err != nil {
		return err
	}
	engine.AnnotateGoal(goal, today)
	return nil
}

func UpdateGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := paramID(c, "id", "goal")
	if err != nil {
		return respondError(c, err)
	}

	var req models.UpdateGoalRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	var goal *models.Goal
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		goal, err = loadGoal(tx, userID, goalID)
		if err != nil {
			return err
		}

		if req.Title != nil {
			title, err := requireTitle(*req.Title)
			if err != nil {
				return err
			}
			goal.Title = title
		}
		if req.StartDate != nil {
			goal.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			goal.EndDate = req.EndDate
		}
		if goal.HasWindow() {
			if err := engine.ValidateWindow(*goal.StartDate, *goal.EndDate); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(map[string]interface{}{
			"title":      goal.Title,
			"start_date": goal.StartDate,
			"end_date":   goal.EndDate,
		}).Error; err != nil {
			return err
		}
		return refreshGoal(tx, goal)
	})
	if err != nil {
		return respondError(c, err)
	}

	WS.Broadcast(goal.ID, EventGoalUpdated, goal)
	return c.JSON(goal)
}

// DeleteGoal removes the goal with its milestones, actions and logs.
func DeleteGoal(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := paramID(c, "id", "goal")
	if err != nil {
		return respondError(c, err)
	}

	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		goal, err := loadGoal(tx, userID, goalID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(goal.Milestones))
		for _, ms := range goal.Milestones {
			ids = append(ids, ms.ID)
		}
		if err := deleteMilestones(tx, ids); err != nil {
			return err
		}
		return tx.Delete(&models.Goal{}, "id = ?", goal.ID).Error
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func ArchiveGoal(c *fiber.Ctx) error {
	return setArchived(c, true)
}

func RestoreGoal(c *fiber.Ctx) error {
	return setArchived(c, false)
}

func setArchived(c *fiber.Ctx, archived bool) error {
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
		if goal.IsArchived == archived {
			if archived {
				return apperrors.Conflict("Goal is already archived")
			}
			return apperrors.Conflict("Goal is not archived")
		}

		goal.IsArchived = archived
		goal.ArchivedAt = nil
		if archived {
			now := services.Now()
			goal.ArchivedAt = &now
		}
		if err := tx.Model(&models.Goal{}).Where("id = ?", goal.ID).Updates(map[string]interface{}{
			"is_archived": goal.IsArchived,
			"archived_at": goal.ArchivedAt,
		}).Error; err != nil {
			return err
		}
		return refreshGoal(tx, goal)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(goal)
}

// GetGoalProgress returns the per-milestone, per-action progress breakdown.
func GetGoalProgress(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := paramID(c, "id", "goal")
	if err != nil {
		return respondError(c, err)
	}

	var resp models.GoalProgressResponse
	err = services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		goal, err := loadGoal(tx, userID, goalID)
		if err != nil {
			return err
		}
		if err := services.EvaluateGoal(tx, goal, services.Today()); err != nil {
			return err
		}
		resp = engine.Breakdown(goal, services.Today())
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
