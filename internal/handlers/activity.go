package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/models"
)

// paginate reads page and limit, clamping limit to 1..50 with a default of 20.
func paginate(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

// GetGoalActivity returns paginated activity for a goal, newest first.
func GetGoalActivity(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	goalID, err := paramID(c, "id", "goal")
	if err != nil {
		return respondError(c, err)
	}

	var count int64
	if err := database.DB.Model(&models.Goal{}).Where("id = ? AND user_id = ?", goalID, userID).Count(&count).Error; err != nil {
		return respondError(c, err)
	}
	if count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Goal not found",
		})
	}

	page, limit, offset := paginate(c)

	var activities []models.Activity
	if err := database.DB.Where("goal_id = ?", goalID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&activities).Error; err != nil {
		return respondError(c, err)
	}

	var total int64
	database.DB.Model(&models.Activity{}).Where("goal_id = ?", goalID).Count(&total)

	return c.JSON(fiber.Map{
		"activities": activities,
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
}
