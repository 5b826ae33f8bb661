package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/models"
	"github.com/arnold/milestones-api/internal/services"
)

func queryYearMonth(c *fiber.Ctx) (int, time.Month, error) {
	today := services.Today()
	year, month := today.Year(), today.Month()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 2000 || y > 2100 {
			return 0, 0, apperrors.Validation("year must be between 2000 and 2100")
		}
		year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, apperrors.Validation("month must be between 1 and 12")
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// calendarGoals loads the owner's goals, assigns colours over the full list,
// then filters and evaluates the ones the view will show.
func calendarGoals(c *fiber.Ctx, today models.Date, fn func(goals []models.Goal, colors map[uuid.UUID]string)) error {
	userID := middleware.GetUserID(c)
	filter, err := parseGoalFilter(c.Query("goal_ids"), c.QueryBool("include_archived", false))
	if err != nil {
		return err
	}
	return services.Transaction(c.UserContext(), func(tx *gorm.DB) error {
		all, err := loadOwnerGoals(tx, userID)
		if err != nil {
			return err
		}
		colors := engine.ColorMap(all)
		goals := filter.apply(all)
		if err := refresh(tx, goals, today); err != nil {
			return err
		}
		fn(goals, colors)
		return nil
	})
}

func GetCalendarMonth(c *fiber.Ctx) error {
	year, month, err := queryYearMonth(c)
	if err != nil {
		return respondError(c, err)
	}

	today := services.Today()
	var resp models.CalendarMonthResponse
	err = calendarGoals(c, today, func(goals []models.Goal, colors map[uuid.UUID]string) {
		resp = engine.BuildMonth(goals, colors, year, month, today)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func GetCalendarDay(c *fiber.Ctx) error {
	d, err := models.ParseDate(c.Params("date"))
	if err != nil {
		return respondError(c, apperrors.Validation("Invalid date %q", c.Params("date")))
	}

	today := services.Today()
	var resp models.CalendarDayResponse
	err = calendarGoals(c, today, func(goals []models.Goal, colors map[uuid.UUID]string) {
		resp = engine.BuildDay(goals, colors, d, today)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func GetCalendarTimeline(c *fiber.Ctx) error {
	year, month, err := queryYearMonth(c)
	if err != nil {
		return respondError(c, err)
	}

	today := services.Today()
	var resp models.CalendarTimelineResponse
	err = calendarGoals(c, today, func(goals []models.Goal, colors map[uuid.UUID]string) {
		resp = engine.BuildTimeline(goals, colors, year, month, today)
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
