package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/models"
)

func TestCalendarMonth(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()

	var month models.CalendarMonthResponse
	e.call("GET", "/api/calendar/month?year=2026&month=2", nil, fiber.StatusOK, &month)
	assert.Equal(t, 2026, month.Year)
	assert.Equal(t, 2, month.Month)
	require.Len(t, month.Days, 35)
	assert.Equal(t, "2026-01-26", month.Days[0].Date.String())
	assert.False(t, month.Days[0].InMonth)
	assert.Equal(t, "2026-03-01", month.Days[34].Date.String())

	feb2 := month.Days[7]
	assert.Equal(t, "2026-02-02", feb2.Date.String())
	assert.True(t, feb2.InMonth)
	assert.Equal(t, 1, feb2.TasksTotal)
	require.Len(t, feb2.Goals, 1)
	assert.Equal(t, goal.ID, feb2.Goals[0].ID)
	assert.Equal(t, engine.GoalColors[0], feb2.Goals[0].Color)

	feb22 := month.Days[27]
	assert.Equal(t, "2026-02-22", feb22.Date.String())
	assert.True(t, feb22.HasMilestone)
	require.NotNil(t, feb22.MilestoneTitle)
	assert.Equal(t, "Base", *feb22.MilestoneTitle)
}

func TestCalendarMonthValidation(t *testing.T) {
	e := newEnv(t)
	for _, q := range []string{"year=2026&month=13", "year=2026&month=0", "year=1999&month=1", "year=abc&month=1"} {
		code, _ := e.do("GET", "/api/calendar/month?"+q, nil)
		assert.Equal(t, fiber.StatusBadRequest, code, q)
	}
}

func TestCalendarColoursIgnoreFilters(t *testing.T) {
	e := newEnv(t)
	first := e.fitness()
	second := e.fitness()
	e.call("PUT", "/api/goals/"+first.ID.String()+"/archive", nil, fiber.StatusOK, nil)

	var month models.CalendarMonthResponse
	e.call("GET", "/api/calendar/month?year=2026&month=2", nil, fiber.StatusOK, &month)
	feb2 := month.Days[7]
	require.Len(t, feb2.Goals, 1)
	assert.Equal(t, second.ID, feb2.Goals[0].ID)
	assert.Equal(t, engine.GoalColors[1], feb2.Goals[0].Color)

	e.call("GET", "/api/calendar/month?year=2026&month=2&include_archived=true", nil, fiber.StatusOK, &month)
	assert.Len(t, month.Days[7].Goals, 2)
}

func TestCalendarDay(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()

	var day models.CalendarDayResponse
	e.call("GET", "/api/calendar/day/2026-02-10", nil, fiber.StatusOK, &day)
	assert.Equal(t, "Tuesday", day.Weekday)
	require.Len(t, day.Tasks, 1)
	assert.Equal(t, "Sign up", day.Tasks[0].Title)
	require.Len(t, day.Milestones, 1)
	assert.False(t, day.Milestones[0].EndsToday)
	require.Len(t, day.Goals, 1)
	assert.Equal(t, goal.ID, day.Goals[0].ID)

	e.call("GET", "/api/calendar/day/2026-02-22", nil, fiber.StatusOK, &day)
	require.Len(t, day.Milestones, 1)
	assert.True(t, day.Milestones[0].EndsToday)

	code, _ := e.do("GET", "/api/calendar/day/tomorrow", nil)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestCalendarTimeline(t *testing.T) {
	e := newEnv(t)
	e.fitness()

	var tl models.CalendarTimelineResponse
	e.call("GET", "/api/calendar/timeline?year=2026&month=2", nil, fiber.StatusOK, &tl)
	require.Len(t, tl.Goals, 1)
	g := tl.Goals[0]
	require.NotNil(t, g.TodayPosition)
	// Jan 1 to Mar 31 spans 89 days.
	assert.InDelta(t, 31.0/89, *g.TodayPosition, 1e-9)
	require.Len(t, g.Bars, 1)
	assert.InDelta(t, 25.0/89, g.Bars[0].Start, 1e-9)
	assert.InDelta(t, 52.0/89, g.Bars[0].End, 1e-9)
	assert.Empty(t, g.Unplaced)

	e.call("GET", "/api/calendar/timeline?year=2026&month=6", nil, fiber.StatusOK, &tl)
	assert.Empty(t, tl.Goals)
}

func TestRegisterDeviceToken(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do("POST", "/api/device-token", map[string]string{"token": " "})
	assert.Equal(t, fiber.StatusBadRequest, code)

	e.call("POST", "/api/device-token", map[string]string{"token": "fcm-abc"}, fiber.StatusOK, nil)
	e.call("POST", "/api/device-token", map[string]string{"token": "fcm-abc"}, fiber.StatusOK, nil)

	var tokens []models.DeviceToken
	require.NoError(t, database.DB.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, e.userID, tokens[0].UserID)
}
