package handlers_test

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/models"
)

func TestTaskRange(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()

	tasks := e.tasks("2026-02-02", "2026-02-15")
	assert.Equal(t, []string{
		"2026-02-02", "2026-02-04", "2026-02-06", "2026-02-09",
		"2026-02-10", "2026-02-11", "2026-02-13",
	}, taskDates(tasks))

	signUp := tasks[4]
	assert.Equal(t, models.TaskOneTime, signUp.Type)
	assert.Equal(t, models.OneTimeTaskID(goal.Milestones[0].OneTimeActions[0].ID), signUp.ID)
	assert.Nil(t, signUp.TargetPercent)

	run := tasks[0]
	assert.Equal(t, models.TaskRecurring, run.Type)
	assert.Equal(t, goal.ID, run.GoalID)
	assert.Equal(t, "Base", run.MilestoneTitle)
	require.NotNil(t, run.TargetPercent)
	assert.Equal(t, 80, *run.TargetPercent)
}

func TestTaskRangeValidation(t *testing.T) {
	e := newEnv(t)

	for _, q := range []string{
		"",
		"start_date=2026-02-01",
		"start_date=2026-02-10&end_date=2026-02-01",
		"start_date=2026-02-01&end_date=2026-03-05",
		"start_date=02/01/2026&end_date=2026-02-03",
		"start_date=2026-02-01&end_date=2026-02-03&goal_ids=nope",
	} {
		code, _ := e.do("GET", "/api/tasks/range?"+q, nil)
		assert.Equal(t, fiber.StatusBadRequest, code, q)
	}

	// end_date 31 days after start_date is the limit.
	assert.NotNil(t, e.tasks("2026-02-01", "2026-03-04"))
}

func TestTaskRangeGoalFilter(t *testing.T) {
	e := newEnv(t)
	a := e.fitness()
	e.fitness()

	assert.Len(t, e.tasks("2026-02-02", "2026-02-08"), 6)

	var resp models.TaskRangeResponse
	e.call("GET", "/api/tasks/range?start_date=2026-02-02&end_date=2026-02-08&goal_ids="+a.ID.String(), nil, fiber.StatusOK, &resp)
	require.Len(t, resp.Tasks, 3)
	for _, task := range resp.Tasks {
		assert.Equal(t, a.ID, task.GoalID)
	}
}

func TestCompleteRecurringTask(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	run := goal.Milestones[0].RecurringActions[0]
	id := models.RecurringTaskID(run.ID, *date(time.January, 26))

	var resp models.CompleteTaskResponse
	e.call("PUT", "/api/tasks/"+id+"/complete", models.CompleteTaskRequest{Completed: true}, fiber.StatusOK, &resp)
	assert.True(t, resp.Success)
	assert.InDelta(t, 16.67, resp.MilestoneProgress, 0.01)

	// Repeating the same value is harmless.
	e.call("PUT", "/api/tasks/"+id+"/complete", models.CompleteTaskRequest{Completed: true}, fiber.StatusOK, &resp)
	assert.InDelta(t, 16.67, resp.MilestoneProgress, 0.01)

	var logs []models.RecurringActionLog
	require.NoError(t, database.DB.Where("recurring_action_id = ?", run.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Completed)

	e.call("PUT", "/api/tasks/"+id+"/complete", models.CompleteTaskRequest{Completed: false}, fiber.StatusOK, &resp)
	assert.Zero(t, resp.MilestoneProgress)
}

func TestCompleteRecurringTaskByBareID(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	run := goal.Milestones[0].RecurringActions[0]

	code, _ := e.do("PUT", "/api/tasks/"+run.ID.String()+"/complete", models.CompleteTaskRequest{Completed: true})
	assert.Equal(t, fiber.StatusBadRequest, code, "type is needed for a bare id")

	var resp models.CompleteTaskResponse
	e.call("PUT", "/api/tasks/"+run.ID.String()+"/complete", models.CompleteTaskRequest{
		Type:      models.TaskRecurring,
		Completed: true,
		Date:      date(time.January, 28),
	}, fiber.StatusOK, &resp)
	assert.InDelta(t, 16.67, resp.MilestoneProgress, 0.01)

	// Tuesday is not a rule date.
	code, _ = e.do("PUT", "/api/tasks/"+models.RecurringTaskID(run.ID, *date(time.January, 27))+"/complete",
		models.CompleteTaskRequest{Completed: true})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestCompleteOneTimeTask(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	signUp := goal.Milestones[0].OneTimeActions[0]

	var resp models.CompleteTaskResponse
	e.call("PUT", "/api/tasks/"+models.OneTimeTaskID(signUp.ID)+"/complete",
		models.CompleteTaskRequest{Completed: true}, fiber.StatusOK, &resp)
	assert.InDelta(t, 50, resp.MilestoneProgress, 0.01)

	var stored models.OneTimeAction
	require.NoError(t, database.DB.First(&stored, "id = ?", signUp.ID).Error)
	assert.True(t, stored.Completed)
	assert.NotNil(t, stored.CompletedAt)

	code, _ := e.do("PUT", "/api/tasks/"+models.OneTimeTaskID(signUp.ID)+"/complete",
		models.CompleteTaskRequest{Type: models.TaskRecurring, Completed: true})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestRescheduleRecurringOccurrence(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	run := goal.Milestones[0].RecurringActions[0]
	monday := models.RecurringTaskID(run.ID, *date(time.February, 2))

	var resp struct {
		Success bool        `json:"success"`
		TaskID  string      `json:"task_id"`
		Date    models.Date `json:"date"`
	}
	e.call("PUT", "/api/tasks/"+monday+"/reschedule",
		models.RescheduleTaskRequest{NewDate: date(time.February, 3)}, fiber.StatusOK, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, models.RecurringTaskID(run.ID, *date(time.February, 3)), resp.TaskID)

	tasks := e.tasks("2026-02-02", "2026-02-08")
	assert.Equal(t, []string{"2026-02-03", "2026-02-04", "2026-02-06"}, taskDates(tasks))
	assert.Equal(t, resp.TaskID, tasks[0].ID)

	// The old date no longer holds an occurrence.
	code, _ := e.do("PUT", "/api/tasks/"+monday+"/reschedule", models.RescheduleTaskRequest{NewDate: date(time.February, 5)})
	assert.Equal(t, fiber.StatusNotFound, code)

	// Wednesday already has one.
	code, _ = e.do("PUT", "/api/tasks/"+resp.TaskID+"/reschedule", models.RescheduleTaskRequest{NewDate: date(time.February, 4)})
	assert.Equal(t, fiber.StatusConflict, code)

	// Outside the milestone window.
	code, _ = e.do("PUT", "/api/tasks/"+resp.TaskID+"/reschedule", models.RescheduleTaskRequest{NewDate: date(time.March, 3)})
	assert.Equal(t, fiber.StatusConflict, code)

	// Moving back home clears the overlay.
	e.call("PUT", "/api/tasks/"+resp.TaskID+"/reschedule",
		models.RescheduleTaskRequest{NewDate: date(time.February, 2)}, fiber.StatusOK, nil)
	assert.Equal(t, []string{"2026-02-02", "2026-02-04", "2026-02-06"}, taskDates(e.tasks("2026-02-02", "2026-02-08")))

	var logs []models.RecurringActionLog
	require.NoError(t, database.DB.Where("recurring_action_id = ?", run.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].MovedFrom)
}

func TestRescheduleKeepsCompletion(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	run := goal.Milestones[0].RecurringActions[0]
	friday := models.RecurringTaskID(run.ID, *date(time.January, 30))

	e.call("PUT", "/api/tasks/"+friday+"/complete", models.CompleteTaskRequest{Completed: true}, fiber.StatusOK, nil)
	e.call("PUT", "/api/tasks/"+friday+"/reschedule", models.RescheduleTaskRequest{NewDate: date(time.January, 31)}, fiber.StatusOK, nil)

	tasks := e.tasks("2026-01-26", "2026-02-01")
	assert.Equal(t, []string{"2026-01-26", "2026-01-28", "2026-01-31"}, taskDates(tasks))
	assert.True(t, tasks[2].Completed)
}

func TestRescheduleSameDateIsValidation(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	run := goal.Milestones[0].RecurringActions[0]

	code, _ := e.do("PUT", "/api/tasks/"+models.RecurringTaskID(run.ID, *date(time.February, 2))+"/reschedule",
		models.RescheduleTaskRequest{NewDate: date(time.February, 2)})
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = e.do("PUT", "/api/tasks/"+models.RecurringTaskID(run.ID, *date(time.February, 2))+"/reschedule",
		models.RescheduleTaskRequest{})
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestRescheduleOneTime(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	id := models.OneTimeTaskID(goal.Milestones[0].OneTimeActions[0].ID)

	code, _ := e.do("PUT", "/api/tasks/"+id+"/reschedule", models.RescheduleTaskRequest{NewDate: date(time.February, 23)})
	assert.Equal(t, fiber.StatusConflict, code)

	e.call("PUT", "/api/tasks/"+id+"/reschedule", models.RescheduleTaskRequest{NewDate: date(time.February, 12)}, fiber.StatusOK, nil)
	tasks := e.tasks("2026-02-12", "2026-02-12")
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
}

func TestCreateTask(t *testing.T) {
	e := newEnv(t)
	goal := e.fitness()
	msID := goal.Milestones[0].ID

	code, _ := e.do("POST", "/api/tasks", models.CreateTaskRequest{Type: models.TaskOneTime, Title: "Shoes", MilestoneID: msID})
	assert.Equal(t, fiber.StatusBadRequest, code, "deadline required")

	code, _ = e.do("POST", "/api/tasks", models.CreateTaskRequest{Type: models.TaskRecurring, Title: "Stretch", MilestoneID: msID})
	assert.Equal(t, fiber.StatusBadRequest, code, "weekdays required")

	code, _ = e.do("POST", "/api/tasks", models.CreateTaskRequest{Type: "weekly", Title: "X", MilestoneID: msID})
	assert.Equal(t, fiber.StatusBadRequest, code)

	var created models.CreateTaskResponse
	e.call("POST", "/api/tasks", models.CreateTaskRequest{
		Type:        models.TaskOneTime,
		Title:       "Shoes",
		MilestoneID: msID,
		Deadline:    date(time.February, 3),
	}, fiber.StatusCreated, &created)
	assert.Equal(t, models.TaskOneTime, created.Type)
	assert.Equal(t, "Shoes", created.Title)

	e.call("POST", "/api/tasks", models.CreateTaskRequest{
		Type:        models.TaskRecurring,
		Title:       "Stretch",
		MilestoneID: msID,
		Weekdays:    []int{2, 2},
	}, fiber.StatusCreated, &created)

	assert.Equal(t, []string{"2026-02-02", "2026-02-03", "2026-02-03", "2026-02-04", "2026-02-06"},
		taskDates(e.tasks("2026-02-02", "2026-02-08")))
}
