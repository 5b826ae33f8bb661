package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/middleware"
	"github.com/arnold/milestones-api/internal/models"
	"github.com/arnold/milestones-api/internal/routes"
	"github.com/arnold/milestones-api/internal/services"
)

const secret = "test-secret"

type env struct {
	t      *testing.T
	app    *fiber.App
	userID uuid.UUID
	token  string
}

// newEnv starts an app on a fresh database with today fixed to Sunday
// 2026-02-01.
func newEnv(t *testing.T) *env {
	t.Helper()
	require.NoError(t, database.ConnectMemory())
	services.Now = func() time.Time { return time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC) }
	services.Location = time.UTC
	t.Cleanup(func() { services.Now = time.Now })

	userID := uuid.New()
	tok, err := middleware.GenerateToken(secret, userID, time.Hour)
	require.NoError(t, err)
	return &env{t: t, app: routes.NewApp(secret), userID: userID, token: tok}
}

func (e *env) do(method, path string, body interface{}) (int, []byte) {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, data
}

// call expects status and decodes the body into out when out is non-nil.
func (e *env) call(method, path string, body interface{}, status int, out interface{}) {
	e.t.Helper()
	code, data := e.do(method, path, body)
	require.Equal(e.t, status, code, string(data))
	if out != nil {
		require.NoError(e.t, json.Unmarshal(data, out))
	}
}

func date(month time.Month, day int) *models.Date {
	d := models.NewDate(2026, month, day)
	return &d
}

func intPtr(v int) *int { return &v }

// fitness creates a goal with one milestone running Jan 26 to Feb 22: a
// Mon/Wed/Fri "Run" and a one-time "Sign up" due Feb 10.
func (e *env) fitness() models.Goal {
	e.t.Helper()
	var goal models.Goal
	e.call("POST", "/api/goals", models.CreateGoalRequest{
		Title:     "Fitness",
		StartDate: date(time.January, 1),
		EndDate:   date(time.March, 31),
		Milestones: []models.CreateMilestoneRequest{{
			Title:             "Base",
			StartDate:         date(time.January, 26),
			EndDate:           date(time.February, 22),
			CompletionPercent: intPtr(80),
			RecurringActions: []models.CreateRecurringActionRequest{{
				Title:    "Run",
				Weekdays: []int{1, 3, 5},
			}},
			OneTimeActions: []models.CreateOneTimeActionRequest{{
				Title:    "Sign up",
				Deadline: date(time.February, 10),
			}},
		}},
	}, fiber.StatusCreated, &goal)
	require.Len(e.t, goal.Milestones, 1)
	require.Len(e.t, goal.Milestones[0].RecurringActions, 1)
	require.Len(e.t, goal.Milestones[0].OneTimeActions, 1)
	return goal
}

func (e *env) tasks(start, end string) []models.Task {
	e.t.Helper()
	var resp models.TaskRangeResponse
	e.call("GET", "/api/tasks/range?start_date="+start+"&end_date="+end, nil, fiber.StatusOK, &resp)
	return resp.Tasks
}

func taskDates(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Date.String())
	}
	return out
}
