// Package client keeps a task board in sync with the server, applying
// completion and reschedule mutations optimistically.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/models"
)

// TaskAPI is the part of the server API the board mutates through.
type TaskAPI interface {
	CompleteTask(ctx context.Context, taskID string, req models.CompleteTaskRequest) (models.CompleteTaskResponse, error)
	RescheduleTask(ctx context.Context, taskID string, req models.RescheduleTaskRequest) error
}

// HTTPAPI talks to a running server over HTTP using fiber's client agent.
type HTTPAPI struct {
	BaseURL string // e.g. http://localhost:8080/api
	Token   string
	Timeout time.Duration
}

func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Timeout: 10 * time.Second,
	}
}

func (h *HTTPAPI) CompleteTask(ctx context.Context, taskID string, req models.CompleteTaskRequest) (models.CompleteTaskResponse, error) {
	var resp models.CompleteTaskResponse
	err := h.put(ctx, "/tasks/"+url.PathEscape(taskID)+"/complete", req, &resp)
	return resp, err
}

func (h *HTTPAPI) RescheduleTask(ctx context.Context, taskID string, req models.RescheduleTaskRequest) error {
	return h.put(ctx, "/tasks/"+url.PathEscape(taskID)+"/reschedule", req, nil)
}

func (h *HTTPAPI) put(ctx context.Context, path string, body, out interface{}) error {
	op := "PUT " + path
	if err := ctx.Err(); err != nil {
		return apperrors.Transport(err, op)
	}

	timeout := h.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	agent := fiber.Put(h.BaseURL + path)
	agent.JSON(body)
	if h.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+h.Token)
	}
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	code, data, errs := agent.Bytes()
	if len(errs) > 0 {
		return apperrors.Transport(errs[0], op)
	}
	if code < 200 || code >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return apperrors.Transport(fmt.Errorf("status %d: %s", code, e.Error), op)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.Transport(err, op)
		}
	}
	return nil
}
