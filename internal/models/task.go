package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	TaskRecurring = "recurring"
	TaskOneTime   = "one-time"
)

// Task is a per-date projection of an action. It is never stored.
type Task struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Date           Date       `json:"date"`
	GoalID         uuid.UUID  `json:"goal_id"`
	MilestoneID    uuid.UUID  `json:"milestone_id"`
	MilestoneTitle string     `json:"milestone_title"`
	Completed      bool       `json:"completed"`
	OriginalID     uuid.UUID  `json:"original_id"`
	LogID          *uuid.UUID `json:"log_id"`
	TargetPercent  *int       `json:"target_percent,omitempty"`
	CurrentPercent *float64   `json:"current_percent,omitempty"`
}

func RecurringTaskID(actionID uuid.UUID, d Date) string {
	return fmt.Sprintf("recurring-%s-%s", actionID, d)
}

func OneTimeTaskID(actionID uuid.UUID) string {
	return fmt.Sprintf("onetime-%s", actionID)
}

// TaskRef is a parsed task id. Date is set only for recurring ids.
type TaskRef struct {
	Type     string
	ActionID uuid.UUID
	Date     *Date
}

// ParseTaskID reads ids produced by RecurringTaskID and OneTimeTaskID. A bare
// action uuid is accepted too, with the type left empty for the caller to
// supply.
func ParseTaskID(id string) (TaskRef, error) {
	switch {
	case strings.HasPrefix(id, "recurring-"):
		rest := strings.TrimPrefix(id, "recurring-")
		if len(rest) != 36+1+len(DateLayout) || rest[36] != '-' {
			return TaskRef{}, fmt.Errorf("invalid task id %q", id)
		}
		actionID, err := uuid.Parse(rest[:36])
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task id %q", id)
		}
		d, err := ParseDate(rest[37:])
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task id %q", id)
		}
		return TaskRef{Type: TaskRecurring, ActionID: actionID, Date: &d}, nil
	case strings.HasPrefix(id, "onetime-"):
		actionID, err := uuid.Parse(strings.TrimPrefix(id, "onetime-"))
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task id %q", id)
		}
		return TaskRef{Type: TaskOneTime, ActionID: actionID}, nil
	default:
		actionID, err := uuid.Parse(id)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task id %q", id)
		}
		return TaskRef{ActionID: actionID}, nil
	}
}

// Task DTOs
type TaskRangeResponse struct {
	Tasks []Task `json:"tasks"`
}

type CompleteTaskRequest struct {
	Type      string     `json:"type"`
	Completed bool       `json:"completed"`
	Date      *Date      `json:"date"`
	LogID     *uuid.UUID `json:"log_id"`
}

type CompleteTaskResponse struct {
	Success           bool    `json:"success"`
	MilestoneProgress float64 `json:"milestone_progress"`
}

type RescheduleTaskRequest struct {
	Type    string     `json:"type"`
	OldDate *Date      `json:"old_date"`
	NewDate *Date      `json:"new_date"`
	LogID   *uuid.UUID `json:"log_id"`
}

type CreateTaskRequest struct {
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	MilestoneID   uuid.UUID `json:"milestone_id"`
	Deadline      *Date     `json:"deadline"`
	Weekdays      []int     `json:"weekdays"`
	TargetPercent *int      `json:"target_percent"`
}

type CreateTaskResponse struct {
	ID    uuid.UUID `json:"id"`
	Type  string    `json:"type"`
	Title string    `json:"title"`
}
