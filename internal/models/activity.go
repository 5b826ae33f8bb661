package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActivityTaskCompleted     = "task_completed"
	ActivityTaskReopened      = "task_reopened"
	ActivityTaskRescheduled   = "task_rescheduled"
	ActivityMilestoneClosed   = "milestone_closed"
	ActivityMilestoneExtended = "milestone_extended"
)

type Activity struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GoalID     uuid.UUID      `json:"goal_id" gorm:"type:uuid;index;not null"`
	UserID     uuid.UUID      `json:"user_id" gorm:"type:uuid;not null"`
	ActionType string         `json:"action_type" gorm:"not null"` // task_completed, task_rescheduled, milestone_closed, ...
	TargetID   *uuid.UUID     `json:"target_id" gorm:"type:uuid"`  // action or milestone ID depending on type
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
