package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MilestoneOpen            = "open"
	MilestonePendingDecision = "pending_decision"
	MilestoneClosed          = "closed"
)

type Milestone struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	GoalID            uuid.UUID      `json:"goal_id" gorm:"type:uuid;index;not null"`
	Title             string         `json:"title" gorm:"not null"`
	StartDate         Date           `json:"start_date" gorm:"not null"`
	EndDate           Date           `json:"end_date" gorm:"not null"`
	CompletionPercent int            `json:"completion_percent" gorm:"not null;default:80"`
	IsClosed          bool           `json:"is_closed" gorm:"default:false"`
	ClosedAt          *time.Time     `json:"closed_at"`
	ClosedProgress    *float64       `json:"-"`
	ConditionMet      *bool          `json:"condition_met"`
	DecisionNotified  bool           `json:"-" gorm:"default:false"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	RecurringActions []RecurringAction `json:"recurring_actions" gorm:"foreignKey:MilestoneID"`
	OneTimeActions   []OneTimeAction   `json:"one_time_actions" gorm:"foreignKey:MilestoneID"`
	Goal             *Goal             `json:"-" gorm:"foreignKey:GoalID"`

	// Derived on every read.
	Progress          float64 `json:"progress" gorm:"-"`
	State             string  `json:"state" gorm:"-"`
	AllTargetsReached bool    `json:"all_targets_reached" gorm:"-"`
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Milestone DTOs
type CreateMilestoneRequest struct {
	Title             string                         `json:"title"`
	StartDate         *Date                          `json:"start_date"`
	EndDate           *Date                          `json:"end_date"`
	CompletionPercent *int                           `json:"completion_percent"`
	RecurringActions  []CreateRecurringActionRequest `json:"recurring_actions"`
	OneTimeActions    []CreateOneTimeActionRequest   `json:"one_time_actions"`
}

type UpdateMilestoneRequest struct {
	Title             *string `json:"title"`
	StartDate         *Date   `json:"start_date"`
	EndDate           *Date   `json:"end_date"`
	CompletionPercent *int    `json:"completion_percent"`
}

type CompleteMilestoneRequest struct {
	ForceComplete bool `json:"force_complete"`
}

// CloseMilestoneRequest is the wire form of a closure decision; Action selects
// which of the optional fields is meaningful.
type CloseMilestoneRequest struct {
	Action               string `json:"action"`
	NewEndDate           *Date  `json:"new_end_date"`
	NewCompletionPercent *int   `json:"new_completion_percent"`
}
