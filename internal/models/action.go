package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RecurringAction struct {
	ID            uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey"`
	MilestoneID   uuid.UUID                `json:"milestone_id" gorm:"type:uuid;index;not null"`
	Title         string                   `json:"title" gorm:"not null"`
	Weekdays      datatypes.JSONSlice[int] `json:"weekdays" gorm:"not null"`
	TargetPercent int                      `json:"target_percent" gorm:"not null;default:80"`
	StartDate     *Date                    `json:"start_date"`
	EndDate       *Date                    `json:"end_date"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
	DeletedAt     gorm.DeletedAt           `json:"-" gorm:"index"`
	Logs          []RecurringActionLog     `json:"-" gorm:"foreignKey:RecurringActionID"`

	// Derived on every read.
	ExpectedCount   int     `json:"expected_count" gorm:"-"`
	CompletedCount  int     `json:"completed_count" gorm:"-"`
	CurrentPercent  float64 `json:"current_percent" gorm:"-"`
	IsTargetReached bool    `json:"is_target_reached" gorm:"-"`
}

func (a *RecurringAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// HasWeekday reports whether isoWeekday (1=Mon..7=Sun) is part of the rule.
func (a *RecurringAction) HasWeekday(isoWeekday int) bool {
	for _, wd := range a.Weekdays {
		if wd == isoWeekday {
			return true
		}
	}
	return false
}

// RecurringActionLog records the completion state of one occurrence. MovedFrom
// is set when the occurrence was rescheduled away from a rule date.
type RecurringActionLog struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RecurringActionID uuid.UUID `json:"recurring_action_id" gorm:"type:uuid;not null;uniqueIndex:idx_action_log_date"`
	Date              Date      `json:"date" gorm:"not null;uniqueIndex:idx_action_log_date"`
	Completed         bool      `json:"completed" gorm:"default:false"`
	MovedFrom         *Date     `json:"moved_from"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (l *RecurringActionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

type OneTimeAction struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	MilestoneID uuid.UUID      `json:"milestone_id" gorm:"type:uuid;index;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Deadline    Date           `json:"deadline" gorm:"not null;index"`
	Completed   bool           `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (a *OneTimeAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SetCompleted applies an explicit completion state. CompletedAt is stamped
// only on the transition to completed and cleared on un-completion.
func (a *OneTimeAction) SetCompleted(completed bool, now time.Time) {
	if completed && !a.Completed {
		a.CompletedAt = &now
	}
	if !completed {
		a.CompletedAt = nil
	}
	a.Completed = completed
}

// Action DTOs
type CreateRecurringActionRequest struct {
	Title         string `json:"title"`
	Weekdays      []int  `json:"weekdays"`
	TargetPercent *int   `json:"target_percent"`
	StartDate     *Date  `json:"start_date"`
	EndDate       *Date  `json:"end_date"`
}

type UpdateRecurringActionRequest struct {
	Title         *string `json:"title"`
	Weekdays      []int   `json:"weekdays"`
	TargetPercent *int    `json:"target_percent"`
	StartDate     *Date   `json:"start_date"`
	EndDate       *Date   `json:"end_date"`

	// Clear* drop the action's own window bound so the milestone's applies.
	ClearStartDate bool `json:"clear_start_date"`
	ClearEndDate   bool `json:"clear_end_date"`
}

// ChangesRule reports whether the request touches anything that decides
// which dates the action occurs on or how it scores.
func (r UpdateRecurringActionRequest) ChangesRule() bool {
	return r.Weekdays != nil || r.TargetPercent != nil ||
		r.StartDate != nil || r.EndDate != nil ||
		r.ClearStartDate || r.ClearEndDate
}

type LogRecurringActionRequest struct {
	Date      *Date `json:"date"`
	Completed bool  `json:"completed"`
}

type CreateOneTimeActionRequest struct {
	Title    string `json:"title"`
	Deadline *Date  `json:"deadline"`
}

type UpdateOneTimeActionRequest struct {
	Title     *string `json:"title"`
	Deadline  *Date   `json:"deadline"`
	Completed *bool   `json:"completed"`
}
