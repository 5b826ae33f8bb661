package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Goal struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	Title      string         `json:"title" gorm:"not null"`
	StartDate  *Date          `json:"start_date"`
	EndDate    *Date          `json:"end_date"`
	IsArchived bool           `json:"is_archived" gorm:"default:false"`
	ArchivedAt *time.Time     `json:"archived_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
	Milestones []Milestone    `json:"milestones" gorm:"foreignKey:GoalID"`

	// Derived on every read.
	Progress    float64 `json:"progress" gorm:"-"`
	IsCompleted bool    `json:"is_completed" gorm:"-"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// HasWindow reports whether both goal dates are set.
func (g *Goal) HasWindow() bool {
	return g.StartDate != nil && g.EndDate != nil
}

// Goal DTOs
type CreateGoalRequest struct {
	Title      string                   `json:"title"`
	StartDate  *Date                    `json:"start_date"`
	EndDate    *Date                    `json:"end_date"`
	Milestones []CreateMilestoneRequest `json:"milestones"`
}

type UpdateGoalRequest struct {
	Title     *string `json:"title"`
	StartDate *Date   `json:"start_date"`
	EndDate   *Date   `json:"end_date"`
}

type GoalProgressResponse struct {
	GoalID          uuid.UUID                   `json:"goal_id"`
	Title           string                      `json:"title"`
	OverallProgress float64                     `json:"overall_progress"`
	IsCompleted     bool                        `json:"is_completed"`
	Milestones      []MilestoneProgressResponse `json:"milestones"`
}

type MilestoneProgressResponse struct {
	ID                        uuid.UUID             `json:"id"`
	Title                     string                `json:"title"`
	Progress                  float64               `json:"progress"`
	CompletionPercentRequired int                   `json:"completion_percent_required"`
	IsOnTrack                 bool                  `json:"is_on_track"`
	IsCompleted               bool                  `json:"is_completed"`
	State                     string                `json:"state"`
	RecurringActions          []ActionProgressBrief `json:"recurring_actions"`
	OneTimeActions            []OneTimeActionBrief  `json:"one_time_actions"`
}

type ActionProgressBrief struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Progress        float64   `json:"progress"`
	TargetPercent   int       `json:"target_percent"`
	IsTargetReached bool      `json:"is_target_reached"`
}

type OneTimeActionBrief struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Deadline  Date      `json:"deadline"`
}
