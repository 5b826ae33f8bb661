package models

import "github.com/google/uuid"

type CalendarGoalBrief struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Color string    `json:"color"`
}

type CalendarDayBrief struct {
	Date           Date                `json:"date"`
	InMonth        bool                `json:"in_month"`
	TasksTotal     int                 `json:"tasks_total"`
	TasksCompleted int                 `json:"tasks_completed"`
	Goals          []CalendarGoalBrief `json:"goals"`
	HasMilestone   bool                `json:"has_milestone"`
	MilestoneTitle *string             `json:"milestone_title,omitempty"`
}

type CalendarMonthResponse struct {
	Year  int                `json:"year"`
	Month int                `json:"month"`
	Days  []CalendarDayBrief `json:"days"`
}

type CalendarMilestoneView struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	GoalID    uuid.UUID `json:"goal_id"`
	GoalTitle string    `json:"goal_title"`
	StartDate Date      `json:"start_date"`
	EndDate   Date      `json:"end_date"`
	EndsToday bool      `json:"ends_today"`
}

type CalendarDayResponse struct {
	Date       Date                    `json:"date"`
	Weekday    string                  `json:"weekday"`
	Goals      []CalendarGoalBrief     `json:"goals"`
	Tasks      []Task                  `json:"tasks"`
	Milestones []CalendarMilestoneView `json:"milestones"`
}

// TimelineBar positions are fractions of the goal's duration in [0,1].
type TimelineBar struct {
	MilestoneID uuid.UUID `json:"milestone_id"`
	Title       string    `json:"title"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	Start       float64   `json:"start"`
	End         float64   `json:"end"`
	Progress    float64   `json:"progress_percent"`
	Completed   bool      `json:"completed"`
}

type TimelineMilestone struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Progress  float64   `json:"progress_percent"`
	Completed bool      `json:"completed"`
}

type TimelineGoal struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Color         string              `json:"color"`
	StartDate     *Date               `json:"start_date"`
	EndDate       *Date               `json:"end_date"`
	Progress      float64             `json:"progress_percent"`
	TodayPosition *float64            `json:"today_position"`
	Bars          []TimelineBar       `json:"bars"`
	Unplaced      []TimelineMilestone `json:"milestones"`
}

type CalendarTimelineResponse struct {
	Goals []TimelineGoal `json:"goals"`
}
