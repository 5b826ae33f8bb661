package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/models"
)

// GoalColors is assigned to goals by their position in the owner's goal list.
var GoalColors = []string{
	"#8CB369",
	"#85B8CB",
	"#E8A87C",
	"#C49BBB",
	"#E8B84C",
	"#D9756C",
	"#6B8F71",
	"#A0C4FF",
}

const fallbackColor = "#888888"

// MinBarWidth keeps very short milestones visible on the timeline.
const MinBarWidth = 0.02

// ColorMap assigns palette colours to goals in the given (creation) order.
func ColorMap(goals []models.Goal) map[uuid.UUID]string {
	colors := make(map[uuid.UUID]string, len(goals))
	for i, g := range goals {
		colors[g.ID] = GoalColors[i%len(GoalColors)]
	}
	return colors
}

func colorOf(colors map[uuid.UUID]string, id uuid.UUID) string {
	if c, ok := colors[id]; ok {
		return c
	}
	return fallbackColor
}

// MonthBounds returns the first and last day of a month.
func MonthBounds(year int, month time.Month) (models.Date, models.Date) {
	first := models.NewDate(year, month, 1)
	return first, models.DateOf(first.Time.AddDate(0, 1, -1))
}

// MonthGrid returns the Monday that opens and the Sunday that closes the
// 7-column grid covering the month.
func MonthGrid(year int, month time.Month) (models.Date, models.Date) {
	first, last := MonthBounds(year, month)
	return first.AddDays(1 - first.ISOWeekday()), last.AddDays(7 - last.ISOWeekday())
}

// BuildMonth summarises every grid day of the month. colors must cover the
// owner's full goal list so that filtering does not shift colours.
func BuildMonth(goals []models.Goal, colors map[uuid.UUID]string, year int, month time.Month, today models.Date) models.CalendarMonthResponse {
	gridStart, gridEnd := MonthGrid(year, month)
	tasks := ProjectTasks(Milestones(goals), gridStart, gridEnd, today)

	byDate := make(map[models.Date][]models.Task)
	for _, t := range tasks {
		byDate[t.Date] = append(byDate[t.Date], t)
	}

	resp := models.CalendarMonthResponse{Year: year, Month: int(month)}
	for d := gridStart; !d.After(gridEnd); d = d.AddDays(1) {
		day := models.CalendarDayBrief{
			Date:    d,
			InMonth: d.Month() == month,
			Goals:   make([]models.CalendarGoalBrief, 0),
		}
		dayTasks := byDate[d]
		day.TasksTotal = len(dayTasks)
		for _, t := range dayTasks {
			if t.Completed {
				day.TasksCompleted++
			}
		}
		for _, g := range goals {
			if goalHasTask(dayTasks, g.ID) {
				day.Goals = append(day.Goals, models.CalendarGoalBrief{ID: g.ID, Title: g.Title, Color: colorOf(colors, g.ID)})
			}
			for _, ms := range g.Milestones {
				if !day.HasMilestone && ms.EndDate.Equal(d) {
					title := ms.Title
					day.HasMilestone = true
					day.MilestoneTitle = &title
				}
			}
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

func goalHasTask(tasks []models.Task, goalID uuid.UUID) bool {
	for _, t := range tasks {
		if t.GoalID == goalID {
			return true
		}
	}
	return false
}

// BuildDay lists the tasks of d, the goals active that day and the
// milestones whose window contains d.
func BuildDay(goals []models.Goal, colors map[uuid.UUID]string, d, today models.Date) models.CalendarDayResponse {
	resp := models.CalendarDayResponse{
		Date:       d,
		Weekday:    d.Weekday().String(),
		Goals:      make([]models.CalendarGoalBrief, 0),
		Tasks:      ProjectTasks(Milestones(goals), d, d, today),
		Milestones: make([]models.CalendarMilestoneView, 0),
	}
	for _, g := range goals {
		active := g.HasWindow() && d.Within(*g.StartDate, *g.EndDate)
		for _, ms := range g.Milestones {
			if !d.Within(ms.StartDate, ms.EndDate) {
				continue
			}
			active = true
			resp.Milestones = append(resp.Milestones, models.CalendarMilestoneView{
				ID:        ms.ID,
				Title:     ms.Title,
				GoalID:    g.ID,
				GoalTitle: g.Title,
				StartDate: ms.StartDate,
				EndDate:   ms.EndDate,
				EndsToday: ms.EndDate.Equal(d),
			})
		}
		if active || goalHasTask(resp.Tasks, g.ID) {
			resp.Goals = append(resp.Goals, models.CalendarGoalBrief{ID: g.ID, Title: g.Title, Color: colorOf(colors, g.ID)})
		}
	}
	return resp
}

// BuildTimeline lays out the goals that intersect the month. A goal with both
// dates gets one bar per milestone, positioned as fractions of its duration.
// A goal without a window lists its milestones unplaced.
func BuildTimeline(goals []models.Goal, colors map[uuid.UUID]string, year int, month time.Month, today models.Date) models.CalendarTimelineResponse {
	monthStart, monthEnd := MonthBounds(year, month)
	resp := models.CalendarTimelineResponse{Goals: make([]models.TimelineGoal, 0)}

	for i := range goals {
		g := &goals[i]
		if !goalIntersects(g, monthStart, monthEnd) {
			continue
		}
		AnnotateGoal(g, today)

		tg := models.TimelineGoal{
			ID:        g.ID,
			Title:     g.Title,
			Color:     colorOf(colors, g.ID),
			StartDate: g.StartDate,
			EndDate:   g.EndDate,
			Progress:  g.Progress,
			Bars:      make([]models.TimelineBar, 0),
			Unplaced:  make([]models.TimelineMilestone, 0),
		}

		if !g.HasWindow() {
			for _, ms := range g.Milestones {
				tg.Unplaced = append(tg.Unplaced, models.TimelineMilestone{
					ID:        ms.ID,
					Title:     ms.Title,
					Progress:  ms.Progress,
					Completed: timelineCompleted(&ms),
				})
			}
			resp.Goals = append(resp.Goals, tg)
			continue
		}

		start, end := *g.StartDate, *g.EndDate
		pos := Position(start, end, today)
		tg.TodayPosition = &pos
		for _, ms := range g.Milestones {
			s, e := BarGeometry(start, end, ms.StartDate, ms.EndDate)
			tg.Bars = append(tg.Bars, models.TimelineBar{
				MilestoneID: ms.ID,
				Title:       ms.Title,
				StartDate:   ms.StartDate,
				EndDate:     ms.EndDate,
				Start:       s,
				End:         e,
				Progress:    ms.Progress,
				Completed:   timelineCompleted(&ms),
			})
		}
		resp.Goals = append(resp.Goals, tg)
	}
	return resp
}

func goalIntersects(g *models.Goal, from, to models.Date) bool {
	if g.HasWindow() {
		return !g.StartDate.After(to) && !g.EndDate.Before(from)
	}
	for _, ms := range g.Milestones {
		if !ms.StartDate.After(to) && !ms.EndDate.Before(from) {
			return true
		}
	}
	return false
}

func timelineCompleted(ms *models.Milestone) bool {
	return ms.IsClosed || ms.Progress >= float64(ms.CompletionPercent)
}

// Position normalises d against the goal window, clamped to [0,1]. A window
// of zero or negative length maps everything to 0.
func Position(goalStart, goalEnd, d models.Date) float64 {
	duration := goalStart.DaysUntil(goalEnd)
	if duration <= 0 {
		return 0
	}
	return clampUnit(float64(goalStart.DaysUntil(d)) / float64(duration))
}

// BarGeometry is the clamped [start, end] of a milestone bar, widened to
// MinBarWidth without leaving [0,1].
func BarGeometry(goalStart, goalEnd, msStart, msEnd models.Date) (float64, float64) {
	s := Position(goalStart, goalEnd, msStart)
	e := Position(goalStart, goalEnd, msEnd)
	if e-s < MinBarWidth {
		e = s + MinBarWidth
		if e > 1 {
			e = 1
			s = 1 - MinBarWidth
		}
	}
	return s, e
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
