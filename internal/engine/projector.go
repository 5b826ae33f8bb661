package engine

import (
	"sort"

	"github.com/arnold/milestones-api/internal/models"
)

// ProjectTasks expands the actions of milestones into per-date tasks inside
// [start, end]. Recurring tasks snapshot their action's progress as of today.
// The result is sorted by date, type, title and id.
func ProjectTasks(milestones []models.Milestone, start, end, today models.Date) []models.Task {
	tasks := make([]models.Task, 0)
	for i := range milestones {
		ms := &milestones[i]

		for j := range ms.RecurringActions {
			a := &ms.RecurringActions[j]
			occ := Occurrences(a, ms, start, end)
			if len(occ) == 0 {
				continue
			}
			progress := ComputeRecurringProgress(a, ms, today)
			for _, o := range occ {
				target := a.TargetPercent
				current := progress.CurrentPercent
				t := models.Task{
					ID:             models.RecurringTaskID(a.ID, o.Date),
					Type:           models.TaskRecurring,
					Title:          a.Title,
					Date:           o.Date,
					GoalID:         ms.GoalID,
					MilestoneID:    ms.ID,
					MilestoneTitle: ms.Title,
					OriginalID:     a.ID,
					TargetPercent:  &target,
					CurrentPercent: &current,
				}
				if o.Log != nil {
					logID := o.Log.ID
					t.LogID = &logID
					t.Completed = o.Log.Completed
				}
				tasks = append(tasks, t)
			}
		}

		for _, a := range ms.OneTimeActions {
			if !a.Deadline.Within(start, end) {
				continue
			}
			tasks = append(tasks, models.Task{
				ID:             models.OneTimeTaskID(a.ID),
				Type:           models.TaskOneTime,
				Title:          a.Title,
				Date:           a.Deadline,
				GoalID:         ms.GoalID,
				MilestoneID:    ms.ID,
				MilestoneTitle: ms.Title,
				Completed:      a.Completed,
				OriginalID:     a.ID,
			})
		}
	}

	SortTasks(tasks)
	return tasks
}

// SortTasks orders tasks by date, type, title and id.
func SortTasks(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// Milestones flattens the milestones of goals, keeping goal order.
func Milestones(goals []models.Goal) []models.Milestone {
	var out []models.Milestone
	for _, g := range goals {
		out = append(out, g.Milestones...)
	}
	return out
}
