package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnold/milestones-api/internal/database"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/logger"
	"github.com/arnold/milestones-api/internal/models"
)

// ClosureColumns are the milestone fields the closure state machine writes.
func ClosureColumns(ms *models.Milestone) map[string]interface{} {
	return map[string]interface{}{
		"end_date":           ms.EndDate,
		"completion_percent": ms.CompletionPercent,
		"is_closed":          ms.IsClosed,
		"closed_at":          ms.ClosedAt,
		"closed_progress":    ms.ClosedProgress,
		"condition_met":      ms.ConditionMet,
		"decision_notified":  ms.DecisionNotified,
	}
}

// EvaluateMilestone runs automatic closure on ms and persists, notifies and
// records whatever transition happened. ms must have its actions loaded.
//
// The write only lands if the row still holds the state ms was loaded with.
// When another writer got there first the transition is dropped and ms is
// left as loaded.
func EvaluateMilestone(tx *gorm.DB, userID uuid.UUID, goalTitle string, ms *models.Milestone, today models.Date) (engine.Transition, error) {
	before := *ms
	t := engine.Evaluate(ms, today, Now())
	if t == engine.TransitionNone {
		return t, nil
	}

	res := tx.Model(&models.Milestone{}).
		Where("id = ? AND is_closed = ? AND end_date = ? AND decision_notified = ?",
			ms.ID, false, before.EndDate, before.DecisionNotified).
		Updates(ClosureColumns(ms))
	if res.Error != nil {
		return engine.TransitionNone, res.Error
	}
	if res.RowsAffected == 0 {
		*ms = before
		logger.Debug("milestone changed since load", "milestone", ms.ID)
		return engine.TransitionNone, nil
	}

	meta := map[string]interface{}{
		"goal_id":      ms.GoalID.String(),
		"milestone_id": ms.ID.String(),
	}
	switch t {
	case engine.TransitionAutoClosed:
		progress := *ms.ClosedProgress
		if err := Notify(tx, userID, models.NotifyMilestoneAutoClosed,
			"Milestone completed!",
			fmt.Sprintf("%q in %q closed at %.0f%%", ms.Title, goalTitle, progress),
			meta,
		); err != nil {
			return t, err
		}
		if err := LogActivity(tx, ms.GoalID, userID, models.ActivityMilestoneClosed, &ms.ID, map[string]interface{}{
			"title":         ms.Title,
			"progress":      progress,
			"condition_met": true,
			"automatic":     true,
		}); err != nil {
			return t, err
		}
	case engine.TransitionNeedsDecision:
		if err := Notify(tx, userID, models.NotifyMilestoneNeedsDecision,
			"Milestone needs a decision",
			fmt.Sprintf("%q in %q ended below %d%%: close it, extend it or lower the bar", ms.Title, goalTitle, ms.CompletionPercent),
			meta,
		); err != nil {
			return t, err
		}
	}

	logger.Info("milestone evaluated", "milestone", ms.ID, "transition", t.String())
	return t, nil
}

// EvaluateGoal evaluates every milestone of a loaded goal tree.
func EvaluateGoal(tx *gorm.DB, g *models.Goal, today models.Date) error {
	for i := range g.Milestones {
		if _, err := EvaluateMilestone(tx, g.UserID, g.Title, &g.Milestones[i], today); err != nil {
			return err
		}
	}
	return nil
}

func dueMilestones(db *gorm.DB, today models.Date) *gorm.DB {
	return db.
		Joins("JOIN goals ON goals.id = milestones.goal_id AND goals.deleted_at IS NULL AND goals.is_archived = ?", false).
		Where("milestones.is_closed = ? AND milestones.end_date < ?", false, today)
}

// Sweep evaluates every open milestone whose window has elapsed and returns
// how many changed state. Each milestone is re-read inside its own
// transaction, so edits made while the sweep runs are seen.
func Sweep(ctx context.Context) (int, error) {
	today := Today()

	var ids []uuid.UUID
	err := database.DB.WithContext(ctx).
		Model(&models.Milestone{}).
		Scopes(func(db *gorm.DB) *gorm.DB { return dueMilestones(db, today) }).
		Pluck("milestones.id", &ids).Error
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		var t engine.Transition
		err := Transaction(ctx, func(tx *gorm.DB) error {
			var ms models.Milestone
			err := tx.Scopes(database.MilestoneTree, database.ForUpdate).
				Scopes(func(db *gorm.DB) *gorm.DB { return dueMilestones(db, today) }).
				Preload("Goal").
				Where("milestones.id = ?", id).
				Take(&ms).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if ms.Goal == nil {
				return nil
			}
			t, err = EvaluateMilestone(tx, ms.Goal.UserID, ms.Goal.Title, &ms, today)
			return err
		})
		if err != nil {
			logger.Error("sweep: evaluation failed", "milestone", id, "err", err)
			continue
		}
		if t != engine.TransitionNone {
			changed++
		}
	}
	return changed, nil
}

// StartSweeper runs Sweep immediately and then every interval until ctx is
// cancelled.
func StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		logger.Info("sweep: disabled")
		return
	}

	run := func() {
		n, err := Sweep(ctx)
		if err != nil {
			logger.Error("sweep failed", "err", err)
			return
		}
		if n > 0 {
			logger.Info("milestones swept", "count", n)
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		run()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}
