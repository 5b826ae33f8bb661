package engine

import (
	"math"
	"time"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/models"
)

// State derives the closure state of ms as of today.
func State(ms *models.Milestone, today models.Date) string {
	if ms.IsClosed {
		return models.MilestoneClosed
	}
	if !today.After(ms.EndDate) {
		return models.MilestoneOpen
	}
	if LiveMilestoneProgress(ms, today) >= float64(ms.CompletionPercent) {
		// Elapsed and met; the next evaluation closes it.
		return models.MilestoneOpen
	}
	return models.MilestonePendingDecision
}

// Transition is what an evaluation pass did to a milestone.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionAutoClosed
	TransitionNeedsDecision
)

func (t Transition) String() string {
	switch t {
	case TransitionAutoClosed:
		return "auto_closed"
	case TransitionNeedsDecision:
		return "needs_decision"
	default:
		return "none"
	}
}

// Evaluate runs the automatic part of the state machine. Once the window has
// elapsed a milestone that met its threshold is closed with the progress
// frozen. One that did not is flagged for a decision, reported only on the
// first pass. Closed milestones are left untouched.
func Evaluate(ms *models.Milestone, today models.Date, now time.Time) Transition {
	if ms.IsClosed || !today.After(ms.EndDate) {
		return TransitionNone
	}
	p := LiveMilestoneProgress(ms, today)
	if p >= float64(ms.CompletionPercent) {
		closeMilestone(ms, p, true, now)
		return TransitionAutoClosed
	}
	if ms.DecisionNotified {
		return TransitionNone
	}
	ms.DecisionNotified = true
	return TransitionNeedsDecision
}

func closeMilestone(ms *models.Milestone, progress float64, met bool, now time.Time) {
	ms.IsClosed = true
	ms.ClosedAt = &now
	ms.ClosedProgress = &progress
	ms.ConditionMet = &met
}

const (
	DecisionCloseAsIs     = "close_as_is"
	DecisionExtend        = "extend"
	DecisionReducePercent = "reduce_percent"
)

// Decision is one of CloseAsIs, Extend or ReducePercent.
type Decision interface {
	Name() string
	apply(ms *models.Milestone, today models.Date, now time.Time) error
}

// CloseAsIs closes with the current progress frozen and the condition
// recorded as met only if progress already reaches the threshold.
type CloseAsIs struct{}

// Extend moves the end date later and leaves the milestone open.
type Extend struct {
	NewEndDate models.Date
}

// ReducePercent lowers the threshold to at most the current progress and
// closes with the condition met.
type ReducePercent struct {
	Percent int
}

func (CloseAsIs) Name() string     { return DecisionCloseAsIs }
func (Extend) Name() string        { return DecisionExtend }
func (ReducePercent) Name() string { return DecisionReducePercent }

func (CloseAsIs) apply(ms *models.Milestone, today models.Date, now time.Time) error {
	p := LiveMilestoneProgress(ms, today)
	closeMilestone(ms, p, p >= float64(ms.CompletionPercent), now)
	return nil
}

func (d Extend) apply(ms *models.Milestone, today models.Date, _ time.Time) error {
	if !d.NewEndDate.After(ms.EndDate) {
		return apperrors.Validation("new end date must be after %s", ms.EndDate)
	}
	if d.NewEndDate.Before(today) {
		return apperrors.Validation("new end date must not be in the past")
	}
	ms.EndDate = d.NewEndDate
	ms.DecisionNotified = false
	return nil
}

func (d ReducePercent) apply(ms *models.Milestone, today models.Date, now time.Time) error {
	p := LiveMilestoneProgress(ms, today)
	if d.Percent < 1 || d.Percent > 100 {
		return apperrors.Validation("completion percent must be between 1 and 100")
	}
	if d.Percent > MaxReducedPercent(p) {
		return apperrors.Validation("completion percent %d exceeds current progress %.1f", d.Percent, p)
	}
	ms.CompletionPercent = d.Percent
	closeMilestone(ms, p, true, now)
	return nil
}

// MaxReducedPercent is the highest threshold a milestone with progress p can
// be reduced to.
func MaxReducedPercent(p float64) int {
	return int(math.Floor(p))
}

// ParseDecision turns the wire form into a Decision, validating that the
// field the chosen action needs is present.
func ParseDecision(req models.CloseMilestoneRequest) (Decision, error) {
	switch req.Action {
	case DecisionCloseAsIs:
		return CloseAsIs{}, nil
	case DecisionExtend:
		if req.NewEndDate == nil {
			return nil, apperrors.Validation("new_end_date is required to extend")
		}
		return Extend{NewEndDate: *req.NewEndDate}, nil
	case DecisionReducePercent:
		if req.NewCompletionPercent == nil {
			return nil, apperrors.Validation("new_completion_percent is required to reduce")
		}
		return ReducePercent{Percent: *req.NewCompletionPercent}, nil
	case "":
		return nil, apperrors.Validation("action is required")
	default:
		return nil, apperrors.Validation("unknown close action %q", req.Action)
	}
}

// Decide applies d to ms. Closed milestones accept no further decisions.
func Decide(ms *models.Milestone, d Decision, today models.Date, now time.Time) error {
	if ms.IsClosed {
		return apperrors.Conflict("milestone is already closed")
	}
	return d.apply(ms, today, now)
}
