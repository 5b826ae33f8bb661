package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/models"
)

func TestPlanOccurrenceMove(t *testing.T) {
	ms := newMilestone(day(time.January, 5), day(time.January, 18), 80)
	a := newRecurring("Gym", []int{1, 3, 5}, 80)
	a.Logs = []models.RecurringActionLog{{ID: uuid.New(), Date: day(time.January, 7), Completed: true}}

	move, err := PlanOccurrenceMove(&a, ms, day(time.January, 7), day(time.January, 8))
	require.NoError(t, err)
	assert.Same(t, &a.Logs[0], move.Log)
	require.NotNil(t, move.MovedFrom)
	assert.Equal(t, day(time.January, 7), *move.MovedFrom)
	assert.Nil(t, move.Stale)

	// Unlogged occurrences move too; a fresh row is created.
	move, err = PlanOccurrenceMove(&a, ms, day(time.January, 9), day(time.January, 10))
	require.NoError(t, err)
	assert.Nil(t, move.Log)
	assert.Equal(t, day(time.January, 9), *move.MovedFrom)
}

func TestPlanOccurrenceMoveBackClearsOverlay(t *testing.T) {
	ms := newMilestone(day(time.January, 5), day(time.January, 18), 80)
	a := newRecurring("Gym", []int{1, 3, 5}, 80)
	a.Logs = []models.RecurringActionLog{{ID: uuid.New(), Date: day(time.January, 8), MovedFrom: datePtr(day(time.January, 7))}}

	move, err := PlanOccurrenceMove(&a, ms, day(time.January, 8), day(time.January, 7))
	require.NoError(t, err)
	assert.Nil(t, move.MovedFrom)

	// A moved occurrence keeps pointing at its original rule date.
	move, err = PlanOccurrenceMove(&a, ms, day(time.January, 8), day(time.January, 10))
	require.NoError(t, err)
	assert.Equal(t, day(time.January, 7), *move.MovedFrom)
}

func TestPlanOccurrenceMoveRejections(t *testing.T) {
	ms := newMilestone(day(time.January, 5), day(time.January, 18), 80)
	a := newRecurring("Gym", []int{1, 3, 5}, 80)

	for _, tc := range []struct {
		name     string
		from, to models.Date
		kind     apperrors.Kind
	}{
		{"same day", day(time.January, 7), day(time.January, 7), apperrors.KindValidation},
		{"not an occurrence", day(time.January, 6), day(time.January, 8), apperrors.KindNotFound},
		{"outside window", day(time.January, 7), day(time.January, 19), apperrors.KindConflict},
		{"onto an occurrence", day(time.January, 7), day(time.January, 9), apperrors.KindConflict},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanOccurrenceMove(&a, ms, tc.from, tc.to)
			assert.Equal(t, tc.kind, apperrors.KindOf(err))
		})
	}
}

func TestPlanOccurrenceMoveClearsStaleRow(t *testing.T) {
	ms := newMilestone(day(time.January, 5), day(time.January, 18), 80)
	a := newRecurring("Gym", []int{1, 3, 5}, 80)
	// Left over from before Tuesdays were dropped from the rule.
	a.Logs = []models.RecurringActionLog{{ID: uuid.New(), Date: day(time.January, 6), Completed: true}}

	move, err := PlanOccurrenceMove(&a, ms, day(time.January, 7), day(time.January, 6))
	require.NoError(t, err)
	require.NotNil(t, move.Stale)
	assert.Equal(t, a.Logs[0].ID, move.Stale.ID)
}

func TestCheckDeadlineMove(t *testing.T) {
	ms := newMilestone(day(time.January, 5), day(time.January, 18), 80)
	a := &models.OneTimeAction{Deadline: day(time.January, 10)}

	assert.NoError(t, CheckDeadlineMove(a, ms, day(time.January, 18)))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(CheckDeadlineMove(a, ms, day(time.January, 19))))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(CheckDeadlineMove(a, ms, day(time.January, 10))))
}
