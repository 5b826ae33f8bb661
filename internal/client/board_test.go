package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/models"
)

type fakeAPI struct {
	err      error
	progress float64
	release  chan struct{}
	started  chan struct{}

	completes   []models.CompleteTaskRequest
	reschedules []models.RescheduleTaskRequest
	ids         []string
}

func (f *fakeAPI) wait() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeAPI) CompleteTask(_ context.Context, id string, req models.CompleteTaskRequest) (models.CompleteTaskResponse, error) {
	f.wait()
	f.ids = append(f.ids, id)
	f.completes = append(f.completes, req)
	if f.err != nil {
		return models.CompleteTaskResponse{}, f.err
	}
	return models.CompleteTaskResponse{Success: true, MilestoneProgress: f.progress}, nil
}

func (f *fakeAPI) RescheduleTask(_ context.Context, id string, req models.RescheduleTaskRequest) error {
	f.wait()
	f.ids = append(f.ids, id)
	f.reschedules = append(f.reschedules, req)
	return f.err
}

func d(month time.Month, day int) models.Date { return models.NewDate(2026, month, day) }

func recurringTask(actionID, msID uuid.UUID, date models.Date) models.Task {
	return models.Task{
		ID:          models.RecurringTaskID(actionID, date),
		Type:        models.TaskRecurring,
		Title:       "Run",
		Date:        date,
		MilestoneID: msID,
		OriginalID:  actionID,
	}
}

func oneTimeTask(actionID, msID uuid.UUID, date models.Date) models.Task {
	return models.Task{
		ID:          models.OneTimeTaskID(actionID),
		Type:        models.TaskOneTime,
		Title:       "Sign up",
		Date:        date,
		MilestoneID: msID,
		OriginalID:  actionID,
	}
}

func TestMoveRecurringRekeysTask(t *testing.T) {
	api := &fakeAPI{}
	action, ms := uuid.New(), uuid.New()
	task := recurringTask(action, ms, d(3, 2))
	b := NewBoard(api, []models.Task{task})

	require.NoError(t, b.Move(context.Background(), task.ID, d(3, 4)))

	_, ok := b.Task(task.ID)
	assert.False(t, ok)
	moved, ok := b.Task(models.RecurringTaskID(action, d(3, 4)))
	require.True(t, ok)
	assert.Equal(t, d(3, 4), moved.Date)

	require.Len(t, api.reschedules, 1)
	assert.Equal(t, task.ID, api.ids[0])
	assert.Equal(t, d(3, 2), *api.reschedules[0].OldDate)
	assert.Equal(t, d(3, 4), *api.reschedules[0].NewDate)
	assert.Equal(t, models.TaskRecurring, api.reschedules[0].Type)
}

func TestFailedMoveRestoresOriginalDate(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection reset")}
	action, ms := uuid.New(), uuid.New()
	task := oneTimeTask(action, ms, d(3, 10))
	b := NewBoard(api, []models.Task{task})

	err := b.Move(context.Background(), task.ID, d(3, 12))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTransport))

	got, ok := b.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, task, got)
	assert.False(t, b.Busy(task.ID))
}

func TestFailedRecurringMoveRestoresKey(t *testing.T) {
	api := &fakeAPI{err: apperrors.Transport(errors.New("status 409: taken"), "PUT")}
	action, ms := uuid.New(), uuid.New()
	task := recurringTask(action, ms, d(3, 2))
	b := NewBoard(api, []models.Task{task})

	err := b.Move(context.Background(), task.ID, d(3, 5))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))

	assert.Equal(t, []models.Task{task}, b.Tasks())
}

func TestMoveOntoExistingOccurrenceConflicts(t *testing.T) {
	api := &fakeAPI{}
	action, ms := uuid.New(), uuid.New()
	a := recurringTask(action, ms, d(3, 2))
	other := recurringTask(action, ms, d(3, 4))
	b := NewBoard(api, []models.Task{a, other})

	err := b.Move(context.Background(), a.ID, d(3, 4))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Empty(t, api.reschedules)
	assert.Len(t, b.Tasks(), 2)
}

func TestMoveToSameDateIsValidationError(t *testing.T) {
	task := oneTimeTask(uuid.New(), uuid.New(), d(3, 10))
	b := NewBoard(&fakeAPI{}, []models.Task{task})

	err := b.Move(context.Background(), task.ID, d(3, 10))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestUnknownTask(t *testing.T) {
	b := NewBoard(&fakeAPI{}, nil)
	err := b.Toggle(context.Background(), "onetime-"+uuid.NewString())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestInFlightTaskRejectsSecondMutation(t *testing.T) {
	api := &fakeAPI{release: make(chan struct{}), started: make(chan struct{})}
	task := oneTimeTask(uuid.New(), uuid.New(), d(3, 10))
	b := NewBoard(api, []models.Task{task})

	errc := make(chan error, 1)
	go func() { errc <- b.Move(context.Background(), task.ID, d(3, 11)) }()
	<-api.started

	assert.True(t, b.Busy(task.ID))
	got, _ := b.Task(task.ID)
	assert.Equal(t, d(3, 11), got.Date, "applied before the server answers")

	err := b.SetCompleted(context.Background(), task.ID, true)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	close(api.release)
	require.NoError(t, <-errc)
	assert.False(t, b.Busy(task.ID))
}

func TestCompleteRecordsProgress(t *testing.T) {
	api := &fakeAPI{progress: 42.5}
	action, ms := uuid.New(), uuid.New()
	task := recurringTask(action, ms, d(3, 2))
	b := NewBoard(api, []models.Task{task})

	require.NoError(t, b.Toggle(context.Background(), task.ID))

	got, _ := b.Task(task.ID)
	assert.True(t, got.Completed)
	p, ok := b.MilestoneProgress(ms)
	require.True(t, ok)
	assert.Equal(t, 42.5, p)

	require.Len(t, api.completes, 1)
	assert.True(t, api.completes[0].Completed)
	assert.Equal(t, d(3, 2), *api.completes[0].Date)
}

func TestFailedCompleteReverts(t *testing.T) {
	api := &fakeAPI{err: errors.New("timeout")}
	task := oneTimeTask(uuid.New(), uuid.New(), d(3, 10))
	b := NewBoard(api, []models.Task{task})

	err := b.SetCompleted(context.Background(), task.ID, true)
	assert.True(t, errors.Is(err, apperrors.ErrTransport))

	got, _ := b.Task(task.ID)
	assert.False(t, got.Completed)
	_, ok := b.MilestoneProgress(task.MilestoneID)
	assert.False(t, ok)
}

func TestTasksAreSorted(t *testing.T) {
	ms := uuid.New()
	late := oneTimeTask(uuid.New(), ms, d(3, 20))
	early := recurringTask(uuid.New(), ms, d(3, 1))
	b := NewBoard(&fakeAPI{}, []models.Task{late, early})

	tasks := b.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, early.ID, tasks[0].ID)
	assert.Equal(t, late.ID, tasks[1].ID)
}
