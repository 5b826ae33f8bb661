package client

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/arnold/milestones-api/internal/apperrors"
	"github.com/arnold/milestones-api/internal/engine"
	"github.com/arnold/milestones-api/internal/models"
)

// Board is a client-side task list. Mutations are applied locally first,
// sent to the server, and reverted if the request fails. A task with a
// request in flight rejects further mutations with a Conflict error.
type Board struct {
	api TaskAPI

	mu       sync.Mutex
	tasks    map[string]models.Task
	inFlight map[string]bool
	progress map[uuid.UUID]float64
}

func NewBoard(api TaskAPI, tasks []models.Task) *Board {
	b := &Board{
		api:      api,
		tasks:    make(map[string]models.Task, len(tasks)),
		inFlight: make(map[string]bool),
		progress: make(map[uuid.UUID]float64),
	}
	for _, t := range tasks {
		b.tasks[t.ID] = t
	}
	return b
}

// Tasks returns a sorted snapshot of the board.
func (b *Board) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	engine.SortTasks(out)
	return out
}

func (b *Board) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	return t, ok
}

// MilestoneProgress is the last progress the server reported for a milestone
// after a completion.
func (b *Board) MilestoneProgress(id uuid.UUID) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.progress[id]
	return p, ok
}

// Busy reports whether a request for the task is in flight.
func (b *Board) Busy(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight[id]
}

// SetCompleted marks a task done or not done.
func (b *Board) SetCompleted(ctx context.Context, id string, completed bool) error {
	return b.run(ctx, &completeCommand{id: id, completed: completed})
}

// Toggle flips a task's completion.
func (b *Board) Toggle(ctx context.Context, id string) error {
	t, ok := b.Task(id)
	if !ok {
		return apperrors.NotFound("task %s not found", id)
	}
	return b.SetCompleted(ctx, id, !t.Completed)
}

// Move drags a task to another date. A recurring task changes id since its
// id carries the date.
func (b *Board) Move(ctx context.Context, id string, newDate models.Date) error {
	return b.run(ctx, &rescheduleCommand{id: id, newDate: newDate})
}

// command is one optimistic mutation. apply and revert run under the board
// lock; send does not.
type command interface {
	keys() []string
	apply(b *Board) error
	send(ctx context.Context, api TaskAPI) error
	revert(b *Board)
	done(b *Board)
}

func (b *Board) run(ctx context.Context, cmd command) error {
	b.mu.Lock()
	if err := cmd.apply(b); err != nil {
		b.mu.Unlock()
		return err
	}
	keys := cmd.keys()
	for _, k := range keys {
		b.inFlight[k] = true
	}
	b.mu.Unlock()

	err := cmd.send(ctx, b.api)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.inFlight, k)
	}
	if err != nil {
		cmd.revert(b)
		if apperrors.KindOf(err) != apperrors.KindTransport {
			err = apperrors.Transport(err, "")
		}
		return err
	}
	cmd.done(b)
	return nil
}

// lookup fetches a task that is free to mutate. Callers hold the lock.
func (b *Board) lookup(id string) (models.Task, error) {
	t, ok := b.tasks[id]
	if !ok {
		return t, apperrors.NotFound("task %s not found", id)
	}
	if b.inFlight[id] {
		return t, apperrors.Conflict("task %s has a request in flight", id)
	}
	return t, nil
}

type completeCommand struct {
	id        string
	completed bool

	prev models.Task
	resp models.CompleteTaskResponse
}

func (c *completeCommand) keys() []string { return []string{c.id} }

func (c *completeCommand) apply(b *Board) error {
	t, err := b.lookup(c.id)
	if err != nil {
		return err
	}
	c.prev = t
	t.Completed = c.completed
	b.tasks[c.id] = t
	return nil
}

func (c *completeCommand) send(ctx context.Context, api TaskAPI) error {
	req := models.CompleteTaskRequest{
		Type:      c.prev.Type,
		Completed: c.completed,
		LogID:     c.prev.LogID,
	}
	if c.prev.Type == models.TaskRecurring {
		d := c.prev.Date
		req.Date = &d
	}
	resp, err := api.CompleteTask(ctx, c.id, req)
	c.resp = resp
	return err
}

func (c *completeCommand) revert(b *Board) { b.tasks[c.id] = c.prev }

func (c *completeCommand) done(b *Board) {
	b.progress[c.prev.MilestoneID] = c.resp.MilestoneProgress
}

type rescheduleCommand struct {
	id      string
	newDate models.Date

	prev  models.Task
	newID string
}

func (c *rescheduleCommand) keys() []string {
	if c.newID == c.id {
		return []string{c.id}
	}
	return []string{c.id, c.newID}
}

func (c *rescheduleCommand) apply(b *Board) error {
	t, err := b.lookup(c.id)
	if err != nil {
		return err
	}
	if t.Date.Equal(c.newDate) {
		return apperrors.Validation("task %s is already on %s", c.id, c.newDate)
	}
	c.prev = t
	c.newID = c.id
	if t.Type == models.TaskRecurring {
		c.newID = models.RecurringTaskID(t.OriginalID, c.newDate)
		if _, taken := b.tasks[c.newID]; taken {
			return apperrors.Conflict("%q already occurs on %s", t.Title, c.newDate)
		}
	}

	delete(b.tasks, c.id)
	t.ID = c.newID
	t.Date = c.newDate
	b.tasks[c.newID] = t
	return nil
}

func (c *rescheduleCommand) send(ctx context.Context, api TaskAPI) error {
	old := c.prev.Date
	newDate := c.newDate
	return api.RescheduleTask(ctx, c.id, models.RescheduleTaskRequest{
		Type:    c.prev.Type,
		OldDate: &old,
		NewDate: &newDate,
		LogID:   c.prev.LogID,
	})
}

func (c *rescheduleCommand) revert(b *Board) {
	delete(b.tasks, c.newID)
	b.tasks[c.id] = c.prev
}

func (c *rescheduleCommand) done(*Board) {}
