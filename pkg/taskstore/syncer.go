package taskstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/status"
)

// TaskAPI is the remote task API as the syncer uses it.
type TaskAPI interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, description, dateLabel string) (*model.Task, error)
	UpdateStatus(ctx context.Context, taskID string, status model.Status) error
	Update(ctx context.Context, taskID string, patch model.TaskPatch) error
	Remove(ctx context.Context, taskID string) error
}

// Syncer runs every change against the API and then refetches, so the board
// it returns always reflects the server.
type Syncer struct {
	api   TaskAPI
	store *Store
	log   *zap.Logger
	now   func() time.Time
}

func NewSyncer(api TaskAPI, store *Store, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = NewStore()
	}
	return &Syncer{api: api, store: store, log: log, now: time.Now}
}

// Store exposes the syncer's store.
func (s *Syncer) Store() *Store {
	return s.store
}

// Refresh fetches the task list and returns it grouped by display status.
// If a newer refresh committed first, the newer list is returned.
func (s *Syncer) Refresh(ctx context.Context) (status.Board, error) {
	ticket := s.store.Begin()
	tasks, err := s.api.List(ctx)
	if err != nil {
		return status.Board{}, fmt.Errorf("fetching tasks: %w", err)
	}
	now := s.now()
	if !s.store.Commit(ticket, tasks, now) {
		s.log.Debug("dropped stale task list", zap.Uint64("ticket", ticket))
	}
	current, _ := s.store.Snapshot()
	return status.Group(current, now), nil
}

// Create adds a task and refetches.
func (s *Syncer) Create(ctx context.Context, description, dateLabel string) (status.Board, error) {
	created, err := s.api.Create(ctx, description, dateLabel)
	if err != nil {
		return status.Board{}, fmt.Errorf("creating task: %w", err)
	}
	s.log.Info("task created", zap.String("task_id", created.TaskID))
	return s.Refresh(ctx)
}

// SetStatus changes a task's stored status and refetches.
func (s *Syncer) SetStatus(ctx context.Context, taskID string, st model.Status) (status.Board, error) {
	if err := s.api.UpdateStatus(ctx, taskID, st); err != nil {
		return status.Board{}, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	s.log.Info("task status updated", zap.String("task_id", taskID), zap.String("status", string(st)))
	return s.Refresh(ctx)
}

// Toggle flips a task between Completed and Pending based on its stored
// status in the last fetched list, fetching first if the task is unknown.
func (s *Syncer) Toggle(ctx context.Context, taskID string) (status.Board, error) {
	t, ok := s.store.Lookup(taskID)
	if !ok {
		if _, err := s.Refresh(ctx); err != nil {
			return status.Board{}, err
		}
		if t, ok = s.store.Lookup(taskID); !ok {
			return status.Board{}, fmt.Errorf("task %s not found", taskID)
		}
	}
	return s.SetStatus(ctx, taskID, status.Toggle(t.Status))
}

// Edit applies a partial update and refetches.
func (s *Syncer) Edit(ctx context.Context, taskID string, patch model.TaskPatch) (status.Board, error) {
	if err := s.api.Update(ctx, taskID, patch); err != nil {
		return status.Board{}, fmt.Errorf("updating task %s: %w", taskID, err)
	}
	s.log.Info("task updated", zap.String("task_id", taskID))
	return s.Refresh(ctx)
}

// Remove deletes a task and refetches.
func (s *Syncer) Remove(ctx context.Context, taskID string) (status.Board, error) {
	if err := s.api.Remove(ctx, taskID); err != nil {
		return status.Board{}, fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	s.log.Info("task deleted", zap.String("task_id", taskID))
	return s.Refresh(ctx)
}
