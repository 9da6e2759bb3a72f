package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/cloudtodo/pkg/index"
	"github.com/harrisonrobin/cloudtodo/pkg/model"
)

// Report counts what one sync pass did.
type Report struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Skipped   int
}

func (r Report) String() string {
	return fmt.Sprintf("%d created, %d updated, %d unchanged, %d deleted, %d without deadline",
		r.Created, r.Updated, r.Unchanged, r.Deleted, r.Skipped)
}

// Syncer mirrors a task list into a calendar.
type Syncer struct {
	cal Calendar
	idx *index.EventIndex
	log *zap.Logger
}

func NewSyncer(cal Calendar, idx *index.EventIndex, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{cal: cal, idx: idx, log: log}
}

// Sync makes the calendar match tasks as of now. A failure on one task does
// not stop the others; all failures are returned joined. The index is saved
// in every case.
func (s *Syncer) Sync(ctx context.Context, tasks []model.Task, now time.Time) (Report, error) {
	var (
		report Report
		errs   []error
	)
	seen := make(map[string]bool, len(tasks))

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		target, ok := EventFor(t, now)
		if !ok {
			report.Skipped++
			continue
		}
		seen[t.TaskID] = true
		if err := s.syncOne(ctx, t.TaskID, target, &report); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.TaskID, err))
		}
	}

	for _, taskID := range s.idx.TaskIDs() {
		if seen[taskID] || ctx.Err() != nil {
			continue
		}
		eventID := s.idx.Get(taskID)
		if err := s.cal.Delete(ctx, eventID); err != nil && !isGone(err) {
			errs = append(errs, fmt.Errorf("delete event for task %s: %w", taskID, err))
			continue
		}
		s.log.Debug("deleted event", zap.String("task_id", taskID), zap.String("event_id", eventID))
		s.idx.Remove(taskID)
		report.Deleted++
	}

	if err := s.idx.Save(); err != nil {
		errs = append(errs, fmt.Errorf("save event index: %w", err))
	}
	return report, errors.Join(errs...)
}

func (s *Syncer) syncOne(ctx context.Context, taskID string, target *calendar.Event, report *Report) error {
	existing, err := s.lookup(ctx, taskID)
	if err != nil {
		return fmt.Errorf("error searching for event: %w", err)
	}

	if existing == nil {
		created, err := s.cal.Insert(ctx, target)
		if err != nil {
			return err
		}
		s.idx.Set(taskID, created.Id)
		report.Created++
		s.log.Debug("created event", zap.String("task_id", taskID), zap.String("event_id", created.Id))
		return nil
	}

	s.idx.Set(taskID, existing.Id)
	patch := Diff(existing, target)
	if patch == nil {
		report.Unchanged++
		return nil
	}
	if _, err := s.cal.Patch(ctx, existing.Id, patch); err != nil {
		return err
	}
	report.Updated++
	s.log.Debug("patched event", zap.String("task_id", taskID), zap.String("event_id", existing.Id))
	return nil
}

// lookup tries the local index first and falls back to a property search.
func (s *Syncer) lookup(ctx context.Context, taskID string) (*calendar.Event, error) {
	if eventID := s.idx.Get(taskID); eventID != "" {
		event, err := s.cal.Get(ctx, eventID)
		switch {
		case err == nil && event.Status != "cancelled":
			return event, nil
		case err != nil && !isGone(err):
			return nil, err
		}
		s.idx.Remove(taskID)
	}
	return s.cal.FindByTask(ctx, taskID)
}
