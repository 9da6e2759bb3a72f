// Package taskstore holds the most recently fetched task list and keeps the
// refetch-after-every-change loop in one place.
package taskstore

import (
	"sync"
	"time"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
)

// Store keeps exactly one fetch result. It never merges: a committed list
// replaces the previous one wholesale.
//
// Fetches are ordered by when they were issued. A fetch that started before
// an already committed one is dropped, so a slow early refetch cannot
// overwrite a newer list.
type Store struct {
	mu        sync.Mutex
	tasks     []model.Task
	fetchedAt time.Time
	issued    uint64
	committed uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Begin reserves a ticket for a fetch that is about to start.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit stores tasks fetched under ticket. It reports false, and keeps the
// current list, when a later ticket has already been committed.
func (s *Store) Commit(ticket uint64, tasks []model.Task, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket <= s.committed {
		return false
	}
	s.committed = ticket
	s.tasks = append([]model.Task(nil), tasks...)
	s.fetchedAt = at
	return true
}

// Snapshot returns a copy of the current list and when it was fetched.
func (s *Store) Snapshot() ([]model.Task, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...), s.fetchedAt
}

// Lookup finds a task in the current list.
func (s *Store) Lookup(taskID string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return model.Task{}, false
}
