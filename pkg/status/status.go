// Package status derives the status a task is displayed with.
package status

import (
	"time"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/timestamp"
)

// Resolve returns the display status for a task. Completed and Expired are
// terminal and always win; anything else becomes Expired once a readable
// deadline lies strictly before now. The result is for display only and is
// never sent back to the server.
func Resolve(stored model.Status, deadline any, now time.Time) model.Status {
	switch stored {
	case model.Completed:
		return model.Completed
	case model.Expired:
		return model.Expired
	}
	if due, ok := timestamp.Normalize(deadline); ok && due.Before(now) {
		return model.Expired
	}
	return model.Pending
}

// Of resolves the display status of t.
func Of(t model.Task, now time.Time) model.Status {
	return Resolve(t.Status, t.Deadline, now)
}

// Toggle is the status a "mark complete / mark pending" action requests.
// Only a stored Pending becomes Completed; anything else goes back to Pending.
func Toggle(stored model.Status) model.Status {
	if stored == model.Pending {
		return model.Completed
	}
	return model.Pending
}

// Board holds tasks bucketed by display status, each bucket in server order.
type Board struct {
	Pending   []model.Task `json:"pending"`
	Completed []model.Task `json:"completed"`
	Expired   []model.Task `json:"expired"`
}

// Len is the number of tasks on the board.
func (b Board) Len() int {
	return len(b.Pending) + len(b.Completed) + len(b.Expired)
}

// Group buckets tasks by their display status at now.
func Group(tasks []model.Task, now time.Time) Board {
	var b Board
	for _, t := range tasks {
		switch Of(t, now) {
		case model.Completed:
			b.Completed = append(b.Completed, t)
		case model.Expired:
			b.Expired = append(b.Expired, t)
		default:
			b.Pending = append(b.Pending, t)
		}
	}
	return b
}
