package model

import (
	"github.com/harrisonrobin/cloudtodo/pkg/timestamp"
)

type Status string

const (
	Pending   Status = "Pending"
	Completed Status = "Completed"
	Expired   Status = "Expired"
)

// Valid reports whether s is one of the statuses the API accepts.
func (s Status) Valid() bool {
	switch s {
	case Pending, Completed, Expired:
		return true
	}
	return false
}

// Task is a task as returned by the task API. The server owns it; the client
// never patches a fetched task in place.
//
// encoding/json matches keys case-insensitively, so the older backend's
// TaskId/Description/Status keys decode into the same fields.
type Task struct {
	TaskID      string          `json:"taskId"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description"`
	Date        string          `json:"date,omitempty"`
	Deadline    timestamp.Value `json:"deadline"`
	CreatedAt   timestamp.Value `json:"createdAt"`
	Status      Status          `json:"status"`
}

// CreateRequest is the body of POST /tasks.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    int64  `json:"deadline"`
}

// TaskPatch is the body of PUT /tasks/{taskId}. Nil fields are left alone.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Deadline    *int64  `json:"deadline,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Deadline == nil
}
