package agenda

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/status"
)

// TaskIDProperty is the private extended property carrying the task id.
const TaskIDProperty = "cloudtodo_task_id"

// EventDuration is the length of every mirrored event.
const EventDuration = 30 * time.Minute

// Calendar colour ids per effective status.
const (
	ColorPending   = "9"  // blueberry
	ColorCompleted = "2"  // sage
	ColorExpired   = "11" // tomato
)

// EventFor converts a task into the event mirroring it. Tasks without a
// usable deadline (missing, unparseable or the epoch) have no event.
func EventFor(t model.Task, now time.Time) (*calendar.Event, bool) {
	deadline, ok := t.Deadline.Time()
	if !ok || deadline.UnixMilli() == 0 {
		return nil, false
	}
	st := status.Of(t, now)

	summary := t.Title
	if summary == "" {
		summary = t.Description
	}
	if p := prefix(st); p != "" {
		summary = fmt.Sprintf("%s %s", p, summary)
	}

	var desc strings.Builder
	if t.Title != "" && t.Description != "" && t.Description != t.Title {
		desc.WriteString(t.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Status: %s\n", st)
	if created, ok := t.CreatedAt.Time(); ok {
		fmt.Fprintf(&desc, "Created: %s\n", created.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&desc, "Task: %s\n", t.TaskID)

	return &calendar.Event{
		Summary:     summary,
		Description: desc.String(),
		ColorId:     colorFor(st),
		Start: &calendar.EventDateTime{
			DateTime: deadline.UTC().Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: deadline.Add(EventDuration).UTC().Format(time.RFC3339),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: t.TaskID},
		},
	}, true
}

func prefix(st model.Status) string {
	switch st {
	case model.Completed:
		return "✓"
	case model.Expired:
		return "!"
	}
	return ""
}

func colorFor(st model.Status) string {
	switch st {
	case model.Completed:
		return ColorCompleted
	case model.Expired:
		return ColorExpired
	}
	return ColorPending
}

// Diff returns a patch carrying the fields of target that differ from
// existing, or nil when the event is already up to date.
func Diff(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if !sameInstant(existing.Start, target.Start) || !sameInstant(existing.End, target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}
	if taskIDOf(existing) != taskIDOf(target) {
		patch.ExtendedProperties = target.ExtendedProperties
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

// sameInstant compares event times by instant; Google echoes them back in
// the calendar's zone rather than UTC.
func sameInstant(a, b *calendar.EventDateTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	at, err := time.Parse(time.RFC3339, a.DateTime)
	if err != nil {
		return false
	}
	bt, err := time.Parse(time.RFC3339, b.DateTime)
	if err != nil {
		return false
	}
	return at.Equal(bt)
}

func taskIDOf(e *calendar.Event) string {
	if e.ExtendedProperties == nil {
		return ""
	}
	return e.ExtendedProperties.Private[TaskIDProperty]
}
