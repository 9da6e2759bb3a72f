package agenda

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// Calendar is the slice of the Calendar API the sync pass needs.
type Calendar interface {
	Get(ctx context.Context, eventID string) (*calendar.Event, error)
	FindByTask(ctx context.Context, taskID string) (*calendar.Event, error)
	Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
	Patch(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, eventID string) error
}

// GoogleCalendar is a Calendar backed by one Google calendar.
type GoogleCalendar struct {
	srv        *calendar.Service
	calendarID string
}

func NewGoogleCalendar(srv *calendar.Service, calendarID string) *GoogleCalendar {
	return &GoogleCalendar{srv: srv, calendarID: calendarID}
}

// OpenCalendar resolves a calendar by its display name. "primary" always
// resolves to the user's primary calendar.
func OpenCalendar(ctx context.Context, srv *calendar.Service, name string) (*GoogleCalendar, error) {
	if name == "primary" {
		return NewGoogleCalendar(srv, "primary"), nil
	}
	var calendarID string
	err := srv.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			if item.Summary == name {
				calendarID = item.Id
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if calendarID == "" {
		return nil, fmt.Errorf("calendar %q not found", name)
	}
	return NewGoogleCalendar(srv, calendarID), nil
}

var errStopPaging = errors.New("stop paging")

func (c *GoogleCalendar) ID() string {
	return c.calendarID
}

func (c *GoogleCalendar) Get(ctx context.Context, eventID string) (*calendar.Event, error) {
	return c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
}

// FindByTask searches for the event tagged with taskID, or returns nil.
func (c *GoogleCalendar) FindByTask(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", TaskIDProperty, taskID)).
		ShowDeleted(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func (c *GoogleCalendar) Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
}

// Patch performs a partial update on an event.
func (c *GoogleCalendar) Patch(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *GoogleCalendar) Delete(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// isGone reports whether err says the event no longer exists.
func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
