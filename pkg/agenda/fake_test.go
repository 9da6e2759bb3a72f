package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeCalendar serves the Calendar API endpoints the sync pass uses.
type fakeCalendar struct {
	*httptest.Server

	mu      sync.Mutex
	events  map[string]*calendar.Event
	nextID  int
	calls   []string
	failIns bool
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *calendar.Service) {
	t.Helper()
	f := &fakeCalendar{events: make(map[string]*calendar.Event)}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.calls = append(f.calls, r.Method)
			f.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/users/me/calendarList", f.calendarList)
	r.Route("/calendars/{calendarID}/events", func(r chi.Router) {
		r.Get("/", f.list)
		r.Post("/", f.insert)
		r.Get("/{eventID}", f.get)
		r.Patch("/{eventID}", f.patch)
		r.Delete("/{eventID}", f.delete)
	})
	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(f.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(f.Client()),
	)
	require.NoError(t, err)
	return f, srv
}

func (f *fakeCalendar) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.calls {
		if m == method {
			n++
		}
	}
	return n
}

func (f *fakeCalendar) resetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeCalendar) put(e *calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.Id] = e
}

func (f *fakeCalendar) snapshot() []*calendar.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*calendar.Event, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{"code": 404, "message": "Not Found"},
	})
}

func (f *fakeCalendar) calendarList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, calendar.CalendarList{Items: []*calendar.CalendarListEntry{
		{Id: "primary-id", Summary: "me@example.com"},
		{Id: "tasks-id", Summary: "Tasks"},
	}})
}

func (f *fakeCalendar) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []*calendar.Event
	for _, e := range f.events {
		if matchesProperties(e, r.URL.Query()["privateExtendedProperty"]) {
			items = append(items, e)
		}
	}
	writeJSON(w, http.StatusOK, calendar.Events{Items: items})
}

func matchesProperties(e *calendar.Event, filters []string) bool {
	for _, filter := range filters {
		key, value, _ := strings.Cut(filter, "=")
		if e.ExtendedProperties == nil || e.ExtendedProperties.Private[key] != value {
			return false
		}
	}
	return true
}

func (f *fakeCalendar) insert(w http.ResponseWriter, r *http.Request) {
	if f.failIns {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{"code": 400, "message": "invalid event"},
		})
		return
	}
	var e calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.nextID++
	e.Id = fmt.Sprintf("evt%d", f.nextID)
	f.events[e.Id] = &e
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, &e)
}

func (f *fakeCalendar) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	e, ok := f.events[chi.URLParam(r, "eventID")]
	f.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (f *fakeCalendar) patch(w http.ResponseWriter, r *http.Request) {
	var p calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[chi.URLParam(r, "eventID")]
	if !ok {
		notFound(w)
		return
	}
	if p.Summary != "" {
		e.Summary = p.Summary
	}
	if p.Description != "" {
		e.Description = p.Description
	}
	if p.ColorId != "" {
		e.ColorId = p.ColorId
	}
	if p.Start != nil {
		e.Start = p.Start
	}
	if p.End != nil {
		e.End = p.End
	}
	if p.ExtendedProperties != nil {
		e.ExtendedProperties = p.ExtendedProperties
	}
	writeJSON(w, http.StatusOK, e)
}

func (f *fakeCalendar) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "eventID")
	if _, ok := f.events[id]; !ok {
		notFound(w)
		return
	}
	delete(f.events, id)
	w.WriteHeader(http.StatusNoContent)
}
