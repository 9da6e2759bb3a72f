// Package todoapitest runs an in-memory stand-in for the task API.
package todoapitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
	"github.com/harrisonrobin/cloudtodo/pkg/timestamp"
)

// Envelope selects how successful responses are wrapped.
type Envelope int

const (
	// Plain answers with the JSON payload itself.
	Plain Envelope = iota
	// Gateway wraps the payload as {"statusCode":..,"body":"<json string>"}.
	Gateway
	// GatewayObject wraps the payload as {"statusCode":..,"body":<json>}.
	GatewayObject
	// Stringified answers with the payload encoded as a JSON string.
	Stringified
)

// Request is a request the server has seen.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

// Server is a fake task API. Tasks are kept in creation order.
type Server struct {
	*httptest.Server

	Token    string
	Envelope Envelope
	Now      func() time.Time

	mu       sync.Mutex
	tasks    []model.Task
	requests []Request
}

// NewServer starts a server that accepts "Bearer <token>".
func NewServer(token string) *Server {
	s := &Server{Token: token, Now: time.Now}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.authorize)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.list)
		r.Post("/", s.create)
		r.Put("/{taskId}", s.update)
		r.Delete("/{taskId}", s.remove)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Seed replaces the stored tasks.
func (s *Server) Seed(tasks ...model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]model.Task(nil), tasks...)
}

// Tasks returns a copy of the stored tasks.
func (s *Server) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Task(nil), s.tasks...)
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-Id"),
			Body:          body,
		})
		s.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	tasks := s.Tasks()
	if tasks == nil {
		tasks = []model.Task{}
	}
	s.respond(w, http.StatusOK, tasks)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Description == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Could not create task"})
		return
	}

	task := model.Task{
		TaskID:      uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Deadline:    timestamp.Millis(req.Deadline),
		CreatedAt:   timestamp.Millis(s.Now().UnixMilli()),
		Status:      model.Pending,
	}
	if req.Deadline > 0 {
		task.Date = time.UnixMilli(req.Deadline).Format("2006-01-02")
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.respond(w, http.StatusCreated, task)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid body"})
		return
	}

	id := chi.URLParam(r, "taskId")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].TaskID != id {
			continue
		}
		t := &s.tasks[i]
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		if patch.Deadline != nil {
			t.Deadline = timestamp.Millis(*patch.Deadline)
		}
		s.respondLocked(w, http.StatusOK, *t)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Task not found"})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "taskId")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].TaskID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Task not found"})
}

func (s *Server) respond(w http.ResponseWriter, code int, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondLocked(w, code, v)
}

func (s *Server) respondLocked(w http.ResponseWriter, code int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}
	switch s.Envelope {
	case Gateway:
		writeJSON(w, code, map[string]any{"statusCode": code, "body": string(payload)})
	case GatewayObject:
		writeJSON(w, code, map[string]any{"statusCode": code, "body": json.RawMessage(payload)})
	case Stringified:
		writeJSON(w, code, string(payload))
	default:
		writeJSON(w, code, json.RawMessage(payload))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
