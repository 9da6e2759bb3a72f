// Package todoapi is the client for the hosted task API.
package todoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/cloudtodo/pkg/model"
)

const dateLabelLayout = "2006-01-02"

// Client talks to the task API on behalf of one session. It keeps no task
// state: every mutation has to be followed by List to observe its effect.
type Client struct {
	baseURL  string
	session  oauth2.TokenSource
	http     *http.Client
	log      *zap.Logger
	location *time.Location
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithLocation sets the zone date labels are interpreted in. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.location = loc }
}

// NewClient creates a client for the API at baseURL, authenticating every
// request with a token from session.
func NewClient(baseURL string, session oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		session:  session,
		http:     http.DefaultClient,
		log:      zap.NewNop(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.location == nil {
		c.location = time.Local
	}
	return c
}

// List fetches all tasks of the signed in user in server order. A payload
// that is not a task list is not discarded: the error is a
// *MalformedResponseError carrying the payload unparsed, and nothing about
// the client's state changes, so the caller can keep its previous list.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	payload, err := c.do(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	return decodeTasks(payload)
}

// Create adds a task. dateLabel is a calendar date (2006-01-02) whose local
// midnight becomes the deadline; an empty label sends a zero deadline.
func (c *Client) Create(ctx context.Context, description, dateLabel string) (*model.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	deadline, err := c.DeadlineFor(dateLabel)
	if err != nil {
		return nil, err
	}

	req := model.CreateRequest{
		Title:       description,
		Description: description,
		Deadline:    deadline,
	}
	payload, err := c.do(ctx, http.MethodPost, "/tasks", req)
	if err != nil {
		return nil, err
	}

	var task model.Task
	if len(payload) == 0 || string(payload) == "null" {
		return &task, nil
	}
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, &MalformedResponseError{Payload: payload, Err: err}
	}
	return &task, nil
}

// DeadlineFor converts a date label into the epoch milliseconds sent as a
// deadline.
func (c *Client) DeadlineFor(dateLabel string) (int64, error) {
	dateLabel = strings.TrimSpace(dateLabel)
	if dateLabel == "" {
		return 0, nil
	}
	if t, err := time.ParseInLocation(dateLabelLayout, dateLabel, c.location); err == nil {
		return t.UnixMilli(), nil
	}
	t, err := dateparse.ParseIn(dateLabel, c.location)
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable date %q", ErrValidation, dateLabel)
	}
	return t.UnixMilli(), nil
}

// UpdateStatus sets the stored status of a task.
func (c *Client) UpdateStatus(ctx context.Context, taskID string, status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return c.Update(ctx, taskID, model.TaskPatch{Status: &status})
}

// Update applies a partial update to a task.
func (c *Client) Update(ctx context.Context, taskID string, patch model.TaskPatch) error {
	if taskID == "" {
		return fmt.Errorf("%w: task id is required", ErrValidation)
	}
	if patch.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	_, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), patch)
	return err
}

// Remove deletes a task.
func (c *Client) Remove(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%w: task id is required", ErrValidation)
	}
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(taskID), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	tok, err := c.session.Token()
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, &AuthError{Err: fmt.Errorf("session has no token")}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	requestID := uuid.NewString()
	tok.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("task api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}

	c.log.Debug("task api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(raw)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		terr := &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
		if resp.StatusCode == http.StatusUnauthorized {
			terr.Err = ErrAuth
		}
		return nil, terr
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	payload, ok := Unwrap(raw)
	if !ok {
		c.log.Warn("task api response was not valid JSON, passing it through",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID))
	}
	return payload, nil
}

// decodeTasks accepts a list of tasks, a single task or null.
func decodeTasks(payload json.RawMessage) ([]model.Task, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []model.Task{}, nil
	}

	switch trimmed[0] {
	case '[':
		var tasks []model.Task
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, &MalformedResponseError{Payload: trimmed, Err: err}
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		return tasks, nil
	case '{':
		var task model.Task
		if err := json.Unmarshal(trimmed, &task); err != nil {
			return nil, &MalformedResponseError{Payload: trimmed, Err: err}
		}
		return []model.Task{task}, nil
	}
	return nil, &MalformedResponseError{Payload: trimmed, Err: fmt.Errorf("expected a task list")}
}
