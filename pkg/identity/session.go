package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no signed in user")

// Session is what the identity provider hands out on sign in. The ID token is
// the bearer credential the task API expects.
type Session struct {
	Username     string    `json:"username"`
	IDToken      string    `json:"id_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Valid reports whether the ID token is usable at now, keeping a small margin
// so a token does not expire mid-request.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.IDToken != "" && now.Add(expiryDelta).Before(s.Expiry)
}

const expiryDelta = 30 * time.Second

// SessionFile persists one session as JSON, readable by the owner only.
type SessionFile struct {
	Path string
}

// Load reads the stored session. A missing file is ErrNoSession.
func (f SessionFile) Load() (*Session, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	defer file.Close()

	var s Session
	if err := json.NewDecoder(file).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode session from %s: %w", f.Path, err)
	}
	if s.IDToken == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Save writes s, creating the directory if needed.
func (f SessionFile) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	file, err := os.OpenFile(f.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file for writing: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Clear removes the stored session.
func (f SessionFile) Clear() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
