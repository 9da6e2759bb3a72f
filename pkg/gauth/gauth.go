package gauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// ClientSecretsFile is the Google "Desktop app" credentials downloaded from
	// the Cloud Console, placed in the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the Google token (access + refresh) next to it.
	TokenFile = "google_token.json"

	// LocalhostAuthPort receives the OAuth redirect.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// Scopes needed to find the target calendar and manage its events.
var Scopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// ErrNotAuthorized means no cached Google token exists yet.
var ErrNotAuthorized = errors.New("google calendar not authorized; run `cloudtodo agenda auth`")

// Flow runs the installed-app authorization flow and caches its token.
type Flow struct {
	Dir  string
	Port string
	Out  io.Writer
	Log  *zap.Logger

	// OpenURL presents the consent URL to the user. Defaults to printing it.
	OpenURL func(authURL string)
}

func NewFlow(dir string, out io.Writer, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{Dir: dir, Port: LocalhostAuthPort, Out: out, Log: log}
}

// Config reads the client secrets file for the given scopes.
func (f *Flow) Config(scopes []string) (*oauth2.Config, error) {
	path := filepath.Join(f.Dir, ClientSecretsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = f.redirectURL(cfg.RedirectURL)
	return cfg, nil
}

// redirectURL pins localhost and out-of-band redirects to the callback port.
func (f *Flow) redirectURL(configured string) string {
	fallback := fmt.Sprintf("http://localhost:%s/oauth2callback", f.Port)
	if configured == "" || configured == "urn:ietf:wg:oauth:2.0:oob" {
		return fallback
	}
	u, err := url.Parse(configured)
	if err != nil {
		f.Log.Warn("could not parse redirect URL, using default", zap.String("redirect_url", configured), zap.Error(err))
		return fallback
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		f.Log.Warn("redirect URL is not a localhost callback", zap.String("redirect_url", configured))
		return configured
	}
	if u.Port() != f.Port {
		u.Host = net.JoinHostPort(u.Hostname(), f.Port)
	}
	return u.String()
}

// Authorize runs the browser consent flow and caches the resulting token.
func (f *Flow) Authorize(ctx context.Context, scopes []string) (*oauth2.Token, error) {
	cfg, err := f.Config(scopes)
	if err != nil {
		return nil, err
	}
	tok, err := f.tokenFromWeb(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get token from web: %w", err)
	}
	if err := f.saveToken(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns an HTTP client authorized with the cached token. Refreshed
// tokens are written back to the cache.
func (f *Flow) Client(ctx context.Context, scopes []string) (*http.Client, error) {
	cfg, err := f.Config(scopes)
	if err != nil {
		return nil, err
	}
	tok, err := f.loadToken()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	src := &savingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		last: tok,
		save: f.saveToken,
		log:  f.Log,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// CalendarService builds an authorized Calendar API client.
func (f *Flow) CalendarService(ctx context.Context) (*calendar.Service, error) {
	client, err := f.Client(ctx, Scopes)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google Calendar service: %w", err)
	}
	return srv, nil
}

func (f *Flow) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return nil, err
	}
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", f.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", f.Port, err)
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath(redirect), func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			sendErr(errCh, errors.New("oauth state mismatch"))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Authorization code not found", http.StatusBadRequest)
			sendErr(errCh, fmt.Errorf("authorization code not found in redirect URL: %s", q.Get("error")))
			return
		}
		fmt.Fprint(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
	})
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errCh, fmt.Errorf("HTTP server error: %w", err))
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	f.open(authURL)
	f.Log.Debug("waiting for authorization code", zap.String("redirect_url", cfg.RedirectURL))

	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization timed out, please try again: %w", ctx.Err())
	}
}

func (f *Flow) open(authURL string) {
	if f.OpenURL != nil {
		f.OpenURL(authURL)
		return
	}
	out := f.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Open the following URL in your browser to authorize cloudtodo:\n%s\n", authURL)
}

func (f *Flow) tokenPath() string {
	return filepath.Join(f.Dir, TokenFile)
}

func (f *Flow) loadToken() (*oauth2.Token, error) {
	file, err := os.Open(f.tokenPath())
	if err != nil {
		return nil, err
	}
	defer file.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(file).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", f.tokenPath(), err)
	}
	return tok, nil
}

func (f *Flow) saveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(f.Dir, 0700); err != nil {
		return fmt.Errorf("could not create token directory %s: %w", f.Dir, err)
	}
	file, err := os.OpenFile(f.tokenPath(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", f.tokenPath(), err)
	}
	defer file.Close()
	f.Log.Debug("saved google token", zap.String("path", f.tokenPath()))
	return json.NewEncoder(file).Encode(tok)
}

// savingTokenSource persists the token whenever the underlying source
// hands out a different one.
type savingTokenSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error
	log  *zap.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := s.save(tok); err != nil {
			s.log.Warn("could not cache refreshed google token", zap.Error(err))
		}
		s.last = tok
	}
	return tok, nil
}

func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
