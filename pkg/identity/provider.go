// Package identity signs users in against a Cognito user pool and hands the
// resulting ID token to the task API client.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CognitoAPI is the part of the Cognito user pool API the provider uses.
type CognitoAPI interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Store persists the current session between runs.
type Store interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// Provider is the identity provider for one user pool app client.
type Provider struct {
	api      CognitoAPI
	clientID string
	store    Store
	log      *zap.Logger
	now      func() time.Time
}

// NewProvider wires a provider. A nil logger is replaced by a no-op one.
func NewProvider(api CognitoAPI, clientID string, store Store, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{api: api, clientID: clientID, store: store, log: log, now: time.Now}
}

// NewCognitoAPI builds a Cognito client for region. The user pool calls used
// here are unauthenticated, so no AWS credentials are needed.
func NewCognitoAPI(ctx context.Context, region string) (*cip.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return cip.NewFromConfig(cfg), nil
}

// SignUp registers a new user. attributes become user pool attributes
// (email is the usual one).
func (p *Provider) SignUp(ctx context.Context, username, password string, attributes map[string]string) error {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]types.AttributeType, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, types.AttributeType{Name: aws.String(k), Value: aws.String(attributes[k])})
	}

	_, err := p.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(p.clientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		UserAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}
	p.log.Info("signed up", zap.String("username", username))
	return nil
}

// ConfirmSignUp submits the verification code mailed to a new user.
func (p *Provider) ConfirmSignUp(ctx context.Context, username, code string) error {
	_, err := p.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(p.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return fmt.Errorf("confirm sign up failed: %w", err)
	}
	return nil
}

// Authenticate signs in with a password and stores the session.
func (p *Provider) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}
	if out.ChallengeName != "" {
		return nil, fmt.Errorf("sign in needs challenge %s, which is not supported", out.ChallengeName)
	}
	if out.AuthenticationResult == nil {
		return nil, errors.New("sign in returned no tokens")
	}

	s := p.sessionFrom(username, out.AuthenticationResult, "")
	if err := p.store.Save(s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	p.log.Info("signed in", zap.String("username", username), zap.Time("expiry", s.Expiry))
	return s, nil
}

// CurrentSession returns the stored session, refreshing its tokens when
// they have expired. ErrNoSession means the user has to sign in again.
func (p *Provider) CurrentSession(ctx context.Context) (*Session, error) {
	s, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	if s.Valid(p.now()) {
		return s, nil
	}
	if s.RefreshToken == "" {
		return nil, fmt.Errorf("session expired at %s: %w", s.Expiry.Format(time.RFC3339), ErrNoSession)
	}

	out, err := p.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(p.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": s.RefreshToken,
		},
	})
	if err != nil {
		p.log.Warn("token refresh failed", zap.String("username", s.Username), zap.Error(err))
		return nil, fmt.Errorf("session refresh failed: %v: %w", err, ErrNoSession)
	}
	if out.AuthenticationResult == nil {
		return nil, fmt.Errorf("session refresh returned no tokens: %w", ErrNoSession)
	}

	refreshed := p.sessionFrom(s.Username, out.AuthenticationResult, s.RefreshToken)
	if err := p.store.Save(refreshed); err != nil {
		p.log.Warn("failed to save refreshed session", zap.Error(err))
	}
	p.log.Debug("session refreshed", zap.String("username", s.Username), zap.Time("expiry", refreshed.Expiry))
	return refreshed, nil
}

// SignOut revokes the session's tokens and forgets it locally. Revocation is
// best effort; the local session is always removed.
func (p *Provider) SignOut(ctx context.Context) error {
	s, err := p.store.Load()
	if err != nil && !errors.Is(err, ErrNoSession) {
		p.log.Warn("could not read session before sign out", zap.Error(err))
	}
	if s != nil && s.AccessToken != "" {
		if _, err := p.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(s.AccessToken)}); err != nil {
			p.log.Warn("global sign out failed", zap.String("username", s.Username), zap.Error(err))
		}
	}
	return p.store.Clear()
}

// TokenSource adapts the provider to oauth2.TokenSource so a task API client
// can ask for a bearer token on every request. Tokens are reused until they
// expire.
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, sessionTokenSource{ctx: ctx, p: p})
}

type sessionTokenSource struct {
	ctx context.Context
	p   *Provider
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	sess, err := s.p.CurrentSession(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: sess.IDToken,
		TokenType:   "Bearer",
		Expiry:      sess.Expiry,
	}, nil
}

func (p *Provider) sessionFrom(username string, res *types.AuthenticationResultType, keepRefresh string) *Session {
	s := &Session{
		Username:     username,
		IDToken:      aws.ToString(res.IdToken),
		AccessToken:  aws.ToString(res.AccessToken),
		RefreshToken: aws.ToString(res.RefreshToken),
		Expiry:       p.now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}
	if s.RefreshToken == "" {
		s.RefreshToken = keepRefresh
	}
	return s
}
