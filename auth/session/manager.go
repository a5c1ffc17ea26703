// Package session tracks the signed-in user on top of the auth API.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/superapp/apiclient/auth/api"
)

// ErrNotJWT is returned by Claims when the access token is not a JWT.
var ErrNotJWT = errors.New("access token is not a JWT")

// ErrNoSession is returned by Claims when no access token is stored.
var ErrNoSession = errors.New("no session")

// Claims is the unverified view of the current access token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token expiry has passed at now.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

type Manager struct {
	client *api.Client
	logger *slog.Logger

	mu    sync.RWMutex
	user  *api.User
	ready bool
}

func New(client *api.Client, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ret := &Manager{client: client, logger: logger}
	client.Store().OnChange(ret.onTokens)
	return ret
}

// Restore loads the user for stored credentials. Any failure clears the
// credentials. The manager is ready afterwards either way.
func (m *Manager) Restore(ctx context.Context) (*api.User, error) {
	defer m.markReady()
	user, err := m.client.Me(ctx)
	if err != nil {
		if cErr := m.client.Store().Clear(ctx); cErr != nil {
			m.logger.WarnContext(ctx, "session_clear_failed", slog.String("err", cErr.Error()))
		}
		m.setUser(nil)
		return nil, err
	}
	m.setUser(user)
	return user, nil
}

// Login signs in and loads the profile. A failing profile call keeps the
// credentials and leaves the user unset.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*api.User, error) {
	if _, err := m.client.Login(ctx, identifier, password); err != nil {
		return nil, err
	}
	return m.loadUser(ctx), nil
}

func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	if _, err := m.client.Register(ctx, req); err != nil {
		return nil, err
	}
	return m.loadUser(ctx), nil
}

// VerifyOTP completes a phone sign-in.
func (m *Manager) VerifyOTP(ctx context.Context, phone, code string) (*api.User, error) {
	if _, err := m.client.VerifyOTP(ctx, phone, code); err != nil {
		return nil, err
	}
	return m.loadUser(ctx), nil
}

// Logout ends the session; server errors are logged, never returned.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		m.logger.WarnContext(ctx, "logout_failed", slog.String("err", err.Error()))
	}
	if err := m.client.Store().Clear(ctx); err != nil {
		m.logger.WarnContext(ctx, "session_clear_failed", slog.String("err", err.Error()))
	}
	m.setUser(nil)
}

func (m *Manager) User() *api.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Claims decodes the stored access token without verifying its signature.
func (m *Manager) Claims(ctx context.Context) (*Claims, error) {
	token := m.client.Store().Load(ctx)
	if token.AccessToken == "" {
		return nil, ErrNoSession
	}
	return ParseClaims(token.AccessToken)
}

// ParseClaims reads subject and timestamps from an unverified JWT.
func ParseClaims(accessToken string) (*Claims, error) {
	if strings.Count(accessToken, ".") != 2 {
		return nil, ErrNotJWT
	}
	registered := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, registered); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	ret := &Claims{Subject: registered.Subject}
	if registered.IssuedAt != nil {
		ret.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		ret.ExpiresAt = registered.ExpiresAt.Time
	}
	return ret, nil
}

func (m *Manager) loadUser(ctx context.Context) *api.User {
	user, err := m.client.Me(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "profile_load_failed", slog.String("err", err.Error()))
		user = nil
	}
	m.setUser(user)
	return user
}

// onTokens drops the user once credentials are gone, e.g. after a refresh
// was rejected.
func (m *Manager) onTokens(token *oauth2.Token) {
	if token.AccessToken != "" || token.RefreshToken != "" {
		return
	}
	m.setUser(nil)
}

func (m *Manager) setUser(user *api.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
}

func (m *Manager) markReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
}
