package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/superapp/apiclient/auth/store"
	"github.com/superapp/apiclient/auth/transport"
	"github.com/superapp/apiclient/internal/logging"
	"github.com/superapp/apiclient/internal/redact"
)

// DefaultBaseURL is the local development backend.
const DefaultBaseURL = "http://127.0.0.1:8000/api"

const (
	registerPath = "/auth/register/"
	loginPath    = "/auth/login/"
	mePath       = "/auth/me/"
	logoutPath   = "/auth/logout/"
	sendOTPPath  = "/auth/send-otp/"
	verifyPath   = "/auth/verify-otp/"
	// RefreshPath is the token refresh endpoint relative to the base URL.
	RefreshPath = "/auth/token/refresh/"
)

// Client calls the authentication endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	store   *store.Store
	logger  *slog.Logger
}

type Option func(*Client)

// WithBaseURL sets base URL, e.g. https://shop.example.com/api
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client; httpClient is expected to use the gateway transport
// bound to tokens.
func New(httpClient *http.Client, tokens *store.Store, options ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		tokens = store.New(nil)
	}
	ret := &Client{baseURL: DefaultBaseURL, http: httpClient, store: tokens, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the token store the client saves into.
func (c *Client) Store() *store.Store {
	return c.store
}

// Register creates an account and stores its credentials.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if req.Username == "" {
		req.Username = req.Email
	}
	result := &AuthResult{}
	if err := c.do(transport.Public(ctx), http.MethodPost, registerPath, req, result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	logging.From(ctx, c.logger).InfoContext(ctx, "registered", slog.String("email", redact.Email(req.Email)))
	if err := c.save(ctx, result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return result, nil
}

// Login exchanges an email/username and password for credentials.
func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	result := &AuthResult{}
	if err := c.do(transport.Public(ctx), http.MethodPost, loginPath, loginRequest{Identifier: identifier, Password: password}, result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	logging.From(ctx, c.logger).InfoContext(ctx, "logged_in", slog.String("identifier", redactIdentifier(identifier)))
	if err := c.save(ctx, result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return result, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	user := &User{}
	if err := c.do(ctx, http.MethodGet, mePath, nil, user); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return user, nil
}

// Logout revokes the refresh token and clears local credentials whatever the
// server answers. Without a refresh token it does nothing.
func (c *Client) Logout(ctx context.Context) error {
	token := c.store.Load(ctx)
	if token.RefreshToken == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, logoutPath, logoutRequest{Refresh: token.RefreshToken}, nil)
	if err != nil {
		err = fmt.Errorf("logout: %w", err)
	}
	if cErr := c.store.Clear(ctx); cErr != nil {
		err = errors.Join(err, fmt.Errorf("logout: %w", cErr))
	}
	logging.From(ctx, c.logger).InfoContext(ctx, "logged_out")
	return err
}

// SendOTP asks the backend to text a one-time code to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	if err := c.do(transport.Public(ctx), http.MethodPost, sendOTPPath, otpRequest{Phone: phone}, nil); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	logging.From(ctx, c.logger).InfoContext(ctx, "otp_sent", slog.String("phone", redact.Phone(phone)))
	return nil
}

// VerifyOTP checks code for phone and stores any credentials returned.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*AuthResult, error) {
	result := &AuthResult{}
	if err := c.do(ctx, http.MethodPost, verifyPath, otpRequest{Phone: phone, OTP: code}, result); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if err := c.save(ctx, result); err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	return result, nil
}

func (c *Client) save(ctx context.Context, result *AuthResult) error {
	if result.Access == "" && result.Refresh == "" {
		return nil
	}
	return c.store.Save(ctx, &oauth2.Token{AccessToken: result.Access, RefreshToken: result.Refresh, TokenType: "Bearer"})
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func redactIdentifier(identifier string) string {
	if strings.Contains(identifier, "@") {
		return redact.Email(identifier)
	}
	return redact.Phone(identifier)
}
