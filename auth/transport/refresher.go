package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Refresher exchanges a refresh token for a new token pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

// EndpointRefresher posts {"refresh": "<token>"} to URL without any
// Authorization header and accepts either {"access","refresh"} or
// {"access_token","refresh_token"} in reply. A reply without a new refresh
// token keeps the old one (the store merges).
type EndpointRefresher struct {
	URL    string
	Client *http.Client
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access       string `json:"access"`
	Refresh      string `json:"refresh"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewEndpointRefresher creates a refresher; client must not be the
// authenticating transport.
func NewEndpointRefresher(URL string, client *http.Client) *EndpointRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &EndpointRefresher{URL: URL, Client: client}
}

func (e *EndpointRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	payload, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RefreshError{Status: resp.StatusCode, Body: string(data)}
	}
	var out refreshResponse
	if err = json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	token := &oauth2.Token{
		AccessToken:  firstNonEmpty(out.Access, out.AccessToken),
		RefreshToken: firstNonEmpty(out.Refresh, out.RefreshToken),
		TokenType:    "Bearer",
	}
	if token.AccessToken == "" {
		return nil, errors.New("refresh response has no access token")
	}
	if out.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return token, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
