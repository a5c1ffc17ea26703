package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/superapp/apiclient/auth/api"
	"github.com/superapp/apiclient/auth/session"
	"github.com/superapp/apiclient/auth/store"
	"github.com/superapp/apiclient/auth/transport"
	"github.com/superapp/apiclient/config"
	"github.com/superapp/apiclient/internal/logging"
)

// Client bundles every layer sharing one token store.
type Client struct {
	Store     *store.Store
	Transport *transport.RoundTripper
	// HTTP authenticates and refreshes on behalf of any caller.
	HTTP    *http.Client
	API     *api.Client
	Session *session.Manager
	Logger  *slog.Logger

	closers []func() error
}

// New builds a client from cfg. Backend connections opened for the token
// slots are released by Close.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config was nil")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.New(os.Stderr, cfg.Env, cfg.LogLevel)
	}
	ret := &Client{Logger: o.logger}

	slots := o.slots
	if slots == nil {
		var closer func() error
		var err error
		if slots, closer, err = NewSlots(ctx, cfg); err != nil {
			return nil, err
		}
		if closer != nil {
			ret.closers = append(ret.closers, closer)
		}
	}
	ret.Store = store.New(slots, store.WithNamespace(cfg.Store.Namespace), store.WithLogger(o.logger))

	rt, err := transport.New(
		transport.WithStore(ret.Store),
		transport.WithTransport(o.transport),
		transport.WithRefreshURL(cfg.API.BaseURL+api.RefreshPath),
		transport.WithTimeout(cfg.API.Timeout),
		transport.WithRefreshTimeout(cfg.API.RefreshTimeout),
		transport.WithMetrics(o.registerer),
		transport.WithLogger(o.logger),
	)
	if err != nil {
		_ = ret.Close()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	ret.Transport = rt
	ret.HTTP = &http.Client{Transport: rt}
	ret.API = api.New(ret.HTTP, ret.Store, api.WithBaseURL(cfg.API.BaseURL), api.WithLogger(o.logger))
	ret.Session = session.New(ret.API, o.logger)
	return ret, nil
}

// Close releases backend connections.
func (c *Client) Close() error {
	var err error
	for _, closer := range c.closers {
		err = errors.Join(err, closer())
	}
	c.closers = nil
	return err
}
