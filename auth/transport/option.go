package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/superapp/apiclient/auth/store"
)

type Option func(*RoundTripper)

// WithStore sets store
func WithStore(store *store.Store) Option {
	return func(t *RoundTripper) {
		t.store = store
	}
}

// WithTransport sets the transport used for dispatching and refreshing.
func WithTransport(transport http.RoundTripper) Option {
	return func(t *RoundTripper) {
		if transport != nil {
			t.transport = transport
		}
	}
}

// WithRefresher sets refresher
func WithRefresher(refresher Refresher) Option {
	return func(t *RoundTripper) {
		t.refresher = refresher
	}
}

// WithRefreshURL uses an EndpointRefresher posting to URL.
func WithRefreshURL(URL string) Option {
	return func(t *RoundTripper) {
		t.refreshURL = URL
	}
}

// WithTimeout bounds each dispatch whose context has no deadline; 0 disables.
func WithTimeout(timeout time.Duration) Option {
	return func(t *RoundTripper) {
		t.timeout = timeout
	}
}

// WithRefreshTimeout bounds the refresh call.
func WithRefreshTimeout(timeout time.Duration) Option {
	return func(t *RoundTripper) {
		if timeout > 0 {
			t.refreshTimeout = timeout
		}
	}
}

// WithMetrics registers the transport collectors on registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(t *RoundTripper) {
		t.registerer = registerer
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *RoundTripper) {
		if logger != nil {
			t.logger = logger
		}
	}
}
