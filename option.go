package apiclient

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/superapp/apiclient/auth/store"
)

type Option func(c *options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	slots      store.Slots
	transport  http.RoundTripper
}

// WithLogger sets logger; by default one is built from the config env and level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics registers transport metrics on registerer.
func WithMetrics(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}

// WithSlots overrides the slots selected by config.
func WithSlots(slots store.Slots) Option {
	return func(o *options) {
		o.slots = slots
	}
}

// WithTransport sets the underlying network transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(o *options) {
		o.transport = transport
	}
}
