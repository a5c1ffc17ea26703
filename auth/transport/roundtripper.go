package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/superapp/apiclient/auth/store"
	"github.com/superapp/apiclient/internal/logging"
	"github.com/superapp/apiclient/internal/redact"
)

// DefaultTimeout bounds a dispatch or a refresh when no option overrides it.
const DefaultTimeout = 15 * time.Second

type RoundTripper struct {
	store          *store.Store
	refresher      Refresher
	refreshURL     string
	transport      http.RoundTripper
	timeout        time.Duration
	refreshTimeout time.Duration
	registerer     prometheus.Registerer
	metrics        *metrics
	coordinator    *coordinator
	logger         *slog.Logger
}

func New(options ...Option) (*RoundTripper, error) {
	ret := &RoundTripper{
		transport:      http.DefaultTransport,
		timeout:        DefaultTimeout,
		refreshTimeout: DefaultTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.store == nil {
		ret.store = store.New(nil, store.WithLogger(ret.logger))
	}
	if ret.refresher == nil {
		if ret.refreshURL == "" {
			return nil, ErrNoRefresher
		}
		ret.refresher = NewEndpointRefresher(ret.refreshURL, &http.Client{Transport: ret.transport})
	}
	var err error
	if ret.metrics, err = newMetrics(ret.registerer); err != nil {
		return nil, fmt.Errorf("failed to register transport metrics: %w", err)
	}
	ret.coordinator = newCoordinator(ret.refresh)
	return ret, nil
}

func (r *RoundTripper) Store() *store.Store {
	return r.store
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	c, err := newCall(req)
	if err != nil {
		return nil, err
	}
	if isPublic(c.ctx) {
		resp, _, err := r.dispatch(c, 0, false)
		return resp, err
	}

	// 1) Attach the stored access token (if any) and send.
	resp, sent, err := r.dispatch(c, 0, true)
	if err != nil {
		return nil, err
	}
	// 2) Anything but a 401 goes back untouched.
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	// 3) Refresh (or wait for the running refresh), then replay once.
	return r.recover(c, resp, sent)
}

func (r *RoundTripper) recover(c *call, unauthorized *http.Response, sent string) (*http.Response, error) {
	ctx := c.ctx
	logger := r.log(c)
	current := r.store.Load(ctx)
	if current.RefreshToken == "" {
		logger.DebugContext(ctx, "auth_recover_skipped", slog.String("reason", "no refresh token"))
		return unauthorized, nil
	}
	if current.AccessToken != "" && current.AccessToken != sent {
		// another call refreshed after this one was attached
		discard(unauthorized)
		return r.replay(c)
	}

	original, err := buffer(unauthorized)
	if err != nil {
		return nil, err
	}
	r.metrics.waiting.Inc()
	err = r.coordinator.await(ctx, current.RefreshToken)
	r.metrics.waiting.Dec()
	switch {
	case err == nil:
		_ = original.Body.Close()
		return r.replay(c)
	case errors.Is(err, errRefreshFailed):
		return original, nil
	default:
		_ = original.Body.Close()
		logger.InfoContext(ctx, "auth_wait_abandoned", slog.String("err", err.Error()))
		return nil, err
	}
}

func (r *RoundTripper) replay(c *call) (*http.Response, error) {
	resp, _, err := r.dispatch(c, 1, true)
	return resp, err
}

// dispatch sends one attempt of c and reports the access token it attached.
func (r *RoundTripper) dispatch(c *call, attempt int, authenticate bool) (*http.Response, string, error) {
	ctx := c.ctx
	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}
	var accessToken string
	if authenticate {
		accessToken = r.store.Load(ctx).AccessToken
	}
	req := c.request(ctx, accessToken)

	start := time.Now()
	resp, err := r.transport.RoundTrip(req)
	elapsed := time.Since(start)
	r.metrics.duration.Observe(elapsed.Seconds())

	logger := r.log(c)
	if err != nil {
		cancel()
		r.metrics.requests.WithLabelValues("error", strconv.Itoa(attempt)).Inc()
		logger.WarnContext(ctx, "http",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("attempt", attempt),
			slog.Duration("dur", elapsed),
			slog.String("err", err.Error()),
		)
		return nil, accessToken, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	r.metrics.requests.WithLabelValues(strconv.Itoa(resp.StatusCode), strconv.Itoa(attempt)).Inc()
	logger.InfoContext(ctx, "http",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Int("attempt", attempt),
		slog.Bool("authenticated", accessToken != ""),
		slog.Duration("dur", elapsed),
	)
	return resp, accessToken, nil
}

// refresh is the single-flight body run by the coordinator: on success the
// new pair is persisted before any waiter is released, on failure the pair
// is cleared.
func (r *RoundTripper) refresh(ctx context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, r.refreshTimeout)
	defer cancel()
	logger := logging.From(ctx, r.logger)
	// refreshToken is what the caller read before joining; an earlier refresh
	// may have settled since.
	switch current := r.store.Load(ctx); {
	case current.RefreshToken == "":
		logger.InfoContext(ctx, "token_refresh_skipped", slog.String("reason", "credentials cleared"))
		return fmt.Errorf("%w: credentials cleared", errRefreshFailed)
	case current.RefreshToken != refreshToken:
		return nil
	}
	start := time.Now()
	logger.InfoContext(ctx, "token_refresh_started", slog.String("refresh", redact.Token(refreshToken)))

	token, err := r.refresher.Refresh(Public(ctx), refreshToken)
	if err == nil {
		err = r.store.Save(ctx, token)
	}
	if err != nil {
		r.metrics.refresh.WithLabelValues("failure").Inc()
		logger.WarnContext(ctx, "token_refresh_failed",
			slog.String("err", err.Error()),
			slog.Duration("dur", time.Since(start)),
		)
		if cErr := r.store.Clear(ctx); cErr != nil {
			logger.ErrorContext(ctx, "token_clear_failed", slog.String("err", cErr.Error()))
		}
		return fmt.Errorf("%w: %v", errRefreshFailed, err)
	}
	r.metrics.refresh.WithLabelValues("success").Inc()
	logger.InfoContext(ctx, "token_refreshed", slog.Duration("dur", time.Since(start)))
	return nil
}

func (r *RoundTripper) log(c *call) *slog.Logger {
	return logging.From(c.ctx, r.logger).With(slog.String("request_id", c.requestID))
}
