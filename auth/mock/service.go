package mock

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/superapp/apiclient/internal/collection"
)

const (
	// BasePath is where the API routes are mounted.
	BasePath = "/api"
	// DefaultOTP is the code every send-otp call issues unless overridden.
	DefaultOTP = "123456"
)

// Service simulates the storefront authentication backend.
type Service struct {
	Issuer     string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	otpCode    string
	logger     *slog.Logger

	users  *collection.SyncMap[string, *User]  // by id
	logins *collection.SyncMap[string, string] // username/email/phone -> id
	// refresh token ids still accepted; each is consumed on use
	refreshTokens *collection.SyncMap[string, string]
	otps          *collection.SyncMap[string, string]
	orders        *collection.SyncMap[string, []Order]
	hits          *collection.SyncMap[string, *atomic.Int64]
	registerMu    sync.Mutex

	generation   atomic.Int64
	refreshCalls atomic.Int64
	refreshDelay atomic.Int64
	failRefresh  atomic.Bool
}

// New creates a service with a random signing secret.
func New(options ...Option) (*Service, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	ret := &Service{
		Issuer:        "apiclient-mock",
		secret:        secret,
		accessTTL:     5 * time.Minute,
		refreshTTL:    24 * time.Hour,
		otpCode:       DefaultOTP,
		logger:        slog.Default(),
		users:         collection.NewSyncMap[string, *User](),
		logins:        collection.NewSyncMap[string, string](),
		refreshTokens: collection.NewSyncMap[string, string](),
		otps:          collection.NewSyncMap[string, string](),
		orders:        collection.NewSyncMap[string, []Order](),
		hits:          collection.NewSyncMap[string, *atomic.Int64](),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}

// Handler returns the chi router with every endpoint mounted under BasePath.
func (s *Service) Handler() http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Recoverer, s.count, s.logRequests)

	api := chi.NewRouter()
	api.Post("/auth/register/", s.register)
	api.Post("/auth/login/", s.login)
	api.Post("/auth/send-otp/", s.sendOTP)
	api.Post("/auth/verify-otp/", s.verifyOTP)
	api.Post("/auth/token/refresh/", s.refresh)
	api.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/auth/me/", s.me)
		r.Post("/auth/logout/", s.logout)
		r.Get("/orders/", s.listOrders)
		r.Post("/orders/", s.createOrder)
	})
	root.Mount(BasePath, api)
	return root
}

// ExpireAccessTokens invalidates every access token issued so far; refresh
// tokens stay valid.
func (s *Service) ExpireAccessTokens() {
	s.generation.Add(1)
}

// RefreshCalls returns how many requests reached the refresh endpoint.
func (s *Service) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Sessions returns how many refresh tokens are still accepted.
func (s *Service) Sessions() int {
	return s.refreshTokens.Len()
}

// SetRefreshDelay makes the refresh endpoint wait d before answering.
func (s *Service) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// SetFailRefresh makes the refresh endpoint reject every token.
func (s *Service) SetFailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

// Hits returns the number of requests served for path, e.g. "/api/orders/".
func (s *Service) Hits(path string) int {
	counter, ok := s.hits.Get(path)
	if !ok {
		return 0
	}
	return int(counter.Load())
}

// LastOTP returns the pending code for phone.
func (s *Service) LastOTP(phone string) (string, bool) {
	return s.otps.Get(phone)
}

func (s *Service) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter, ok := s.hits.Get(r.URL.Path)
		if !ok {
			s.hits.PutIfAbsent(r.URL.Path, &atomic.Int64{})
			counter, _ = s.hits.Get(r.URL.Path)
		}
		counter.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", r.Header.Get("X-Request-ID")),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
