package mock

import (
	"log/slog"
	"time"
)

type Option func(*Service)

// WithSecret sets the HS256 signing secret.
func WithSecret(secret []byte) Option {
	return func(s *Service) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// WithAccessTTL sets access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.accessTTL = ttl
	}
}

// WithRefreshTTL sets refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.refreshTTL = ttl
	}
}

// WithOTP sets the code issued by send-otp.
func WithOTP(code string) Option {
	return func(s *Service) {
		s.otpCode = code
	}
}

// WithRefreshDelay delays every refresh answer.
func WithRefreshDelay(d time.Duration) Option {
	return func(s *Service) {
		s.refreshDelay.Store(int64(d))
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
