package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

const (
	// AccessSlot is the slot holding the short-lived access token.
	AccessSlot = "access"
	// RefreshSlot is the slot holding the long-lived refresh token.
	RefreshSlot = "refresh"
)

// Store is the single owner of the credential pair. Reads are served from an
// in-memory cache that is filled from the slots on demand; writes go to the
// slots first and to the cache second, under the same lock, so a Load that
// starts after Save or Clear returned always sees the new state.
type Store struct {
	mu        sync.RWMutex
	slots     Slots
	namespace string
	access    string
	refresh   string
	listeners []func(*oauth2.Token)
	logger    *slog.Logger
}

type Option func(*Store)

// WithNamespace prefixes slot keys, e.g. "user-42:" -> "user-42:access".
func WithNamespace(namespace string) Option {
	return func(s *Store) {
		s.namespace = namespace
	}
}

// WithLogger sets logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store over slots; nil slots means process memory.
func New(slots Slots, options ...Option) *Store {
	if slots == nil {
		slots = NewMemorySlots()
	}
	ret := &Store{slots: slots, logger: slog.Default()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Authenticated reports whether token carries both credentials. A pair with
// only one side present is a transient state, never a session.
func Authenticated(token *oauth2.Token) bool {
	return token != nil && token.AccessToken != "" && token.RefreshToken != ""
}

// Load returns a copy of the current pair. Slots are consulted only for
// values the cache does not hold. Storage errors are logged and read as
// "no credential"; Load never returns nil.
func (s *Store) Load(ctx context.Context) *oauth2.Token {
	s.mu.RLock()
	if s.access != "" && s.refresh != "" {
		defer s.mu.RUnlock()
		return s.token()
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access == "" {
		s.access = s.read(ctx, AccessSlot)
	}
	if s.refresh == "" {
		s.refresh = s.read(ctx, RefreshSlot)
	}
	return s.token()
}

// Save merges token into the pair: empty fields keep their current value.
// On a storage error the cache is dropped so the next Load re-reads the
// slots instead of serving a value storage never accepted.
func (s *Store) Save(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return nil
	}
	s.mu.Lock()
	if token.AccessToken != "" {
		if err := s.slots.Set(ctx, s.key(AccessSlot), token.AccessToken); err != nil {
			s.access, s.refresh = "", ""
			s.mu.Unlock()
			return fmt.Errorf("%w: save %v: %v", ErrStorage, AccessSlot, err)
		}
		s.access = token.AccessToken
	}
	if token.RefreshToken != "" {
		if err := s.slots.Set(ctx, s.key(RefreshSlot), token.RefreshToken); err != nil {
			s.access, s.refresh = "", ""
			s.mu.Unlock()
			return fmt.Errorf("%w: save %v: %v", ErrStorage, RefreshSlot, err)
		}
		s.refresh = token.RefreshToken
	}
	current := s.token()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, current)
	return nil
}

// Clear wipes both tokens from the cache and the slots. A slot that fails to
// delete keeps its value and is read back by the next Load, like a failed
// Save: storage stays the source of truth.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.access, s.refresh = "", ""
	var err error
	for _, slot := range []string{AccessSlot, RefreshSlot} {
		if dErr := s.slots.Delete(ctx, s.key(slot)); dErr != nil && err == nil {
			err = fmt.Errorf("%w: clear %v: %v", ErrStorage, slot, dErr)
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, &oauth2.Token{})
	return err
}

// OnChange registers fn to be called after every successful Save and every
// Clear with the resulting pair.
func (s *Store) OnChange(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(listeners []func(*oauth2.Token), token *oauth2.Token) {
	for _, fn := range listeners {
		copied := *token
		fn(&copied)
	}
}

func (s *Store) read(ctx context.Context, slot string) string {
	value, ok, err := s.slots.Get(ctx, s.key(slot))
	if err != nil {
		s.logger.WarnContext(ctx, "token_slot_read_failed", slog.String("slot", slot), slog.String("err", err.Error()))
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

func (s *Store) key(slot string) string {
	return s.namespace + slot
}

func (s *Store) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.access,
		RefreshToken: s.refresh,
		TokenType:    "Bearer",
	}
}
