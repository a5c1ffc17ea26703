package mock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists         = errors.New("a user with that username or email already exists")
	errInvalidCredentials = errors.New("invalid credentials")
)

// User is the profile served by /auth/me/.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`

	passwordHash []byte
}

// AddUser creates a user directly, bypassing the register endpoint.
func (s *Service) AddUser(username, email, password string) (*User, error) {
	return s.createUser(&User{Username: username, Email: email}, password)
}

func (s *Service) createUser(user *User, password string) (*User, error) {
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.passwordHash = hash
	}
	user.ID = ulid.Make().String()

	s.registerMu.Lock()
	defer s.registerMu.Unlock()
	keys := loginKeys(user)
	for _, key := range keys {
		if _, ok := s.logins.Get(key); ok {
			return nil, errUserExists
		}
	}
	for _, key := range keys {
		s.logins.Put(key, user.ID)
	}
	s.users.Put(user.ID, user)
	return user, nil
}

func (s *Service) authenticateUser(identifier, password string) (*User, error) {
	id, ok := s.logins.Get(normalize(identifier))
	if !ok {
		return nil, errInvalidCredentials
	}
	user, ok := s.users.Get(id)
	if !ok || len(user.passwordHash) == 0 {
		return nil, errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) != nil {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// userByPhone finds or creates the account bound to phone.
func (s *Service) userByPhone(phone string) (*User, error) {
	if id, ok := s.logins.Get(normalize(phone)); ok {
		if user, ok := s.users.Get(id); ok {
			return user, nil
		}
	}
	user, err := s.createUser(&User{Username: phone, Phone: phone}, "")
	if errors.Is(err, errUserExists) {
		// lost a race with a concurrent verify for the same phone
		id, _ := s.logins.Get(normalize(phone))
		if existing, ok := s.users.Get(id); ok {
			return existing, nil
		}
	}
	return user, err
}

func loginKeys(user *User) []string {
	var ret []string
	for _, candidate := range []string{user.Username, user.Email, user.Phone} {
		key := normalize(candidate)
		if key == "" {
			continue
		}
		duplicate := false
		for _, existing := range ret {
			duplicate = duplicate || existing == key
		}
		if !duplicate {
			ret = append(ret, key)
		}
	}
	return ret
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Users returns a snapshot of every account.
func (s *Service) Users() []User {
	var ret []User
	s.users.Range(func(_ string, user *User) bool {
		ret = append(ret, *user)
		return true
	})
	return ret
}
