package mock

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const (
	accessType  = "access"
	refreshType = "refresh"
)

var errInvalidToken = errors.New("token is invalid or expired")

type tokenClaims struct {
	Type       string `json:"token_type"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

// TokenPair is the credential body returned by register, login and
// verify-otp, and (without User) by refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

func (s *Service) issuePair(user *User) (*TokenPair, error) {
	now := time.Now().UTC()
	access, err := s.sign(user.ID, accessType, ulid.Make().String(), now, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshID := ulid.Make().String()
	refresh, err := s.sign(user.ID, refreshType, refreshID, now, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	s.refreshTokens.Put(refreshID, user.ID)
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Service) sign(subject, tokenType, id string, now time.Time, ttl time.Duration) (string, error) {
	claims := tokenClaims{
		Type:       tokenType,
		Generation: s.generation.Load(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %v token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *Service) parse(tokenStr, tokenType string) (*tokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid || claims.Type != tokenType {
		return nil, errInvalidToken
	}
	return claims, nil
}

// validateAccess returns the user id of a live access token. Tokens minted
// before the last ExpireAccessTokens call are rejected.
func (s *Service) validateAccess(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr, accessType)
	if err != nil {
		return "", err
	}
	if claims.Generation < s.generation.Load() {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

// consumeRefresh validates a refresh token and removes it so it cannot be
// used again.
func (s *Service) consumeRefresh(tokenStr string) (string, error) {
	claims, err := s.parse(tokenStr, refreshType)
	if err != nil {
		return "", err
	}
	userID, ok := s.refreshTokens.Take(claims.ID)
	if !ok {
		return "", errInvalidToken
	}
	return userID, nil
}

func (s *Service) revokeRefresh(tokenStr string) error {
	claims, err := s.parse(tokenStr, refreshType)
	if err != nil {
		return err
	}
	s.refreshTokens.Delete(claims.ID)
	return nil
}
