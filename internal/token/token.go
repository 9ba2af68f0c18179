package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperr "github.com/campusmatch/backend/internal/errors"
)

// Verifier validates a bearer credential and yields the user id it was
// issued for. The realtime gateway and the HTTP auth middleware both depend
// on this interface only.
type Verifier interface {
	Verify(token string) (string, error)
}

// Service issues and verifies HMAC-signed access tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue creates an access token for the given user id.
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates a token, returning the subject user id.
//
// Expired and otherwise-invalid credentials are distinguished by machine
// code (token_expired vs token_invalid); both are fatal for the attempt.
func (s *Service) Verify(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Unauthenticated("token_expired", "access token expired")
		}
		return "", apperr.Unauthenticated("token_invalid", "access token invalid")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", apperr.Unauthenticated("token_invalid", "access token invalid")
	}
	return claims.Subject, nil
}
