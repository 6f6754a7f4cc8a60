package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Summary is the unverified view of a token returned by [Inspect].
type Summary struct {
	Email     string
	UserID    int64
	Algorithm string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the expiry claim is before now. A token without an
// expiry claim never reports expired.
func (s Summary) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// Inspect decodes the claims of token without verifying its signature or
// validating any claim.
func Inspect(token string) (Summary, error) {
	if token == "" {
		return Summary{}, errors.New("empty token")
	}

	var claims Claims
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		Email:     claims.Subject,
		UserID:    claims.UserID,
		Algorithm: parsed.Method.Alg(),
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
