package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the unverified content of the stored session token
type Claims struct {
	AccessKey string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token expiry is before now. Tokens without
// an expiry never expire locally.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the stored token without verifying its signature. The
// server remains the authority; this only serves display purposes.
func (s *Session) Claims() (*Claims, error) {
	token := s.GetToken()
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return nil, fmt.Errorf("failed to decode session token: %w", err)
	}

	claims := &Claims{}
	if accessKey, ok := mapClaims["accessKey"].(string); ok {
		claims.AccessKey = accessKey
	} else if sub, err := mapClaims.GetSubject(); err == nil {
		claims.AccessKey = sub
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}
