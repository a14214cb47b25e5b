// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/atinyakov/taskboard/internal/models"
)

var (
	// ErrInvalidToken covers bad signatures, expiry and any other claim
	// failure. Callers treat it as unauthorized.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is an ErrInvalidToken whose validity window has passed.
	ErrExpiredToken = fmt.Errorf("%w: token has expired", ErrInvalidToken)
	// ErrMalformedToken means the token could not be parsed at all.
	ErrMalformedToken = errors.New("malformed token")
)

// DefaultTTL is the validity window of a session token.
const DefaultTTL = 300 * time.Second

// Claims is the payload of a session token.
type Claims struct {
	Username string `json:"username"`
	UserID   int    `json:"id"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager. A non-positive ttl falls back to
// DefaultTTL.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "taskboard",
		now:    time.Now,
	}
}

// TTL returns the validity window of issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue creates a signed token for the user, valid for TTL from now.
func (tm *TokenManager) Issue(user models.User) (string, error) {
	now := tm.now()

	claims := Claims{
		Username: user.Username,
		UserID:   user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns the identity it
// carries. Failures wrap either ErrMalformedToken or ErrInvalidToken.
func (tm *TokenManager) Verify(raw string) (models.Identity, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return models.Identity{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return models.Identity{}, ErrExpiredToken
	case err != nil:
		return models.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}

	return models.Identity{Username: claims.Username, UserID: claims.UserID}, nil
}
