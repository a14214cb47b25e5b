// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/taskboard/internal/auth"
	"github.com/atinyakov/taskboard/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// TokenCookie is the name of the cookie carrying the session token.
const TokenCookie = "token"

// TokenVerifier checks a raw session token.
type TokenVerifier interface {
	Verify(raw string) (models.Identity, error)
}

// Verdict is the outcome of checking the token on a request.
type Verdict int

const (
	// Accepted means the token is present and valid.
	Accepted Verdict = iota
	// Missing means no token cookie was sent.
	Missing
	// Invalid means the signature or expiry check failed.
	Invalid
	// Malformed means the token could not be parsed.
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Missing:
		return "missing"
	case Invalid:
		return "invalid"
	case Malformed:
		return "malformed"
	}
	return "unknown"
}

// CheckToken reads the token cookie from r and verifies it. Both the request
// gate and the handshake gate are built on it.
func CheckToken(v TokenVerifier, r *http.Request) (models.Identity, Verdict) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil || cookie.Value == "" {
		return models.Identity{}, Missing
	}

	id, err := v.Verify(cookie.Value)
	switch {
	case err == nil:
		return id, Accepted
	case errors.Is(err, auth.ErrMalformedToken):
		return models.Identity{}, Malformed
	default:
		return models.Identity{}, Invalid
	}
}

// RequestGate rejects requests without a valid session token: 401 when the
// token is missing or invalid, 400 when it is malformed. On success the
// identity is stored in the request context.
func RequestGate(v TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, verdict := CheckToken(v, r)
			switch verdict {
			case Accepted:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			case Malformed:
				log.Info("rejected request", zap.String("path", r.URL.Path), zap.Stringer("token", verdict))
				w.WriteHeader(http.StatusBadRequest)
			default:
				log.Info("rejected request", zap.String("path", r.URL.Path), zap.Stringer("token", verdict))
				w.WriteHeader(http.StatusUnauthorized)
			}
		})
	}
}

// HandshakeGate guards a connection upgrade. The transport can only accept
// or refuse, so every failed check is answered with 401 before the upgrade.
func HandshakeGate(v TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, verdict := CheckToken(v, r)
			if verdict != Accepted {
				log.Info("rejected connection", zap.Stringer("token", verdict))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// GetIdentityFromContext extracts the authenticated identity from the
// request context. ok is false if none was stored.
func GetIdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(userKey).(models.Identity)
	return id, ok
}
