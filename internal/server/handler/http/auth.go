// Package http provides the HTTP and WebSocket front door: signup and login,
// task operations and the live task channel.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/taskboard/internal/middleware"
	"github.com/atinyakov/taskboard/internal/models"
	"github.com/atinyakov/taskboard/internal/service"
)

// AuthService defines the credential operations required by the HTTP handlers.
type AuthService interface {
	// Register creates a new user with the given username and password.
	Register(ctx context.Context, username, password string) (*models.User, error)
	// Authenticate returns the user matching the credentials.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(user models.User) (string, error)
	TTL() time.Duration
}

// AuthHandler handles HTTP requests for user signup and login.
type AuthHandler struct {
	// AuthService performs the underlying credential operations.
	AuthService AuthService
	// Tokens issues the session token set as a cookie on success.
	Tokens TokenIssuer
	Logger *zap.Logger
}

// Signup handles POST /signup with form fields username and password.
// On success the user is logged in: a token cookie is set and 200 returned.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Register(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, service.ErrEmptyCredentials):
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrUserExists):
		http.Error(w, "user already exists", http.StatusConflict)
		return
	case err != nil:
		h.Logger.Error("signup failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !h.setToken(w, *user) {
		return
	}
	h.Logger.Info("successful signup and login", zap.String("user", user.Username))
	w.WriteHeader(http.StatusOK)
}

// Login handles POST /login with form fields username and password.
// It sets a token cookie on success and answers 401 otherwise.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.Logger.Info("failed to log in", zap.String("user", r.PostFormValue("username")))
		w.WriteHeader(http.StatusUnauthorized)
		return
	case err != nil:
		h.Logger.Error("login failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !h.setToken(w, *user) {
		return
	}
	h.Logger.Info("successful login", zap.String("user", user.Username))
	w.WriteHeader(http.StatusOK)
}

func (h *AuthHandler) setToken(w http.ResponseWriter, user models.User) bool {
	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.Logger.Error("issue token", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
