package http

import (
	"net/http"

	"github.com/atinyakov/taskboard/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// formContentTypes are the bodies accepted by the form endpoints.
var formContentTypes = []string{"application/x-www-form-urlencoded", "multipart/form-data"}

// NewRouter constructs and returns an HTTP handler that serves
// the task tracker.
//
// Routes:
//
//	POST   /signup             → authHandler.Signup
//	POST   /login              → authHandler.Login
//	GET    /statuses           → taskHandler.Statuses   (request gate)
//	GET    /tasks              → taskHandler.List       (request gate)
//	GET    /tasks/{id}/file    → taskHandler.File       (request gate)
//	POST   /tasks/add          → taskHandler.Add        (request gate)
//	PUT    /tasks/{id}/update  → taskHandler.Update     (request gate)
//	DELETE /tasks/{id}/delete  → taskHandler.Delete     (request gate)
//	GET    /ws                 → liveHandler            (handshake gate)
//
// Middleware chain:
//  1. WithRequestLogging(logger) — logs every request
//  2. Recoverer                  — turns panics into 500
//  3. AllowContentType           — form endpoints only accept form bodies
//  4. RequestGate / HandshakeGate — token cookie check
func NewRouter(
	authHandler *AuthHandler,
	taskHandler *TaskHandler,
	liveHandler *LiveHandler,
	verifier middleware.TokenVerifier,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	// Public endpoints
	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType(formContentTypes...))
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	// Protected group: requires a valid token cookie
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestGate(verifier, logger))

		r.Get("/statuses", taskHandler.Statuses)
		r.Get("/tasks", taskHandler.List)
		r.Get("/tasks/{id}/file", taskHandler.File)
		r.Delete("/tasks/{id}/delete", taskHandler.Delete)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType(formContentTypes...))
			r.Post("/tasks/add", taskHandler.Add)
			r.Put("/tasks/{id}/update", taskHandler.Update)
		})
	})

	// Live channel: token checked once at the handshake
	r.With(middleware.HandshakeGate(verifier, logger)).Get("/ws", liveHandler.ServeHTTP)

	return r
}
