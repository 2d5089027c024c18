// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the account operations over HTTP with JSON bodies.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultRequestTimeout bounds a single request, including queueing for a
// hash slot.
const DefaultRequestTimeout = 10 * time.Second

// RouterDeps holds the collaborators for NewRouter.
type RouterDeps struct {
	Service        AuthService
	Logger         *slog.Logger
	Observer       RequestObserver
	RateLimiter    *RateLimiter
	RequestTimeout time.Duration

	// TrustForwardedHeaders installs chi's RealIP so the client address
	// comes from X-Forwarded-For or X-Real-IP. Leave it off unless a proxy
	// in front overwrites those headers; otherwise the socket peer is used.
	TrustForwardedHeaders bool
}

// NewRouter builds the API router.
//
// Middleware order: RequestID, RealIP (when trusted), RequestLogger, Recoverer,
// RateLimiter, Timeout.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	h := NewHandler(deps.Service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.TrustForwardedHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger(logger, deps.Observer))
	r.Use(middleware.Recoverer)
	r.Use(deps.RateLimiter.Middleware)
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(deps.Service, logger))
			r.Get("/users/me", h.Me)
		})
	})

	return r
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler, requestTimeout time.Duration) *http.Server {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
