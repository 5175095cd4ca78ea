// Copyright 2026 The Gatherly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterOptions tunes the middleware chain
type RouterOptions struct {
	RequestTimeout time.Duration
	// AuthPerMinute caps login and registration attempts per client IP;
	// zero disables the cap.
	AuthPerMinute int
	// StaticFS, when set, serves the web client for non-API paths
	StaticFS    fs.FS
	Development bool
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter, opts RouterOptions) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(SecureHeaders(opts.Development))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.SessionMiddleware)
		r.Use(CSRFMiddleware)

		// Public
		r.Get("/search/suggestions", h.SearchSuggestions)
		r.Get("/roles", h.ListRoles)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if opts.AuthPerMinute > 0 {
					r.Use(httprate.Limit(opts.AuthPerMinute, time.Minute,
						httprate.WithKeyFuncs(httprate.KeyByIP),
						httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
							respondError(w, http.StatusTooManyRequests, "too many attempts, please try again later")
						}),
					))
				}
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetCurrentUser)
		})

		// Guarded marketplace routes
		for _, rt := range MarketplaceRoutes() {
			r.With(h.RequireCapability(rt.AnyOf...)).Method(rt.Method, rt.Pattern, h.proxy)
		}
	})

	if opts.StaticFS != nil {
		r.Handle("/*", SPAHandler{StaticFS: opts.StaticFS})
	}

	return r
}
