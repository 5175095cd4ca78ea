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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authz"
	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/gatherly/gatherly/internal/session"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const csrfHeader = "X-CSRF-Token"

var tracer = otel.Tracer("github.com/gatherly/gatherly/internal/transport/http")

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// SecureHeaders sets browser hardening headers
func SecureHeaders(isDevelopment bool) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         isDevelopment,
	})
	return sm.Handler
}

// SessionMiddleware resolves the session principal named by the cookie and
// stores it in the request context. Every request gets a session; anonymous
// requests get an unauthenticated one.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "session.resolve")

		key := h.getSessionFromCookie(r)
		sess := h.sessions.Open(key)
		err := sess.Resolve(ctx)
		if err != nil {
			// Store failure: the request proceeds unauthenticated and the
			// cookie is kept for the next attempt.
			slog.ErrorContext(ctx, "failed to resolve session",
				logger.Component("session"),
				logger.SessionKey(key),
				logger.Error(err),
			)
		} else if key != "" && sess.State() != session.StateAuthenticated {
			h.clearSessionCookie(w)
		}
		span.SetAttributes(attribute.String("session.state", sess.State().String()))
		span.End()

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequireAuthenticated rejects anonymous requests with 401
func (h *Handler) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentity(r.Context()) == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability admits requests whose identity holds any of caps.
// Anonymous requests get 401, authenticated ones lacking every capability 403.
func (h *Handler) RequireCapability(caps ...authz.Capability) func(http.Handler) http.Handler {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.String()
	}
	label := strings.Join(names, "|")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r.Context())
			if id == nil {
				h.recorder.RecordDecision(r.Context(), label, false)
				respondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			allowed := authz.HasAny(id, caps...)
			h.recorder.RecordDecision(r.Context(), label, allowed)
			if !allowed {
				slog.InfoContext(r.Context(), "access denied",
					logger.UserID(id.ID),
					logger.Role(string(id.Role)),
					logger.Capability(label),
					logger.Decision(false),
					logger.Path(r.URL.Path),
				)
				h.auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeAccessDenied,
					ActorID:   id.ID,
					Resource:  r.Method + " " + r.URL.Path,
					IPAddress: getClientIP(r),
					UserAgent: r.UserAgent(),
					Metadata: map[string]any{
						audit.AttrCapability: label,
						audit.AttrRole:       string(id.Role),
					},
				})
				respondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware protects against Cross-Site Request Forgery for state-changing requests.
// Browsers cannot attach the custom X-CSRF-Token header cross-origin without a
// CORS preflight, which the gateway never grants.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(csrfHeader) == "" {
			slog.WarnContext(r.Context(), "missing CSRF token header", logger.Method(r.Method), logger.Path(r.URL.Path))
			respondError(w, http.StatusForbidden, "X-CSRF-Token header is required for state-changing operations")
			return
		}

		next.ServeHTTP(w, r)
	})
}
