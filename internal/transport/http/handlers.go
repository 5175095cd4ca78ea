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

// @title Gatherly Gateway API
// @version 1.0.0
// @description Session and capability gateway for the Gatherly events marketplace

// @BasePath /api/v1

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name gatherly_session

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/authz"
	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/gatherly/gatherly/internal/observability/metrics"
	"github.com/gatherly/gatherly/internal/session"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// Handler holds HTTP handlers and dependencies
type Handler struct {
	sessions      *session.Service
	proxy         http.Handler
	auditLogger   audit.Logger
	recorder      *metrics.Recorder
	validate      *validator.Validate
	sessionConfig SessionConfig
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
	Lifetime       time.Duration
}

// NewHandler creates a new HTTP handler. proxy serves every guarded
// marketplace route once its capability check has passed.
func NewHandler(
	sessions *session.Service,
	proxy http.Handler,
	auditLogger audit.Logger,
	recorder *metrics.Recorder,
	sessionConfig SessionConfig,
) *Handler {
	return &Handler{
		sessions:      sessions,
		proxy:         proxy,
		auditLogger:   auditLogger,
		recorder:      recorder,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		sessionConfig: sessionConfig,
	}
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "gatherly-gateway",
	})
}

// SearchSuggestions returns search suggestions. No suggestion source is
// wired yet, so the list is always empty.
// @Summary Search suggestions
// @Tags Search
// @Produce json
// @Param q query string false "Query"
// @Success 200 {array} string
// @Router /search/suggestions [get]
func (h *Handler) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, []string{})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"user@example.com"`
	Password string `json:"password" validate:"required,max=128" example:"secret123"`
}

// RegisterRequest represents registration data
type RegisterRequest = authapi.Registration

// PrincipalResponse describes the caller's session principal
type PrincipalResponse struct {
	Authenticated   bool               `json:"authenticated"`
	User            *identity.Identity `json:"user"`
	RoleDisplayName string             `json:"role_display_name,omitempty"`
	Capabilities    map[string]bool    `json:"capabilities"`
}

// RoleResponse describes one role of the capability matrix
type RoleResponse struct {
	Role         identity.Role   `json:"role"`
	DisplayName  string          `json:"display_name"`
	Capabilities map[string]bool `json:"capabilities"`
}

func principalOf(id *identity.Identity) PrincipalResponse {
	resp := PrincipalResponse{
		Authenticated: id != nil,
		User:          id,
		Capabilities:  authz.CapabilitiesOf(id).Map(),
	}
	if id != nil {
		resp.RoleDisplayName = authz.RoleDisplayName(id.Role)
	}
	return resp
}

// Register handles user registration
// @Summary Register a new user
// @Description Create an account through the Auth API and sign it in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration Data"
// @Success 201 {object} PrincipalResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Role == "" {
		req.Role = identity.RoleUser
	}

	sess := h.sessionFor(r)
	id, err := sess.Register(r.Context(), req)
	if err != nil {
		h.recorder.RecordTransition(r.Context(), "register", "failure")
		h.clearSessionCookie(w)
		h.respondAuthError(w, r, err)
		return
	}

	h.recorder.RecordTransition(r.Context(), "register", "success")
	h.setSessionCookie(w, sess.Key())
	respondJSON(w, http.StatusCreated, principalOf(id))
}

// Login handles user login
// @Summary Login
// @Description Authenticate through the Auth API and establish a session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} PrincipalResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sess := h.sessionFor(r)
	id, err := sess.Login(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)), req.Password)
	if err != nil {
		h.recorder.RecordTransition(r.Context(), "login", "failure")
		h.clearSessionCookie(w)
		h.respondAuthError(w, r, err)
		return
	}

	h.recorder.RecordTransition(r.Context(), "login", "success")
	h.setSessionCookie(w, sess.Key())
	respondJSON(w, http.StatusOK, principalOf(id))
}

// Logout handles user logout
// @Summary Logout
// @Description Remove the persisted credentials and identity of the current session
// @Tags Auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionFor(r)
	if err := sess.Logout(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "failed to log out", logger.Error(err))
		h.recorder.RecordTransition(r.Context(), "logout", "failure")
		respondError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	h.recorder.RecordTransition(r.Context(), "logout", "success")
	h.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the session principal and its capabilities
// @Summary Get Current User
// @Description Identity, role display name and capability map of the caller
// @Tags Auth
// @Produce json
// @Security CookieAuth
// @Success 200 {object} PrincipalResponse
// @Router /auth/me [get]
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, principalOf(GetIdentity(r.Context())))
}

// ListRoles returns the capability matrix
// @Summary List roles
// @Description Every role with its display name and capability map
// @Tags Auth
// @Produce json
// @Success 200 {array} RoleResponse
// @Router /roles [get]
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles := identity.Roles()
	resp := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, RoleResponse{
			Role:         role,
			DisplayName:  authz.RoleDisplayName(role),
			Capabilities: authz.CapabilitiesFor(role).Map(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// sessionFor returns the request's session, or a fresh anonymous one when
// the session middleware did not run.
func (h *Handler) sessionFor(r *http.Request) *session.Session {
	if sess := GetSession(r.Context()); sess != nil {
		return sess
	}
	return h.sessions.Anonymous()
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationMessages(verrs),
			})
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func validationMessages(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = field + " is required"
		case "email":
			out[field] = "must be a valid email address"
		case "min":
			out[field] = "must be at least " + fe.Param() + " characters"
		case "max":
			out[field] = "must be at most " + fe.Param() + " characters"
		case "oneof":
			out[field] = "must be one of: " + fe.Param()
		default:
			out[field] = "is invalid"
		}
	}
	return out
}

// respondAuthError maps a failed login or registration to an HTTP response.
// Auth API messages are user displayable and passed through.
func (h *Handler) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *authapi.Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		respondError(w, apiErr.Status, authapi.UserMessage(err))
	case errors.Is(err, authapi.ErrUnavailable):
		slog.WarnContext(r.Context(), "auth api unavailable", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, authapi.UserMessage(err))
	case errors.Is(err, authapi.ErrInvalidResponse):
		slog.ErrorContext(r.Context(), "auth api returned an invalid response", logger.Error(err))
		respondError(w, http.StatusBadGateway, "authentication failed")
	default:
		slog.ErrorContext(r.Context(), "failed to establish session", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to establish session")
	}
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, key string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    key,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: true,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   int(h.sessionConfig.Lifetime.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    "",
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
