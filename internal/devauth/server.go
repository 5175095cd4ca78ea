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

package devauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewRouter exposes the service with the Auth API wire format:
// {"user": {...}, "token": "..."} on success and {"message": "..."} on failure.
func NewRouter(svc *Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "gatherly-devauth"})
	})

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		res, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req authapi.Registration
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		res, err := svc.Register(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	})

	return r
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrAccountLocked):
		writeMessage(w, http.StatusLocked, "Account temporarily locked, please try again later")
	case errors.Is(err, ErrUserExists):
		writeMessage(w, http.StatusConflict, "User already exists")
	case errors.Is(err, ErrRoleNotAllowed):
		writeMessage(w, http.StatusForbidden, "Administrator accounts cannot be self-registered")
	case errors.Is(err, ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "Please check the registration details")
	default:
		slog.ErrorContext(r.Context(), "devauth request failed", logger.Component("devauth"), logger.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
