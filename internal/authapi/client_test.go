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

package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

// TestPurpose: Validates a successful login exchange is decoded into identity and token.
// Scope: Unit Test
// Expected: Result carries the Auth API user and token.
// Test Case ID: API-01
func TestAuthAPI_Login_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)

		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "host@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"_id":"u1","name":"Hal","email":"host@example.com","role":"host"},"token":"tok"}`))
	})

	res, err := c.Login(context.Background(), "host@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, identity.RoleHost, res.Identity.Role)
	assert.Equal(t, "u1", res.Identity.ID)
}

// TestPurpose: Validates that Auth API rejections are surfaced with their displayable message.
// Scope: Unit Test
// Expected: *Error with status and message; UserMessage returns the message.
// Test Case ID: API-02
func TestAuthAPI_Login_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid email or password"}`))
	})

	_, err := c.Login(context.Background(), "x@example.com", "wrong")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, "Invalid email or password", UserMessage(err))
}

// TestPurpose: Validates classification of server side and malformed responses.
// Scope: Unit Test
// Expected: 5xx is ErrUnavailable, missing token is ErrInvalidResponse.
// Test Case ID: API-03
func TestAuthAPI_FailureClassification(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.Register(context.Background(), Registration{Name: "N", Email: "n@example.com", Password: "Secret123!"})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, http.StatusText(http.StatusBadGateway), UserMessage(err))
	})

	t.Run("missing token", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"user":{"_id":"u1","email":"a@example.com","role":"user"}}`))
		})
		_, err := c.Login(context.Background(), "a@example.com", "pw")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		})
		_, err := c.Login(context.Background(), "a@example.com", "pw")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
		require.NoError(t, err)
		_, err = c.Login(context.Background(), "a@example.com", "pw")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

// TestPurpose: Validates that client construction rejects unusable base URLs.
// Scope: Unit Test
// Test Case ID: API-04
func TestAuthAPI_NewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

// TestPurpose: Validates reading the expiry of JWT credential tokens.
// Scope: Unit Test
// Expected: exp is returned for JWTs, ok=false for opaque tokens.
// Test Case ID: API-05
func TestAuthAPI_TokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = TokenExpiry(noExp)
	assert.False(t, ok)
}
