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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/session"
	"github.com/stretchr/testify/require"
)

const testCookie = "gatherly_session"

// stubAuth is an in-memory Auth API keyed by email
type stubAuth struct {
	mu       sync.Mutex
	accounts map[string]stubAccount
	err      error
}

type stubAccount struct {
	password string
	result   authapi.Result
}

func newStubAuth() *stubAuth {
	return &stubAuth{accounts: make(map[string]stubAccount)}
}

func (s *stubAuth) add(role identity.Role, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = stubAccount{
		password: password,
		result: authapi.Result{
			Identity: identity.Identity{ID: "id-" + email, Name: string(role), Email: email, Role: role},
			Token:    "token-" + email,
		},
	}
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*authapi.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	acct, ok := s.accounts[email]
	if !ok || acct.password != password {
		return nil, &authapi.Error{Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	}
	res := acct.result
	return &res, nil
}

func (s *stubAuth) Register(ctx context.Context, reg authapi.Registration) (*authapi.Result, error) {
	s.mu.Lock()
	if _, exists := s.accounts[reg.Email]; exists {
		s.mu.Unlock()
		return nil, &authapi.Error{Status: http.StatusConflict, Message: "User already exists"}
	}
	s.mu.Unlock()
	s.add(reg.Role, reg.Email, reg.Password)
	return s.Login(ctx, reg.Email, reg.Password)
}

// backendRecorder captures what the proxy forwards
type backendRecorder struct {
	mu   sync.Mutex
	last *http.Request
	hits int
}

func (b *backendRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.last = r.Clone(context.Background())
		b.hits++
		b.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
	})
}

func (b *backendRecorder) hitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

func (b *backendRecorder) lastRequest() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

type testGateway struct {
	router  http.Handler
	store   *session.MemoryStore
	auth    *stubAuth
	backend *backendRecorder
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	backend := &backendRecorder{}
	backendSrv := httptest.NewServer(backend.handler())
	t.Cleanup(backendSrv.Close)

	proxy, err := NewProxy(ProxyConfig{BaseURL: backendSrv.URL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)

	store := session.NewMemoryStore()
	auth := newStubAuth()
	auth.add(identity.RoleUser, "user@example.com", "UserPass1!")
	auth.add(identity.RoleHost, "host@example.com", "HostPass1!")
	auth.add(identity.RoleAdmin, "admin@example.com", "AdminPass1!")

	sessions := session.NewService(store, auth, audit.NewSlogLogger(), time.Hour)
	h := NewHandler(sessions, proxy, audit.NewSlogLogger(), nil, SessionConfig{
		CookieName:     testCookie,
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		Lifetime:       time.Hour,
	})

	rl := NewRateLimiter(1000, 1000)
	t.Cleanup(rl.Close)

	return &testGateway{
		router:  NewRouter(h, rl, RouterOptions{RequestTimeout: 10 * time.Second}),
		store:   store,
		auth:    auth,
		backend: backend,
	}
}

// do sends a request through the router. State-changing requests carry the
// CSRF header unless withCSRF is false.
func (g *testGateway) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return g.doCSRF(t, method, path, body, cookie, true)
}

func (g *testGateway) doCSRF(t *testing.T, method, path string, body any, cookie *http.Cookie, withCSRF bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if withCSRF {
		req.Header.Set(csrfHeader, "1")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	return rec
}

// login signs in and returns the session cookie
func (g *testGateway) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := g.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: email, Password: password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := sessionCookie(rec)
	require.NotNil(t, c)
	return c
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			found = c
		}
	}
	return found
}

func decodePrincipal(t *testing.T, rec *httptest.ResponseRecorder) PrincipalResponse {
	t.Helper()
	var resp PrincipalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
