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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(Options{
		// low-cost parameters keep tests fast
		Hasher:             NewPasswordHasher(1024, 1, 1, 16, 32),
		Tokens:             NewTokenIssuer([]byte(testSecret), time.Hour),
		AuditLogger:        audit.NewSlogLogger(),
		LockoutMaxAttempts: 3,
		LockoutDuration:    time.Minute,
	})
}

// TestPurpose: Validates Argon2id hashing and verification.
// Scope: Unit Test
// Security: Salted hashes, constant-time comparison
// Expected: same password verifies; different password fails; two hashes differ; malformed hashes error.
// Test Case ID: DEV-01
func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(1024, 1, 1, 16, 32)

	a, err := h.Hash("Secret123!")
	require.NoError(t, err)
	b, err := h.Hash("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify("Secret123!", a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("secret123!", a)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$aa$bb", "$argon2id$v=19$garbage$aa$bb"} {
		_, err := h.Verify("x", bad)
		assert.Error(t, err, bad)
	}
}

// TestPurpose: Validates credential token issue and verification.
// Scope: Unit Test
// Expected: claims round trip; expired and foreign-key tokens rejected; gateway reads exp.
// Test Case ID: DEV-02
func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer([]byte(testSecret), time.Hour)
	id := &identity.Identity{ID: "u1", Email: "a@example.com", Role: identity.RoleHost}

	token, err := issuer.Issue(id)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, identity.RoleHost, claims.Role)

	exp, ok := authapi.TokenExpiry(token)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	other := NewTokenIssuer([]byte("another-secret-another-secret-xx"), time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)

	expired := NewTokenIssuer([]byte(testSecret), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(id)
	require.NoError(t, err)
	_, err = issuer.Verify(old)
	assert.Error(t, err)
}

// TestPurpose: Validates registration rules.
// Scope: Unit Test
// Security: No self-registered administrators
// Expected: user and host accepted, admin refused, duplicates refused, short passwords refused.
// Test Case ID: DEV-03
func TestService_Register(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, authapi.Registration{Name: "Hana", Email: "Hana@Example.com", Password: "Secret123!", Role: identity.RoleHost})
	require.NoError(t, err)
	assert.NoError(t, res.Identity.Validate())
	assert.Equal(t, "hana@example.com", res.Identity.Email)
	assert.Equal(t, identity.RoleHost, res.Identity.Role)
	assert.NotEmpty(t, res.Token)

	res, err = svc.Register(ctx, authapi.Registration{Name: "Uma", Email: "uma@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleUser, res.Identity.Role)

	_, err = svc.Register(ctx, authapi.Registration{Name: "Eve", Email: "eve@example.com", Password: "Secret123!", Role: identity.RoleAdmin})
	assert.ErrorIs(t, err, ErrRoleNotAllowed)

	_, err = svc.Register(ctx, authapi.Registration{Name: "Hana", Email: "hana@example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, authapi.Registration{Name: "Sam", Email: "sam@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// TestPurpose: Validates login and lockout.
// Scope: Unit Test
// Security: Brute force protection (CWE-307)
// Expected: lock after 3 failures, correct password refused while locked, accepted afterwards.
// Test Case ID: DEV-04
func TestService_LoginLockout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, authapi.Registration{Name: "Uma", Email: "uma@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "nobody@example.com", "Secret123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(ctx, "uma@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err = svc.Login(ctx, "uma@example.com", "Secret123!")
	assert.ErrorIs(t, err, ErrAccountLocked)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	res, err := svc.Login(ctx, " UMA@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, "uma@example.com", res.Identity.Email)
}

// TestPurpose: Validates administrator seeding.
// Scope: Unit Test
// Expected: seeded admin can log in; seeding twice is a no-op.
// Test Case ID: DEV-05
func TestService_SeedAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmin(ctx, "", "admin@example.com", "AdminPass1!"))
	require.NoError(t, svc.SeedAdmin(ctx, "", "admin@example.com", "changed"))
	require.NoError(t, svc.SeedAdmin(ctx, "", "", ""))

	res, err := svc.Login(ctx, "admin@example.com", "AdminPass1!")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, res.Identity.Role)
	assert.Equal(t, "Administrator", res.Identity.Name)
}

// TestPurpose: Validates that the HTTP surface speaks the wire format the gateway client expects.
// Scope: Integration Test (in-process)
// Expected: client decodes identity and token; failures surface as authapi.Error with displayable messages.
// Test Case ID: DEV-06
func TestRouter_WireCompatibility(t *testing.T) {
	svc := newTestService(t)
	srv := httptest.NewServer(NewRouter(svc))
	t.Cleanup(srv.Close)

	client, err := authapi.NewClient(authapi.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := client.Register(ctx, authapi.Registration{Name: "Hana", Email: "hana@example.com", Password: "Secret123!", Role: identity.RoleHost})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleHost, res.Identity.Role)
	assert.NotEmpty(t, res.Identity.ID)

	res, err = client.Login(ctx, "hana@example.com", "Secret123!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	_, err = client.Login(ctx, "hana@example.com", "nope")
	var apiErr *authapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.Message)

	_, err = client.Register(ctx, authapi.Registration{Name: "Hana", Email: "hana@example.com", Password: "Secret123!"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}
