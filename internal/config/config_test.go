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

package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates defaults applied when no environment is set.
// Scope: Unit Test
// Expected: memory store, Lax cookies, 24h lifetime, Auth API paths populated.
// Test Case ID: CFG-01
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "/auth/login", cfg.AuthAPI.LoginPath)
	assert.Equal(t, "/auth/register", cfg.AuthAPI.RegisterPath)
	assert.Equal(t, 10*time.Second, cfg.AuthAPI.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.Lifetime)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Session.SameSite())
	assert.Equal(t, "gatherly", cfg.Database.User)
}

// TestPurpose: Validates nested environment variable names.
// Scope: Unit Test
// Test Case ID: CFG-02
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUTH_API_BASE_URL", "https://auth.example.com")
	t.Setenv("BACKEND_BASE_URL", "https://api.example.com")
	t.Setenv("SESSION_COOKIE_SAME_SITE", "Strict")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RATELIMIT_BURST", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://auth.example.com", cfg.AuthAPI.BaseURL)
	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Session.SameSite())
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

// TestPurpose: Validates configuration validation rules.
// Scope: Unit Test
// Security: Misconfigured cookies and stores are rejected at startup
// Test Case ID: CFG-03
func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":       {"STORE_DRIVER": "sqlite"},
		"postgres no password": {"STORE_DRIVER": "postgres"},
		"relative auth url":    {"AUTH_API_BASE_URL": "/auth"},
		"bad scheme":           {"BACKEND_BASE_URL": "ftp://files.example.com"},
		"samesite none":        {"SESSION_COOKIE_SAME_SITE": "None"},
		"samesite garbage":     {"SESSION_COOKIE_SAME_SITE": "sometimes"},
		"zero lifetime":        {"SESSION_LIFETIME": "0s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// TestPurpose: Validates that postgres is accepted with a URL.
// Scope: Unit Test
// Test Case ID: CFG-04
func TestLoad_PostgresURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://gatherly:pw@localhost:5432/gatherly?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
}

// TestPurpose: Validates dev Auth API configuration requirements.
// Scope: Unit Test
// Test Case ID: CFG-05
func TestLoadDevAuth(t *testing.T) {
	t.Setenv("DEVAUTH_JWT_SECRET", "short")
	_, err := LoadDevAuth()
	assert.Error(t, err)

	t.Setenv("DEVAUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DEVAUTH_ADMIN_EMAIL", "admin@example.com")
	_, err = LoadDevAuth()
	assert.Error(t, err)

	t.Setenv("DEVAUTH_ADMIN_PASSWORD", "Admin123!")
	cfg, err := LoadDevAuth()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Security.LockoutMaxAttempts)
	assert.Equal(t, uint32(65536), cfg.Security.Argon2Memory)
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr())
}
