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
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DevAuthConfig configures the local Auth API stand-in
type DevAuthConfig struct {
	Host          string              `split_words:"true" default:"127.0.0.1"`
	Port          string              `split_words:"true" default:"8081"`
	JWTSecret     string              `split_words:"true" required:"true"`
	TokenLifetime time.Duration       `split_words:"true" default:"24h"`
	AdminEmail    string              `split_words:"true"`
	AdminPassword string              `split_words:"true"`
	Security      SecurityConfig
	Observability ObservabilityConfig `envconfig:"OBS"`
}

// SecurityConfig holds password hashing and lockout settings
type SecurityConfig struct {
	Argon2Memory       uint32        `split_words:"true" default:"65536"`
	Argon2Iterations   uint32        `split_words:"true" default:"3"`
	Argon2Parallelism  uint8         `split_words:"true" default:"4"`
	Argon2SaltLength   uint32        `split_words:"true" default:"16"`
	Argon2KeyLength    uint32        `split_words:"true" default:"32"`
	LockoutMaxAttempts int           `split_words:"true" default:"5"`
	LockoutDuration    time.Duration `split_words:"true" default:"15m"`
}

// LoadDevAuth loads DEVAUTH_* variables
func LoadDevAuth() (*DevAuthConfig, error) {
	var cfg DevAuthConfig
	if err := envconfig.Process("DEVAUTH", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("invalid configuration: DEVAUTH_JWT_SECRET must be at least 32 bytes")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("invalid configuration: DEVAUTH_ADMIN_EMAIL and DEVAUTH_ADMIN_PASSWORD must be set together")
	}
	return &cfg, nil
}

// Addr returns the listen address
func (c *DevAuthConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
