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
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatherly/gatherly/internal/store/postgres"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds all gateway configuration
type Config struct {
	Server        ServerConfig        `envconfig:"SERVER"`
	AuthAPI       AuthAPIConfig       `envconfig:"AUTH_API"`
	Backend       BackendConfig       `envconfig:"BACKEND"`
	Session       SessionConfig       `envconfig:"SESSION"`
	Store         StoreConfig         `envconfig:"STORE"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Redis         RedisConfig         `envconfig:"REDIS"`
	Observability ObservabilityConfig `envconfig:"OBS"`
	RateLimit     RateLimitConfig     `envconfig:"RATELIMIT"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `split_words:"true" default:"0.0.0.0"`
	Port            string        `split_words:"true" default:"8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"35s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	RequestTimeout  time.Duration `split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	// StaticDir, when set, is served as the web client for non-API paths
	StaticDir   string `split_words:"true"`
	Development bool   `split_words:"true" default:"false"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// AuthAPIConfig holds the external Auth API settings
type AuthAPIConfig struct {
	BaseURL      string        `split_words:"true" default:"http://localhost:8081"`
	LoginPath    string        `split_words:"true" default:"/auth/login"`
	RegisterPath string        `split_words:"true" default:"/auth/register"`
	Timeout      time.Duration `split_words:"true" default:"10s"`
}

// BackendConfig holds the marketplace backend API settings
type BackendConfig struct {
	BaseURL string        `split_words:"true" default:"http://localhost:5000"`
	Timeout time.Duration `split_words:"true" default:"30s"`
}

// SessionConfig holds session management configuration
type SessionConfig struct {
	CookieName      string        `split_words:"true" default:"gatherly_session"`
	CookieDomain    string        `split_words:"true"`
	CookiePath      string        `split_words:"true" default:"/"`
	CookieSecure    bool          `split_words:"true" default:"false"`
	CookieSameSite  string        `split_words:"true" default:"Lax"`
	Lifetime        time.Duration `split_words:"true" default:"24h"`
	CleanupInterval time.Duration `split_words:"true" default:"15m"`
}

// SameSite maps CookieSameSite to its http constant
func (s SessionConfig) SameSite() http.SameSite {
	switch strings.ToLower(s.CookieSameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// StoreConfig selects the credential store backend
type StoreConfig struct {
	Driver string `split_words:"true" default:"memory"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL          string `split_words:"true"`
	Host         string `split_words:"true" default:"localhost"`
	Port         string `split_words:"true" default:"5432"`
	User         string `split_words:"true" default:"gatherly"`
	Password     string `split_words:"true"`
	Name         string `split_words:"true" default:"gatherly"`
	SSLMode      string `split_words:"true" default:"disable"`
	MaxOpenConns int    `split_words:"true" default:"25"`
	MaxIdleConns int    `split_words:"true" default:"5"`
}

// Postgres converts the settings for the postgres store
func (d DatabaseConfig) Postgres() postgres.Config {
	return postgres.Config{
		URL:          d.URL,
		Host:         d.Host,
		Port:         d.Port,
		User:         d.User,
		Password:     d.Password,
		Database:     d.Name,
		SSLMode:      d.SSLMode,
		MaxOpenConns: d.MaxOpenConns,
		MaxIdleConns: d.MaxIdleConns,
	}
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `split_words:"true" default:"127.0.0.1:6379"`
	Password string `split_words:"true"`
	DB       int    `split_words:"true" default:"0"`
	Prefix   string `split_words:"true" default:"gatherly:credentials:"`
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"json"`
	OTELEnabled    bool   `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"gatherly-gateway"`
	ServiceVersion string `envconfig:"OTEL_SERVICE_VERSION" default:"0.1.0"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `split_words:"true" default:"10"`
	Burst             int     `split_words:"true" default:"20"`
	AuthPerMinute     int     `split_words:"true" default:"10"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if err := validateBaseURL("AUTH_API_BASE_URL", c.AuthAPI.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateBaseURL("BACKEND_BASE_URL", c.Backend.BaseURL); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD or DB_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of memory, postgres, redis, got %q", c.Store.Driver))
	}

	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("SESSION_LIFETIME must be positive"))
	}
	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME is required"))
	}
	switch strings.ToLower(c.Session.CookieSameSite) {
	case "lax", "strict":
	case "none":
		if !c.Session.CookieSecure {
			errs = append(errs, errors.New("SESSION_COOKIE_SAME_SITE=None requires SESSION_COOKIE_SECURE"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_COOKIE_SAME_SITE must be Lax, Strict or None, got %q", c.Session.CookieSameSite))
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATELIMIT_REQUESTS_PER_SECOND and RATELIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	return nil
}
