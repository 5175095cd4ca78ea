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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatherly/gatherly/internal/identity"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseBytes = 1 << 20

// Config holds Auth API client configuration
type Config struct {
	BaseURL      string
	LoginPath    string
	RegisterPath string
	Timeout      time.Duration
}

// Registration carries the fields accepted by the register endpoint.
type Registration struct {
	Name     string        `json:"name" validate:"required,min=2,max=100"`
	Email    string        `json:"email" validate:"required,email,max=254"`
	Password string        `json:"password" validate:"required,min=8,max=128"`
	Role     identity.Role `json:"role,omitempty" validate:"omitempty,oneof=user host"`
	Phone    string        `json:"phone,omitempty" validate:"omitempty,max=32"`
	Location string        `json:"location,omitempty" validate:"omitempty,max=200"`
}

// Result is a successful login or registration exchange.
type Result struct {
	Identity identity.Identity `json:"user"`
	Token    string            `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client talks to the external Auth API
type Client struct {
	baseURL      *url.URL
	loginPath    string
	registerPath string
	httpClient   *http.Client
}

// NewClient creates a new Auth API client
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid auth api base url %q", cfg.BaseURL)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	if cfg.RegisterPath == "" {
		cfg.RegisterPath = "/auth/register"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL:      u,
		loginPath:    cfg.LoginPath,
		registerPath: cfg.RegisterPath,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Login exchanges email and password for an identity and credential token
func (c *Client) Login(ctx context.Context, email, password string) (*Result, error) {
	return c.post(ctx, c.loginPath, loginRequest{Email: email, Password: password})
}

// Register creates an account and returns its identity and credential token
func (c *Client) Register(ctx context.Context, reg Registration) (*Result, error) {
	return c.post(ctx, c.registerPath, reg)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, raw)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if strings.TrimSpace(result.Token) == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidResponse)
	}

	return &result, nil
}

func decodeError(status int, raw []byte) error {
	var body errorBody
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		msg = body.Message
		if msg == "" {
			msg = body.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		return errors.Join(ErrUnavailable, &Error{Status: status, Message: msg})
	}
	return &Error{Status: status, Message: msg}
}
