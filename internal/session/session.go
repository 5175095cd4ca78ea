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

package session

import (
	"context"
	"errors"
	"time"

	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/identity"
)

// Domain errors
var (
	ErrNotFound           = errors.New("credentials not found")
	ErrCredentialsExpired = errors.New("credentials expired")
)

// State is the lifecycle position of a session principal.
type State int

const (
	// StateUnresolved means persisted credentials have not been checked yet.
	StateUnresolved State = iota
	// StateUnauthenticated means there is no trusted identity.
	StateUnauthenticated
	// StateAuthenticated means an identity has been validated and is held.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Credentials is the persisted form of an authenticated session. Token and
// identity are stored in one record so they are written and removed together.
type Credentials struct {
	Key       string            `json:"key"`
	Token     string            `json:"token"`
	Identity  identity.Identity `json:"identity"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// IsExpired checks if the credentials have expired
func (c *Credentials) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store defines the interface for credential persistence
type Store interface {
	// Load retrieves credentials by session key, ErrNotFound if absent
	Load(ctx context.Context, key string) (*Credentials, error)

	// Save creates or replaces credentials for creds.Key
	Save(ctx context.Context, creds *Credentials) error

	// Delete removes credentials; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes every expired record
	DeleteExpired(ctx context.Context) error
}

// Authenticator is the external Auth API as seen by the session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*authapi.Result, error)
	Register(ctx context.Context, reg authapi.Registration) (*authapi.Result, error)
}
