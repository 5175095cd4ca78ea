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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/google/uuid"
)

// Service opens session principals over a credential store and the Auth API
type Service struct {
	store       Store
	auth        Authenticator
	auditLogger audit.Logger
	lifetime    time.Duration
	now         func() time.Time
	newKey      func() string
}

// NewService creates a new session service
func NewService(store Store, auth Authenticator, auditLogger audit.Logger, lifetime time.Duration) *Service {
	return &Service{
		store:       store,
		auth:        auth,
		auditLogger: auditLogger,
		lifetime:    lifetime,
		now:         time.Now,
		newKey:      uuid.NewString,
	}
}

// Open returns an unresolved session for a persisted key. An empty key is
// allowed and resolves to unauthenticated.
func (s *Service) Open(key string) *Session {
	return &Session{svc: s, key: key, state: StateUnresolved}
}

// Anonymous returns a session that is already unauthenticated.
func (s *Service) Anonymous() *Session {
	return &Session{svc: s, state: StateUnauthenticated}
}

// CleanupExpired purges expired credentials from the store
func (s *Service) CleanupExpired(ctx context.Context) error {
	if err := s.store.DeleteExpired(ctx); err != nil {
		return fmt.Errorf("failed to delete expired credentials: %w", err)
	}
	return nil
}

// expiry bounds the record lifetime by the token's own exp claim when present.
func (s *Service) expiry(token string, now time.Time) time.Time {
	exp := now.Add(s.lifetime)
	if tokenExp, ok := authapi.TokenExpiry(token); ok && tokenExp.Before(exp) {
		exp = tokenExp
	}
	return exp
}

// Session is the principal of one client session. Writers (Resolve, Login,
// Register, Logout) are serialized; readers always see the latest committed
// identity.
type Session struct {
	svc *Service

	writeMu sync.Mutex

	mu        sync.RWMutex
	key       string
	state     State
	principal *identity.Identity
	token     string
}

// Key returns the current session key. It changes on every successful login
// or registration.
func (s *Session) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns a copy of the authenticated identity, nil otherwise.
func (s *Session) Identity() *identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal.Clone()
}

// Token returns the credential token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Resolve reads persisted credentials once. Incomplete or expired records are
// discarded and leave the session unauthenticated without an error.
func (s *Session) Resolve(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State() != StateUnresolved {
		return nil
	}

	key := s.Key()
	if key == "" {
		s.clear()
		return nil
	}

	creds, err := s.svc.store.Load(ctx, key)
	if err != nil {
		s.clear()
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if err := creds.Identity.Validate(); err != nil {
		slog.WarnContext(ctx, "discarding incomplete identity",
			logger.Component("session"),
			logger.UserID(creds.Identity.ID),
			logger.Error(err),
		)
		s.discard(ctx, key, audit.TypeIdentityDiscarded, creds.Identity.ID, err.Error())
		return nil
	}

	if creds.IsExpired(s.svc.now()) {
		s.discard(ctx, key, audit.TypeCredentialsExpired, creds.Identity.ID, ErrCredentialsExpired.Error())
		return nil
	}

	s.set(key, &creds.Identity, creds.Token)
	return nil
}

// Login authenticates against the Auth API and persists the result. Any
// failure leaves the session unauthenticated and is returned to the caller.
func (s *Session) Login(ctx context.Context, email, password string) (*identity.Identity, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.svc.auth.Login(ctx, email, password)
	if err != nil {
		s.svc.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "session",
			Metadata: map[string]any{
				audit.AttrEmail:  email,
				audit.AttrReason: authapi.UserMessage(err),
			},
		})
		s.reset(ctx)
		return nil, err
	}

	return s.establish(ctx, res, audit.TypeLoginSuccess)
}

// Register creates an account through the Auth API and signs it in.
func (s *Session) Register(ctx context.Context, reg authapi.Registration) (*identity.Identity, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.svc.auth.Register(ctx, reg)
	if err != nil {
		s.svc.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeRegisterFailed,
			Resource: "user",
			Metadata: map[string]any{
				audit.AttrEmail:  reg.Email,
				audit.AttrReason: authapi.UserMessage(err),
			},
		})
		s.reset(ctx)
		return nil, err
	}

	return s.establish(ctx, res, audit.TypeRegistered)
}

// Logout removes the persisted credentials and the in-memory identity
// together. If the store cannot delete the record the session is unchanged.
func (s *Session) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	key := s.Key()
	actor := ""
	if id := s.Identity(); id != nil {
		actor = id.ID
	}

	if key != "" {
		if err := s.svc.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete credentials: %w", err)
		}
	}
	s.clear()

	if actor != "" {
		s.svc.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLogout,
			ActorID:  actor,
			Resource: "session",
		})
	}
	return nil
}

func (s *Session) establish(ctx context.Context, res *authapi.Result, eventType string) (*identity.Identity, error) {
	principal := res.Identity.Clone()
	if err := principal.Validate(); err != nil {
		s.svc.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeIdentityDiscarded,
			ActorID:  principal.ID,
			Resource: "session",
			Metadata: map[string]any{audit.AttrReason: err.Error()},
		})
		s.reset(ctx)
		return nil, fmt.Errorf("%w: %w", authapi.ErrInvalidResponse, err)
	}

	now := s.svc.now()
	creds := &Credentials{
		Key:       s.svc.newKey(),
		Token:     res.Token,
		Identity:  *principal,
		CreatedAt: now,
		ExpiresAt: s.svc.expiry(res.Token, now),
	}
	if creds.IsExpired(now) {
		s.reset(ctx)
		return nil, fmt.Errorf("%w: %w", authapi.ErrInvalidResponse, ErrCredentialsExpired)
	}

	if err := s.svc.store.Save(ctx, creds); err != nil {
		s.reset(ctx)
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	previous := s.Key()
	s.set(creds.Key, principal, creds.Token)

	// The previous key is retired so a pre-login key cannot be replayed.
	if previous != "" && previous != creds.Key {
		if err := s.svc.store.Delete(ctx, previous); err != nil {
			slog.WarnContext(ctx, "failed to retire previous session key",
				logger.Component("session"),
				logger.Error(err),
			)
		}
	}

	s.svc.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  principal.ID,
		Resource: "session",
		Metadata: map[string]any{audit.AttrRole: string(principal.Role)},
	})

	return principal.Clone(), nil
}

// reset drops any persisted record for the current key and clears state.
func (s *Session) reset(ctx context.Context) {
	if key := s.Key(); key != "" {
		if err := s.svc.store.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "failed to delete credentials",
				logger.Component("session"),
				logger.Error(err),
			)
		}
	}
	s.clear()
}

func (s *Session) discard(ctx context.Context, key, eventType, actorID, reason string) {
	if err := s.svc.store.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to delete discarded credentials",
			logger.Component("session"),
			logger.Error(err),
		)
	}
	s.svc.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  actorID,
		Resource: "session",
		Metadata: map[string]any{audit.AttrReason: reason},
	})
	s.clear()
}

func (s *Session) set(key string, principal *identity.Identity, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.state = StateAuthenticated
	s.principal = principal.Clone()
	s.token = token
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	s.state = StateUnauthenticated
	s.principal = nil
	s.token = ""
}
