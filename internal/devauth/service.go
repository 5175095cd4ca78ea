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

// Package devauth is a local stand-in for the marketplace Auth API. It keeps
// accounts in memory and issues HS256 credential tokens so the gateway can be
// exercised end to end without the real service.
package devauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/identity"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Domain errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrAccountLocked      = errors.New("account locked")
	ErrRoleNotAllowed     = errors.New("role cannot be self-registered")
	ErrInvalidInput       = errors.New("invalid input")
)

type account struct {
	identity       identity.Identity
	passwordHash   string
	failedAttempts int
	lockedUntil    time.Time
}

// Service authenticates and registers accounts
type Service struct {
	mu       sync.Mutex
	accounts map[string]*account // by lowercased email

	hasher             *PasswordHasher
	tokens             *TokenIssuer
	auditLogger        audit.Logger
	validate           *validator.Validate
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
	now                func() time.Time
}

// Options configures the service
type Options struct {
	Hasher             *PasswordHasher
	Tokens             *TokenIssuer
	AuditLogger        audit.Logger
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
}

// NewService creates a new dev Auth API service
func NewService(opts Options) *Service {
	if opts.LockoutMaxAttempts <= 0 {
		opts.LockoutMaxAttempts = 5
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = 15 * time.Minute
	}
	return &Service{
		accounts:           make(map[string]*account),
		hasher:             opts.Hasher,
		tokens:             opts.Tokens,
		auditLogger:        opts.AuditLogger,
		validate:           validator.New(validator.WithRequiredStructEnabled()),
		lockoutMaxAttempts: opts.LockoutMaxAttempts,
		lockoutDuration:    opts.LockoutDuration,
		now:                time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user or host account and signs it in
func (s *Service) Register(ctx context.Context, reg authapi.Registration) (*authapi.Result, error) {
	if reg.Role == "" {
		reg.Role = identity.RoleUser
	}
	if reg.Role == identity.RoleAdmin {
		return nil, ErrRoleNotAllowed
	}
	if err := s.validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acct := &account{
		identity: identity.Identity{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(reg.Name),
			Email:     normalizeEmail(reg.Email),
			Role:      reg.Role,
			Phone:     reg.Phone,
			Location:  reg.Location,
			CreatedAt: &now,
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	if _, exists := s.accounts[acct.identity.Email]; exists {
		s.mu.Unlock()
		return nil, ErrUserExists
	}
	s.accounts[acct.identity.Email] = acct
	s.mu.Unlock()

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRegistered,
		ActorID:  acct.identity.ID,
		Resource: "user",
		Metadata: map[string]any{
			audit.AttrEmail: acct.identity.Email,
			audit.AttrRole:  string(acct.identity.Role),
		},
	})

	return s.issue(&acct.identity)
}

// Login verifies credentials, applying lockout after repeated failures
func (s *Service) Login(ctx context.Context, email, password string) (*authapi.Result, error) {
	email = normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[email]
	if !ok {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "login",
			Metadata: map[string]any{audit.AttrEmail: email, audit.AttrReason: "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if now.Before(acct.lockedUntil) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  acct.identity.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "locked_out"},
		})
		return nil, ErrAccountLocked
	}

	valid, err := s.hasher.Verify(password, acct.passwordHash)
	if err != nil || !valid {
		acct.failedAttempts++
		if acct.failedAttempts >= s.lockoutMaxAttempts {
			acct.lockedUntil = now.Add(s.lockoutDuration)
			acct.failedAttempts = 0
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeUserLocked,
				ActorID:  acct.identity.ID,
				Resource: "login",
				Metadata: map[string]any{audit.AttrAttempts: s.lockoutMaxAttempts},
			})
		}
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  acct.identity.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "invalid_password"},
		})
		return nil, ErrInvalidCredentials
	}

	acct.failedAttempts = 0
	acct.lockedUntil = time.Time{}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  acct.identity.ID,
		Resource: "login",
	})

	return s.issue(&acct.identity)
}

// SeedAdmin creates an administrator account if none exists for email.
// Administrators cannot self-register.
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	s.mu.Lock()
	_, exists := s.accounts[email]
	s.mu.Unlock()
	if exists {
		return nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if name == "" {
		name = "Administrator"
	}

	now := s.now()
	acct := &account{
		identity: identity.Identity{
			ID:         uuid.NewString(),
			Name:       name,
			Email:      email,
			Role:       identity.RoleAdmin,
			IsVerified: true,
			CreatedAt:  &now,
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; !exists {
		s.accounts[email] = acct
	}
	s.mu.Unlock()

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAdminBootstrap,
		ActorID:  acct.identity.ID,
		Resource: "user",
		Metadata: map[string]any{audit.AttrEmail: email},
	})
	return nil
}

func (s *Service) issue(id *identity.Identity) (*authapi.Result, error) {
	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, err
	}
	return &authapi.Result{Identity: *id.Clone(), Token: token}, nil
}
