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

// Package redisstore persists session credentials in Redis. Each record is a
// single JSON value whose TTL tracks the credential expiry.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/gatherly/internal/session"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "gatherly:credentials:"

// Config holds Redis connection configuration
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Connect creates a client and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	return client, nil
}

// Store implements session.Store on Redis
type Store struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// New creates a store over an existing client
func New(client redis.Cmdable, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

func (s *Store) redisKey(key string) string {
	return s.prefix + key
}

// Load retrieves credentials by session key
func (s *Store) Load(ctx context.Context, key string) (*session.Credentials, error) {
	payload, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("redisstore: get: %w", err)
	}

	var creds session.Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		// Undecodable payloads are dropped rather than surfaced.
		_ = s.client.Del(ctx, s.redisKey(key)).Err()
		return nil, session.ErrNotFound
	}
	creds.Key = key
	return &creds, nil
}

// Save writes credentials with a TTL matching their expiry
func (s *Store) Save(ctx context.Context, creds *session.Credentials) error {
	var ttl time.Duration
	if !creds.ExpiresAt.IsZero() {
		ttl = creds.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return session.ErrCredentialsExpired
		}
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("redisstore: encode: %w", err)
	}

	if err := s.client.Set(ctx, s.redisKey(creds.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set: %w", err)
	}
	return nil
}

// Delete removes credentials by key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: del: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts records when their TTL elapses.
func (s *Store) DeleteExpired(ctx context.Context) error {
	return nil
}

var _ session.Store = (*Store)(nil)
