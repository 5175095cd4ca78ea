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

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/gatherly/internal/session"
	"github.com/jackc/pgx/v5"
)

// CredentialRepository implements session.Store
type CredentialRepository struct {
	db  *DB
	now func() time.Time
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// Load retrieves credentials by session key
func (r *CredentialRepository) Load(ctx context.Context, key string) (*session.Credentials, error) {
	var (
		creds       session.Credentials
		rawIdentity []byte
	)

	err := r.db.pool.QueryRow(ctx, `
		SELECT key, token, identity, created_at, expires_at
		FROM credentials
		WHERE key = $1
	`, key).Scan(&creds.Key, &creds.Token, &rawIdentity, &creds.CreatedAt, &creds.ExpiresAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	// A record that cannot be decoded is handed back with an empty identity so
	// the session discards it.
	_ = json.Unmarshal(rawIdentity, &creds.Identity)

	return &creds, nil
}

// Save creates or replaces credentials
func (r *CredentialRepository) Save(ctx context.Context, creds *session.Credentials) error {
	rawIdentity, err := json.Marshal(creds.Identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	createdAt := creds.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO credentials (key, token, identity, user_id, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (key) DO UPDATE SET
			token = EXCLUDED.token,
			identity = EXCLUDED.identity,
			user_id = EXCLUDED.user_id,
			role = EXCLUDED.role,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`,
		creds.Key, creds.Token, rawIdentity, creds.Identity.ID, string(creds.Identity.Role),
		createdAt, creds.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}

// Delete deletes credentials by key
func (r *CredentialRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM credentials WHERE key = $1
	`, key)

	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	return nil
}

// DeleteByUserID deletes all credentials for a user
func (r *CredentialRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM credentials WHERE user_id = $1
	`, userID)

	if err != nil {
		return fmt.Errorf("failed to delete user credentials: %w", err)
	}

	return nil
}

// DeleteAll removes every persisted credential, signing all users out
func (r *CredentialRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM credentials`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete credentials: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired deletes all expired credentials
func (r *CredentialRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM credentials WHERE expires_at <= $1
	`, r.now())

	if err != nil {
		return fmt.Errorf("failed to delete expired credentials: %w", err)
	}

	return nil
}

var _ session.Store = (*CredentialRepository)(nil)
