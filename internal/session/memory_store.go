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
	"sync"
	"time"
)

// MemoryStore keeps credentials in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Credentials
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Credentials),
		now:     time.Now,
	}
}

// Load retrieves credentials by key
func (m *MemoryStore) Load(ctx context.Context, key string) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	c.Identity = *c.Identity.Clone()
	return &c, nil
}

// Save stores a copy of creds
func (m *MemoryStore) Save(ctx context.Context, creds *Credentials) error {
	c := *creds
	c.Identity = *creds.Identity.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[c.Key] = c
	return nil
}

// Delete removes credentials by key
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// DeleteExpired removes expired records
func (m *MemoryStore) DeleteExpired(ctx context.Context) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.records {
		if c.IsExpired(now) {
			delete(m.records, k)
		}
	}
	return nil
}

// Len returns the number of stored records
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
