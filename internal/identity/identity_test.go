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

package identity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Validates that identities lacking mandatory fields are rejected.
// Scope: Unit Test
// Security: Never partially trust an incomplete principal
// Expected: ErrIncompleteIdentity for missing _id, email, or an unknown role.
// Test Case ID: IDN-01
func TestIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      *Identity
		wantErr bool
	}{
		{"complete", &Identity{ID: "u1", Email: "a@example.com", Role: RoleUser}, false},
		{"nil", nil, true},
		{"missing id", &Identity{Email: "a@example.com", Role: RoleUser}, true},
		{"missing email", &Identity{ID: "u1", Role: RoleHost}, true},
		{"blank id", &Identity{ID: "   ", Email: "a@example.com", Role: RoleUser}, true},
		{"unknown role", &Identity{ID: "u1", Email: "a@example.com", Role: "owner"}, true},
		{"empty role", &Identity{ID: "u1", Email: "a@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrIncompleteIdentity), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestPurpose: Validates role parsing from external tags.
// Scope: Unit Test
// Test Case ID: IDN-02
func TestIdentity_ParseRole(t *testing.T) {
	r, err := ParseRole(" Host ")
	require.NoError(t, err)
	assert.Equal(t, RoleHost, r)

	_, err = ParseRole("moderator")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

// TestPurpose: Validates the Auth API wire format and deep copy semantics.
// Scope: Unit Test
// Test Case ID: IDN-03
func TestIdentity_DecodeAndClone(t *testing.T) {
	raw := `{"_id":"64f0","name":"Ada","email":"ada@example.com","role":"admin","rating":4.5,"isApproved":true}`

	var id Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &id))
	assert.Equal(t, "64f0", id.ID)
	assert.Equal(t, RoleAdmin, id.Role)
	require.NotNil(t, id.Rating)

	c := id.Clone()
	*c.Rating = 1
	c.Name = "changed"
	assert.Equal(t, 4.5, *id.Rating)
	assert.Equal(t, "Ada", id.Name)
	assert.Nil(t, (*Identity)(nil).Clone())
}
