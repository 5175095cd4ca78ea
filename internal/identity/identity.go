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
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors
var (
	ErrIncompleteIdentity = errors.New("identity is missing required fields")
	ErrUnknownRole        = errors.New("unknown role")
)

// Role classifies an identity's position in the marketplace.
// The set is closed: there are no custom or dynamic roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// Roles returns every role in declaration order.
func Roles() []Role {
	return []Role{RoleUser, RoleHost, RoleAdmin}
}

// Valid reports whether r belongs to the role enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleHost, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts an external role tag into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Identity is the currently authenticated actor as reported by the Auth API.
// JSON tags follow the Auth API wire format.
type Identity struct {
	ID           string     `json:"_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	ProfileImage string     `json:"profileImage,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Location     string     `json:"location,omitempty"`
	Rating       *float64   `json:"rating,omitempty"`
	IsVerified   bool       `json:"isVerified,omitempty"`
	IsApproved   bool       `json:"isApproved,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// Validate checks the fields an identity must carry before it can be trusted.
// An identity that fails validation is treated as absent, never partially.
func (i *Identity) Validate() error {
	if i == nil {
		return ErrIncompleteIdentity
	}
	var missing []string
	if strings.TrimSpace(i.ID) == "" {
		missing = append(missing, "_id")
	}
	if strings.TrimSpace(i.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteIdentity, strings.Join(missing, ", "))
	}
	if !i.Role.Valid() {
		return fmt.Errorf("%w: %w %q", ErrIncompleteIdentity, ErrUnknownRole, i.Role)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate session state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Rating != nil {
		r := *i.Rating
		c.Rating = &r
	}
	if i.CreatedAt != nil {
		t := *i.CreatedAt
		c.CreatedAt = &t
	}
	return &c
}
