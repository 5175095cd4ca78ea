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

package authz

import (
	"fmt"

	"github.com/gatherly/gatherly/internal/identity"
)

// -----------------------------------------------------------------------------
// Capability Matrix
// Compiled-in policy. Changing it is a deployment, not a runtime operation.
// -----------------------------------------------------------------------------

var baseCapabilities = []Capability{
	ViewEvents,
	JoinEvents,
	LeaveEvents,
	ViewOwnProfile,
	EditOwnProfile,
	ViewOwnBookings,
}

var hostCapabilities = []Capability{
	CreateEvents,
	EditOwnEvents,
	DeleteOwnEvents,
	ViewOwnEventParticipants,
	ManageOwnEventBookings,
	ReceivePayments,
	ViewOwnEarnings,
}

var adminCapabilities = []Capability{
	ManageUsers,
	ManageEvents,
	ManageHosts,
	ModerateContent,
	ViewAnalytics,
	ApproveHosts,
	ViewSystemStats,
}

// matrix is not a role hierarchy: admin is denied the host tier's event
// operation and payout capabilities and only observes participants.
var matrix = map[identity.Role]CapabilitySet{
	identity.RoleUser: setOf(baseCapabilities...),
	identity.RoleHost: setOf(concat(baseCapabilities, hostCapabilities)...),
	identity.RoleAdmin: setOf(concat(
		baseCapabilities,
		[]Capability{ViewOwnEventParticipants},
		adminCapabilities,
	)...),
}

var displayNames = map[identity.Role]string{
	identity.RoleUser:  "User",
	identity.RoleHost:  "Event Host",
	identity.RoleAdmin: "Administrator",
}

// InvalidRoleError reports a role outside the enumeration reaching the
// matrix. It is a programming error and is raised with panic.
type InvalidRoleError struct {
	Role identity.Role
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("authz: invalid role %q", string(e.Role))
}

// Unwrap lets callers match identity.ErrUnknownRole.
func (e *InvalidRoleError) Unwrap() error {
	return identity.ErrUnknownRole
}

// CapabilitiesFor returns the complete capability set for role.
// It panics with *InvalidRoleError when role is not one of the declared roles.
func CapabilitiesFor(role identity.Role) CapabilitySet {
	set, ok := matrix[role]
	if !ok {
		panic(&InvalidRoleError{Role: role})
	}
	return set
}

// RoleDisplayName returns the presentation label for role.
func RoleDisplayName(role identity.Role) string {
	name, ok := displayNames[role]
	if !ok {
		panic(&InvalidRoleError{Role: role})
	}
	return name
}

func concat(groups ...[]Capability) []Capability {
	var out []Capability
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
