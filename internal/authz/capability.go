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
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrUnknownCapability = errors.New("unknown capability")
)

// Capability names a single permission flag gating an action.
type Capability uint8

// Base tier: every authenticated identity.
const (
	ViewEvents Capability = iota
	JoinEvents
	LeaveEvents
	ViewOwnProfile
	EditOwnProfile
	ViewOwnBookings

	// Host tier
	CreateEvents
	EditOwnEvents
	DeleteOwnEvents
	ViewOwnEventParticipants
	ManageOwnEventBookings
	ReceivePayments
	ViewOwnEarnings

	// Admin tier
	ManageUsers
	ManageEvents
	ManageHosts
	ModerateContent
	ViewAnalytics
	ApproveHosts
	ViewSystemStats

	capabilityCount
)

// Tier groups capabilities for presentation and policy review.
type Tier string

const (
	TierBase  Tier = "base"
	TierHost  Tier = "host"
	TierAdmin Tier = "admin"
)

var capabilityNames = [capabilityCount]string{
	ViewEvents:               "viewEvents",
	JoinEvents:               "joinEvents",
	LeaveEvents:              "leaveEvents",
	ViewOwnProfile:           "viewOwnProfile",
	EditOwnProfile:           "editOwnProfile",
	ViewOwnBookings:          "viewOwnBookings",
	CreateEvents:             "createEvents",
	EditOwnEvents:            "editOwnEvents",
	DeleteOwnEvents:          "deleteOwnEvents",
	ViewOwnEventParticipants: "viewOwnEventParticipants",
	ManageOwnEventBookings:   "manageOwnEventBookings",
	ReceivePayments:          "receivePayments",
	ViewOwnEarnings:          "viewOwnEarnings",
	ManageUsers:              "manageUsers",
	ManageEvents:             "manageEvents",
	ManageHosts:              "manageHosts",
	ModerateContent:          "moderateContent",
	ViewAnalytics:            "viewAnalytics",
	ApproveHosts:             "approveHosts",
	ViewSystemStats:          "viewSystemStats",
}

// Valid reports whether c is one of the declared capabilities.
func (c Capability) Valid() bool {
	return c < capabilityCount
}

func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Capability(%d)", uint8(c))
	}
	return capabilityNames[c]
}

// Tier returns the tier c is declared in.
func (c Capability) Tier() Tier {
	switch {
	case c <= ViewOwnBookings:
		return TierBase
	case c <= ViewOwnEarnings:
		return TierHost
	default:
		return TierAdmin
	}
}

// MarshalText encodes c by name.
func (c Capability) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCapability, uint8(c))
	}
	return []byte(capabilityNames[c]), nil
}

// UnmarshalText decodes a capability name.
func (c *Capability) UnmarshalText(text []byte) error {
	parsed, err := ParseCapability(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCapability looks a capability up by name. Matching ignores case.
func ParseCapability(name string) (Capability, error) {
	name = strings.TrimSpace(name)
	for i, n := range capabilityNames {
		if strings.EqualFold(n, name) {
			return Capability(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
}

// AllCapabilities returns every capability in declaration order.
func AllCapabilities() []Capability {
	all := make([]Capability, capabilityCount)
	for i := range all {
		all[i] = Capability(i)
	}
	return all
}

// CapabilitySet holds one flag per capability. Being a fixed-size array it is
// total by construction and copied on assignment.
type CapabilitySet [capabilityCount]bool

// Has reports the flag for c. Undeclared capabilities are never granted.
func (s CapabilitySet) Has(c Capability) bool {
	if !c.Valid() {
		return false
	}
	return s[c]
}

// Granted lists the capabilities set to true.
func (s CapabilitySet) Granted() []Capability {
	var out []Capability
	for i, ok := range s {
		if ok {
			out = append(out, Capability(i))
		}
	}
	return out
}

// Map returns the set keyed by capability name, as served to clients.
func (s CapabilitySet) Map() map[string]bool {
	m := make(map[string]bool, capabilityCount)
	for i, ok := range s {
		m[capabilityNames[i]] = ok
	}
	return m
}

func setOf(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s[c] = true
	}
	return s
}
