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

import "github.com/gatherly/gatherly/internal/identity"

// HasCapability reports whether id may perform c.
// A nil identity is unauthenticated and holds no capability. The function is
// pure and safe for concurrent use.
func HasCapability(id *identity.Identity, c Capability) bool {
	if id == nil {
		return false
	}
	return CapabilitiesFor(id.Role).Has(c)
}

// HasAny reports whether id holds at least one of caps.
func HasAny(id *identity.Identity, caps ...Capability) bool {
	for _, c := range caps {
		if HasCapability(id, c) {
			return true
		}
	}
	return false
}

// HasAll reports whether id holds every one of caps.
func HasAll(id *identity.Identity, caps ...Capability) bool {
	if id == nil {
		return false
	}
	for _, c := range caps {
		if !HasCapability(id, c) {
			return false
		}
	}
	return true
}

// IsRole reports whether id has exactly role.
func IsRole(id *identity.Identity, role identity.Role) bool {
	return id != nil && id.Role == role
}

// CapabilitiesOf returns the capability set for id, all false when id is nil.
func CapabilitiesOf(id *identity.Identity) CapabilitySet {
	if id == nil {
		return CapabilitySet{}
	}
	return CapabilitiesFor(id.Role)
}
