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

package http

import (
	"net/http"

	"github.com/gatherly/gatherly/internal/authz"
)

// Route is a guarded marketplace endpoint proxied to the backend API. Access
// is granted when the caller holds any of AnyOf.
type Route struct {
	Method  string
	Pattern string
	AnyOf   []authz.Capability
}

func route(method, pattern string, anyOf ...authz.Capability) Route {
	return Route{Method: method, Pattern: pattern, AnyOf: anyOf}
}

// MarketplaceRoutes lists every guarded route under /api/v1.
func MarketplaceRoutes() []Route {
	return []Route{
		// Events
		route(http.MethodGet, "/events", authz.ViewEvents),
		route(http.MethodGet, "/events/{eventID}", authz.ViewEvents),
		route(http.MethodPost, "/events", authz.CreateEvents),
		route(http.MethodPut, "/events/{eventID}", authz.EditOwnEvents, authz.ManageEvents),
		route(http.MethodDelete, "/events/{eventID}", authz.DeleteOwnEvents, authz.ManageEvents),
		route(http.MethodPost, "/events/{eventID}/join", authz.JoinEvents),
		route(http.MethodPost, "/events/{eventID}/leave", authz.LeaveEvents),
		route(http.MethodGet, "/events/{eventID}/participants", authz.ViewOwnEventParticipants),
		route(http.MethodPost, "/events/{eventID}/reviews", authz.JoinEvents),

		// Bookings and payments
		route(http.MethodGet, "/bookings", authz.ViewOwnBookings),
		route(http.MethodGet, "/bookings/{bookingID}", authz.ViewOwnBookings),
		route(http.MethodPost, "/bookings", authz.JoinEvents),
		route(http.MethodPost, "/payments/intents", authz.JoinEvents),
		route(http.MethodPost, "/payments/confirm", authz.JoinEvents),

		// Profile
		route(http.MethodGet, "/profile", authz.ViewOwnProfile),
		route(http.MethodPut, "/profile", authz.EditOwnProfile),

		// Host dashboard
		route(http.MethodGet, "/host/events", authz.EditOwnEvents),
		route(http.MethodGet, "/host/bookings", authz.ManageOwnEventBookings),
		route(http.MethodPut, "/host/bookings/{bookingID}", authz.ManageOwnEventBookings),
		route(http.MethodGet, "/host/earnings", authz.ViewOwnEarnings),
		route(http.MethodGet, "/host/payouts", authz.ReceivePayments),

		// Admin dashboard
		route(http.MethodGet, "/admin/users", authz.ManageUsers),
		route(http.MethodPut, "/admin/users/{userID}", authz.ManageUsers),
		route(http.MethodDelete, "/admin/users/{userID}", authz.ManageUsers),
		route(http.MethodGet, "/admin/events", authz.ManageEvents),
		route(http.MethodPut, "/admin/events/{eventID}", authz.ManageEvents),
		route(http.MethodDelete, "/admin/events/{eventID}", authz.ManageEvents),
		route(http.MethodGet, "/admin/hosts", authz.ManageHosts),
		route(http.MethodPost, "/admin/hosts/{userID}/approve", authz.ApproveHosts),
		route(http.MethodGet, "/admin/moderation", authz.ModerateContent),
		route(http.MethodPost, "/admin/moderation/{itemID}", authz.ModerateContent),
		route(http.MethodGet, "/admin/analytics", authz.ViewAnalytics),
		route(http.MethodGet, "/admin/stats", authz.ViewSystemStats),
	}
}
