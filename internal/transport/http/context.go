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
	"context"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/gatherly/gatherly/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores the request's session principal in ctx.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSession retrieves the session principal from context.
func GetSession(ctx context.Context) *session.Session {
	if val, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return val
	}
	return nil
}

// GetIdentity retrieves the authenticated identity from context, nil when
// the request is anonymous.
func GetIdentity(ctx context.Context) *identity.Identity {
	if sess := GetSession(ctx); sess != nil {
		return sess.Identity()
	}
	return nil
}

// GetUserID retrieves the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.ID
	}
	return ""
}
