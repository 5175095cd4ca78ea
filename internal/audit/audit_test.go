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

package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPurpose: Validates that sensitive keys are correctly identified as secrets to prevent them from being logged in plaintext.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys containing 'password', 'token', 'secret', etc., and false for non-sensitive keys.
// Test Case ID: AUD-01
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"token", true},
		{"credential_token", true},
		{"secret", true},
		{"api_key", true},
		{"password_hash", true},
		{"authorization", true},
		{"user_id", false},
		{"email", false},
		{"role", false},
		{"capability", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}

// TestPurpose: Validates that audit records never carry credential tokens.
// Scope: Unit Test
// Security: Data Masking (CWE-532)
// Expected: Token metadata is replaced with [REDACTED], other metadata is kept.
// Test Case ID: AUD-02
func TestAudit_Log_RedactsMetadata(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLoggerWith(slog.New(slog.NewJSONHandler(&buf, nil)))

	l.Log(context.Background(), Event{
		Type:     TypeLoginSuccess,
		ActorID:  "user-1",
		Resource: "session",
		Metadata: map[string]any{"token": "eyJhbGciOi", AttrRole: "host"},
	})

	out := buf.String()
	assert.Contains(t, out, `"audit_type":"login_success"`)
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "eyJhbGciOi")
	assert.Contains(t, out, `"role":"host"`)
}
