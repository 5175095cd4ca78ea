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

package authapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrUnavailable     = errors.New("authentication service unavailable")
	ErrInvalidResponse = errors.New("authentication service returned an invalid response")
)

// Error is a failure reported by the Auth API. Message is safe to show to the
// end user.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth api: %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether the Auth API rejected the credentials.
func (e *Error) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// UserMessage extracts the displayable message from err. Errors that did not
// come from the Auth API map to a generic message.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnavailable) {
		return "authentication service is unavailable, please try again"
	}
	return "authentication failed"
}
