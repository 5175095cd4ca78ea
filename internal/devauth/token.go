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

package devauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/gatherly/internal/identity"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "gatherly-devauth"

// Claims carried by credential tokens
type Claims struct {
	Email string        `json:"email"`
	Role  identity.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs HS256 credential tokens
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret []byte, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, lifetime: lifetime, now: time.Now}
}

// Issue signs a token for id
func (t *TokenIssuer) Issue(id *identity.Identity) (string, error) {
	now := t.now()
	claims := Claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token issued by t
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
