// Copyright 2026 The Sitegen Authors
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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/observability/logger"
)

// AdminScope is the scope an admin token must carry
const AdminScope = "sites:admin"

const tokenIssuer = "sitegen"

// ErrNoAdminSecret is returned when tokens are requested without a secret
var ErrNoAdminSecret = errors.New("admin secret is not configured")

// AdminClaims are the claims of an admin API token
type AdminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 admin token for subject valid for ttl
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoAdminSecret
	}
	if subject == "" {
		return "", errors.New("subject is required")
	}

	now := time.Now()
	claims := AdminClaims{
		Scope: AdminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// AdminMiddleware requires a bearer token signed with the admin secret and
// carrying AdminScope. Without a secret the admin surface is disabled.
func (h *Handler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(h.adminSecret) == 0 {
			respondError(w, http.StatusServiceUnavailable, "admin API is not configured")
			return
		}

		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.parseAdminToken(raw)
		if err != nil {
			slog.WarnContext(r.Context(), "admin token rejected",
				logger.RemoteAddr(getClientIP(r)),
				logger.Error(err),
			)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeAdminTokenRejected,
				Resource:  r.URL.Path,
				IPAddress: getClientIP(r),
				UserAgent: r.UserAgent(),
				Metadata:  map[string]any{"reason": err.Error()},
			})
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if !slices.Contains(strings.Fields(claims.Scope), AdminScope) {
			respondError(w, http.StatusForbidden, "insufficient scope")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) parseAdminToken(raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return h.adminSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
