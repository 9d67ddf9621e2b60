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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/resolver"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			slog.InfoContext(r.Context(), "http_request_start",
				logger.RequestID(middleware.GetReqID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Host(r.Host),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request_end",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.Host(r.Host),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// LongRunningMiddleware gives a route budget as both its request timeout and
// its write deadline, overriding the server-wide WriteTimeout.
func LongRunningMiddleware(budget time.Duration) func(next http.Handler) http.Handler {
	timeout := middleware.Timeout(budget)
	return func(next http.Handler) http.Handler {
		inner := timeout(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := http.NewResponseController(w).SetWriteDeadline(time.Now().Add(budget)); err != nil {
				slog.WarnContext(r.Context(), "cannot extend write deadline",
					logger.Path(r.URL.Path), logger.Error(err))
			}
			inner.ServeHTTP(w, r)
		})
	}
}

// SiteMiddleware resolves the request host into a lookup key.
// X-Forwarded-Host wins over Host so the service can sit behind a proxy.
func SiteMiddleware(res *resolver.Resolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := requestHost(r)
			key := res.Resolve(host)

			slog.DebugContext(r.Context(), "host resolved",
				logger.Host(host),
				logger.LookupKey(key),
			)

			ctx := context.WithValue(r.Context(), hostKey, host)
			ctx = context.WithValue(ctx, lookupKeyKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestHost(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		// First hop only
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	return r.Host
}
