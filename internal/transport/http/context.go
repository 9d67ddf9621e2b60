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

import "context"

type contextKey string

const (
	lookupKeyKey contextKey = "lookup_key"
	hostKey      contextKey = "host"
	subjectKey   contextKey = "subject"
)

// GetLookupKey retrieves the resolved site lookup key from context.
func GetLookupKey(ctx context.Context) string {
	if val, ok := ctx.Value(lookupKeyKey).(string); ok {
		return val
	}
	return ""
}

// GetHost retrieves the raw request host from context.
func GetHost(ctx context.Context) string {
	if val, ok := ctx.Value(hostKey).(string); ok {
		return val
	}
	return ""
}

// GetSubject retrieves the authenticated admin subject from context.
func GetSubject(ctx context.Context) string {
	if val, ok := ctx.Value(subjectKey).(string); ok {
		return val
	}
	return ""
}
