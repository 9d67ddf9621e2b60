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

package logger

import "log/slog"

// Common attribute keys for consistent logging across the application

// Request attributes
func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func Host(host string) slog.Attr {
	return slog.String("host", host)
}

func RemoteAddr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

func UserAgent(ua string) slog.Attr {
	return slog.String("user_agent", ua)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

func Duration(ms int64) slog.Attr {
	return slog.Int64("duration_ms", ms)
}

// Site attributes
func Domain(domain string) slog.Attr {
	return slog.String("domain", domain)
}

func LookupKey(key string) slog.Attr {
	return slog.String("lookup_key", key)
}

func SiteID(id string) slog.Attr {
	return slog.String("site_id", id)
}

func BusinessType(t string) slog.Attr {
	return slog.String("business_type", t)
}

func CacheHit(hit bool) slog.Attr {
	return slog.Bool("cache_hit", hit)
}

// Generation attributes
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

func Model(model string) slog.Attr {
	return slog.String("model", model)
}

func AspectRatio(ratio string) slog.Attr {
	return slog.String("aspect_ratio", ratio)
}

func ItemTitle(title string) slog.Attr {
	return slog.String("item_title", title)
}

func ImageURL(url string) slog.Attr {
	return slog.String("image_url", url)
}

// Error attributes
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func ErrorType(errType string) slog.Attr {
	return slog.String("error_type", errType)
}

// Database attributes
func Query(query string) slog.Attr {
	return slog.String("query", query)
}

func RowsAffected(rows int64) slog.Attr {
	return slog.Int64("rows_affected", rows)
}

// Component attributes
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Operation(op string) slog.Attr {
	return slog.String("operation", op)
}

// String creates a generic string attribute
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}
