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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skaild/sitegen/internal/content"
	"github.com/skaild/sitegen/internal/imagegen"
	"github.com/skaild/sitegen/internal/render"
	"github.com/skaild/sitegen/internal/resolver"
	"github.com/skaild/sitegen/internal/site"
)

const testSecret = "test-admin-secret"

type mockSites struct {
	mock.Mock
}

func (m *mockSites) Load(ctx context.Context, key string) (*site.Config, error) {
	args := m.Called(ctx, key)
	cfg, _ := args.Get(0).(*site.Config)
	return cfg, args.Error(1)
}

func (m *mockSites) Generate(ctx context.Context, key string, force bool) (*site.GenerationResult, error) {
	args := m.Called(ctx, key, force)
	res, _ := args.Get(0).(*site.GenerationResult)
	return res, args.Error(1)
}

func (m *mockSites) ResetContent(ctx context.Context, key, actorID string) error {
	return m.Called(ctx, key, actorID).Error(0)
}

type fakeImages struct {
	url  string
	err  error
	last imagegen.Request
}

func (f *fakeImages) Generate(_ context.Context, req imagegen.Request) (string, error) {
	f.last = req
	return f.url, f.err
}

func newTestRouter(t *testing.T, sites SiteService, images ImageGenerator, secret string) *chi.Mux {
	t.Helper()
	return newTestRouterWith(t, sites, images, secret, NewRateLimiter(1000, 1000), Options{})
}

func newTestRouterWith(t *testing.T, sites SiteService, images ImageGenerator, secret string, rl *RateLimiter, opts Options) *chi.Mux {
	t.Helper()
	renderer, err := render.New(render.Options{})
	require.NoError(t, err)

	res := resolver.New(resolver.Config{BaseDomain: "skaild.com", FallbackKey: "plumber.skaild.com"})
	h := NewHandler(sites, res, renderer, images, nil, secret, opts)

	t.Cleanup(rl.Close)
	return NewRouter(h, rl)
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := IssueAdminToken(testSecret, "ops@skaild.com", time.Hour)
	require.NoError(t, err)
	return token
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestPurpose: Validates the liveness endpoint.
func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, &mockSites{}, nil, "")

	w := do(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

// TestPurpose: Validates that the landing page is rendered for the site resolved from the Host header.
func TestServeSite_RendersResolvedSite(t *testing.T) {
	sites := &mockSites{}
	sites.On("Load", mock.Anything, "plumber.skaild.com").
		Return(site.DefaultConfig("plumber.skaild.com"), nil)
	router := newTestRouter(t, sites, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "Plumber.Skaild.com:8080"
	w := do(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Pro Plumbing")
	sites.AssertExpectations(t)
}

// TestPurpose: Validates that X-Forwarded-Host takes precedence over Host.
func TestServeSite_UsesForwardedHost(t *testing.T) {
	sites := &mockSites{}
	sites.On("Load", mock.Anything, "sparky.skaild.com").
		Return(site.DefaultConfig("sparky.skaild.com"), nil)
	router := newTestRouter(t, sites, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "internal:8080"
	req.Header.Set("X-Forwarded-Host", "sparky.skaild.com, proxy.local")
	w := do(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	sites.AssertExpectations(t)
}

// TestPurpose: Validates that an unknown host gets the not-found page naming the host.
func TestServeSite_NotFound(t *testing.T) {
	sites := &mockSites{}
	sites.On("Load", mock.Anything, "unknown.example.org").Return(nil, site.ErrSiteNotFound)
	router := newTestRouter(t, sites, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.example.org"
	w := do(router, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Site not found")
	assert.Contains(t, w.Body.String(), "unknown.example.org")
}

// TestPurpose: Validates that load failures render a generic error page without internal details.
func TestServeSite_LoadError(t *testing.T) {
	sites := &mockSites{}
	sites.On("Load", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	router := newTestRouter(t, sites, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "plumber.skaild.com"
	w := do(router, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Error loading site configuration")
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

// TestPurpose: Validates the JSON config endpoint and its not-found mapping.
func TestGetSiteConfig(t *testing.T) {
	sites := &mockSites{}
	sites.On("Load", mock.Anything, "plumber.skaild.com").
		Return(site.DefaultConfig("plumber.skaild.com"), nil)
	sites.On("Load", mock.Anything, "gone.skaild.com").Return(nil, site.ErrSiteNotFound)
	router := newTestRouter(t, sites, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/site", nil)
	req.Host = "plumber.skaild.com"
	w := do(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	var cfg site.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "Pro Plumbing", cfg.Business.Name)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/site", nil)
	req.Host = "gone.skaild.com"
	w = do(router, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"site not found"}`, w.Body.String())
}

// TestPurpose: Validates admin authentication outcomes.
func TestAdminMiddleware(t *testing.T) {
	wrongScope, err := jwtWithScope(testSecret, "sites:read")
	require.NoError(t, err)
	otherSecret, err := IssueAdminToken("another-secret", "ops", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		auth   string
		want   int
	}{
		{"disabled without secret", "", "Bearer " + adminToken(t), http.StatusServiceUnavailable},
		{"missing token", testSecret, "", http.StatusUnauthorized},
		{"not a bearer", testSecret, "Basic abc", http.StatusUnauthorized},
		{"garbage token", testSecret, "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong signing secret", testSecret, "Bearer " + otherSecret, http.StatusUnauthorized},
		{"missing scope", testSecret, "Bearer " + wrongScope, http.StatusForbidden},
		{"valid", testSecret, "Bearer " + adminToken(t), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sites := &mockSites{}
			sites.On("Load", mock.Anything, "plumber.skaild.com").
				Return(site.DefaultConfig("plumber.skaild.com"), nil).Maybe()
			router := newTestRouter(t, sites, nil, tt.secret)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/sites/plumber.skaild.com", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := do(router, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func jwtWithScope(secret, scope string) (string, error) {
	claims := AdminClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// TestPurpose: Validates that issued tokens round-trip through the parser with subject and scope.
func TestIssueAdminToken(t *testing.T) {
	token := adminToken(t)
	h := &Handler{adminSecret: []byte(testSecret)}

	claims, err := h.parseAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@skaild.com", claims.Subject)
	assert.Equal(t, AdminScope, claims.Scope)

	_, err = IssueAdminToken("", "ops", time.Hour)
	assert.ErrorIs(t, err, ErrNoAdminSecret)

	expired, err := IssueAdminToken(testSecret, "ops", -time.Minute)
	require.NoError(t, err)
	_, err = h.parseAdminToken(expired)
	assert.Error(t, err)
}

// TestPurpose: Validates synchronous generation, including the force flag and the conflict mapping.
func TestGenerateContent(t *testing.T) {
	sites := &mockSites{}
	sites.On("Generate", mock.Anything, "plumber.skaild.com", true).
		Return(&site.GenerationResult{Persisted: true, ImageFailures: 1}, nil)
	sites.On("Generate", mock.Anything, "busy.skaild.com", false).
		Return(nil, content.ErrInProgress)
	sites.On("Generate", mock.Anything, "gone.skaild.com", false).
		Return(nil, site.ErrSiteNotFound)
	router := newTestRouter(t, sites, nil, testSecret)

	post := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+adminToken(t))
		return do(router, req)
	}

	w := post("/api/v1/sites/Plumber.skaild.com/generate?force=true")
	require.Equal(t, http.StatusOK, w.Code)
	var resp GenerationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Persisted)
	assert.Equal(t, 1, resp.ImageFailures)
	assert.Equal(t, "plumber.skaild.com", resp.Domain)

	assert.Equal(t, http.StatusConflict, post("/api/v1/sites/busy.skaild.com/generate").Code)
	assert.Equal(t, http.StatusNotFound, post("/api/v1/sites/gone.skaild.com/generate").Code)
	sites.AssertExpectations(t)
}

// TestPurpose: Validates that content reset passes the token subject as actor.
func TestResetContent(t *testing.T) {
	sites := &mockSites{}
	sites.On("ResetContent", mock.Anything, "plumber.skaild.com", "ops@skaild.com").Return(nil)
	router := newTestRouter(t, sites, nil, testSecret)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sites/plumber.skaild.com/content", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	w := do(router, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	sites.AssertExpectations(t)
}

// TestPurpose: Validates the image endpoint contract for success, bad input and upstream failure.
func TestGenerateImage(t *testing.T) {
	post := func(router http.Handler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/generate-image", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+adminToken(t))
		return do(router, req)
	}

	t.Run("success", func(t *testing.T) {
		images := &fakeImages{url: "https://cdn.fal.media/a.png"}
		router := newTestRouter(t, &mockSites{}, images, testSecret)

		w := post(router, `{"prompt":"a red van","aspectRatio":"16:9"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"imageUrl":"https://cdn.fal.media/a.png","success":true}`, w.Body.String())
		assert.Equal(t, imagegen.Wide, images.last.AspectRatio)
	})

	t.Run("default aspect ratio", func(t *testing.T) {
		images := &fakeImages{url: "u"}
		router := newTestRouter(t, &mockSites{}, images, testSecret)

		w := post(router, `{"prompt":"a red van"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, imagegen.Square, images.last.AspectRatio)
	})

	t.Run("invalid aspect ratio", func(t *testing.T) {
		router := newTestRouter(t, &mockSites{}, &fakeImages{}, testSecret)
		assert.Equal(t, http.StatusBadRequest, post(router, `{"prompt":"x","aspectRatio":"2:1"}`).Code)
	})

	t.Run("missing prompt", func(t *testing.T) {
		router := newTestRouter(t, &mockSites{}, &fakeImages{}, testSecret)
		assert.Equal(t, http.StatusBadRequest, post(router, `{"aspectRatio":"1:1"}`).Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		router := newTestRouter(t, &mockSites{}, &fakeImages{err: imagegen.ErrNoImage}, testSecret)

		w := post(router, `{"prompt":"x"}`)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Failed to generate image", body["error"])
		assert.Equal(t, imagegen.ErrNoImage.Error(), body["details"])
	})

	t.Run("not configured", func(t *testing.T) {
		router := newTestRouter(t, &mockSites{}, nil, testSecret)
		assert.Equal(t, http.StatusServiceUnavailable, post(router, `{"prompt":"x"}`).Code)
	})
}

// TestPurpose: Validates per-IP rate limiting.
func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Close()

	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	assert.Equal(t, http.StatusOK, do(handler, req).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(handler, req).Code)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "192.0.2.2:1234"
	assert.Equal(t, http.StatusOK, do(handler, other).Code)
}

// TestPurpose: Validates that forwarding headers only count behind a trusted proxy.
// Scope: Unit Test
// Expected: Rotating X-Forwarded-For does not bypass the limiter by default;
// with TrustProxy each forwarded client gets its own bucket.
func TestRateLimit_ForwardedFor(t *testing.T) {
	health := func(router http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", forwarded)
		return do(router, req).Code
	}

	t.Run("untrusted", func(t *testing.T) {
		router := newTestRouterWith(t, &mockSites{}, nil, testSecret, NewRateLimiter(0.001, 1), Options{})
		assert.Equal(t, http.StatusOK, health(router, "203.0.113.1"))
		assert.Equal(t, http.StatusTooManyRequests, health(router, "203.0.113.2"))
	})

	t.Run("trusted proxy", func(t *testing.T) {
		router := newTestRouterWith(t, &mockSites{}, nil, testSecret, NewRateLimiter(0.001, 1), Options{TrustProxy: true})
		assert.Equal(t, http.StatusOK, health(router, "203.0.113.1"))
		assert.Equal(t, http.StatusOK, health(router, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, health(router, "203.0.113.1"))
	})
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.RemoteAddr = "192.0.2.7"
	assert.Equal(t, "192.0.2.7", getClientIP(req))
}

// TestPurpose: Validates that an admin generation pass is not tied to the request lifetime.
// Scope: Unit Test
// Expected: The service sees a live context with the generation budget even when
// the client has already gone away.
func TestGenerateContent_OutlivesRequest(t *testing.T) {
	sites := &mockSites{}
	live := mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ctx.Err() == nil && ok && time.Until(deadline) > 5*time.Minute
	})
	sites.On("Generate", live, "plumber.skaild.com", false).
		Return(&site.GenerationResult{Persisted: true}, nil)
	router := newTestRouterWith(t, sites, nil, testSecret, NewRateLimiter(1000, 1000),
		Options{GenerationTimeout: 10 * time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/plumber.skaild.com/generate", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))

	w := do(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
	sites.AssertExpectations(t)
}

// TestPurpose: Validates that long-running routes are not cut off by the server write timeout.
// Scope: Unit Test
// Expected: A handler slower than WriteTimeout still delivers its response.
func TestLongRunningMiddleware_ExtendsWriteDeadline(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte("done"))
	})

	serve := func(h http.Handler) (*http.Response, error) {
		srv := httptest.NewUnstartedServer(h)
		srv.Config.WriteTimeout = 100 * time.Millisecond
		srv.Start()
		t.Cleanup(srv.Close)
		return srv.Client().Get(srv.URL)
	}

	resp, err := serve(LongRunningMiddleware(5 * time.Second)(slow))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	if resp, err := serve(slow); err == nil {
		resp.Body.Close()
		t.Fatal("expected the write timeout to drop the response")
	}
}
