package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestResolver() *Resolver {
	return New(Config{
		BaseDomain:      "skaild.com",
		FallbackKey:     "plumber.skaild.com",
		PreviewSuffixes: []string{".vercel.app"},
	})
}

func TestResolve(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name string
		host string
		want string
	}{
		{"empty host", "", "plumber.skaild.com"},
		{"localhost", "localhost", "plumber.skaild.com"},
		{"localhost with port", "localhost:3000", "plumber.skaild.com"},
		{"ipv4 loopback", "127.0.0.1:8080", "plumber.skaild.com"},
		{"ipv6 loopback", "[::1]:8080", "plumber.skaild.com"},
		{"ipv6 loopback without port", "[::1]", "plumber.skaild.com"},
		{"preview deployment", "sitegen-git-main-acme.vercel.app", "plumber.skaild.com"},
		{"platform subdomain", "electrician.skaild.com", "electrician.skaild.com"},
		{"platform subdomain mixed case and port", "Electrician.Skaild.COM:443", "electrician.skaild.com"},
		{"nested platform subdomain keeps first label", "www.plumber.skaild.com", "www.skaild.com"},
		{"trailing dot", "plumber.skaild.com.", "plumber.skaild.com"},
		{"custom domain", "www.acme-plumbing.com", "www.acme-plumbing.com"},
		{"custom domain with port", "acme-plumbing.com:8443", "acme-plumbing.com"},
		{"base domain itself is custom", "skaild.com", "skaild.com"},
		{"lookalike is not under base", "evilskaild.com", "evilskaild.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.host))
		})
	}
}

func TestNew_NormalizesSuffixes(t *testing.T) {
	r := New(Config{
		BaseDomain:      "Skaild.com.",
		FallbackKey:     "Plumber.skaild.com",
		PreviewSuffixes: []string{"netlify.app", ""},
	})

	assert.Equal(t, "plumber.skaild.com", r.Fallback())
	assert.Equal(t, "plumber.skaild.com", r.Resolve("deploy-preview-1.netlify.app"))
	assert.Equal(t, "acme.skaild.com", r.Resolve("acme.skaild.com"))
}

func TestResolve_NoBaseDomain(t *testing.T) {
	r := New(Config{FallbackKey: "demo.example.com"})
	assert.Equal(t, "acme.skaild.com", r.Resolve("acme.skaild.com"))
	assert.Equal(t, "demo.example.com", r.Resolve("localhost"))
}
