// Package resolver maps an incoming request host to the lookup key of the
// site that should serve it.
package resolver

import (
	"net"
	"net/netip"
	"strings"
)

// Config describes the platform domains
type Config struct {
	// BaseDomain is the platform domain whose subdomains are sites
	BaseDomain string
	// FallbackKey serves local and preview hosts
	FallbackKey string
	// PreviewSuffixes are deployment preview hosts, e.g. ".vercel.app"
	PreviewSuffixes []string
}

// Resolver turns hosts into lookup keys. It is safe for concurrent use.
type Resolver struct {
	base     string
	fallback string
	previews []string
}

// New creates a resolver
func New(cfg Config) *Resolver {
	r := &Resolver{
		base:     normalize(cfg.BaseDomain),
		fallback: normalize(cfg.FallbackKey),
	}
	for _, s := range cfg.PreviewSuffixes {
		s = normalize(s)
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		r.previews = append(r.previews, s)
	}
	return r
}

// Resolve returns the lookup key for host. It never fails: a host that
// matches no site simply produces a key the store does not know.
func (r *Resolver) Resolve(host string) string {
	h := normalize(stripPort(host))

	if h == "" || h == "localhost" || strings.HasSuffix(h, ".localhost") || isLoopback(h) {
		return r.fallback
	}
	for _, s := range r.previews {
		if strings.HasSuffix(h, s) {
			return r.fallback
		}
	}

	if r.base != "" && strings.HasSuffix(h, "."+r.base) {
		label, _, _ := strings.Cut(strings.TrimSuffix(h, "."+r.base), ".")
		return label + "." + r.base
	}
	return h
}

// Fallback returns the key served to local and preview hosts
func (r *Resolver) Fallback() string {
	return r.fallback
}

func normalize(h string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	// bracketed IPv6 without a port
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

func isLoopback(h string) bool {
	addr, err := netip.ParseAddr(h)
	return err == nil && addr.IsLoopback()
}
