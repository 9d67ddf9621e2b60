package site

import (
	"context"
	"errors"
)

var (
	ErrSiteNotFound    = errors.New("site not found")
	ErrSiteExists      = errors.New("site already exists")
	ErrInvalidDomain   = errors.New("invalid domain")
	ErrNoGenerator     = errors.New("content generation is not configured")
	ErrMissingBusiness = errors.New("business name is required")
)

// Repository defines the interface for site storage
type Repository interface {
	Create(ctx context.Context, s *Site) error
	// GetByDomain returns the site joined with its profile, services and
	// features.
	GetByDomain(ctx context.Context, domain string) (*Site, error)
	List(ctx context.Context, limit, offset int) ([]*Site, error)
	// SaveContent stores the content block, sets content_generated, replaces
	// the services/features rows and records the images in one transaction.
	SaveContent(ctx context.Context, siteID string, content *Content, images []GeneratedImage) error
	// ResetContent clears the content block and the generated flag
	ResetContent(ctx context.Context, domain string) error
}

// Generator fills in missing content for a site
type Generator interface {
	// Trigger starts a background pass when the site needs content. It
	// reports whether a pass was started.
	Trigger(s *Site) bool
	// Generate runs a pass synchronously. Without force, a site whose
	// content is complete is skipped.
	Generate(ctx context.Context, s *Site, force bool) (*GenerationResult, error)
}
