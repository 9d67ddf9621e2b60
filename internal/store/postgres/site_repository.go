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

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skaild/sitegen/internal/site"
)

// SiteRepository implements site.Repository
type SiteRepository struct {
	db *DB
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *DB) *SiteRepository {
	return &SiteRepository{db: db}
}

const selectSite = `
	SELECT s.id::text, s.domain, s.theme_config, s.content, s.content_generated,
		s.created_at, s.updated_at,
		COALESCE(p.id::text, ''), COALESCE(p.name, ''), COALESCE(p.phone, ''),
		COALESCE(p.email, ''), COALESCE(p.business_type, ''),
		COALESCE(p.street, ''), COALESCE(p.city, ''), COALESCE(p.state, ''),
		COALESCE(p.zip, ''), p.hours
	FROM sites s
	LEFT JOIN business_profiles p ON p.id = s.business_profile_id`

// Create inserts the business profile and the site in one transaction
func (r *SiteRepository) Create(ctx context.Context, s *site.Site) error {
	theme, err := json.Marshal(s.Theme)
	if err != nil {
		return fmt.Errorf("failed to encode theme: %w", err)
	}
	var hours []byte
	if s.Profile.Hours != nil {
		if hours, err = json.Marshal(s.Profile.Hours); err != nil {
			return fmt.Errorf("failed to encode hours: %w", err)
		}
	}

	return pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO business_profiles (
				id, name, phone, email, business_type, street, city, state, zip, hours,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		`,
			s.Profile.ID, s.Profile.Name, s.Profile.Phone, s.Profile.Email, s.Profile.BusinessType,
			s.Profile.Address.Street, s.Profile.Address.City, s.Profile.Address.State, s.Profile.Address.Zip,
			hours, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert business profile: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sites (
				id, domain, business_profile_id, theme_config, content, content_generated,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, NULL, FALSE, $5, $6)
		`, s.ID, s.Domain, s.Profile.ID, theme, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return site.ErrSiteExists
			}
			return fmt.Errorf("failed to insert site: %w", err)
		}
		return nil
	})
}

// GetByDomain returns the site joined with its profile, services and features
func (r *SiteRepository) GetByDomain(ctx context.Context, domain string) (*site.Site, error) {
	s, err := scanSite(r.db.pool.QueryRow(ctx, selectSite+` WHERE s.domain = $1`, domain))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, site.ErrSiteNotFound
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	if s.Services, err = r.items(ctx, `
		SELECT name, COALESCE(description, ''), COALESCE(icon, ''), COALESCE(image_url, '')
		FROM services WHERE site_id = $1 ORDER BY position, name`, s.ID); err != nil {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}
	if s.Features, err = r.items(ctx, `
		SELECT title, COALESCE(description, ''), COALESCE(icon, ''), COALESCE(image_url, '')
		FROM features WHERE site_id = $1 ORDER BY position, title`, s.ID); err != nil {
		return nil, fmt.Errorf("failed to get features: %w", err)
	}
	return s, nil
}

// List returns sites with their profiles, newest first. Services and
// features are not loaded.
func (r *SiteRepository) List(ctx context.Context, limit, offset int) ([]*site.Site, error) {
	rows, err := r.db.pool.Query(ctx, selectSite+`
		ORDER BY s.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*site.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// SaveContent stores generated content, replaces the services and features
// rows and records the images in one transaction.
func (r *SiteRepository) SaveContent(ctx context.Context, siteID string, content *site.Content, images []site.GeneratedImage) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}

	return pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE sites SET content = $2, content_generated = TRUE, updated_at = $3
			WHERE id = $1
		`, siteID, data, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to update content: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return site.ErrSiteNotFound
		}

		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM services WHERE site_id = $1`, siteID)
		batch.Queue(`DELETE FROM features WHERE site_id = $1`, siteID)
		for i, it := range content.Services {
			batch.Queue(`
				INSERT INTO services (id, site_id, name, description, icon, image_url, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, newID(), siteID, it.Title, it.Description, it.Icon, it.ImageURL, i)
		}
		for i, it := range content.Features {
			if it.Title == "" {
				continue
			}
			batch.Queue(`
				INSERT INTO features (id, site_id, title, description, icon, image_url, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, newID(), siteID, it.Title, it.Description, it.Icon, it.ImageURL, i)
		}
		for _, img := range images {
			batch.Queue(`
				INSERT INTO generated_images (id, site_id, kind, subject, prompt, aspect_ratio, url, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, img.ID, siteID, img.Kind, img.Subject, img.Prompt, img.AspectRatio, img.URL, img.CreatedAt)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to replace content rows: %w", err)
		}
		return nil
	})
}

// ResetContent clears the content block, the generated flag and the
// services and features rows of a site.
func (r *SiteRepository) ResetContent(ctx context.Context, domain string) error {
	return pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		var siteID string
		err := tx.QueryRow(ctx, `
			UPDATE sites SET content = NULL, content_generated = FALSE, updated_at = $2
			WHERE domain = $1
			RETURNING id::text
		`, domain, time.Now().UTC()).Scan(&siteID)
		if errors.Is(err, pgx.ErrNoRows) {
			return site.ErrSiteNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to reset content: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM services WHERE site_id = $1`, siteID); err != nil {
			return fmt.Errorf("failed to delete services: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM features WHERE site_id = $1`, siteID); err != nil {
			return fmt.Errorf("failed to delete features: %w", err)
		}
		return nil
	})
}

// ListImages returns the generated images of a site, newest first
func (r *SiteRepository) ListImages(ctx context.Context, siteID string) ([]site.GeneratedImage, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id::text, site_id::text, kind, subject, prompt, aspect_ratio, url, created_at
		FROM generated_images WHERE site_id = $1
		ORDER BY created_at DESC
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var images []site.GeneratedImage
	for rows.Next() {
		var img site.GeneratedImage
		if err := rows.Scan(&img.ID, &img.SiteID, &img.Kind, &img.Subject, &img.Prompt,
			&img.AspectRatio, &img.URL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *SiteRepository) items(ctx context.Context, query, siteID string) ([]site.Item, error) {
	rows, err := r.db.pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []site.Item
	for rows.Next() {
		var it site.Item
		if err := rows.Scan(&it.Title, &it.Description, &it.Icon, &it.ImageURL); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanSite(row pgx.Row) (*site.Site, error) {
	var (
		s                     site.Site
		theme, content, hours []byte
	)
	err := row.Scan(
		&s.ID, &s.Domain, &theme, &content, &s.ContentGenerated,
		&s.CreatedAt, &s.UpdatedAt,
		&s.Profile.ID, &s.Profile.Name, &s.Profile.Phone,
		&s.Profile.Email, &s.Profile.BusinessType,
		&s.Profile.Address.Street, &s.Profile.Address.City, &s.Profile.Address.State,
		&s.Profile.Address.Zip, &hours,
	)
	if err != nil {
		return nil, err
	}

	if len(theme) > 0 {
		if err := json.Unmarshal(theme, &s.Theme); err != nil {
			return nil, fmt.Errorf("invalid theme_config for %s: %w", s.Domain, err)
		}
	}
	if len(content) > 0 && string(content) != "null" {
		s.Content = &site.Content{}
		if err := json.Unmarshal(content, s.Content); err != nil {
			return nil, fmt.Errorf("invalid content for %s: %w", s.Domain, err)
		}
	}
	if len(hours) > 0 && string(hours) != "null" {
		s.Profile.Hours = &site.Hours{}
		if err := json.Unmarshal(hours, s.Profile.Hours); err != nil {
			return nil, fmt.Errorf("invalid hours for %s: %w", s.Domain, err)
		}
	}
	return &s, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var _ site.Repository = (*SiteRepository)(nil)
