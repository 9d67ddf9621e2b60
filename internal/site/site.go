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

// Package site holds the tenant model of the site generator: a site record
// keyed by domain, its business profile, theme tokens and content block,
// and the service that turns a stored record into a display-ready Config.
package site

import (
	"time"
)

// Site is one hosted business site, keyed by domain. Nullable database
// columns stay zero or nil here; Normalize applies the fallbacks.
type Site struct {
	ID               string    `json:"id"`
	Domain           string    `json:"domain"`
	Profile          Profile   `json:"business_profile"`
	Theme            Theme     `json:"theme_config"`
	Content          *Content  `json:"content,omitempty"`
	Services         []Item    `json:"services,omitempty"`
	Features         []Item    `json:"features,omitempty"`
	ContentGenerated bool      `json:"content_generated"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Profile is the business behind a site
type Profile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	BusinessType string  `json:"business_type"`
	Address      Address `json:"address"`
	Hours        *Hours  `json:"hours,omitempty"`
}

// Address of the business
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Hours are free-form opening hours
type Hours struct {
	Weekdays string `json:"weekdays"`
	Weekends string `json:"weekends"`
}

// Theme holds the presentation tokens of a site
type Theme struct {
	Colors Colors `json:"colors"`
	Style  Style  `json:"style"`
}

// Colors are CSS color values
type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Style holds layout tokens
type Style struct {
	Layout       string `json:"layout"`
	ButtonRadius string `json:"buttonRadius"`
	HeaderStyle  string `json:"headerStyle"`
}

// Content is the marketing copy and imagery of a site
type Content struct {
	Hero         Hero     `json:"hero"`
	Services     []Item   `json:"services"`
	Features     []Item   `json:"features"`
	Social       *Social  `json:"social,omitempty"`
	Contact      *Contact `json:"contact,omitempty"`
	BusinessName string   `json:"business_name,omitempty"`
}

// Hero is the top banner
type Hero struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	BackgroundURL   string `json:"backgroundUrl,omitempty"`
	IllustrationURL string `json:"illustrationUrl,omitempty"`
	CTA             CTA    `json:"cta"`
}

// CTA is the hero button pair
type CTA struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Item is a service or a feature card
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Social handles
type Social struct {
	Twitter   string `json:"twitter"`
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
}

// Contact block as produced by the text generator
type Contact struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Complete reports whether the content block has a hero title, at least
// one service and at least one feature.
func (c *Content) Complete() bool {
	return c != nil && c.Hero.Title != "" && len(c.Services) > 0 && len(c.Features) > 0
}

// EffectiveServices prefers the relational rows over the content block
func (s *Site) EffectiveServices() []Item {
	if len(s.Services) > 0 {
		return s.Services
	}
	if s.Content != nil {
		return s.Content.Services
	}
	return nil
}

// EffectiveFeatures prefers the relational rows over the content block
func (s *Site) EffectiveFeatures() []Item {
	if len(s.Features) > 0 {
		return s.Features
	}
	if s.Content != nil {
		return s.Content.Features
	}
	return nil
}

// NeedsContent reports whether the stored content is absent or incomplete
// once relational rows are taken into account.
func (s *Site) NeedsContent() bool {
	if s.Content == nil || s.Content.Hero.Title == "" {
		return true
	}
	return len(s.EffectiveServices()) == 0 || len(s.EffectiveFeatures()) == 0
}

// GeneratedImage is one persisted image generation result
type GeneratedImage struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"site_id"`
	Kind        string    `json:"kind"` // service, feature
	Subject     string    `json:"subject"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Image kinds
const (
	KindService = "service"
	KindFeature = "feature"
)

// GenerationResult describes one generation pass
type GenerationResult struct {
	Content       *Content
	Images        []GeneratedImage
	Skipped       bool // content already present
	Fallback      bool // text generation failed; static content used
	Persisted     bool
	ImageFailures int
}
