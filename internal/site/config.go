package site

// Config is the display-ready shape of a site: every nullable field has
// been replaced by its fallback literal.
type Config struct {
	ID               string   `json:"id"`
	Domain           string   `json:"domain"`
	Business         Business `json:"business"`
	Theme            Theme    `json:"theme"`
	Content          Content  `json:"content"`
	ContentGenerated bool     `json:"content_generated"`
	// Default is set on the hard-coded development fallback
	Default bool `json:"default,omitempty"`
}

// Business is the normalized business profile
type Business struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	BusinessType string  `json:"businessType"`
	Address      Address `json:"address"`
	Hours        Hours   `json:"hours"`
}

// Fallback literals applied by Normalize
const (
	DefaultPrimary    = "#0891b2"
	DefaultSecondary  = "#0369a1"
	DefaultAccent     = "#ea580c"
	DefaultBackground = "#f8fafc"
	DefaultText       = "#1e293b"

	DefaultButtonRadius = "pill"
	DefaultHeaderStyle  = "prominent"
	DefaultLayout       = "boxed"

	DefaultWeekdays = "9:00 AM - 5:00 PM"
	DefaultWeekends = "Closed"

	DefaultHeroTitle    = "Your Trusted Local Plumbers"
	DefaultHeroSubtitle = "Fast, reliable service when you need it most"
	DefaultCTAPrimary   = "Emergency Call"
	DefaultCTASecondary = "Get Quote"

	DefaultServiceIcon = "🔧"
	DefaultFeatureIcon = "✨"

	DefaultBusinessType = "plumber"
)

// Normalize merges a stored site into a display-ready Config
func Normalize(s *Site) *Config {
	cfg := &Config{
		ID:     s.ID,
		Domain: s.Domain,
		Business: Business{
			Name:         s.Profile.Name,
			Phone:        s.Profile.Phone,
			Email:        s.Profile.Email,
			BusinessType: or(s.Profile.BusinessType, DefaultBusinessType),
			Address:      s.Profile.Address,
			Hours:        Hours{Weekdays: DefaultWeekdays, Weekends: DefaultWeekends},
		},
		Theme:            normalizeTheme(s.Theme),
		ContentGenerated: s.ContentGenerated,
	}
	if s.Profile.Hours != nil {
		cfg.Business.Hours = *s.Profile.Hours
	}

	var hero Hero
	if s.Content != nil {
		hero = s.Content.Hero
		cfg.Content.Social = s.Content.Social
		cfg.Content.Contact = s.Content.Contact
		cfg.Content.BusinessName = s.Content.BusinessName
	}
	cfg.Content.Hero = Hero{
		Title:           or(hero.Title, DefaultHeroTitle),
		Subtitle:        or(hero.Subtitle, DefaultHeroSubtitle),
		BackgroundURL:   hero.BackgroundURL,
		IllustrationURL: hero.IllustrationURL,
		CTA: CTA{
			Primary:   or(hero.CTA.Primary, DefaultCTAPrimary),
			Secondary: or(hero.CTA.Secondary, DefaultCTASecondary),
		},
	}
	cfg.Content.Services = withIcon(s.EffectiveServices(), DefaultServiceIcon)
	cfg.Content.Features = withIcon(s.EffectiveFeatures(), DefaultFeatureIcon)

	return cfg
}

func normalizeTheme(t Theme) Theme {
	return Theme{
		Colors: Colors{
			Primary:    or(t.Colors.Primary, DefaultPrimary),
			Secondary:  or(t.Colors.Secondary, DefaultSecondary),
			Accent:     or(t.Colors.Accent, DefaultAccent),
			Background: or(t.Colors.Background, DefaultBackground),
			Text:       or(t.Colors.Text, DefaultText),
		},
		Style: Style{
			ButtonRadius: or(t.Style.ButtonRadius, DefaultButtonRadius),
			HeaderStyle:  or(t.Style.HeaderStyle, DefaultHeaderStyle),
			Layout:       or(t.Style.Layout, DefaultLayout),
		},
	}
}

func withIcon(items []Item, icon string) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.Icon == "" {
			it.Icon = icon
		}
		out[i] = it
	}
	return out
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// DefaultConfig is the hard-coded plumber site served in development when
// the lookup key matches no site.
func DefaultConfig(domain string) *Config {
	return &Config{
		ID:     "default",
		Domain: domain,
		Business: Business{
			Name:         "Pro Plumbing",
			Phone:        "+1234567890",
			Email:        "contact@plumber.skaild.com",
			BusinessType: DefaultBusinessType,
			Address: Address{
				Street: "123 Main Street",
				City:   "Springfield",
				State:  "IL",
				Zip:    "62701",
			},
			Hours: Hours{Weekdays: DefaultWeekdays, Weekends: DefaultWeekends},
		},
		Theme: normalizeTheme(Theme{}),
		Content: Content{
			Hero: Hero{
				Title:    DefaultHeroTitle,
				Subtitle: DefaultHeroSubtitle,
				CTA:      CTA{Primary: DefaultCTAPrimary, Secondary: DefaultCTASecondary},
			},
			Services: []Item{
				{Title: "Emergency Repairs", Description: "24/7 response for burst pipes, leaks and blocked drains.", Icon: DefaultServiceIcon},
				{Title: "Water Heaters", Description: "Installation and repair of tank and tankless water heaters.", Icon: DefaultServiceIcon},
				{Title: "Drain Cleaning", Description: "Professional clearing of kitchen, bathroom and main sewer lines.", Icon: DefaultServiceIcon},
			},
			Features: []Item{
				{Title: "Licensed & Insured", Description: "Certified plumbers you can trust in your home.", Icon: DefaultFeatureIcon},
				{Title: "Upfront Pricing", Description: "No surprises: you approve the price before we start.", Icon: DefaultFeatureIcon},
				{Title: "Fast Response", Description: "Same-day service across the metro area.", Icon: DefaultFeatureIcon},
				{Title: "Satisfaction Guarantee", Description: "We are not done until you are happy.", Icon: DefaultFeatureIcon},
			},
		},
		Default: true,
	}
}
