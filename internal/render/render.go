// Package render produces the themed landing page of a site as HTML.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/yosssi/gohtml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/skaild/sitegen/internal/site"
	"github.com/skaild/sitegen/internal/theme"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options configure a Renderer
type Options struct {
	// Pretty indents the HTML output
	Pretty bool
	// Now is used for the footer year
	Now func() time.Time
}

// Renderer executes the page templates. It is safe for concurrent use.
type Renderer struct {
	tmpl   *template.Template
	md     goldmark.Markdown
	pretty bool
	now    func() time.Time
}

// New parses the embedded templates
func New(opts Options) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{
		tmpl: tmpl,
		// raw HTML in generated copy is escaped, not passed through
		md:     goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		pretty: opts.Pretty,
		now:    opts.Now,
	}, nil
}

type item struct {
	Title       string
	Icon        string
	ImageURL    string
	Description template.HTML
}

type pageData struct {
	Title       string
	Description string
	Name        string
	Year        int
	Style       template.CSS
	BodyClass   string
	Business    site.Business
	PhoneURL    template.URL
	Hero        site.Hero
	Services    []item
	Features    []item
}

type errorData struct {
	Title       string
	Description string
	Name        string
	Year        int
	Style       template.CSS
	Heading     string
	Message     string
	Host        string
	RequestID   string
}

// Render writes the landing page of cfg to w
func (r *Renderer) Render(w io.Writer, cfg *site.Config) error {
	services, err := r.items(cfg.Content.Services)
	if err != nil {
		return err
	}
	features, err := r.items(cfg.Content.Features)
	if err != nil {
		return err
	}

	name := cfg.Business.Name
	if name == "" {
		name = cfg.Content.BusinessName
	}

	data := pageData{
		Title:       pageTitle(name, cfg.Content.Hero.Title),
		Description: cfg.Content.Hero.Subtitle,
		Name:        name,
		Year:        r.now().Year(),
		Style:       template.CSS(theme.Style(theme.Variables(&cfg.Theme))),
		BodyClass:   theme.BodyClass(cfg.Theme.Style),
		Business:    cfg.Business,
		PhoneURL:    phoneURL(cfg.Business.Phone),
		Hero:        cfg.Content.Hero,
		Services:    services,
		Features:    features,
	}
	return r.execute(w, "site", data)
}

// ErrorPage describes a page shown instead of a site
type ErrorPage struct {
	Host      string
	RequestID string
	NotFound  bool
}

// RenderError writes the error page. Load failure details are never shown;
// RequestID lets operators find them in the logs.
func (r *Renderer) RenderError(w io.Writer, p ErrorPage) error {
	data := errorData{
		Title:     "Error loading site",
		Name:      "sitegen",
		Year:      r.now().Year(),
		Style:     template.CSS(theme.Style(theme.Variables(nil))),
		Heading:   "Error loading site configuration",
		Message:   "We could not load this site right now. Please try again in a moment.",
		RequestID: p.RequestID,
	}
	if p.NotFound {
		data.Title = "Site not found"
		data.Heading = "Site not found"
		data.Message = "No site is configured for this domain."
		data.Host = p.Host
	}
	return r.execute(w, "error", data)
}

// Markdown renders a description to HTML
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) items(in []site.Item) ([]item, error) {
	out := make([]item, 0, len(in))
	for _, it := range in {
		desc, err := r.Markdown(it.Description)
		if err != nil {
			return nil, err
		}
		out = append(out, item{
			Title:       it.Title,
			Icon:        it.Icon,
			ImageURL:    it.ImageURL,
			Description: desc,
		})
	}
	return out, nil
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s page: %w", name, err)
	}

	out := buf.Bytes()
	if r.pretty {
		out = gohtml.FormatBytes(out)
	}
	_, err := w.Write(out)
	return err
}

// phoneURL builds a tel: link from the digits and leading plus of phone
func phoneURL(phone string) template.URL {
	var b strings.Builder
	for i, r := range phone {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return template.URL("tel:" + b.String())
}

func pageTitle(name, heroTitle string) string {
	switch {
	case name == "":
		return heroTitle
	case heroTitle == "" || strings.Contains(heroTitle, name):
		return name
	default:
		return name + " | " + heroTitle
	}
}
