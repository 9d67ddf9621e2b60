// Package theme turns a site's theme tokens into CSS custom properties and
// layout classes.
package theme

import (
	"strings"

	"github.com/skaild/sitegen/internal/site"
)

// DefaultColors apply when a page is rendered without a theme
var DefaultColors = site.Colors{
	Primary:    "#2563eb",
	Secondary:  "#0284c7",
	Accent:     "#f59e0b",
	Background: "#ffffff",
	Text:       "#0f172a",
}

// Variable is one CSS custom property
type Variable struct {
	Name  string
	Value string
}

// Variables returns the custom properties for t in a stable order: the
// long --color-* names followed by the short aliases. A nil theme uses
// DefaultColors; empty colors fall back individually.
func Variables(t *site.Theme) []Variable {
	c := DefaultColors
	if t != nil {
		c = site.Colors{
			Primary:    or(t.Colors.Primary, DefaultColors.Primary),
			Secondary:  or(t.Colors.Secondary, DefaultColors.Secondary),
			Accent:     or(t.Colors.Accent, DefaultColors.Accent),
			Background: or(t.Colors.Background, DefaultColors.Background),
			Text:       or(t.Colors.Text, DefaultColors.Text),
		}
	}

	pairs := [][2]string{
		{"primary", c.Primary},
		{"secondary", c.Secondary},
		{"accent", c.Accent},
		{"background", c.Background},
		{"text", c.Text},
	}
	vars := make([]Variable, 0, 2*len(pairs)+1)
	for _, p := range pairs {
		vars = append(vars, Variable{Name: "--color-" + p[0], Value: p[1]})
	}
	for _, p := range pairs {
		vars = append(vars, Variable{Name: "--" + p[0], Value: p[1]})
	}
	if t != nil {
		vars = append(vars, Variable{Name: "--button-radius", Value: ButtonRadius(t.Style.ButtonRadius)})
	}
	return vars
}

// Style renders vars as a declaration list for a style attribute
func Style(vars []Variable) string {
	var b strings.Builder
	for i, v := range vars {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// BodyClass returns the body classes for a layout
func BodyClass(s site.Style) string {
	if s.Layout == "boxed" {
		return "max-w-7xl mx-auto"
	}
	return ""
}

// ButtonRadius maps a radius token to a CSS length. Unknown tokens get the
// pill radius.
func ButtonRadius(token string) string {
	switch strings.ToLower(token) {
	case "square":
		return "0"
	case "rounded":
		return "0.5rem"
	default:
		return "9999px"
	}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
