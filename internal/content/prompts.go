package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skaild/sitegen/internal/site"
)

// SystemPrompt is sent with every copy request
const SystemPrompt = "You are a professional business content writer. Return ONLY valid JSON without any markdown formatting or explanation."

// ErrIncompleteContent is returned when generated copy lacks a hero,
// services or features.
var ErrIncompleteContent = errors.New("generated content is incomplete")

// CopyPrompt asks for the site copy of a business
func CopyPrompt(businessName, businessType string) string {
	return fmt.Sprintf(`Generate professional content in English for a %[2]s website named %[1]q. Include:
  1. Business information:
     - Social media handles
     - Contact information
  2. Website content:
     - Hero section with title and subtitle
     - 3 key services
     - 4 features

  Return ONLY the JSON object without any markdown formatting or backticks. Format:
  {
    "social": {
      "twitter": "",
      "facebook": "",
      "instagram": ""
    },
    "contact": {
      "email": "",
      "phone": "",
      "address": ""
    },
    "business_name": %[1]q,
    "hero": {
      "title": "",
      "subtitle": "",
      "cta": {"primary": "", "secondary": ""}
    },
    "services": [
      {"title": "", "description": ""}
    ],
    "features": [
      {"title": "", "description": ""}
    ]
  }`, businessName, businessType)
}

// generatedCopy mirrors site.Content with a nullable hero so a missing
// section can be told apart from an empty one.
type generatedCopy struct {
	Social       *site.Social  `json:"social"`
	Contact      *site.Contact `json:"contact"`
	BusinessName string        `json:"business_name"`
	Hero         *site.Hero    `json:"hero"`
	Services     []site.Item   `json:"services"`
	Features     []site.Item   `json:"features"`
}

// ParseCopy decodes model output into content. Markdown code fences around
// the JSON are tolerated.
func ParseCopy(raw string) (*site.Content, error) {
	var gc generatedCopy
	if err := json.Unmarshal([]byte(stripFences(raw)), &gc); err != nil {
		return nil, fmt.Errorf("failed to parse generated content: %w", err)
	}
	if gc.Hero == nil || gc.Hero.Title == "" || len(gc.Services) == 0 || len(gc.Features) == 0 {
		return nil, ErrIncompleteContent
	}
	return &site.Content{
		Hero:         *gc.Hero,
		Services:     gc.Services,
		Features:     gc.Features,
		Social:       gc.Social,
		Contact:      gc.Contact,
		BusinessName: gc.BusinessName,
	}, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "to": {}, "a": {}, "of": {}, "in": {}, "with": {}, "our": {},
}

// ServiceImagePrompt describes a photograph of the service being performed,
// seeded with the first five meaningful words of its description.
func ServiceImagePrompt(item site.Item, businessType string) string {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(item.Description)) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == 5 {
			break
		}
	}

	return fmt.Sprintf("Professional photograph of %s service in action: %s. "+
		"Scene showing %s. "+
		"Modern workplace setting, high-quality professional equipment, "+
		"natural lighting, 4K quality, professional photography",
		businessType, strings.ToLower(item.Title), strings.Join(keywords, " "))
}

// concepts are matched in order against feature titles and descriptions
var concepts = []struct {
	keyword string
	scene   string
}{
	{"experience", "seasoned professional at work with confidence"},
	{"quality", "premium tools and equipment in pristine condition"},
	{"expertise", "professional using advanced techniques"},
	{"satisfaction", "successful project completion"},
	{"service", "attentive professional helping customer"},
	{"support", "friendly customer interaction"},
	{"available", "24/7 service vehicle ready for action"},
	{"certified", "professional displaying certifications"},
	{"guarantee", "handshake with customer"},
	{"reliable", "dependable professional with tools ready"},
	{"efficient", "swift professional work in progress"},
	{"modern", "cutting-edge equipment in use"},
	{"professional", "expert at work with precision"},
	{"innovative", "latest technology being utilized"},
}

// FeatureImagePrompt describes a minimalist illustration of the first
// concept the feature mentions.
func FeatureImagePrompt(item site.Item, businessType string) string {
	title := strings.ToLower(item.Title)
	desc := strings.ToLower(item.Description)
	for _, c := range concepts {
		if strings.Contains(title, c.keyword) || strings.Contains(desc, c.keyword) {
			return fmt.Sprintf("Minimalist illustration of %s in %s context. "+
				"Clean vector style, iconic representation, professional setting",
				c.scene, businessType)
		}
	}
	return fmt.Sprintf("Modern illustration representing %s professional excellence. "+
		"%s. Minimalist style, professional context", businessType, item.Title)
}
