package content

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/skaild/sitegen/internal/site"
)

// Static copy per business type. Anything not listed uses genericCopy.
var fallbackItems = map[string]struct {
	services []site.Item
	features []site.Item
}{
	"plumber": {
		services: []site.Item{
			{Title: "Emergency Repairs", Description: "Fast response for leaks, bursts and blocked drains."},
			{Title: "Installations", Description: "Fixtures, water heaters and pipework installed to code."},
			{Title: "Maintenance", Description: "Regular inspections that keep your plumbing healthy."},
		},
		features: []site.Item{
			{Title: "Licensed Plumbers", Description: "Certified professionals on every job."},
			{Title: "Upfront Pricing", Description: "A clear quote before any work starts."},
			{Title: "Fast Response", Description: "Same-day visits across the area."},
			{Title: "Guaranteed Work", Description: "Every repair is backed by our guarantee."},
		},
	},
	"electrician": {
		services: []site.Item{
			{Title: "Electrical Repairs", Description: "Diagnosis and repair of faults, outlets and switches."},
			{Title: "Panel Upgrades", Description: "Modern panels sized for today's homes."},
			{Title: "Lighting Installation", Description: "Indoor and outdoor lighting designed and installed."},
		},
		features: []site.Item{
			{Title: "Certified Electricians", Description: "Fully licensed and insured team."},
			{Title: "Safety First", Description: "Work completed to the latest electrical code."},
			{Title: "Available 24/7", Description: "Emergency call-outs day and night."},
			{Title: "Transparent Quotes", Description: "No hidden fees, ever."},
		},
	},
	"beauty_salon": {
		services: []site.Item{
			{Title: "Hair Styling", Description: "Cuts, color and styling tailored to you."},
			{Title: "Skin Care", Description: "Facials and treatments for healthy, glowing skin."},
			{Title: "Nail Care", Description: "Manicures and pedicures in a relaxing setting."},
		},
		features: []site.Item{
			{Title: "Experienced Stylists", Description: "Skilled professionals who listen."},
			{Title: "Quality Products", Description: "Premium brands for lasting results."},
			{Title: "Relaxing Space", Description: "A calm salon designed for comfort."},
			{Title: "Easy Booking", Description: "Appointments that fit your schedule."},
		},
	},
}

var genericCopy = struct {
	services []site.Item
	features []site.Item
}{
	services: []site.Item{
		{Title: "Consultation", Description: "We listen to your needs and plan the right solution."},
		{Title: "Professional Service", Description: "Skilled work delivered on time."},
		{Title: "Ongoing Support", Description: "We stay available after the job is done."},
	},
	features: []site.Item{
		{Title: "Experienced Team", Description: "Years of experience in the trade."},
		{Title: "Quality Work", Description: "Attention to detail on every project."},
		{Title: "Reliable Service", Description: "We show up when we say we will."},
		{Title: "Customer Satisfaction", Description: "Your satisfaction is our priority."},
	},
}

// FallbackContent is the static copy used when text generation fails
func FallbackContent(businessName, businessType string) *site.Content {
	items, ok := fallbackItems[businessType]
	if !ok {
		items = genericCopy
	}
	return &site.Content{
		Hero: site.Hero{
			Title:    fmt.Sprintf("%s - Professional %s", businessName, displayType(businessType)),
			Subtitle: "Quality Services You Can Trust",
			CTA:      site.CTA{Primary: "Contact Us", Secondary: "Learn More"},
		},
		Services:     append([]site.Item(nil), items.services...),
		Features:     append([]site.Item(nil), items.features...),
		BusinessName: businessName,
	}
}

// displayType turns "beauty_salon" into "Beauty salon"
func displayType(businessType string) string {
	s := strings.ReplaceAll(strings.TrimSpace(businessType), "_", " ")
	if s == "" {
		return "Services"
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
