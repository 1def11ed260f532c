package outreach

import (
	"fmt"
	"strings"

	"placeharvest/pkg/models"
)

// Fallback builds deterministic outreach copy from record fields and the
// configured service names. It is used whenever generation fails.
func Fallback(r models.Record, services []string, sender string) models.Message {
	name := r.Title
	if name == "" {
		name = "there"
	}
	if sender == "" {
		sender = "Our team"
	}
	offer := joinServices(services)

	var hook string
	switch {
	case !r.HasWebsite:
		hook = "we noticed you don't have a website listed yet"
	case r.Sentiment == "very positive" || r.Sentiment == "positive":
		hook = fmt.Sprintf("your %s reviews caught our eye", r.Sentiment)
	default:
		hook = "we came across your listing"
	}

	whatsapp := fmt.Sprintf("Hi %s, %s. We help %s businesses with %s. Would you be open to a quick chat? - %s",
		name, hook, industryLabel(r.Industry), offer, sender)

	subject := fmt.Sprintf("Quick idea for %s", name)

	body := fmt.Sprintf("Hello %s,\n\n%s. We work with %s businesses on %s and thought there might be a fit.\n\nWould you be open to a short call this week?\n\nBest regards,\n%s",
		name, capitalise(hook), industryLabel(r.Industry), offer, sender)

	return models.Message{
		WhatsApp:     whatsapp,
		EmailSubject: subject,
		EmailBody:    body,
		Fallback:     true,
	}
}

func joinServices(services []string) string {
	var clean []string
	for _, s := range services {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	switch len(clean) {
	case 0:
		return "growing online"
	case 1:
		return clean[0]
	default:
		return strings.Join(clean[:len(clean)-1], ", ") + " and " + clean[len(clean)-1]
	}
}

func industryLabel(industry string) string {
	if industry == "" || industry == "general" {
		return "local"
	}
	return industry
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
