package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"placeharvest/pkg/models"
)

func TestFallback(t *testing.T) {
	r := models.Record{Title: "Corner Cafe", Industry: "food & drink", Sentiment: "positive", HasWebsite: true}

	msg := Fallback(r, []string{"website design", "local SEO", "booking systems"}, "Acme Studio")

	assert.True(t, msg.Fallback)
	assert.Equal(t, "Quick idea for Corner Cafe", msg.EmailSubject)
	assert.Contains(t, msg.WhatsApp, "Hi Corner Cafe, your positive reviews caught our eye.")
	assert.Contains(t, msg.WhatsApp, "website design, local SEO and booking systems")
	assert.Contains(t, msg.WhatsApp, "food & drink businesses")
	assert.Contains(t, msg.EmailBody, "Best regards,\nAcme Studio")
}

func TestFallbackIsDeterministic(t *testing.T) {
	r := models.Record{Title: "Ace Plumbing", Industry: "plumbing"}
	assert.Equal(t, Fallback(r, []string{"local SEO"}, "Us"), Fallback(r, []string{"local SEO"}, "Us"))
}

func TestFallbackDefaults(t *testing.T) {
	msg := Fallback(models.Record{Industry: "general"}, nil, "")

	assert.Contains(t, msg.WhatsApp, "Hi there, we noticed you don't have a website listed yet.")
	assert.Contains(t, msg.WhatsApp, "local businesses with growing online")
	assert.Contains(t, msg.WhatsApp, "- Our team")
	assert.Contains(t, msg.EmailBody, "We noticed you don't have a website")
}
