package models

import "time"

// RawEntry is a snapshot of one listing card, valid for the current run only
type RawEntry struct {
	Index   int    `json:"index"`
	Href    string `json:"href"`
	PlaceID string `json:"place_id,omitempty"`
	Label   string `json:"label,omitempty"`
}

// PanelFields is the flat field map read from an entry's detail panel
type PanelFields struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Rating      string `json:"rating"`
	ReviewCount string `json:"review_count"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Address     string `json:"address"`
}

// Message is the outreach copy generated for a record
type Message struct {
	WhatsApp     string `json:"whatsapp"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
	// Fallback is set when the copy came from the built-in template
	Fallback bool `json:"fallback"`
}

// Record is the enriched result for one place. It is immutable once appended to a sink.
type Record struct {
	Identity    string    `json:"identity"`
	PlaceID     string    `json:"place_id,omitempty"`
	SeedURL     string    `json:"seed_url,omitempty"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Rating      string    `json:"rating"`
	RatingValue float64   `json:"rating_value"`
	ReviewCount int       `json:"review_count"`
	Phone       string    `json:"phone"`
	Website     string    `json:"website"`
	Address     string    `json:"address"`
	HasPhone    bool      `json:"has_phone"`
	HasWebsite  bool      `json:"has_website"`
	Industry    string    `json:"industry"`
	Sentiment   string    `json:"sentiment"`
	Outreach    Message   `json:"outreach"`
	ExtractedAt time.Time `json:"extracted_at"`
}
