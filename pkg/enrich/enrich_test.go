package enrich

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"placeharvest/pkg/models"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"4.7", 4.7},
		{" 4,3 ", 4.3},
		{"5", 5},
		{"Rated 3.9 out of 5", 3.9},
		{"", 0},
		{"N/A", 0},
		{"12", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseRating(tt.raw), 0.001)
		})
	}
}

func TestParseReviewCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"(1,234)", 1234},
		{"87 reviews", 87},
		{"1.020", 1020},
		{"", 0},
		{"no reviews", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReviewCount(tt.raw))
		})
	}
}

func TestIndustryByKeyword(t *testing.T) {
	tests := []struct {
		fields Fields
		want   string
	}{
		{Fields{Category: "Plumber"}, "plumbing"},
		{Fields{Category: "Cosmetic dentist"}, "dental"},
		{Fields{Category: "Barber shop"}, "beauty"},
		{Fields{Category: "Italian restaurant"}, "food & drink"},
		{Fields{Title: "Smith & Co Solicitors"}, "legal"},
		{Fields{Category: "Point of interest", Title: "Northside Gym"}, "fitness"},
		{Fields{Title: "Unnamed place"}, "general"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IndustryByKeyword(tt.fields), "%+v", tt.fields)
	}
}

func TestSentimentByRating(t *testing.T) {
	assert.Equal(t, "very positive", SentimentByRating(Fields{Rating: "4.8"}))
	assert.Equal(t, "positive", SentimentByRating(Fields{Rating: "4.1"}))
	assert.Equal(t, "mixed", SentimentByRating(Fields{Rating: "3.0"}))
	assert.Equal(t, "negative", SentimentByRating(Fields{Rating: "2.2"}))
	assert.Equal(t, "unrated", SentimentByRating(Fields{}))
}

func TestEnrich(t *testing.T) {
	e := New(nil, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	entry := models.RawEntry{Index: 3, Href: "/maps/place/x", PlaceID: " ChIJabc "}
	fields := Fields{
		Title:       "  Leeds   Plumbing\nCo ",
		Category:    "Plumber",
		Rating:      "4.6",
		ReviewCount: "(212)",
		Phone:       " 0113 496 0000 ",
		Address:     "1 Main St,  Leeds",
	}

	got := e.Enrich("https://maps.example.com/place/x", entry, fields, "https://maps.example.com/search/plumbers")
	want := models.Record{
		Identity:    "https://maps.example.com/place/x",
		PlaceID:     "ChIJabc",
		SeedURL:     "https://maps.example.com/search/plumbers",
		Title:       "Leeds Plumbing Co",
		Category:    "Plumber",
		Rating:      "4.6",
		RatingValue: 4.6,
		ReviewCount: 212,
		Phone:       "0113 496 0000",
		Address:     "1 Main St, Leeds",
		HasPhone:    true,
		HasWebsite:  false,
		Industry:    "plumbing",
		Sentiment:   "very positive",
		ExtractedAt: fixed,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Enrich() mismatch (-want +got):\n%s", diff)
	}
}

func TestCustomClassifiers(t *testing.T) {
	e := New(func(Fields) string { return "custom-industry" }, func(Fields) string { return "custom-sentiment" })
	rec := e.Enrich("id", models.RawEntry{}, Fields{Title: "x"}, "")
	assert.Equal(t, "custom-industry", rec.Industry)
	assert.Equal(t, "custom-sentiment", rec.Sentiment)
}
