// Package enrich turns raw panel fields into a Record with derived tags.
package enrich

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"placeharvest/pkg/models"
)

var (
	// ratingRegexp captures a numeric rating in the 0.0–5.0 range, with either decimal separator
	ratingRegexp = regexp.MustCompile(`\b([0-5](?:[.,]\d{1,2})?)\b`)
	// countRegexp captures a review count such as "(1,234)" or "87 reviews"
	countRegexp = regexp.MustCompile(`\d[\d,.\s]*`)
)

// Fields is the raw field map read from a detail panel
type Fields = models.PanelFields

// Classifier derives a single tag from panel fields
type Classifier func(Fields) string

// Enricher builds records from extracted fields
type Enricher struct {
	industry  Classifier
	sentiment Classifier
	now       func() time.Time
}

// New creates an Enricher. Nil classifiers fall back to the built-in ones.
func New(industry, sentiment Classifier) *Enricher {
	if industry == nil {
		industry = IndustryByKeyword
	}
	if sentiment == nil {
		sentiment = SentimentByRating
	}
	return &Enricher{industry: industry, sentiment: sentiment, now: time.Now}
}

// Enrich normalises fields and attaches identity, source and derived tags
func (e *Enricher) Enrich(identity string, entry models.RawEntry, f Fields, seedURL string) models.Record {
	f = Normalise(f)

	return models.Record{
		Identity:    identity,
		PlaceID:     strings.TrimSpace(entry.PlaceID),
		SeedURL:     seedURL,
		Title:       f.Title,
		Category:    f.Category,
		Rating:      f.Rating,
		RatingValue: ParseRating(f.Rating),
		ReviewCount: ParseReviewCount(f.ReviewCount),
		Phone:       f.Phone,
		Website:     f.Website,
		Address:     f.Address,
		HasPhone:    f.Phone != "",
		HasWebsite:  f.Website != "",
		Industry:    e.industry(f),
		Sentiment:   e.sentiment(f),
		ExtractedAt: e.now().UTC(),
	}
}

// Normalise trims and collapses whitespace in every field
func Normalise(f Fields) Fields {
	return Fields{
		Title:       normaliseText(f.Title),
		Category:    normaliseText(f.Category),
		Rating:      normaliseText(f.Rating),
		ReviewCount: normaliseText(f.ReviewCount),
		Phone:       normaliseText(f.Phone),
		Website:     strings.TrimSpace(f.Website),
		Address:     normaliseText(f.Address),
	}
}

// ParseRating extracts a 0.0–5.0 numeric rating, or 0 when there is none
func ParseRating(raw string) float64 {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return 0
	}
	val, err := strconv.ParseFloat(strings.Replace(match[1], ",", ".", 1), 64)
	if err != nil || val < 0 || val > 5 {
		return 0
	}
	return val
}

// ParseReviewCount extracts the first integer from raw, ignoring thousands separators
func ParseReviewCount(raw string) int {
	match := countRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, match)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
