package harvest

import (
	"context"
	"time"

	"placeharvest/pkg/listing"
	"placeharvest/pkg/models"
)

type (
	RawEntry    = models.RawEntry
	PanelFields = models.PanelFields
	Record      = models.Record
	Message     = models.Message
)

// Driver is the browser session the engine runs against
type Driver interface {
	listing.Driver
	// Open navigates to the seed URL and waits for the listing
	Open(ctx context.Context, seedURL string) error
	// OpenEntry opens an entry's detail panel, reads it and returns to the list
	OpenEntry(ctx context.Context, entry RawEntry) (PanelFields, error)
	Close() error
}

// Generator writes outreach copy for a record
type Generator interface {
	Generate(ctx context.Context, record Record) (Message, error)
}

// Sink receives emitted records
type Sink interface {
	Append(ctx context.Context, record Record) error
	Close() error
}

// Terminal is how a pass over the candidates ended
type Terminal string

const (
	QuotaReached Terminal = "quota-reached"
	Exhausted    Terminal = "exhausted"
	Fatal        Terminal = "fatal"
)

// RunSummary reports one run. Attempted always equals
// Emitted+Skipped+Unresolved+Failed, plus one if the run died mid-entry.
type RunSummary struct {
	SeedURL    string `json:"seed_url,omitempty"`
	Quota      int    `json:"quota"`
	Discovered int    `json:"discovered"`
	Attempted  int    `json:"attempted"`
	Emitted    int    `json:"emitted"`
	// Skipped counts entries already in the seen set
	Skipped    int `json:"skipped"`
	Unresolved int `json:"unresolved"`
	Failed     int `json:"failed"`
	// Fallbacks counts emitted records whose outreach came from the template
	Fallbacks int `json:"fallbacks"`

	Terminal Terminal `json:"terminal"`
	Fatal    bool     `json:"fatal"`
	Reason   string   `json:"reason,omitempty"`
	Error    string   `json:"error,omitempty"`

	StartCursor int  `json:"start_cursor"`
	EndCursor   int  `json:"end_cursor"`
	AutoReset   bool `json:"auto_reset"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Fields flattens the summary for structured logging
func (s RunSummary) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"seed_url":     s.SeedURL,
		"quota":        s.Quota,
		"discovered":   s.Discovered,
		"attempted":    s.Attempted,
		"emitted":      s.Emitted,
		"skipped":      s.Skipped,
		"unresolved":   s.Unresolved,
		"failed":       s.Failed,
		"fallbacks":    s.Fallbacks,
		"terminal":     string(s.Terminal),
		"start_cursor": s.StartCursor,
		"end_cursor":   s.EndCursor,
		"auto_reset":   s.AutoReset,
		"duration":     s.Duration,
	}
	if s.Fatal {
		f["reason"] = s.Reason
		f["error"] = s.Error
	}
	return f
}
