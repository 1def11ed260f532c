// Package sink appends finished place records to their destination.
//
// Every sink is idempotent per identity: appending a record whose identity is
// already present is a no-op, which bounds the duplicates an at-least-once
// run can produce.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
)

// Sink receives records in emission order
type Sink interface {
	Append(ctx context.Context, r models.Record) error
	Close() error
}

// Open creates the sink selected by cfg
func Open(ctx context.Context, cfg config.SinkConfig, log logger.Logger) (Sink, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "sink", "type": cfg.Type})

	switch cfg.Type {
	case "", "jsonl":
		return NewJSONL(cfg.Path, log)
	case "csv":
		return NewCSV(cfg.Path, log)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN, cfg.Table, log)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}

// unavailable wraps a write failure as the run-fatal sink error
func unavailable(msg string, err error) error {
	return errs.Wrap(errs.ErrorTypeSinkUnavailable, msg, err)
}

func ensureDir(path string) error {
	if path == "" {
		return fmt.Errorf("sink path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// csvHeader lists the flat columns of a record, identity first
var csvHeader = []string{
	"identity", "place_id", "title", "category", "rating", "rating_value", "review_count",
	"phone", "website", "address", "has_phone", "has_website", "industry", "sentiment",
	"whatsapp", "email_subject", "email_body", "fallback", "seed_url", "extracted_at",
}

func csvRow(r models.Record) []string {
	return []string{
		r.Identity, r.PlaceID, r.Title, r.Category, r.Rating,
		strconv.FormatFloat(r.RatingValue, 'f', -1, 64), strconv.Itoa(r.ReviewCount),
		r.Phone, r.Website, r.Address,
		strconv.FormatBool(r.HasPhone), strconv.FormatBool(r.HasWebsite),
		r.Industry, r.Sentiment,
		r.Outreach.WhatsApp, r.Outreach.EmailSubject, r.Outreach.EmailBody,
		strconv.FormatBool(r.Outreach.Fallback),
		r.SeedURL, r.ExtractedAt.UTC().Format(time.RFC3339),
	}
}
