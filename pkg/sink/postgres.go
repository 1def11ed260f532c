package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
	"placeharvest/pkg/retry"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Postgres inserts records into a table keyed by identity
type Postgres struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

// NewPostgres connects, waits for the server and creates the table if needed
func NewPostgres(ctx context.Context, dsn, table string, log logger.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink requires a DSN")
	}
	if table == "" {
		table = "places"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	err = retry.Do(ctx, db.PingContext, &retry.Config{
		MaxAttempts: 10,
		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
		Logger:      log,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	p := &Postgres{db: db, table: pq.QuoteIdentifier(table), logger: log}
	if err := p.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			identity     TEXT PRIMARY KEY,
			place_id     TEXT         NOT NULL DEFAULT '',
			title        TEXT         NOT NULL,
			category     TEXT         NOT NULL DEFAULT '',
			rating       NUMERIC(3,2) NOT NULL DEFAULT 0,
			review_count INTEGER      NOT NULL DEFAULT 0,
			phone        TEXT         NOT NULL DEFAULT '',
			website      TEXT         NOT NULL DEFAULT '',
			address      TEXT         NOT NULL DEFAULT '',
			industry     TEXT         NOT NULL DEFAULT '',
			sentiment    TEXT         NOT NULL DEFAULT '',
			outreach     JSONB        NOT NULL DEFAULT '{}',
			seed_url     TEXT         NOT NULL DEFAULT '',
			extracted_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`, p.table))
	return err
}

// Append inserts r, ignoring an identity that is already stored
func (p *Postgres) Append(ctx context.Context, r models.Record) error {
	outreach, err := json.Marshal(r.Outreach)
	if err != nil {
		return unavailable("failed to encode outreach", err)
	}

	res, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (identity, place_id, title, category, rating, review_count, phone,
			website, address, industry, sentiment, outreach, seed_url, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (identity) DO NOTHING`, p.table),
		r.Identity, r.PlaceID, r.Title, r.Category, r.RatingValue, r.ReviewCount, r.Phone,
		r.Website, r.Address, r.Industry, r.Sentiment, string(outreach), r.SeedURL, r.ExtractedAt)
	if err != nil {
		return unavailable("postgres insert failed", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		p.logger.DebugWithFields("Record already in sink", map[string]interface{}{"identity": r.Identity})
	}
	return nil
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	return p.db.Close()
}
