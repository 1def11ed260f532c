// Package listing grows an infinitely scrolling listing until it stops
// growing or holds enough entries, then exposes the cards as an ordered,
// restartable candidate sequence.
package listing

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
	"placeharvest/pkg/retry"
)

// Driver is the part of the automation session the loader needs
type Driver interface {
	// CountEntries returns the number of cards currently in the listing.
	// An error means the listing container could not be found.
	CountEntries(ctx context.Context) (int, error)
	// GrowListing asks the page to reveal more cards; it may do nothing
	GrowListing(ctx context.Context) error
	// Entries snapshots the cards currently in the listing, in display order
	Entries(ctx context.Context) ([]models.RawEntry, error)
}

// Loader drives listing growth. It holds no state between calls to Grow.
type Loader struct {
	driver Driver
	cfg    config.ListingConfig
	logger logger.Logger
}

// NewLoader creates a loader over driver
func NewLoader(driver Driver, cfg config.ListingConfig, log logger.Logger) *Loader {
	if cfg.StableRounds < 1 {
		cfg.StableRounds = 3
	}
	if cfg.ContainerRetries < 1 {
		cfg.ContainerRetries = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Loader{
		driver: driver,
		cfg:    cfg,
		logger: log.WithField("component", "listing"),
	}
}

// Grow scrolls the listing until the card count has not increased for more
// than StableRounds consecutive checks, or the count reaches target (capped
// at MaxCandidates). A first count of zero always gets at least one grow.
// target only stops growth: the candidates hold every loaded card up to
// MaxCandidates.
func (l *Loader) Grow(ctx context.Context, target int) (*Candidates, error) {
	limit := l.cfg.MaxCandidates
	if target > 0 && (limit <= 0 || target < limit) {
		limit = target
	}

	last := -1
	stable := 0
	grows := 0

	for round := 1; ; round++ {
		count, err := l.count(ctx)
		if err != nil {
			return nil, err
		}

		if count > last {
			last = count
			stable = 0
		} else {
			stable++
		}
		logger.LogGrowth(l.logger, round, count, stable)

		if limit > 0 && count >= limit && (count > 0 || grows > 0) {
			l.logger.InfoWithFields("Listing reached target", map[string]interface{}{
				"count":  count,
				"target": limit,
				"rounds": round,
			})
			break
		}
		if stable > l.cfg.StableRounds {
			l.logger.InfoWithFields("Listing stopped growing", map[string]interface{}{
				"count":  count,
				"rounds": round,
			})
			break
		}

		if err := l.driver.GrowListing(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx.Err())
			}
			l.logger.WithError(err).Debug("Grow request failed")
		}
		grows++

		if err := retry.Wait(ctx, l.cfg.SettleInterval); err != nil {
			return nil, cancelled(err)
		}
	}

	return &Candidates{
		source:     l.driver.Entries,
		limit:      l.cfg.MaxCandidates,
		discovered: last,
	}, nil
}

// count reads the card count, retrying while the listing container is absent
func (l *Loader) count(ctx context.Context) (int, error) {
	settle := l.cfg.SettleInterval
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}

	n, err := retry.DoWithResult(ctx, l.driver.CountEntries, &retry.Config{
		MaxAttempts: l.cfg.ContainerRetries,
		Backoff:     &retry.ConstantBackoff{Delay: settle},
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		Logger: l.logger,
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, cancelled(ctx.Err())
		}
		return 0, errs.Wrap(errs.ErrorTypeListingUnavailable,
			fmt.Sprintf("listing container absent after %d attempts", l.cfg.ContainerRetries), err)
	}
	return n, nil
}

func cancelled(cause error) error {
	return errs.Wrap(errs.ErrorTypeCancelled, "listing growth interrupted", cause)
}

// Candidates is the ordered entry sequence for one run. The driver snapshot is
// taken on first iteration and reused by later iterations.
type Candidates struct {
	source     func(ctx context.Context) ([]models.RawEntry, error)
	limit      int
	discovered int

	entries []models.RawEntry
	loaded  bool
	err     error
}

// NewCandidates wraps a fixed entry list
func NewCandidates(entries []models.RawEntry) *Candidates {
	c := &Candidates{discovered: len(entries), loaded: true}
	c.entries = reindex(entries, 0)
	return c
}

func (c *Candidates) load(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true

	entries, err := c.source(ctx)
	if err != nil {
		c.err = errs.Wrap(errs.ErrorTypeListingUnavailable, "failed to snapshot listing", err)
		return
	}
	c.entries = reindex(entries, c.limit)
	c.discovered = len(c.entries)
}

func reindex(entries []models.RawEntry, limit int) []models.RawEntry {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]models.RawEntry, len(entries))
	for i, e := range entries {
		e.Index = i
		out[i] = e
	}
	return out
}

// All yields every candidate with its index
func (c *Candidates) All(ctx context.Context) iter.Seq2[int, models.RawEntry] {
	return c.From(ctx, 0)
}

// From yields candidates starting at index start
func (c *Candidates) From(ctx context.Context, start int) iter.Seq2[int, models.RawEntry] {
	return func(yield func(int, models.RawEntry) bool) {
		c.load(ctx)
		if start < 0 {
			start = 0
		}
		for i := start; i < len(c.entries); i++ {
			if !yield(i, c.entries[i]) {
				return
			}
		}
	}
}

// Len returns the number of candidates, or the last observed card count before the first iteration
func (c *Candidates) Len() int {
	return c.discovered
}

// Err returns the snapshot error, if the first iteration failed to read the listing
func (c *Candidates) Err() error {
	return c.err
}
