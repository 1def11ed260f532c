package harvest

import (
	"context"

	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/identity"
	"placeharvest/pkg/listing"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/outreach"
)

type outcome int

const (
	outcomeEmitted outcome = iota
	outcomeSeen
	outcomeUnresolved
	outcomeFailed
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeEmitted:
		return "emitted"
	case outcomeSeen:
		return "seen"
	case outcomeUnresolved:
		return "unresolved"
	case outcomeFailed:
		return "failed"
	default:
		return "fatal"
	}
}

// Process walks candidates from startIndex until quota records were emitted,
// the candidates run out, or a run-scoped error occurs. Relative references
// resolve against the configured seed URL.
func (e *Engine) Process(ctx context.Context, candidates *listing.Candidates, startIndex, quota int) RunSummary {
	sum := RunSummary{SeedURL: e.seedURL, Quota: quota, StartCursor: e.store.Cursor(), StartedAt: e.now()}
	e.process(ctx, e.resolver, e.seedURL, candidates, startIndex, quota, &sum)
	sum.EndCursor = e.store.Cursor()
	sum.Duration = e.now().Sub(sum.StartedAt)
	return sum
}

func (e *Engine) process(ctx context.Context, res *identity.Resolver, seedURL string, candidates *listing.Candidates, start, quota int, sum *RunSummary) {
	defer func() {
		if candidates != nil && candidates.Len() > sum.Discovered {
			sum.Discovered = candidates.Len()
		}
	}()

	if quota <= 0 {
		sum.Terminal = QuotaReached
		return
	}

	for i, entry := range candidates.From(ctx, start) {
		if err := ctx.Err(); err != nil {
			e.abort(ctx, sum, errs.Wrap(errs.ErrorTypeCancelled, "run interrupted", err))
			return
		}

		sum.Attempted++
		result, id, err := e.step(ctx, res, seedURL, i, entry, sum)
		switch result {
		case outcomeEmitted:
			sum.Emitted++
		case outcomeSeen:
			sum.Skipped++
		case outcomeUnresolved:
			sum.Unresolved++
		case outcomeFailed:
			sum.Failed++
		case outcomeFatal:
			e.abort(ctx, sum, err)
			return
		}
		logger.LogEntryOutcome(e.logger, i, id, result.String(), err)

		if sum.Emitted >= quota {
			sum.Terminal = QuotaReached
			return
		}
	}

	if err := candidates.Err(); err != nil {
		e.abort(ctx, sum, err)
		return
	}
	sum.Terminal = Exhausted
}

// step runs the per-entry state machine for position i. A non-nil error with
// a non-fatal outcome is the entry-scoped cause of a skip.
func (e *Engine) step(ctx context.Context, res *identity.Resolver, seedURL string, i int, entry RawEntry, sum *RunSummary) (outcome, string, error) {
	id, err := res.Resolve(entry)
	if err != nil {
		if serr := e.store.MarkSkipped(ctx, i); serr != nil {
			return outcomeFatal, "", serr
		}
		return outcomeUnresolved, "", err
	}

	if e.store.Seen(id) {
		if serr := e.store.MarkSkipped(ctx, i); serr != nil {
			return outcomeFatal, id, serr
		}
		return outcomeSeen, id, nil
	}

	if err := e.pace(ctx); err != nil {
		return outcomeFatal, id, err
	}

	fields, err := e.driver.OpenEntry(ctx, entry)
	if err != nil {
		if ctx.Err() != nil || !extractionFailure(err) {
			return outcomeFatal, id, err
		}
		if serr := e.store.MarkSkipped(ctx, i); serr != nil {
			return outcomeFatal, id, serr
		}
		return outcomeFailed, id, err
	}

	record := e.enricher.Enrich(id, entry, fields, seedURL)
	record.Outreach = e.outreach(ctx, record)

	if err := e.sink.Append(ctx, record); err != nil {
		if errs.TypeOf(err) != errs.ErrorTypeSinkUnavailable {
			err = errs.Wrap(errs.ErrorTypeSinkUnavailable, "sink rejected record", err)
		}
		return outcomeFatal, id, err
	}
	if err := e.store.MarkProcessed(ctx, id, i); err != nil {
		return outcomeFatal, id, err
	}
	if record.Outreach.Fallback {
		sum.Fallbacks++
	}
	return outcomeEmitted, id, nil
}

// extractionFailure reports whether a driver error only concerns the current entry.
// Untyped driver errors count as extraction failures.
func extractionFailure(err error) bool {
	t := errs.TypeOf(err)
	return t == errs.ErrorTypeUnknown || !errs.IsFatal(t)
}

func (e *Engine) pace(ctx context.Context) error {
	if r, ok := e.limiter.(interface{ Remaining() int }); ok && r.Remaining() == 0 {
		logger.LogRateLimit(e.logger, "panel_open", 0)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, "interrupted while pacing", err)
	}
	return nil
}

// outreach asks the generator for copy and falls back to the template on any failure
func (e *Engine) outreach(ctx context.Context, record Record) Message {
	if e.generator != nil {
		msg, err := e.generator.Generate(ctx, record)
		if err == nil {
			return msg
		}
		e.logger.WithError(err).WithField("identity", record.Identity).Warn("Outreach generation failed, using fallback")
	}
	return outreach.Fallback(record, e.services, e.sender)
}

// abort marks the summary fatal. Any failure after cancellation is reported as cancelled.
func (e *Engine) abort(ctx context.Context, sum *RunSummary, err error) {
	if ctx.Err() != nil && errs.TypeOf(err) != errs.ErrorTypeCancelled {
		err = errs.Wrap(errs.ErrorTypeCancelled, "run interrupted", err)
	}
	if errs.TypeOf(err) == errs.ErrorTypeUnknown {
		err = errs.Wrap(errs.ErrorTypeDriverUnavailable, "unexpected failure", err)
	}

	sum.Terminal = Fatal
	sum.Fatal = true
	sum.Reason = errs.Reason(err)
	sum.Error = err.Error()
}
