package harvest

import (
	"context"
	"fmt"

	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/identity"
	"placeharvest/pkg/logger"
)

// RunOnce performs one run against seedURL with the given output quota. It
// never returns an error: run-scoped failures are reported through the
// summary's Fatal flag and Reason.
func (e *Engine) RunOnce(ctx context.Context, seedURL string, quota int) (sum RunSummary) {
	sum = RunSummary{SeedURL: seedURL, Quota: quota, StartedAt: e.now()}

	defer func() {
		if r := recover(); r != nil {
			e.abort(ctx, &sum, errs.New(errs.ErrorTypeUnknown, fmt.Sprintf("panic: %v", r)))
			sum.Reason = "panic"
		}
		sum.EndCursor = e.store.Cursor()
		sum.Duration = e.now().Sub(sum.StartedAt)
		logger.LogRunSummary(e.logger, sum.Fields(), sum.Fatal)
		logger.LogComponentStop(e.logger, "harvest", string(sum.Terminal))
	}()

	logger.LogComponentStart(e.logger, "harvest", map[string]interface{}{
		"seed_url": seedURL,
		"quota":    quota,
	})

	res, err := identity.NewResolver(seedURL)
	if err != nil {
		e.abort(ctx, &sum, errs.Wrap(errs.ErrorTypeListingUnavailable, "invalid seed URL", err))
		return sum
	}

	state, err := e.store.Load(ctx)
	if err != nil {
		e.abort(ctx, &sum, err)
		return sum
	}
	sum.StartCursor = state.Cursor

	if quota <= 0 {
		sum.Terminal = QuotaReached
		return sum
	}

	if err := e.driver.Open(ctx, seedURL); err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeUnknown {
			err = errs.Wrap(errs.ErrorTypeDriverUnavailable, "failed to open seed URL", err)
		}
		e.abort(ctx, &sum, err)
		return sum
	}

	target := state.Cursor + quota
	if e.maxCandidates > 0 && target > e.maxCandidates {
		target = e.maxCandidates
	}

	candidates, err := e.loader.Grow(ctx, target)
	if err != nil {
		e.abort(ctx, &sum, err)
		return sum
	}
	sum.Discovered = candidates.Len()

	e.process(ctx, res, seedURL, candidates, state.Cursor, quota, &sum)

	if sum.Terminal == Exhausted && sum.Emitted == 0 {
		if err := e.store.Reset(ctx); err != nil {
			e.abort(ctx, &sum, err)
			return sum
		}
		sum.AutoReset = true
	}
	return sum
}
