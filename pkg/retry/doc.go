// Package retry provides backoff strategies and a context-aware retry loop.
//
// It is used where a collaborator can fail transiently: the listing container
// not yet being present, a generation request hitting a 5xx, or a database
// connection that is still coming up. Wait doubles as the settle delay used
// between listing growth rounds and after panel interactions.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return driver.Open(ctx, seed)
//	}, cfg)
package retry
