package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogEntryOutcome records what happened to a single candidate entry.
// Skips are logged at warn so they stand out next to emissions.
func LogEntryOutcome(l Logger, index int, identity, outcome string, err error) {
	fields := map[string]interface{}{
		"index":   index,
		"outcome": outcome,
	}
	if identity != "" {
		fields["identity"] = identity
	}

	if err != nil {
		l.WithError(err).WarnWithFields("Entry skipped", fields)
		return
	}
	l.InfoWithFields("Entry "+outcome, fields)
}

// LogGrowth logs one listing growth round
func LogGrowth(l Logger, round, count, stableRounds int) {
	l.DebugWithFields("Listing grown", map[string]interface{}{
		"round":         round,
		"count":         count,
		"stable_rounds": stableRounds,
	})
}

// LogRateLimit logs a pacing wait before the next panel open
func LogRateLimit(l Logger, strategy string, remaining int) {
	l.DebugWithFields("Pacing before next entry", map[string]interface{}{
		"strategy":  strategy,
		"remaining": remaining,
		"action":    "rate_limited",
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l = l.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }

// LogRunSummary logs the end-of-run counters, at error level when the run aborted
func LogRunSummary(l Logger, fields map[string]interface{}, fatal bool) {
	if fatal {
		l.ErrorWithFields("Run aborted", fields)
		return
	}
	l.InfoWithFields("Run finished", fields)
}
