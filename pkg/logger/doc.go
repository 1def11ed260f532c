// Package logger provides the structured logging interface used across placeharvest.
//
// It wraps zerolog with a small Logger interface so components can carry
// fields (entry index, identity, component name) without depending on zerolog
// directly. Console output is colourised and written to stderr; JSON output
// and an additional log file can be enabled through config.LoggingConfig.
//
//	cfg := &config.LoggingConfig{Level: "debug"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "pipeline")
//	log.InfoWithFields("Entry emitted", map[string]interface{}{"index": 3})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
