// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Components take a named child logger (engine, relay, sandbox, http) so
// every line carries its origin. Sandboxed code's native console is written
// through the sandbox logger at debug level, tagged with the instance handle.
//
// Logs go to stderr so the headless run command keeps stdout for the
// captured console.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	engineLog := logger.Component("engine")
//	engineLog.Info("Rebuild scheduled", zap.String("trigger", "edit"))
package logging
