// Package config provides 12-factor configuration management for livebox.
//
// Values are layered: built-in defaults, then an optional TOML file named by
// LIVEBOX_CONFIG, then environment variables.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, shutdown timeout)
//   - Sandbox: capabilities, execution limits, rebuild debounce
//   - Storage: snippet repository driver (memory or sqlite)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - CORS: allowed browser origins
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	frameCfg, _ := cfg.Sandbox.Frame()
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - SANDBOX_CAPABILITIES, SANDBOX_TIMEOUT, SANDBOX_DEBOUNCE, SANDBOX_MAX_WAIT
//   - SANDBOX_MAX_CALL_STACK, SANDBOX_MAX_DOCUMENT_BYTES, SANDBOX_MAX_TIMERS
//   - SANDBOX_POOL_SIZE, SANDBOX_HOST_ORIGIN, CONSOLE_CAPACITY
//   - STORAGE_DRIVER, STORAGE_PATH
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - CORS_ORIGINS
package config
