// Package main is the entry point for livebox, a live preview engine for
// HTML, CSS and JavaScript snippets.
//
// The server provides:
//   - REST API for the workspace, snippets, templates and share links
//   - WebSocket streaming of the sandboxed document's console
//   - Prometheus metrics and health checks
//
// Configuration:
//   - Defaults for development
//   - TOML file (--config or LIVEBOX_CONFIG)
//   - Environment variables (12-factor)
//   - CLI flags (override everything else)
//
// Usage:
//
//	livebox serve --port 8000
//	livebox run --markup index.html --script app.js --wait 2s
//	livebox templates
//	livebox share --markup index.html
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
