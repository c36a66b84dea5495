// Package http provides HTTP handlers and routing for the livebox REST API.
//
// Endpoints:
//   - Health: /, /health, /api/stats
//   - Workspace: /api/workspace, /api/workspace/:fragment, /api/workspace/reset,
//     /api/workspace/save, /api/workspace/export, /api/run
//   - Preferences: /api/preferences, /api/preferences/dark-mode
//   - Console: /api/console
//   - Preview: /api/preview/document, /api/preview/rendered, /api/preview/state,
//     /api/preview/inspect, /api/preview/dispatch
//   - Snippets: /api/snippets, /api/snippets/:id, /api/snippets/:id/load
//   - Templates: /api/templates, /api/templates/:id, /api/templates/:id/apply
//   - Share: /api/share, /api/share/:token
//
// Domain errors map to status codes in one place (statusFor) and are
// returned as {"error": "..."} bodies.
//
// Example Usage:
//
//	handlers := http.NewHandlers(http.Deps{Store: store, Engine: eng, Preview: frame, Snippets: snippets})
//	handlers.Register(router)
package http
