// Package server wires the livebox service together.
//
// This package orchestrates all components:
//   - Sandboxed execution frame and its runtime pool
//   - Workspace store, console log and the execution engine
//   - Snippet storage (in memory or SQLite)
//   - HTTP routing with Gin, the WebSocket stream and /metrics
//   - Middleware stack (recovery, tracing, metrics, CORS, rate limiting)
//
// Server Lifecycle:
//  1. Load configuration (defaults, TOML file, environment)
//  2. Initialize logger, metrics and tracer
//  3. Create the frame and the engine, submit the starter document
//  4. Setup HTTP routes and middleware
//  5. Run the engine loop and the HTTP server
//  6. Graceful shutdown when the context ends
//
// Example Usage:
//
//	cfg, err := config.Load()
//	srv, err := server.NewServer(ctx, cfg)
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
