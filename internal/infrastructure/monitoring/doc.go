/*
Package monitoring provides Prometheus metrics for the engine and its API.

# Metrics

  - HTTP requests (count, latency, response size) by route template
  - Rebuilds by trigger, commit failures, skipped unchanged submissions
  - Load duration from rebuild start to committed handle
  - Console events by level and dropped boundary messages by reason
  - Live sandbox instances
  - Domain operations (snippets, share, templates) via Timer
  - WebSocket connections and messages

Metrics live on their own registry so tests can create as many collectors as
they need. *Metrics satisfies engine.Recorder.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	eng := engine.New(frame, store.Console(), opts, log).WithMetrics(metrics)

	timer := monitoring.NewTimer(metrics, "snippets", "save")
	_, err := manager.Save(ctx, name)
	timer.Stop(err)
*/
package monitoring
