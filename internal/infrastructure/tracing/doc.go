/*
Package tracing provides lightweight request tracing for the HTTP API.

Each request gets a span; an inbound X-Trace-ID continues the caller's trace,
otherwise a new request id starts one. The ids are echoed in the response
headers. Finished spans are logged with zap from a buffered collector, and
the last few hundred are kept in memory for /debug/traces.

# Usage

	tracer := tracing.New("livebox", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	traceID := tracing.TraceIDFrom(c.Request.Context())
*/
package tracing
