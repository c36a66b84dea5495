package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens a span per request, continuing the caller's trace
// when the request carries one, and echoes the ids back as headers
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithRemote(c.Request.Context(), c.GetHeader(TraceHeader), c.GetHeader(SpanHeader))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		span, ctx := tracer.Start(ctx, c.Request.Method+" "+route)
		defer span.End()
		span.Tag("http.path", c.Request.URL.Path)

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, span.TraceID())
		c.Header(SpanHeader, span.ID())

		c.Next()

		status := c.Writer.Status()
		span.Status(status)
		span.Tag("http.status", strconv.Itoa(status))
		if err := c.Errors.Last(); err != nil {
			span.Fail(err)
		}
	}
}
