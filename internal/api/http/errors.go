package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/domain/share"
	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/domain/template"
	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, snippet.ErrSnippetNotFound),
		errors.Is(err, template.ErrTemplateNotFound),
		errors.Is(err, sandbox.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, snippet.ErrInvalidName),
		errors.Is(err, share.ErrInvalidToken),
		errors.Is(err, share.ErrTokenTooLarge),
		errors.Is(err, sandbox.ErrInvalidQuery),
		errors.Is(err, workspace.ErrInvalidLayout):
		return http.StatusBadRequest
	case errors.Is(err, snippet.ErrNoCurrent),
		errors.Is(err, sandbox.ErrFrameEmpty),
		errors.Is(err, sandbox.ErrStaleHandle),
		errors.Is(err, sandbox.ErrTornDown):
		return http.StatusConflict
	case errors.Is(err, sandbox.ErrNotSameOrigin):
		return http.StatusForbidden
	case errors.Is(err, sandbox.ErrFrameClosed),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error body
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest reports a malformed request body or parameter
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
