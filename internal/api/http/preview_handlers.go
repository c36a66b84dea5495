package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/livebox/internal/document"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
)

// previewTimeout bounds host calls into the live instance
const previewTimeout = 5 * time.Second

// Document returns the assembled document for the current workspace, the
// same text the frame commits
func (h *Handlers) Document(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(document.Assemble(h.store.Bundle())))
}

// Rendered returns the live DOM of the running instance
func (h *Handlers) Rendered(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), previewTimeout)
	defer cancel()

	out, err := h.preview.Render(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// PreviewState reports the frame lifecycle and capabilities
func (h *Handlers) PreviewState(c *gin.Context) {
	resp := gin.H{
		"state":        h.preview.State(),
		"capabilities": h.preview.Capabilities().List(),
		"sandbox":      h.preview.Capabilities().String(),
	}
	if handle, ok := h.preview.Current(); ok {
		resp["handle"] = handle
	}
	c.JSON(http.StatusOK, resp)
}

// Inspect queries the live DOM with CSS or XPath
func (h *Handlers) Inspect(c *gin.Context) {
	var q sandbox.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, "Invalid query format")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), previewTimeout)
	defer cancel()

	result, err := h.preview.Inspect(ctx, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Dispatch delivers a user interaction into the live document
func (h *Handlers) Dispatch(c *gin.Context) {
	var action sandbox.Interaction
	if err := c.ShouldBindJSON(&action); err != nil {
		badRequest(c, "Invalid interaction format")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), previewTimeout)
	defer cancel()

	if err := h.preview.Dispatch(ctx, action); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}
