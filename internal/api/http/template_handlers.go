package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTemplates lists the built-in starter templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.templates.List()})
}

// GetTemplate returns one template with its fragments
func (h *Handlers) GetTemplate(c *gin.Context) {
	t, err := h.templates.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ApplyTemplate replaces the workspace with a template. The workspace is
// detached from any snippet.
func (h *Handlers) ApplyTemplate(c *gin.Context) {
	t, err := h.templates.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.store.Load(t.Bundle(), "")
	c.JSON(http.StatusOK, h.workspaceResponse())
}
