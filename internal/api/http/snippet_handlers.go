package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SaveSnippetRequest names the snippet to create from the workspace
type SaveSnippetRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateSnippetRequest optionally renames a snippet
type UpdateSnippetRequest struct {
	Name *string `json:"name"`
}

// ListSnippets lists saved snippets in creation order
func (h *Handlers) ListSnippets(c *gin.Context) {
	timer := h.track("snippets", "list")
	list, err := h.snippets.List(c.Request.Context())
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snippets": list,
		"current":  h.store.CurrentSnippet(),
	})
}

// SaveSnippet stores the workspace under a name
func (h *Handlers) SaveSnippet(c *gin.Context) {
	var req SaveSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Snippet name is required")
		return
	}

	timer := h.track("snippets", "save")
	s, err := h.snippets.Save(c.Request.Context(), req.Name)
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// GetSnippet returns one snippet with its fragments
func (h *Handlers) GetSnippet(c *gin.Context) {
	s, err := h.snippets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// UpdateSnippet overwrites a snippet with the workspace
func (h *Handlers) UpdateSnippet(c *gin.Context) {
	var req UpdateSnippetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid snippet update format")
			return
		}
	}

	timer := h.track("snippets", "update")
	s, err := h.snippets.Update(c.Request.Context(), c.Param("id"), req.Name)
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// SaveCurrent writes the workspace back into the snippet being edited
func (h *Handlers) SaveCurrent(c *gin.Context) {
	timer := h.track("snippets", "update_current")
	s, err := h.snippets.UpdateCurrent(c.Request.Context())
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// DeleteSnippet removes a snippet
func (h *Handlers) DeleteSnippet(c *gin.Context) {
	timer := h.track("snippets", "delete")
	err := h.snippets.Delete(c.Request.Context(), c.Param("id"))
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadSnippet replaces the workspace with a snippet
func (h *Handlers) LoadSnippet(c *gin.Context) {
	timer := h.track("snippets", "load")
	_, err := h.snippets.Load(c.Request.Context(), c.Param("id"))
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.workspaceResponse())
}
