package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// GetConsole returns the console log, optionally filtered by level
func (h *Handlers) GetConsole(c *gin.Context) {
	entries := h.store.Console().Entries()

	if raw := c.Query("level"); raw != "" {
		level, ok := types.ParseLevel(raw)
		if !ok {
			badRequest(c, "Unknown level, expected log, warn or error")
			return
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Level == level {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"stats":   h.store.Console().Stats(),
	})
}

// ClearConsole empties the console log
func (h *Handlers) ClearConsole(c *gin.Context) {
	h.store.ClearConsole()
	c.Status(http.StatusNoContent)
}
