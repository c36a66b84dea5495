package http

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/livebox/internal/domain/export"
	"github.com/GriffinCanCode/livebox/internal/domain/share"
)

// ShareRequest selects the token format
type ShareRequest struct {
	Format share.Format `json:"format"`
}

// CreateShare encodes the workspace as a share token
func (h *Handlers) CreateShare(c *gin.Context) {
	req := ShareRequest{Format: share.FormatCompact}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid share request format")
			return
		}
	}
	switch req.Format {
	case "":
		req.Format = share.FormatCompact
	case share.FormatCompact, share.FormatLegacy:
	default:
		badRequest(c, "Unknown format, expected compact or legacy")
		return
	}

	timer := h.track("share", "encode")
	token, err := share.Encode(h.store.Bundle(), req.Format)
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"format": req.Format,
		"path":   "/?code=" + url.QueryEscape(token),
	})
}

// OpenShare decodes a token and applies its non-empty fragments to the
// workspace. The token comes from the path or, as in share links, from the
// code query parameter.
func (h *Handlers) OpenShare(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		token = c.Query("code")
	}
	if token == "" {
		badRequest(c, "Share token is required")
		return
	}

	timer := h.track("share", "decode")
	shared, err := share.Decode(token)
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.store.SetBundle(share.Apply(h.store.Bundle(), shared))
	c.JSON(http.StatusOK, h.workspaceResponse())
}

// Export downloads the workspace as a zip project
func (h *Handlers) Export(c *gin.Context) {
	var buf bytes.Buffer
	timer := h.track("export", "zip")
	err := export.Write(&buf, h.store.Bundle(), h.now())
	timer.Stop(err)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
