package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/engine"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// WorkspaceResponse is the workspace with the live sandbox handle
type WorkspaceResponse struct {
	workspace.Snapshot
	Engine engine.Stats `json:"engine"`
}

func (h *Handlers) workspaceResponse() WorkspaceResponse {
	return WorkspaceResponse{Snapshot: h.store.Snapshot(), Engine: h.engine.Stats()}
}

// GetWorkspace returns the fragments, preferences and current snippet
func (h *Handlers) GetWorkspace(c *gin.Context) {
	c.JSON(http.StatusOK, h.workspaceResponse())
}

// PutWorkspace replaces all three fragments
func (h *Handlers) PutWorkspace(c *gin.Context) {
	var bundle types.SourceBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		badRequest(c, "Invalid workspace format")
		return
	}
	h.store.SetBundle(bundle)
	c.JSON(http.StatusOK, h.workspaceResponse())
}

// FragmentRequest carries one edited fragment
type FragmentRequest struct {
	Text *string `json:"text"`
}

// PatchFragment replaces one fragment
func (h *Handlers) PatchFragment(c *gin.Context) {
	fragment, ok := types.ParseFragment(c.Param("fragment"))
	if !ok {
		badRequest(c, "Unknown fragment, expected markup, style or script")
		return
	}

	var req FragmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == nil {
		badRequest(c, "Request must carry a text field")
		return
	}

	h.store.SetFragment(fragment, *req.Text)
	c.JSON(http.StatusOK, h.workspaceResponse())
}

// ResetWorkspace restores the starter fragments, clears the console and
// reruns the preview
func (h *Handlers) ResetWorkspace(c *gin.Context) {
	h.store.Reset()
	h.engine.Rebuild()
	c.JSON(http.StatusOK, h.workspaceResponse())
}

// Run forces a rebuild of the current workspace
func (h *Handlers) Run(c *gin.Context) {
	h.engine.Rebuild()
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// GetPreferences returns the UI preferences
func (h *Handlers) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Preferences())
}

// PutPreferences replaces the UI preferences
func (h *Handlers) PutPreferences(c *gin.Context) {
	var prefs types.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		badRequest(c, "Invalid preferences format")
		return
	}
	if err := h.store.SetPreferences(c.Request.Context(), prefs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// ToggleDarkMode flips the theme
func (h *Handlers) ToggleDarkMode(c *gin.Context) {
	prefs, err := h.store.ToggleDarkMode(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
