package http

import "github.com/gin-gonic/gin"

// Register mounts the API routes on router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")

	api.GET("/stats", h.Stats)

	// Workspace
	api.GET("/workspace", h.GetWorkspace)
	api.PUT("/workspace", h.PutWorkspace)
	api.PATCH("/workspace/:fragment", h.PatchFragment)
	api.POST("/workspace/reset", h.ResetWorkspace)
	api.POST("/workspace/save", h.SaveCurrent)
	api.GET("/workspace/export", h.Export)
	api.POST("/run", h.Run)

	// Preferences
	api.GET("/preferences", h.GetPreferences)
	api.PUT("/preferences", h.PutPreferences)
	api.POST("/preferences/dark-mode", h.ToggleDarkMode)

	// Console
	api.GET("/console", h.GetConsole)
	api.DELETE("/console", h.ClearConsole)

	// Preview
	api.GET("/preview/document", h.Document)
	api.GET("/preview/rendered", h.Rendered)
	api.GET("/preview/state", h.PreviewState)
	api.POST("/preview/inspect", h.Inspect)
	api.POST("/preview/dispatch", h.Dispatch)

	// Snippets
	api.GET("/snippets", h.ListSnippets)
	api.POST("/snippets", h.SaveSnippet)
	api.GET("/snippets/:id", h.GetSnippet)
	api.PUT("/snippets/:id", h.UpdateSnippet)
	api.DELETE("/snippets/:id", h.DeleteSnippet)
	api.POST("/snippets/:id/load", h.LoadSnippet)

	// Templates
	api.GET("/templates", h.ListTemplates)
	api.GET("/templates/:id", h.GetTemplate)
	api.POST("/templates/:id/apply", h.ApplyTemplate)

	// Share
	api.POST("/share", h.CreateShare)
	api.GET("/share", h.OpenShare)
	api.GET("/share/:token", h.OpenShare)
}
