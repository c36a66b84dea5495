package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/domain/template"
	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/engine"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
)

// Version is reported by the root endpoint
const Version = "0.1.0"

// Engine is the part of the execution engine the API drives
type Engine interface {
	Rebuild()
	Stats() engine.Stats
}

// Preview is the sandboxed frame as seen by the API
type Preview interface {
	Render(ctx context.Context) (string, error)
	Inspect(ctx context.Context, q sandbox.Query) (*sandbox.Inspection, error)
	Dispatch(ctx context.Context, action sandbox.Interaction) error
	State() sandbox.State
	Current() (sandbox.Handle, bool)
	Capabilities() sandbox.Capabilities
	PoolStats() sandbox.PoolStats
}

// Deps are the collaborators the handlers serve
type Deps struct {
	Store     *workspace.Store
	Engine    Engine
	Preview   Preview
	Snippets  *snippet.Manager
	Templates *template.Catalog
	Metrics   *monitoring.Metrics
	Logger    *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store     *workspace.Store
	engine    Engine
	preview   Preview
	snippets  *snippet.Manager
	templates *template.Catalog
	metrics   *monitoring.Metrics
	log       *zap.Logger
	now       func() time.Time
	started   time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	templates := deps.Templates
	if templates == nil {
		templates = template.Builtin()
	}
	return &Handlers{
		store:     deps.Store,
		engine:    deps.Engine,
		preview:   deps.Preview,
		snippets:  deps.Snippets,
		templates: templates,
		metrics:   deps.Metrics,
		log:       log,
		now:       time.Now,
		started:   time.Now(),
	}
}

// Root describes the service
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "livebox",
		"version": Version,
	})
}

// Health reports engine and frame state
func (h *Handlers) Health(c *gin.Context) {
	stats := h.engine.Stats()
	status := "healthy"
	code := http.StatusOK
	if !stats.Running {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"engine":  stats,
		"frame":   gin.H{"state": h.preview.State(), "pool": h.preview.PoolStats()},
		"console": h.store.Console().Stats(),
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// Stats returns the JSON metrics snapshot
func (h *Handlers) Stats(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{"engine": h.engine.Stats()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"engine":  h.engine.Stats(),
		"metrics": h.metrics.Snapshot(),
	})
}

// track times a domain operation when metrics are configured
func (h *Handlers) track(component, operation string) *monitoring.Timer {
	return monitoring.NewTimer(h.metrics, component, operation)
}
