package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/livebox/internal/api/http"
	"github.com/GriffinCanCode/livebox/internal/api/middleware"
	"github.com/GriffinCanCode/livebox/internal/api/ws"
	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/domain/template"
	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/engine"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/config"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/storage/sqlite"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
)

// maxBodyBytes bounds request bodies; a bundle larger than the frame accepts
// is rejected there anyway
const maxBodyBytes = 8 << 20

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	store   *workspace.Store
	engine  *engine.Engine
	frame   *sandbox.Frame
	db      *sqlite.DB
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing livebox server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("capabilities", cfg.Sandbox.Capabilities),
		zap.String("storage", cfg.Storage.Driver),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("livebox", logger.Component("tracing"))

	frameCfg, err := cfg.Sandbox.Frame()
	if err != nil {
		return nil, err
	}
	frame, err := sandbox.NewFrame(frameCfg, logger.Component("sandbox"))
	if err != nil {
		return nil, fmt.Errorf("create sandbox frame: %w", err)
	}

	s := &Server{
		frame:   frame,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}

	store := workspace.NewStore(template.Default(), console.NewLog(cfg.Sandbox.ConsoleCapacity))

	var repo snippet.Repository = snippet.NewMemoryRepository()
	if cfg.Storage.Driver == "sqlite" {
		db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Storage.Path}, logger.Component("storage"))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.db = db
		repo = db.Snippets()
		if _, err := store.WithPreferenceStore(ctx, db.Preferences()); err != nil {
			logger.Warn("Failed to restore preferences", zap.Error(err))
		}
		logger.Info("SQLite storage opened", zap.String("path", cfg.Storage.Path))
	}
	s.store = store

	eng := engine.New(frame, store.Console(), engine.Options{
		Debounce: cfg.Sandbox.Debounce.Std(),
		MaxWait:  cfg.Sandbox.MaxWait.Std(),
	}, logger.Component("engine")).WithMetrics(metrics)
	s.engine = eng

	// Every edit feeds the scheduler; the initial bundle renders on start
	store.Observe(eng.Submit)
	eng.Submit(store.Bundle())

	s.router = s.routes(repo)

	logger.Info("Server initialized successfully")
	return s, nil
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		logCfg.Level = cfg.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func (s *Server) routes(repo snippet.Repository) *gin.Engine {
	cfg := s.config
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins...)))
	if cfg.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}
	router.Use(middleware.BodyLimit(maxBodyBytes))

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Store:     s.store,
		Engine:    s.engine,
		Preview:   s.frame,
		Snippets:  snippet.NewManager(repo, s.store, s.logger.Component("snippets")),
		Templates: template.Builtin(),
		Metrics:   s.metrics,
		Logger:    s.logger.Component("api"),
	})
	handlers.Register(router)

	wsHandler := ws.NewHandler(s.store, s.engine, s.metrics, s.logger.Component("ws"), cfg.CORS.AllowedOrigins...)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/metrics/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.Snapshot())
	})
	router.GET("/debug/traces", func(c *gin.Context) {
		n, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		c.JSON(http.StatusOK, gin.H{"spans": s.tracer.Recent(n)})
	})

	return router
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the workspace store
func (s *Server) Store() *workspace.Store {
	return s.store
}

// Engine returns the execution engine
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Run starts the engine and the HTTP server and blocks until ctx is done,
// then shuts both down gracefully
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- s.engine.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			cancel()
			<-engineErr
			return fmt.Errorf("http server: %w", err)
		}
	case err := <-engineErr:
		if err != nil {
			_ = srv.Close()
			return fmt.Errorf("engine: %w", err)
		}
	}

	timeout := s.config.Server.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	s.logger.Info("Shutting down HTTP server", zap.Duration("timeout", timeout))
	err := srv.Shutdown(shutdownCtx)
	cancel()
	return err
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.frame != nil {
		if err := s.frame.Close(); err != nil {
			s.logger.Error("Failed to close sandbox frame", zap.Error(err))
			errs = append(errs, fmt.Errorf("close sandbox frame: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close storage", zap.Error(err))
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if s.tracer != nil {
		s.tracer.Close()
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
