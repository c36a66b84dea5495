// Package sqlite persists snippets and preferences in SQLite through GORM.
// It uses modernc.org/sqlite (pure Go, no CGO) via the glebarez driver. All
// GORM usage is confined to this package; domain types stay ORM-free.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/resilience"
)

// Config holds SQLite configuration
type Config struct {
	Path        string // Database file path
	JournalMode string // WAL by default
	Breaker     resilience.Settings
}

// DB wraps the GORM connection
type DB struct {
	db      *gorm.DB
	log     *zap.Logger
	path    string
	breaker *resilience.Breaker
}

// Open creates or opens the database and migrates its tables
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	journalMode := cfg.JournalMode
	if journalMode == "" {
		journalMode = "wal"
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(5000)", cfg.Path, journalMode)

	gormLogger := logger.New(
		zapAdapter{log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	d := &DB{db: db, log: log, path: cfg.Path, breaker: newBreaker(cfg.Breaker, log)}
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrating sqlite database: %w", err)
	}

	log.Info("SQLite store opened", zap.String("path", cfg.Path), zap.String("journal_mode", journalMode))
	return d, nil
}

// Migrate creates or updates the tables
func (d *DB) Migrate(ctx context.Context) error {
	return d.db.WithContext(ctx).AutoMigrate(&SnippetModel{}, &PreferencesModel{})
}

// Ping checks the connection
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Snippets returns the snippet repository
func (d *DB) Snippets() *SnippetRepository {
	return NewSnippetRepository(d.db, d.breaker)
}

// Preferences returns the preference store
func (d *DB) Preferences() *PreferenceRepository {
	return NewPreferenceRepository(d.db, d.breaker)
}

// Breaker returns the breaker guarding every query
func (d *DB) Breaker() *resilience.Breaker {
	return d.breaker
}

// newBreaker guards queries so a failing database fails fast. Missing rows
// are answers, not failures.
func newBreaker(settings resilience.Settings, log *zap.Logger) *resilience.Breaker {
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool {
			return err != nil &&
				!errors.Is(err, snippet.ErrSnippetNotFound) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded)
		}
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("Storage circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
	}
	return resilience.New("sqlite", settings)
}

// zapAdapter wraps *zap.Logger for GORM's logger.Writer interface
type zapAdapter struct {
	log *zap.Logger
}

func (a zapAdapter) Printf(format string, args ...interface{}) {
	a.log.Warn(fmt.Sprintf(format, args...))
}
