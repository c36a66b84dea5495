package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/livebox/internal/sandbox"
)

// FileEnv names the optional TOML file applied beneath environment variables
const FileEnv = "LIVEBOX_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	CORS      CORSConfig      `toml:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string   `envconfig:"PORT" toml:"port"`
	Host            string   `envconfig:"HOST" toml:"host"`
	ShutdownTimeout Duration `envconfig:"SHUTDOWN_TIMEOUT" toml:"shutdown_timeout"`
}

// SandboxConfig holds execution engine configuration.
type SandboxConfig struct {
	Capabilities     string   `envconfig:"SANDBOX_CAPABILITIES" toml:"capabilities"`
	Timeout          Duration `envconfig:"SANDBOX_TIMEOUT" toml:"timeout"`
	Debounce         Duration `envconfig:"SANDBOX_DEBOUNCE" toml:"debounce"`
	MaxWait          Duration `envconfig:"SANDBOX_MAX_WAIT" toml:"max_wait"`
	MaxCallStackSize int      `envconfig:"SANDBOX_MAX_CALL_STACK" toml:"max_call_stack"`
	MaxDocumentBytes int      `envconfig:"SANDBOX_MAX_DOCUMENT_BYTES" toml:"max_document_bytes"`
	MaxTimers        int      `envconfig:"SANDBOX_MAX_TIMERS" toml:"max_timers"`
	PoolSize         int      `envconfig:"SANDBOX_POOL_SIZE" toml:"pool_size"`
	HostOrigin       string   `envconfig:"SANDBOX_HOST_ORIGIN" toml:"host_origin"`
	ConsoleCapacity  int      `envconfig:"CONSOLE_CAPACITY" toml:"console_capacity"`
}

// StorageConfig selects the snippet repository.
type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" toml:"driver"` // "memory" or "sqlite"
	Path   string `envconfig:"STORAGE_PATH" toml:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// CORSConfig holds allowed browser origins for the API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ORIGINS" toml:"allowed_origins"`
}

// Duration is a time.Duration that decodes from "250ms" style text in both
// TOML and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load builds configuration from defaults, then the TOML file named by
// LIVEBOX_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ApplyFile overlays the values present in a TOML file
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	var errs []error
	if _, err := sandbox.ParseCapabilities(c.Sandbox.Capabilities); err != nil {
		errs = append(errs, err)
	}
	if c.Sandbox.Debounce < 0 {
		errs = append(errs, errors.New("sandbox debounce must not be negative"))
	}
	if c.Sandbox.MaxWait != 0 && c.Sandbox.MaxWait < c.Sandbox.Debounce {
		errs = append(errs, errors.New("sandbox max wait must be at least the debounce"))
	}
	if c.Sandbox.PoolSize < 0 {
		errs = append(errs, errors.New("sandbox pool size must not be negative"))
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("sqlite storage requires a path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate limit requires positive rps and burst"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Frame converts the sandbox section into a frame configuration. Validate
// must have accepted the capabilities.
func (s SandboxConfig) Frame() (sandbox.Config, error) {
	caps, err := sandbox.ParseCapabilities(s.Capabilities)
	if err != nil {
		return sandbox.Config{}, err
	}
	fc := sandbox.DefaultConfig()
	fc.Capabilities = caps
	fc.Timeout = s.Timeout.Std()
	fc.MaxCallStackSize = s.MaxCallStackSize
	fc.MaxDocumentBytes = s.MaxDocumentBytes
	fc.MaxTimers = s.MaxTimers
	fc.PoolSize = s.PoolSize
	if s.HostOrigin != "" {
		fc.HostOrigin = s.HostOrigin
	}
	return fc, nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Default returns default configuration.
func Default() *Config {
	frame := sandbox.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Sandbox: SandboxConfig{
			Capabilities:     frame.Capabilities.String(),
			Timeout:          Duration(frame.Timeout),
			Debounce:         Duration(250 * time.Millisecond),
			MaxWait:          Duration(time.Second),
			MaxCallStackSize: frame.MaxCallStackSize,
			MaxDocumentBytes: frame.MaxDocumentBytes,
			MaxTimers:        frame.MaxTimers,
			PoolSize:         frame.PoolSize,
			HostOrigin:       frame.HostOrigin,
			ConsoleCapacity:  10000,
		},
		Storage: StorageConfig{
			Driver: "memory",
			Path:   "data/livebox.db",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}
