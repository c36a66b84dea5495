package sandbox

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrFrameEmpty       = errors.New("sandbox frame has no live document")
	ErrFrameClosed      = errors.New("sandbox frame is closed")
	ErrCommit           = errors.New("failed to commit document")
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")
	ErrNotSameOrigin    = errors.New("inspection requires the allow-same-origin capability")
	ErrStaleHandle      = errors.New("sandbox handle is no longer live")
	ErrExecutionTimeout = errors.New("script execution timed out")
	ErrTornDown         = errors.New("sandbox torn down")
)

// Config defines sandbox configuration
type Config struct {
	Capabilities     Capabilities  // Allow-list declared for every instance
	Timeout          time.Duration // Per-task execution timeout, 0 disables the watchdog
	MaxCallStackSize int           // goja call stack limit
	MaxDocumentBytes int           // Largest document accepted for commit
	MaxTimers        int           // Live timers per instance
	TeardownTimeout  time.Duration // Bounded wait for an instance goroutine to exit
	PoolSize         int           // Prewarmed runtimes
	MessageBuffer    int           // Host channel capacity
	HostOrigin       string        // Origin the host page reports to postMessage senders
}

// DefaultConfig returns the configuration used by the playground
func DefaultConfig() Config {
	return Config{
		Capabilities:     DefaultCapabilities(),
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		MaxDocumentBytes: 2 * 1024 * 1024,
		MaxTimers:        1000,
		TeardownTimeout:  2 * time.Second,
		PoolSize:         2,
		MessageBuffer:    256,
		HostOrigin:       "http://localhost:8000",
	}
}

// Handle identifies one sandbox instance. Generations strictly increase
// across loads of the same frame.
type Handle struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
}

// IsZero reports whether the handle refers to no instance
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.ID, h.Generation)
}

// State is the frame lifecycle state
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateRunning
	StateTornDown
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateRunning:
		return "running"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Message is a serialized postMessage payload crossing the boundary
type Message struct {
	Source Handle // Instance that posted it
	Origin string // Sender origin, "null" when the sandbox is opaque
	Target string // Target origin requested by the sender
	Data   []byte // JSON encoding of the posted value
}

// DOMChange represents a DOM modification made by sandboxed code
type DOMChange struct {
	Type     string `json:"type"`     // set_attribute, set_text, set_html, append, remove
	Node     string `json:"node"`     // Short node description
	Property string `json:"property"` // Attribute or property name
	Value    string `json:"value"`    // New value
}
