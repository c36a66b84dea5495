// Package id mints the identifiers livebox hands out: sandbox handles,
// snippet ids and trace ids.
//
// An id is a ULID behind a short kind prefix ("sbx_01J..."), so ids of one
// kind sort by creation time and say what they name when they show up in a
// log line or a URL.
package id

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind is the prefix that says what an id names
type Kind string

const (
	SandboxPrefix Kind = "sbx"
	SnippetPrefix Kind = "snip"
	RequestPrefix Kind = "req"
)

const separator = "_"

var ErrMalformed = errors.New("malformed id")

// SandboxID identifies one sandbox instance
type SandboxID string

// SnippetID identifies a saved snippet
type SnippetID string

// RequestID identifies a traced request or span
type RequestID string

func (s SandboxID) String() string { return string(s) }
func (s SnippetID) String() string { return string(s) }
func (s RequestID) String() string { return string(s) }

// Source mints monotonic ULIDs. It is safe for concurrent use.
type Source struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewSource creates a source reading entropy from r; nil means crypto/rand.
// A fixed reader and clock make ids reproducible in tests.
func NewSource(r io.Reader, now func() time.Time) *Source {
	if r == nil {
		r = rand.Reader
	}
	if now == nil {
		now = time.Now
	}
	return &Source{entropy: ulid.Monotonic(r, 0), now: now}
}

var shared = NewSource(nil, nil)

// Next returns a fresh ULID
func (s *Source) Next() ulid.ULID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy)
}

// New returns a fresh id of the given kind
func (s *Source) New(kind Kind) string {
	return string(kind) + separator + s.Next().String()
}

func NewSandboxID() SandboxID { return SandboxID(shared.New(SandboxPrefix)) }
func NewSnippetID() SnippetID { return SnippetID(shared.New(SnippetPrefix)) }
func NewRequestID() RequestID { return RequestID(shared.New(RequestPrefix)) }

// Parse splits an id into its kind and ULID
func Parse(s string) (Kind, ulid.ULID, error) {
	kind, rest, ok := strings.Cut(s, separator)
	if !ok || kind == "" {
		return "", ulid.ULID{}, ErrMalformed
	}
	u, err := ulid.ParseStrict(rest)
	if err != nil {
		return "", ulid.ULID{}, errors.Join(ErrMalformed, err)
	}
	return Kind(kind), u, nil
}

// IsValidPrefixed reports whether s is a well-formed id of the given kind
func IsValidPrefixed(s string, kind Kind) bool {
	k, _, err := Parse(s)
	return err == nil && k == kind
}

// Timestamp returns when the id was minted, to the millisecond
func Timestamp(s string) (time.Time, error) {
	_, u, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
