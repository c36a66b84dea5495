package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

var ErrInvalidLayout = errors.New("layout must be horizontal or vertical")

// Observer is called with the new bundle after every change. It must not
// call back into the store's setters.
type Observer func(types.SourceBundle)

// PreferenceStore persists UI preferences across restarts
type PreferenceStore interface {
	LoadPreferences(ctx context.Context) (types.Preferences, bool, error)
	SavePreferences(ctx context.Context, prefs types.Preferences) error
}

// Snapshot is the full workspace state
type Snapshot struct {
	Bundle         types.SourceBundle `json:"bundle"`
	Preferences    types.Preferences  `json:"preferences"`
	CurrentSnippet string             `json:"current_snippet_id,omitempty"`
}

// Store holds the current workspace
type Store struct {
	// notifyMu serializes writers with their notifications so observers see
	// changes in order
	notifyMu sync.Mutex

	mu        sync.RWMutex
	bundle    types.SourceBundle // Protected by mu
	prefs     types.Preferences  // Protected by mu
	current   string             // Protected by mu
	observers map[int]Observer   // Protected by mu
	nextObs   int

	defaults types.SourceBundle
	console  *console.Log
	prefDB   PreferenceStore
}

// DefaultPreferences matches the original editor: dark, side by side
func DefaultPreferences() types.Preferences {
	return types.Preferences{DarkMode: true, Layout: types.LayoutHorizontal}
}

// NewStore creates a store holding defaults
func NewStore(defaults types.SourceBundle, log *console.Log) *Store {
	if log == nil {
		log = console.NewLog(0)
	}
	return &Store{
		bundle:    defaults,
		prefs:     DefaultPreferences(),
		observers: make(map[int]Observer),
		defaults:  defaults,
		console:   log,
	}
}

// WithPreferenceStore restores persisted preferences and saves future
// changes through ps
func (s *Store) WithPreferenceStore(ctx context.Context, ps PreferenceStore) (*Store, error) {
	prefs, ok, err := ps.LoadPreferences(ctx)
	if err != nil {
		return s, fmt.Errorf("load preferences: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefDB = ps
	if ok && prefs.Layout.Valid() {
		s.prefs = prefs
	}
	return s, nil
}

// Console returns the console log the engine writes to
func (s *Store) Console() *console.Log {
	return s.console
}

// ClearConsole is the operator's clear action
func (s *Store) ClearConsole() {
	s.console.Clear()
}

// Bundle returns the current fragments
func (s *Store) Bundle() types.SourceBundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bundle
}

// Snapshot returns the full workspace state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Bundle: s.bundle, Preferences: s.prefs, CurrentSnippet: s.current}
}

// SetBundle replaces all three fragments
func (s *Store) SetBundle(bundle types.SourceBundle) {
	s.update(func() bool {
		if s.bundle == bundle {
			return false
		}
		s.bundle = bundle
		return true
	})
}

// SetFragment replaces one fragment
func (s *Store) SetFragment(f types.Fragment, text string) {
	s.update(func() bool {
		next := s.bundle.With(f, text)
		if next == s.bundle {
			return false
		}
		s.bundle = next
		return true
	})
}

// Reset restores the starter fragments and clears the console
func (s *Store) Reset() {
	s.console.Clear()
	s.SetBundle(s.defaults)
}

// Load replaces the workspace with a saved bundle, remembers which snippet
// it came from and clears the console
func (s *Store) Load(bundle types.SourceBundle, snippetID string) {
	s.console.Clear()
	s.update(func() bool {
		s.current = snippetID
		if s.bundle == bundle {
			return false
		}
		s.bundle = bundle
		return true
	})
}

// CurrentSnippet returns the id of the snippet being edited
func (s *Store) CurrentSnippet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetCurrentSnippet marks id as the snippet being edited
func (s *Store) SetCurrentSnippet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

// ForgetSnippet clears the current snippet if it is id
func (s *Store) ForgetSnippet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == id {
		s.current = ""
	}
}

// Preferences returns the UI preferences
func (s *Store) Preferences() types.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetPreferences validates and stores UI preferences
func (s *Store) SetPreferences(ctx context.Context, prefs types.Preferences) error {
	if !prefs.Layout.Valid() {
		return ErrInvalidLayout
	}

	s.mu.Lock()
	s.prefs = prefs
	db := s.prefDB
	s.mu.Unlock()

	if db != nil {
		if err := db.SavePreferences(ctx, prefs); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
	}
	return nil
}

// ToggleDarkMode flips the theme and returns the new preferences
func (s *Store) ToggleDarkMode(ctx context.Context) (types.Preferences, error) {
	prefs := s.Preferences()
	prefs.DarkMode = !prefs.DarkMode
	return prefs, s.SetPreferences(ctx, prefs)
}

// Observe registers fn for bundle changes and returns its cancel function
func (s *Store) Observe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// update applies mutate and, if it reports a change, notifies observers
// outside mu but still inside notifyMu
func (s *Store) update(mutate func() bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	changed := mutate()
	bundle := s.bundle
	observers := make([]Observer, 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if fn, ok := s.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range observers {
		fn(bundle)
	}
}
