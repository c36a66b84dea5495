package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/domain/console"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

var defaults = types.SourceBundle{Markup: "<h1>hi</h1>", Style: "h1 {}", Script: "console.log(1)"}

type memPrefs struct {
	prefs types.Preferences
	saved bool
	err   error
}

func (m *memPrefs) LoadPreferences(context.Context) (types.Preferences, bool, error) {
	return m.prefs, m.saved, m.err
}

func (m *memPrefs) SavePreferences(_ context.Context, p types.Preferences) error {
	if m.err != nil {
		return m.err
	}
	m.prefs, m.saved = p, true
	return nil
}

func TestStoreStartsWithDefaults(t *testing.T) {
	s := NewStore(defaults, nil)

	snap := s.Snapshot()
	assert.Equal(t, defaults, snap.Bundle)
	assert.Equal(t, DefaultPreferences(), snap.Preferences)
	assert.Empty(t, snap.CurrentSnippet)
}

func TestStoreNotifiesOnValueChange(t *testing.T) {
	s := NewStore(defaults, nil)

	var seen []types.SourceBundle
	cancel := s.Observe(func(b types.SourceBundle) { seen = append(seen, b) })

	s.SetFragment(types.FragmentScript, "console.log(2)")
	s.SetFragment(types.FragmentScript, "console.log(2)")
	s.SetBundle(s.Bundle())

	require.Len(t, seen, 1)
	assert.Equal(t, "console.log(2)", seen[0].Script)
	assert.Equal(t, defaults.Markup, seen[0].Markup)

	cancel()
	s.SetFragment(types.FragmentMarkup, "<p></p>")
	assert.Len(t, seen, 1)
}

func TestStoreObserversSeeChangesInOrder(t *testing.T) {
	s := NewStore(types.SourceBundle{}, nil)

	var (
		mu   sync.Mutex
		last string
		ok   = true
	)
	s.Observe(func(b types.SourceBundle) {
		mu.Lock()
		defer mu.Unlock()
		if b.Script < last {
			ok = false
		}
		last = b.Script
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.update(func() bool {
					s.bundle.Script += "x"
					return true
				})
			}
		}()
	}
	wg.Wait()

	assert.True(t, ok, "observers saw a shorter script after a longer one")
	assert.Len(t, s.Bundle().Script, 200)
}

func TestStoreResetClearsConsole(t *testing.T) {
	log := console.NewLog(0)
	s := NewStore(defaults, log)

	s.SetFragment(types.FragmentStyle, "body {}")
	log.Append(types.NewConsoleEvent(types.LevelLog, "x", time.Now()))

	s.Reset()
	assert.Equal(t, defaults, s.Bundle())
	assert.Equal(t, 0, log.Len())
}

func TestStoreLoadSnippet(t *testing.T) {
	log := console.NewLog(0)
	s := NewStore(defaults, log)
	log.Append(types.NewConsoleEvent(types.LevelLog, "x", time.Now()))

	saved := types.SourceBundle{Markup: "<b>saved</b>"}
	s.Load(saved, "snip_1")

	assert.Equal(t, saved, s.Bundle())
	assert.Equal(t, "snip_1", s.CurrentSnippet())
	assert.Equal(t, 0, log.Len())

	s.ForgetSnippet("snip_2")
	assert.Equal(t, "snip_1", s.CurrentSnippet())
	s.ForgetSnippet("snip_1")
	assert.Empty(t, s.CurrentSnippet())
}

func TestStorePreferences(t *testing.T) {
	ctx := context.Background()
	db := &memPrefs{prefs: types.Preferences{DarkMode: false, Layout: types.LayoutVertical}, saved: true}

	s, err := NewStore(defaults, nil).WithPreferenceStore(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, types.Preferences{Layout: types.LayoutVertical}, s.Preferences())

	prefs, err := s.ToggleDarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, prefs.DarkMode)
	assert.True(t, db.prefs.DarkMode)

	assert.ErrorIs(t, s.SetPreferences(ctx, types.Preferences{Layout: "diagonal"}), ErrInvalidLayout)

	db.err = errors.New("disk full")
	assert.Error(t, s.SetPreferences(ctx, types.Preferences{Layout: types.LayoutHorizontal}))
}
