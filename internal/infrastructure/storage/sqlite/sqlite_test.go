package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "data", "livebox.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestSnippetRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := db.Snippets()
	require.NoError(t, db.Ping(ctx))

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := &snippet.Snippet{ID: "snip_a", Name: "first", Markup: "<p>a</p>", CreatedAt: created, UpdatedAt: created}
	second := &snippet.Snippet{ID: "snip_b", Name: "second", Script: "1", CreatedAt: created.Add(time.Minute), UpdatedAt: created}

	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	got, err := repo.Get(ctx, "snip_a")
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p>", got.Markup)
	assert.True(t, got.CreatedAt.Equal(created))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "snip_a", list[0].ID, "ordered by creation time")

	got.Name = "renamed"
	got.Style = "p {}"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, "snip_a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "p {}", got.Style)

	require.NoError(t, repo.Delete(ctx, "snip_a"))
	_, err = repo.Get(ctx, "snip_a")
	assert.ErrorIs(t, err, snippet.ErrSnippetNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "snip_a"), snippet.ErrSnippetNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &snippet.Snippet{ID: "snip_missing"}), snippet.ErrSnippetNotFound)
}

func TestSnippetManagerOnSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := workspace.NewStore(types.SourceBundle{Script: "console.log(1)"}, nil)
	m := snippet.NewManager(db.Snippets(), store, nil)

	saved, err := m.Save(ctx, "persisted")
	require.NoError(t, err)

	store.SetFragment(types.FragmentScript, "")
	_, err = m.Load(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", store.Bundle().Script)
}

func TestPreferenceRepository(t *testing.T) {
	ctx := context.Background()
	repo := openTestDB(t).Preferences()

	_, ok, err := repo.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SavePreferences(ctx, types.Preferences{DarkMode: true, Layout: types.LayoutVertical}))
	require.NoError(t, repo.SavePreferences(ctx, types.Preferences{DarkMode: false, Layout: types.LayoutVertical}))

	prefs, ok, err := repo.LoadPreferences(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.Preferences{DarkMode: false, Layout: types.LayoutVertical}, prefs)
}

func TestBreakerOpensWhenDatabaseFails(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{
		Path:    filepath.Join(t.TempDir(), "livebox.db"),
		Breaker: resilience.Settings{Trip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 2 }},
	}, nil)
	require.NoError(t, err)
	repo := db.Snippets()

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, snippet.ErrSnippetNotFound)
	assert.Equal(t, resilience.StateClosed, db.Breaker().State(), "missing rows are not failures")

	require.NoError(t, db.Close())
	_, err = repo.List(ctx)
	require.Error(t, err)
	_, err = repo.List(ctx)
	require.Error(t, err)

	_, err = repo.List(ctx)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, resilience.StateOpen, db.Breaker().State())
}
