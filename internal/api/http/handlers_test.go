package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/domain/export"
	"github.com/GriffinCanCode/livebox/internal/domain/share"
	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/domain/workspace"
	"github.com/GriffinCanCode/livebox/internal/engine"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/livebox/internal/sandbox"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

type fakeEngine struct {
	rebuilds atomic.Int32
}

func (e *fakeEngine) Rebuild() { e.rebuilds.Add(1) }

func (e *fakeEngine) Stats() engine.Stats {
	return engine.Stats{Running: true, Current: sandbox.Handle{ID: "sbx_test", Generation: 1}}
}

type fakePreview struct {
	mu         sync.Mutex
	caps       sandbox.Capabilities
	live       bool
	dispatched []sandbox.Interaction
}

func (p *fakePreview) Render(context.Context) (string, error) {
	if !p.caps.Has(sandbox.AllowSameOrigin) {
		return "", sandbox.ErrNotSameOrigin
	}
	if !p.live {
		return "", sandbox.ErrFrameEmpty
	}
	return "<html><body><p>rendered</p></body></html>", nil
}

func (p *fakePreview) Inspect(_ context.Context, q sandbox.Query) (*sandbox.Inspection, error) {
	if !p.caps.Has(sandbox.AllowSameOrigin) {
		return nil, sandbox.ErrNotSameOrigin
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &sandbox.Inspection{Matches: []sandbox.Match{{Tag: "p", Text: "rendered"}}}, nil
}

func (p *fakePreview) Dispatch(_ context.Context, action sandbox.Interaction) error {
	if !p.live {
		return sandbox.ErrFrameEmpty
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatched = append(p.dispatched, action)
	return nil
}

func (p *fakePreview) State() sandbox.State {
	if p.live {
		return sandbox.StateRunning
	}
	return sandbox.StateEmpty
}

func (p *fakePreview) Current() (sandbox.Handle, bool) {
	if !p.live {
		return sandbox.Handle{}, false
	}
	return sandbox.Handle{ID: "sbx_test", Generation: 1}, true
}

func (p *fakePreview) Capabilities() sandbox.Capabilities { return p.caps }
func (p *fakePreview) PoolStats() sandbox.PoolStats       { return sandbox.PoolStats{Size: 1} }

type testServer struct {
	router  *gin.Engine
	store   *workspace.Store
	engine  *fakeEngine
	preview *fakePreview
}

var starter = types.SourceBundle{Markup: "<h1>Hello</h1>", Style: "h1 {}", Script: "console.log('hi')"}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := workspace.NewStore(starter, nil)
	eng := &fakeEngine{}
	preview := &fakePreview{caps: sandbox.DefaultCapabilities(), live: true}

	h := NewHandlers(Deps{
		Store:    store,
		Engine:   eng,
		Preview:  preview,
		Snippets: snippet.NewManager(snippet.NewMemoryRepository(), store, nil),
		Metrics:  monitoring.NewMetrics(),
	})
	h.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	router := gin.New()
	h.Register(router)
	return &testServer{router: router, store: store, engine: eng, preview: preview}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = s.do(t, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"metrics"`)
}

func TestWorkspace(t *testing.T) {
	s := newTestServer(t)

	var seen []types.SourceBundle
	s.store.Observe(func(b types.SourceBundle) { seen = append(seen, b) })

	t.Run("get", func(t *testing.T) {
		var resp WorkspaceResponse
		w := s.do(t, http.MethodGet, "/api/workspace", nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &resp)
		assert.Equal(t, starter, resp.Bundle)
		assert.Equal(t, workspace.DefaultPreferences(), resp.Preferences)
		assert.EqualValues(t, 1, resp.Engine.Current.Generation)
	})

	t.Run("put", func(t *testing.T) {
		next := types.SourceBundle{Markup: "<p>x</p>"}
		w := s.do(t, http.MethodPut, "/api/workspace", next)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, next, s.store.Bundle())
	})

	t.Run("patch alias", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/workspace/css", gin.H{"text": "p { color: red; }"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "p { color: red; }", s.store.Bundle().Style)
	})

	t.Run("patch empty text is allowed", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/workspace/markup", gin.H{"text": ""})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, s.store.Bundle().Markup)
	})

	t.Run("patch unknown fragment", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/workspace/python", gin.H{"text": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("patch without text", func(t *testing.T) {
		w := s.do(t, http.MethodPatch, "/api/workspace/script", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.Len(t, seen, 3, "one notification per effective change")
}

func TestResetAndRun(t *testing.T) {
	s := newTestServer(t)
	s.store.SetFragment(types.FragmentScript, "console.log('changed')")
	s.store.Console().Append(types.NewConsoleEvent(types.LevelLog, "old", time.Now()))

	w := s.do(t, http.MethodPost, "/api/workspace/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, starter, s.store.Bundle())
	assert.Zero(t, s.store.Console().Len())
	assert.EqualValues(t, 1, s.engine.rebuilds.Load())

	w = s.do(t, http.MethodPost, "/api/run", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.EqualValues(t, 2, s.engine.rebuilds.Load())
}

func TestPreferences(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/api/preferences", types.Preferences{DarkMode: false, Layout: types.LayoutVertical})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.LayoutVertical, s.store.Preferences().Layout)

	w = s.do(t, http.MethodPut, "/api/preferences", gin.H{"dark_mode": true, "layout": "diagonal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/preferences/dark-mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, s.store.Preferences().DarkMode)

	var prefs types.Preferences
	decode(t, s.do(t, http.MethodGet, "/api/preferences", nil), &prefs)
	assert.Equal(t, types.Preferences{DarkMode: true, Layout: types.LayoutVertical}, prefs)
}

func TestConsole(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	s.store.Console().Append(types.NewConsoleEvent(types.LevelLog, "one", now))
	s.store.Console().Append(types.NewConsoleEvent(types.LevelError, "two", now))
	s.store.Console().Append(types.NewConsoleEvent(types.LevelLog, "three", now))

	var resp struct {
		Entries []types.ConsoleEvent `json:"entries"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/console", nil), &resp)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "one", resp.Entries[0].Message)
	assert.Equal(t, "three", resp.Entries[2].Message)

	decode(t, s.do(t, http.MethodGet, "/api/console?level=error", nil), &resp)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "two", resp.Entries[0].Message)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/console?level=info", nil).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/console", nil).Code)
	assert.Zero(t, s.store.Console().Len())
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)

	t.Run("document", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/preview/document", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "<h1>Hello</h1>")
		assert.Contains(t, w.Body.String(), "console-log")
	})

	t.Run("rendered", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/preview/rendered", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "rendered")
	})

	t.Run("state", func(t *testing.T) {
		var resp struct {
			State        string         `json:"state"`
			Capabilities []string       `json:"capabilities"`
			Handle       sandbox.Handle `json:"handle"`
		}
		decode(t, s.do(t, http.MethodGet, "/api/preview/state", nil), &resp)
		assert.Equal(t, "running", resp.State)
		assert.Contains(t, resp.Capabilities, "allow-scripts")
		assert.Equal(t, "sbx_test", resp.Handle.ID)
	})

	t.Run("inspect", func(t *testing.T) {
		var resp sandbox.Inspection
		w := s.do(t, http.MethodPost, "/api/preview/inspect", sandbox.Query{Kind: sandbox.QueryCSS, Expr: "p"})
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &resp)
		require.Len(t, resp.Matches, 1)

		w = s.do(t, http.MethodPost, "/api/preview/inspect", sandbox.Query{Kind: "regex", Expr: "p"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dispatch", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/preview/dispatch", sandbox.Interaction{Selector: "#go", Event: "click"})
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Len(t, s.preview.dispatched, 1)
	})

	t.Run("empty frame", func(t *testing.T) {
		s.preview.live = false
		defer func() { s.preview.live = true }()

		w := s.do(t, http.MethodPost, "/api/preview/dispatch", sandbox.Interaction{Selector: "#go"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("opaque origin", func(t *testing.T) {
		caps, err := sandbox.NewCapabilities(sandbox.AllowScripts)
		require.NoError(t, err)
		s.preview.caps = caps

		assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/preview/rendered", nil).Code)
		assert.Equal(t, http.StatusForbidden,
			s.do(t, http.MethodPost, "/api/preview/inspect", sandbox.Query{Expr: "p"}).Code)
	})
}

func TestSnippets(t *testing.T) {
	s := newTestServer(t)

	var saved snippet.Snippet
	w := s.do(t, http.MethodPost, "/api/snippets", SaveSnippetRequest{Name: "  <b>My</b>   pen "})
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &saved)
	assert.Equal(t, "My pen", saved.Name)
	assert.Equal(t, starter.Script, saved.Script)
	assert.Equal(t, saved.ID, s.store.CurrentSnippet())

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/snippets", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/snippets", SaveSnippetRequest{Name: "<i></i>"}).Code)

	var list struct {
		Snippets []snippet.Summary `json:"snippets"`
		Current  string            `json:"current"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/snippets", nil), &list)
	require.Len(t, list.Snippets, 1)
	assert.Equal(t, saved.ID, list.Current)

	// Edit and write back into the current snippet
	s.store.SetFragment(types.FragmentScript, "console.log('v2')")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/workspace/save", nil).Code)

	var got snippet.Snippet
	decode(t, s.do(t, http.MethodGet, "/api/snippets/"+saved.ID, nil), &got)
	assert.Equal(t, "console.log('v2')", got.Script)

	// Rename
	w = s.do(t, http.MethodPut, "/api/snippets/"+saved.ID, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, "Renamed", got.Name)

	// Load replaces the workspace and clears the console
	s.store.SetBundle(types.SourceBundle{Markup: "scratch"})
	s.store.Console().Append(types.NewConsoleEvent(types.LevelLog, "stale", time.Now()))
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/snippets/"+saved.ID+"/load", nil).Code)
	assert.Equal(t, "console.log('v2')", s.store.Bundle().Script)
	assert.Zero(t, s.store.Console().Len())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/snippets/snip_missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/snippets/snip_missing/load", nil).Code)

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/snippets/"+saved.ID, nil).Code)
	assert.Empty(t, s.store.CurrentSnippet())
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/snippets/"+saved.ID, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/workspace/save", nil).Code)
}

func TestTemplates(t *testing.T) {
	s := newTestServer(t)

	var list struct {
		Templates []struct {
			ID string `json:"id"`
		} `json:"templates"`
	}
	decode(t, s.do(t, http.MethodGet, "/api/templates", nil), &list)
	require.Len(t, list.Templates, 3)
	assert.Equal(t, "default", list.Templates[0].ID)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/templates/todo", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/templates/nope", nil).Code)

	s.store.SetCurrentSnippet("snip_x")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/templates/calculator/apply", nil).Code)
	assert.Contains(t, s.store.Bundle().Markup, "calculator")
	assert.Empty(t, s.store.CurrentSnippet())
}

func TestShare(t *testing.T) {
	s := newTestServer(t)

	var created struct {
		Token  string `json:"token"`
		Format string `json:"format"`
		Path   string `json:"path"`
	}
	decode(t, s.do(t, http.MethodPost, "/api/share", nil), &created)
	assert.Equal(t, string(share.FormatCompact), created.Format)
	assert.True(t, strings.HasPrefix(created.Token, share.CompactPrefix))
	assert.True(t, strings.HasPrefix(created.Path, "/?code="))

	s.store.SetBundle(types.SourceBundle{})
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/share/"+created.Token, nil).Code)
	assert.Equal(t, starter, s.store.Bundle())

	t.Run("legacy keeps empty fragments", func(t *testing.T) {
		token, err := share.Encode(types.SourceBundle{Script: "1"}, share.FormatLegacy)
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/share?code="+url.QueryEscape(token), nil).Code)
		assert.Equal(t, starter.Markup, s.store.Bundle().Markup)
		assert.Equal(t, "1", s.store.Bundle().Script)
	})

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/share/!!!", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/share", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/share", ShareRequest{Format: "qr"}).Code)

	decode(t, s.do(t, http.MethodPost, "/api/share", ShareRequest{Format: share.FormatLegacy}), &created)
	assert.Equal(t, string(share.FormatLegacy), created.Format)
}

func TestExport(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/workspace/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), export.Filename)

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, export.FileMarkup)
	assert.Contains(t, names, export.FileScript)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{snippet.ErrSnippetNotFound, http.StatusNotFound},
		{share.ErrInvalidToken, http.StatusBadRequest},
		{workspace.ErrInvalidLayout, http.StatusBadRequest},
		{sandbox.ErrFrameEmpty, http.StatusConflict},
		{fmt.Errorf("%w: sbx#1", sandbox.ErrStaleHandle), http.StatusConflict},
		{sandbox.ErrNotSameOrigin, http.StatusForbidden},
		{sandbox.ErrFrameClosed, http.StatusServiceUnavailable},
		{fmt.Errorf("listing snippets: %w", resilience.ErrCircuitOpen), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
