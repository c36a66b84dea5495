package snippet

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livebox/internal/shared/id"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// Workspace is the part of the workspace store snippets need
type Workspace interface {
	Bundle() types.SourceBundle
	Load(bundle types.SourceBundle, snippetID string)
	CurrentSnippet() string
	SetCurrentSnippet(id string)
	ForgetSnippet(id string)
}

// Manager orchestrates snippet lifecycle against the workspace
type Manager struct {
	repo      Repository
	workspace Workspace
	policy    *bluemonday.Policy
	log       *zap.Logger
	now       func() time.Time
}

// NewManager creates a snippet manager
func NewManager(repo Repository, workspace Workspace, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		repo:      repo,
		workspace: workspace,
		policy:    bluemonday.StrictPolicy(),
		log:       log,
		now:       time.Now,
	}
}

// SanitizeName strips markup from a user supplied name and bounds its length
func (m *Manager) SanitizeName(name string) (string, error) {
	clean := html.UnescapeString(m.policy.Sanitize(name))
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(clean) > MaxNameLength {
		clean = string([]rune(clean)[:MaxNameLength])
	}
	return clean, nil
}

// Save stores the current workspace under name and makes it current
func (m *Manager) Save(ctx context.Context, name string) (*Snippet, error) {
	clean, err := m.SanitizeName(name)
	if err != nil {
		return nil, err
	}

	bundle := m.workspace.Bundle()
	now := m.now().UTC()
	s := &Snippet{
		ID:        id.NewSnippetID().String(),
		Name:      clean,
		Markup:    bundle.Markup,
		Style:     bundle.Style,
		Script:    bundle.Script,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("save snippet: %w", err)
	}

	m.workspace.SetCurrentSnippet(s.ID)
	m.log.Info("Snippet saved", zap.String("id", s.ID), zap.String("name", s.Name))
	return s, nil
}

// Get returns a snippet
func (m *Manager) Get(ctx context.Context, id string) (*Snippet, error) {
	return m.repo.Get(ctx, id)
}

// List returns snippet summaries in creation order
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	snippets, err := m.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	out := make([]Summary, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, Summary{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt})
	}
	return out, nil
}

// Load replaces the workspace with a snippet. Unknown ids leave the
// workspace untouched.
func (m *Manager) Load(ctx context.Context, id string) (*Snippet, error) {
	s, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.workspace.Load(s.Bundle(), s.ID)
	return s, nil
}

// UpdateCurrent writes the workspace back into the snippet being edited
func (m *Manager) UpdateCurrent(ctx context.Context) (*Snippet, error) {
	current := m.workspace.CurrentSnippet()
	if current == "" {
		return nil, ErrNoCurrent
	}
	return m.Update(ctx, current, nil)
}

// Update overwrites a snippet with the workspace fragments, optionally
// renaming it
func (m *Manager) Update(ctx context.Context, id string, name *string) (*Snippet, error) {
	s, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		clean, err := m.SanitizeName(*name)
		if err != nil {
			return nil, err
		}
		s.Name = clean
	}

	bundle := m.workspace.Bundle()
	s.Markup, s.Style, s.Script = bundle.Markup, bundle.Style, bundle.Script
	s.UpdatedAt = m.now().UTC()

	if err := m.repo.Update(ctx, s); err != nil {
		return nil, fmt.Errorf("update snippet: %w", err)
	}
	return s, nil
}

// Delete removes a snippet and detaches the workspace from it
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.workspace.ForgetSnippet(id)
	m.log.Info("Snippet deleted", zap.String("id", id))
	return nil
}
