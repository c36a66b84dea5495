// Package snippet manages saved workspaces.
//
// A snippet is a named copy of the three fragments. The Manager ties the
// repository to the workspace store: saving captures the current bundle,
// loading replaces it and clears the console, deleting the snippet being
// edited detaches the workspace from it.
package snippet

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

var (
	ErrSnippetNotFound = errors.New("snippet not found")
	ErrInvalidName     = errors.New("snippet name is empty")
	ErrNoCurrent       = errors.New("no snippet is being edited")
)

// MaxNameLength bounds snippet names after sanitisation
const MaxNameLength = 100

// Snippet is a saved bundle
type Snippet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Markup    string    `json:"markup"`
	Style     string    `json:"style"`
	Script    string    `json:"script"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bundle returns the saved fragments
func (s Snippet) Bundle() types.SourceBundle {
	return types.SourceBundle{Markup: s.Markup, Style: s.Style, Script: s.Script}
}

// Summary is a snippet without its fragments
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores snippets. List returns snippets in creation order.
type Repository interface {
	Create(ctx context.Context, s *Snippet) error
	Get(ctx context.Context, id string) (*Snippet, error)
	List(ctx context.Context) ([]Snippet, error)
	Update(ctx context.Context, s *Snippet) error
	Delete(ctx context.Context, id string) error
}
