package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GriffinCanCode/livebox/internal/domain/snippet"
	"github.com/GriffinCanCode/livebox/internal/infrastructure/resilience"
)

// SnippetRepository implements snippet.Repository with SQLite
type SnippetRepository struct {
	db    *gorm.DB
	guard *resilience.Breaker
}

// NewSnippetRepository creates a SnippetRepository. A nil guard gets a
// breaker with default settings.
func NewSnippetRepository(db *gorm.DB, guard *resilience.Breaker) *SnippetRepository {
	if guard == nil {
		guard = resilience.New("sqlite-snippets", resilience.Settings{})
	}
	return &SnippetRepository{db: db, guard: guard}
}

func (r *SnippetRepository) Create(ctx context.Context, s *snippet.Snippet) error {
	m := fromSnippet(s)
	return r.guard.Do(ctx, func(ctx context.Context) error {
		if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
			return fmt.Errorf("creating snippet: %w", err)
		}
		return nil
	})
}

func (r *SnippetRepository) Get(ctx context.Context, id string) (*snippet.Snippet, error) {
	return resilience.Call(ctx, r.guard, func(ctx context.Context) (*snippet.Snippet, error) {
		var m SnippetModel
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, snippet.ErrSnippetNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("loading snippet: %w", err)
		}
		return toSnippet(&m), nil
	})
}

func (r *SnippetRepository) List(ctx context.Context) ([]snippet.Snippet, error) {
	var models []SnippetModel
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	out := make([]snippet.Snippet, 0, len(models))
	for i := range models {
		out = append(out, *toSnippet(&models[i]))
	}
	return out, nil
}

func (r *SnippetRepository) Update(ctx context.Context, s *snippet.Snippet) error {
	return r.guard.Do(ctx, func(ctx context.Context) error {
		return r.update(ctx, s)
	})
}

func (r *SnippetRepository) update(ctx context.Context, s *snippet.Snippet) error {
	result := r.db.WithContext(ctx).
		Model(&SnippetModel{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"name":       s.Name,
			"markup":     s.Markup,
			"style":      s.Style,
			"script":     s.Script,
			"updated_at": s.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("updating snippet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return snippet.ErrSnippetNotFound
	}
	return nil
}

func (r *SnippetRepository) Delete(ctx context.Context, id string) error {
	return r.guard.Do(ctx, func(ctx context.Context) error {
		result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&SnippetModel{})
		if result.Error != nil {
			return fmt.Errorf("deleting snippet: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return snippet.ErrSnippetNotFound
		}
		return nil
	})
}

func fromSnippet(s *snippet.Snippet) SnippetModel {
	return SnippetModel{
		ID:        s.ID,
		Name:      s.Name,
		Markup:    s.Markup,
		Style:     s.Style,
		Script:    s.Script,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toSnippet(m *SnippetModel) *snippet.Snippet {
	return &snippet.Snippet{
		ID:        m.ID,
		Name:      m.Name,
		Markup:    m.Markup,
		Style:     m.Style,
		Script:    m.Script,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}
