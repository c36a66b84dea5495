package snippet

import (
	"context"
	"sync"
)

// MemoryRepository keeps snippets in process memory
type MemoryRepository struct {
	mu       sync.RWMutex
	snippets map[string]Snippet
	order    []string
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snippets: make(map[string]Snippet)}
}

func (r *MemoryRepository) Create(_ context.Context, s *Snippet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snippets[s.ID] = *s
	r.order = append(r.order, s.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Snippet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.snippets[id]
	if !ok {
		return nil, ErrSnippetNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]Snippet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snippet, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.snippets[id])
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, s *Snippet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snippets[s.ID]; !ok {
		return ErrSnippetNotFound
	}
	r.snippets[s.ID] = *s
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snippets[id]; !ok {
		return ErrSnippetNotFound
	}
	delete(r.snippets, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
