package movements

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Lister is the repository surface the service reads through.
type Lister interface {
	List(ctx context.Context, orgID uuid.UUID, f ListFilter) ([]Movement, error)
}

// Service serves movement listings through a small cache. Submitting an
// import bumps the generation counter, which invalidates every cached
// listing at once without tracking which filters a batch touched.
type Service struct {
	repo   Lister
	logger *slog.Logger

	generation atomic.Int64
	mu         sync.Mutex
	cache      map[string]cacheEntry
}

type cacheEntry struct {
	generation int64
	items      []Movement
}

// NewService creates a movement read service.
func NewService(repo Lister, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		cache:  make(map[string]cacheEntry),
	}
}

// List returns movements for the filter, from cache when the generation
// still matches.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, f ListFilter) ([]Movement, error) {
	gen := s.generation.Load()
	key := cacheKey(orgID, f)

	s.mu.Lock()
	entry, ok := s.cache[key]
	s.mu.Unlock()
	if ok && entry.generation == gen {
		return entry.items, nil
	}

	items, err := s.repo.List(ctx, orgID, f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{generation: gen, items: items}
	s.mu.Unlock()
	return items, nil
}

// Invalidate advances the generation, expiring every cached listing. Called
// after each successful batch insert.
func (s *Service) Invalidate() {
	gen := s.generation.Add(1)
	s.logger.Debug("movement cache invalidated", slog.Int64("generation", gen))

	// Drop stale entries eagerly so the map does not grow with dead
	// generations.
	s.mu.Lock()
	for k, e := range s.cache {
		if e.generation != gen {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()
}

func cacheKey(orgID uuid.UUID, f ListFilter) string {
	project := ""
	if f.ProjectID != nil {
		project = f.ProjectID.String()
	}
	from, to := "", ""
	if f.From != nil {
		from = f.From.Format("2006-01-02")
	}
	if f.To != nil {
		to = f.To.Format("2006-01-02")
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d", orgID, project, from, to, f.Limit, f.Offset)
}
