package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

// Service serves catalog lookups and entry creation. Search indexes are
// built lazily per organization and dropped whenever that organization's
// catalog changes.
type Service struct {
	repo   *Repository
	logger *slog.Logger

	mu      sync.Mutex
	indexes map[uuid.UUID]*SearchIndex
}

// NewService creates a catalog service.
func NewService(repo *Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		indexes: make(map[uuid.UUID]*SearchIndex),
	}
}

// Load builds the organization's full catalog snapshot.
func (s *Service) Load(ctx context.Context, orgID uuid.UUID) (*Catalog, error) {
	hierarchy, err := s.repo.LoadHierarchy(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}
	currencies, err := s.repo.LoadCurrencies(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load currencies: %w", err)
	}
	wallets, err := s.repo.LoadWallets(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	return Build(hierarchy, currencies, wallets), nil
}

// Options searches the organization's entries for one field. An empty query
// lists everything the field offers.
func (s *Service) Options(ctx context.Context, orgID uuid.UUID, f record.Field, query string, limit int) ([]Option, error) {
	idx, err := s.index(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return idx.Search(f, query, limit)
}

// CreateCategory persists a category and invalidates the cached index.
func (s *Service) CreateCategory(ctx context.Context, orgID uuid.UUID, name string, typeID *uuid.UUID) (Option, error) {
	opt, err := s.repo.CreateCategory(ctx, orgID, name, typeID)
	if err != nil {
		return Option{}, err
	}
	s.InvalidateIndex(orgID)
	s.logger.Info("category created", "orgID", orgID, "name", opt.Name)
	return opt, nil
}

// CreateSubcategory persists a subcategory and invalidates the cached index.
func (s *Service) CreateSubcategory(ctx context.Context, orgID uuid.UUID, name string, parentID uuid.UUID) (Option, error) {
	opt, err := s.repo.CreateSubcategory(ctx, orgID, name, parentID)
	if err != nil {
		return Option{}, err
	}
	s.InvalidateIndex(orgID)
	s.logger.Info("subcategory created", "orgID", orgID, "name", opt.Name)
	return opt, nil
}

// InvalidateIndex drops the organization's cached search index. The next
// Options call rebuilds it from the database.
func (s *Service) InvalidateIndex(orgID uuid.UUID) {
	s.mu.Lock()
	idx, ok := s.indexes[orgID]
	delete(s.indexes, orgID)
	s.mu.Unlock()
	if ok {
		if err := idx.Close(); err != nil {
			s.logger.Warn("failed to close search index", "orgID", orgID, "error", err)
		}
	}
}

func (s *Service) index(ctx context.Context, orgID uuid.UUID) (*SearchIndex, error) {
	s.mu.Lock()
	idx, ok := s.indexes[orgID]
	s.mu.Unlock()
	if ok {
		return idx, nil
	}

	c, err := s.Load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	idx, err = NewSearchIndex()
	if err != nil {
		return nil, err
	}
	if err := idx.Rebuild(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.indexes[orgID]; ok {
		_ = idx.Close()
		return existing, nil
	}
	s.indexes[orgID] = idx
	return idx, nil
}
