package service

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/shopcore/internal/core/domain"
)

// CatalogService is the append-only registry of sellable items.
type CatalogService struct {
	logger *zap.Logger

	mu    sync.RWMutex
	items []domain.CatalogItem
}

func NewCatalogService(logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{logger: logger}
}

// Register appends an item and assigns it the next sequential id.
func (s *CatalogService) Register(name string, unitPrice domain.Money) (domain.CatalogItem, error) {
	if strings.TrimSpace(name) == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: item name is empty", domain.ErrInvalidField)
	}
	if unitPrice < 0 {
		return domain.CatalogItem{}, fmt.Errorf("%w: negative unit price %s", domain.ErrInvalidField, unitPrice)
	}

	s.mu.Lock()
	item := domain.CatalogItem{
		ID:        len(s.items) + 1,
		Name:      name,
		UnitPrice: unitPrice,
	}
	s.items = append(s.items, item)
	s.mu.Unlock()

	s.logger.Info("catalog item registered",
		zap.Int("item_id", item.ID),
		zap.String("name", item.Name),
		zap.Stringer("unit_price", item.UnitPrice))

	return item, nil
}

func (s *CatalogService) List() []domain.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CatalogItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *CatalogService) LookupByID(id int) (domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 1 || id > len(s.items) {
		return domain.CatalogItem{}, fmt.Errorf("catalog item %d: %w", id, domain.ErrNotFound)
	}
	return s.items[id-1], nil
}
