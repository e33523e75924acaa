package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/mellosd/storefront/internal/models"
	"go.uber.org/zap"
)

// ErrNotFound indicates the title is not in the catalog.
var ErrNotFound = errors.New("not found")

type Log interface {
	Info(string, ...zap.Field)
}

// Keeper interface for catalog sources
type Keeper interface {
	LoadProducts(context.Context) ([]models.Product, error)
	Ping(context.Context) bool
	Close() bool
}

// Storage represents an in-memory product catalog with locking mechanisms.
// Products are read-only input; the storage only loads and serves them.
type Storage struct {
	mx sync.RWMutex

	keeper   Keeper
	log      Log
	products []models.Product
	byTitle  map[string]models.Product
}

// NewStorage creates a new Storage instance and loads products from the
// keeper. Duplicate titles are dropped, first occurrence wins.
func NewStorage(ctx context.Context, keeper Keeper, log Log) *Storage {
	s := &Storage{
		keeper:  keeper,
		log:     log,
		byTitle: make(map[string]models.Product),
	}

	if keeper != nil {
		products, err := keeper.LoadProducts(ctx)
		if err != nil {
			log.Info("cannot load catalog: ", zap.Error(err))
			return s
		}

		for _, p := range products {
			if _, seen := s.byTitle[p.Title]; seen {
				continue
			}
			s.byTitle[p.Title] = p
			s.products = append(s.products, p)
		}
		log.Info("catalog loaded", zap.Int("products", len(s.products)))
	}

	return s
}

// GetAll returns all products in catalog order.
func (s *Storage) GetAll(_ context.Context) []models.Product {
	s.mx.RLock()
	defer s.mx.RUnlock()

	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

// GetByTitle returns the product with the given title.
func (s *Storage) GetByTitle(_ context.Context, title string) (models.Product, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()

	product, ok := s.byTitle[title]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return product, nil
}

// Ping reports whether the underlying keeper is reachable.
func (s *Storage) Ping(ctx context.Context) bool {
	if s.keeper == nil {
		return false
	}
	return s.keeper.Ping(ctx)
}
