package cart

import (
	"context"
	"encoding/json"

	"github.com/mellosd/storefront/internal/kvstore"
	"github.com/mellosd/storefront/internal/models"
	"go.uber.org/zap"
)

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
}

// Store holds one session's cart. Lines keep the order products were first
// added; at most one line exists per product title. Every mutation writes
// the whole cart back to the KV under the store's key, so a rebuilt Store
// sees exactly what the last mutation left behind.
type Store struct {
	kv    kvstore.KV
	key   string
	log   Log
	lines []models.CartLine
}

// NewStore rehydrates the cart stored under key. A missing, malformed or
// unparseable value yields an empty cart, never an error.
func NewStore(ctx context.Context, kv kvstore.KV, key string, log Log) *Store {
	s := &Store{
		kv:  kv,
		key: key,
		log: log,
	}

	data, err := kv.Get(ctx, key)
	if err != nil {
		if err != kvstore.ErrNotFound {
			log.Info("cannot load cart state, starting empty", zap.String("key", key), zap.Error(err))
		}
		return s
	}

	var items []models.CheckoutItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.Info("stored cart is malformed, starting empty", zap.String("key", key), zap.Error(err))
		return s
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		s.lines = append(s.lines, models.CartLine{
			Product: models.Product{
				Title:    item.Title,
				Price:    item.Price,
				ImageURL: item.ImageURL,
			},
			Quantity: item.Quantity,
		})
	}
	return s
}

// Add puts one unit of product into the cart. An existing line for the same
// title is incremented instead of appending a duplicate.
func (s *Store) Add(ctx context.Context, product models.Product) {
	for i := range s.lines {
		if s.lines[i].Product.Title == product.Title {
			s.lines[i].Quantity++
			s.persist(ctx)
			return
		}
	}

	s.lines = append(s.lines, models.CartLine{Product: product, Quantity: 1})
	s.persist(ctx)
}

// Remove deletes the line for title. Removing an absent title is a no-op.
func (s *Store) Remove(ctx context.Context, title string) {
	for i := range s.lines {
		if s.lines[i].Product.Title == title {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// ChangeQuantity adds delta to the line for title. A result of zero or less
// removes the line; an absent title is a no-op.
func (s *Store) ChangeQuantity(ctx context.Context, title string, delta int64) {
	for i := range s.lines {
		if s.lines[i].Product.Title != title {
			continue
		}
		s.lines[i].Quantity += delta
		if s.lines[i].Quantity <= 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		}
		s.persist(ctx)
		return
	}
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.lines = nil
	s.persist(ctx)
}

// Snapshot returns a copy of the current lines in insertion order.
func (s *Store) Snapshot() []models.CartLine {
	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Items returns the cart in wire form, ready to submit to checkout.
func (s *Store) Items() []models.CheckoutItem {
	items := make([]models.CheckoutItem, 0, len(s.lines))
	for _, line := range s.lines {
		items = append(items, models.CheckoutItem{
			Title:    line.Product.Title,
			Price:    line.Product.Price,
			Quantity: line.Quantity,
			ImageURL: line.Product.ImageURL,
		})
	}
	return items
}

// Total sums the cart in cents. An unparseable price counts as zero; catalog
// prices are fixed strings, so this is a defensive default.
func (s *Store) Total() int64 {
	var total int64
	for _, line := range s.lines {
		cents, err := models.PriceCents(line.Product.Price)
		if err != nil {
			continue
		}
		total += cents * line.Quantity
	}
	return total
}

// Count sums quantities across all lines.
func (s *Store) Count() int64 {
	var count int64
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.Items())
	if err != nil {
		s.log.Info("cannot serialize cart", zap.String("key", s.key), zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.log.Info("cannot persist cart", zap.String("key", s.key), zap.Error(err))
	}
}
