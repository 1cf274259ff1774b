// Package memstore provides an in-memory order store with atomic status
// transitions.
package memstore

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fd1az/intents-agent/business/orders/app"
	"github.com/fd1az/intents-agent/business/orders/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
)

// Store keeps orders in a map guarded by a single mutex. Reads hand out
// clones, so callers never observe concurrent mutation; all writes happen
// under the lock, which is what makes CompareAndSwapStatus atomic.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*domain.LimitOrder
}

// New creates an empty store.
func New() *Store {
	return &Store{orders: make(map[string]*domain.LimitOrder)}
}

// CreateOrder inserts a new order. The id must be unused.
func (s *Store) CreateOrder(_ context.Context, o *domain.LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.OrderID]; exists {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("order already exists: "+o.OrderID))
	}

	s.orders[o.OrderID] = o.Clone()
	return nil
}

// FindOrder returns a copy of the order.
func (s *Store) FindOrder(_ context.Context, orderID string) (*domain.LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(orderID))
	}
	return o.Clone(), nil
}

// ListActive returns copies of all non-terminal orders.
func (s *Store) ListActive(_ context.Context) ([]*domain.LimitOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*domain.LimitOrder, 0, len(s.orders))
	for _, o := range s.orders {
		if !o.Status.Terminal() {
			active = append(active, o.Clone())
		}
	}
	return active, nil
}

// UpdateOrder applies a patch without touching the status.
func (s *Store) UpdateOrder(_ context.Context, orderID string, patch app.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(orderID))
	}

	apply(o, patch)
	return nil
}

// CompareAndSwapStatus transitions from one status to another atomically,
// applying patch in the same step. Returns false without error when the
// order is not in the from status.
func (s *Store) CompareAndSwapStatus(_ context.Context, orderID string, from, to domain.Status, patch app.Patch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false, apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(orderID))
	}

	if o.Status != from {
		return false, nil
	}

	o.Status = to
	apply(o, patch)
	return true, nil
}

func apply(o *domain.LimitOrder, patch app.Patch) {
	// Keep-the-better under the store lock: overlapping checks may patch
	// best prices out of order.
	if patch.BestPriceSeen != nil && o.ImprovesBest(*patch.BestPriceSeen) {
		o.BestPriceSeen = decimal.NewNullDecimal(*patch.BestPriceSeen)
	}
	if patch.FailReason != nil {
		o.FailReason = *patch.FailReason
	}
	if patch.TriggeredAt != nil {
		o.TriggeredAt = patch.TriggeredAt
	}
	if patch.ExecutingSince != nil {
		o.ExecutingSince = patch.ExecutingSince
	}
	if patch.ExecutedAt != nil {
		o.ExecutedAt = patch.ExecutedAt
	}
	if patch.FailedAt != nil {
		o.FailedAt = patch.FailedAt
	}
}
