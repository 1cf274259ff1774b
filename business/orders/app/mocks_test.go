package app

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/intents-agent/business/orders/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/logger"
)

// fakeStore is an in-memory Store with the same atomicity contract as the
// real one.
type fakeStore struct {
	mu     sync.Mutex
	orders map[string]*domain.LimitOrder
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*domain.LimitOrder)}
}

func (s *fakeStore) CreateOrder(_ context.Context, o *domain.LimitOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderID] = o.Clone()
	return nil
}

func (s *fakeStore) FindOrder(_ context.Context, orderID string) (*domain.LimitOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(orderID))
	}
	return o.Clone(), nil
}

func (s *fakeStore) ListActive(_ context.Context) ([]*domain.LimitOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*domain.LimitOrder
	for _, o := range s.orders {
		if !o.Status.Terminal() {
			active = append(active, o.Clone())
		}
	}
	return active, nil
}

func (s *fakeStore) UpdateOrder(_ context.Context, orderID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(orderID))
	}
	applyPatch(o, patch)
	return nil
}

func (s *fakeStore) CompareAndSwapStatus(_ context.Context, orderID string, from, to domain.Status, patch Patch) (bool, error) {
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
	applyPatch(o, patch)
	return true, nil
}

func applyPatch(o *domain.LimitOrder, patch Patch) {
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

// scriptedOracle returns prices in sequence, then keeps returning the last
// one. A nil price entry yields an error.
type scriptedOracle struct {
	mu     sync.Mutex
	prices []*decimal.Decimal
	calls  int
}

func (o *scriptedOracle) Price(context.Context, string, string) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := o.calls
	if idx >= len(o.prices) {
		idx = len(o.prices) - 1
	}
	o.calls++

	if o.prices[idx] == nil {
		return decimal.Decimal{}, apperror.New(apperror.CodeOracleUnavailable)
	}
	return *o.prices[idx], nil
}

type fixedOracle struct {
	price decimal.Decimal
	err   error
	calls int
	mu    sync.Mutex
}

func (o *fixedOracle) Price(context.Context, string, string) (decimal.Decimal, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()

	if o.err != nil {
		return decimal.Decimal{}, o.err
	}
	return o.price, nil
}

type mockExecutor struct {
	mu    sync.Mutex
	calls int
	err   error
	block chan struct{} // when non-nil, Execute waits on it
}

func (e *mockExecutor) Execute(context.Context, *domain.LimitOrder) error {
	e.mu.Lock()
	e.calls++
	block := e.block
	e.mu.Unlock()

	if block != nil {
		<-block
	}
	return e.err
}

func (e *mockExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testLogger(t *testing.T) logger.LoggerInterface {
	return logger.New(testWriter{t}, logger.LevelDebug, "orders-test", nil)
}
