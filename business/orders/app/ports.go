// Package app holds the limit-order application services.
package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/intents-agent/business/orders/domain"
)

// Patch is a partial update applied to a stored order. Nil fields are left
// untouched. BestPriceSeen is applied only when it improves on the stored
// value for the order's side, so stale observations from overlapping checks
// never regress it.
type Patch struct {
	BestPriceSeen  *decimal.Decimal
	FailReason     *string
	TriggeredAt    *time.Time
	ExecutingSince *time.Time
	ExecutedAt     *time.Time
	FailedAt       *time.Time
}

// Store persists limit orders. Implementations must make
// CompareAndSwapStatus atomic: of N concurrent swaps from the same status,
// exactly one succeeds.
type Store interface {
	CreateOrder(ctx context.Context, o *domain.LimitOrder) error
	FindOrder(ctx context.Context, orderID string) (*domain.LimitOrder, error)
	// ListActive returns all non-terminal orders.
	ListActive(ctx context.Context) ([]*domain.LimitOrder, error)
	UpdateOrder(ctx context.Context, orderID string, patch Patch) error
	// CompareAndSwapStatus transitions the order from one status to another,
	// applying patch in the same atomic step. Returns false without error
	// when the order is no longer in the from status.
	CompareAndSwapStatus(ctx context.Context, orderID string, from, to domain.Status, patch Patch) (bool, error)
}

// PriceOracle quotes the current market price of a token pair.
type PriceOracle interface {
	Price(ctx context.Context, fromToken, toToken string) (decimal.Decimal, error)
}

// Executor carries out the swap of a triggered order.
type Executor interface {
	Execute(ctx context.Context, o *domain.LimitOrder) error
}
