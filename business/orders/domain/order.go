// Package domain contains the core types of the limit-order context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a limit order.
type Status string

const (
	// StatusScheduled means the order is waiting for its trigger condition.
	StatusScheduled Status = "SCHEDULED"
	// StatusExecuting means exactly one check cycle won the order and is
	// running the swap.
	StatusExecuting Status = "EXECUTING"
	StatusExecuted  Status = "EXECUTED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusExecuted || s == StatusFailed
}

// Side says which direction of price movement triggers the order.
type Side string

const (
	// SideSell triggers when the price rises to or above the target.
	SideSell Side = "SELL"
	// SideBuy triggers when the price falls to or below the target.
	SideBuy Side = "BUY"
)

// LimitOrder is a standing instruction to swap FromAmount of FromToken into
// ToToken once the market price crosses TargetPrice.
type LimitOrder struct {
	OrderID     string
	FromToken   string
	ToToken     string
	FromAmount  decimal.Decimal
	TargetPrice decimal.Decimal
	Side        Side

	CheckInterval time.Duration
	ExpirationAt  time.Time

	BestPriceSeen decimal.NullDecimal

	Status     Status
	FailReason string

	CreatedAt      time.Time
	TriggeredAt    *time.Time
	ExecutingSince *time.Time
	ExecutedAt     *time.Time
	FailedAt       *time.Time
}

// Expired reports whether the order's lifetime has run out.
func (o *LimitOrder) Expired(now time.Time) bool {
	return now.After(o.ExpirationAt)
}

// Triggered reports whether price satisfies the order's trigger condition.
func (o *LimitOrder) Triggered(price decimal.Decimal) bool {
	if o.Side == SideBuy {
		return price.LessThanOrEqual(o.TargetPrice)
	}
	return price.GreaterThanOrEqual(o.TargetPrice)
}

// ImprovesBest reports whether price is closer to triggering than anything
// observed so far.
func (o *LimitOrder) ImprovesBest(price decimal.Decimal) bool {
	if !o.BestPriceSeen.Valid {
		return true
	}
	if o.Side == SideBuy {
		return price.LessThan(o.BestPriceSeen.Decimal)
	}
	return price.GreaterThan(o.BestPriceSeen.Decimal)
}

// Clone returns a deep copy. Stores hand out clones so callers never share
// mutable state.
func (o *LimitOrder) Clone() *LimitOrder {
	c := *o
	c.TriggeredAt = copyTime(o.TriggeredAt)
	c.ExecutingSince = copyTime(o.ExecutingSince)
	c.ExecutedAt = copyTime(o.ExecutedAt)
	c.FailedAt = copyTime(o.FailedAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
