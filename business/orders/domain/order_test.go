package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/intents-agent/business/orders/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sellOrder(target string) *domain.LimitOrder {
	return &domain.LimitOrder{
		OrderID:      "o-1",
		FromToken:    "wnear",
		ToToken:      "usdc",
		FromAmount:   dec("100"),
		TargetPrice:  dec(target),
		Side:         domain.SideSell,
		ExpirationAt: time.Now().Add(time.Hour),
		Status:       domain.StatusScheduled,
	}
}

func TestLimitOrder_Triggered(t *testing.T) {
	sell := sellOrder("3.0")
	assert.False(t, sell.Triggered(dec("2.9")))
	assert.True(t, sell.Triggered(dec("3.0")))
	assert.True(t, sell.Triggered(dec("3.1")))

	buy := sellOrder("3.0")
	buy.Side = domain.SideBuy
	assert.True(t, buy.Triggered(dec("2.9")))
	assert.True(t, buy.Triggered(dec("3.0")))
	assert.False(t, buy.Triggered(dec("3.1")))
}

func TestLimitOrder_ImprovesBest(t *testing.T) {
	o := sellOrder("3.0")

	// First observation always improves.
	require.True(t, o.ImprovesBest(dec("2.9")))
	o.BestPriceSeen = decimal.NewNullDecimal(dec("2.9"))

	assert.True(t, o.ImprovesBest(dec("2.95")))
	assert.False(t, o.ImprovesBest(dec("2.9")))
	assert.False(t, o.ImprovesBest(dec("2.8")))

	buy := sellOrder("3.0")
	buy.Side = domain.SideBuy
	buy.BestPriceSeen = decimal.NewNullDecimal(dec("3.2"))
	assert.True(t, buy.ImprovesBest(dec("3.1")))
	assert.False(t, buy.ImprovesBest(dec("3.3")))
}

func TestLimitOrder_Expired(t *testing.T) {
	o := sellOrder("3.0")
	o.ExpirationAt = time.Now().Add(-time.Second)
	assert.True(t, o.Expired(time.Now()))

	o.ExpirationAt = time.Now().Add(time.Minute)
	assert.False(t, o.Expired(time.Now()))
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, domain.StatusScheduled.Terminal())
	assert.False(t, domain.StatusExecuting.Terminal())
	assert.True(t, domain.StatusExecuted.Terminal())
	assert.True(t, domain.StatusFailed.Terminal())
}

func TestLimitOrder_CloneIsDeep(t *testing.T) {
	now := time.Now()
	o := sellOrder("3.0")
	o.TriggeredAt = &now

	c := o.Clone()
	later := now.Add(time.Minute)
	*c.TriggeredAt = later

	assert.True(t, o.TriggeredAt.Equal(now))
	assert.True(t, c.TriggeredAt.Equal(later))
}
