package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuoteSet_Best_ExactIn(t *testing.T) {
	now := time.Now()
	set := domain.QuoteSet{
		QuoteID: "q-1",
		Mode:    domain.ModeExactIn,
		Quotes: []domain.Quote{
			{QuoteHash: "a", AmountOut: dec("995"), ExpirationTime: now.Add(time.Minute)},
			{QuoteHash: "b", AmountOut: dec("1010"), ExpirationTime: now.Add(time.Minute)},
			{QuoteHash: "c", AmountOut: dec("1001"), ExpirationTime: now.Add(time.Minute)},
		},
	}

	best := set.Best(now, 10*time.Second)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.QuoteHash)
}

func TestQuoteSet_Best_ExactOut(t *testing.T) {
	now := time.Now()
	set := domain.QuoteSet{
		Mode: domain.ModeExactOut,
		Quotes: []domain.Quote{
			{QuoteHash: "a", AmountIn: dec("1020"), ExpirationTime: now.Add(time.Minute)},
			{QuoteHash: "b", AmountIn: dec("1005"), ExpirationTime: now.Add(time.Minute)},
			{QuoteHash: "c", AmountIn: dec("1011"), ExpirationTime: now.Add(time.Minute)},
		},
	}

	best := set.Best(now, 10*time.Second)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.QuoteHash)
}

func TestQuoteSet_Best_TieBreaksOnEarliestExpiry(t *testing.T) {
	now := time.Now()
	set := domain.QuoteSet{
		Mode: domain.ModeExactIn,
		Quotes: []domain.Quote{
			{QuoteHash: "later", AmountOut: dec("1000"), ExpirationTime: now.Add(2 * time.Minute)},
			{QuoteHash: "sooner", AmountOut: dec("1000"), ExpirationTime: now.Add(time.Minute)},
		},
	}

	best := set.Best(now, 10*time.Second)
	require.NotNil(t, best)
	assert.Equal(t, "sooner", best.QuoteHash)
}

func TestQuoteSet_Best_Deterministic(t *testing.T) {
	now := time.Now()
	set := domain.QuoteSet{
		Mode: domain.ModeExactIn,
		Quotes: []domain.Quote{
			{QuoteHash: "x", AmountOut: dec("1000"), ExpirationTime: now.Add(time.Minute)},
			{QuoteHash: "y", AmountOut: dec("1000"), ExpirationTime: now.Add(time.Minute)},
		},
	}

	first := set.Best(now, 0)
	require.NotNil(t, first)
	for i := 0; i < 20; i++ {
		again := set.Best(now, 0)
		require.NotNil(t, again)
		assert.Equal(t, first.QuoteHash, again.QuoteHash)
	}
}

func TestQuoteSet_Best_FiltersExpiring(t *testing.T) {
	now := time.Now()
	set := domain.QuoteSet{
		Mode: domain.ModeExactIn,
		Quotes: []domain.Quote{
			// Better output but expires before the work could settle.
			{QuoteHash: "expiring", AmountOut: dec("1100"), ExpirationTime: now.Add(5 * time.Second)},
			{QuoteHash: "viable", AmountOut: dec("1000"), ExpirationTime: now.Add(time.Minute)},
		},
	}

	best := set.Best(now, 30*time.Second)
	require.NotNil(t, best)
	assert.Equal(t, "viable", best.QuoteHash)
}

func TestQuoteSet_Best_EmptyAndAllExpired(t *testing.T) {
	now := time.Now()

	empty := domain.QuoteSet{Mode: domain.ModeExactIn}
	assert.True(t, empty.Empty())
	assert.Nil(t, empty.Best(now, 0))

	stale := domain.QuoteSet{
		Mode: domain.ModeExactIn,
		Quotes: []domain.Quote{
			{QuoteHash: "old", AmountOut: dec("1000"), ExpirationTime: now.Add(-time.Minute)},
		},
	}
	assert.Nil(t, stale.Best(now, 0))
}

func TestStatusFromRaw(t *testing.T) {
	assert.Equal(t, domain.IntentStatusExecuted, domain.StatusFromRaw("SETTLED"))
	assert.Equal(t, domain.IntentStatusFailed, domain.StatusFromRaw("NOT_FOUND_OR_NOT_VALID"))
	assert.Equal(t, domain.IntentStatusPending, domain.StatusFromRaw("TX_BROADCASTED"))
	assert.True(t, domain.IntentStatusExecuted.Terminal())
	assert.False(t, domain.IntentStatusPending.Terminal())
}

func TestPublishReceipt_Accepted(t *testing.T) {
	ok := domain.PublishReceipt{Status: "OK", IntentHash: "0xabc"}
	rejected := domain.PublishReceipt{Status: "FAILED", Reason: "expired quote"}

	assert.True(t, ok.Accepted())
	assert.False(t, rejected.Accepted())
}
