package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/intents-agent/business/orders/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decp(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func newSellOrder(t *testing.T, target string) *domain.LimitOrder {
	t.Helper()
	return &domain.LimitOrder{
		OrderID:       "o-1",
		FromToken:     "wnear",
		ToToken:       "usdc",
		FromAmount:    dec(t, "100"),
		TargetPrice:   dec(t, target),
		Side:          domain.SideSell,
		CheckInterval: 10 * time.Millisecond,
		ExpirationAt:  time.Now().Add(time.Hour),
		Status:        domain.StatusScheduled,
		CreatedAt:     time.Now(),
	}
}

func newMonitorForTest(t *testing.T, store Store, oracle PriceOracle, exec Executor) *Monitor {
	t.Helper()
	return NewMonitor(store, oracle, exec, MonitorConfig{
		DefaultCheckInterval: 10 * time.Millisecond,
		RescanInterval:       20 * time.Millisecond,
		ExecutingGrace:       time.Minute,
	}, testLogger(t))
}

func TestMonitor_TriggersOnThresholdCross(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, newSellOrder(t, "3.0")))

	oracle := &scriptedOracle{prices: []*decimal.Decimal{
		decp(t, "2.9"), decp(t, "2.95"), decp(t, "3.1"),
	}}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	// 2.9: no trigger, becomes best price.
	done, err := m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, done)

	o, _ := store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusScheduled, o.Status)
	require.True(t, o.BestPriceSeen.Valid)
	assert.Equal(t, "2.9", o.BestPriceSeen.Decimal.String())
	assert.Equal(t, 0, exec.callCount())

	// 2.95: closer, still no trigger.
	done, err = m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, done)

	o, _ = store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusScheduled, o.Status)
	assert.Equal(t, "2.95", o.BestPriceSeen.Decimal.String())

	// 3.1: crosses the target, executes exactly once.
	done, err = m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, exec.callCount())

	o, _ = store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusExecuted, o.Status)
	require.NotNil(t, o.TriggeredAt)
	require.NotNil(t, o.ExecutedAt)
}

func TestMonitor_ExpirationDominatesTrigger(t *testing.T) {
	ctx := context.Background()

	order := newSellOrder(t, "3.0")
	order.ExpirationAt = time.Now().Add(-time.Second)

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, order))

	// The price would trigger the order, but it is already expired.
	oracle := &fixedOracle{price: dec(t, "3.5")}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	done, err := m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, done)

	o, _ := store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusFailed, o.Status)
	assert.Equal(t, "expired", o.FailReason)
	assert.Equal(t, 0, exec.callCount())
	// Expiration is decided before the oracle is consulted.
	assert.Equal(t, 0, oracle.calls)
}

func TestMonitor_OracleFailureSkipsCycle(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, newSellOrder(t, "3.0")))

	oracle := &fixedOracle{err: apperror.New(apperror.CodeOracleUnavailable)}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	done, err := m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, done)

	o, _ := store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusScheduled, o.Status)
	assert.False(t, o.BestPriceSeen.Valid)
	assert.Equal(t, 0, exec.callCount())
}

func TestMonitor_ConcurrentChecksExecuteOnce(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, newSellOrder(t, "3.0")))

	oracle := &fixedOracle{price: dec(t, "3.2")}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	const cycles = 16
	var wg sync.WaitGroup
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.CheckOrder(ctx, "o-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, exec.callCount())

	o, _ := store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusExecuted, o.Status)
}

func TestMonitor_TerminalOrderIsNoOp(t *testing.T) {
	ctx := context.Background()

	order := newSellOrder(t, "3.0")
	order.Status = domain.StatusExecuted

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, order))

	oracle := &fixedOracle{price: dec(t, "3.5")}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	done, err := m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 0, oracle.calls)
	assert.Equal(t, 0, exec.callCount())
}

func TestMonitor_ExecutorFailureFailsOrder(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, newSellOrder(t, "3.0")))

	oracle := &fixedOracle{price: dec(t, "3.2")}
	exec := &mockExecutor{err: apperror.New(apperror.CodeNegotiationFailed)}
	m := newMonitorForTest(t, store, oracle, exec)

	done, err := m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.True(t, done)

	o, _ := store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusFailed, o.Status)
	assert.NotEmpty(t, o.FailReason)
	require.NotNil(t, o.FailedAt)
}

func TestMonitor_ExecutingOrderIsLeftAlone(t *testing.T) {
	ctx := context.Background()

	since := time.Now().Add(-10 * time.Second)
	order := newSellOrder(t, "3.0")
	order.Status = domain.StatusExecuting
	order.ExecutingSince = &since

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, order))

	oracle := &fixedOracle{price: dec(t, "3.5")}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	done, err := m.CheckOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.False(t, done)

	o, _ := store.FindOrder(ctx, "o-1")
	assert.Equal(t, domain.StatusExecuting, o.Status)
	assert.Equal(t, 0, exec.callCount())
}

func TestMonitor_NotFoundIsAnError(t *testing.T) {
	m := newMonitorForTest(t, newFakeStore(), &fixedOracle{}, &mockExecutor{})

	_, err := m.CheckOrder(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOrderNotFound))
}

func TestMonitor_RunWatchesUntilTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newFakeStore()
	require.NoError(t, store.CreateOrder(ctx, newSellOrder(t, "3.0")))

	oracle := &scriptedOracle{prices: []*decimal.Decimal{
		decp(t, "2.9"), decp(t, "3.1"),
	}}
	exec := &mockExecutor{}
	m := newMonitorForTest(t, store, oracle, exec)

	go func() { _ = m.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		o, err := store.FindOrder(ctx, "o-1")
		require.NoError(t, err)
		if o.Status == domain.StatusExecuted {
			assert.Equal(t, 1, exec.callCount())
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("order never executed")
}
