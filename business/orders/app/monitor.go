package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/intents-agent/business/orders/domain"
	"github.com/fd1az/intents-agent/internal/logger"
)

// MonitorConfig tunes the order monitor.
type MonitorConfig struct {
	// DefaultCheckInterval is used for orders that do not set their own.
	DefaultCheckInterval time.Duration
	// RescanInterval is how often the store is scanned for new orders.
	RescanInterval time.Duration
	// ExecutingGrace is how long an order may sit in Executing before it is
	// reported as stuck.
	ExecutingGrace time.Duration
}

// Monitor polls active limit orders and executes them when their trigger
// condition is met. Any number of check cycles may observe the trigger; the
// store-level compare-and-swap guarantees only one runs the executor.
type Monitor struct {
	store    Store
	oracle   PriceOracle
	executor Executor
	cfg      MonitorConfig
	log      logger.LoggerInterface

	// now is swappable for tests.
	now func() time.Time

	mu       sync.Mutex
	watching map[string]context.CancelFunc
	wg       sync.WaitGroup

	checks     metric.Int64Counter
	triggers   metric.Int64Counter
	executions metric.Int64Counter
	stuck      metric.Int64Counter
}

// NewMonitor builds a Monitor.
func NewMonitor(store Store, oracle PriceOracle, executor Executor, cfg MonitorConfig, log logger.LoggerInterface) *Monitor {
	if cfg.DefaultCheckInterval <= 0 {
		cfg.DefaultCheckInterval = 10 * time.Second
	}
	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = 30 * time.Second
	}
	if cfg.ExecutingGrace <= 0 {
		cfg.ExecutingGrace = 2 * time.Minute
	}

	meter := otel.GetMeterProvider().Meter("orders_monitor")
	checks, _ := meter.Int64Counter("orders_checks_total",
		metric.WithDescription("Order check cycles run"))
	triggers, _ := meter.Int64Counter("orders_triggers_total",
		metric.WithDescription("Orders whose trigger condition was met"))
	executions, _ := meter.Int64Counter("orders_executions_total",
		metric.WithDescription("Order executions by outcome"))
	stuck, _ := meter.Int64Counter("orders_stuck_total",
		metric.WithDescription("Orders observed in Executing beyond the grace period"))

	return &Monitor{
		store:      store,
		oracle:     oracle,
		executor:   executor,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		watching:   make(map[string]context.CancelFunc),
		checks:     checks,
		triggers:   triggers,
		executions: executions,
		stuck:      stuck,
	}
}

// Run watches all active orders until ctx is cancelled, picking up orders
// created after startup on each rescan.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.rescan(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(m.cfg.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			if err := m.rescan(ctx); err != nil {
				m.log.Warn(ctx, "order rescan failed", "error", err)
			}
		}
	}
}

// rescan starts a watcher for every active order that does not have one.
func (m *Monitor) rescan(ctx context.Context) error {
	orders, err := m.store.ListActive(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range orders {
		if _, ok := m.watching[o.OrderID]; ok {
			continue
		}

		watchCtx, cancel := context.WithCancel(ctx)
		m.watching[o.OrderID] = cancel

		m.wg.Add(1)
		go m.watch(watchCtx, o.OrderID, o.CheckInterval)
	}

	return nil
}

// watch runs check cycles for one order at its own cadence until the order
// reaches a terminal state or the context is cancelled.
func (m *Monitor) watch(ctx context.Context, orderID string, interval time.Duration) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.watching, orderID)
		m.mu.Unlock()
	}()

	if interval <= 0 {
		interval = m.cfg.DefaultCheckInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			done, err := m.CheckOrder(ctx, orderID)
			if err != nil {
				m.log.Warn(ctx, "order check failed", "order_id", orderID, "error", err)
				continue
			}
			if done {
				return
			}
		}
	}
}

// CheckOrder runs one check cycle for the order and reports whether the
// order has reached a terminal state. It is safe to call concurrently for
// the same order: every state-changing step is a store-level compare-and-
// swap, so overlapping cycles cannot double-execute.
func (m *Monitor) CheckOrder(ctx context.Context, orderID string) (bool, error) {
	m.checks.Add(ctx, 1)

	o, err := m.store.FindOrder(ctx, orderID)
	if err != nil {
		return false, err
	}

	if o.Status.Terminal() {
		return true, nil
	}

	if o.Status == domain.StatusExecuting {
		m.checkStuck(ctx, o)
		return false, nil
	}

	now := m.now()

	// Expiration dominates: an expired order fails even if the current
	// price would trigger it.
	if o.Expired(now) {
		reason := "expired"
		swapped, err := m.store.CompareAndSwapStatus(ctx, orderID,
			domain.StatusScheduled, domain.StatusFailed,
			Patch{FailReason: &reason, FailedAt: &now})
		if err != nil {
			return false, err
		}
		if swapped {
			m.log.Info(ctx, "order expired", "order_id", orderID)
			m.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "expired")))
			return true, nil
		}
		// Lost the swap to a concurrent cycle; re-read next time.
		return false, nil
	}

	price, err := m.oracle.Price(ctx, o.FromToken, o.ToToken)
	if err != nil {
		// No price, no decision. The next cycle tries again.
		m.log.Warn(ctx, "price oracle unavailable, skipping cycle",
			"order_id", orderID, "error", err)
		return false, nil
	}

	if o.ImprovesBest(price) {
		if err := m.store.UpdateOrder(ctx, orderID, Patch{BestPriceSeen: &price}); err != nil {
			m.log.Warn(ctx, "best price update failed", "order_id", orderID, "error", err)
		}
	}

	if !o.Triggered(price) {
		return false, nil
	}

	m.triggers.Add(ctx, 1)

	swapped, err := m.store.CompareAndSwapStatus(ctx, orderID,
		domain.StatusScheduled, domain.StatusExecuting,
		Patch{TriggeredAt: &now, ExecutingSince: &now})
	if err != nil {
		return false, err
	}
	if !swapped {
		// Another cycle won the order.
		return false, nil
	}

	m.log.Info(ctx, "order triggered",
		"order_id", orderID, "price", price.String(), "target", o.TargetPrice.String())

	return m.execute(ctx, o)
}

// execute runs the swap for an order this cycle just moved to Executing.
func (m *Monitor) execute(ctx context.Context, o *domain.LimitOrder) (bool, error) {
	err := m.executor.Execute(ctx, o)
	done := m.now()

	if err != nil {
		reason := err.Error()
		m.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		m.log.Error(ctx, "order execution failed", "order_id", o.OrderID, "error", err)

		if _, casErr := m.store.CompareAndSwapStatus(ctx, o.OrderID,
			domain.StatusExecuting, domain.StatusFailed,
			Patch{FailReason: &reason, FailedAt: &done}); casErr != nil {
			return true, casErr
		}
		return true, nil
	}

	m.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "executed")))
	m.log.Info(ctx, "order executed", "order_id", o.OrderID)

	if _, casErr := m.store.CompareAndSwapStatus(ctx, o.OrderID,
		domain.StatusExecuting, domain.StatusExecuted,
		Patch{ExecutedAt: &done}); casErr != nil {
		return true, casErr
	}
	return true, nil
}

// checkStuck reports orders that have been Executing longer than the grace
// period. They are surfaced for operators, never retried automatically.
func (m *Monitor) checkStuck(ctx context.Context, o *domain.LimitOrder) {
	if o.ExecutingSince == nil {
		return
	}
	if m.now().Sub(*o.ExecutingSince) <= m.cfg.ExecutingGrace {
		return
	}

	m.stuck.Add(ctx, 1)
	m.log.Error(ctx, "order stuck in executing",
		"order_id", o.OrderID, "executing_since", o.ExecutingSince)
}
