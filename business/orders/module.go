// Package orders implements the limit-order bounded context: storage,
// pricing, and the monitor that executes triggered orders over the solver
// bus.
package orders

import (
	"context"

	"github.com/fd1az/intents-agent/business/orders/app"
	ordersDI "github.com/fd1az/intents-agent/business/orders/di"
	"github.com/fd1az/intents-agent/business/orders/infra/executor"
	"github.com/fd1az/intents-agent/business/orders/infra/memstore"
	"github.com/fd1az/intents-agent/business/orders/infra/oracle"
	solverbusDI "github.com/fd1az/intents-agent/business/solverbus/di"
	"github.com/fd1az/intents-agent/internal/config"
	"github.com/fd1az/intents-agent/internal/di"
	"github.com/fd1az/intents-agent/internal/httpclient"
	"github.com/fd1az/intents-agent/internal/logger"
	"github.com/fd1az/intents-agent/internal/monolith"
)

// Module implements the orders bounded context.
type Module struct{}

// RegisterServices registers all orders services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Store (public - the API surface for order intake)
	di.RegisterToken(c, ordersDI.Store, func(sr di.ServiceRegistry) app.Store {
		return memstore.New()
	})

	// Register PriceOracle - private dependency
	di.RegisterToken(c, ordersDI.PriceOracle, func(sr di.ServiceRegistry) app.PriceOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		hc, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("price-oracle"),
			httpclient.WithRequestTimeout(cfg.Oracle.RequestTimeout),
		)
		if err != nil {
			panic("failed to create oracle http client: " + err.Error())
		}

		return oracle.New(hc, oracle.Config{
			BaseURL:        cfg.Oracle.BaseURL,
			BreakerMaxFail: cfg.Oracle.BreakerMaxFail,
			BreakerCooloff: cfg.Oracle.BreakerCooloff,
		}, log)
	})

	// Register Executor - private dependency bridging to the solver bus
	di.RegisterToken(c, ordersDI.Executor, func(sr di.ServiceRegistry) app.Executor {
		log := sr.Get("logger").(logger.LoggerInterface)

		return executor.New(
			solverbusDI.GetNegotiator(sr),
			solverbusDI.GetPublisher(sr),
			solverbusDI.GetSigner(sr),
			log,
		)
	})

	// Register Monitor (public)
	di.RegisterToken(c, ordersDI.Monitor, func(sr di.ServiceRegistry) *app.Monitor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewMonitor(
			ordersDI.GetStore(sr),
			ordersDI.GetPriceOracle(sr),
			ordersDI.GetExecutor(sr),
			app.MonitorConfig{
				DefaultCheckInterval: cfg.Monitor.DefaultCheckInterval,
				ExecutingGrace:       cfg.Monitor.ExecutingGrace,
			},
			log,
		)
	})

	return nil
}

// Startup launches the monitor loop in the background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	monitor := ordersDI.GetMonitor(mono.Services())

	go func() {
		if err := monitor.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "order monitor stopped", "error", err)
		}
	}()

	log.Info(ctx, "orders module started")
	return nil
}
