// Package solverbus implements the solver-bus bounded context: quote
// negotiation, intent publishing, and the subscribed event stream.
package solverbus

import (
	"context"
	"time"

	"github.com/fd1az/intents-agent/business/solverbus/app"
	solverbusDI "github.com/fd1az/intents-agent/business/solverbus/di"
	"github.com/fd1az/intents-agent/business/solverbus/infra/busrpc"
	"github.com/fd1az/intents-agent/business/solverbus/infra/bussub"
	"github.com/fd1az/intents-agent/business/solverbus/infra/signer"
	"github.com/fd1az/intents-agent/internal/config"
	"github.com/fd1az/intents-agent/internal/di"
	"github.com/fd1az/intents-agent/internal/httpclient"
	"github.com/fd1az/intents-agent/internal/logger"
	"github.com/fd1az/intents-agent/internal/monolith"
	"github.com/fd1az/intents-agent/internal/ratelimit"
)

// Module implements the solver-bus bounded context.
type Module struct{}

// RegisterServices registers all solver-bus services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register BusClient (JSON-RPC over HTTP) - private dependency
	di.RegisterToken(c, solverbusDI.BusClient, func(sr di.ServiceRegistry) app.BusClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		hc, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("solver-bus"),
			httpclient.WithRequestTimeout(cfg.SolverBus.RequestTimeout),
		)
		if err != nil {
			panic("failed to create solver bus http client: " + err.Error())
		}

		return busrpc.New(hc, cfg.SolverBus.RPCURL, log)
	})

	// Register Subscription (event stream) - private dependency
	di.RegisterToken(c, solverbusDI.Subscription, func(sr di.ServiceRegistry) *bussub.Subscription {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		sub, err := bussub.New(bussub.Config{
			URL:            cfg.SolverBus.WebSocketURL,
			Topics:         cfg.SolverBus.Topics,
			Workers:        cfg.SolverBus.DispatchWorkers,
			QueueSize:      cfg.SolverBus.DispatchBuffer,
			InitialBackoff: cfg.SolverBus.InitialBackoff,
			MaxBackoff:     cfg.SolverBus.MaxBackoff,
			MaxReconnects:  cfg.SolverBus.MaxReconnects,
		}, log)
		if err != nil {
			panic("failed to create solver bus subscription: " + err.Error())
		}
		return sub
	})

	// Register Signer (public - exposed to other modules)
	di.RegisterToken(c, solverbusDI.Signer, func(sr di.ServiceRegistry) app.Signer {
		cfg := sr.Get("config").(*config.Config)

		s, err := signer.NewLocal(cfg.SolverBus.SigningKey)
		if err != nil {
			panic("failed to create signer: " + err.Error())
		}
		return s
	})

	// Register Negotiator (public)
	di.RegisterToken(c, solverbusDI.Negotiator, func(sr di.ServiceRegistry) *app.Negotiator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		limiter := ratelimit.New(cfg.SolverBus.QuotesPerMinute)

		return app.NewNegotiator(
			solverbusDI.GetBusClient(sr),
			limiter,
			app.NegotiatorConfig{
				MinDeadline: cfg.SolverBus.MinDeadline,
				MinValidity: cfg.SolverBus.MinValidity,
			},
			log,
		)
	})

	// Register Publisher (public)
	di.RegisterToken(c, solverbusDI.Publisher, func(sr di.ServiceRegistry) *app.Publisher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewPublisher(
			solverbusDI.GetBusClient(sr),
			solverbusDI.GetSubscription(sr),
			app.PublisherConfig{
				PollInterval: cfg.Monitor.StatusPollInterval,
				WaitTimeout:  cfg.Monitor.StatusWaitTimeout,
			},
			log,
		)
	})

	return nil
}

// Startup connects the event stream. A failed first connect is retried in
// the background so a bus outage never blocks process startup.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	sub := solverbusDI.GetSubscription(mono.Services())

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sub.Start(connectCtx); err != nil {
		log.Warn(ctx, "solver bus subscription failed, will retry in background", "error", err)

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
					if err := sub.Start(ctx); err != nil {
						log.Warn(ctx, "solver bus subscription retry failed", "error", err)
					} else {
						log.Info(ctx, "solver bus subscription established")
						return
					}
				}
			}
		}()
	}

	log.Info(ctx, "solver bus module started")
	return nil
}
