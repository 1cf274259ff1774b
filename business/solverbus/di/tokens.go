// Package di contains dependency injection tokens for the solver-bus context.
package di

import (
	"github.com/fd1az/intents-agent/business/solverbus/app"
	"github.com/fd1az/intents-agent/business/solverbus/infra/bussub"
	"github.com/fd1az/intents-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Negotiator = di.NewToken[*app.Negotiator]("solverbus.Negotiator")
	Publisher  = di.NewToken[*app.Publisher]("solverbus.Publisher")
	Signer     = di.NewToken[app.Signer]("solverbus.Signer")
)

// Private dependency tokens - internal to the solver-bus module
var (
	BusClient    = di.NewToken[app.BusClient]("solverbus:busClient")
	Subscription = di.NewToken[*bussub.Subscription]("solverbus:subscription")
)

// Helper functions for type-safe access
func GetNegotiator(c di.ServiceRegistry) *app.Negotiator {
	return di.GetToken(c, Negotiator)
}

func GetPublisher(c di.ServiceRegistry) *app.Publisher {
	return di.GetToken(c, Publisher)
}

func GetSigner(c di.ServiceRegistry) app.Signer {
	return di.GetToken(c, Signer)
}

func GetBusClient(c di.ServiceRegistry) app.BusClient {
	return di.GetToken(c, BusClient)
}

func GetSubscription(c di.ServiceRegistry) *bussub.Subscription {
	return di.GetToken(c, Subscription)
}
