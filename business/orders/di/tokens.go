// Package di contains dependency injection tokens for the orders context.
package di

import (
	"github.com/fd1az/intents-agent/business/orders/app"
	"github.com/fd1az/intents-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Monitor = di.NewToken[*app.Monitor]("orders.Monitor")
	Store   = di.NewToken[app.Store]("orders.Store")
)

// Private dependency tokens - internal to the orders module
var (
	PriceOracle = di.NewToken[app.PriceOracle]("orders:priceOracle")
	Executor    = di.NewToken[app.Executor]("orders:executor")
)

// Helper functions for type-safe access
func GetMonitor(c di.ServiceRegistry) *app.Monitor {
	return di.GetToken(c, Monitor)
}

func GetStore(c di.ServiceRegistry) app.Store {
	return di.GetToken(c, Store)
}

func GetPriceOracle(c di.ServiceRegistry) app.PriceOracle {
	return di.GetToken(c, PriceOracle)
}

func GetExecutor(c di.ServiceRegistry) app.Executor {
	return di.GetToken(c, Executor)
}
