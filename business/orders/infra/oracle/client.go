// Package oracle provides the HTTP price oracle client.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/httpclient"
	"github.com/fd1az/intents-agent/internal/logger"
)

// Config tunes the oracle client.
type Config struct {
	BaseURL        string
	BreakerMaxFail uint32
	BreakerCooloff time.Duration
}

type priceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Client fetches spot prices over HTTP, wrapped in a circuit breaker so a
// flapping oracle stops being hammered while it recovers.
type Client struct {
	http    httpclient.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker[decimal.Decimal]
	log     logger.LoggerInterface
}

// New builds an oracle client.
func New(http httpclient.Client, cfg Config, log logger.LoggerInterface) *Client {
	if cfg.BreakerMaxFail == 0 {
		cfg.BreakerMaxFail = 5
	}
	if cfg.BreakerCooloff <= 0 {
		cfg.BreakerCooloff = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "price-oracle",
		Timeout: cfg.BreakerCooloff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFail
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "oracle breaker state change",
				"name", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		http:    http,
		baseURL: cfg.BaseURL,
		breaker: gobreaker.NewCircuitBreaker[decimal.Decimal](settings),
		log:     log,
	}
}

// Price returns the current fromToken price denominated in toToken. Every
// failure mode, including an open breaker, surfaces as oracle-unavailable so
// callers treat them uniformly.
func (c *Client) Price(ctx context.Context, fromToken, toToken string) (decimal.Decimal, error) {
	price, err := c.breaker.Execute(func() (decimal.Decimal, error) {
		return c.fetch(ctx, fromToken, toToken)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return decimal.Decimal{}, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s/%s", fromToken, toToken)))
		}
		return decimal.Decimal{}, err
	}

	return price, nil
}

func (c *Client) fetch(ctx context.Context, fromToken, toToken string) (decimal.Decimal, error) {
	var result priceResponse

	resp, err := c.http.NewRequest().
		SetQueryParam("base", fromToken).
		SetQueryParam("quote", toToken).
		SetResult(&result).
		Get(ctx, c.baseURL+"/v1/price")
	if err != nil {
		return decimal.Decimal{}, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s/%s", fromToken, toToken)))
	}

	if resp.IsError() {
		return decimal.Decimal{}, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithStatusCode(resp.StatusCode),
			apperror.WithContext(fmt.Sprintf("%s/%s: %s", fromToken, toToken, resp.String())))
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Decimal{}, apperror.New(apperror.CodeOracleUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("undecodable price: "+result.Price))
	}

	return price, nil
}
