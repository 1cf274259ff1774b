// Package app holds the solver-bus application services: quote negotiation
// and intent publishing.
package app

import (
	"context"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
)

// BusClient is the request/response side of the solver-bus protocol.
type BusClient interface {
	RequestQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteSet, error)
	PublishIntent(ctx context.Context, intent domain.SignedIntent) (*domain.PublishReceipt, error)
	GetStatus(ctx context.Context, intentHash string) (*domain.IntentRecord, error)
}

// EventStream is the push side of the protocol: per-key listeners over a
// subscribed connection.
type EventStream interface {
	OnIntentStatus(intentHash string, fn func(domain.StatusEvent)) error
	OffIntentStatus(intentHash string)
	OnQuoteRequest(quoteID string, fn func(domain.QuoteRequestEvent)) error
	OffQuoteRequest(quoteID string)
}

// Signer produces the signed payloads backing published intents.
type Signer interface {
	Sign(ctx context.Context, payload []byte) (domain.SignedData, error)
	PublicKey() string
}
