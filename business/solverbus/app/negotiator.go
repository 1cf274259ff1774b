package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/apm"
	"github.com/fd1az/intents-agent/internal/logger"
	"github.com/fd1az/intents-agent/internal/ratelimit"
)

// NegotiatorConfig tunes one negotiation round.
type NegotiatorConfig struct {
	// MinDeadline is the minimum settlement window demanded from solvers.
	MinDeadline time.Duration
	// MinValidity is how long a quote must remain valid to be worth
	// selecting; shorter-lived quotes are filtered out.
	MinValidity time.Duration
}

// QuoteParams describes the swap to negotiate. Exactly one of ExactAmountIn
// and ExactAmountOut must be set.
type QuoteParams struct {
	AssetIn        string
	AssetOut       string
	ExactAmountIn  string
	ExactAmountOut string
	// QuoteID correlates the round; a fresh id is minted when empty.
	QuoteID string
}

// Negotiator runs quote rounds against the bus and picks the best offer.
type Negotiator struct {
	bus     BusClient
	limiter *ratelimit.Limiter
	cfg     NegotiatorConfig
	log     logger.LoggerInterface
	tracer  apm.Tracer
}

// NewNegotiator builds a Negotiator. limiter may be nil to disable rate
// limiting.
func NewNegotiator(bus BusClient, limiter *ratelimit.Limiter, cfg NegotiatorConfig, log logger.LoggerInterface) *Negotiator {
	return &Negotiator{
		bus:     bus,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
		tracer:  apm.NewTracer("solverbus.negotiator"),
	}
}

// Negotiate runs one quote round. The amount specification is validated
// before any network traffic; an empty quote set is a valid outcome.
func (n *Negotiator) Negotiate(ctx context.Context, p QuoteParams) (*domain.QuoteSet, error) {
	if err := validateAmounts(p); err != nil {
		return nil, err
	}

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
		}
	}

	quoteID := p.QuoteID
	if quoteID == "" {
		quoteID = uuid.NewString()
	}

	req := domain.QuoteRequest{
		AssetIn:        p.AssetIn,
		AssetOut:       p.AssetOut,
		QuoteID:        quoteID,
		MinDeadline:    n.cfg.MinDeadline,
		ExactAmountIn:  p.ExactAmountIn,
		ExactAmountOut: p.ExactAmountOut,
	}

	ctx, span := n.tracer.StartSpanFromContext(ctx, "negotiate")
	defer span.End()
	span.SetAttributes(
		attribute.String("quote_id", req.QuoteID),
		attribute.String("asset_in", p.AssetIn),
		attribute.String("asset_out", p.AssetOut),
	)

	set, err := n.bus.RequestQuote(ctx, req)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	if set.Empty() {
		n.log.Info(ctx, "no solver answered quote round", "quote_id", req.QuoteID)
	} else {
		n.log.Debug(ctx, "quote round completed",
			"quote_id", req.QuoteID, "offers", len(set.Quotes))
	}

	return set, nil
}

// BestQuote negotiates and returns the single most favorable viable offer.
// No viable offer at all is reported as a negotiation failure.
func (n *Negotiator) BestQuote(ctx context.Context, p QuoteParams) (*domain.Quote, error) {
	set, err := n.Negotiate(ctx, p)
	if err != nil {
		return nil, err
	}

	best := set.Best(time.Now(), n.cfg.MinValidity)
	if best == nil {
		return nil, apperror.New(apperror.CodeNegotiationFailed,
			apperror.WithContext("no viable quote for "+p.AssetIn+" -> "+p.AssetOut))
	}

	return best, nil
}

func validateAmounts(p QuoteParams) error {
	in := p.ExactAmountIn != ""
	out := p.ExactAmountOut != ""

	switch {
	case in && out:
		return apperror.New(apperror.CodeInvalidAmountSpec,
			apperror.WithContext("both exact_amount_in and exact_amount_out set"))
	case !in && !out:
		return apperror.New(apperror.CodeInvalidAmountSpec,
			apperror.WithContext("neither exact_amount_in nor exact_amount_out set"))
	}

	return nil
}
