// Package executor carries out triggered orders as solver-bus swaps:
// negotiate a fresh quote, sign the intent, publish it, and wait for
// settlement.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/intents-agent/business/orders/domain"
	sbapp "github.com/fd1az/intents-agent/business/solverbus/app"
	sbdomain "github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/apm"
	"github.com/fd1az/intents-agent/internal/logger"
)

// QuoteProvider negotiates the swap right before execution so the order is
// filled at a live price, never a stale one.
type QuoteProvider interface {
	BestQuote(ctx context.Context, p sbapp.QuoteParams) (*sbdomain.Quote, error)
}

// IntentPublisher submits the signed intent and tracks its settlement.
type IntentPublisher interface {
	Publish(ctx context.Context, quoteHashes []string, signed sbdomain.SignedData) (*sbdomain.PublishReceipt, error)
	WaitForSettlement(ctx context.Context, intentHash string) (*sbdomain.IntentRecord, error)
}

// intentPayload is the token-diff body that gets signed.
type intentPayload struct {
	Intent   string            `json:"intent"`
	Diff     map[string]string `json:"diff"`
	Deadline time.Time         `json:"deadline"`
}

// SwapExecutor implements the orders Executor port on top of the solver bus.
type SwapExecutor struct {
	quotes    QuoteProvider
	publisher IntentPublisher
	signer    sbapp.Signer
	log       logger.LoggerInterface
	tracer    apm.Tracer
}

// New builds a SwapExecutor.
func New(quotes QuoteProvider, publisher IntentPublisher, signer sbapp.Signer, log logger.LoggerInterface) *SwapExecutor {
	return &SwapExecutor{
		quotes:    quotes,
		publisher: publisher,
		signer:    signer,
		log:       log,
		tracer:    apm.NewTracer("orders.executor"),
	}
}

// Execute swaps the order's full amount. Any failure leaves the order to be
// marked Failed by the caller; the bus guarantees an intent either settles
// or expires, so no cleanup is needed here.
func (e *SwapExecutor) Execute(ctx context.Context, o *domain.LimitOrder) error {
	ctx, span := e.tracer.StartSpanFromContext(ctx, "execute_order")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", o.OrderID))

	best, err := e.quotes.BestQuote(ctx, sbapp.QuoteParams{
		AssetIn:       o.FromToken,
		AssetOut:      o.ToToken,
		ExactAmountIn: o.FromAmount.String(),
	})
	if err != nil {
		span.NoticeError(err)
		return err
	}

	e.log.Info(ctx, "quote accepted for order",
		"order_id", o.OrderID,
		"quote_hash", best.QuoteHash,
		"amount_out", best.AmountOut.String())

	payload, err := json.Marshal(intentPayload{
		Intent: "token_diff",
		Diff: map[string]string{
			o.FromToken: best.AmountIn.Neg().String(),
			o.ToToken:   best.AmountOut.String(),
		},
		Deadline: best.ExpirationTime,
	})
	if err != nil {
		return apperror.New(apperror.CodeIntentSignFailed, apperror.WithCause(err))
	}

	signed, err := e.signer.Sign(ctx, payload)
	if err != nil {
		span.NoticeError(err)
		return err
	}

	receipt, err := e.publisher.Publish(ctx, []string{best.QuoteHash}, signed)
	if err != nil {
		span.NoticeError(err)
		return err
	}

	if !receipt.Accepted() {
		err := apperror.New(apperror.CodePublishFailed,
			apperror.WithContext("bus rejected intent: "+receipt.Reason))
		span.NoticeError(err)
		return err
	}

	record, err := e.publisher.WaitForSettlement(ctx, receipt.IntentHash)
	if err != nil {
		span.NoticeError(err)
		return err
	}

	if record.Status != sbdomain.IntentStatusExecuted {
		err := apperror.New(apperror.CodeExecutorFailed,
			apperror.WithContext("intent settled as "+record.RawStatus))
		span.NoticeError(err)
		return err
	}

	e.log.Info(ctx, "order settled",
		"order_id", o.OrderID, "intent_hash", record.IntentHash)

	return nil
}
