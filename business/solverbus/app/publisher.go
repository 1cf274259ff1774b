package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/apm"
	"github.com/fd1az/intents-agent/internal/logger"
)

// PublisherConfig tunes settlement tracking.
type PublisherConfig struct {
	// PollInterval is the get_status cadence used as a backstop while
	// waiting for push events.
	PollInterval time.Duration
	// WaitTimeout bounds how long WaitForSettlement blocks.
	WaitTimeout time.Duration
}

// Publisher submits signed intents and tracks their settlement.
type Publisher struct {
	bus    BusClient
	stream EventStream
	cfg    PublisherConfig
	log    logger.LoggerInterface
	tracer apm.Tracer
}

// NewPublisher builds a Publisher.
func NewPublisher(bus BusClient, stream EventStream, cfg PublisherConfig, log logger.LoggerInterface) *Publisher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 2 * time.Minute
	}

	return &Publisher{
		bus:    bus,
		stream: stream,
		cfg:    cfg,
		log:    log,
		tracer: apm.NewTracer("solverbus.publisher"),
	}
}

// Publish submits a signed intent for the given quote hashes. A bus-side
// rejection is a valid business outcome: the receipt reports it and err is
// nil. An error means the submission outcome is unknown or the exchange
// itself failed.
func (p *Publisher) Publish(ctx context.Context, quoteHashes []string, signed domain.SignedData) (*domain.PublishReceipt, error) {
	ctx, span := p.tracer.StartSpanFromContext(ctx, "publish_intent")
	defer span.End()

	receipt, err := p.bus.PublishIntent(ctx, domain.SignedIntent{
		QuoteHashes: quoteHashes,
		SignedData:  signed,
	})
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	if receipt.Accepted() {
		span.SetAttributes(attribute.String("intent_hash", receipt.IntentHash))
		p.log.Info(ctx, "intent published", "intent_hash", receipt.IntentHash)
	} else {
		p.log.Warn(ctx, "intent rejected by bus", "reason", receipt.Reason)
	}

	return receipt, nil
}

// PollStatus fetches the current settlement status of an intent.
func (p *Publisher) PollStatus(ctx context.Context, intentHash string) (*domain.IntentRecord, error) {
	return p.bus.GetStatus(ctx, intentHash)
}

// AwaitStatus registers fn for status events of intentHash. Non-terminal
// events are forwarded as they arrive; the terminal transition is forwarded
// exactly once even if the bus repeats it. Pair with StopWaiting.
func (p *Publisher) AwaitStatus(intentHash string, fn func(domain.StatusEvent)) error {
	var terminalOnce sync.Once

	return p.stream.OnIntentStatus(intentHash, func(e domain.StatusEvent) {
		if e.Status.Terminal() {
			terminalOnce.Do(func() { fn(e) })
			return
		}
		fn(e)
	})
}

// StopWaiting removes the status listener for intentHash. After it returns
// the callback will not fire again.
func (p *Publisher) StopWaiting(intentHash string) {
	p.stream.OffIntentStatus(intentHash)
}

// WaitForSettlement blocks until the intent reaches a terminal status,
// combining push events with periodic polling as a backstop for missed
// frames. Times out with an error after WaitTimeout.
func (p *Publisher) WaitForSettlement(ctx context.Context, intentHash string) (*domain.IntentRecord, error) {
	events := make(chan domain.StatusEvent, 4)

	err := p.AwaitStatus(intentHash, func(e domain.StatusEvent) {
		select {
		case events <- e:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	defer p.StopWaiting(intentHash)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeExecutionStuck,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext("intent "+intentHash))

		case e := <-events:
			if e.Status.Terminal() {
				return &domain.IntentRecord{
					IntentHash:  e.IntentHash,
					Status:      e.Status,
					RawStatus:   e.RawStatus,
					LastEventAt: e.ReceivedAt,
				}, nil
			}

		case <-ticker.C:
			record, err := p.bus.GetStatus(ctx, intentHash)
			if err != nil {
				p.log.Debug(ctx, "status poll failed", "intent_hash", intentHash, "error", err)
				continue
			}
			if record.Status.Terminal() {
				return record, nil
			}
		}
	}
}
