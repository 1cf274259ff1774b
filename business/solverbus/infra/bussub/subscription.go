// Package bussub maintains the push half of the solver-bus protocol: a
// subscribed WebSocket connection fanning events out to per-key listeners.
package bussub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/logger"
	"github.com/fd1az/intents-agent/internal/wsconn"
)

// State is the subscription lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateClosed       State = "closed"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	subscribeTimeout = 10 * time.Second
)

// Config configures a Subscription.
type Config struct {
	URL            string
	Topics         []string
	Workers        int
	QueueSize      int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int
}

type eventKind int

const (
	kindStatus eventKind = iota
	kindQuoteRequest
)

type job struct {
	kind   eventKind
	key    string
	status domain.StatusEvent
	quote  domain.QuoteRequestEvent
}

// Subscription is a long-lived subscribed connection to the bus. Incoming
// events are classified by correlation key and dispatched to registered
// listeners on a bounded worker pool, so a slow listener never stalls the
// socket read loop.
type Subscription struct {
	cfg Config
	log logger.LoggerInterface

	ws *wsconn.Client

	stateMu sync.RWMutex
	state   State

	token   string
	tokenMu sync.RWMutex

	nextID    atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan inbound

	intentListeners *registry[domain.StatusEvent]
	quoteListeners  *registry[domain.QuoteRequestEvent]

	queue       chan job
	done        chan struct{}
	workersOnce sync.Once
	workerWG    sync.WaitGroup

	started atomic.Bool
	closed  atomic.Bool

	eventsReceived metric.Int64Counter
	eventsDropped  metric.Int64Counter
	reconnects     metric.Int64Counter
}

// New builds a Subscription. Call Start to connect.
func New(cfg Config, log logger.LoggerInterface) (*Subscription, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	wsCfg := wsconn.DefaultConfig(cfg.URL, "solver-bus")
	if cfg.InitialBackoff > 0 {
		wsCfg.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		wsCfg.MaxBackoff = cfg.MaxBackoff
	}
	wsCfg.MaxReconnects = cfg.MaxReconnects

	ws, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, apperror.New(apperror.CodeWebSocketConnectionError, apperror.WithCause(err))
	}

	meter := otel.GetMeterProvider().Meter("solverbus_subscription")
	received, _ := meter.Int64Counter("solverbus_events_received_total",
		metric.WithDescription("Push events received from the bus"))
	dropped, _ := meter.Int64Counter("solverbus_events_dropped_total",
		metric.WithDescription("Push events dropped before listener dispatch"))
	reconnects, _ := meter.Int64Counter("solverbus_reconnects_total",
		metric.WithDescription("Socket reconnect attempts observed"))

	s := &Subscription{
		cfg:             cfg,
		log:             log,
		ws:              ws,
		state:           StateDisconnected,
		pending:         make(map[int64]chan inbound),
		intentListeners: newRegistry[domain.StatusEvent](),
		quoteListeners:  newRegistry[domain.QuoteRequestEvent](),
		queue:           make(chan job, cfg.QueueSize),
		done:            make(chan struct{}),
		eventsReceived:  received,
		eventsDropped:   dropped,
		reconnects:      reconnects,
	}

	ws.OnMessage(s.handleMessage)
	ws.OnStateChange(s.handleConnState)

	return s, nil
}

// Start connects, subscribes, and begins dispatching events. A subscription
// torn down by Unsubscribe cannot be started again.
func (s *Subscription) Start(ctx context.Context) error {
	if s.closed.Load() {
		return apperror.New(apperror.CodeSubscriptionClosed)
	}

	s.setState(StateConnecting)

	if err := s.ws.ConnectWithRetry(ctx); err != nil {
		s.setState(StateDisconnected)
		return apperror.New(apperror.CodeWebSocketConnectionError, apperror.WithCause(err))
	}

	if err := s.subscribe(ctx); err != nil {
		s.setState(StateDisconnected)
		return err
	}

	s.workersOnce.Do(func() {
		for i := 0; i < s.cfg.Workers; i++ {
			s.workerWG.Add(1)
			go s.worker()
		}
	})

	s.started.Store(true)
	s.setState(StateSubscribed)

	s.log.Info(ctx, "solver bus subscription established", "topics", s.cfg.Topics)

	return nil
}

// Unsubscribe tears the subscription down permanently. The unsubscribe
// request is best effort; the socket is closed regardless.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.tokenMu.RLock()
	token := s.token
	s.tokenMu.RUnlock()

	if token != "" && s.ws.IsConnected() {
		req := wsRequest{
			JSONRPC: "2.0",
			ID:      s.nextID.Add(1),
			Method:  "unsubscribe",
			Params:  []string{token},
		}
		if err := s.ws.SendJSON(ctx, req); err != nil {
			s.log.Warn(ctx, "unsubscribe send failed", "error", err)
		}
	}

	err := s.ws.Close()

	close(s.done)
	s.workerWG.Wait()

	s.setState(StateClosed)

	return err
}

// State returns the subscription state.
func (s *Subscription) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// OnIntentStatus registers the single listener for settlement events of one
// intent hash.
func (s *Subscription) OnIntentStatus(intentHash string, fn func(domain.StatusEvent)) error {
	return s.intentListeners.Add(intentHash, fn)
}

// OffIntentStatus removes the listener for intentHash. Blocks until any
// in-flight invocation of that listener has returned.
func (s *Subscription) OffIntentStatus(intentHash string) {
	s.intentListeners.Remove(intentHash)
}

// OnQuoteRequest registers the single listener for quote-request events
// correlated by quoteID.
func (s *Subscription) OnQuoteRequest(quoteID string, fn func(domain.QuoteRequestEvent)) error {
	return s.quoteListeners.Add(quoteID, fn)
}

// OffQuoteRequest removes the listener for quoteID.
func (s *Subscription) OffQuoteRequest(quoteID string) {
	s.quoteListeners.Remove(quoteID)
}

// subscribe sends the subscribe request and waits for its reply on the
// message stream.
func (s *Subscription) subscribe(ctx context.Context) error {
	id := s.nextID.Add(1)
	reply := make(chan inbound, 1)

	s.pendingMu.Lock()
	s.pending[id] = reply
	s.pendingMu.Unlock()

	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "subscribe",
		Params:  s.cfg.Topics,
	}

	if err := s.ws.SendJSON(ctx, req); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError, apperror.WithCause(err))
	}

	timer := time.NewTimer(subscribeTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return apperror.New(apperror.CodeSubscribeFailed, apperror.WithCause(ctx.Err()))
	case <-timer.C:
		return apperror.New(apperror.CodeSubscribeFailed,
			apperror.WithContext("timed out waiting for subscribe reply"))
	case msg := <-reply:
		if msg.Error != nil {
			return apperror.New(apperror.CodeSubscribeFailed,
				apperror.WithContext(fmt.Sprintf("rpc code %d: %s", msg.Error.Code, msg.Error.Message)))
		}

		var token string
		if err := json.Unmarshal(msg.Result, &token); err != nil {
			return apperror.New(apperror.CodeSubscribeFailed,
				apperror.WithCause(err),
				apperror.WithContext("undecodable subscribe result"))
		}

		s.tokenMu.Lock()
		s.token = token
		s.tokenMu.Unlock()

		return nil
	}
}

// handleConnState reacts to transport-level transitions. After an automatic
// reconnect the bus has forgotten us, so the subscription is replayed.
func (s *Subscription) handleConnState(state wsconn.State, err error) {
	if s.closed.Load() {
		return
	}

	switch state {
	case wsconn.StateReconnecting:
		s.reconnects.Add(context.Background(), 1)
		s.setState(StateConnecting)
	case wsconn.StateDisconnected:
		if s.started.Load() {
			s.log.Error(context.Background(), "solver bus connection lost for good", "error", err)
			s.setState(StateDisconnected)
		}
	case wsconn.StateConnected:
		if !s.started.Load() {
			return // initial connect; Start drives the first subscribe
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
			defer cancel()

			if err := s.subscribe(ctx); err != nil {
				s.log.Error(ctx, "resubscribe after reconnect failed", "error", err)
				return
			}
			s.setState(StateSubscribed)
			s.log.Info(ctx, "resubscribed after reconnect", "topics", s.cfg.Topics)
		}()
	}
}

// handleMessage classifies every inbound frame. It never blocks: events go
// onto the bounded queue and are dropped with a counter when it is full.
func (s *Subscription) handleMessage(ctx context.Context, data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "undecodable")))
		s.log.Debug(ctx, "dropping undecodable frame", "error", err)
		return
	}

	// Reply to one of our own requests.
	if msg.Method == "" && msg.ID != nil {
		s.pendingMu.Lock()
		ch, ok := s.pending[*msg.ID]
		s.pendingMu.Unlock()
		if ok {
			select {
			case ch <- msg:
			default:
			}
		}
		return
	}

	if msg.Method != "subscribe" {
		s.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "unknown_method")))
		s.log.Debug(ctx, "dropping frame with unknown method", "method", msg.Method)
		return
	}

	var params pushParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "bad_params")))
		s.log.Debug(ctx, "dropping push with undecodable params", "error", err)
		return
	}

	s.eventsReceived.Add(ctx, 1)

	var j job
	switch {
	case params.IntentHash != "":
		j = job{
			kind: kindStatus,
			key:  params.IntentHash,
			status: domain.StatusEvent{
				QuoteHash:  params.QuoteHash,
				IntentHash: params.IntentHash,
				Status:     domain.StatusFromRaw(params.Status),
				RawStatus:  params.Status,
				ReceivedAt: time.Now(),
			},
		}
	case params.QuoteID != "":
		j = job{
			kind: kindQuoteRequest,
			key:  params.QuoteID,
			quote: domain.QuoteRequestEvent{
				QuoteID:    params.QuoteID,
				AssetIn:    params.DefuseAssetIdentifierIn,
				AssetOut:   params.DefuseAssetIdentifierOut,
				AmountIn:   params.ExactAmountIn,
				AmountOut:  params.ExactAmountOut,
				ReceivedAt: time.Now(),
			},
		}
	default:
		s.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "unclassifiable")))
		s.log.Debug(ctx, "dropping push with no correlation key")
		return
	}

	select {
	case s.queue <- j:
	default:
		s.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "queue_full")))
		s.log.Warn(ctx, "event queue full, dropping push", "key", j.key)
	}
}

// worker drains the dispatch queue. Events with no registered listener are
// dropped quietly; that is the normal case for intents this process did not
// publish.
func (s *Subscription) worker() {
	defer s.workerWG.Done()

	ctx := context.Background()

	for {
		select {
		case <-s.done:
			return
		case j := <-s.queue:
			var consumed bool
			switch j.kind {
			case kindStatus:
				consumed = s.intentListeners.Dispatch(j.key, j.status)
			case kindQuoteRequest:
				consumed = s.quoteListeners.Dispatch(j.key, j.quote)
			}

			if !consumed {
				s.eventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "no_listener")))
				s.log.Debug(ctx, "no listener for event", "key", j.key)
			}
		}
	}
}

func (s *Subscription) setState(state State) {
	s.stateMu.Lock()
	if s.state == StateClosed && state != StateClosed {
		s.stateMu.Unlock()
		return
	}
	s.state = state
	s.stateMu.Unlock()
}
