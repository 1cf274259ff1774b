package app

import (
	"context"
	"sync"
	"testing"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/logger"
)

type mockBus struct {
	mu sync.Mutex

	requestQuoteFn func(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteSet, error)
	publishFn      func(ctx context.Context, intent domain.SignedIntent) (*domain.PublishReceipt, error)
	statusFn       func(ctx context.Context, intentHash string) (*domain.IntentRecord, error)

	quoteCalls   int
	publishCalls int
	statusCalls  int

	lastQuoteReq domain.QuoteRequest
	lastIntent   domain.SignedIntent
}

func (m *mockBus) RequestQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteSet, error) {
	m.mu.Lock()
	m.quoteCalls++
	m.lastQuoteReq = req
	fn := m.requestQuoteFn
	m.mu.Unlock()

	if fn == nil {
		return &domain.QuoteSet{QuoteID: req.QuoteID, Mode: req.Mode()}, nil
	}
	return fn(ctx, req)
}

func (m *mockBus) PublishIntent(ctx context.Context, intent domain.SignedIntent) (*domain.PublishReceipt, error) {
	m.mu.Lock()
	m.publishCalls++
	m.lastIntent = intent
	fn := m.publishFn
	m.mu.Unlock()

	if fn == nil {
		return &domain.PublishReceipt{Status: "OK", IntentHash: "0xint"}, nil
	}
	return fn(ctx, intent)
}

func (m *mockBus) GetStatus(ctx context.Context, intentHash string) (*domain.IntentRecord, error) {
	m.mu.Lock()
	m.statusCalls++
	fn := m.statusFn
	m.mu.Unlock()

	if fn == nil {
		return &domain.IntentRecord{IntentHash: intentHash, Status: domain.IntentStatusPending}, nil
	}
	return fn(ctx, intentHash)
}

// mockStream implements EventStream with a plain map; tests emit events
// synchronously through emit.
type mockStream struct {
	mu        sync.Mutex
	intent    map[string]func(domain.StatusEvent)
	quote     map[string]func(domain.QuoteRequestEvent)
	offCalled []string
}

func newMockStream() *mockStream {
	return &mockStream{
		intent: make(map[string]func(domain.StatusEvent)),
		quote:  make(map[string]func(domain.QuoteRequestEvent)),
	}
}

func (m *mockStream) OnIntentStatus(intentHash string, fn func(domain.StatusEvent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intent[intentHash]; ok {
		return apperror.New(apperror.CodeListenerConflict)
	}
	m.intent[intentHash] = fn
	return nil
}

func (m *mockStream) OffIntentStatus(intentHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.intent, intentHash)
	m.offCalled = append(m.offCalled, intentHash)
}

func (m *mockStream) OnQuoteRequest(quoteID string, fn func(domain.QuoteRequestEvent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quote[quoteID]; ok {
		return apperror.New(apperror.CodeListenerConflict)
	}
	m.quote[quoteID] = fn
	return nil
}

func (m *mockStream) OffQuoteRequest(quoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.quote, quoteID)
}

func (m *mockStream) emit(e domain.StatusEvent) bool {
	m.mu.Lock()
	fn, ok := m.intent[e.IntentHash]
	m.mu.Unlock()
	if !ok {
		return false
	}
	fn(e)
	return true
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testLogger(t *testing.T) logger.LoggerInterface {
	return logger.New(testWriter{t}, logger.LevelDebug, "solverbus-test", nil)
}
