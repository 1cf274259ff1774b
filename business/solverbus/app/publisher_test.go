package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
)

func TestPublisher_RejectionIsAReceiptNotAnError(t *testing.T) {
	bus := &mockBus{
		publishFn: func(context.Context, domain.SignedIntent) (*domain.PublishReceipt, error) {
			return &domain.PublishReceipt{Status: "FAILED", Reason: "quote expired"}, nil
		},
	}

	p := NewPublisher(bus, newMockStream(), PublisherConfig{}, testLogger(t))

	receipt, err := p.Publish(context.Background(), []string{"h1"}, domain.SignedData{})
	require.NoError(t, err)
	assert.False(t, receipt.Accepted())
	assert.Equal(t, "quote expired", receipt.Reason)
}

func TestPublisher_TransportFailureIsAnError(t *testing.T) {
	bus := &mockBus{
		publishFn: func(context.Context, domain.SignedIntent) (*domain.PublishReceipt, error) {
			return nil, apperror.New(apperror.CodeBusTransportError)
		},
	}

	p := NewPublisher(bus, newMockStream(), PublisherConfig{}, testLogger(t))

	_, err := p.Publish(context.Background(), []string{"h1"}, domain.SignedData{})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBusTransportError))
}

func TestPublisher_AwaitStatusTerminalFiresOnce(t *testing.T) {
	stream := newMockStream()
	p := NewPublisher(&mockBus{}, stream, PublisherConfig{}, testLogger(t))

	var mu sync.Mutex
	var seen []domain.IntentStatus

	require.NoError(t, p.AwaitStatus("0xint", func(e domain.StatusEvent) {
		mu.Lock()
		seen = append(seen, e.Status)
		mu.Unlock()
	}))

	// A pending update, then the terminal event repeated by the bus.
	stream.emit(domain.StatusEvent{IntentHash: "0xint", Status: domain.IntentStatusPending})
	stream.emit(domain.StatusEvent{IntentHash: "0xint", Status: domain.IntentStatusExecuted})
	stream.emit(domain.StatusEvent{IntentHash: "0xint", Status: domain.IntentStatusExecuted})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.IntentStatus{domain.IntentStatusPending, domain.IntentStatusExecuted}, seen)
}

func TestPublisher_StopWaitingRemovesListener(t *testing.T) {
	stream := newMockStream()
	p := NewPublisher(&mockBus{}, stream, PublisherConfig{}, testLogger(t))

	require.NoError(t, p.AwaitStatus("0xint", func(domain.StatusEvent) {}))
	p.StopWaiting("0xint")

	assert.False(t, stream.emit(domain.StatusEvent{IntentHash: "0xint", Status: domain.IntentStatusExecuted}))
	assert.Contains(t, stream.offCalled, "0xint")
}

func TestPublisher_WaitForSettlement_ViaPushEvent(t *testing.T) {
	stream := newMockStream()
	p := NewPublisher(&mockBus{}, stream, PublisherConfig{
		PollInterval: time.Hour, // poll backstop must not be needed
		WaitTimeout:  5 * time.Second,
	}, testLogger(t))

	go func() {
		time.Sleep(50 * time.Millisecond)
		stream.emit(domain.StatusEvent{
			IntentHash: "0xint",
			Status:     domain.IntentStatusExecuted,
			RawStatus:  "SETTLED",
			ReceivedAt: time.Now(),
		})
	}()

	record, err := p.WaitForSettlement(context.Background(), "0xint")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusExecuted, record.Status)

	// The listener is gone after the wait.
	assert.Contains(t, stream.offCalled, "0xint")
}

func TestPublisher_WaitForSettlement_ViaPollBackstop(t *testing.T) {
	bus := &mockBus{
		statusFn: func(_ context.Context, intentHash string) (*domain.IntentRecord, error) {
			return &domain.IntentRecord{
				IntentHash: intentHash,
				Status:     domain.IntentStatusFailed,
				RawStatus:  "FAILED",
			}, nil
		},
	}

	p := NewPublisher(bus, newMockStream(), PublisherConfig{
		PollInterval: 20 * time.Millisecond,
		WaitTimeout:  5 * time.Second,
	}, testLogger(t))

	record, err := p.WaitForSettlement(context.Background(), "0xint")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusFailed, record.Status)
	assert.GreaterOrEqual(t, bus.statusCalls, 1)
}

func TestPublisher_WaitForSettlement_TimesOut(t *testing.T) {
	p := NewPublisher(&mockBus{}, newMockStream(), PublisherConfig{
		PollInterval: 20 * time.Millisecond,
		WaitTimeout:  100 * time.Millisecond,
	}, testLogger(t))

	_, err := p.WaitForSettlement(context.Background(), "0xint")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeExecutionStuck))
}

func TestPublisher_PollStatus(t *testing.T) {
	bus := &mockBus{
		statusFn: func(_ context.Context, intentHash string) (*domain.IntentRecord, error) {
			return &domain.IntentRecord{IntentHash: intentHash, Status: domain.IntentStatusPending, RawStatus: "TX_BROADCASTED"}, nil
		},
	}

	p := NewPublisher(bus, newMockStream(), PublisherConfig{}, testLogger(t))

	record, err := p.PollStatus(context.Background(), "0xint")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusPending, record.Status)
}
