package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/httpclient"
	"github.com/fd1az/intents-agent/internal/logger"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func newTestOracle(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("oracle-test"),
	)
	require.NoError(t, err)

	cfg.BaseURL = srv.URL
	log := logger.New(testWriter{t}, logger.LevelDebug, "oracle-test", nil)

	return New(hc, cfg, log)
}

func TestClient_Price(t *testing.T) {
	c := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/price", r.URL.Path)
		assert.Equal(t, "wnear", r.URL.Query().Get("base"))
		assert.Equal(t, "usdc", r.URL.Query().Get("quote"))
		fmt.Fprint(w, `{"symbol":"wnear/usdc","price":"3.0125"}`)
	}, Config{})

	price, err := c.Price(context.Background(), "wnear", "usdc")
	require.NoError(t, err)
	assert.Equal(t, "3.0125", price.String())
}

func TestClient_Price_ServerError(t *testing.T) {
	c := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}, Config{})

	_, err := c.Price(context.Background(), "wnear", "usdc")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOracleUnavailable))
}

func TestClient_Price_UndecodablePrice(t *testing.T) {
	c := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"wnear/usdc","price":"not-a-number"}`)
	}, Config{})

	_, err := c.Price(context.Background(), "wnear", "usdc")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOracleUnavailable))
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var requests atomic.Int64
	c := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}, Config{
		BreakerMaxFail: 3,
		BreakerCooloff: time.Minute,
	})

	for i := 0; i < 3; i++ {
		_, err := c.Price(context.Background(), "wnear", "usdc")
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeOracleUnavailable))
	}

	// Breaker is open now: the request never reaches the server.
	before := requests.Load()
	_, err := c.Price(context.Background(), "wnear", "usdc")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeCircuitOpen))
	assert.Equal(t, before, requests.Load())
}
