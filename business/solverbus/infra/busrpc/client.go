// Package busrpc implements the request/response half of the solver-bus
// protocol as JSON-RPC 2.0 over HTTP.
package busrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/intents-agent/business/solverbus/domain"
	"github.com/fd1az/intents-agent/internal/apperror"
	"github.com/fd1az/intents-agent/internal/httpclient"
	"github.com/fd1az/intents-agent/internal/logger"
)

const (
	methodQuote         = "quote"
	methodPublishIntent = "publish_intent"
	methodGetStatus     = "get_status"

	maxErrorBodySnippet = 512
)

// Client talks JSON-RPC to the solver bus. Safe for concurrent use;
// correlation ids are allocated atomically.
type Client struct {
	http   httpclient.Client
	url    string
	log    logger.LoggerInterface
	nextID atomic.Int64
}

// New builds a bus client on top of an instrumented HTTP client.
func New(http httpclient.Client, url string, log logger.LoggerInterface) *Client {
	return &Client{
		http: http,
		url:  url,
		log:  log,
	}
}

// RequestQuote runs one negotiation round. An empty result set means no
// solver answered and is returned as a valid, empty QuoteSet.
func (c *Client) RequestQuote(ctx context.Context, req domain.QuoteRequest) (*domain.QuoteSet, error) {
	params := quoteParams{
		DefuseAssetIdentifierIn:  req.AssetIn,
		DefuseAssetIdentifierOut: req.AssetOut,
		QuoteID:                  req.QuoteID,
		MinDeadlineMs:            req.MinDeadline.Milliseconds(),
		ExactAmountIn:            req.ExactAmountIn,
		ExactAmountOut:           req.ExactAmountOut,
	}

	var result quoteResult
	if err := c.call(ctx, methodQuote, params, &result); err != nil {
		return nil, err
	}

	set := &domain.QuoteSet{
		QuoteID: req.QuoteID,
		Mode:    req.Mode(),
		Quotes:  make([]domain.Quote, 0, len(result.Quotes)),
	}

	for _, e := range result.Quotes {
		q, err := c.toQuote(req, e)
		if err != nil {
			return nil, err
		}
		set.Quotes = append(set.Quotes, q)
	}

	return set, nil
}

// PublishIntent submits a signed intent. A business-level rejection comes
// back as a receipt with Accepted() false, not as an error.
func (c *Client) PublishIntent(ctx context.Context, intent domain.SignedIntent) (*domain.PublishReceipt, error) {
	params := publishParams{
		QuoteHashes: intent.QuoteHashes,
		SignedData: signedDataWire{
			Standard:  intent.SignedData.Standard,
			Payload:   intent.SignedData.Payload,
			Signature: intent.SignedData.Signature,
			PublicKey: intent.SignedData.PublicKey,
			Nonce:     intent.SignedData.Nonce,
		},
	}

	var result publishResult
	if err := c.call(ctx, methodPublishIntent, params, &result); err != nil {
		return nil, err
	}

	if result.Status == "" {
		return nil, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithContext("publish_intent result missing status"))
	}

	return &domain.PublishReceipt{
		Status:     result.Status,
		Reason:     result.Reason,
		IntentHash: result.IntentHash,
	}, nil
}

// GetStatus polls the settlement status of a published intent.
func (c *Client) GetStatus(ctx context.Context, intentHash string) (*domain.IntentRecord, error) {
	var result statusResult
	if err := c.call(ctx, methodGetStatus, statusParams{IntentHash: intentHash}, &result); err != nil {
		return nil, err
	}

	if result.Status == "" {
		return nil, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithContext("get_status result missing status"))
	}

	hash := result.IntentHash
	if hash == "" {
		hash = intentHash
	}

	return &domain.IntentRecord{
		IntentHash:  hash,
		Status:      domain.StatusFromRaw(result.Status),
		RawStatus:   result.Status,
		LastEventAt: time.Now(),
	}, nil
}

// call performs one JSON-RPC round trip and decodes the result member into
// out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	id := c.nextID.Add(1)

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	var envelope rpcResponse

	resp, err := c.http.NewRequest().
		SetBody(req).
		SetHeader("Content-Type", "application/json").
		Post(ctx, c.url)
	if err != nil {
		return apperror.New(apperror.CodeBusTransportError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("method %s", method)))
	}

	if resp.IsError() {
		return apperror.New(apperror.CodeBusTransportError,
			apperror.WithStatusCode(resp.StatusCode),
			apperror.WithContext(fmt.Sprintf("method %s: %s", method, snippet(resp.Body()))))
	}

	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return apperror.New(apperror.CodeMalformedResponse,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("method %s", method)))
	}

	if envelope.Error != nil {
		return apperror.New(apperror.CodeBusRPCError,
			apperror.WithMessage(envelope.Error.Message),
			apperror.WithContext(fmt.Sprintf("method %s: rpc code %d", method, envelope.Error.Code)))
	}

	if len(envelope.Result) == 0 {
		return apperror.New(apperror.CodeMalformedResponse,
			apperror.WithContext(fmt.Sprintf("method %s: missing result", method)))
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return apperror.New(apperror.CodeMalformedResponse,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("method %s: undecodable result", method)))
	}

	return nil
}

// toQuote converts a wire entry, filling the side the solver left implicit
// from the request.
func (c *Client) toQuote(req domain.QuoteRequest, e quoteEntry) (domain.Quote, error) {
	if e.QuoteHash == "" {
		return domain.Quote{}, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithContext("quote entry missing quote_hash"))
	}

	amountIn := e.AmountIn
	if amountIn == "" {
		amountIn = req.ExactAmountIn
	}
	amountOut := e.AmountOut
	if amountOut == "" {
		amountOut = req.ExactAmountOut
	}

	in, err := decimal.NewFromString(amountIn)
	if err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quote %s: bad amount_in", e.QuoteHash)))
	}

	out, err := decimal.NewFromString(amountOut)
	if err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quote %s: bad amount_out", e.QuoteHash)))
	}

	expires, err := time.Parse(time.RFC3339, e.ExpirationTime)
	if err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeMalformedResponse,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quote %s: bad expiration_time", e.QuoteHash)))
	}

	return domain.Quote{
		QuoteID:        req.QuoteID,
		AssetIn:        req.AssetIn,
		AssetOut:       req.AssetOut,
		AmountIn:       in,
		AmountOut:      out,
		QuoteHash:      e.QuoteHash,
		ExpirationTime: expires,
	}, nil
}

func snippet(body []byte) string {
	if len(body) > maxErrorBodySnippet {
		body = body[:maxErrorBodySnippet]
	}
	return string(body)
}
