package busrpc

import "encoding/json"

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcError is the error member of a JSON-RPC response.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// quoteParams is the request body for the quote method. Exactly one of
// ExactAmountIn and ExactAmountOut must be set.
type quoteParams struct {
	DefuseAssetIdentifierIn  string `json:"defuse_asset_identifier_in"`
	DefuseAssetIdentifierOut string `json:"defuse_asset_identifier_out"`
	QuoteID                  string `json:"quote_id"`
	MinDeadlineMs            int64  `json:"min_deadline_ms"`
	ExactAmountIn            string `json:"exact_amount_in,omitempty"`
	ExactAmountOut           string `json:"exact_amount_out,omitempty"`
}

// quoteResult is the result of the quote method.
type quoteResult struct {
	Quotes []quoteEntry `json:"quotes"`
}

// quoteEntry is one solver offer inside a quote result.
type quoteEntry struct {
	QuoteHash      string `json:"quote_hash"`
	AmountIn       string `json:"amount_in"`
	AmountOut      string `json:"amount_out"`
	ExpirationTime string `json:"expiration_time"`
}

// publishParams is the request body for publish_intent.
type publishParams struct {
	QuoteHashes []string       `json:"quote_hashes"`
	SignedData  signedDataWire `json:"signed_data"`
}

type signedDataWire struct {
	Standard  string `json:"standard"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
	Nonce     string `json:"nonce"`
}

// publishResult is the result of publish_intent.
type publishResult struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	IntentHash string `json:"intent_hash,omitempty"`
}

// statusParams is the request body for get_status.
type statusParams struct {
	IntentHash string `json:"intent_hash"`
}

// statusResult is the result of get_status.
type statusResult struct {
	IntentHash string `json:"intent_hash"`
	Status     string `json:"status"`
}
