package bussub

import "encoding/json"

// wsRequest is the JSON-RPC request frame sent over the socket.
type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// inbound covers every frame the bus pushes down the socket: replies to our
// own requests carry an id and no method, push notifications carry a method
// and params.
type inbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   *wsError        `json:"error"`
	Params  json.RawMessage `json:"params"`
}

// pushParams is the payload of a push notification. The bus reuses one
// frame shape for two event kinds: settlement progress (intent_hash set)
// and quote requests (quote_id set).
type pushParams struct {
	QuoteHash  string `json:"quote_hash,omitempty"`
	IntentHash string `json:"intent_hash,omitempty"`
	Status     string `json:"status,omitempty"`

	QuoteID                  string `json:"quote_id,omitempty"`
	DefuseAssetIdentifierIn  string `json:"defuse_asset_identifier_in,omitempty"`
	DefuseAssetIdentifierOut string `json:"defuse_asset_identifier_out,omitempty"`
	ExactAmountIn            string `json:"exact_amount_in,omitempty"`
	ExactAmountOut           string `json:"exact_amount_out,omitempty"`
}
