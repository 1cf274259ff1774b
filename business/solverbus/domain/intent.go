package domain

import (
	"time"
)

// IntentStatus is the lifecycle status of a published intent as reported by
// the bus.
type IntentStatus string

const (
	IntentStatusPending  IntentStatus = "PENDING"
	IntentStatusExecuted IntentStatus = "EXECUTED"
	IntentStatusFailed   IntentStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s IntentStatus) Terminal() bool {
	return s == IntentStatusExecuted || s == IntentStatusFailed
}

// StatusFromRaw folds the bus's wire statuses into the three lifecycle
// states tracked here. Unknown statuses are treated as still pending.
func StatusFromRaw(raw string) IntentStatus {
	switch raw {
	case "SETTLED", "EXECUTED":
		return IntentStatusExecuted
	case "FAILED", "NOT_FOUND_OR_NOT_VALID":
		return IntentStatusFailed
	default:
		return IntentStatusPending
	}
}

// SignedData carries the cryptographic material backing an intent.
type SignedData struct {
	Standard  string `json:"standard"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
	Nonce     string `json:"nonce"`
}

// SignedIntent binds one or more accepted quotes to a signed payload ready
// for publication.
type SignedIntent struct {
	QuoteHashes []string   `json:"quote_hashes"`
	SignedData  SignedData `json:"signed_data"`
}

// PublishReceipt is the bus's answer to publish_intent. A business-level
// rejection still yields a receipt, never a transport error.
type PublishReceipt struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	IntentHash string `json:"intent_hash,omitempty"`
}

// Accepted reports whether the bus took the intent for settlement.
func (r PublishReceipt) Accepted() bool {
	return r.Status == "OK"
}

// IntentRecord is a point-in-time view of a published intent's settlement
// progress.
type IntentRecord struct {
	IntentHash  string
	Status      IntentStatus
	RawStatus   string
	LastEventAt time.Time
}

// StatusEvent is a push notification about an intent's settlement progress.
type StatusEvent struct {
	QuoteHash  string
	IntentHash string
	Status     IntentStatus
	RawStatus  string
	ReceivedAt time.Time
}

// QuoteRequestEvent is a push notification asking this participant to answer
// a quote request originated elsewhere on the bus.
type QuoteRequestEvent struct {
	QuoteID    string
	AssetIn    string
	AssetOut   string
	AmountIn   string
	AmountOut  string
	ReceivedAt time.Time
}
