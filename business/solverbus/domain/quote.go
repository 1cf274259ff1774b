// Package domain contains the core domain types for the solver-bus context.
package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Mode indicates which side of the swap amount was fixed by the caller.
type Mode string

const (
	// ModeExactIn fixes amount_in; solvers compete on amount_out.
	ModeExactIn Mode = "exact_in"
	// ModeExactOut fixes amount_out; solvers compete on amount_in.
	ModeExactOut Mode = "exact_out"
)

// QuoteRequest describes one negotiation round to run against the bus.
// Exactly one of ExactAmountIn and ExactAmountOut must be set; amounts are
// base-unit integer strings.
type QuoteRequest struct {
	AssetIn        string
	AssetOut       string
	QuoteID        string
	MinDeadline    time.Duration
	ExactAmountIn  string
	ExactAmountOut string
}

// Mode derives the negotiation mode from which amount is fixed.
func (r QuoteRequest) Mode() Mode {
	if r.ExactAmountOut != "" {
		return ModeExactOut
	}
	return ModeExactIn
}

// Quote is a single solver's offer. Immutable once issued.
type Quote struct {
	QuoteID        string
	AssetIn        string
	AssetOut       string
	AmountIn       decimal.Decimal
	AmountOut      decimal.Decimal
	QuoteHash      string
	ExpirationTime time.Time
}

// ValidFor reports whether the quote is still usable for at least minValidity
// from now.
func (q Quote) ValidFor(now time.Time, minValidity time.Duration) bool {
	return q.ExpirationTime.After(now.Add(minValidity))
}

// QuoteSet is one negotiation round's worth of solver offers.
// An empty set is a legitimate outcome, not an error.
type QuoteSet struct {
	QuoteID string
	Mode    Mode
	Quotes  []Quote
}

// Empty reports whether no solver answered.
func (s QuoteSet) Empty() bool {
	return len(s.Quotes) == 0
}

// Best selects the most favorable quote among those valid for minValidity:
// the one maximizing amount_out in exact-in mode, or minimizing amount_in in
// exact-out mode. Ties are broken by earliest expiration. Selection is
// deterministic for a fixed input set. Returns nil when nothing qualifies.
func (s QuoteSet) Best(now time.Time, minValidity time.Duration) *Quote {
	candidates := make([]Quote, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		if q.ValidFor(now, minValidity) {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		var cmp int
		if s.Mode == ModeExactOut {
			cmp = a.AmountIn.Cmp(b.AmountIn) // lower input wins
		} else {
			cmp = b.AmountOut.Cmp(a.AmountOut) // higher output wins
		}
		if cmp != 0 {
			return cmp < 0
		}
		return a.ExpirationTime.Before(b.ExpirationTime)
	})

	best := candidates[0]
	return &best
}
