// ==========================================
// File: internal/dex/types.go
// ==========================================
package dex

import (
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/jupiter"
)

// CurveQuote is the Raw payload of a bonding-curve quote: the pool state the
// quote was computed from, reused by BuildSwap within the same request.
type CurveQuote struct {
	State  *dbc.PoolState
	Result *dbc.QuoteResult
}

// AggregatorQuote is the Raw payload of an aggregator quote.
type AggregatorQuote struct {
	Response *jupiter.QuoteResponse
}
