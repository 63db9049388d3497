// =============================
// File: internal/dex/dex.go
// =============================
package dex

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/conviction-engine/internal/types"
)

// ErrNoRoute - ни одна площадка не может исполнить сделку.
var ErrNoRoute = errors.New("no route")

// QuoteProvider выдаёт свежую котировку площадки. Котировки не кешируются.
type QuoteProvider interface {
	Venue() types.Venue
	Quote(ctx context.Context, params types.SwapParams) (types.Quote, error)
}

// SwapBuilder превращает котировку своей площадки в план свопа.
type SwapBuilder interface {
	Venue() types.Venue
	BuildSwap(ctx context.Context, params types.SwapParams, quote types.Quote) (*types.SwapPlan, error)
}

// Venue is a place where a token can be traded.
type Venue interface {
	QuoteProvider
	SwapBuilder
}
