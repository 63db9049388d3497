// internal/dex/aggregator_venue.go
package dex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/dex/jupiter"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
)

type aggregatorClient interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
	Swap(ctx context.Context, quote *jupiter.QuoteResponse, user solana.PublicKey, priorityFee *uint64) (*jupiter.SwapResponse, error)
}

// AggregatorVenue - площадка для токенов, покинувших кривую.
type AggregatorVenue struct {
	client    aggregatorClient
	quoteMint solana.PublicKey
	logger    *zap.Logger
}

func NewAggregatorVenue(client aggregatorClient, quoteMint solana.PublicKey, logger *zap.Logger) *AggregatorVenue {
	return &AggregatorVenue{client: client, quoteMint: quoteMint, logger: logger.Named("aggregator-venue")}
}

func (v *AggregatorVenue) Venue() types.Venue { return types.VenueAggregator }

// Quote returns a NoRoute quote without error when the aggregator has no path.
func (v *AggregatorVenue) Quote(ctx context.Context, params types.SwapParams) (types.Quote, error) {
	input, output := v.quoteMint, params.Token
	if params.IsSell() {
		input, output = params.Token, v.quoteMint
	}

	resp, err := v.client.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   input.String(),
		OutputMint:  output.String(),
		Amount:      strconv.FormatUint(params.Amount, 10),
		SlippageBps: params.SlippageBps,
		SwapMode:    "ExactIn",
	})
	if errors.Is(err, jupiter.ErrNoRoute) {
		return types.NoRoute(types.VenueAggregator), nil
	}
	if err != nil {
		return types.NoRoute(types.VenueAggregator), fmt.Errorf("aggregator quote: %w", err)
	}

	out, err := strconv.ParseUint(resp.OutAmount, 10, 64)
	if err != nil {
		return types.NoRoute(types.VenueAggregator), fmt.Errorf("aggregator outAmount %q: %w", resp.OutAmount, err)
	}
	minOut, err := strconv.ParseUint(resp.OtherAmountThreshold, 10, 64)
	if err != nil {
		minOut = types.MinAmountOut(out, params.SlippageBps)
	}

	return types.Quote{
		HasRoute:        true,
		EstimatedOutput: out,
		MinimumOutput:   minOut,
		Venue:           types.VenueAggregator,
		Raw:             &AggregatorQuote{Response: resp},
	}, nil
}

// BuildSwap asks the aggregator for a ready transaction built from quote.
func (v *AggregatorVenue) BuildSwap(ctx context.Context, params types.SwapParams, quote types.Quote) (*types.SwapPlan, error) {
	raw, ok := quote.Raw.(*AggregatorQuote)
	if !ok || raw.Response == nil {
		return nil, fmt.Errorf("aggregator venue: quote carries no aggregator response")
	}

	resp, err := v.client.Swap(ctx, raw.Response, params.User, params.PriorityFee)
	if err != nil {
		return nil, fmt.Errorf("aggregator swap: %w", err)
	}
	tx, err := jupiter.DecodeTransaction(resp.SwapTransaction)
	if err != nil {
		return nil, err
	}
	return &types.SwapPlan{
		Venue:                types.VenueAggregator,
		Transaction:          tx,
		LastValidBlockHeight: resp.LastValidBlockHeight,
	}, nil
}
