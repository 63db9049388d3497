// internal/dex/curve_venue.go
package dex

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
)

// CurveVenue адаптирует клиента bonding curve к QuoteProvider/SwapBuilder.
type CurveVenue struct {
	client *dbc.Client
	logger *zap.Logger
}

func NewCurveVenue(client *dbc.Client, logger *zap.Logger) *CurveVenue {
	return &CurveVenue{client: client, logger: logger.Named("curve-venue")}
}

func (v *CurveVenue) Venue() types.Venue { return types.VenueCurve }

// Quote читает живое состояние пула и считает точную котировку.
func (v *CurveVenue) Quote(ctx context.Context, params types.SwapParams) (types.Quote, error) {
	state, err := v.client.LoadPoolState(ctx, params.Token)
	if err != nil {
		return types.NoRoute(types.VenueCurve), err
	}

	result, err := dbc.QuoteExactIn(state.Pool, state.Config, params.IsSell(), params.Amount, params.SlippageBps)
	if err != nil {
		return types.NoRoute(types.VenueCurve), fmt.Errorf("curve quote for %s: %w", params.Token, err)
	}

	v.logger.Debug("Curve quote",
		zap.String("pool", state.Address.String()),
		zap.String("direction", string(params.Direction)),
		zap.Uint64("amount_in", params.Amount),
		zap.Uint64("amount_out", result.OutputAmount),
		zap.Uint64("fee", result.TradingFee))

	return types.Quote{
		HasRoute:        true,
		EstimatedOutput: result.OutputAmount,
		MinimumOutput:   result.MinimumAmountOut,
		Venue:           types.VenueCurve,
		Raw:             &CurveQuote{State: state, Result: result},
	}, nil
}

// BuildSwap re-derives the pool address from (config, mint, quote mint) and
// refuses to trade against any other account.
func (v *CurveVenue) BuildSwap(ctx context.Context, params types.SwapParams, quote types.Quote) (*types.SwapPlan, error) {
	raw, ok := quote.Raw.(*CurveQuote)
	if !ok || raw.State == nil {
		return nil, fmt.Errorf("curve venue: quote carries no pool state")
	}
	state := raw.State

	addrs, err := dbc.DerivePoolAddresses(v.client.ProgramID(), state.Pool.Config, params.Token, state.Config.QuoteMint)
	if err != nil {
		return nil, err
	}
	if !addrs.Pool.Equals(state.Address) {
		return nil, fmt.Errorf("%w: derived %s, found %s", dbc.ErrPoolMismatch, addrs.Pool, state.Address)
	}

	instructions, err := dbc.SwapInstructions(v.client.ProgramID(), dbc.SwapParams{
		Payer:            params.User,
		Config:           state.Pool.Config,
		BaseMint:         params.Token,
		QuoteMint:        state.Config.QuoteMint,
		Addresses:        addrs,
		AmountIn:         params.Amount,
		MinimumAmountOut: quote.MinimumOutput,
		SwapBaseForQuote: params.IsSell(),
	})
	if err != nil {
		return nil, err
	}
	return &types.SwapPlan{Venue: types.VenueCurve, Instructions: instructions}, nil
}

// Accounts returns the writable accounts of a curve swap, used for fee estimation.
func (v *CurveVenue) Accounts(quote types.Quote) []solana.PublicKey {
	raw, ok := quote.Raw.(*CurveQuote)
	if !ok || raw.State == nil {
		return nil
	}
	return []solana.PublicKey{raw.State.Address, raw.State.Pool.BaseVault, raw.State.Pool.QuoteVault}
}
