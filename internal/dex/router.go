// =============================================
// File: internal/dex/router.go
// =============================================
package dex

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/types"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

// Classify определяет площадку токена по внешним признакам жизненного цикла.
func Classify(params types.SwapParams) types.Venue {
	if params.Status == types.StatusGraduated || params.MigratedPoolID != "" {
		return types.VenueAggregator
	}
	return types.VenueCurve
}

// Router выбирает площадку и запрашивает у неё котировку. Состояния не хранит.
type Router struct {
	curve      Venue
	aggregator Venue
	logger     *zap.Logger
}

func NewRouter(curve, aggregator Venue, logger *zap.Logger) *Router {
	return &Router{curve: curve, aggregator: aggregator, logger: logger.Named("router")}
}

// FetchQuote never fails: any error becomes a NoRoute quote and a logged event.
func (r *Router) FetchQuote(ctx context.Context, params types.SwapParams) types.Quote {
	_, quote, _ := r.Select(ctx, params)
	return quote
}

// Select returns the venue whose quote should be used for execution. When the
// venue cannot quote, the quote is NoRoute and err carries the cause
// (dbc.ErrPoolNotFound for a pool that is not indexed yet).
func (r *Router) Select(ctx context.Context, params types.SwapParams) (types.Venue, types.Quote, error) {
	venue, quote, err := r.selectQuote(ctx, params)
	if err != nil {
		r.logger.Warn("Котировка недоступна",
			logger.Event(logger.EventQuoteFailed),
			zap.String("token", params.Token.String()),
			zap.String("venue", string(venue)),
			zap.Error(err))
		return venue, types.NoRoute(venue), err
	}
	return venue, quote, nil
}

// Builder returns the swap builder of venue.
func (r *Router) Builder(venue types.Venue) (SwapBuilder, error) {
	switch venue {
	case types.VenueCurve:
		return r.curve, nil
	case types.VenueAggregator:
		return r.aggregator, nil
	}
	return nil, fmt.Errorf("unknown venue %q", venue)
}

func (r *Router) selectQuote(ctx context.Context, params types.SwapParams) (types.Venue, types.Quote, error) {
	if err := params.Validate(); err != nil {
		return Classify(params), types.Quote{}, err
	}

	if Classify(params) == types.VenueCurve {
		quote, err := r.curve.Quote(ctx, params)
		return types.VenueCurve, quote, err
	}

	quote, err := r.aggregator.Quote(ctx, params)
	if err != nil && !errors.Is(err, ErrNoRoute) {
		// только отсутствие маршрута переключает на кривую
		return types.VenueAggregator, quote, err
	}
	if err == nil && quote.HasRoute {
		return types.VenueAggregator, quote, nil
	}

	// токен мог выпуститься раньше, чем агрегатор проиндексировал новый пул
	r.logger.Info("Агрегатор без маршрута, котировка с кривой",
		logger.Event(logger.EventAggregatorFallback),
		zap.String("token", params.Token.String()),
		zap.String("status", params.Status))
	quote, err = r.curve.Quote(ctx, params)
	return types.VenueCurve, quote, err
}
