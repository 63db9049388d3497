package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/curve"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/launch"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
)

// Launcher runs a token launch.
type Launcher interface {
	Launch(ctx context.Context, params types.LaunchParams) (*types.SubmissionResult, error)
}

// Quoter never fails; a missing route is a quote with HasRoute=false.
type Quoter interface {
	FetchQuote(ctx context.Context, params types.SwapParams) types.Quote
}

type Swapper interface {
	Execute(ctx context.Context, params types.SwapParams) (solana.Signature, error)
}

// PoolReader reads the live state of a bonding curve pool.
type PoolReader interface {
	Status(ctx context.Context, baseMint solana.PublicKey) (*dbc.PoolStatus, error)
}

// CurveSettings - параметры кривой для /curve/price.
type CurveSettings struct {
	BinStep       uint16
	BaseDecimals  uint8
	QuoteDecimals uint8
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Launcher Launcher
	Quoter   Quoter
	Swapper  Swapper
	Pools    PoolReader
	Curve    CurveSettings
	DevMode  bool
	Logger   *zap.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// fail maps an engine error onto its status. 5xx messages are hidden
// outside dev mode.
func (h *Handlers) fail(c echo.Context, op string, err error) error {
	code := statusOf(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}

	var stepTwo *launch.StepTwoError
	if errors.As(err, &stepTwo) {
		resp.FirstSignature = stepTwo.FirstSignature.String()
		resp.Mint = stepTwo.Mint.String()
	}
	if code >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", zap.String("operation", op), zap.Error(err))
		if !h.DevMode && resp.FirstSignature == "" {
			resp.Error = http.StatusText(code)
		}
	}
	return c.JSON(code, resp)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Launch creates the pool and, if requested, the insurance.
func (h *Handlers) Launch(c echo.Context) error {
	var params types.LaunchParams
	if err := c.Bind(&params); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	result, err := h.Launcher.Launch(c.Request().Context(), params)
	if err != nil {
		return h.fail(c, "launch", err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) Quote(c echo.Context) error {
	var params types.SwapParams
	if err := c.Bind(&params); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	if err := params.Validate(); err != nil {
		return h.fail(c, "quote", err)
	}
	quote := h.Quoter.FetchQuote(c.Request().Context(), params)
	// Raw is venue-internal state
	quote.Raw = nil
	return c.JSON(http.StatusOK, quote)
}

func (h *Handlers) Swap(c echo.Context) error {
	var params types.SwapParams
	if err := c.Bind(&params); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}
	sig, err := h.Swapper.Execute(c.Request().Context(), params)
	if err != nil {
		return h.fail(c, "swap", err)
	}
	return c.JSON(http.StatusOK, SwapResponse{Signature: sig})
}

// CurvePrice returns the price of a bin. binStep defaults to the engine curve.
func (h *Handlers) CurvePrice(c echo.Context) error {
	binStr := strings.TrimSpace(c.QueryParam("binId"))
	if binStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid binId", map[string]any{"binId": "required"})
	}
	binID, err := strconv.ParseInt(binStr, 10, 32)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid binId", map[string]any{"binId": "must be int32"})
	}

	binStep := h.Curve.BinStep
	if v := strings.TrimSpace(c.QueryParam("binStep")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil || n == 0 || n > types.MaxBasisPoints {
			return h.err(c, http.StatusBadRequest, "invalid binStep", map[string]any{"binStep": "must be within [1, 10000]"})
		}
		binStep = uint16(n)
	}
	if !types.ValidBin(int32(binID), binStep) {
		limit := types.BinLimit(binStep)
		return h.err(c, http.StatusBadRequest, "invalid binId", map[string]any{"binId": fmt.Sprintf("must be within [%d, %d]", -limit, limit)})
	}

	price := curve.PriceOfBin(int32(binID), binStep)
	return c.JSON(http.StatusOK, CurvePriceResponse{
		BinID:         int32(binID),
		BinStep:       binStep,
		Price:         price.String(),
		PricePerToken: curve.PricePerToken(price, h.Curve.BaseDecimals, h.Curve.QuoteDecimals).String(),
		TriggerPrice:  curve.TriggerPrice(int32(binID), binStep, h.Curve.BaseDecimals, h.Curve.QuoteDecimals),
	})
}

// CurvePool returns progress, spot price and implied market cap of a token
// still trading on its curve.
func (h *Handlers) CurvePool(c echo.Context) error {
	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.QueryParam("mint")))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", err.Error())
	}
	status, err := h.Pools.Status(c.Request().Context(), mint)
	if err != nil {
		return h.fail(c, "curve-pool", err)
	}

	ppt := curve.PricePerToken(status.Price, status.Decimals, h.Curve.QuoteDecimals)
	return c.JSON(http.StatusOK, CurvePoolResponse{
		Pool:          status.Address.String(),
		Completed:     status.Completed,
		Progress:      status.Progress.String(),
		Price:         status.Price.String(),
		PricePerToken: ppt.String(),
		MarketCap:     curve.MarketCap(ppt, status.Supply, status.Decimals).String(),
	})
}
