package server

import "github.com/gagliardetto/solana-go"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"` // dev mode only
	// FirstSignature is set when a launch created its pool but not its insurance.
	FirstSignature string `json:"firstSignature,omitempty"`
	Mint           string `json:"mint,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type SwapResponse struct {
	Signature solana.Signature `json:"signature"`
}

// CurvePriceResponse - цена бина для слайдера в UI.
type CurvePriceResponse struct {
	BinID         int32  `json:"binId"`
	BinStep       uint16 `json:"binStep"`
	Price         string `json:"price"`
	PricePerToken string `json:"pricePerToken"`
	TriggerPrice  uint64 `json:"triggerPrice"`
}

// CurvePoolResponse - состояние пула на кривой. Цены и капитализация в quote
// токенах, строками.
type CurvePoolResponse struct {
	Pool          string `json:"pool"`
	Completed     bool   `json:"completed"`
	Progress      string `json:"progress"`
	Price         string `json:"price"`
	PricePerToken string `json:"pricePerToken"`
	MarketCap     string `json:"marketCap"`
}
