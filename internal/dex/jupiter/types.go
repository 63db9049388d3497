package jupiter

import "encoding/json"

type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      string // raw integer as string (uint64)
	SlippageBps uint16
	SwapMode    string // ExactIn | ExactOut
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          uint16          `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot,omitempty"`

	// Raw is the response exactly as received; /swap expects it back verbatim.
	Raw json.RawMessage `json:"-"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

// SwapRequest - тело POST /swap.
type SwapRequest struct {
	QuoteResponse                 json.RawMessage `json:"quoteResponse"`
	UserPublicKey                 string          `json:"userPublicKey"`
	WrapAndUnwrapSol              bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit       bool            `json:"dynamicComputeUnitLimit"`
	ComputeUnitPriceMicroLamports *uint64         `json:"computeUnitPriceMicroLamports,omitempty"`
}

type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"` // base64
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}
