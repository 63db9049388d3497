// internal/types/types.go
package types

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

// ErrInvalidParams помечает ошибки валидации входных параметров.
// Такие ошибки возвращаются до любого сетевого вызова.
var ErrInvalidParams = errors.New("invalid parameters")

const (
	// MaxBasisPoints is the denominator of every bps value.
	MaxBasisPoints = 10_000

	// MaxBinID bounds |binID| for bin step 1: (1.0001)^443636 is just under 2^64.
	MaxBinID int32 = 443636

	// StatusGraduated is the external lifecycle flag of a token that left its curve.
	StatusGraduated = "graduated"
)

// Venue identifies where a quote or swap is served.
type Venue string

const (
	VenueCurve      Venue = "curve"
	VenueAggregator Venue = "aggregator"
)

// Direction of a swap relative to the launched token.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// LaunchParams - параметры запуска токена, которые передаёт UI.
type LaunchParams struct {
	Name            string           `json:"name"`
	Symbol          string           `json:"symbol"`
	URI             string           `json:"uri"`
	Creator         solana.PublicKey `json:"creator"`
	BuyAmount       uint64           `json:"buyAmount"`
	InsuranceAmount uint64           `json:"insuranceAmount"`
	// InsurancePrice is the trigger price in quote lamports per whole token.
	// Zero means it is derived from BinID.
	InsurancePrice uint64 `json:"insurancePrice"`
	BinID          int32  `json:"binId"`
	AntiSniper     bool   `json:"antiSniper"`
	SlippageBps    uint16 `json:"slippageBps"`
}

// HasFirstBuy reports whether the pool transaction carries an atomic first buy.
func (p LaunchParams) HasFirstBuy() bool { return p.BuyAmount > 0 }

// HasInsurance reports whether the insurance transaction must be built.
func (p LaunchParams) HasInsurance() bool { return p.InsuranceAmount > 0 }

// BinLimit returns the largest |binID| whose price (1 + binStep/10000)^binID
// stays inside the Q64.64 range [2^-64, 2^64]. Zero step has no usable bins.
func BinLimit(binStep uint16) int32 {
	if binStep == 0 {
		return 0
	}
	limit := math.Floor(64 * math.Ln2 / math.Log1p(float64(binStep)/MaxBasisPoints))
	return int32(min(limit, float64(MaxBinID)))
}

// ValidBin reports whether binID is usable with binStep.
func ValidBin(binID int32, binStep uint16) bool {
	limit := BinLimit(binStep)
	return limit > 0 && binID >= -limit && binID <= limit
}

// Validate checks the launch parameters against the curve bin step without
// touching the network.
func (p LaunchParams) Validate(binStep uint16) error {
	switch {
	case p.Name == "":
		return invalid("name is required")
	case p.Symbol == "":
		return invalid("symbol is required")
	case p.URI == "":
		return invalid("metadata uri is required")
	case p.Creator.IsZero():
		return invalid("creator is required")
	case binStep == 0:
		return invalid("bin step must be positive")
	case !ValidBin(p.BinID, binStep):
		limit := BinLimit(binStep)
		return invalid(fmt.Sprintf("bin id %d out of range [%d, %d] for bin step %d", p.BinID, -limit, limit, binStep))
	case p.SlippageBps > MaxBasisPoints:
		return invalid(fmt.Sprintf("slippage %d bps exceeds %d", p.SlippageBps, MaxBasisPoints))
	case p.HasInsurance() && !p.HasFirstBuy():
		// the insurance step anchors one base unit held by the creator
		return invalid("insurance requires a first buy")
	}
	return nil
}

// SwapParams is a venue-agnostic trade request.
type SwapParams struct {
	User        solana.PublicKey `json:"user"`
	Token       solana.PublicKey `json:"token"`
	Direction   Direction        `json:"direction"`
	Amount      uint64           `json:"amount"`
	SlippageBps uint16           `json:"slippageBps"`
	PriorityFee *uint64          `json:"priorityFee,omitempty"`

	// Lifecycle hints supplied by the caller.
	Status         string `json:"status,omitempty"`
	MigratedPoolID string `json:"migratedPoolId,omitempty"`
}

// IsSell reports whether base tokens are swapped for quote.
func (p SwapParams) IsSell() bool { return p.Direction == DirectionSell }

func (p SwapParams) Validate() error {
	switch {
	case p.User.IsZero():
		return invalid("user is required")
	case p.Token.IsZero():
		return invalid("token is required")
	case p.Direction != DirectionBuy && p.Direction != DirectionSell:
		return invalid(fmt.Sprintf("unknown direction %q", p.Direction))
	case p.Amount == 0:
		return invalid("amount must be positive")
	case p.SlippageBps > MaxBasisPoints:
		return invalid(fmt.Sprintf("slippage %d bps exceeds %d", p.SlippageBps, MaxBasisPoints))
	}
	if p.MigratedPoolID != "" {
		if _, err := solana.PublicKeyFromBase58(p.MigratedPoolID); err != nil {
			return invalid(fmt.Sprintf("migrated pool id: %v", err))
		}
	}
	return nil
}

// Quote is produced fresh for every request and never reused.
type Quote struct {
	HasRoute        bool   `json:"hasRoute"`
	EstimatedOutput uint64 `json:"estimatedOutput"`
	MinimumOutput   uint64 `json:"minimumOutput"`
	Venue           Venue  `json:"venue,omitempty"`
	Raw             any    `json:"raw,omitempty"`
}

// NoRoute is the quote returned when a venue has no path or failed.
func NoRoute(v Venue) Quote {
	return Quote{HasRoute: false, EstimatedOutput: 0, Venue: v}
}

// ComposedTransaction - упорядоченный список инструкций вместе с плательщиком
// и дополнительными подписантами (например, ключ нового минта).
type ComposedTransaction struct {
	Label        string
	Instructions []solana.Instruction
	Payer        solana.PublicKey
	Signers      []solana.PrivateKey
}

// SwapPlan is what a SwapBuilder hands to submission: either instructions
// to be wrapped into a fresh transaction or a ready transaction from the venue.
type SwapPlan struct {
	Venue                Venue
	Instructions         []solana.Instruction
	Transaction          *solana.Transaction
	LastValidBlockHeight uint64
}

// SubmissionResult is created once per successful launch.
type SubmissionResult struct {
	Signatures []solana.Signature `json:"signatures"`
	Mint       solana.PublicKey   `json:"mint"`
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, reason)
}
