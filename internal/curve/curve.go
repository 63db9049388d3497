// internal/curve/curve.go
package curve

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// Precision - число дробных знаков результата PriceOfBin.
	Precision int32 = 24

	// workPrecision keeps intermediate products of the power loop bounded.
	workPrecision = Precision + 16

	lamportsShift = 9
)

var (
	one  = decimal.NewFromInt(1)
	q128 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)
)

// PriceOfBin returns (1 + binStep/10000)^binID as a raw quote-per-base price.
// Negative bins are computed as 1 / x^|binID|.
func PriceOfBin(binID int32, binStep uint16) decimal.Decimal {
	base := one.Add(decimal.New(int64(binStep), -4)) // binStep / 10000
	if binID == 0 {
		return one
	}

	exp := int64(binID)
	if exp < 0 {
		return one.DivRound(powInt(base, -exp), Precision)
	}
	return powInt(base, exp).Round(Precision)
}

// powInt - возведение в степень двоичным методом с округлением на каждом шаге.
func powInt(base decimal.Decimal, n int64) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(workPrecision)
		}
		base = base.Mul(base).Round(workPrecision)
		n >>= 1
	}
	return result
}

// PricePerToken converts a raw price into quote tokens per whole base token.
func PricePerToken(price decimal.Decimal, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	return price.Shift(int32(baseDecimals) - int32(quoteDecimals))
}

// TriggerPrice is the insurance start price in quote lamports per whole
// token, floored. Values above uint64 saturate.
func TriggerPrice(binID int32, binStep uint16, baseDecimals, quoteDecimals uint8) uint64 {
	ppt := PricePerToken(PriceOfBin(binID, binStep), baseDecimals, quoteDecimals)
	lamports := ppt.Shift(lamportsShift).Floor()
	if lamports.GreaterThan(decimal.NewFromUint64(math.MaxUint64)) {
		return math.MaxUint64
	}
	return lamports.BigInt().Uint64()
}

// MarketCap = pricePerToken * supply / 10^baseDecimals.
func MarketCap(pricePerToken decimal.Decimal, supply uint64, baseDecimals uint8) decimal.Decimal {
	return pricePerToken.Mul(decimal.NewFromUint64(supply)).Shift(-int32(baseDecimals))
}

// PriceFromSqrtQ64 converts a Q64.64 square-root price into a raw price.
func PriceFromSqrtQ64(sqrtPrice *big.Int) decimal.Decimal {
	squared := new(big.Int).Mul(sqrtPrice, sqrtPrice)
	return decimal.NewFromBigInt(squared, 0).DivRound(q128, Precision)
}
