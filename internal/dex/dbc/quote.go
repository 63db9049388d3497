// =============================
// File: internal/dex/dbc/quote.go
// =============================
package dbc

import (
	"fmt"
	"math/big"

	"github.com/rovshanmuradov/conviction-engine/internal/types"
)

type rounding int

const (
	roundDown rounding = iota
	roundUp
)

var (
	bigZero        = big.NewInt(0)
	bigOne         = big.NewInt(1)
	bigFeeDenom    = big.NewInt(FeeDenominator)
	bigMaxFeeNumer = big.NewInt(MaxFeeNumerator)
	bigU128Max     = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 128), bigOne)
	bigU64Max      = new(big.Int).SetUint64(^uint64(0))
)

// QuoteResult - результат точной котировки по живому состоянию пула.
type QuoteResult struct {
	AmountIn         uint64
	OutputAmount     uint64
	MinimumAmountOut uint64
	TradingFee       uint64
	NextSqrtPrice    *big.Int
}

// QuoteExactIn walks the curve from the pool's current sqrt price.
// swapBaseForQuote = true is a sell.
func QuoteExactIn(pool *VirtualPool, cfg *PoolConfig, swapBaseForQuote bool, amountIn uint64, slippageBps uint16) (*QuoteResult, error) {
	if pool.Completed(cfg) {
		return nil, ErrPoolCompleted
	}
	if amountIn == 0 {
		return nil, ErrZeroAmount
	}

	feeNumerator := new(big.Int).SetUint64(cfg.PoolFees.BaseFee.CliffFeeNumerator)
	if feeNumerator.Cmp(bigMaxFeeNumer) > 0 {
		feeNumerator = bigMaxFeeNumer
	}
	// комиссия берётся со входа только при покупке за quote в режиме quote-fee
	feesOnInput := !swapBaseForQuote && cfg.CollectFeeMode != CollectFeeModeOutputToken

	amount := new(big.Int).SetUint64(amountIn)
	tradingFee := bigZero
	if feesOnInput {
		amount, tradingFee = excludeFee(amount, feeNumerator)
	}

	current := pool.SqrtPrice.BigInt()
	var (
		out, next, left *big.Int
		err             error
	)
	if swapBaseForQuote {
		out, next, left, err = baseToQuote(cfg, current, amount)
	} else {
		out, next, left, err = quoteToBase(cfg, current, amount, cfg.MigrationSqrtPrice.BigInt())
	}
	if err != nil {
		return nil, err
	}
	if left.Sign() != 0 {
		return nil, ErrInsufficientLiquidity
	}

	if !feesOnInput {
		out, tradingFee = excludeFee(out, feeNumerator)
	}
	if out.Cmp(bigU64Max) > 0 {
		return nil, fmt.Errorf("output %s overflows u64", out)
	}

	output := out.Uint64()
	return &QuoteResult{
		AmountIn:         amountIn,
		OutputAmount:     output,
		MinimumAmountOut: types.MinAmountOut(output, slippageBps),
		TradingFee:       tradingFee.Uint64(),
		NextSqrtPrice:    next,
	}, nil
}

// excludeFee returns (amount - fee, fee) with fee rounded up.
func excludeFee(amount, feeNumerator *big.Int) (*big.Int, *big.Int) {
	fee := mulDiv(amount, feeNumerator, bigFeeDenom, roundUp)
	return new(big.Int).Sub(amount, fee), fee
}

func baseToQuote(cfg *PoolConfig, current, amountIn *big.Int) (out, next, left *big.Int, err error) {
	out = big.NewInt(0)
	current = new(big.Int).Set(current)
	left = new(big.Int).Set(amountIn)
	curve := cfg.Curve

	for i := len(curve) - 2; i >= 0; i-- {
		lower := curve[i].SqrtPrice.BigInt()
		liquidity := curve[i+1].Liquidity.BigInt()
		if lower.Sign() == 0 || liquidity.Sign() == 0 || lower.Cmp(current) >= 0 {
			continue
		}
		maxIn, err := deltaBase(lower, current, liquidity, roundUp)
		if err != nil {
			return nil, nil, nil, err
		}
		if left.Cmp(maxIn) < 0 {
			nextPrice, err := nextSqrtPriceFromInput(current, liquidity, left, true)
			if err != nil {
				return nil, nil, nil, err
			}
			delta, err := deltaQuote(nextPrice, current, liquidity, roundDown)
			if err != nil {
				return nil, nil, nil, err
			}
			return out.Add(out, delta), nextPrice, big.NewInt(0), nil
		}
		delta, err := deltaQuote(lower, current, liquidity, roundDown)
		if err != nil {
			return nil, nil, nil, err
		}
		out.Add(out, delta)
		current = lower
		left.Sub(left, maxIn)
	}

	if left.Sign() != 0 {
		liquidity := curve[0].Liquidity.BigInt()
		floor := cfg.SqrtStartPrice.BigInt()
		nextPrice, err := nextSqrtPriceFromInput(current, liquidity, left, true)
		if err != nil {
			return nil, nil, nil, err
		}
		if nextPrice.Cmp(floor) < 0 {
			nextPrice = floor
			consumed, err := deltaBase(nextPrice, current, liquidity, roundUp)
			if err != nil {
				return nil, nil, nil, err
			}
			left.Sub(left, consumed)
		} else {
			left = big.NewInt(0)
		}
		delta, err := deltaQuote(nextPrice, current, liquidity, roundDown)
		if err != nil {
			return nil, nil, nil, err
		}
		out.Add(out, delta)
		current = nextPrice
	}
	return out, current, left, nil
}

func quoteToBase(cfg *PoolConfig, current, amountIn, stop *big.Int) (out, next, left *big.Int, err error) {
	out = big.NewInt(0)
	current = new(big.Int).Set(current)
	left = new(big.Int).Set(amountIn)

	for _, point := range cfg.Curve {
		upper := point.SqrtPrice.BigInt()
		liquidity := point.Liquidity.BigInt()
		if upper.Sign() == 0 || liquidity.Sign() == 0 {
			break
		}
		if stop.Sign() > 0 && stop.Cmp(upper) < 0 {
			upper = stop
		}
		if upper.Cmp(current) <= 0 {
			continue
		}
		maxIn, err := deltaQuote(current, upper, liquidity, roundUp)
		if err != nil {
			return nil, nil, nil, err
		}
		if left.Cmp(maxIn) < 0 {
			nextPrice, err := nextSqrtPriceFromInput(current, liquidity, left, false)
			if err != nil {
				return nil, nil, nil, err
			}
			delta, err := deltaBase(current, nextPrice, liquidity, roundDown)
			if err != nil {
				return nil, nil, nil, err
			}
			return out.Add(out, delta), nextPrice, big.NewInt(0), nil
		}
		delta, err := deltaBase(current, upper, liquidity, roundDown)
		if err != nil {
			return nil, nil, nil, err
		}
		out.Add(out, delta)
		current = upper
		left.Sub(left, maxIn)
		if upper.Cmp(stop) == 0 {
			break
		}
	}
	return out, current, left, nil
}

// deltaBase = L * (upper - lower) / (lower * upper)
func deltaBase(lower, upper, liquidity *big.Int, round rounding) (*big.Int, error) {
	if upper.Cmp(lower) < 0 {
		return nil, fmt.Errorf("sqrt price range inverted")
	}
	denominator := new(big.Int).Mul(lower, upper)
	if denominator.Sign() == 0 {
		return nil, fmt.Errorf("zero sqrt price")
	}
	return mulDiv(liquidity, new(big.Int).Sub(upper, lower), denominator, round), nil
}

// deltaQuote = L * (upper - lower) / 2^128
func deltaQuote(lower, upper, liquidity *big.Int, round rounding) (*big.Int, error) {
	if upper.Cmp(lower) < 0 {
		return nil, fmt.Errorf("sqrt price range inverted")
	}
	prod := new(big.Int).Mul(liquidity, new(big.Int).Sub(upper, lower))
	if round == roundUp {
		denominator := new(big.Int).Lsh(bigOne, Resolution*2)
		prod.Add(prod, new(big.Int).Sub(denominator, bigOne))
		return prod.Div(prod, denominator), nil
	}
	return prod.Rsh(prod, Resolution*2), nil
}

func nextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn *big.Int, baseForQuote bool) (*big.Int, error) {
	if sqrtPrice.Sign() == 0 || liquidity.Sign() == 0 {
		return nil, fmt.Errorf("sqrt price and liquidity must be positive")
	}
	if amountIn.Sign() == 0 {
		return new(big.Int).Set(sqrtPrice), nil
	}
	if baseForQuote {
		// price moves down: L * sqrtP / (L + amount * sqrtP), rounded up
		product := new(big.Int).Mul(amountIn, sqrtPrice)
		if product.Cmp(bigU128Max) > 0 {
			quotient := new(big.Int).Div(liquidity, sqrtPrice)
			return quotient.Div(liquidity, quotient.Add(quotient, amountIn)), nil
		}
		denominator := new(big.Int).Add(liquidity, product)
		return mulDiv(liquidity, sqrtPrice, denominator, roundUp), nil
	}
	// price moves up: sqrtP + (amount << 128) / L
	shifted := new(big.Int).Lsh(amountIn, Resolution*2)
	return shifted.Div(shifted, liquidity).Add(shifted, sqrtPrice), nil
}

func mulDiv(x, y, denominator *big.Int, round rounding) *big.Int {
	prod := new(big.Int).Mul(x, y)
	quotient, remainder := new(big.Int).QuoRem(prod, denominator, new(big.Int))
	if round == roundUp && remainder.Sign() != 0 {
		quotient.Add(quotient, bigOne)
	}
	return quotient
}
