// internal/types/slippage.go
package types

import "math/big"

// MinAmountOut применяет допуск проскальзывания в базисных пунктах:
// amount * (10000 - bps) / 10000 с округлением вниз.
func MinAmountOut(amount uint64, slippageBps uint16) uint64 {
	if slippageBps >= MaxBasisPoints {
		return 0
	}
	// big.Int keeps amount*factor from overflowing uint64
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, big.NewInt(int64(MaxBasisPoints-int(slippageBps))))
	v.Quo(v, big.NewInt(MaxBasisPoints))
	return v.Uint64()
}
