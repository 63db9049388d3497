// =============================
// File: internal/dex/dbc/constants.go
// =============================
package dbc

import (
	"crypto/sha256"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	// DefaultProgramID - программа bonding curve (Meteora DBC) в mainnet.
	DefaultProgramID  = solana.MustPublicKeyFromBase58("dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN")
	MetaplexProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// PDA seeds.
var (
	seedPool           = []byte("pool")
	seedTokenVault     = []byte("token_vault")
	seedPoolAuthority  = []byte("pool_authority")
	seedEventAuthority = []byte("__event_authority")
	seedMetadata       = []byte("metadata")
)

const (
	accountVirtualPool = "VirtualPool"
	accountPoolConfig  = "PoolConfig"

	instructionSwap       = "swap"
	instructionCreatePool = "initialize_virtual_pool_with_spl_token"

	// BaseMintOffset is the position of base_mint inside a VirtualPool account.
	BaseMintOffset = 136
)

// Fee and price math constants.
const (
	FeeDenominator  = 1_000_000_000
	MaxFeeNumerator = 990_000_000
	Resolution      = 64

	// collect_fee_mode = 1: fees are always taken in the output token
	CollectFeeModeOutputToken = 1
)

var (
	// ErrPoolNotFound - пул не найден (в том числе после всех повторов).
	ErrPoolNotFound = errors.New("bonding curve pool not found")
	// ErrPoolCompleted - кривая завершена или пул мигрировал; котировки нет.
	ErrPoolCompleted         = errors.New("bonding curve is completed")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity on curve")
	ErrZeroAmount            = errors.New("amount is zero")
	ErrInvalidAccount        = errors.New("invalid account data")
	ErrPoolMismatch          = errors.New("pool address does not match derived address")
)

func accountDiscriminator(name string) [8]byte {
	return prefix("account:" + name)
}

func instructionDiscriminator(name string) [8]byte {
	return prefix("global:" + name)
}

func prefix(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
