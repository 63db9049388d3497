// =============================
// File: internal/dex/dbc/pda.go
// =============================
package dbc

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PoolAddresses - адреса пула bonding curve для пары (config, base, quote).
type PoolAddresses struct {
	Pool           solana.PublicKey
	BaseVault      solana.PublicKey
	QuoteVault     solana.PublicKey
	MintMetadata   solana.PublicKey
	PoolAuthority  solana.PublicKey
	EventAuthority solana.PublicKey
}

// DerivePoolAddresses derives the venue pool and its satellites.
// Pool seeds are "pool", config, max(mint), min(mint) by byte order.
func DerivePoolAddresses(programID, config, baseMint, quoteMint solana.PublicKey) (PoolAddresses, error) {
	first, second := quoteMint, baseMint
	if bytes.Compare(quoteMint.Bytes(), baseMint.Bytes()) <= 0 {
		first, second = baseMint, quoteMint
	}

	var out PoolAddresses
	var err error
	if out.Pool, _, err = solana.FindProgramAddress([][]byte{seedPool, config.Bytes(), first.Bytes(), second.Bytes()}, programID); err != nil {
		return PoolAddresses{}, fmt.Errorf("derive pool: %w", err)
	}
	if out.BaseVault, _, err = solana.FindProgramAddress([][]byte{seedTokenVault, baseMint.Bytes(), out.Pool.Bytes()}, programID); err != nil {
		return PoolAddresses{}, fmt.Errorf("derive base vault: %w", err)
	}
	if out.QuoteVault, _, err = solana.FindProgramAddress([][]byte{seedTokenVault, quoteMint.Bytes(), out.Pool.Bytes()}, programID); err != nil {
		return PoolAddresses{}, fmt.Errorf("derive quote vault: %w", err)
	}
	if out.MintMetadata, _, err = solana.FindProgramAddress([][]byte{seedMetadata, MetaplexProgramID.Bytes(), baseMint.Bytes()}, MetaplexProgramID); err != nil {
		return PoolAddresses{}, fmt.Errorf("derive metadata: %w", err)
	}
	if out.PoolAuthority, _, err = solana.FindProgramAddress([][]byte{seedPoolAuthority}, programID); err != nil {
		return PoolAddresses{}, fmt.Errorf("derive pool authority: %w", err)
	}
	if out.EventAuthority, _, err = solana.FindProgramAddress([][]byte{seedEventAuthority}, programID); err != nil {
		return PoolAddresses{}, fmt.Errorf("derive event authority: %w", err)
	}
	return out, nil
}
