// =============================
// File: internal/pda/pda.go
// =============================
package pda

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrZeroMint возвращается, когда адрес минта не задан.
var ErrZeroMint = errors.New("mint address is zero")

// Seeds of the insurance program.
var (
	SeedConfig         = []byte("config")
	SeedDish           = []byte("dish")
	SeedInsuranceVault = []byte("insurance_vault")
	SeedTokenVault     = []byte("token_vault")
	SeedWsolVault      = []byte("wsol_vault")
	SeedCurvePool      = []byte("curve_pool")
	SeedOracle         = []byte("oracle")
	SeedEventAuthority = []byte("__event_authority")
)

// DerivedAddresses - все адреса программы страховки для одного минта.
type DerivedAddresses struct {
	Config         solana.PublicKey
	Dish           solana.PublicKey
	InsuranceVault solana.PublicKey
	TokenVault     solana.PublicKey
	WsolVault      solana.PublicKey
	CurvePool      solana.PublicKey
	Oracle         solana.PublicKey
	ReserveX       solana.PublicKey
	ReserveY       solana.PublicKey
	EventAuthority solana.PublicKey
}

// Derive is a pure function of its inputs. Every address except Config and
// EventAuthority has the mint in its seed chain, directly or through CurvePool.
func Derive(programID, mint, quoteMint solana.PublicKey) (DerivedAddresses, error) {
	if mint.IsZero() {
		return DerivedAddresses{}, ErrZeroMint
	}
	if programID.IsZero() || quoteMint.IsZero() {
		return DerivedAddresses{}, errors.New("program id and quote mint are required")
	}

	var (
		out DerivedAddresses
		err error
	)
	derive := func(dst *solana.PublicKey, name string, seeds ...[]byte) {
		if err != nil {
			return
		}
		var addr solana.PublicKey
		addr, _, err = solana.FindProgramAddress(seeds, programID)
		if err != nil {
			err = fmt.Errorf("derive %s: %w", name, err)
			return
		}
		*dst = addr
	}

	derive(&out.Config, "config", SeedConfig)
	derive(&out.Dish, "dish", SeedDish, mint.Bytes())
	derive(&out.InsuranceVault, "insurance vault", SeedInsuranceVault, mint.Bytes())
	derive(&out.TokenVault, "token vault", SeedTokenVault, mint.Bytes())
	derive(&out.WsolVault, "wsol vault", SeedWsolVault, mint.Bytes())
	derive(&out.CurvePool, "curve pool", SeedCurvePool, mint.Bytes(), quoteMint.Bytes())
	derive(&out.Oracle, "oracle", SeedOracle, out.CurvePool.Bytes())
	derive(&out.ReserveX, "reserve x", out.CurvePool.Bytes(), mint.Bytes())
	derive(&out.ReserveY, "reserve y", out.CurvePool.Bytes(), quoteMint.Bytes())
	derive(&out.EventAuthority, "event authority", SeedEventAuthority)
	if err != nil {
		return DerivedAddresses{}, err
	}
	return out, nil
}
