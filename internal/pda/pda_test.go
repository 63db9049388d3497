package pda

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var program = solana.MustPublicKeyFromBase58("dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN")

func TestDeriveIsPure(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	first, err := Derive(program, mint, solana.WrappedSol)
	require.NoError(t, err)
	second, err := Derive(program, mint, solana.WrappedSol)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDeriveDistinctAddresses(t *testing.T) {
	addrs, err := Derive(program, solana.NewWallet().PublicKey(), solana.WrappedSol)
	require.NoError(t, err)

	seen := make(map[solana.PublicKey]bool)
	all := []solana.PublicKey{
		addrs.Config, addrs.Dish, addrs.InsuranceVault, addrs.TokenVault, addrs.WsolVault,
		addrs.CurvePool, addrs.Oracle, addrs.ReserveX, addrs.ReserveY, addrs.EventAuthority,
	}
	for _, addr := range all {
		assert.False(t, addr.IsZero())
		assert.False(t, seen[addr], "duplicate %s", addr)
		seen[addr] = true
	}
}

func TestDeriveMintScoped(t *testing.T) {
	a, err := Derive(program, solana.NewWallet().PublicKey(), solana.WrappedSol)
	require.NoError(t, err)
	b, err := Derive(program, solana.NewWallet().PublicKey(), solana.WrappedSol)
	require.NoError(t, err)

	// program-wide singletons
	assert.Equal(t, a.Config, b.Config)
	assert.Equal(t, a.EventAuthority, b.EventAuthority)

	for _, pair := range [][2]solana.PublicKey{
		{a.Dish, b.Dish},
		{a.InsuranceVault, b.InsuranceVault},
		{a.TokenVault, b.TokenVault},
		{a.WsolVault, b.WsolVault},
		{a.CurvePool, b.CurvePool},
		{a.Oracle, b.Oracle},
		{a.ReserveX, b.ReserveX},
		{a.ReserveY, b.ReserveY},
	} {
		assert.NotEqual(t, pair[0], pair[1])
	}
}

func TestDeriveMatchesSeeds(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	addrs, err := Derive(program, mint, solana.WrappedSol)
	require.NoError(t, err)

	curvePool, _, err := solana.FindProgramAddress([][]byte{[]byte("curve_pool"), mint.Bytes(), solana.WrappedSol.Bytes()}, program)
	require.NoError(t, err)
	oracle, _, err := solana.FindProgramAddress([][]byte{[]byte("oracle"), curvePool.Bytes()}, program)
	require.NoError(t, err)

	assert.Equal(t, curvePool, addrs.CurvePool)
	assert.Equal(t, oracle, addrs.Oracle)
}

func TestDeriveRejectsZeroMint(t *testing.T) {
	_, err := Derive(program, solana.PublicKey{}, solana.WrappedSol)
	assert.ErrorIs(t, err, ErrZeroMint)
}
