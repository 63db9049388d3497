package conviction

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var program = solana.NewWallet().PublicKey()

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(program, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.WrappedSol)
	require.NoError(t, err)
	return b
}

func TestDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("global:init_insurance"))
	disc := Discriminator(NameInitInsurance)
	assert.Equal(t, sum[:8], disc[:])
	assert.NotEqual(t, Discriminator(NameCreateConfig), Discriminator(NameInitCurvePool))
}

func TestInitInsuranceData(t *testing.T) {
	b := newBuilder(t)
	pool := solana.NewWallet().PublicKey()

	ix, err := b.InitInsurance(InitInsuranceArgs{Amount: 10_000_000_000, StartPrice: 990_099, PoolID: pool}, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, program, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+32)
	disc := Discriminator(NameInitInsurance)
	assert.Equal(t, disc[:], data[:8])
	assert.Equal(t, uint64(10_000_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(990_099), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, pool.Bytes(), data[24:56])

	accounts := ix.Accounts()
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, b.Addresses.Dish, accounts[2].PublicKey)
	assert.Equal(t, pool, accounts[9].PublicKey)
}

func TestInitCurvePoolRoundTrip(t *testing.T) {
	b := newBuilder(t)
	args := InitCurvePoolArgs{BinID: -220, BinStep: 100, BaseFactor: 10_000, ActivationType: 1, HasAlphaVault: false}

	ix, err := b.InitCurvePool(args)
	require.NoError(t, err)
	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+4+2+2+1+1)

	var decoded InitCurvePoolArgs
	require.NoError(t, bin.NewBorshDecoder(data[8:]).Decode(&decoded))
	assert.Equal(t, args, decoded)
	assert.Equal(t, b.Addresses.CurvePool, ix.Accounts()[3].PublicKey)
}

func TestCreateConfig(t *testing.T) {
	b := newBuilder(t)
	ix, err := b.CreateConfig()
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Len(t, data, 8)
	assert.Equal(t, b.Addresses.Config, ix.Accounts()[1].PublicKey)
	assert.True(t, ix.Accounts()[1].IsWritable)
}
