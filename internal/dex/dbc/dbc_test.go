package dbc

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/blockchaintest"
	"github.com/rovshanmuradov/conviction-engine/internal/retry"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

var q64 = new(big.Int).Lsh(big.NewInt(1), 64)

func mulQ64(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), q64) }

// testCurve: one segment from sqrt price 1.0 to 4.0 (Q64.64) with L = 1e12 << 64.
func testCurve() (*VirtualPool, *PoolConfig) {
	liquidity := new(big.Int).Mul(big.NewInt(1_000_000_000_000), q64)
	cfg := &PoolConfig{
		QuoteMint:               solana.WrappedSol,
		MigrationQuoteThreshold: 85_000_000_000,
		MigrationSqrtPrice:      U128(mulQ64(4)),
		SqrtStartPrice:          U128(mulQ64(1)),
	}
	cfg.PoolFees.BaseFee.CliffFeeNumerator = 10_000_000 // 1%
	cfg.Curve[0] = LiquidityDistributionConfig{SqrtPrice: U128(mulQ64(4)), Liquidity: U128(liquidity)}
	for i := 1; i < len(cfg.Curve); i++ {
		cfg.Curve[i] = LiquidityDistributionConfig{SqrtPrice: U128(big.NewInt(0)), Liquidity: U128(big.NewInt(0))}
	}

	pool := &VirtualPool{
		Config:    solana.NewWallet().PublicKey(),
		BaseMint:  solana.NewWallet().PublicKey(),
		SqrtPrice: U128(mulQ64(1)),
	}
	return pool, cfg
}

func TestQuoteExactIn(t *testing.T) {
	t.Run("buy charges fee on input", func(t *testing.T) {
		pool, cfg := testCurve()
		res, err := QuoteExactIn(pool, cfg, false, 1_000_000, 500)
		require.NoError(t, err)
		assert.Equal(t, uint64(10_000), res.TradingFee)
		assert.Equal(t, uint64(989_999), res.OutputAmount)
		assert.Equal(t, uint64(940_499), res.MinimumAmountOut)
		assert.Equal(t, "18446762335986184588", res.NextSqrtPrice.String())
	})

	t.Run("buy in output fee mode", func(t *testing.T) {
		pool, cfg := testCurve()
		cfg.CollectFeeMode = CollectFeeModeOutputToken
		res, err := QuoteExactIn(pool, cfg, false, 1_000_000, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(10_000), res.TradingFee)
		assert.Equal(t, uint64(989_999), res.OutputAmount)
		assert.Equal(t, res.OutputAmount, res.MinimumAmountOut)
	})

	t.Run("sell charges fee on output", func(t *testing.T) {
		pool, cfg := testCurve()
		pool.SqrtPrice = U128(mulQ64(2))
		res, err := QuoteExactIn(pool, cfg, true, 1_000_000, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(40_000), res.TradingFee)
		assert.Equal(t, uint64(3_959_992), res.OutputAmount)
		assert.Equal(t, uint64(3_920_392), res.MinimumAmountOut)
		assert.Equal(t, "36893414360590382052", res.NextSqrtPrice.String())
	})

	t.Run("sell moves price down, buy moves it up", func(t *testing.T) {
		pool, cfg := testCurve()
		pool.SqrtPrice = U128(mulQ64(2))
		start := pool.SqrtPrice.BigInt()

		sell, err := QuoteExactIn(pool, cfg, true, 5_000, 0)
		require.NoError(t, err)
		assert.Equal(t, -1, sell.NextSqrtPrice.Cmp(start))

		buy, err := QuoteExactIn(pool, cfg, false, 5_000, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, buy.NextSqrtPrice.Cmp(start))
	})

	tests := []struct {
		name    string
		mutate  func(p *VirtualPool, c *PoolConfig)
		sell    bool
		amount  uint64
		wantErr error
	}{
		{"zero amount", func(*VirtualPool, *PoolConfig) {}, false, 0, ErrZeroAmount},
		{"buy beyond migration price", func(*VirtualPool, *PoolConfig) {}, false, 4_000_000_000_000, ErrInsufficientLiquidity},
		{"sell below start price", func(p *VirtualPool, _ *PoolConfig) { p.SqrtPrice = U128(mulQ64(2)) }, true, 1_000_000_000_000, ErrInsufficientLiquidity},
		{"threshold reached", func(p *VirtualPool, c *PoolConfig) { p.QuoteReserve = c.MigrationQuoteThreshold }, false, 1_000, ErrPoolCompleted},
		{"migrated", func(p *VirtualPool, _ *PoolConfig) { p.IsMigrated = 1 }, true, 1_000, ErrPoolCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, cfg := testCurve()
			tt.mutate(pool, cfg)
			_, err := QuoteExactIn(pool, cfg, tt.sell, tt.amount, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAccountRoundTrip(t *testing.T) {
	pool, cfg := testCurve()
	pool.QuoteReserve = 42

	data, err := EncodeVirtualPool(pool)
	require.NoError(t, err)
	assert.Equal(t, pool.BaseMint.Bytes(), data[BaseMintOffset:BaseMintOffset+32])

	decoded, err := DecodeVirtualPool(data)
	require.NoError(t, err)
	assert.Equal(t, pool.BaseMint, decoded.BaseMint)
	assert.Equal(t, uint64(42), decoded.QuoteReserve)
	assert.Equal(t, 0, decoded.SqrtPrice.BigInt().Cmp(q64))

	cfgData, err := EncodePoolConfig(cfg)
	require.NoError(t, err)
	decodedCfg, err := DecodePoolConfig(cfgData)
	require.NoError(t, err)
	assert.Equal(t, cfg.MigrationQuoteThreshold, decodedCfg.MigrationQuoteThreshold)
	assert.Equal(t, 0, decodedCfg.Curve[0].Liquidity.BigInt().Cmp(cfg.Curve[0].Liquidity.BigInt()))

	_, err = DecodeVirtualPool(cfgData)
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestDerivePoolAddresses(t *testing.T) {
	config := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	a, err := DerivePoolAddresses(DefaultProgramID, config, mint, solana.WrappedSol)
	require.NoError(t, err)
	b, err := DerivePoolAddresses(DefaultProgramID, config, mint, solana.WrappedSol)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := DerivePoolAddresses(DefaultProgramID, solana.NewWallet().PublicKey(), mint, solana.WrappedSol)
	require.NoError(t, err)
	assert.NotEqual(t, a.Pool, other.Pool)
	assert.Equal(t, a.PoolAuthority, other.PoolAuthority)
	assert.NotEqual(t, a.BaseVault, a.QuoteVault)
}

func newLookupClient(t *testing.T, m *blockchaintest.MockClient, log *zap.Logger) *Client {
	t.Helper()
	return NewClient(m, DefaultProgramID, retry.Policy{Attempts: 3, Delay: time.Millisecond}, log)
}

func TestLookupPool(t *testing.T) {
	t.Run("found on first attempt", func(t *testing.T) {
		pool, _ := testCurve()
		data, err := EncodeVirtualPool(pool)
		require.NoError(t, err)
		address := solana.NewWallet().PublicKey()

		m := new(blockchaintest.MockClient)
		m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.MatchedBy(func(o *rpc.GetProgramAccountsOpts) bool {
			return len(o.Filters) == 2 && o.Filters[1].Memcmp.Offset == BaseMintOffset
		})).Return(blockchaintest.ProgramAccounts(address, DefaultProgramID, data), nil).Once()

		got, decoded, err := newLookupClient(t, m, zaptest.NewLogger(t)).LookupPool(context.Background(), pool.BaseMint)
		require.NoError(t, err)
		assert.Equal(t, address, got)
		assert.Equal(t, pool.BaseMint, decoded.BaseMint)
		m.AssertNumberOfCalls(t, "GetProgramAccountsWithOpts", 1)
	})

	t.Run("exactly three attempts", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		m := new(blockchaintest.MockClient)
		m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.Anything).
			Return(rpc.GetProgramAccountsResult{}, nil)

		_, _, err := newLookupClient(t, m, zap.New(core)).LookupPool(context.Background(), solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, ErrPoolNotFound)
		m.AssertNumberOfCalls(t, "GetProgramAccountsWithOpts", 3)
		assert.Equal(t, 2, logs.FilterField(logger.Event(logger.EventPoolLookupRetry)).Len())
	})

	t.Run("rpc failure maps to not found", func(t *testing.T) {
		m := new(blockchaintest.MockClient)
		m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.Anything).
			Return(nil, errors.New("node down"))

		_, _, err := newLookupClient(t, m, zaptest.NewLogger(t)).LookupPool(context.Background(), solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, ErrPoolNotFound)
		m.AssertNumberOfCalls(t, "GetProgramAccountsWithOpts", 3)
	})

	t.Run("undecodable account is not retried", func(t *testing.T) {
		m := new(blockchaintest.MockClient)
		m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.Anything).
			Return(blockchaintest.ProgramAccounts(solana.NewWallet().PublicKey(), DefaultProgramID, []byte{1, 2, 3}), nil)

		_, _, err := newLookupClient(t, m, zaptest.NewLogger(t)).LookupPool(context.Background(), solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, ErrInvalidAccount)
		m.AssertNumberOfCalls(t, "GetProgramAccountsWithOpts", 1)
	})
}

func TestLoadPoolStateAndProgress(t *testing.T) {
	pool, cfg := testCurve()
	pool.QuoteReserve = 42_500_000_000
	poolData, err := EncodeVirtualPool(pool)
	require.NoError(t, err)
	cfgData, err := EncodePoolConfig(cfg)
	require.NoError(t, err)

	address := solana.NewWallet().PublicKey()
	m := new(blockchaintest.MockClient)
	m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.Anything).
		Return(blockchaintest.ProgramAccounts(address, DefaultProgramID, poolData), nil)
	m.On("GetAccountInfo", mock.Anything, pool.Config).
		Return(blockchaintest.AccountResult(DefaultProgramID, cfgData), nil)

	client := newLookupClient(t, m, zaptest.NewLogger(t))
	state, err := client.LoadPoolState(context.Background(), pool.BaseMint)
	require.NoError(t, err)
	assert.Equal(t, address, state.Address)
	assert.True(t, decimal.RequireFromString("0.5").Equal(CurveProgress(state.Pool, state.Config)))

	pool.QuoteReserve = 2 * cfg.MigrationQuoteThreshold
	assert.True(t, decimal.NewFromInt(1).Equal(CurveProgress(pool, cfg)))
}

func testMint(t *testing.T, supply uint64, decimals uint8) []byte {
	t.Helper()
	authority := solana.NewWallet().PublicKey()
	mint := token.Mint{
		MintAuthority:   &authority,
		Supply:          supply,
		Decimals:        decimals,
		IsInitialized:   true,
		FreezeAuthority: &authority,
	}
	var buf bytes.Buffer
	require.NoError(t, bin.NewBinEncoder(&buf).Encode(&mint))
	return buf.Bytes()
}

func TestStatus(t *testing.T) {
	pool, cfg := testCurve()
	pool.QuoteReserve = 42_500_000_000
	pool.SqrtPrice = U128(mulQ64(2)) // price 4
	poolData, err := EncodeVirtualPool(pool)
	require.NoError(t, err)
	cfgData, err := EncodePoolConfig(cfg)
	require.NoError(t, err)

	address := solana.NewWallet().PublicKey()
	m := new(blockchaintest.MockClient)
	m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.Anything).
		Return(blockchaintest.ProgramAccounts(address, DefaultProgramID, poolData), nil)
	m.On("GetAccountInfo", mock.Anything, pool.Config).
		Return(blockchaintest.AccountResult(DefaultProgramID, cfgData), nil)
	m.On("GetAccountInfo", mock.Anything, pool.BaseMint).
		Return(blockchaintest.AccountResult(solana.TokenProgramID, testMint(t, 1_000_000_000_000_000, 6)), nil)

	status, err := newLookupClient(t, m, zaptest.NewLogger(t)).Status(context.Background(), pool.BaseMint)
	require.NoError(t, err)
	assert.Equal(t, address, status.Address)
	assert.False(t, status.Completed)
	assert.True(t, decimal.RequireFromString("0.5").Equal(status.Progress), "progress %s", status.Progress)
	assert.True(t, decimal.NewFromInt(4).Equal(status.Price), "price %s", status.Price)
	assert.Equal(t, uint64(1_000_000_000_000_000), status.Supply)
	assert.Equal(t, uint8(6), status.Decimals)
}

func TestStatusMissingMint(t *testing.T) {
	pool, cfg := testCurve()
	poolData, err := EncodeVirtualPool(pool)
	require.NoError(t, err)
	cfgData, err := EncodePoolConfig(cfg)
	require.NoError(t, err)

	m := new(blockchaintest.MockClient)
	m.On("GetProgramAccountsWithOpts", mock.Anything, DefaultProgramID, mock.Anything).
		Return(blockchaintest.ProgramAccounts(solana.NewWallet().PublicKey(), DefaultProgramID, poolData), nil)
	m.On("GetAccountInfo", mock.Anything, pool.Config).
		Return(blockchaintest.AccountResult(DefaultProgramID, cfgData), nil)
	m.On("GetAccountInfo", mock.Anything, pool.BaseMint).Return(nil, rpc.ErrNotFound)

	_, err = newLookupClient(t, m, zaptest.NewLogger(t)).Status(context.Background(), pool.BaseMint)
	assert.ErrorIs(t, err, rpc.ErrNotFound)
}

func TestSwapInstructions(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	config := solana.NewWallet().PublicKey()
	addrs, err := DerivePoolAddresses(DefaultProgramID, config, mint, solana.WrappedSol)
	require.NoError(t, err)

	params := SwapParams{
		Payer:            payer,
		Config:           config,
		BaseMint:         mint,
		QuoteMint:        solana.WrappedSol,
		Addresses:        addrs,
		AmountIn:         1_000_000,
		MinimumAmountOut: 950_000,
	}

	t.Run("buy wraps and closes wsol", func(t *testing.T) {
		ixs, err := SwapInstructions(DefaultProgramID, params)
		require.NoError(t, err)
		// create wsol ata, transfer, sync, create base ata, swap, close
		require.Len(t, ixs, 6)
		swapIx := ixs[4]
		assert.Equal(t, DefaultProgramID, swapIx.ProgramID())
		assert.Equal(t, solana.TokenProgramID, ixs[5].ProgramID())

		data, err := swapIx.Data()
		require.NoError(t, err)
		disc := instructionDiscriminator(instructionSwap)
		assert.Equal(t, disc[:], data[:8])
		assert.Len(t, data, 24)
		assert.Len(t, swapIx.Accounts(), 15)
		assert.Equal(t, addrs.Pool, swapIx.Accounts()[2].PublicKey)
		assert.True(t, swapIx.Accounts()[9].IsSigner)
	})

	t.Run("sell skips wrapping", func(t *testing.T) {
		sell := params
		sell.SwapBaseForQuote = true
		ixs, err := SwapInstructions(DefaultProgramID, sell)
		require.NoError(t, err)
		require.Len(t, ixs, 3)
		baseATA, _, _ := solana.FindAssociatedTokenAddress(payer, mint)
		assert.Equal(t, baseATA, ixs[1].Accounts()[3].PublicKey)
	})

	t.Run("zero amount", func(t *testing.T) {
		zero := params
		zero.AmountIn = 0
		_, err := SwapInstructions(DefaultProgramID, zero)
		assert.ErrorIs(t, err, ErrZeroAmount)
	})
}

func TestCreatePoolInstruction(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	config := solana.NewWallet().PublicKey()

	ix, addrs, err := CreatePoolInstruction(DefaultProgramID, config, creator, mint, solana.WrappedSol,
		CreatePoolArgs{Name: "Conviction", Symbol: "CVN", URI: "https://example.org/cvn.json"})
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 16)
	assert.Equal(t, addrs.Pool, accounts[5].PublicKey)
	assert.True(t, accounts[3].IsSigner, "mint signs")
	assert.True(t, accounts[2].IsSigner, "creator signs")

	data, err := ix.Data()
	require.NoError(t, err)
	// 8 disc + (4+10) + (4+3) + (4+28)
	assert.Len(t, data, 8+14+7+32)
}
