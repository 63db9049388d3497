// =============================
// File: internal/dex/dbc/client.go
// =============================
package dbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
	"github.com/rovshanmuradov/conviction-engine/internal/curve"
	"github.com/rovshanmuradov/conviction-engine/internal/retry"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

const rpcTimeout = 5 * time.Second

// PoolState - живое состояние пула вместе с его конфигом.
type PoolState struct {
	Address solana.PublicKey
	Pool    *VirtualPool
	Config  *PoolConfig
}

// Client читает аккаунты bonding curve. Ничего не кеширует.
type Client struct {
	client    blockchain.Client
	programID solana.PublicKey
	lookup    retry.Policy
	logger    *zap.Logger
}

// NewClient создаёт клиента программы bonding curve.
func NewClient(client blockchain.Client, programID solana.PublicKey, lookup retry.Policy, log *zap.Logger) *Client {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	if lookup.Event == "" {
		lookup.Event = logger.EventPoolLookupRetry
	}
	return &Client{
		client:    client,
		programID: programID,
		lookup:    lookup,
		logger:    log.Named("dbc"),
	}
}

// ProgramID returns the venue program this client reads.
func (c *Client) ProgramID() solana.PublicKey { return c.programID }

// FindPoolByBaseMint ищет пул по base mint одним запросом getProgramAccounts.
func (c *Client) FindPoolByBaseMint(ctx context.Context, baseMint solana.PublicKey) (solana.PublicKey, *VirtualPool, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	disc := accountDiscriminator(accountVirtualPool)
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: disc[:]}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: BaseMintOffset, Bytes: baseMint.Bytes()}},
		},
	}

	accounts, err := c.client.GetProgramAccountsWithOpts(ctx, c.programID, opts)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("GetProgramAccountsWithOpts: %w", err)
	}
	if len(accounts) == 0 {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: base mint %s", ErrPoolNotFound, baseMint)
	}

	acc := accounts[0]
	if acc.Account == nil || acc.Account.Data == nil {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: empty pool account %s", ErrInvalidAccount, acc.Pubkey)
	}
	pool, err := DecodeVirtualPool(acc.Account.Data.GetBinary())
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if !pool.BaseMint.Equals(baseMint) {
		return solana.PublicKey{}, nil, fmt.Errorf("%w: pool %s holds mint %s", ErrInvalidAccount, acc.Pubkey, pool.BaseMint)
	}
	return acc.Pubkey, pool, nil
}

// LookupPool ищет пул с ограниченным числом попыток (пул только что создан
// и может ещё не индексироваться узлом). Ошибки декодирования не повторяются.
func (c *Client) LookupPool(ctx context.Context, baseMint solana.PublicKey) (solana.PublicKey, *VirtualPool, error) {
	type found struct {
		address solana.PublicKey
		pool    *VirtualPool
	}

	res, err := retry.Do(ctx, c.logger, c.lookup, func() (found, error) {
		address, pool, err := c.FindPoolByBaseMint(ctx, baseMint)
		if errors.Is(err, ErrInvalidAccount) {
			return found{}, retry.Permanent(err)
		}
		return found{address, pool}, err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidAccount) || errors.Is(err, context.Canceled) {
			return solana.PublicKey{}, nil, err
		}
		c.logger.Warn("Пул не найден после всех попыток",
			zap.String("base_mint", baseMint.String()),
			zap.Uint("attempts", c.lookup.Attempts),
			zap.Error(err))
		if errors.Is(err, ErrPoolNotFound) {
			return solana.PublicKey{}, nil, err
		}
		return solana.PublicKey{}, nil, fmt.Errorf("%w: %v", ErrPoolNotFound, err)
	}
	return res.address, res.pool, nil
}

// FetchPoolConfig reads the config account a pool was created under.
func (c *Client) FetchPoolConfig(ctx context.Context, address solana.PublicKey) (*PoolConfig, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("pool config %s: %w", address, err)
	}
	return DecodePoolConfig(data)
}

// LoadPoolState - поиск пула по mint и чтение его конфига.
func (c *Client) LoadPoolState(ctx context.Context, baseMint solana.PublicKey) (*PoolState, error) {
	address, pool, err := c.LookupPool(ctx, baseMint)
	if err != nil {
		return nil, err
	}
	cfg, err := c.FetchPoolConfig(ctx, pool.Config)
	if err != nil {
		return nil, err
	}
	return &PoolState{Address: address, Pool: pool, Config: cfg}, nil
}

// PoolStatus - сводка по пулу для UI: прогресс кривой, спотовая цена и
// данные mint для расчёта капитализации.
type PoolStatus struct {
	Address   solana.PublicKey
	Completed bool
	Progress  decimal.Decimal
	// Price is the raw spot price, quote units per base unit.
	Price    decimal.Decimal
	Supply   uint64
	Decimals uint8
}

// Status loads the pool for baseMint together with its config and mint account.
func (c *Client) Status(ctx context.Context, baseMint solana.PublicKey) (*PoolStatus, error) {
	state, err := c.LoadPoolState(ctx, baseMint)
	if err != nil {
		return nil, err
	}
	mint, err := c.FetchMint(ctx, baseMint)
	if err != nil {
		return nil, err
	}
	return &PoolStatus{
		Address:   state.Address,
		Completed: state.Pool.Completed(state.Config),
		Progress:  CurveProgress(state.Pool, state.Config),
		Price:     curve.PriceFromSqrtQ64(state.Pool.SqrtPrice.BigInt()),
		Supply:    mint.Supply,
		Decimals:  mint.Decimals,
	}, nil
}

// FetchMint reads the SPL mint account of the launched token.
func (c *Client) FetchMint(ctx context.Context, address solana.PublicKey) (*token.Mint, error) {
	data, err := c.accountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("mint %s: %w", address, err)
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("%w: mint %s: %v", ErrInvalidAccount, address, err)
	}
	return &mint, nil
}

// CurveProgress returns quote reserve / migration threshold, capped at 1.
func CurveProgress(pool *VirtualPool, cfg *PoolConfig) decimal.Decimal {
	if cfg.MigrationQuoteThreshold == 0 || pool.IsMigrated != 0 {
		return decimal.NewFromInt(1)
	}
	progress := decimal.NewFromUint64(pool.QuoteReserve).
		DivRound(decimal.NewFromUint64(cfg.MigrationQuoteThreshold), 9)
	if progress.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return progress
}

func (c *Client) accountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	info, err := c.client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return nil, rpc.ErrNotFound
	}
	return info.Value.Data.GetBinary(), nil
}
