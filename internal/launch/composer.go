// =============================
// File: internal/launch/composer.go
// =============================
package launch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc"
	"github.com/rovshanmuradov/conviction-engine/internal/config"
	"github.com/rovshanmuradov/conviction-engine/internal/conviction"
	"github.com/rovshanmuradov/conviction-engine/internal/curve"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
	"github.com/rovshanmuradov/conviction-engine/internal/wallet"
)

// AnchorTransferAmount - количество base units, которое создатель переводит
// в token vault страховки. Литерал, не зависит от decimals.
const AnchorTransferAmount uint64 = 1

// Transaction labels.
const (
	LabelPool      = "pool"
	LabelInsurance = "insurance"
)

// FeeEstimator returns a priority fee in micro-lamports per compute unit.
type FeeEstimator interface {
	Estimate(ctx context.Context, accounts []solana.PublicKey) uint64
}

// Composer собирает транзакции запуска. Только читает сеть, ничего не отправляет.
type Composer struct {
	cfg    config.EngineConfig
	client blockchain.Client
	fees   FeeEstimator
	wallet *wallet.Wallet
	logger *zap.Logger
}

func NewComposer(cfg config.EngineConfig, client blockchain.Client, fees FeeEstimator, w *wallet.Wallet, logger *zap.Logger) *Composer {
	return &Composer{
		cfg:    cfg,
		client: client,
		fees:   fees,
		wallet: w,
		logger: logger.Named("composer"),
	}
}

// ComposePool builds the pool-creation transaction, optionally with an atomic
// first buy. The mint keypair co-signs.
func (c *Composer) ComposePool(ctx context.Context, params types.LaunchParams, mint solana.PrivateKey) (*types.ComposedTransaction, error) {
	if err := params.Validate(c.cfg.Curve.BinStep); err != nil {
		return nil, err
	}
	mintKey := mint.PublicKey()
	poolConfig := c.cfg.PoolConfigFor(params.AntiSniper)

	createIx, addrs, err := dbc.CreatePoolInstruction(c.cfg.DBCProgramID, poolConfig, params.Creator, mintKey, c.cfg.QuoteMint,
		dbc.CreatePoolArgs{Name: params.Name, Symbol: params.Symbol, URI: params.URI})
	if err != nil {
		return nil, fmt.Errorf("create pool instruction: %w", err)
	}

	fee := c.fees.Estimate(ctx, []solana.PublicKey{addrs.Pool, poolConfig, params.Creator, mintKey})
	instructions := types.ComputeBudgetInstructions(types.PriorityConfig{
		ComputeUnits: c.cfg.Compute.PoolUnits,
		PriorityFee:  fee,
	})
	instructions = append(instructions, createIx)

	if params.HasFirstBuy() {
		swapIxs, err := dbc.SwapInstructions(c.cfg.DBCProgramID, dbc.SwapParams{
			Payer:            params.Creator,
			Config:           poolConfig,
			BaseMint:         mintKey,
			QuoteMint:        c.cfg.QuoteMint,
			Addresses:        addrs,
			AmountIn:         params.BuyAmount,
			MinimumAmountOut: types.MinAmountOut(params.BuyAmount, params.SlippageBps),
		})
		if err != nil {
			return nil, fmt.Errorf("first buy instructions: %w", err)
		}
		if len(swapIxs) == 0 {
			c.logger.Warn("First buy produced no instructions, pool is created without it",
				zap.String("mint", mintKey.String()))
		}
		instructions = append(instructions, swapIxs...)
	}

	c.logger.Debug("Pool transaction composed",
		zap.String("mint", mintKey.String()),
		zap.String("pool", addrs.Pool.String()),
		zap.Int("instructions", len(instructions)),
		zap.Uint64("priority_fee", fee))

	return &types.ComposedTransaction{
		Label:        LabelPool,
		Instructions: instructions,
		Payer:        params.Creator,
		Signers:      []solana.PrivateKey{mint, c.wallet.PrivateKey},
	}, nil
}

// ComposeInsurance builds the insurance transaction. Returns (nil, nil) when
// no insurance is requested.
func (c *Composer) ComposeInsurance(ctx context.Context, params types.LaunchParams, mint, pool solana.PublicKey) (*types.ComposedTransaction, error) {
	if !params.HasInsurance() {
		return nil, nil
	}
	if err := params.Validate(c.cfg.Curve.BinStep); err != nil {
		return nil, err
	}
	startPrice, err := c.startPrice(params)
	if err != nil {
		return nil, err
	}

	builder, err := conviction.NewBuilder(c.cfg.ProgramID, params.Creator, mint, c.cfg.QuoteMint)
	if err != nil {
		return nil, err
	}
	creatorATA, err := wallet.FindATA(params.Creator, mint)
	if err != nil {
		return nil, err
	}
	venue, err := dbc.DerivePoolAddresses(c.cfg.DBCProgramID, c.cfg.PoolConfigFor(params.AntiSniper), mint, c.cfg.QuoteMint)
	if err != nil {
		return nil, err
	}

	// две независимые проверки существования, только чтение
	var configExists, ataExists bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		configExists, err = solbc.AccountExists(gctx, c.client, builder.Addresses.Config)
		if err != nil {
			return fmt.Errorf("check insurance config: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ataExists, err = solbc.AccountExists(gctx, c.client, creatorATA)
		if err != nil {
			return fmt.Errorf("check creator token account: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}


	fee := c.fees.Estimate(ctx, []solana.PublicKey{
		builder.Addresses.Dish, builder.Addresses.InsuranceVault, builder.Addresses.CurvePool, params.Creator,
	})
	instructions := types.ComputeBudgetInstructions(types.PriorityConfig{
		ComputeUnits: c.cfg.Compute.InsuranceUnits,
		PriorityFee:  fee,
	})

	if !configExists {
		ix, err := builder.CreateConfig()
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ix)
	}

	initInsurance, err := builder.InitInsurance(conviction.InitInsuranceArgs{
		Amount:     params.InsuranceAmount,
		StartPrice: startPrice,
		PoolID:     pool,
	}, venue.MintMetadata)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, initInsurance)

	if !ataExists {
		ix, err := wallet.CreateATAIdempotentInstruction(params.Creator, params.Creator, mint)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ix)
	}

	instructions = append(instructions,
		token.NewTransferInstruction(AnchorTransferAmount, creatorATA, builder.Addresses.TokenVault, params.Creator, nil).Build())

	initCurve, err := builder.InitCurvePool(conviction.InitCurvePoolArgs{
		BinID:          params.BinID,
		BinStep:        c.cfg.Curve.BinStep,
		BaseFactor:     c.cfg.Curve.BaseFactor,
		ActivationType: c.cfg.Curve.ActivationType,
		HasAlphaVault:  c.cfg.Curve.HasAlphaVault,
	})
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, initCurve)

	c.logger.Debug("Insurance transaction composed",
		zap.String("mint", mint.String()),
		zap.Bool("config_exists", configExists),
		zap.Bool("ata_exists", ataExists),
		zap.Uint64("start_price", startPrice),
		zap.Int("instructions", len(instructions)))

	return &types.ComposedTransaction{
		Label:        LabelInsurance,
		Instructions: instructions,
		Payer:        params.Creator,
		Signers:      []solana.PrivateKey{c.wallet.PrivateKey},
	}, nil
}

// startPrice - цена срабатывания страховки. Без явной цены она выводится из
// бина; бин, чья цена округляется до нуля лампортов, отклоняется.
func (c *Composer) startPrice(params types.LaunchParams) (uint64, error) {
	if params.InsurancePrice > 0 {
		return params.InsurancePrice, nil
	}
	price := curve.TriggerPrice(params.BinID, c.cfg.Curve.BinStep, c.cfg.Token.BaseDecimals, c.cfg.Token.QuoteDecimals)
	if price == 0 {
		return 0, fmt.Errorf("%w: bin %d prices the insurance trigger at zero lamports", types.ErrInvalidParams, params.BinID)
	}
	return price, nil
}
