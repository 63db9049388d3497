// internal/launch/launch.go
package launch

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
	"github.com/rovshanmuradov/conviction-engine/internal/wallet"
)

// Submitter sends a composed transaction and waits for its confirmation.
type Submitter interface {
	Submit(ctx context.Context, composed types.ComposedTransaction) (solana.Signature, error)
}

// StepTwoError - пул создан, но транзакция страховки не прошла.
// Первая подпись обязательна: на цепи уже есть частичное состояние.
type StepTwoError struct {
	FirstSignature solana.Signature
	Mint           solana.PublicKey
	Err            error
}

func (e *StepTwoError) Error() string {
	return fmt.Sprintf("step two failed (pool tx %s, mint %s): %v", e.FirstSignature, e.Mint, e.Err)
}

func (e *StepTwoError) Unwrap() error { return e.Err }

// Launcher runs the two-step launch: pool, then insurance.
type Launcher struct {
	composer  *Composer
	client    blockchain.Client
	submitter Submitter
	logger    *zap.Logger
}

func NewLauncher(composer *Composer, client blockchain.Client, submitter Submitter, logger *zap.Logger) *Launcher {
	return &Launcher{
		composer:  composer,
		client:    client,
		submitter: submitter,
		logger:    logger.Named("launcher"),
	}
}

// Launch validates params, checks the balance, then submits the pool
// transaction and, only after it is confirmed, the insurance transaction.
func (l *Launcher) Launch(ctx context.Context, params types.LaunchParams) (*types.SubmissionResult, error) {
	log := logger.WithOperation(l.logger, "launch")
	defer logger.TrackPerformance(log, "launch")()

	if err := params.Validate(l.composer.cfg.Curve.BinStep); err != nil {
		return nil, err
	}
	if !params.Creator.Equals(l.composer.wallet.PublicKey) {
		return nil, fmt.Errorf("%w: creator %s is not the engine wallet", types.ErrInvalidParams, params.Creator)
	}
	if params.HasInsurance() {
		if _, err := l.composer.startPrice(params); err != nil {
			return nil, err
		}
	}
	if err := l.checkBalance(ctx, params); err != nil {
		return nil, err
	}

	mint, err := wallet.NewMintKeypair()
	if err != nil {
		return nil, err
	}
	mintKey := mint.PublicKey()
	log = log.With(zap.String("mint", mintKey.String()))

	poolTx, err := l.composer.ComposePool(ctx, params, mint)
	if err != nil {
		return nil, fmt.Errorf("compose pool: %w", err)
	}
	poolSig, err := l.submitter.Submit(ctx, *poolTx)
	if err != nil {
		return nil, fmt.Errorf("submit pool: %w", err)
	}
	log.Info("Пул создан", zap.String("signature", poolSig.String()))

	result := &types.SubmissionResult{Signatures: []solana.Signature{poolSig}, Mint: mintKey}
	if !params.HasInsurance() {
		return result, nil
	}

	insuranceSig, err := l.submitInsurance(ctx, params, mintKey)
	if err != nil {
		log.Error("Страховка не создана после создания пула",
			logger.Event(logger.EventLaunchStepFailed),
			zap.String("first_signature", poolSig.String()),
			zap.Error(err))
		return nil, &StepTwoError{FirstSignature: poolSig, Mint: mintKey, Err: err}
	}
	log.Info("Страховка создана", zap.String("signature", insuranceSig.String()))

	result.Signatures = append(result.Signatures, insuranceSig)
	return result, nil
}

func (l *Launcher) submitInsurance(ctx context.Context, params types.LaunchParams, mint solana.PublicKey) (solana.Signature, error) {
	cfg := l.composer.cfg
	venue, err := dbc.DerivePoolAddresses(cfg.DBCProgramID, cfg.PoolConfigFor(params.AntiSniper), mint, cfg.QuoteMint)
	if err != nil {
		return solana.Signature{}, err
	}
	insuranceTx, err := l.composer.ComposeInsurance(ctx, params, mint, venue.Pool)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("compose insurance: %w", err)
	}
	return l.submitter.Submit(ctx, *insuranceTx)
}

// checkBalance: balance >= buy + insurance + fee reserve.
func (l *Launcher) checkBalance(ctx context.Context, params types.LaunchParams) error {
	required, c1 := bits.Add64(params.BuyAmount, params.InsuranceAmount, 0)
	required, c2 := bits.Add64(required, l.composer.cfg.FeeReserve, 0)
	if c1|c2 != 0 {
		return fmt.Errorf("%w: amounts overflow", types.ErrInvalidParams)
	}

	balance, err := l.client.GetBalance(ctx, params.Creator)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	if balance < required {
		return fmt.Errorf("%w: balance %d, required %d", transaction.ErrInsufficientFunds, balance, required)
	}
	return nil
}
