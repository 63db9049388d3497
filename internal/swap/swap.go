// =============================
// File: internal/swap/swap.go
// =============================
package swap

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/conviction-engine/internal/config"
	"github.com/rovshanmuradov/conviction-engine/internal/dex"
	"github.com/rovshanmuradov/conviction-engine/internal/dex/dbc"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
	"github.com/rovshanmuradov/conviction-engine/internal/wallet"
)

// LabelSwap marks curve swap transactions in the submission logs.
const LabelSwap = "swap"

// Router picks a venue with a fresh quote and hands out its builder.
type Router interface {
	Select(ctx context.Context, params types.SwapParams) (types.Venue, types.Quote, error)
	Builder(venue types.Venue) (dex.SwapBuilder, error)
}

// Submitter отправляет и подтверждает транзакции.
type Submitter interface {
	Submit(ctx context.Context, composed types.ComposedTransaction) (solana.Signature, error)
	SubmitSigned(ctx context.Context, tx *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error)
}

type FeeEstimator interface {
	Estimate(ctx context.Context, accounts []solana.PublicKey) uint64
}

// accountLister is implemented by builders that can name the hot accounts of a quote.
type accountLister interface {
	Accounts(quote types.Quote) []solana.PublicKey
}

// Service исполняет покупки и продажи через выбранную роутером площадку.
type Service struct {
	cfg       config.EngineConfig
	router    Router
	client    blockchain.Client
	submitter Submitter
	fees      FeeEstimator
	wallet    *wallet.Wallet
	logger    *zap.Logger
}

func NewService(
	cfg config.EngineConfig,
	router Router,
	client blockchain.Client,
	submitter Submitter,
	fees FeeEstimator,
	w *wallet.Wallet,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		router:    router,
		client:    client,
		submitter: submitter,
		fees:      fees,
		wallet:    w,
		logger:    logger.Named("swap"),
	}
}

// Execute quotes the trade again, builds it on the chosen venue and submits it.
// Buy and sell share this path; the direction only changes the balance check
// and the swap side.
func (s *Service) Execute(ctx context.Context, params types.SwapParams) (solana.Signature, error) {
	log := logger.WithOperation(s.logger, "swap").With(
		zap.String("token", params.Token.String()),
		zap.String("direction", string(params.Direction)),
		zap.Uint64("amount", params.Amount))
	defer logger.TrackPerformance(log, "swap")()

	if err := params.Validate(); err != nil {
		return solana.Signature{}, err
	}
	if !params.User.Equals(s.wallet.PublicKey) {
		return solana.Signature{}, fmt.Errorf("%w: user %s is not the engine wallet", types.ErrInvalidParams, params.User)
	}

	venue, quote, err := s.router.Select(ctx, params)
	if errors.Is(err, dbc.ErrPoolNotFound) {
		// пул ещё не проиндексирован, маршрута при этом может и не быть
		return solana.Signature{}, fmt.Errorf("quote %s on %s: %w", params.Token, venue, err)
	}
	if !quote.HasRoute {
		return solana.Signature{}, fmt.Errorf("%w: %s on %s", dex.ErrNoRoute, params.Token, venue)
	}
	log = log.With(zap.String("venue", string(venue)),
		zap.Uint64("estimated_output", quote.EstimatedOutput),
		zap.Uint64("minimum_output", quote.MinimumOutput))

	if !params.IsSell() {
		if err := s.checkBalance(ctx, params); err != nil {
			return solana.Signature{}, err
		}
	}

	builder, err := s.router.Builder(venue)
	if err != nil {
		return solana.Signature{}, err
	}
	plan, err := builder.BuildSwap(ctx, params, quote)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build %s swap: %w", venue, err)
	}

	var sig solana.Signature
	if plan.Transaction != nil {
		sig, err = s.submitPrebuilt(ctx, plan)
	} else {
		sig, err = s.submitInstructions(ctx, params, quote, builder, plan)
	}
	if err != nil {
		return solana.Signature{}, err
	}

	log.Info("Своп исполнен", zap.String("signature", sig.String()))
	return sig, nil
}

// submitPrebuilt signs a transaction that the venue already assembled.
func (s *Service) submitPrebuilt(ctx context.Context, plan *types.SwapPlan) (solana.Signature, error) {
	tx := plan.Transaction
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(s.wallet.PublicKey) {
		return solana.Signature{}, errors.New("venue transaction is not paid by the engine wallet")
	}
	// placeholder signatures from the venue are replaced by ours
	tx.Signatures = nil
	if err := s.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, &transaction.SubmissionError{Err: fmt.Errorf("%w: %v", transaction.ErrInvalidSignature, err)}
	}
	return s.submitter.SubmitSigned(ctx, tx, plan.LastValidBlockHeight)
}

func (s *Service) submitInstructions(
	ctx context.Context,
	params types.SwapParams,
	quote types.Quote,
	builder dex.SwapBuilder,
	plan *types.SwapPlan,
) (solana.Signature, error) {
	var fee uint64
	switch {
	case params.PriorityFee != nil:
		fee = *params.PriorityFee
	default:
		var accounts []solana.PublicKey
		if lister, ok := builder.(accountLister); ok {
			accounts = lister.Accounts(quote)
		}
		fee = s.fees.Estimate(ctx, accounts)
	}

	instructions := types.ComputeBudgetInstructions(types.PriorityConfig{
		ComputeUnits: s.cfg.Compute.SwapUnits,
		PriorityFee:  fee,
	})
	instructions = append(instructions, plan.Instructions...)

	return s.submitter.Submit(ctx, types.ComposedTransaction{
		Label:        LabelSwap,
		Instructions: instructions,
		Payer:        params.User,
		Signers:      []solana.PrivateKey{s.wallet.PrivateKey},
	})
}

// checkBalance: на покупку нужно amount плюс резерв на комиссии.
func (s *Service) checkBalance(ctx context.Context, params types.SwapParams) error {
	required, carry := bits.Add64(params.Amount, s.cfg.FeeReserve, 0)
	if carry != 0 {
		return fmt.Errorf("%w: amount overflows", types.ErrInvalidParams)
	}
	balance, err := s.client.GetBalance(ctx, params.User)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	if balance < required {
		return fmt.Errorf("%w: balance %d, required %d", transaction.ErrInsufficientFunds, balance, required)
	}
	return nil
}
