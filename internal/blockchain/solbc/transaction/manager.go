// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc"
	"github.com/rovshanmuradov/conviction-engine/internal/retry"
	"github.com/rovshanmuradov/conviction-engine/internal/types"
	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

// Manager подписывает, отправляет и подтверждает транзакции.
type Manager struct {
	client    blockchain.Client
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	analyzer  *solbc.ErrorAnalyzer
}

func NewManager(client blockchain.Client, logger *zap.Logger, config Config) *Manager {
	return &Manager{
		client:    client,
		logger:    logger.Named("tx-manager"),
		config:    config,
		validator: NewValidator(logger),
		monitor:   NewMonitor(client, logger, config),
		analyzer:  solbc.NewErrorAnalyzer(logger),
	}
}

// Submit builds a transaction from composed over a freshly fetched blockhash,
// signs it and sends it, then confirms against that blockhash's height ceiling.
func (tm *Manager) Submit(ctx context.Context, composed types.ComposedTransaction) (solana.Signature, error) {
	log := logger.WithOperation(tm.logger, "submit").With(zap.String("label", composed.Label))
	defer logger.TrackPerformance(log, composed.Label)()

	if len(composed.Instructions) == 0 {
		return solana.Signature{}, &SubmissionError{Err: ErrInvalidInstruction}
	}

	blockhash, err := retry.Do(ctx, log, retry.Policy{
		Attempts: tm.config.BlockhashAttempts,
		Delay:    tm.config.BlockhashDelay,
		Event:    "blockhash-retry",
	}, func() (*blockchain.BlockhashInfo, error) {
		return tm.client.GetLatestBlockhash(ctx)
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(composed.Instructions, blockhash.Blockhash, solana.TransactionPayer(composed.Payer))
	if err != nil {
		return solana.Signature{}, &SubmissionError{Err: fmt.Errorf("%w: %v", ErrInvalidInstruction, err)}
	}
	if err := Sign(tx, composed.Signers...); err != nil {
		return solana.Signature{}, &SubmissionError{Err: err}
	}

	return tm.sendAndConfirm(ctx, log, tx, blockhash.LastValidBlockHeight)
}

// SubmitSigned sends a transaction that is already built and signed, such as
// one returned by the aggregator, and confirms it like Submit does.
func (tm *Manager) SubmitSigned(ctx context.Context, tx *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error) {
	log := logger.WithOperation(tm.logger, "submit-signed")
	defer logger.TrackPerformance(log, "submit-signed")()
	return tm.sendAndConfirm(ctx, log, tx, lastValidBlockHeight)
}

func (tm *Manager) sendAndConfirm(ctx context.Context, log *zap.Logger, tx *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error) {
	if err := tm.validator.ValidateTransaction(tx); err != nil {
		log.Error("Transaction validation failed", zap.Error(err))
		return solana.Signature{}, &SubmissionError{Err: err}
	}

	signature, err := tm.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       tm.config.SkipPreflight,
		PreflightCommitment: tm.config.Commitment,
		MaxRetries:          tm.config.MaxRetries,
	})
	if err != nil {
		subErr := tm.classifySendError(tx, err)
		log.Error("Failed to send transaction",
			logger.Event(logger.EventTxFailed),
			zap.Strings("logs", subErr.Logs),
			zap.Error(err))
		return solana.Signature{}, subErr
	}
	log.Info("Transaction sent", logger.Event(logger.EventTxSent), zap.String("signature", signature.String()))

	// после отправки подтверждение не отменяется вызывающим: только таймаут
	status, err := tm.monitor.AwaitConfirmation(context.WithoutCancel(ctx), signature, lastValidBlockHeight)
	if err != nil {
		log.Error("Transaction confirmation failed",
			logger.Event(logger.EventTxFailed),
			zap.String("signature", signature.String()),
			zap.Error(err))
		return signature, &SubmissionError{Signature: signature, Err: err}
	}

	log.Info("Transaction confirmed",
		logger.Event(logger.EventTxConfirmed),
		zap.String("signature", signature.String()),
		zap.String("status", status.Status),
		zap.Uint64("slot", status.Slot))
	return signature, nil
}

func (tm *Manager) classifySendError(tx *solana.Transaction, err error) *SubmissionError {
	analysis := tm.analyzer.Analyze(err)
	subErr := &SubmissionError{Logs: analysis.Logs, Err: err}
	if len(tx.Signatures) > 0 {
		subErr.Signature = tx.Signatures[0]
	}
	switch {
	case errors.Is(analysis.Kind, solbc.ErrBlockhashNotFound):
		subErr.Err = fmt.Errorf("%w: %v", ErrBlockhashExpired, err)
	case analysis.Kind != nil:
		subErr.Err = fmt.Errorf("%w: %v", analysis.Kind, err)
	}
	return subErr
}

// Sign подписывает транзакцию одним проходом. Ключ каждого требуемого
// подписанта (плательщик, mint) ищется среди signers.
func Sign(tx *solana.Transaction, signers ...solana.PrivateKey) error {
	keys := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, signer := range signers {
		keys[signer.PublicKey()] = signer
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if signer, ok := keys[key]; ok {
			return &signer
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}
