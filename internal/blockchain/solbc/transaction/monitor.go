// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
)

type Monitor struct {
	client blockchain.Client
	logger *zap.Logger
	config Config
}

func NewMonitor(client blockchain.Client, logger *zap.Logger, config Config) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config,
	}
}

// checkConfirmation опрашивает статус подписи. Возвращает (true, nil) при
// confirmed/finalized и ErrTransactionFailed, если транзакция упала.
func (m *Monitor) checkConfirmation(ctx context.Context, signature solana.Signature) (bool, error) {
	response, err := m.client.GetSignatureStatuses(ctx, false, signature)
	if err != nil {
		return false, fmt.Errorf("failed to get signature status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return false, nil
	}

	status := response.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
	}

	return status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		status.ConfirmationStatus == rpc.ConfirmationStatusFinalized, nil
}

// GetTransactionStatus reads the status from the node's full history.
func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, true, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature.String(),
			Status:    "pending",
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature.String(),
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = "confirmed"
	default:
		txStatus.Status = "pending"
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = "failed"
	}

	return txStatus, nil
}

// AwaitConfirmation ждёт подтверждения, пока высота блока не превысит
// lastValidBlockHeight или не истечёт ConfirmTimeout. Zero lastValidBlockHeight
// disables the height ceiling.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrConfirmationTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
			confirmed, err := m.checkConfirmation(ctx, signature)
			if errors.Is(err, ErrTransactionFailed) {
				return nil, err
			}
			if err != nil {
				m.logger.Warn("Confirmation check failed", zap.Error(err))
				continue
			}
			if confirmed {
				return m.verifyFinal(ctx, signature)
			}
			if err := m.checkBlockHeight(ctx, lastValidBlockHeight); err != nil {
				return nil, err
			}
		}
	}
}

func (m *Monitor) checkBlockHeight(ctx context.Context, lastValidBlockHeight uint64) error {
	if lastValidBlockHeight == 0 {
		return nil
	}
	height, err := m.client.GetBlockHeight(ctx)
	if err != nil {
		m.logger.Warn("Block height check failed", zap.Error(err))
		return nil
	}
	if height > lastValidBlockHeight {
		return fmt.Errorf("%w: height %d > %d", ErrBlockhashExpired, height, lastValidBlockHeight)
	}
	return nil
}

// verifyFinal повторно читает итоговый статус с searchTransactionHistory,
// чтобы не доверять ложноположительному подтверждению.
func (m *Monitor) verifyFinal(ctx context.Context, signature solana.Signature) (*Status, error) {
	status, err := m.GetTransactionStatus(ctx, signature)
	if err != nil {
		return nil, err
	}
	switch status.Status {
	case "failed":
		return nil, fmt.Errorf("%w: %s", ErrTransactionFailed, status.Error)
	case "pending":
		return nil, fmt.Errorf("%w: final status missing", ErrTransactionFailed)
	}
	return status, nil
}
