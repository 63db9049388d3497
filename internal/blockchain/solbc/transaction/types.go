// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain/solbc"
)

var (
	// ErrAlreadyProcessed - узел уже видел эту транзакцию; скорее всего она прошла.
	// Не ретраится и отличается от настоящего сбоя.
	ErrAlreadyProcessed    = solbc.ErrAlreadyProcessed
	ErrInsufficientFunds   = solbc.ErrInsufficientFunds
	ErrTransactionFailed   = errors.New("transaction failed on-chain")
	ErrBlockhashExpired    = errors.New("blockhash expired before confirmation")
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
)

type Config struct {
	// MaxRetries is passed to the node as the transport-level resend cap.
	MaxRetries     uint
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	SkipPreflight  bool
	Commitment     rpc.CommitmentType
	// BlockhashAttempts bounds the blockhash read retry.
	BlockhashAttempts uint
	BlockhashDelay    time.Duration
}

// DefaultConfig - отправка без preflight, 5 повторов на транспорте.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        5,
		PollInterval:      500 * time.Millisecond,
		ConfirmTimeout:    60 * time.Second,
		SkipPreflight:     true,
		Commitment:        rpc.CommitmentConfirmed,
		BlockhashAttempts: 3,
		BlockhashDelay:    time.Second,
	}
}

type Status struct {
	Signature string
	Status    string
	Slot      uint64
	Error     string
	Timestamp time.Time
}

// SubmissionError несёт подпись (если транзакция ушла в сеть) и логи программ.
type SubmissionError struct {
	Signature solana.Signature
	Logs      []string
	Err       error
}

func (e *SubmissionError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("submission failed: %v", e.Err)
	}
	return fmt.Sprintf("submission %s failed: %v", e.Signature, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
