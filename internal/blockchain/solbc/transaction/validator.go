// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

const (
	signatureBytes       = 64
	maxSignatureEncoding = 88 // base58 of 64 bytes never exceeds 88 chars
)

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateTransaction проверяет подписанную транзакцию перед отправкой.
// Любая ошибка здесь - ошибка программы или конфигурации, а не сети.
func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateInstructions(tx.Message.Instructions); err != nil {
		return err
	}

	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}

	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}

	return nil
}

func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) == 0 || len(tx.Signatures) != required {
		return fmt.Errorf("%w: have %d signatures, message requires %d",
			ErrInvalidSignature, len(tx.Signatures), required)
	}
	for i, sig := range tx.Signatures {
		if err := ValidateSignature(sig); err != nil {
			v.logger.Error("Signature encoding out of range", zap.Int("index", i), zap.Error(err))
			return err
		}
	}
	return nil
}

// ValidateSignature checks that a signature is set and that its base58
// encoding round-trips to exactly 64 bytes.
func ValidateSignature(sig solana.Signature) error {
	if sig.IsZero() {
		return fmt.Errorf("%w: empty signature", ErrInvalidSignature)
	}
	encoded := sig.String()
	if len(encoded) > maxSignatureEncoding {
		return fmt.Errorf("%w: encoding length %d", ErrInvalidSignature, len(encoded))
	}
	decoded, err := base58.Decode(encoded)
	if err != nil || len(decoded) != signatureBytes {
		return fmt.Errorf("%w: decodes to %d bytes", ErrInvalidSignature, len(decoded))
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}
