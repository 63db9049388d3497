// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/mr-tron/base58"
)

// Wallet представляет кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// NewMintKeypair генерирует ключ нового минта; он подписывает транзакцию пула.
func NewMintKeypair() (solana.PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate mint keypair: %w", err)
	}
	return key, nil
}

// SignTransaction подписывает транзакцию ключом кошелька и co-signers.
func (w *Wallet) SignTransaction(tx *solana.Transaction, coSigners ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range coSigners {
			if coSigners[i].PublicKey().Equals(key) {
				return &coSigners[i]
			}
		}
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// FindATA derives the associated token account of owner for mint.
func FindATA(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive ata for %s: %w", mint, err)
	}
	return ata, nil
}

// CreateATAIdempotentInstruction creates the owner's ATA unless it exists.
func CreateATAIdempotentInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := FindATA(owner, mint)
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // 1 = CreateIdempotent
	), nil
}

// WrapSOLInstructions: создать WSOL ATA, перевести lamports, sync_native.
func WrapSOLInstructions(owner solana.PublicKey, lamports uint64) ([]solana.Instruction, solana.PublicKey, error) {
	createIx, err := CreateATAIdempotentInstruction(owner, owner, solana.WrappedSol)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	wsolATA, err := FindATA(owner, solana.WrappedSol)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return []solana.Instruction{
		createIx,
		system.NewTransferInstruction(lamports, owner, wsolATA).Build(),
		token.NewSyncNativeInstruction(wsolATA).Build(),
	}, wsolATA, nil
}

// UnwrapSOLInstruction closes the owner's WSOL account back into lamports.
func UnwrapSOLInstruction(owner solana.PublicKey) (solana.Instruction, error) {
	wsolATA, err := FindATA(owner, solana.WrappedSol)
	if err != nil {
		return nil, err
	}
	return token.NewCloseAccountInstruction(wsolATA, owner, owner, nil).Build(), nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
