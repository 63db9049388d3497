// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	// MaxRetries is the transport-level resend count requested from the node.
	MaxRetries uint
}

// BlockhashInfo is a recent blockhash together with the last block height
// at which a transaction referencing it can still land.
type BlockhashInfo struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
// Every call reads the ledger afresh; implementations must not cache.
type Client interface {
	// Получить последний blockhash вместе с lastValidBlockHeight.
	GetLatestBlockhash(ctx context.Context) (*BlockhashInfo, error)
	// Текущая высота блока.
	GetBlockHeight(ctx context.Context) (uint64, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Получить статусы подписей транзакций.
	GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	// Получить баланс аккаунта в лампортах.
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
	// Получить информацию об аккаунте. Returns rpc.ErrNotFound for absent accounts.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Получить аккаунты программы с фильтрами.
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
}
