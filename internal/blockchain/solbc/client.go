// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    *rpc.Client
	logger *zap.Logger
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), logger)
}

// NewClientWithRPC wraps an existing rpc client (tests point it at httptest).
func NewClientWithRPC(rpcClient *rpc.Client, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpcClient,
		logger: logger.Named("solbc-client"),
	}
}

// GetLatestBlockhash получает blockhash и lastValidBlockHeight на уровне confirmed.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*blockchain.BlockhashInfo, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, errors.New("empty getLatestBlockhash response")
	}
	return &blockchain.BlockhashInfo{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// GetBlockHeight возвращает текущую высоту блока.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Debug("GetBlockHeight error", zap.Error(err))
		return 0, err
	}
	return height, nil
}

// GetAccountInfo получает информацию об аккаунте.
// Для отсутствующего аккаунта solana-go возвращает rpc.ErrNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if !errors.Is(err, rpc.ErrNotFound) {
			c.logger.Debug("GetAccountInfo error",
				zap.String("pubkey", pubkey.String()),
				zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

// GetProgramAccountsWithOpts получает все аккаунты программы с опциями фильтрации
func (c *Client) GetProgramAccountsWithOpts(
	ctx context.Context,
	programID solana.PublicKey,
	opts *rpc.GetProgramAccountsOpts,
) (rpc.GetProgramAccountsResult, error) {
	accounts, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, opts)
	if err != nil {
		c.logger.Debug("GetProgramAccountsWithOpts error",
			zap.String("program_id", programID.String()),
			zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, searchHistory, signatures...)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	rpcOpts := rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	}
	if opts.MaxRetries > 0 {
		maxRetries := opts.MaxRetries
		rpcOpts.MaxRetries = &maxRetries
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpcOpts)
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetBalance получает баланс аккаунта в лампортах.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// AccountExists reports whether an account is present on the ledger.
// Only rpc.ErrNotFound counts as absence; every other failure is returned.
func AccountExists(ctx context.Context, client blockchain.Client, pubkey solana.PublicKey) (bool, error) {
	info, err := client.GetAccountInfo(ctx, pubkey)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info != nil && info.Value != nil, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
