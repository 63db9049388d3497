// Package blockchaintest provides a testify mock of blockchain.Client.
package blockchaintest

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/conviction-engine/internal/blockchain"
)

// MockClient is a mock implementation of blockchain.Client
type MockClient struct {
	mock.Mock
}

var _ blockchain.Client = (*MockClient)(nil)

func (m *MockClient) GetLatestBlockhash(ctx context.Context) (*blockchain.BlockhashInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.BlockhashInfo), args.Error(1)
}

func (m *MockClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) GetSignatureStatuses(ctx context.Context, searchHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, searchHistory, signatures)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetSignatureStatusesResult), args.Error(1)
}

func (m *MockClient) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, pubkey)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetAccountInfoResult), args.Error(1)
}

func (m *MockClient) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	args := m.Called(ctx, programID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(rpc.GetProgramAccountsResult), args.Error(1)
}

// AccountResult builds a GetAccountInfo result holding data owned by owner.
func AccountResult(owner solana.PublicKey, data []byte) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner:    owner,
			Lamports: 1_000_000,
			Data:     rpc.DataBytesOrJSONFromBytes(data),
		},
	}
}

// Status builds a single-signature status response.
func Status(status rpc.ConfirmationStatusType, txErr interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{
			Slot:               1,
			ConfirmationStatus: status,
			Err:                txErr,
		}},
	}
}

// Pending is a status response for a signature the node has not seen yet.
func Pending() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}
}

// ProgramAccounts wraps one keyed account as a getProgramAccounts result.
func ProgramAccounts(pubkey, owner solana.PublicKey, data []byte) rpc.GetProgramAccountsResult {
	return rpc.GetProgramAccountsResult{{
		Pubkey:  pubkey,
		Account: AccountResult(owner, data).Value,
	}}
}
