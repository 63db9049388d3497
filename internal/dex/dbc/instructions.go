// =============================
// File: internal/dex/dbc/instructions.go
// =============================
package dbc

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/conviction-engine/internal/wallet"
)

// SwapArgs - аргументы инструкции swap.
type SwapArgs struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

// CreatePoolArgs - метаданные токена для initialize_virtual_pool_with_spl_token.
type CreatePoolArgs struct {
	Name   string
	Symbol string
	URI    string
}

// SwapParams describes one swap against a known pool.
type SwapParams struct {
	Payer            solana.PublicKey
	Config           solana.PublicKey
	BaseMint         solana.PublicKey
	QuoteMint        solana.PublicKey
	Addresses        PoolAddresses
	AmountIn         uint64
	MinimumAmountOut uint64
	SwapBaseForQuote bool
}

// CreatePoolInstruction creates the pool and mints the token supply into it.
// The mint keypair and the creator must both sign.
func CreatePoolInstruction(programID, config, creator, baseMint, quoteMint solana.PublicKey, args CreatePoolArgs) (solana.Instruction, PoolAddresses, error) {
	addrs, err := DerivePoolAddresses(programID, config, baseMint, quoteMint)
	if err != nil {
		return nil, PoolAddresses{}, err
	}

	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(config, false, false),
		solana.NewAccountMeta(addrs.PoolAuthority, false, false),
		solana.NewAccountMeta(creator, false, true),
		solana.NewAccountMeta(baseMint, true, true),
		solana.NewAccountMeta(quoteMint, false, false),
		solana.NewAccountMeta(addrs.Pool, true, false),
		solana.NewAccountMeta(addrs.BaseVault, true, false),
		solana.NewAccountMeta(addrs.QuoteVault, true, false),
		solana.NewAccountMeta(addrs.MintMetadata, true, false),
		solana.NewAccountMeta(MetaplexProgramID, false, false),
		solana.NewAccountMeta(creator, true, true), // payer
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(addrs.EventAuthority, false, false),
		solana.NewAccountMeta(programID, false, false),
	}

	data, err := encodeInstruction(instructionCreatePool, args)
	if err != nil {
		return nil, PoolAddresses{}, err
	}
	return solana.NewInstruction(programID, accounts, data), addrs, nil
}

// SwapInstruction builds the bare swap. Token accounts must already exist.
func SwapInstruction(programID solana.PublicKey, p SwapParams, inputAccount, outputAccount solana.PublicKey) (solana.Instruction, error) {
	if p.AmountIn == 0 {
		return nil, ErrZeroAmount
	}

	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(p.Addresses.PoolAuthority, false, false),
		solana.NewAccountMeta(p.Config, false, false),
		solana.NewAccountMeta(p.Addresses.Pool, true, false),
		solana.NewAccountMeta(inputAccount, true, false),
		solana.NewAccountMeta(outputAccount, true, false),
		solana.NewAccountMeta(p.Addresses.BaseVault, true, false),
		solana.NewAccountMeta(p.Addresses.QuoteVault, true, false),
		solana.NewAccountMeta(p.BaseMint, false, false),
		solana.NewAccountMeta(p.QuoteMint, false, false),
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		// referral token account: None is encoded as the program id
		solana.NewAccountMeta(programID, false, false),
		solana.NewAccountMeta(p.Addresses.EventAuthority, false, false),
		solana.NewAccountMeta(programID, false, false),
	}

	data, err := encodeInstruction(instructionSwap, SwapArgs{
		AmountIn:         p.AmountIn,
		MinimumAmountOut: p.MinimumAmountOut,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// SwapInstructions returns the full swap set: token account setup, the swap
// and, for a wrapped-SOL quote, closing the temporary WSOL account.
func SwapInstructions(programID solana.PublicKey, p SwapParams) ([]solana.Instruction, error) {
	baseATA, err := wallet.FindATA(p.Payer, p.BaseMint)
	if err != nil {
		return nil, err
	}
	quoteATA, err := wallet.FindATA(p.Payer, p.QuoteMint)
	if err != nil {
		return nil, err
	}
	nativeQuote := p.QuoteMint.Equals(solana.WrappedSol)

	var pre []solana.Instruction
	var input, output solana.PublicKey

	if p.SwapBaseForQuote {
		// продажа: base -> quote
		createQuote, err := wallet.CreateATAIdempotentInstruction(p.Payer, p.Payer, p.QuoteMint)
		if err != nil {
			return nil, err
		}
		pre = append(pre, createQuote)
		input, output = baseATA, quoteATA
	} else {
		// покупка: quote -> base
		if nativeQuote {
			wrap, _, err := wallet.WrapSOLInstructions(p.Payer, p.AmountIn)
			if err != nil {
				return nil, err
			}
			pre = append(pre, wrap...)
		}
		createBase, err := wallet.CreateATAIdempotentInstruction(p.Payer, p.Payer, p.BaseMint)
		if err != nil {
			return nil, err
		}
		pre = append(pre, createBase)
		input, output = quoteATA, baseATA
	}

	swapIx, err := SwapInstruction(programID, p, input, output)
	if err != nil {
		return nil, err
	}
	instructions := append(pre, swapIx)

	if nativeQuote {
		closeIx, err := wallet.UnwrapSOLInstruction(p.Payer)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, closeIx)
	}
	return instructions, nil
}

func encodeInstruction(name string, args interface{}) ([]byte, error) {
	disc := instructionDiscriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
