// =============================
// File: internal/conviction/instructions.go
// =============================
package conviction

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/conviction-engine/internal/pda"
)

// Instruction names as declared by the insurance program.
const (
	NameCreateConfig  = "create_config"
	NameInitInsurance = "init_insurance"
	NameInitCurvePool = "init_curve_pool"
)

// Discriminator returns the 8-byte anchor prefix sha256("global:<name>")[:8].
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// InitInsuranceArgs - аргументы init_insurance в порядке borsh-сериализации.
type InitInsuranceArgs struct {
	Amount     uint64
	StartPrice uint64
	PoolID     solana.PublicKey
}

// InitCurvePoolArgs - параметры кривой страховки.
type InitCurvePoolArgs struct {
	BinID          int32
	BinStep        uint16
	BaseFactor     uint16
	ActivationType uint8
	HasAlphaVault  bool
}

// Builder собирает инструкции программы страховки для одного минта.
type Builder struct {
	ProgramID solana.PublicKey
	Addresses pda.DerivedAddresses
	Creator   solana.PublicKey
	Mint      solana.PublicKey
	QuoteMint solana.PublicKey
}

// NewBuilder derives every insurance address for mint.
func NewBuilder(programID, creator, mint, quoteMint solana.PublicKey) (*Builder, error) {
	addrs, err := pda.Derive(programID, mint, quoteMint)
	if err != nil {
		return nil, err
	}
	return &Builder{
		ProgramID: programID,
		Addresses: addrs,
		Creator:   creator,
		Mint:      mint,
		QuoteMint: quoteMint,
	}, nil
}

// CreateConfig initializes the program-wide config account.
func (b *Builder) CreateConfig() (solana.Instruction, error) {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(b.Creator, true, true),
		solana.NewAccountMeta(b.Addresses.Config, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(b.Addresses.EventAuthority, false, false),
		solana.NewAccountMeta(b.ProgramID, false, false),
	}
	return b.instruction(NameCreateConfig, accounts, nil)
}

// InitInsurance funds the insurance vault with amount at startPrice.
func (b *Builder) InitInsurance(args InitInsuranceArgs, metadata solana.PublicKey) (solana.Instruction, error) {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(b.Creator, true, true),
		solana.NewAccountMeta(b.Addresses.Config, false, false),
		solana.NewAccountMeta(b.Addresses.Dish, true, false),
		solana.NewAccountMeta(b.Addresses.InsuranceVault, true, false),
		solana.NewAccountMeta(b.Addresses.TokenVault, true, false),
		solana.NewAccountMeta(b.Addresses.WsolVault, true, false),
		solana.NewAccountMeta(b.Mint, false, false),
		solana.NewAccountMeta(b.QuoteMint, false, false),
		solana.NewAccountMeta(metadata, false, false),
		solana.NewAccountMeta(args.PoolID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(b.Addresses.EventAuthority, false, false),
		solana.NewAccountMeta(b.ProgramID, false, false),
	}
	return b.instruction(NameInitInsurance, accounts, args)
}

// InitCurvePool creates the insurance curve pool, its oracle and reserves.
func (b *Builder) InitCurvePool(args InitCurvePoolArgs) (solana.Instruction, error) {
	accounts := []*solana.AccountMeta{
		solana.NewAccountMeta(b.Creator, true, true),
		solana.NewAccountMeta(b.Addresses.Config, false, false),
		solana.NewAccountMeta(b.Addresses.Dish, true, false),
		solana.NewAccountMeta(b.Addresses.CurvePool, true, false),
		solana.NewAccountMeta(b.Addresses.Oracle, true, false),
		solana.NewAccountMeta(b.Addresses.ReserveX, true, false),
		solana.NewAccountMeta(b.Addresses.ReserveY, true, false),
		solana.NewAccountMeta(b.Mint, false, false),
		solana.NewAccountMeta(b.QuoteMint, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(b.Addresses.EventAuthority, false, false),
		solana.NewAccountMeta(b.ProgramID, false, false),
	}
	return b.instruction(NameInitCurvePool, accounts, args)
}

func (b *Builder) instruction(name string, accounts []*solana.AccountMeta, args interface{}) (solana.Instruction, error) {
	data, err := EncodeData(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(b.ProgramID, accounts, data), nil
}

// EncodeData = discriminator + borsh(args). A nil args encodes no payload.
func EncodeData(name string, args interface{}) ([]byte, error) {
	disc := Discriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if args == nil {
		return buf.Bytes(), nil
	}
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode %s args: %w", name, err)
	}
	return buf.Bytes(), nil
}
