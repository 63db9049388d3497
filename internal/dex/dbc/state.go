// =============================
// File: internal/dex/dbc/state.go
// =============================
package dbc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// VolatilityTracker хранит состояние динамической комиссии пула.
type VolatilityTracker struct {
	LastUpdateTimestamp   uint64
	Padding               [8]uint8
	SqrtPriceReference    bin.Uint128
	VolatilityAccumulator bin.Uint128
	VolatilityReference   bin.Uint128
}

type PoolMetrics struct {
	TotalProtocolBaseFee  uint64
	TotalProtocolQuoteFee uint64
	TotalTradingBaseFee   uint64
	TotalTradingQuoteFee  uint64
}

// VirtualPool - аккаунт пула bonding curve (без 8-байтового дискриминатора).
type VirtualPool struct {
	VolatilityTracker          VolatilityTracker
	Config                     solana.PublicKey
	Creator                    solana.PublicKey
	BaseMint                   solana.PublicKey
	BaseVault                  solana.PublicKey
	QuoteVault                 solana.PublicKey
	BaseReserve                uint64
	QuoteReserve               uint64
	ProtocolBaseFee            uint64
	ProtocolQuoteFee           uint64
	PartnerBaseFee             uint64
	PartnerQuoteFee            uint64
	SqrtPrice                  bin.Uint128
	ActivationPoint            uint64
	PoolType                   uint8
	IsMigrated                 uint8
	IsPartnerWithdrawSurplus   uint8
	IsProtocolWithdrawSurplus  uint8
	MigrationProgress          uint8
	IsWithdrawLeftover         uint8
	IsCreatorWithdrawSurplus   uint8
	MigrationFeeWithdrawStatus uint8
	Metrics                    PoolMetrics
	FinishCurveTimestamp       uint64
	CreatorBaseFee             uint64
	CreatorQuoteFee            uint64
	Padding                    [7]uint64
}

type BaseFeeConfig struct {
	CliffFeeNumerator uint64
	SecondFactor      uint64
	ThirdFactor       uint64
	FirstFactor       uint16
	BaseFeeMode       uint8
	Padding           [5]uint8
}

type DynamicFeeConfig struct {
	Initialized              uint8
	Padding                  [7]uint8
	MaxVolatilityAccumulator uint32
	VariableFeeControl       uint32
	BinStep                  uint16
	FilterPeriod             uint16
	DecayPeriod              uint16
	ReductionFactor          uint16
	Padding2                 [8]uint8
	BinStepU128              bin.Uint128
}

type PoolFeesConfig struct {
	BaseFee            BaseFeeConfig
	DynamicFee         DynamicFeeConfig
	Padding0           [5]uint64
	Padding1           [6]uint8
	ProtocolFeePercent uint8
	ReferralFeePercent uint8
}

type LiquidityDistributionConfig struct {
	SqrtPrice bin.Uint128
	Liquidity bin.Uint128
}

type LockedVestingConfig struct {
	AmountPerPeriod                uint64
	CliffDurationFromMigrationTime uint64
	Frequency                      uint64
	NumberOfPeriod                 uint64
	CliffUnlockAmount              uint64
	Padding                        uint64
}

// PoolConfig - конфигурация пула, общая для всех пулов одного партнёра.
type PoolConfig struct {
	QuoteMint                   solana.PublicKey
	FeeClaimer                  solana.PublicKey
	LeftoverReceiver            solana.PublicKey
	PoolFees                    PoolFeesConfig
	CollectFeeMode              uint8
	MigrationOption             uint8
	ActivationType              uint8
	TokenDecimal                uint8
	Version                     uint8
	TokenType                   uint8
	QuoteTokenFlag              uint8
	PartnerLockedLpPercentage   uint8
	PartnerLpPercentage         uint8
	CreatorLockedLpPercentage   uint8
	CreatorLpPercentage         uint8
	MigrationFeeOption          uint8
	FixedTokenSupplyFlag        uint8
	CreatorTradingFeePercentage uint8
	TokenUpdateAuthority        uint8
	MigrationFeePercentage      uint8
	Padding0                    [8]uint8
	SwapBaseAmount              uint64
	MigrationQuoteThreshold     uint64
	MigrationBaseThreshold      uint64
	MigrationSqrtPrice          bin.Uint128
	LockedVestingConfig         LockedVestingConfig
	PreMigrationTokenSupply     uint64
	PostMigrationTokenSupply    uint64
	Padding1                    [2]bin.Uint128
	SqrtStartPrice              bin.Uint128
	Curve                       [20]LiquidityDistributionConfig
}

// DecodeVirtualPool проверяет дискриминатор и декодирует аккаунт пула.
func DecodeVirtualPool(data []byte) (*VirtualPool, error) {
	var pool VirtualPool
	if err := decodeAccount(accountVirtualPool, data, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

// DecodePoolConfig проверяет дискриминатор и декодирует конфиг пула.
func DecodePoolConfig(data []byte) (*PoolConfig, error) {
	var cfg PoolConfig
	if err := decodeAccount(accountPoolConfig, data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EncodeAccount serializes v with its account discriminator.
func EncodeAccount(name string, v interface{}) ([]byte, error) {
	disc := accountDiscriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeVirtualPool and EncodePoolConfig are the inverse of the decoders.
func EncodeVirtualPool(pool *VirtualPool) ([]byte, error) { return EncodeAccount(accountVirtualPool, pool) }
func EncodePoolConfig(cfg *PoolConfig) ([]byte, error)    { return EncodeAccount(accountPoolConfig, cfg) }

func decodeAccount(name string, data []byte, dst interface{}) error {
	disc := accountDiscriminator(name)
	if len(data) < len(disc) || !bytes.Equal(data[:len(disc)], disc[:]) {
		return fmt.Errorf("%w: not a %s account", ErrInvalidAccount, name)
	}
	if err := bin.NewBorshDecoder(data[len(disc):]).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidAccount, name, err)
	}
	return nil
}

// U128 converts a non-negative big.Int into the on-chain u128 layout.
func U128(v *big.Int) bin.Uint128 {
	buf := make([]byte, 16)
	v.FillBytes(buf)
	return bin.Uint128{
		Hi:         binary.BigEndian.Uint64(buf[:8]),
		Lo:         binary.BigEndian.Uint64(buf[8:]),
		Endianness: binary.LittleEndian,
	}
}

// Completed reports whether the curve reached its migration threshold.
func (p *VirtualPool) Completed(cfg *PoolConfig) bool {
	return p.IsMigrated != 0 || p.QuoteReserve >= cfg.MigrationQuoteThreshold
}
