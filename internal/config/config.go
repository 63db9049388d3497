// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override (CONVICTION_RPC_URL, ...).
const EnvPrefix = "CONVICTION"

const (
	NetworkMainnet = "mainnet"
	NetworkDevnet  = "devnet"
)

var networkRPC = map[string]string{
	NetworkMainnet: "https://api.mainnet-beta.solana.com",
	NetworkDevnet:  "https://api.devnet.solana.com",
}

// Default program and config addresses.
const (
	DefaultDBCProgramID = "dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN"
	DefaultJupiterURL   = "https://api.jup.ag/swap/v1"
)

// Upper bounds of the retry budgets.
const (
	MaxTxRetries          = 5
	MaxPoolLookupAttempts = 3
	MaxBinStep            = 10_000
)

// FeeConfig - параметры оценки priority fee (micro-lamports per CU).
type FeeConfig struct {
	Floor   uint64 `mapstructure:"floor"`
	Default uint64 `mapstructure:"default"`
}

type ComputeConfig struct {
	PoolUnits      uint32 `mapstructure:"pool_units"`
	InsuranceUnits uint32 `mapstructure:"insurance_units"`
	SwapUnits      uint32 `mapstructure:"swap_units"`
}

type TxConfig struct {
	MaxRetries     uint          `mapstructure:"max_retries"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

type PoolLookupConfig struct {
	Attempts uint          `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// CurveConfig holds the fixed parameters of the insurance curve pool.
type CurveConfig struct {
	BinStep        uint16 `mapstructure:"bin_step"`
	BaseFactor     uint16 `mapstructure:"base_factor"`
	ActivationType uint8  `mapstructure:"activation_type"`
	HasAlphaVault  bool   `mapstructure:"has_alpha_vault"`
}

type TokenConfig struct {
	BaseDecimals  uint8 `mapstructure:"base_decimals"`
	QuoteDecimals uint8 `mapstructure:"quote_decimals"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	APIKey  string `mapstructure:"api_key"`
	DevMode bool   `mapstructure:"dev_mode"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
}

// rawConfig is the shape viper unmarshals into; addresses are still strings.
type rawConfig struct {
	Network          string           `mapstructure:"network"`
	RPCURL           string           `mapstructure:"rpc_url"`
	FeeEndpoint      string           `mapstructure:"fee_endpoint"`
	JupiterURL       string           `mapstructure:"jupiter_url"`
	JupiterAPIKey    string           `mapstructure:"jupiter_api_key"`
	JupiterRPS       float64          `mapstructure:"jupiter_rps"`
	ProgramID        string           `mapstructure:"program_id"`
	DBCProgramID     string           `mapstructure:"dbc_program_id"`
	StandardConfig   string           `mapstructure:"standard_config"`
	AntiSniperConfig string           `mapstructure:"anti_sniper_config"`
	QuoteMint        string           `mapstructure:"quote_mint"`
	WalletPrivateKey string           `mapstructure:"wallet_private_key"`
	FeeReserve       uint64           `mapstructure:"fee_reserve"`
	Fee              FeeConfig        `mapstructure:"fee"`
	Compute          ComputeConfig    `mapstructure:"compute"`
	Tx               TxConfig         `mapstructure:"tx"`
	PoolLookup       PoolLookupConfig `mapstructure:"pool_lookup"`
	Curve            CurveConfig      `mapstructure:"curve"`
	Token            TokenConfig      `mapstructure:"token"`
	Server           ServerConfig     `mapstructure:"server"`
	Log              LogConfig        `mapstructure:"log"`
}

// EngineConfig is built once at startup and passed by value. Nothing in the
// engine reads the environment after LoadConfig returns.
type EngineConfig struct {
	Network          string
	RPCURL           string
	FeeEndpoint      string
	JupiterURL       string
	JupiterAPIKey    string
	JupiterRPS       float64
	ProgramID        solana.PublicKey
	DBCProgramID     solana.PublicKey
	StandardConfig   solana.PublicKey
	AntiSniperConfig solana.PublicKey
	QuoteMint        solana.PublicKey
	WalletPrivateKey string
	FeeReserve       uint64
	Fee              FeeConfig
	Compute          ComputeConfig
	Tx               TxConfig
	PoolLookup       PoolLookupConfig
	Curve            CurveConfig
	Token            TokenConfig
	Server           ServerConfig
	Log              LogConfig
}

// PoolConfigFor returns the venue config address for a launch.
func (c EngineConfig) PoolConfigFor(antiSniper bool) solana.PublicKey {
	if antiSniper {
		return c.AntiSniperConfig
	}
	return c.StandardConfig
}

var defaults = map[string]interface{}{
	"network":                 NetworkMainnet,
	"jupiter_url":             DefaultJupiterURL,
	"jupiter_rps":             1.0,
	"dbc_program_id":          DefaultDBCProgramID,
	"quote_mint":              solana.WrappedSol.String(),
	"fee_reserve":             20_000_000,
	"fee.floor":               10_000,
	"fee.default":             100_000,
	"compute.pool_units":      400_000,
	"compute.insurance_units": 600_000,
	"compute.swap_units":      300_000,
	"tx.max_retries":          5,
	"tx.poll_interval":        "500ms",
	"tx.confirm_timeout":      "60s",
	"pool_lookup.attempts":    3,
	"pool_lookup.delay":       "1s",
	"curve.bin_step":          100,
	"curve.base_factor":       10_000,
	"curve.activation_type":   1,
	"token.base_decimals":     6,
	"token.quote_decimals":    9,
	"server.addr":             ":8090",
	"log.file":                "engine.log",
	"log.max_size":            100,
	"log.max_age":             7,
	"log.max_backups":         3,
	"log.compress":            true,
}

// LoadConfig reads the file at path, applies CONVICTION_* environment
// overrides and returns a validated EngineConfig.
func LoadConfig(path string) (EngineConfig, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	loadEnvironmentVariables(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return EngineConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return EngineConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return build(raw)
}

// loadEnvironmentVariables включает переопределение любых ключей через окружение.
func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only sees keys viper already knows about
	for _, key := range []string{"rpc_url", "fee_endpoint", "jupiter_api_key", "program_id",
		"standard_config", "anti_sniper_config", "wallet_private_key", "server.api_key"} {
		_ = v.BindEnv(key)
	}
}

func build(raw rawConfig) (EngineConfig, error) {
	cfg := EngineConfig{
		Network:          strings.ToLower(strings.TrimSpace(raw.Network)),
		RPCURL:           strings.TrimSpace(raw.RPCURL),
		FeeEndpoint:      strings.TrimSpace(raw.FeeEndpoint),
		JupiterURL:       strings.TrimRight(strings.TrimSpace(raw.JupiterURL), "/"),
		JupiterAPIKey:    strings.TrimSpace(raw.JupiterAPIKey),
		JupiterRPS:       raw.JupiterRPS,
		WalletPrivateKey: strings.TrimSpace(raw.WalletPrivateKey),
		FeeReserve:       raw.FeeReserve,
		Fee:              raw.Fee,
		Compute:          raw.Compute,
		Tx:               raw.Tx,
		PoolLookup:       raw.PoolLookup,
		Curve:            raw.Curve,
		Token:            raw.Token,
		Server:           raw.Server,
		Log:              raw.Log,
	}

	if cfg.RPCURL == "" {
		rpcURL, ok := networkRPC[cfg.Network]
		if !ok {
			return EngineConfig{}, fmt.Errorf("unknown network %q", raw.Network)
		}
		cfg.RPCURL = rpcURL
	}
	if cfg.FeeEndpoint == "" {
		cfg.FeeEndpoint = cfg.RPCURL
	}

	keys := []struct {
		name string
		raw  string
		dst  *solana.PublicKey
	}{
		{"program_id", raw.ProgramID, &cfg.ProgramID},
		{"dbc_program_id", raw.DBCProgramID, &cfg.DBCProgramID},
		{"standard_config", raw.StandardConfig, &cfg.StandardConfig},
		{"anti_sniper_config", raw.AntiSniperConfig, &cfg.AntiSniperConfig},
		{"quote_mint", raw.QuoteMint, &cfg.QuoteMint},
	}
	for _, k := range keys {
		if strings.TrimSpace(k.raw) == "" {
			return EngineConfig{}, fmt.Errorf("missing %s in configuration", k.name)
		}
		pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(k.raw))
		if err != nil {
			return EngineConfig{}, fmt.Errorf("invalid %s: %w", k.name, err)
		}
		*k.dst = pk
	}

	return cfg, validateConfig(cfg)
}

func validateConfig(cfg EngineConfig) error {
	for name, raw := range map[string]string{
		"rpc_url":      cfg.RPCURL,
		"fee_endpoint": cfg.FeeEndpoint,
		"jupiter_url":  cfg.JupiterURL,
	} {
		if err := validateURL(raw, "http"); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if cfg.StandardConfig.Equals(cfg.AntiSniperConfig) {
		return errors.New("standard_config and anti_sniper_config must differ")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg EngineConfig) error {
	if cfg.Fee.Default < cfg.Fee.Floor {
		return errors.New("fee.default must not be below fee.floor")
	}
	if cfg.Compute.PoolUnits == 0 || cfg.Compute.InsuranceUnits == 0 || cfg.Compute.SwapUnits == 0 {
		return errors.New("compute unit limits must be positive")
	}
	if cfg.Tx.MaxRetries == 0 || cfg.Tx.MaxRetries > MaxTxRetries {
		return fmt.Errorf("tx.max_retries must be within [1, %d]", MaxTxRetries)
	}
	if cfg.Tx.PollInterval <= 0 || cfg.Tx.ConfirmTimeout <= cfg.Tx.PollInterval {
		return errors.New("invalid tx poll interval or confirm timeout")
	}
	if cfg.PoolLookup.Attempts == 0 || cfg.PoolLookup.Attempts > MaxPoolLookupAttempts {
		return fmt.Errorf("pool_lookup.attempts must be within [1, %d]", MaxPoolLookupAttempts)
	}
	if cfg.PoolLookup.Delay < 0 {
		return errors.New("invalid pool_lookup.delay")
	}
	if cfg.Curve.BinStep == 0 || cfg.Curve.BinStep > MaxBinStep {
		return fmt.Errorf("curve.bin_step must be within [1, %d]", MaxBinStep)
	}
	if cfg.JupiterRPS <= 0 {
		return errors.New("invalid jupiter_rps")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}
