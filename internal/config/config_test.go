// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProgram    = solana.NewWallet().PublicKey().String()
	testStandard   = solana.NewWallet().PublicKey().String()
	testAntiSniper = solana.NewWallet().PublicKey().String()
)

func validConfigJSON() string {
	return `{
    "network": "devnet",
    "program_id": "` + testProgram + `",
    "standard_config": "` + testStandard + `",
    "anti_sniper_config": "` + testAntiSniper + `",
    "fee": {"floor": 5000, "default": 20000},
    "tx": {"max_retries": 5, "poll_interval": "250ms", "confirm_timeout": "30s"}
}`
}

func setupTestConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	return configPath
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(setupTestConfig(t, validConfigJSON()))
	require.NoError(t, err)

	assert.Equal(t, NetworkDevnet, cfg.Network)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.RPCURL)
	assert.Equal(t, cfg.RPCURL, cfg.FeeEndpoint, "fee endpoint defaults to the rpc url")
	assert.Equal(t, testProgram, cfg.ProgramID.String())
	assert.Equal(t, solana.WrappedSol, cfg.QuoteMint)
	assert.Equal(t, uint64(5000), cfg.Fee.Floor)
	assert.Equal(t, uint(5), cfg.Tx.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Tx.PollInterval)
	assert.Equal(t, uint(3), cfg.PoolLookup.Attempts)
	assert.Equal(t, time.Second, cfg.PoolLookup.Delay)
	assert.Equal(t, uint16(100), cfg.Curve.BinStep)

	assert.Equal(t, testStandard, cfg.PoolConfigFor(false).String())
	assert.Equal(t, testAntiSniper, cfg.PoolConfigFor(true).String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CONVICTION_RPC_URL", "https://rpc.example.org")
	t.Setenv("CONVICTION_FEE_FLOOR", "7000")

	cfg, err := LoadConfig(setupTestConfig(t, validConfigJSON()))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, uint64(7000), cfg.Fee.Floor)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing program id",
			content: `{"standard_config": "` + testStandard + `", "anti_sniper_config": "` + testAntiSniper + `"}`,
		},
		{
			name: "bad address",
			content: `{"program_id": "nope", "standard_config": "` + testStandard +
				`", "anti_sniper_config": "` + testAntiSniper + `"}`,
		},
		{
			name: "same configs",
			content: `{"program_id": "` + testProgram + `", "standard_config": "` + testStandard +
				`", "anti_sniper_config": "` + testStandard + `"}`,
		},
		{
			name: "unknown network",
			content: `{"network": "moonnet", "program_id": "` + testProgram + `", "standard_config": "` +
				testStandard + `", "anti_sniper_config": "` + testAntiSniper + `"}`,
		},
		{
			name: "default fee below floor",
			content: `{"program_id": "` + testProgram + `", "standard_config": "` + testStandard +
				`", "anti_sniper_config": "` + testAntiSniper + `", "fee": {"floor": 100, "default": 10}}`,
		},
		{
			name: "tx retries above cap",
			content: `{"program_id": "` + testProgram + `", "standard_config": "` + testStandard +
				`", "anti_sniper_config": "` + testAntiSniper + `", "tx": {"max_retries": 50}}`,
		},
		{
			name: "pool lookup attempts above cap",
			content: `{"program_id": "` + testProgram + `", "standard_config": "` + testStandard +
				`", "anti_sniper_config": "` + testAntiSniper + `", "pool_lookup": {"attempts": 100}}`,
		},
		{
			name: "bin step above cap",
			content: `{"program_id": "` + testProgram + `", "standard_config": "` + testStandard +
				`", "anti_sniper_config": "` + testAntiSniper + `", "curve": {"bin_step": 20000}}`,
		},
		{
			name: "bad rpc scheme",
			content: `{"rpc_url": "ftp://node", "program_id": "` + testProgram + `", "standard_config": "` +
				testStandard + `", "anti_sniper_config": "` + testAntiSniper + `"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(setupTestConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
