package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, uint64(84532), cfg.ChainID)
	assert.Equal(t, "https://sepolia.base.org", cfg.RPC.URL)
	assert.Equal(t, 3*time.Minute, cfg.RPC.ReceiptTimeout)
	assert.Equal(t, "0xAF33ADd7918F685B2A82C1077bd8c07d220FFA04", cfg.Contracts.USDCAddress().Hex())
	assert.Equal(t, "0xA449bc031fA0b815cA14fAFD0c5EdB75ccD9c80f", cfg.Contracts.WrapperAddress().Hex())
	assert.Equal(t, "0x9d0C9Cde372c3b50e953E6dD620B503f2Bddc6A2", cfg.Contracts.GameFactoryAddress().Hex())

	assert.Equal(t, CallConfig{GasLow: 170000, GasHigh: 200000, Multiplier: 1.2}, cfg.Actions.Mint)
	assert.Equal(t, CallConfig{GasLow: 170000, GasHigh: 200000, Multiplier: 1.1}, cfg.Actions.Approve)
	assert.Equal(t, CallConfig{GasLow: 190000, GasHigh: 220000, Multiplier: 1.1}, cfg.Actions.Wrap)
	assert.Equal(t, CallConfig{GasLow: 190000, GasHigh: 220000, Multiplier: 1.2}, cfg.Actions.Unwrap)
	assert.Equal(t, CallConfig{GasLow: 1700000, GasHigh: 2300000, Multiplier: 1.2}, cfg.Actions.CreateGame)
	assert.Equal(t, CallConfig{GasLow: 1100000, GasHigh: 1500000, Multiplier: 1.2}, cfg.Actions.Guess)
	assert.Equal(t, AmountConfig{Low: 1000, High: 10000}, cfg.Actions.MintAmount)
	assert.Equal(t, AmountConfig{Low: 100, High: 3000}, cfg.Actions.ShieldAmount)
	assert.Equal(t, AmountConfig{Low: 100, High: 2999}, cfg.Actions.UnshieldAmount)
	assert.Len(t, cfg.Actions.Enabled, 5)

	assert.Equal(t, 8, cfg.Game.MaxLives)
	assert.True(t, cfg.Fleet.ShuffleWallets)

	minBalance, err := cfg.Fleet.MinBalanceWei()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000_000_000_000), minBalance)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fleet.yaml")
	require.NoError(t, os.WriteFile(file, []byte("rpc:\n  url: http://file:8545\nfleet:\n  workers: 3\n  tx-delay-min: 1s\n  tx-delay-max: 2s\n"), 0o600))

	t.Setenv("FLEET_FLEET_WORKERS", "5")
	t.Setenv("FLEET_GAME_ERROR_PROBABILITY", "0.5")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc-url", "", "")
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Parse([]string{"--rpc-url", "http://flag:8545"}))

	v, err := NewViper()
	require.NoError(t, err)
	cfg, err := Load(v, file, flags)
	require.NoError(t, err)

	// flag beats file
	assert.Equal(t, "http://flag:8545", cfg.RPC.URL)
	// env beats file, unset flag does not override
	assert.Equal(t, 5, cfg.Fleet.Workers)
	assert.Equal(t, 0.5, cfg.Game.ErrorProbability)
	// file beats defaults
	assert.Equal(t, time.Second, cfg.Fleet.TxDelayMin)
	assert.Equal(t, 2*time.Second, cfg.Fleet.TxDelayMax)
	// untouched default
	assert.Equal(t, uint64(84532), cfg.ChainID)
}

func TestLoad_MissingFile(t *testing.T) {
	v, err := NewViper()
	require.NoError(t, err)
	_, err = Load(v, filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)

	cfg.Contracts.USDC = "not an address"
	cfg.Actions.Wrap.GasLow = 300000
	cfg.Game.ErrorProbability = 2
	cfg.Fleet.MinBalance = "0.0000000000000000001"
	cfg.Log.Level = "loud"

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, substr := range []string{"contracts.usdc", "actions.wrap", "game.error-probability", "fleet.min-balance", "log.level"} {
		assert.Contains(t, err.Error(), substr)
	}
}

func TestValidate_Rules(t *testing.T) {
	cases := map[string]func(*Config){
		"chain-id":                     func(c *Config) { c.ChainID = 0 },
		"rpc.url":                      func(c *Config) { c.RPC.URL = "" },
		"rpc.receipt-poll-interval":    func(c *Config) { c.RPC.ReceiptPollInterval = 0 },
		"rpc.connect-attempts":         func(c *Config) { c.RPC.ConnectAttempts = 0 },
		"actions.enabled":              func(c *Config) { c.Actions.Enabled = nil },
		"actions.estimate-retry-delay": func(c *Config) { c.Actions.EstimateRetryDelay = 0 },
		"actions.guess.multiplier":     func(c *Config) { c.Actions.Guess.Multiplier = 0.9 },
		"actions.mint-amount.low":      func(c *Config) { c.Actions.MintAmount.Low = 0 },
		"actions.shield-amount.high":   func(c *Config) { c.Actions.ShieldAmount.High = 1 },
		"game.max-lives":               func(c *Config) { c.Game.MaxLives = 0 },
		"fleet.wallet-file":            func(c *Config) { c.Fleet.WalletFile = "" },
		"fleet.workers":                func(c *Config) { c.Fleet.Workers = -1 },
		"fleet.tx-delay-max":           func(c *Config) { c.Fleet.TxDelayMin, c.Fleet.TxDelayMax = 2*time.Second, time.Second },
		"fleet.wallet-deadline":        func(c *Config) { c.Fleet.WalletDeadline = -time.Second },
	}
	for key, breakIt := range cases {
		t.Run(key, func(t *testing.T) {
			cfg, err := DefaultConfig()
			require.NoError(t, err)
			breakIt(cfg)

			err = cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), key+":")
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	cfg.RPC.URL = ""
	cfg.Fleet.WalletFile = ""
	cfg.Game.MaxLives = 0

	err = cfg.Validate()
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
	for _, e := range merr.Errors {
		assert.ErrorIs(t, e, ErrInvalidConfig)
	}
}

func TestParseEther(t *testing.T) {
	cases := map[string]*big.Int{
		"0":      big.NewInt(0),
		"1":      big.NewInt(1_000_000_000_000_000_000),
		"0.0001": big.NewInt(100_000_000_000_000),
		" 0.5 ":  big.NewInt(500_000_000_000_000_000),
	}
	for in, expected := range cases {
		wei, err := ParseEther(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, wei, in)
	}

	for _, in := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		_, err := ParseEther(in)
		assert.Error(t, err, in)
	}
}
