package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable overriding a config key,
	// e.g. FLEET_RPC_URL overrides rpc.url.
	EnvPrefix = "FLEET"

	configFileType = "yaml"
)

var (
	//go:embed default-config.yaml
	defaultConfig []byte

	// ErrInvalidConfig is wrapped by every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the complete configuration of a fleet run.
type Config struct {
	ChainID   uint64          `mapstructure:"chain-id" validate:"gt=0"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Actions   ActionsConfig   `mapstructure:"actions"`
	Game      GameConfig      `mapstructure:"game"`
	Fleet     FleetConfig     `mapstructure:"fleet"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Report    ReportConfig    `mapstructure:"report"`
}

// RPCConfig configures the connection to the node.
type RPCConfig struct {
	URL                 string        `mapstructure:"url" validate:"required"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt-poll-interval" validate:"gt=0"`
	ReceiptTimeout      time.Duration `mapstructure:"receipt-timeout" validate:"gte=0"`
	RateLimit           float64       `mapstructure:"rate-limit" validate:"gte=0"`
	RateBurst           int           `mapstructure:"rate-burst" validate:"gte=0"`
	ConnectAttempts     uint64        `mapstructure:"connect-attempts" validate:"gte=1"`
}

// ContractsConfig holds the addresses of the contracts the fleet interacts with.
type ContractsConfig struct {
	USDC        string `mapstructure:"usdc" validate:"eth_addr"`
	Wrapper     string `mapstructure:"wrapper" validate:"eth_addr"`
	GameFactory string `mapstructure:"game-factory" validate:"eth_addr"`
}

func (c ContractsConfig) USDCAddress() common.Address {
	return common.HexToAddress(c.USDC)
}

func (c ContractsConfig) WrapperAddress() common.Address {
	return common.HexToAddress(c.Wrapper)
}

func (c ContractsConfig) GameFactoryAddress() common.Address {
	return common.HexToAddress(c.GameFactory)
}

// CallConfig configures the gas of one contract call.
type CallConfig struct {
	GasLow     uint64  `mapstructure:"gas-low" validate:"gt=0"`
	GasHigh    uint64  `mapstructure:"gas-high" validate:"gtefield=GasLow"`
	Multiplier float64 `mapstructure:"multiplier" validate:"gte=1"`
}

// AmountConfig is an inclusive range of whole tokens.
type AmountConfig struct {
	Low  uint64 `mapstructure:"low" validate:"gt=0"`
	High uint64 `mapstructure:"high" validate:"gtefield=Low"`
}

// ActionsConfig configures the actions run for every wallet.
type ActionsConfig struct {
	Enabled            []string      `mapstructure:"enabled" validate:"min=1,dive,required"`
	EstimateRetryDelay time.Duration `mapstructure:"estimate-retry-delay" validate:"gt=0"`

	Mint       CallConfig `mapstructure:"mint"`
	Approve    CallConfig `mapstructure:"approve"`
	Wrap       CallConfig `mapstructure:"wrap"`
	Unwrap     CallConfig `mapstructure:"unwrap"`
	CreateGame CallConfig `mapstructure:"create-game"`
	Guess      CallConfig `mapstructure:"guess"`

	MintAmount     AmountConfig `mapstructure:"mint-amount"`
	ShieldAmount   AmountConfig `mapstructure:"shield-amount"`
	UnshieldAmount AmountConfig `mapstructure:"unshield-amount"`
}

// GameConfig configures the guessing game episodes.
type GameConfig struct {
	MaxLives         int     `mapstructure:"max-lives" validate:"gte=1"`
	ErrorProbability float64 `mapstructure:"error-probability" validate:"gte=0,lte=1"`
}

// FleetConfig configures wallet scheduling.
type FleetConfig struct {
	WalletFile     string        `mapstructure:"wallet-file" validate:"required"`
	Workers        int           `mapstructure:"workers" validate:"gte=0"`
	ShuffleWallets bool          `mapstructure:"shuffle-wallets"`
	MinBalance     string        `mapstructure:"min-balance" validate:"ether"`
	TxDelayMin     time.Duration `mapstructure:"tx-delay-min" validate:"gte=0"`
	TxDelayMax     time.Duration `mapstructure:"tx-delay-max" validate:"gtefield=TxDelayMin"`
	WalletDeadline time.Duration `mapstructure:"wallet-deadline" validate:"gte=0"`
	Seed           int64         `mapstructure:"seed"`
	StatsInterval  time.Duration `mapstructure:"stats-interval" validate:"gte=0"`
}

// MinBalanceWei returns the minimum balance in wei.
func (c FleetConfig) MinBalanceWei() (*big.Int, error) {
	return ParseEther(c.MinBalance)
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"loglevel"`
	File  string `mapstructure:"file"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    uint `mapstructure:"port"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type ReportConfig struct {
	File string `mapstructure:"file"`
}

// NewViper returns a viper instance preloaded with the embedded defaults and set
// up to read FLEET_* environment variables.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(configFileType)
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("could not read default config: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v, nil
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType(configFileType)
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("could not read default config: %w", err)
	}
	return unmarshal(v)
}

// Load merges the optional config file into v, binds flags and returns the
// validated configuration. Precedence is flags, environment, config file, defaults.
func Load(v *viper.Viper, file string, flags *pflag.FlagSet) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", file, err)
		}
	}
	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"rpc-url":         "rpc.url",
	"workers":         "fleet.workers",
	"wallets":         "fleet.wallet-file",
	"shuffle-wallets": "fleet.shuffle-wallets",
	"seed":            "fleet.seed",
	"wallet-deadline": "fleet.wallet-deadline",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"metrics":         "metrics.enabled",
	"metrics-port":    "metrics.port",
	"tracing":         "tracing.enabled",
	"report":          "report.file",
}

// BindFlags binds every known flag present in flags to its config key. A flag
// only overrides the config when it was set explicitly.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("could not bind flag %s: %w", name, err)
		}
	}
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	return &cfg, nil
}

// validate checks struct tags. Field names in its errors are the config keys.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"ether": func(fl validator.FieldLevel) bool {
			_, err := ParseEther(fl.Field().String())
			return err == nil
		},
		"loglevel": func(fl validator.FieldLevel) bool {
			_, err := zerolog.ParseLevel(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("could not register %s validation: %v", tag, err))
		}
	}
	return v
}

// Validate checks the configuration. All problems are reported at once, each
// wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var result *multierror.Error
	for _, fe := range fieldErrs {
		result = multierror.Append(result, fieldError(fe))
	}
	return result.ErrorOrNil()
}

// fieldError names the config key, the failed rule and the rejected value.
func fieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return fmt.Errorf("%w: %s: %v fails %s", ErrInvalidConfig, key, fe.Value(), rule)
}

// weiPerEther is 10^18.
var weiPerEther = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// ParseEther parses a decimal ether amount such as "0.0001" into wei. Amounts
// with more than 18 decimals are rejected.
func ParseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal amount", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%q is negative", s)
	}
	r.Mul(r, weiPerEther)
	if !r.IsInt() {
		return nil, fmt.Errorf("%q has more than 18 decimals", s)
	}
	return new(big.Int).Set(r.Num()), nil
}
