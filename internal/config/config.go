package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cosmossdk.io/log"
	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"cryptolotto/internal/state"
)

const (
	EnvPrefix      = "LOTTO"
	ConfigFileName = "config.toml"
	KeyFileName    = "network_key.json"
)

type Config struct {
	Home string `toml:"-" mapstructure:"-"`

	ABCI    ABCIConfig    `toml:"abci" mapstructure:"abci"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`
	Metrics MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	FHE     FHEConfig     `toml:"fhe" mapstructure:"fhe"`
	Lotto   LottoConfig   `toml:"lotto" mapstructure:"lotto"`
}

type ABCIConfig struct {
	Address   string `toml:"address" mapstructure:"address"`
	Transport string `toml:"transport" mapstructure:"transport"` // socket|grpc
}

type LogConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"` // plain|json
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Address string `toml:"address" mapstructure:"address"`
}

type FHEConfig struct {
	// KeyFile is relative to <home>/config unless absolute.
	KeyFile         string `toml:"key_file" mapstructure:"key_file"`
	CacheSize       int    `toml:"cache_size" mapstructure:"cache_size"`
	MaxDecryptValue uint64 `toml:"max_decrypt_value" mapstructure:"max_decrypt_value"`
}

// LottoConfig supplies genesis defaults for fields the genesis file omits.
type LottoConfig struct {
	Owner               string `toml:"owner" mapstructure:"owner"`
	TicketPrice         uint64 `toml:"ticket_price" mapstructure:"ticket_price"`
	PartialPrize        uint64 `toml:"partial_prize" mapstructure:"partial_prize"`
	JackpotPrize        uint64 `toml:"jackpot_prize" mapstructure:"jackpot_prize"`
	Digits              uint32 `toml:"digits" mapstructure:"digits"`
	ClaimPolicy         string `toml:"claim_policy" mapstructure:"claim_policy"`
	RevealWinningDigits bool   `toml:"reveal_winning_digits" mapstructure:"reveal_winning_digits"`
	Randomness          string `toml:"randomness" mapstructure:"randomness"` // beacon|block
}

func DefaultConfig() Config {
	return Config{
		ABCI:    ABCIConfig{Address: "tcp://127.0.0.1:26658", Transport: "socket"},
		Log:     LogConfig{Level: "info", Format: "plain"},
		Metrics: MetricsConfig{Enabled: false, Address: "127.0.0.1:26660"},
		FHE:     FHEConfig{KeyFile: KeyFileName, CacheSize: 4096, MaxDecryptValue: 1 << 32},
		Lotto: LottoConfig{
			TicketPrice:  100,
			PartialPrize: 100,
			JackpotPrize: 1_000_000,
			Digits:       4,
			ClaimPolicy:  string(state.ClaimByOwner),
			Randomness:   "beacon",
		},
	}
}

func (c LottoConfig) Params() state.Params {
	return state.Params{
		TicketPrice:         c.TicketPrice,
		PartialPrize:        c.PartialPrize,
		JackpotPrize:        c.JackpotPrize,
		Digits:              c.Digits,
		ClaimPolicy:         state.ClaimPolicy(c.ClaimPolicy),
		RevealWinningDigits: c.RevealWinningDigits,
	}
}

func (c Config) ConfigDir() string { return filepath.Join(c.Home, "config") }

func (c Config) DataDir() string { return filepath.Join(c.Home, "data") }

func (c Config) DBPath() string { return filepath.Join(c.DataDir(), "state.db") }

func (c Config) KeyFilePath() string {
	if filepath.IsAbs(c.FHE.KeyFile) {
		return c.FHE.KeyFile
	}
	return filepath.Join(c.ConfigDir(), c.FHE.KeyFile)
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.ABCI.Address == "" {
		errs = multierror.Append(errs, errors.New("abci.address is required"))
	}
	if c.ABCI.Transport != "socket" && c.ABCI.Transport != "grpc" {
		errs = multierror.Append(errs, fmt.Errorf("abci.transport must be socket or grpc, got %q", c.ABCI.Transport))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "plain" && c.Log.Format != "json" {
		errs = multierror.Append(errs, fmt.Errorf("log.format must be plain or json, got %q", c.Log.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errs = multierror.Append(errs, errors.New("metrics.address is required when metrics are enabled"))
	}
	if c.FHE.KeyFile == "" {
		errs = multierror.Append(errs, errors.New("fhe.key_file is required"))
	}
	if c.FHE.CacheSize <= 0 {
		errs = multierror.Append(errs, errors.New("fhe.cache_size must be > 0"))
	}
	if c.Lotto.Randomness != "beacon" && c.Lotto.Randomness != "block" {
		errs = multierror.Append(errs, fmt.Errorf("lotto.randomness must be beacon or block, got %q", c.Lotto.Randomness))
	}
	return errs.ErrorOrNil()
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("abci.address", d.ABCI.Address)
	v.SetDefault("abci.transport", d.ABCI.Transport)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
	v.SetDefault("fhe.key_file", d.FHE.KeyFile)
	v.SetDefault("fhe.cache_size", d.FHE.CacheSize)
	v.SetDefault("fhe.max_decrypt_value", d.FHE.MaxDecryptValue)
	v.SetDefault("lotto.owner", d.Lotto.Owner)
	v.SetDefault("lotto.ticket_price", d.Lotto.TicketPrice)
	v.SetDefault("lotto.partial_prize", d.Lotto.PartialPrize)
	v.SetDefault("lotto.jackpot_prize", d.Lotto.JackpotPrize)
	v.SetDefault("lotto.digits", d.Lotto.Digits)
	v.SetDefault("lotto.claim_policy", d.Lotto.ClaimPolicy)
	v.SetDefault("lotto.reveal_winning_digits", d.Lotto.RevealWinningDigits)
	v.SetDefault("lotto.randomness", d.Lotto.Randomness)
}

// Load reads <home>/config/config.toml (if present), applies LOTTO_* env
// overrides and any flags already bound to v, and validates the result.
func Load(v *viper.Viper, home string) (Config, error) {
	setDefaults(v, DefaultConfig())
	v.SetConfigFile(filepath.Join(home, "config", ConfigFileName))
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.Home = home
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// WriteConfigFile writes c as TOML to path.
func WriteConfigFile(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// NewLogger builds the node logger from c.
func NewLogger(c LogConfig, w io.Writer) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := []log.Option{log.LevelOption(lvl)}
	if c.Format == "json" {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(w, opts...), nil
}
