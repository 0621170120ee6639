// Package config loads client settings from flags, environment (ZKLOGIN_*) and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/layer-3/zklogin/core"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ZKLOGIN"

// ProviderConfig describes the OAuth provider
type ProviderConfig struct {
	AuthURL     string `mapstructure:"auth_url"`
	ClientID    string `mapstructure:"client_id"`
	RedirectURI string `mapstructure:"redirect_uri"`
}

// SuiConfig points at the Sui full node
type SuiConfig struct {
	RPCURL string  `mapstructure:"rpc_url"`
	RPS    float64 `mapstructure:"rps"`
	Burst  int     `mapstructure:"burst"`
	// FaucetURL is shown to the user for funding a fresh address
	FaucetURL string `mapstructure:"faucet_url"`
}

// ProverConfig points at the proving service
type ProverConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SaltConfig selects where user salts live
type SaltConfig struct {
	// Policy is "plaintext" or "encrypted"
	Policy string `mapstructure:"policy"`
	// Passphrase seals salts under the encrypted policy. Prompted for when empty.
	Passphrase string `mapstructure:"passphrase"`
}

// StoreConfig is the local session store
type StoreConfig struct {
	// Dir holds the local ekv file store used for the session and plaintext salts
	Dir        string        `mapstructure:"dir"`
	Password   string        `mapstructure:"password"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// RedisConfig is shared by the encrypted salt store and the redis event backend
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// EventsConfig selects where state transitions are published
type EventsConfig struct {
	// Backend is "none", "gochannel" or "redis"
	Backend string `mapstructure:"backend"`
	Topic   string `mapstructure:"topic"`
}

// TxConfig holds the test transfer and mint parameters
type TxConfig struct {
	Recipient   string `mapstructure:"recipient"`
	AmountMist  uint64 `mapstructure:"amount_mist"`
	GasBudget   uint64 `mapstructure:"gas_budget"`
	NFTPackage  string `mapstructure:"nft_package"`
	NFTModule   string `mapstructure:"nft_module"`
	NFTFunction string `mapstructure:"nft_function"`
}

// HTTPConfig is the loopback listener of the serve command
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is the complete client configuration
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Sui      SuiConfig      `mapstructure:"sui"`
	Prover   ProverConfig   `mapstructure:"prover"`
	Salt     SaltConfig     `mapstructure:"salt"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Tx       TxConfig       `mapstructure:"tx"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

// SetDefaults registers every key so environment variables bind even without a file
func SetDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("provider.auth_url", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("provider.client_id", "")
	v.SetDefault("provider.redirect_uri", "http://127.0.0.1:5173/")

	v.SetDefault("sui.rpc_url", "https://fullnode.devnet.sui.io")
	v.SetDefault("sui.rps", 10)
	v.SetDefault("sui.burst", 5)
	v.SetDefault("sui.faucet_url", "https://faucet.devnet.sui.io")

	v.SetDefault("prover.url", "https://prover-dev.mystenlabs.com/v1")
	v.SetDefault("prover.timeout", 60*time.Second)

	v.SetDefault("salt.policy", "encrypted")
	v.SetDefault("salt.passphrase", "")

	v.SetDefault("store.dir", filepath.Join(home, ".zklogin"))
	v.SetDefault("store.password", "")
	v.SetDefault("store.session_ttl", 24*time.Hour)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.prefix", "zklogin:")

	v.SetDefault("events.backend", "none")
	v.SetDefault("events.topic", "zklogin.transitions")

	v.SetDefault("tx.recipient", "0x6c1aa061d0495b71eefd97e7d0a1cef0092f5c64d1b751decdc7b5ad0d039c02")
	v.SetDefault("tx.amount_mist", uint64(core.MistPerSui))
	v.SetDefault("tx.gas_budget", 10_000_000)
	v.SetDefault("tx.nft_package", "0x3f9cd80debc244723ecb3c9748b52be1251130cdc28de545f701c6177520a8d7")
	v.SetDefault("tx.nft_module", "nft")
	v.SetDefault("tx.nft_function", "mint")

	v.SetDefault("http.addr", "127.0.0.1:5173")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// New returns a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional file and decodes the configuration
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks that every required endpoint and credential is present
func (c *Config) Validate() error {
	var missing []string
	for key, val := range map[string]string{
		"provider.auth_url":     c.Provider.AuthURL,
		"provider.client_id":    c.Provider.ClientID,
		"provider.redirect_uri": c.Provider.RedirectURI,
		"sui.rpc_url":           c.Sui.RPCURL,
		"prover.url":            c.Prover.URL,
		"store.dir":             c.Store.Dir,
		"store.password":        c.Store.Password,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	switch c.Salt.Policy {
	case "plaintext":
	case "encrypted":
		if c.Redis.URL == "" {
			missing = append(missing, "redis.url")
		}
	default:
		return fmt.Errorf("salt.policy must be plaintext or encrypted, got %q: %w", c.Salt.Policy, core.ErrMissingConfig)
	}

	switch c.Events.Backend {
	case "none", "gochannel":
	case "redis":
		if c.Redis.URL == "" {
			missing = append(missing, "redis.url")
		}
	default:
		return fmt.Errorf("events.backend must be none, gochannel or redis, got %q: %w", c.Events.Backend, core.ErrMissingConfig)
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: %s", core.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Logger builds the process logger
func (c LogConfig) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if c.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
