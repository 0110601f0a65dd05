// Package config loads the wallet daemon configuration from a YAML file
// and ATOLL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"atoll-wallet/go-core/internal/chain"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig
	Wallet WalletConfig
	Solana SolanaConfig
	Log    LogConfig
}

type ServerConfig struct {
	Addr           string
	Token          string
	AllowedOrigins []string
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// WalletConfig holds the keypair loaded at startup and how it is presented.
// An empty mnemonic starts the daemon without a keypair.
type WalletConfig struct {
	Mnemonic       string
	Passphrase     string
	Label          string
	Icon           string
	MainnetEnabled bool
}

type SolanaConfig struct {
	Endpoints  map[string]string
	RPCTimeout time.Duration
}

type LogConfig struct {
	Level string
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			MaxBodyBytes:   1 << 20,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Wallet: WalletConfig{MainnetEnabled: true},
		Solana: SolanaConfig{RPCTimeout: 30 * time.Second},
		Log:    LogConfig{Level: "info"},
	}
}

type fileConfig struct {
	Server fileServer `yaml:"server"`
	Wallet fileWallet `yaml:"wallet"`
	Solana fileSolana `yaml:"solana"`
	Log    fileLog    `yaml:"log"`
}

type fileServer struct {
	Addr           string   `yaml:"addr"`
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	MaxBodyBytes   int64    `yaml:"maxBodyBytes"`
	RateLimitRPS   *float64 `yaml:"rateLimitRps"`
	RateLimitBurst *int     `yaml:"rateLimitBurst"`
}

type fileWallet struct {
	Mnemonic       string `yaml:"mnemonic"`
	Passphrase     string `yaml:"passphrase"`
	Label          string `yaml:"label"`
	Icon           string `yaml:"icon"`
	MainnetEnabled *bool  `yaml:"mainnetEnabled"`
}

type fileSolana struct {
	Endpoints  map[string]string `yaml:"endpoints"`
	RPCTimeout time.Duration     `yaml:"rpcTimeout"`
}

type fileLog struct {
	Level string `yaml:"level"`
}

var defaultCandidates = []string{
	"configs/walletd.yaml",
	"walletd.yaml",
}

// LoadFromPath reads configPath, or the first readable default candidate
// when configPath is empty, then applies environment overrides. An explicit
// path that cannot be read or parsed is an error; missing default
// candidates are not.
func LoadFromPath(configPath string) (Config, error) {
	cfg := Default()

	candidates := defaultCandidates
	if configPath != "" {
		candidates = []string{configPath}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath != "" {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		merge(&cfg, parsed)
		break
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func merge(dst *Config, src fileConfig) {
	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if src.Server.Token != "" {
		dst.Server.Token = src.Server.Token
	}
	if src.Server.AllowedOrigins != nil {
		dst.Server.AllowedOrigins = src.Server.AllowedOrigins
	}
	if src.Server.MaxBodyBytes != 0 {
		dst.Server.MaxBodyBytes = src.Server.MaxBodyBytes
	}
	if src.Server.RateLimitRPS != nil {
		dst.Server.RateLimitRPS = *src.Server.RateLimitRPS
	}
	if src.Server.RateLimitBurst != nil {
		dst.Server.RateLimitBurst = *src.Server.RateLimitBurst
	}
	if src.Wallet.Mnemonic != "" {
		dst.Wallet.Mnemonic = src.Wallet.Mnemonic
	}
	if src.Wallet.Passphrase != "" {
		dst.Wallet.Passphrase = src.Wallet.Passphrase
	}
	if src.Wallet.Label != "" {
		dst.Wallet.Label = src.Wallet.Label
	}
	if src.Wallet.Icon != "" {
		dst.Wallet.Icon = src.Wallet.Icon
	}
	if src.Wallet.MainnetEnabled != nil {
		dst.Wallet.MainnetEnabled = *src.Wallet.MainnetEnabled
	}
	if src.Solana.Endpoints != nil {
		dst.Solana.Endpoints = src.Solana.Endpoints
	}
	if src.Solana.RPCTimeout != 0 {
		dst.Solana.RPCTimeout = src.Solana.RPCTimeout
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
}

// ApplyEnvOverrides applies ATOLL_* variables on top of cfg. Secrets are
// expected to come from here rather than from the file.
func ApplyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Addr, "ATOLL_RPC_ADDR")
	setString(&cfg.Server.Token, "ATOLL_RPC_TOKEN")
	setString(&cfg.Wallet.Mnemonic, "ATOLL_MNEMONIC")
	setString(&cfg.Wallet.Passphrase, "ATOLL_PASSPHRASE")
	setString(&cfg.Wallet.Label, "ATOLL_ACCOUNT_LABEL")
	setString(&cfg.Log.Level, "ATOLL_LOG_LEVEL")

	if raw := strings.TrimSpace(os.Getenv("ATOLL_MAINNET_ENABLED")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("ATOLL_MAINNET_ENABLED: %w", err)
		}
		cfg.Wallet.MainnetEnabled = v
	}
	if raw := strings.TrimSpace(os.Getenv("ATOLL_RPC_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("ATOLL_RPC_TIMEOUT: %w", err)
		}
		cfg.Solana.RPCTimeout = d
	}
	for _, c := range chain.AllClusters() {
		url := strings.TrimSpace(os.Getenv("ATOLL_ENDPOINT_" + strings.ToUpper(c.Identifier())))
		if url == "" {
			continue
		}
		if cfg.Solana.Endpoints == nil {
			cfg.Solana.Endpoints = make(map[string]string)
		}
		cfg.Solana.Endpoints[c.Identifier()] = url
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.maxBodyBytes must be positive"))
	}
	if c.Solana.RPCTimeout < 0 {
		errs = append(errs, errors.New("solana.rpcTimeout must not be negative"))
	}
	for name := range c.Solana.Endpoints {
		if _, ok := chain.LookupCluster(name); !ok {
			errs = append(errs, fmt.Errorf("solana.endpoints: unknown cluster %q", name))
		}
	}
	return errors.Join(errs...)
}

// ClusterEndpoints returns the configured endpoint overrides.
func (c Config) ClusterEndpoints() chain.Endpoints {
	out := make(chain.Endpoints, len(c.Solana.Endpoints))
	for name, url := range c.Solana.Endpoints {
		if cl, ok := chain.LookupCluster(name); ok {
			out[cl] = url
		}
	}
	return out
}
