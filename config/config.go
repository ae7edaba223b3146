package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults mirror the original deployment: 10^8 currency units minted to the
// operator at genesis and a 50,000-unit faucet grant per identity.
const (
	DefaultInitialSupply uint64 = 100_000_000
	DefaultFaucetAmount  uint64 = 50_000
)

type Config struct {
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`
	FeeCollector  string `toml:"FeeCollector"`
	InitialSupply uint64 `toml:"InitialSupply"`
	FaucetAmount  uint64 `toml:"FaucetAmount"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "blaze-local"
	}
	if cfg.InitialSupply == 0 {
		cfg.InitialSupply = DefaultInitialSupply
	}
	if cfg.FaucetAmount == 0 {
		cfg.FaucetAmount = DefaultFaucetAmount
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects configurations the engines could not be assembled from.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FeeCollector) != "" {
		if _, err := c.FeeCollectorAddress(); err != nil {
			return err
		}
	}
	return nil
}

// FeeCollectorAddress decodes the configured fee collector into a raw address.
// An empty setting yields the zero address; the embedding application decides
// whether that is acceptable.
func (c *Config) FeeCollectorAddress() ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(c.FeeCollector)
	if trimmed == "" {
		return addr, nil
	}
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("config: decode fee collector: %w", err)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("config: fee collector must be 20 bytes (got %d)", len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}
