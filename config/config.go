package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the mapd node configuration.
type Config struct {
	// RPCAddress is the listen address of the JSON-RPC endpoint.
	RPCAddress string `toml:"RPCAddress"`
	// DataDir holds the LevelDB state database.
	DataDir string `toml:"DataDir"`
	// NetworkName labels the deployment in logs.
	NetworkName string `toml:"NetworkName"`
	// RPCRatePerSecond and RPCRateBurst bound per-client request rates on
	// the RPC endpoint. Zero values fall back to the defaults.
	RPCRatePerSecond float64 `toml:"RPCRatePerSecond"`
	RPCRateBurst     int     `toml:"RPCRateBurst"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("config %s: DataDir required", path)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "localhost:8545"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "mapchain-local"
	}
	if cfg.RPCRatePerSecond <= 0 {
		cfg.RPCRatePerSecond = 20
	}
	if cfg.RPCRateBurst <= 0 {
		cfg.RPCRateBurst = 40
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{DataDir: "./mapd-data"}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
