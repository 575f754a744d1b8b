package oraclerelayd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives a single relay invocation. The relay carries no state between
// runs beyond the seen-store, so everything it needs arrives through this file.
type Config struct {
	// RPCEndpoint is the mapchain node's JSON-RPC address.
	RPCEndpoint string `yaml:"rpcEndpoint"`
	// SignerKey is the relay's hex-encoded secp256k1 private key.
	SignerKey string `yaml:"signerKey"`
	// User is the bech32 address whose pending submission this invocation
	// judges. The scheduler template fills it per run.
	User string `yaml:"user"`
	// StorePath locates the bbolt database recording already-relayed
	// submission cycles.
	StorePath string `yaml:"storePath"`
	// RequestTimeoutSeconds bounds each RPC round trip. Defaults to 15.
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds"`
}

// LoadConfig reads and validates the relay configuration.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if strings.TrimSpace(cfg.RPCEndpoint) == "" {
		return cfg, fmt.Errorf("rpcEndpoint required")
	}
	if strings.TrimSpace(cfg.SignerKey) == "" {
		return cfg, fmt.Errorf("signerKey required")
	}
	if strings.TrimSpace(cfg.User) == "" {
		return cfg, fmt.Errorf("user required")
	}
	if strings.TrimSpace(cfg.StorePath) == "" {
		return cfg, fmt.Errorf("storePath required")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 15
	}
	return cfg, nil
}

// RequestTimeout returns the configured per-call timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
