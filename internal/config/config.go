// Package config provides configuration management for vswallet.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Network   NetworkConfig   `yaml:"network"`
	PriceFeed PriceFeedConfig `yaml:"price_feed"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NetworkConfig defines the Ethereum network endpoint settings.
type NetworkConfig struct {
	RPC               string `yaml:"rpc"`
	ChainID           int64  `yaml:"chain_id"`
	RPCTimeoutSeconds int    `yaml:"rpc_timeout_seconds"`
}

// PriceFeedConfig defines the on-chain price feed settings.
type PriceFeedConfig struct {
	Address string `yaml:"address"`
}

// MonitorConfig defines transaction monitor polling settings.
type MonitorConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxAttempts         int `yaml:"max_attempts"`
}

// SecretsConfig defines secret store settings. PassphraseEnv names the
// environment variable holding the store passphrase; the passphrase
// itself never appears in the config file.
type SecretsConfig struct {
	PassphraseEnv string `yaml:"passphrase_env"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file, overlaying defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{
			"path":   path,
			"reason": err.Error(),
		})
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the config file path under a home directory.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default vswallet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vswallet"
	}
	return filepath.Join(home, ".vswallet")
}

// ExpandHome resolves a leading ~/ against the user home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// RPCTimeout returns the configured RPC timeout as a duration.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.Network.RPCTimeoutSeconds) * time.Second
}

// PollInterval returns the configured monitor poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.PollIntervalSeconds) * time.Second
}

// DataDir returns the directory holding persisted wallet records.
func (c *Config) DataDir() string {
	return filepath.Join(ExpandHome(c.Home), "data")
}

// SecretsDir returns the directory holding encrypted secrets.
func (c *Config) SecretsDir() string {
	return filepath.Join(ExpandHome(c.Home), "secrets")
}
