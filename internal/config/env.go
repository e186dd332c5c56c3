package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome      = "VSWALLET_HOME"
	EnvRPC       = "VSWALLET_RPC"
	EnvChainID   = "VSWALLET_CHAIN_ID"
	EnvPriceFeed = "VSWALLET_PRICE_FEED"
	EnvLogLevel  = "VSWALLET_LOG_LEVEL"
	EnvLogFile   = "VSWALLET_LOG_FILE"
)

// ApplyEnvironment applies environment variable overrides to the
// configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvChainID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			cfg.Network.ChainID = id
		}
	}

	if v := os.Getenv(EnvPriceFeed); v != "" {
		cfg.PriceFeed.Address = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// SanitizeURL trims whitespace and any trailing slash from a URL string.
func SanitizeURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}
