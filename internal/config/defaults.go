package config

// DefaultRPCURL is the default network endpoint. Sepolia via PublicNode,
// which requires no API key.
const DefaultRPCURL = "https://ethereum-sepolia-rpc.publicnode.com"

// DefaultChainID is the Sepolia test network chain ID.
const DefaultChainID = 11155111

// DefaultPriceFeedAddress is the Sepolia ETH/USD aggregator address.
const DefaultPriceFeedAddress = "0x694AA1769357215DE4FAC081bf1f309aDC325306"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.vswallet",
		Network: NetworkConfig{
			RPC:               DefaultRPCURL,
			ChainID:           DefaultChainID,
			RPCTimeoutSeconds: 15,
		},
		PriceFeed: PriceFeedConfig{
			Address: DefaultPriceFeedAddress,
		},
		Monitor: MonitorConfig{
			PollIntervalSeconds: 5,
			MaxAttempts:         60,
		},
		Secrets: SecretsConfig{
			PassphraseEnv: "VSWALLET_PASSPHRASE",
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.vswallet/vswallet.log",
		},
	}
}
