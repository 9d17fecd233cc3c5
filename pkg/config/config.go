package config

import (
	"math/big"
	"time"
)

// Config is the client configuration. All values are load-time constants.
type Config struct {
	Contract ContractConfig `yaml:"contract"`
	Network  NetworkConfig  `yaml:"network"`
	Storage  StorageConfig  `yaml:"storage"`
	Pinning  PinningConfig  `yaml:"pinning"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Share    ShareConfig    `yaml:"share"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ContractConfig locates the file registry contract
type ContractConfig struct {
	Address string `yaml:"address"`
}

// NetworkConfig describes the target chain. The wallet is switched to it on connect,
// and it is added to the wallet first when the wallet does not know it.
type NetworkConfig struct {
	ChainID      uint64         `yaml:"chain_id"`
	Name         string         `yaml:"name"`
	RPCURLs      []string       `yaml:"rpc_urls"`
	ExplorerURLs []string       `yaml:"explorer_urls"`
	Currency     CurrencyConfig `yaml:"currency"`
}

// CurrencyConfig is the native currency advertised when adding the network
type CurrencyConfig struct {
	Name     string `yaml:"name"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
}

// StorageConfig holds the two size thresholds that drive the storage decision
type StorageConfig struct {
	InlineLimit int64 `yaml:"inline_limit"` // bytes stored directly in the registry record
	BlobLimit   int64 `yaml:"blob_limit"`   // largest file accepted at all
}

// PinningConfig configures the blob store.
// With ProxyURL set, uploads and downloads go through the trusted proxy and JWT stays empty.
// Without it the client talks to the pinning API directly (local development) and JWT is required.
type PinningConfig struct {
	Gateway  string        `yaml:"gateway"`   // gateway host, e.g. gateway.pinata.cloud
	ProxyURL string        `yaml:"proxy_url"` // e.g. http://localhost:8888
	APIURL   string        `yaml:"api_url"`   // pinning API base, used in direct mode
	JWT      string        `yaml:"jwt"`
	Timeout  time.Duration `yaml:"timeout"`
}

// WalletConfig configures the local keystore wallet
type WalletConfig struct {
	KeystoreDir string `yaml:"keystore_dir"`
}

// ShareConfig configures share links
type ShareConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig configures the CLI logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	File   string `yaml:"file"` // append logs here instead of stderr
}

// ChainIDBig returns the configured chain id as a *big.Int
func (n NetworkConfig) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(n.ChainID)
}

// DirectMode reports whether the blob store is reached without the proxy
func (p PinningConfig) DirectMode() bool {
	return p.ProxyURL == ""
}

// Default returns the configuration of the deployed Sepolia registry.
func Default() *Config {
	return &Config{
		Contract: ContractConfig{
			Address: "0x7af5fdFd5BC1C9996072e1e0Fed37aeF5C60BBe7",
		},
		Network: NetworkConfig{
			ChainID:      11155111,
			Name:         "Sepolia",
			RPCURLs:      []string{"https://ethereum-sepolia-rpc.publicnode.com"},
			ExplorerURLs: []string{"https://sepolia.etherscan.io"},
			Currency: CurrencyConfig{
				Name:     "Sepolia Ether",
				Symbol:   "ETH",
				Decimals: 18,
			},
		},
		Storage: StorageConfig{
			InlineLimit: 10 * 1024,
			BlobLimit:   100 * 1024 * 1024,
		},
		Pinning: PinningConfig{
			Gateway:  "gateway.pinata.cloud",
			ProxyURL: "http://localhost:8888",
			APIURL:   "https://api.pinata.cloud",
			Timeout:  2 * time.Minute,
		},
		Wallet: WalletConfig{
			KeystoreDir: "",
		},
		Share: ShareConfig{
			BaseURL: "https://chainfiles.app/",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Colors: true,
		},
	}
}
