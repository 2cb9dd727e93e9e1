package params

import (
	"fmt"
	"sort"
	"strings"
)

// ChainConfig describes a network the harness can submit to.
type ChainConfig struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chainId"`
	RPCURL  string `json:"rpcUrl"`

	BlockTimeSeconds uint64 `json:"blockTimeSeconds"`
	// GasPriceGwei of zero means ask the node.
	GasPriceGwei uint64 `json:"gasPriceGwei"`
	// ExplorerTxURL is a printf pattern taking the tx hash, empty if none.
	ExplorerTxURL string `json:"explorerTxUrl,omitempty"`
}

// RPC endpoints that need an API key are left for the operator to supply
// through rpc_url.
var networks = map[string]*ChainConfig{
	"localhost": {
		Name:             "localhost",
		ChainID:          31337,
		RPCURL:           "http://127.0.0.1:8545",
		BlockTimeSeconds: 1,
	},
	"gorrillazz": {
		Name:             "gorrillazz",
		ChainID:          9999,
		RPCURL:           "http://localhost:9000",
		BlockTimeSeconds: 3,
	},
	"usdcc": {
		Name:             "usdcc",
		ChainID:          9998,
		RPCURL:           "http://localhost:9100",
		BlockTimeSeconds: 3,
	},
	"sepolia": {
		Name:             "sepolia",
		ChainID:          11155111,
		RPCURL:           "https://ethereum-sepolia-rpc.publicnode.com",
		BlockTimeSeconds: 12,
		ExplorerTxURL:    "https://sepolia.etherscan.io/tx/%s",
	},
	"amoy": {
		Name:             "amoy",
		ChainID:          80002,
		RPCURL:           "https://rpc-amoy.polygon.technology",
		BlockTimeSeconds: 2,
		GasPriceGwei:     30,
		ExplorerTxURL:    "https://amoy.polygonscan.com/tx/%s",
	},
	"mainnet": {
		Name:             "mainnet",
		ChainID:          1,
		RPCURL:           "",
		BlockTimeSeconds: 12,
		ExplorerTxURL:    "https://etherscan.io/tx/%s",
	},
}

// Network returns a copy of the named preset.
func Network(name string) (*ChainConfig, error) {
	cfg, ok := networks[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(NetworkNames(), ", "))
	}
	cp := *cfg
	return &cp, nil
}

// NetworkNames lists the presets alphabetically.
func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TxURL renders an explorer link, or "" when the network has no explorer.
func (c *ChainConfig) TxURL(txHash string) string {
	if c.ExplorerTxURL == "" {
		return ""
	}
	return fmt.Sprintf(c.ExplorerTxURL, txHash)
}
