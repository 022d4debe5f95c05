package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// NetworkConfig describes an EVM network the contracts are deployed to.
type NetworkConfig struct {
	Name     string `json:"name"`
	ChainID  uint64 `json:"chain_id"`
	RPCURL   string `json:"rpc_url,omitempty"`
	RPCEnv   string `json:"rpc_env,omitempty"` // environment variable overriding RPCURL
	Currency string `json:"currency"`
	Explorer string `json:"explorer,omitempty"`
}

// Predefined network configurations.
var (
	Hardhat = NetworkConfig{
		Name:     "hardhat",
		ChainID:  1337,
		RPCURL:   "http://127.0.0.1:8545",
		Currency: "ETH",
	}

	BSCTestnet = NetworkConfig{
		Name:     "tbsc",
		ChainID:  97,
		RPCEnv:   "TBSC_RPC",
		Currency: "tBNB",
		Explorer: "https://testnet.bscscan.com",
	}

	BSC = NetworkConfig{
		Name:     "bsc",
		ChainID:  56,
		RPCEnv:   "BSC_RPC",
		Currency: "BNB",
		Explorer: "https://bscscan.com",
	}

	Polygon = NetworkConfig{
		Name:     "pol",
		ChainID:  137,
		RPCURL:   "https://polygon-rpc.com/",
		Currency: "POL",
		Explorer: "https://polygonscan.com",
	}
)

var predefined = map[string]*NetworkConfig{
	"hardhat": &Hardhat,
	"tbsc":    &BSCTestnet,
	"bsc":     &BSC,
	"pol":     &Polygon,
}

// GetNetwork returns a predefined network by name.
func GetNetwork(name string) (*NetworkConfig, error) {
	if net, ok := predefined[name]; ok {
		return net, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
}

// NetworkNames returns the predefined network names, sorted.
func NetworkNames() []string {
	names := make([]string, 0, len(predefined))
	for name := range predefined {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RPC returns the network's RPC endpoint, preferring RPCEnv when set.
func (n *NetworkConfig) RPC() string {
	if n.RPCEnv != "" {
		if v := os.Getenv(n.RPCEnv); v != "" {
			return v
		}
	}
	return n.RPCURL
}

// LoadCustomNetwork reads a network definition from a JSON file, e.g.
//
//	{"name": "anvil", "chain_id": 31337, "rpc_url": "http://127.0.0.1:8545"}
//
// Currency defaults to ETH. A custom network may not reuse a predefined name.
func LoadCustomNetwork(path string) (*NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: read network file: %w", err)
	}

	net := &NetworkConfig{}
	if err := json.Unmarshal(data, net); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidNetwork, path, err)
	}
	switch {
	case net.Name == "":
		return nil, fmt.Errorf("%w: %s: name is required", ErrInvalidNetwork, path)
	case predefined[net.Name] != nil:
		return nil, fmt.Errorf("%w: %s: %q is a predefined network", ErrInvalidNetwork, path, net.Name)
	case net.ChainID == 0:
		return nil, fmt.Errorf("%w: %s: chain_id is required", ErrInvalidNetwork, path)
	case net.RPCURL == "" && net.RPCEnv == "":
		return nil, fmt.Errorf("%w: %s: rpc_url or rpc_env is required", ErrInvalidNetwork, path)
	}
	if net.Currency == "" {
		net.Currency = "ETH"
	}
	return net, nil
}
