package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// DefaultDeployer is the first account of a local development node.
var DefaultDeployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// Network is a chain the tooling knows how to reach.
type Network struct {
	ChainID uint64 `yaml:"chainId"`
	URL     string `yaml:"url"`
}

// DefaultNetworks are available without a NETWORKS_FILE.
func DefaultNetworks() map[string]Network {
	return map[string]Network{
		"localhost":    {ChainID: 31337, URL: "http://127.0.0.1:1337/rpc"},
		"monadTestnet": {ChainID: 10143, URL: "https://testnet-rpc.monad.xyz"},
	}
}

type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	NetworkName string
	Network     Network

	DeploymentsDir string
	Deployer       common.Address

	SlippageBps                uint16
	AllowUnrestrictedRebalance bool

	MetricsNamespace string
}

func FromEnv() (*Config, error) {
	networks := DefaultNetworks()
	if path := os.Getenv("NETWORKS_FILE"); path != "" {
		extra, err := LoadNetworks(path)
		if err != nil {
			return nil, err
		}
		for name, n := range extra {
			networks[name] = n
		}
	}

	name := getenv("NETWORK", "localhost")
	network, ok := networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}

	logFormat := strings.ToLower(getenv("LOG_FORMAT", "text"))
	if logFormat != "text" && logFormat != "json" {
		return nil, ErrInvalidLogFormat
	}

	slippage, err := strconv.ParseUint(getenv("SLIPPAGE_BPS", "100"), 10, 16)
	if err != nil || slippage > 10_000 {
		return nil, ErrInvalidSlippage
	}

	unrestricted, err := strconv.ParseBool(getenv("ALLOW_UNRESTRICTED_REBALANCE", "false"))
	if err != nil {
		return nil, fmt.Errorf("ALLOW_UNRESTRICTED_REBALANCE: %w", ErrInvalidBool)
	}

	deployer := DefaultDeployer
	if v := os.Getenv("DEPLOYER"); v != "" {
		if !common.IsHexAddress(v) {
			return nil, ErrInvalidAddress
		}
		deployer = common.HexToAddress(v)
	}

	cfg := &Config{
		Addr:                       getenv("ADDR", ":1337"),
		LogLevel:                   getenv("LOG_LEVEL", "info"),
		LogFormat:                  logFormat,
		NetworkName:                name,
		Network:                    network,
		DeploymentsDir:             getenv("DEPLOYMENTS_DIR", "deployments"),
		Deployer:                   deployer,
		SlippageBps:                uint16(slippage),
		AllowUnrestrictedRebalance: unrestricted,
		MetricsNamespace:           getenv("METRICS_NAMESPACE", "amm"),
	}

	return cfg, nil
}

// LoadNetworks reads a YAML map of network name to chain id and URL.
func LoadNetworks(path string) (map[string]Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read networks file: %w", err)
	}
	var networks map[string]Network
	if err := yaml.Unmarshal(raw, &networks); err != nil {
		return nil, fmt.Errorf("parse networks file: %w", err)
	}
	return networks, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
