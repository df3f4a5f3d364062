package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/config"
	"github.com/nulln0ne/portfolio-amm/internal/deployments"
	"github.com/nulln0ne/portfolio-amm/internal/eth"
	"github.com/urfave/cli/v2"
)

var (
	NetworkFlag = &cli.StringFlag{
		Name:    "network",
		Usage:   "Network name from the built-in list or NETWORKS_FILE",
		Value:   "localhost",
		EnvVars: []string{"NETWORK"},
	}
	RPCFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "JSON-RPC endpoint, overriding the network's URL",
		EnvVars: []string{"RPC_URL"},
	}
	DeploymentsDirFlag = &cli.StringFlag{
		Name:    "deployments-dir",
		Usage:   "Directory holding chain-<id>/deployed_addresses.json",
		Value:   "deployments",
		EnvVars: []string{"DEPLOYMENTS_DIR"},
	}
)

var ErrBadArgs = errors.New("wrong number of arguments")

// dial connects to the node; tests replace it with an in-process client.
var dial = func(ctx context.Context, url string) (*eth.Client, error) {
	return eth.Dial(ctx, url)
}

// session is what every command runs against.
type session struct {
	client *eth.Client
	book   deployments.Book
}

func (s *session) Close() {
	s.client.Close()
}

func endpoint(c *cli.Context) (string, error) {
	if url := c.String(RPCFlag.Name); url != "" {
		return url, nil
	}
	networks := config.DefaultNetworks()
	if path := os.Getenv("NETWORKS_FILE"); path != "" {
		extra, err := config.LoadNetworks(path)
		if err != nil {
			return "", err
		}
		for name, n := range extra {
			networks[name] = n
		}
	}
	name := c.String(NetworkFlag.Name)
	n, ok := networks[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", config.ErrUnknownNetwork, name)
	}
	return n.URL, nil
}

// open dials the node and loads the address book of the chain it reports.
// Without a local book the node's own book is used.
func open(c *cli.Context) (*session, error) {
	url, err := endpoint(c)
	if err != nil {
		return nil, err
	}
	client, err := dial(c.Context, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	chainID, err := client.ChainID(c.Context)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	book, err := deployments.Load(c.String(DeploymentsDirFlag.Name), chainID.Uint64())
	if errors.Is(err, os.ErrNotExist) {
		book, err = client.Addresses(c.Context)
	}
	if err != nil {
		client.Close()
		return nil, err
	}
	return &session{client: client, book: book}, nil
}

// resolve accepts a hex address or a contract name from the address book,
// either "Module#Contract" or a bare test token name like TestDAI.
func (s *session) resolve(arg string) (common.Address, error) {
	if common.IsHexAddress(arg) {
		return common.HexToAddress(arg), nil
	}
	if addr, ok := s.book[arg]; ok && common.IsHexAddress(addr) {
		return common.HexToAddress(addr), nil
	}
	return s.book.Address(deployments.TokensModule, arg)
}

func (s *session) resolveAll(args []string) ([]common.Address, error) {
	out := make([]common.Address, len(args))
	for i, arg := range args {
		addr, err := s.resolve(arg)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

func withSession(fn func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := open(c)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(c, s)
	}
}
