package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/urfave/cli/v2"
)

var AmountFlag = &cli.StringFlag{
	Name:     "amount",
	Usage:    "Input amount in the token's smallest unit",
	Required: true,
}

var ListFlag = &cli.BoolFlag{
	Name:  "list",
	Usage: "Print every entry of the address book",
}

func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show chain id and height of the node",
		Action: withSession(func(c *cli.Context, s *session) error {
			chainID, err := s.client.ChainID(c.Context)
			if err != nil {
				return err
			}
			height, err := s.client.BlockNumber(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "chainId: %s\nblock:   %d\n", chainID, height)
			return nil
		}),
	}
}

func PairCommand() *cli.Command {
	return &cli.Command{
		Name:      "pair",
		Usage:     "Look up the pair of two tokens",
		ArgsUsage: "<tokenA> <tokenB>",
		Action: withSession(func(c *cli.Context, s *session) error {
			if c.NArg() != 2 {
				return ErrBadArgs
			}
			tokens, err := s.resolveAll(c.Args().Slice())
			if err != nil {
				return err
			}
			pair, err := s.client.GetPair(c.Context, tokens[0], tokens[1])
			if err != nil {
				return err
			}
			if pair == (common.Address{}) {
				fmt.Fprintln(c.App.Writer, "no pair")
				return nil
			}
			fmt.Fprintln(c.App.Writer, pair.Hex())
			return nil
		}),
	}
}

func ReservesCommand() *cli.Command {
	return &cli.Command{
		Name:      "reserves",
		Usage:     "Show the reserves of a pair, given by address or by its two tokens",
		ArgsUsage: "<pair> | <tokenA> <tokenB>",
		Action: withSession(func(c *cli.Context, s *session) error {
			var pair common.Address
			switch c.NArg() {
			case 1:
				addr, err := s.resolve(c.Args().First())
				if err != nil {
					return err
				}
				pair = addr
			case 2:
				tokens, err := s.resolveAll(c.Args().Slice())
				if err != nil {
					return err
				}
				if pair, err = s.client.GetPair(c.Context, tokens[0], tokens[1]); err != nil {
					return err
				}
			default:
				return ErrBadArgs
			}
			r, err := s.client.GetReserves(c.Context, pair)
			if err != nil {
				return err
			}
			w := c.App.Writer
			fmt.Fprintf(w, "pair:     %s\n", r.Pair.Hex())
			fmt.Fprintf(w, "token0:   %s\n", r.Token0.Hex())
			fmt.Fprintf(w, "token1:   %s\n", r.Token1.Hex())
			fmt.Fprintf(w, "reserve0: %s\n", r.Reserve0.ToInt())
			fmt.Fprintf(w, "reserve1: %s\n", r.Reserve1.ToInt())
			fmt.Fprintf(w, "updated:  %d\n", uint64(r.BlockTimestampLast))
			return nil
		}),
	}
}

func AmountsOutCommand() *cli.Command {
	return &cli.Command{
		Name:      "amounts-out",
		Usage:     "Quote a swap along a token path",
		ArgsUsage: "<token> <token> [token...]",
		Flags:     []cli.Flag{AmountFlag},
		Action: withSession(func(c *cli.Context, s *session) error {
			if c.NArg() < 2 {
				return ErrBadArgs
			}
			amount, ok := new(big.Int).SetString(c.String(AmountFlag.Name), 10)
			if !ok || amount.Sign() <= 0 {
				return fmt.Errorf("invalid amount %q", c.String(AmountFlag.Name))
			}
			path, err := s.resolveAll(c.Args().Slice())
			if err != nil {
				return err
			}
			amounts, err := s.client.GetAmountsOut(c.Context, amount, path)
			if err != nil {
				return err
			}
			for i, a := range amounts {
				fmt.Fprintf(c.App.Writer, "%s %s\n", path[i].Hex(), a)
			}
			return nil
		}),
	}
}

// InitCodeHashCommand compares the node's pair fingerprint with the one
// this binary computes, the value router libraries must be built with.
func InitCodeHashCommand() *cli.Command {
	return &cli.Command{
		Name:  "init-code-hash",
		Usage: "Compare the node's pair init code hash with the local pair code",
		Action: withSession(func(c *cli.Context, s *session) error {
			remote, err := s.client.InitCodeHash(c.Context)
			if err != nil {
				return err
			}
			local := amm.PairInitCodeHash()
			fmt.Fprintf(c.App.Writer, "node:  %s\nlocal: %s\n", remote.Hex(), local.Hex())
			if remote != local {
				return amm.ErrInitCodeHashMismatch
			}
			return nil
		}),
	}
}

func PortfolioCommand() *cli.Command {
	return &cli.Command{
		Name:      "portfolio",
		Usage:     "Show an owner's portfolio and its allocation",
		ArgsUsage: "<owner>",
		Action: withSession(func(c *cli.Context, s *session) error {
			if c.NArg() != 1 {
				return ErrBadArgs
			}
			owner, err := s.resolve(c.Args().First())
			if err != nil {
				return err
			}
			addr, err := s.client.GetPortfolio(c.Context, owner)
			if err != nil {
				return err
			}
			if addr == (common.Address{}) {
				fmt.Fprintln(c.App.Writer, "no portfolio")
				return nil
			}
			entries, err := s.client.GetAllocation(c.Context, owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "portfolio: %s\n", addr.Hex())
			for _, e := range entries {
				fmt.Fprintf(c.App.Writer, "  %s %3d%%\n", e.Token.Hex(), uint64(e.Percent))
			}
			return nil
		}),
	}
}

// AddressCommand resolves names from the address book of the node's chain.
func AddressCommand() *cli.Command {
	return &cli.Command{
		Name:      "address",
		Usage:     "Resolve a contract from the address book",
		ArgsUsage: "<Module#Contract | TokenName>",
		Flags:     []cli.Flag{ListFlag},
		Action: withSession(func(c *cli.Context, s *session) error {
			if c.Bool(ListFlag.Name) {
				for _, k := range s.book.Keys() {
					fmt.Fprintf(c.App.Writer, "%s %s\n", k, s.book[k])
				}
				return nil
			}
			if c.NArg() != 1 {
				return ErrBadArgs
			}
			addr, err := s.resolve(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, addr.Hex())
			return nil
		}),
	}
}
