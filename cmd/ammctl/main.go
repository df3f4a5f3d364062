package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var Version = "v0.1.0"

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ammctl"
	app.Version = Version
	app.Usage = "Query a running exchange node over JSON-RPC"
	app.Flags = []cli.Flag{
		NetworkFlag,
		RPCFlag,
		DeploymentsDirFlag,
	}
	app.Commands = []*cli.Command{
		StatusCommand(),
		PairCommand(),
		ReservesCommand(),
		AmountsOutCommand(),
		InitCodeHashCommand(),
		PortfolioCommand(),
		AddressCommand(),
	}
	return app
}
