package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/nulln0ne/portfolio-amm/internal/config"
	"github.com/nulln0ne/portfolio-amm/internal/deployments"
	"github.com/nulln0ne/portfolio-amm/internal/eth"
	"github.com/nulln0ne/portfolio-amm/internal/handler"
	"github.com/nulln0ne/portfolio-amm/internal/logging"
	"github.com/nulln0ne/portfolio-amm/internal/metrics"
	"github.com/nulln0ne/portfolio-amm/internal/portfolio"
	"github.com/nulln0ne/portfolio-amm/internal/service"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// deployerBalance is the native currency the deployer starts with; the
// native faucet pays out of it.
var deployerBalance = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	app := fiber.New()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorded, err := loadAddressBook(cfg)
	if err != nil {
		return err
	}
	recordedHash, _ := recorded.InitCodeHash()

	st := state.New(state.SystemClock{})
	st.Fund(cfg.Deployer, deployerBalance)
	d, err := deployments.Deploy(st, deployments.Options{
		Deployer: cfg.Deployer,
		Policy: portfolio.Policy{
			SlippageBps:       cfg.SlippageBps,
			AllowUnrestricted: cfg.AllowUnrestrictedRebalance,
		},
		InitCodeHash: recordedHash,
	})
	if err != nil {
		return fmt.Errorf("failed to deploy contracts: %w", err)
	}
	if err := syncAddressBook(logger, cfg, d, recorded); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine := service.NewEngine(logger, st, d, metrics.New(reg, cfg.MetricsNamespace))

	quoteService := service.NewQuoteService(logger, engine)
	dexService := service.NewDexService(logger, engine)
	portfolioService := service.NewPortfolioService(logger, engine)

	rpcServer, err := eth.NewServer(logger, quoteService, portfolioService, cfg.Network.ChainID)
	if err != nil {
		return fmt.Errorf("failed to start rpc server: %w", err)
	}

	handler.Register(app, handler.Handlers{
		Quote:     handler.NewQuoteHandler(logger, quoteService),
		Dex:       handler.NewDexHandler(logger, dexService),
		Portfolio: handler.NewPortfolioHandler(logger, portfolioService),
	})
	app.Post("/rpc", adaptor.HTTPHandler(rpcServer))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	logger.Info("engine deployed", "network", cfg.NetworkName, "chainId", cfg.Network.ChainID,
		"factory", d.Factory.Address().Hex(), "router", d.Router.Address().Hex(),
		"initCodeHash", d.Factory.InitCodeHash().Hex())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = app.Shutdown()
			rpcServer.Stop()
			return fmt.Errorf("server error: %w", err)
		}
		rpcServer.Stop()
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(shutdownCtx)

	rpcServer.Stop()
	return nil
}

// loadAddressBook reads the recorded book of the configured network. A
// missing file is an empty book.
func loadAddressBook(cfg *config.Config) (deployments.Book, error) {
	recorded, err := deployments.Load(cfg.DeploymentsDir, cfg.Network.ChainID)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return deployments.Book{}, nil
	case err != nil:
		return nil, err
	}
	return recorded, nil
}

// syncAddressBook checks the running deployment against the recorded book
// and writes the current one. A recorded pair fingerprint that differs from
// the running pair code is fatal.
func syncAddressBook(logger *slog.Logger, cfg *config.Config, d *deployments.Deployment, recorded deployments.Book) error {
	chainID := cfg.Network.ChainID
	if err := d.Verify(recorded); err != nil {
		return err
	}
	if changed := d.Changed(recorded); len(changed) > 0 {
		logger.Warn("address book differs from the recorded deployment", "chainId", chainID, "entries", changed)
	}
	if err := deployments.Save(cfg.DeploymentsDir, chainID, d.Book()); err != nil {
		return fmt.Errorf("failed to save address book: %w", err)
	}
	logger.Info("address book written", "path", deployments.Path(cfg.DeploymentsDir, chainID))
	return nil
}
