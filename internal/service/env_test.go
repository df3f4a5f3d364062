package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/deployments"
	"github.com/nulln0ne/portfolio-amm/internal/metrics"
	"github.com/nulln0ne/portfolio-amm/internal/portfolio"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type testEnv struct {
	engine     *Engine
	metrics    *metrics.Metrics
	quote      *QuoteService
	dex        *DexService
	portfolios *PortfolioService
	dai        common.Address
	usdc       common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := state.New(state.NewManualClock(1_000))
	st.Fund(deployer, e18(1_000_000))
	d, err := deployments.Deploy(st, deployments.Options{
		Deployer: deployer,
		Policy:   portfolio.Policy{SlippageBps: 100},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry(), "test")
	engine := NewEngine(logger, st, d, m)
	return &testEnv{
		engine:     engine,
		metrics:    m,
		quote:      NewQuoteService(logger, engine),
		dex:        NewDexService(logger, engine),
		portfolios: NewPortfolioService(logger, engine),
		dai:        d.Tokens["TestDAI"],
		usdc:       d.Tokens["TestUSDC"],
	}
}

// fund mints tokens to who and approves the router for all of them.
func (env *testEnv) fund(t *testing.T, who common.Address, amount *big.Int, tokens ...common.Address) {
	t.Helper()
	ctx := context.Background()
	router := env.engine.Deployment().Router.Address()
	for _, tkn := range tokens {
		_, err := env.dex.Faucet(ctx, tkn, who, amount)
		require.NoError(t, err)
		_, err = env.dex.Approve(ctx, who, tkn, router, state.MaxUint256)
		require.NoError(t, err)
	}
}

// seed gives alice a 1000/1000 DAI/USDC pool.
func (env *testEnv) seed(t *testing.T) LiquidityResult {
	t.Helper()
	env.fund(t, alice, e18(10_000), env.dai, env.usdc)
	res, err := env.dex.AddLiquidity(context.Background(), alice, addParams(env.dai, env.usdc, e18(1_000), e18(1_000), alice))
	require.NoError(t, err)
	return res
}
