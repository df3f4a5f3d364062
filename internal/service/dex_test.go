package service

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addParams(a, b common.Address, amountA, amountB *big.Int, to common.Address) amm.AddLiquidityParams {
	return amm.AddLiquidityParams{TokenA: a, TokenB: b, AmountADesired: amountA, AmountBDesired: amountB, To: to}
}

func TestDex_FaucetAndBalance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.dex.Faucet(ctx, env.dai, alice, e18(5))
	require.NoError(t, err)
	bal, err := env.quote.Balance(ctx, env.dai, alice)
	require.NoError(t, err)
	assert.Equal(t, e18(5).String(), bal.String())

	_, err = env.dex.Faucet(ctx, env.dai, alice, nil)
	assert.Error(t, err)

	_, err = env.dex.Faucet(ctx, common.HexToAddress("0x1234"), alice, e18(1))
	assert.ErrorIs(t, err, ErrNotTestToken)

	_, err = env.dex.Faucet(ctx, state.NativeToken, bob, e18(2))
	require.NoError(t, err)
	bal, err = env.quote.Balance(ctx, state.NativeToken, bob)
	require.NoError(t, err)
	assert.Equal(t, e18(2).String(), bal.String())

	_, err = env.quote.Balance(ctx, common.HexToAddress("0x1234"), alice)
	assert.ErrorIs(t, err, state.ErrUnknownToken)
}

func TestDex_AddLiquidityUpdatesRegistry(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.seed(t)
	assert.Equal(t, e18(1_000).String(), res.AmountA.String())
	assert.Equal(t, "999999999999999999000", res.Liquidity.String())
	require.NotNil(t, res.Receipt)

	pair, err := env.quote.GetPair(ctx, env.usdc, env.dai)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, pair)

	info, err := env.quote.Pair(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, e18(1_000).String(), info.Reserve0.String())
	assert.Equal(t, e18(1_000).String(), info.TotalSupply.String())

	pairs, err := env.quote.AllPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{pair}, pairs)

	f, err := env.quote.Factory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.PairsLength)
	assert.Equal(t, amm.PairInitCodeHash(), f.InitCodeHash)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.PairsInRegistry))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.OperationsTotal.WithLabelValues("add_liquidity", "ok")))
	assert.Equal(t, float64(env.quote.Seq()), testutil.ToFloat64(env.metrics.CommittedSeq))
}

func TestDex_SwapExactInMatchesQuote(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t)
	env.fund(t, bob, e18(10), env.dai)

	path := []common.Address{env.dai, env.usdc}
	quoted, err := env.quote.AmountsOut(ctx, e18(1), path)
	require.NoError(t, err)

	res, err := env.dex.SwapExactIn(ctx, bob, SwapParams{AmountIn: e18(1), Path: path})
	require.NoError(t, err)
	require.Len(t, res.Amounts, 2)
	assert.Equal(t, quoted[1].String(), res.Amounts[1].String())

	bal, err := env.quote.Balance(ctx, env.usdc, bob)
	require.NoError(t, err)
	assert.Equal(t, quoted[1].String(), bal.String())

	var swap *Log
	for i := range res.Receipt.Logs {
		if res.Receipt.Logs[i].Event == "Swap" {
			swap = &res.Receipt.Logs[i]
		}
	}
	require.NotNil(t, swap)
	require.NotNil(t, swap.Topic)
}

func TestDex_SwapExactOut(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t)
	env.fund(t, bob, e18(10), env.dai)

	path := []common.Address{env.dai, env.usdc}
	res, err := env.dex.SwapExactOut(ctx, bob, SwapParams{AmountIn: e18(2), AmountOut: e18(1), Path: path})
	require.NoError(t, err)
	assert.Equal(t, e18(1).String(), res.Amounts[1].String())

	_, err = env.dex.SwapExactOut(ctx, bob, SwapParams{AmountIn: e18(1), AmountOut: e18(1), Path: path})
	assert.ErrorIs(t, err, amm.ErrExcessiveInputAmount)
}

func TestDex_RemoveLiquidityApprovesPair(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	added := env.seed(t)

	res, err := env.dex.RemoveLiquidity(ctx, alice, amm.RemoveLiquidityParams{
		TokenA:    env.dai,
		TokenB:    env.usdc,
		Liquidity: added.Liquidity,
		To:        alice,
	})
	require.NoError(t, err)
	assert.Positive(t, res.AmountA.Sign())
	assert.Positive(t, res.AmountB.Sign())

	pair, err := env.quote.GetPair(ctx, env.dai, env.usdc)
	require.NoError(t, err)
	lp, err := env.quote.Balance(ctx, pair, alice)
	require.NoError(t, err)
	assert.Zero(t, lp.Sign())
}

func TestDex_WrapAndNativeLiquidity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	wmon := env.engine.Deployment().WMON.Address()

	_, err := env.dex.Faucet(ctx, state.NativeToken, alice, e18(100))
	require.NoError(t, err)
	_, err = env.dex.Wrap(ctx, alice, e18(3))
	require.NoError(t, err)
	bal, err := env.quote.Balance(ctx, wmon, alice)
	require.NoError(t, err)
	assert.Equal(t, e18(3).String(), bal.String())

	_, err = env.dex.Unwrap(ctx, alice, e18(1))
	require.NoError(t, err)
	native, err := env.quote.Balance(ctx, state.NativeToken, alice)
	require.NoError(t, err)
	assert.Equal(t, e18(98).String(), native.String())

	env.fund(t, alice, e18(1_000), env.dai)
	res, err := env.dex.AddLiquidityNative(ctx, alice, e18(10), amm.AddLiquidityNativeParams{
		Token:              env.dai,
		AmountTokenDesired: e18(100),
		To:                 alice,
	})
	require.NoError(t, err)
	assert.Equal(t, e18(10).String(), res.AmountB.String())

	out, err := env.dex.SwapExactNativeIn(ctx, alice, e18(1), SwapParams{Path: []common.Address{wmon, env.dai}})
	require.NoError(t, err)
	assert.Positive(t, out.Amounts[1].Sign())
}

func TestDex_FactoryFeeSetters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.dex.SetFeeTo(ctx, bob, bob)
	assert.ErrorIs(t, err, amm.ErrForbidden)
	_, err = env.dex.SetFeeTo(ctx, deployer, bob)
	require.NoError(t, err)

	f, err := env.quote.Factory(ctx)
	require.NoError(t, err)
	assert.Equal(t, bob, f.FeeTo)
}
