package portfolio

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
	"github.com/stretchr/testify/require"
)

const deadline = 1 << 40

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	alice    = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type testEnv struct {
	st        *state.State
	router    *amm.Router
	factory   *Factory
	dai       common.Address
	usdc      common.Address
	wbtc      common.Address
	portfolio *Portfolio
}

// newTestEnv deploys the exchange with DAI/USDC, USDC/WBTC and DAI/WBTC
// pools, and gives alice a portfolio holding 1000 DAI.
func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	env := &testEnv{st: state.New(state.NewManualClock(1_000))}

	env.exec(t, deployer, func(tx *state.Tx) error {
		wmon, err := token.DeployWrappedNative(tx)
		if err != nil {
			return err
		}
		factory, err := amm.DeployFactory(tx, deployer, common.Hash{})
		if err != nil {
			return err
		}
		if env.router, err = amm.DeployRouter(tx, factory, wmon); err != nil {
			return err
		}
		if env.factory, err = DeployFactory(tx, env.router, policy); err != nil {
			return err
		}
		for _, addr := range []*common.Address{&env.dai, &env.usdc, &env.wbtc} {
			if *addr, err = token.Deploy(tx, token.Spec{Name: "Test", Symbol: "TST", Decimals: 18}); err != nil {
				return err
			}
			if err := token.Faucet(tx, *addr, alice, e18(1_000_000)); err != nil {
				return err
			}
		}
		return nil
	})

	env.seed(t, env.dai, env.usdc, e18(10_000), e18(10_000))
	env.seed(t, env.usdc, env.wbtc, e18(10_000), e18(1))
	env.seed(t, env.dai, env.wbtc, e18(10_000), e18(1))

	env.exec(t, alice, func(tx *state.Tx) error {
		p, err := env.factory.CreatePortfolio(tx)
		if err != nil {
			return err
		}
		env.portfolio = p
		return tx.Transfer(env.dai, p.Address(), e18(1_000))
	})
	return env
}

func (e *testEnv) seed(t *testing.T, tokenA, tokenB common.Address, amountA, amountB *big.Int) {
	t.Helper()
	e.exec(t, alice, func(tx *state.Tx) error {
		for _, tok := range []common.Address{tokenA, tokenB} {
			if err := tx.Approve(tok, e.router.Address(), state.MaxUint256); err != nil {
				return err
			}
		}
		_, _, _, err := e.router.AddLiquidity(tx, amm.AddLiquidityParams{
			TokenA:         tokenA,
			TokenB:         tokenB,
			AmountADesired: amountA,
			AmountBDesired: amountB,
			To:             alice,
			Deadline:       deadline,
		})
		return err
	})
}

func (e *testEnv) exec(t *testing.T, from common.Address, fn func(tx *state.Tx) error) *state.Receipt {
	t.Helper()
	receipt, err := e.st.Execute(state.Call{From: from}, fn)
	require.NoError(t, err)
	return receipt
}

func (e *testEnv) try(from common.Address, fn func(tx *state.Tx) error) error {
	_, err := e.st.Execute(state.Call{From: from}, fn)
	return err
}

func (e *testEnv) balance(t *testing.T, tok, holder common.Address) *big.Int {
	t.Helper()
	var out *big.Int
	require.NoError(t, e.st.View(func(tx *state.Tx) error {
		out = tx.BalanceOf(tok, holder)
		return nil
	}))
	return out
}

func (e *testEnv) allocate(t *testing.T, tokens []common.Address, percents []int64) {
	t.Helper()
	e.exec(t, alice, func(tx *state.Tx) error {
		return e.portfolio.SetAllocation(tx, tokens, percents)
	})
}

// daiToUSDC is a valid rebalance of 100 DAI at 1% slippage.
func (e *testEnv) daiToUSDC(t *testing.T) Rebalance {
	t.Helper()
	path := []common.Address{e.dai, e.usdc}
	amounts, err := e.portfolio.GetEstimatedOut(e18(100), path)
	require.NoError(t, err)
	minOut := new(big.Int).Mul(amounts[1], big.NewInt(99))
	minOut.Div(minOut, big.NewInt(100))
	return Rebalance{
		TokenIn:      e.dai,
		TokenOut:     e.usdc,
		AmountIn:     e18(100),
		AmountOutMin: minOut,
		Path:         path,
	}
}

func (e *testEnv) validate(t *testing.T, r Rebalance) (bool, string) {
	t.Helper()
	var ok bool
	var reason string
	require.NoError(t, e.st.View(func(tx *state.Tx) error {
		ok, reason = e.portfolio.ValidateRebalance(tx, r)
		return nil
	}))
	return ok, reason
}
