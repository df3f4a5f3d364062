package amm

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
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

func bigStr(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return v
}

type testEnv struct {
	st      *state.State
	clock   *state.ManualClock
	factory *Factory
	router  *Router
	wmon    *token.WrappedNative
	tokens  []common.Address
}

// newTestEnv deploys WMON, a factory, a router and three plain tokens.
// alice and bob each hold 1M of every token and have approved the router.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{clock: state.NewManualClock(1_000)}
	env.st = state.New(env.clock)
	env.st.Fund(alice, e18(1_000_000))
	env.st.Fund(bob, e18(1_000_000))

	env.exec(t, deployer, nil, func(tx *state.Tx) error {
		var err error
		if env.wmon, err = token.DeployWrappedNative(tx); err != nil {
			return err
		}
		if env.factory, err = DeployFactory(tx, deployer, common.Hash{}); err != nil {
			return err
		}
		if env.router, err = DeployRouter(tx, env.factory, env.wmon); err != nil {
			return err
		}
		return nil
	})
	for i := 0; i < 3; i++ {
		env.tokens = append(env.tokens, env.deployToken(t, token.Spec{
			Name:     fmt.Sprintf("Token %d", i),
			Symbol:   fmt.Sprintf("T%d", i),
			Decimals: 18,
		}))
	}
	return env
}

func (e *testEnv) deployToken(t *testing.T, spec token.Spec) common.Address {
	t.Helper()
	var addr common.Address
	e.exec(t, deployer, nil, func(tx *state.Tx) error {
		var err error
		if addr, err = token.Deploy(tx, spec); err != nil {
			return err
		}
		for _, holder := range []common.Address{alice, bob} {
			if err := token.Faucet(tx, addr, holder, e18(1_000_000)); err != nil {
				return err
			}
		}
		return nil
	})
	e.approve(t, addr)
	return addr
}

// approve lets the router spend token on behalf of alice and bob.
func (e *testEnv) approve(t *testing.T, tok common.Address) {
	t.Helper()
	for _, holder := range []common.Address{alice, bob} {
		e.exec(t, holder, nil, func(tx *state.Tx) error {
			return tx.Approve(tok, e.router.Address(), state.MaxUint256)
		})
	}
}

func (e *testEnv) exec(t *testing.T, from common.Address, value *big.Int, fn func(tx *state.Tx) error) *state.Receipt {
	t.Helper()
	receipt, err := e.st.Execute(state.Call{From: from, Value: value}, fn)
	require.NoError(t, err)
	return receipt
}

func (e *testEnv) try(from common.Address, value *big.Int, fn func(tx *state.Tx) error) error {
	_, err := e.st.Execute(state.Call{From: from, Value: value}, fn)
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

func (e *testEnv) supply(t *testing.T, tok common.Address) *big.Int {
	t.Helper()
	var out *big.Int
	require.NoError(t, e.st.View(func(tx *state.Tx) error {
		out = tx.TotalSupply(tok)
		return nil
	}))
	return out
}

// seed has alice provide amountA of tokenA and amountB of tokenB.
func (e *testEnv) seed(t *testing.T, tokenA, tokenB common.Address, amountA, amountB *big.Int) *Pair {
	t.Helper()
	e.exec(t, alice, nil, func(tx *state.Tx) error {
		_, _, _, err := e.router.AddLiquidity(tx, AddLiquidityParams{
			TokenA:         tokenA,
			TokenB:         tokenB,
			AmountADesired: amountA,
			AmountBDesired: amountB,
			To:             alice,
			Deadline:       deadline,
		})
		return err
	})
	pair, err := e.factory.PairOf(tokenA, tokenB)
	require.NoError(t, err)
	return pair
}

func product(p *Pair) *big.Int {
	r0, r1, _ := p.Reserves()
	return r0.Mul(r0, r1)
}
