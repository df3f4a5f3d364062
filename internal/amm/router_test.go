package amm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Immutables(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, env.factory.Address(), env.router.Factory())
	assert.Equal(t, env.wmon.Address(), env.router.WMON())
}

func TestRouter_AddThenRemoveNeverGains(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[1]
	env.seed(t, a, b, e18(300), e18(700))

	beforeA, beforeB := env.balance(t, a, bob), env.balance(t, b, bob)
	var liquidity, addedA, addedB *big.Int
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		var err error
		addedA, addedB, liquidity, err = env.router.AddLiquidity(tx, AddLiquidityParams{
			TokenA:         a,
			TokenB:         b,
			AmountADesired: e18(30),
			AmountBDesired: e18(100),
			To:             bob,
			Deadline:       deadline,
		})
		return err
	})
	// the ratio is 3:7, so all of A and 70 of B are taken
	assert.Equal(t, e18(30).String(), addedA.String())
	assert.Equal(t, e18(70).String(), addedB.String())

	pair := env.factory.GetPair(a, b)
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		return tx.Approve(pair, env.router.Address(), liquidity)
	})
	var gotA, gotB *big.Int
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		var err error
		gotA, gotB, err = env.router.RemoveLiquidity(tx, RemoveLiquidityParams{
			TokenA:    a,
			TokenB:    b,
			Liquidity: liquidity,
			To:        bob,
			Deadline:  deadline,
		})
		return err
	})

	assert.LessOrEqual(t, gotA.Cmp(addedA), 0)
	assert.LessOrEqual(t, gotB.Cmp(addedB), 0)
	assert.LessOrEqual(t, env.balance(t, a, bob).Cmp(beforeA), 0)
	assert.LessOrEqual(t, env.balance(t, b, bob).Cmp(beforeB), 0)
	assert.Zero(t, env.balance(t, pair, bob).Sign())
}

func TestRouter_AddLiquidityMinimums(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[1]
	env.seed(t, a, b, e18(100), e18(100))

	err := env.try(bob, nil, func(tx *state.Tx) error {
		_, _, _, err := env.router.AddLiquidity(tx, AddLiquidityParams{
			TokenA: a, TokenB: b,
			AmountADesired: e18(10), AmountBDesired: e18(20),
			AmountBMin: e18(11),
			To:         bob, Deadline: deadline,
		})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientBAmount)

	err = env.try(bob, nil, func(tx *state.Tx) error {
		_, _, _, err := env.router.AddLiquidity(tx, AddLiquidityParams{
			TokenA: a, TokenB: b,
			AmountADesired: e18(20), AmountBDesired: e18(10),
			AmountAMin: e18(11),
			To:         bob, Deadline: deadline,
		})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientAAmount)
}

func TestRouter_Deadline(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[1]
	env.seed(t, a, b, e18(100), e18(100))
	env.clock.Set(5_000)

	err := env.try(bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapExactTokensForTokens(tx, e18(1), nil, []common.Address{a, b}, bob, 4_999)
		return err
	})
	require.ErrorIs(t, err, ErrExpired)

	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapExactTokensForTokens(tx, e18(1), nil, []common.Address{a, b}, bob, 5_000)
		return err
	})
}

func TestRouter_MultiHopExactIn(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b, c := env.tokens[0], env.tokens[1], env.tokens[2]
	env.seed(t, a, b, e18(1_000), e18(2_000))
	env.seed(t, b, c, e18(2_000), e18(500))
	path := []common.Address{a, b, c}

	var quoted []*big.Int
	require.NoError(t, env.st.View(func(tx *state.Tx) error {
		var err error
		quoted, err = env.router.GetAmountsOut(e18(10), path)
		return err
	}))
	require.Len(t, quoted, 3)

	beforeB, beforeC := env.balance(t, b, bob), env.balance(t, c, bob)
	var amounts []*big.Int
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		var err error
		amounts, err = env.router.SwapExactTokensForTokens(tx, e18(10), quoted[2], path, bob, deadline)
		return err
	})
	require.Len(t, amounts, 3)
	for i := range quoted {
		assert.Equal(t, quoted[i].String(), amounts[i].String())
	}
	assert.Equal(t, new(big.Int).Add(beforeC, quoted[2]).String(), env.balance(t, c, bob).String())
	// the intermediate token never passes through the caller
	assert.Equal(t, beforeB.String(), env.balance(t, b, bob).String())
	assert.Zero(t, env.balance(t, b, env.router.Address()).Sign())
}

func TestRouter_ExactOut(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[1]
	env.seed(t, a, b, e18(1_000), e18(1_000))
	path := []common.Address{a, b}

	var needed []*big.Int
	require.NoError(t, env.st.View(func(tx *state.Tx) error {
		var err error
		needed, err = env.router.GetAmountsIn(e18(5), path)
		return err
	}))

	err := env.try(bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapTokensForExactTokens(tx, e18(5), new(big.Int).Sub(needed[0], big.NewInt(1)), path, bob, deadline)
		return err
	})
	require.ErrorIs(t, err, ErrExcessiveInputAmount)

	beforeA, beforeB := env.balance(t, a, bob), env.balance(t, b, bob)
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapTokensForExactTokens(tx, e18(5), needed[0], path, bob, deadline)
		return err
	})
	assert.Equal(t, new(big.Int).Sub(beforeA, needed[0]).String(), env.balance(t, a, bob).String())
	assert.Equal(t, new(big.Int).Add(beforeB, e18(5)).String(), env.balance(t, b, bob).String())
}

func TestRouter_QuoteErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b, c := env.tokens[0], env.tokens[1], env.tokens[2]
	env.seed(t, a, b, e18(10), e18(10))

	_, err := env.router.GetAmountsOut(e18(1), []common.Address{a})
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = env.router.GetAmountsOut(e18(1), []common.Address{a, b, c})
	assert.ErrorIs(t, err, ErrPairNotFound)
	_, err = env.router.GetAmountsIn(e18(10), []common.Address{a, b})
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.factory.CreatePair(tx, b, c)
		return err
	})
	_, err = env.router.GetAmountsOut(e18(1), []common.Address{a, b, c})
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestRouter_MultiHopIsAtomic(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b, c := env.tokens[0], env.tokens[1], env.tokens[2]
	ab := env.seed(t, a, b, e18(1_000), e18(1_000))
	bc := env.seed(t, b, c, e18(1_000), e18(1_000))
	k1, k2 := product(ab), product(bc)
	beforeA := env.balance(t, a, bob)

	// both hops run before the output check fails
	err := env.try(bob, nil, func(tx *state.Tx) error {
		return env.router.SwapExactTokensForTokensSupportingFeeOnTransferTokens(tx, e18(10), e18(10), []common.Address{a, b, c}, bob, deadline)
	})
	require.ErrorIs(t, err, ErrInsufficientOutputAmount)

	assert.Equal(t, k1.String(), product(ab).String())
	assert.Equal(t, k2.String(), product(bc).String())
	assert.Equal(t, beforeA.String(), env.balance(t, a, bob).String())
}

func TestRouter_FeeOnTransferToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	fot := env.deployToken(t, token.Spec{Name: "Taxed", Symbol: "TAX", Decimals: 18, TransferFeeBps: 100})
	b := env.tokens[1]
	env.seed(t, fot, b, e18(1_000), e18(1_000))
	path := []common.Address{fot, b}

	// the pair receives 1% less than quoted
	err := env.try(bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapExactTokensForTokens(tx, e18(10), nil, path, bob, deadline)
		return err
	})
	require.ErrorIs(t, err, ErrK)

	before := env.balance(t, b, bob)
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		return env.router.SwapExactTokensForTokensSupportingFeeOnTransferTokens(tx, e18(10), e18(9), path, bob, deadline)
	})
	gained := new(big.Int).Sub(env.balance(t, b, bob), before)
	assert.Positive(t, gained.Sign())
	assert.Less(t, gained.Cmp(e18(10)), 0)
}

func TestRouter_NativeLiquidityAndSwaps(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	tok := env.tokens[0]
	wmon := env.wmon.Address()

	var liquidity *big.Int
	env.exec(t, alice, e18(100), func(tx *state.Tx) error {
		var err error
		_, _, liquidity, err = env.router.AddLiquidityNative(tx, AddLiquidityNativeParams{
			Token:              tok,
			AmountTokenDesired: e18(400),
			To:                 alice,
			Deadline:           deadline,
		})
		return err
	})
	pair, err := env.factory.PairOf(tok, wmon)
	require.NoError(t, err)
	assert.Equal(t, e18(100).String(), env.balance(t, wmon, pair.Address()).String())
	assert.Equal(t, e18(100).String(), env.balance(t, state.NativeToken, wmon).String())
	assert.Equal(t, e18(999_900).String(), env.balance(t, state.NativeToken, alice).String())

	// native in
	beforeTok := env.balance(t, tok, bob)
	env.exec(t, bob, e18(1), func(tx *state.Tx) error {
		_, err := env.router.SwapExactNativeForTokens(tx, nil, []common.Address{wmon, tok}, bob, deadline)
		return err
	})
	assert.Equal(t, e18(999_999).String(), env.balance(t, state.NativeToken, bob).String())
	assert.Positive(t, new(big.Int).Sub(env.balance(t, tok, bob), beforeTok).Sign())

	// exact tokens out for native, unused value stays with bob
	var amounts []*big.Int
	env.exec(t, bob, e18(10), func(tx *state.Tx) error {
		var err error
		amounts, err = env.router.SwapNativeForExactTokens(tx, e18(4), []common.Address{wmon, tok}, bob, deadline)
		return err
	})
	spent := new(big.Int).Sub(e18(999_999), env.balance(t, state.NativeToken, bob))
	assert.Equal(t, amounts[0].String(), spent.String())

	// native out
	beforeNative := env.balance(t, state.NativeToken, bob)
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapExactTokensForNative(tx, e18(8), nil, []common.Address{tok, wmon}, bob, deadline)
		return err
	})
	assert.Positive(t, new(big.Int).Sub(env.balance(t, state.NativeToken, bob), beforeNative).Sign())

	beforeNative = env.balance(t, state.NativeToken, bob)
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapTokensForExactNative(tx, e18(1), e18(100), []common.Address{tok, wmon}, bob, deadline)
		return err
	})
	assert.Equal(t, new(big.Int).Add(beforeNative, e18(1)).String(), env.balance(t, state.NativeToken, bob).String())

	// wrong ends of the path
	err = env.try(bob, e18(1), func(tx *state.Tx) error {
		_, err := env.router.SwapExactNativeForTokens(tx, nil, []common.Address{tok, wmon}, bob, deadline)
		return err
	})
	require.ErrorIs(t, err, ErrInvalidPath)

	// remove everything alice provided
	env.exec(t, alice, nil, func(tx *state.Tx) error {
		return tx.Approve(pair.Address(), env.router.Address(), state.MaxUint256)
	})
	beforeNative = env.balance(t, state.NativeToken, alice)
	var gotNative *big.Int
	env.exec(t, alice, nil, func(tx *state.Tx) error {
		var err error
		_, gotNative, err = env.router.RemoveLiquidityNative(tx, RemoveLiquidityNativeParams{
			Token:     tok,
			Liquidity: liquidity,
			To:        alice,
			Deadline:  deadline,
		})
		return err
	})
	assert.Equal(t, new(big.Int).Add(beforeNative, gotNative).String(), env.balance(t, state.NativeToken, alice).String())
	assert.Zero(t, env.balance(t, wmon, env.router.Address()).Sign())
	assert.Zero(t, env.balance(t, state.NativeToken, env.router.Address()).Sign())
}
