package amm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reentrantCallee struct{ pair *Pair }

func (c reentrantCallee) UniswapV2Call(tx *state.Tx, _ common.Address, _, _ *big.Int, _ []byte) error {
	return c.pair.Sync(tx)
}

type repayingCallee struct {
	self  common.Address
	pair  common.Address
	token common.Address
	repay *big.Int
}

func (c repayingCallee) UniswapV2Call(tx *state.Tx, _ common.Address, _, _ *big.Int, _ []byte) error {
	return tx.From(c.self).Transfer(c.token, c.pair, c.repay)
}

func sorted(t *testing.T, env *testEnv) (common.Address, common.Address) {
	t.Helper()
	token0, token1, err := uniswapv2.SortTokens(env.tokens[0], env.tokens[1])
	require.NoError(t, err)
	return token0, token1
}

func TestPair_FirstMintLocksMinimumLiquidity(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)

	pair := env.seed(t, token0, token1, e18(10_000), e18(10))

	assert.Equal(t, "316227766016837933199", env.supply(t, pair.Address()).String())
	assert.Equal(t, "316227766016837932199", env.balance(t, pair.Address(), alice).String())
	assert.Equal(t, "1000", env.balance(t, pair.Address(), common.Address{}).String())

	r0, r1, ts := pair.Reserves()
	assert.Equal(t, e18(10_000).String(), r0.String())
	assert.Equal(t, e18(10).String(), r1.String())
	assert.Equal(t, uint32(1_000), ts)
}

func TestPair_SwapScenario(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(10_000), e18(10))
	before := env.balance(t, token1, bob)

	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.router.SwapExactTokensForTokens(tx, e18(100), nil, []common.Address{token0, token1}, bob, deadline)
		return err
	})

	out := new(big.Int).Sub(env.balance(t, token1, bob), before)
	assert.Equal(t, "98715803439706129", out.String())
	// no-fee price would be 100 * 10 / 10_000 = 0.1
	assert.Less(t, out.Cmp(big.NewInt(1e17)), 0)

	r0, r1, _ := pair.Reserves()
	assert.Equal(t, e18(10_100).String(), r0.String())
	assert.Equal(t, new(big.Int).Sub(e18(10), out).String(), r1.String())
}

func TestPair_ReserveProductNeverDecreasesAcrossSwaps(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(5_000), e18(2_000))

	amounts := []int64{1, 250, 3, 999, 42, 7, 1_500}
	for i, n := range amounts {
		path := []common.Address{token0, token1}
		if i%2 == 1 {
			path = []common.Address{token1, token0}
		}
		k := product(pair)
		env.exec(t, bob, nil, func(tx *state.Tx) error {
			_, err := env.router.SwapExactTokensForTokens(tx, e18(n), nil, path, bob, deadline)
			return err
		})
		assert.GreaterOrEqual(t, product(pair).Cmp(k), 0, "swap %d lowered k", i)
	}
}

func TestPair_SwapRejectsReentry(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(100), e18(100))

	err := env.try(bob, nil, func(tx *state.Tx) error {
		return pair.Swap(tx, nil, e18(1), bob, reentrantCallee{pair: pair}, nil)
	})
	require.ErrorIs(t, err, ErrLocked)

	// the lock is released and the optimistic transfer undone
	assert.Equal(t, e18(1_000_000).String(), env.balance(t, token1, bob).String())
	env.exec(t, bob, nil, pair.Sync)
}

func TestPair_FlashSwapRepaidWithFee(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(100), e18(100))

	borrowed := e18(1)
	repay := new(big.Int).Mul(borrowed, big.NewInt(1000))
	repay.Div(repay, big.NewInt(997))
	repay.Add(repay, big.NewInt(1))
	callee := repayingCallee{self: bob, pair: pair.Address(), token: token1, repay: repay}

	k := product(pair)
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		return pair.Swap(tx, nil, borrowed, bob, callee, []byte{1})
	})
	assert.Greater(t, product(pair).Cmp(k), 0)

	underpaid := callee
	underpaid.repay = borrowed
	err := env.try(bob, nil, func(tx *state.Tx) error {
		return pair.Swap(tx, nil, borrowed, bob, underpaid, []byte{1})
	})
	require.ErrorIs(t, err, ErrK)
}

func TestPair_SwapValidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(100), e18(100))

	cases := []struct {
		name string
		out0 *big.Int
		out1 *big.Int
		to   common.Address
		want error
	}{
		{"no output", nil, big.NewInt(0), bob, ErrInsufficientOutputAmount},
		{"drains reserve", e18(100), nil, bob, ErrInsufficientLiquidity},
		{"to is a pair token", e18(1), nil, token1, ErrInvalidTo},
		{"unpaid", e18(1), nil, bob, ErrInsufficientInputAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.try(bob, nil, func(tx *state.Tx) error {
				return pair.Swap(tx, tc.out0, tc.out1, tc.to, nil, nil)
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPair_PriceAccumulators(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(4), e18(1))

	env.clock.Advance(10)
	env.exec(t, bob, nil, pair.Sync)

	want0 := new(big.Int).Lsh(e18(1), 112)
	want0.Div(want0, e18(4))
	want0.Mul(want0, big.NewInt(10))
	want1 := new(big.Int).Lsh(e18(4), 112)
	want1.Div(want1, e18(1))
	want1.Mul(want1, big.NewInt(10))
	assert.Equal(t, want0.String(), pair.Price0CumulativeLast().String())
	assert.Equal(t, want1.String(), pair.Price1CumulativeLast().String())

	// a second update in the same block adds nothing
	env.exec(t, bob, nil, pair.Sync)
	assert.Equal(t, want0.String(), pair.Price0CumulativeLast().String())
}

func TestPair_ProtocolFee(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	feeTo := common.HexToAddress("0x00000000000000000000000000000000000000fe")

	env.exec(t, deployer, nil, func(tx *state.Tx) error {
		return env.factory.SetFeeTo(tx, feeTo)
	})
	pair := env.seed(t, token0, token1, e18(1_000), e18(1_000))
	assert.Equal(t, product(pair).String(), pair.KLast().String())

	for i := 0; i < 4; i++ {
		env.exec(t, bob, nil, func(tx *state.Tx) error {
			_, err := env.router.SwapExactTokensForTokens(tx, e18(50), nil, []common.Address{token0, token1}, bob, deadline)
			return err
		})
		env.exec(t, bob, nil, func(tx *state.Tx) error {
			_, err := env.router.SwapExactTokensForTokens(tx, e18(50), nil, []common.Address{token1, token0}, bob, deadline)
			return err
		})
	}
	assert.Zero(t, env.balance(t, pair.Address(), feeTo).Sign())

	env.seed(t, token0, token1, e18(1), e18(1))
	assert.Positive(t, env.balance(t, pair.Address(), feeTo).Sign())
	assert.Equal(t, product(pair).String(), pair.KLast().String())
}

func TestPair_SkimSyncAndOverflow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token0, token1 := sorted(t, env)
	pair := env.seed(t, token0, token1, e18(10), e18(10))

	env.exec(t, deployer, nil, func(tx *state.Tx) error {
		return token.Faucet(tx, token0, pair.Address(), big.NewInt(5))
	})
	before := env.balance(t, token0, bob)
	env.exec(t, bob, nil, func(tx *state.Tx) error { return pair.Skim(tx, bob) })
	assert.Equal(t, new(big.Int).Add(before, big.NewInt(5)).String(), env.balance(t, token0, bob).String())

	env.exec(t, deployer, nil, func(tx *state.Tx) error {
		return token.Faucet(tx, token1, pair.Address(), big.NewInt(7))
	})
	env.exec(t, bob, nil, pair.Sync)
	_, r1, _ := pair.Reserves()
	assert.Equal(t, new(big.Int).Add(e18(10), big.NewInt(7)).String(), r1.String())

	huge := new(big.Int).Lsh(big.NewInt(1), 112)
	err := env.try(deployer, nil, func(tx *state.Tx) error {
		if err := token.Faucet(tx, token0, pair.Address(), huge); err != nil {
			return err
		}
		return pair.Sync(tx.From(bob))
	})
	require.ErrorIs(t, err, ErrOverflow)
	r0, _, _ := pair.Reserves()
	assert.Equal(t, e18(10).String(), r0.String())
}

func TestPair_MintBurnNothingReverts(t *testing.T) {
	t.Parallel()

	created := func(t *testing.T, env *testEnv, token0, token1 common.Address) *Pair {
		t.Helper()
		var pair *Pair
		env.exec(t, bob, nil, func(tx *state.Tx) error {
			var err error
			pair, err = env.factory.CreatePair(tx, token0, token1)
			return err
		})
		return pair
	}
	seeded := func(t *testing.T, env *testEnv, token0, token1 common.Address) *Pair {
		return env.seed(t, token0, token1, e18(10_000), e18(10))
	}

	tests := []struct {
		name  string
		setup func(t *testing.T, env *testEnv, token0, token1 common.Address) *Pair
		op    func(tx *state.Tx, pair *Pair) error
		want  error
	}{
		{
			name:  "first mint equal to the locked minimum",
			setup: created,
			op: func(tx *state.Tx, pair *Pair) error {
				if err := tx.Transfer(pair.Token0(), pair.Address(), big.NewInt(MinimumLiquidity)); err != nil {
					return err
				}
				if err := tx.Transfer(pair.Token1(), pair.Address(), big.NewInt(MinimumLiquidity)); err != nil {
					return err
				}
				_, err := pair.Mint(tx, alice)
				return err
			},
			want: ErrInsufficientLiquidityMinted,
		},
		{
			name:  "mint without a deposit",
			setup: seeded,
			op: func(tx *state.Tx, pair *Pair) error {
				_, err := pair.Mint(tx, alice)
				return err
			},
			want: ErrInsufficientLiquidityMinted,
		},
		{
			name:  "burn without lp tokens",
			setup: seeded,
			op: func(tx *state.Tx, pair *Pair) error {
				_, _, err := pair.Burn(tx, alice)
				return err
			},
			want: ErrInsufficientLiquidityBurned,
		},
		{
			name:  "burn rounding to zero",
			setup: seeded,
			op: func(tx *state.Tx, pair *Pair) error {
				if err := tx.Transfer(pair.Address(), pair.Address(), big.NewInt(1)); err != nil {
					return err
				}
				_, _, err := pair.Burn(tx, alice)
				return err
			},
			want: ErrInsufficientLiquidityBurned,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			token0, token1 := sorted(t, env)
			pair := tc.setup(t, env, token0, token1)

			holdings := func() []string {
				r0, r1, _ := pair.Reserves()
				return []string{
					r0.String(),
					r1.String(),
					env.supply(t, pair.Address()).String(),
					env.balance(t, token0, alice).String(),
					env.balance(t, token1, alice).String(),
					env.balance(t, pair.Address(), alice).String(),
					env.balance(t, token0, pair.Address()).String(),
					env.balance(t, token1, pair.Address()).String(),
				}
			}
			before := holdings()

			err := env.try(alice, nil, func(tx *state.Tx) error { return tc.op(tx, pair) })
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, holdings())
		})
	}
}
