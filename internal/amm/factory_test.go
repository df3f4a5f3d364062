package amm

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairInitCodeHash_FollowsPairCode(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, common.Hash{}, PairInitCodeHash())
	assert.Equal(t, PairInitCodeHash(), fingerprint(pairSource, uniswapv2.MathSource()))

	swapFee := []byte("uniswapv2.FeeDenominator - uniswapv2.FeeNumerator")
	require.True(t, bytes.Contains(pairSource, swapFee))
	edited := bytes.Replace(pairSource, swapFee, []byte("uniswapv2.FeeDenominator - uniswapv2.FeeNumerator + 2"), 1)
	assert.NotEqual(t, PairInitCodeHash(), fingerprint(edited, uniswapv2.MathSource()))

	math := uniswapv2.MathSource()
	require.True(t, bytes.Contains(math, []byte("FeeNumerator   = 997")))
	edited = bytes.Replace(math, []byte("FeeNumerator   = 997"), []byte("FeeNumerator   = 995"), 1)
	assert.NotEqual(t, PairInitCodeHash(), fingerprint(pairSource, edited))
}

func TestPairABI_MatchesPairMethods(t *testing.T) {
	t.Parallel()
	// ABI names whose Go method is not the name with its first letter raised.
	renamed := map[string]string{"getReserves": "Reserves"}

	pairType := reflect.TypeOf(&Pair{})
	fromABI := make(map[string]bool)
	for name := range PairABI.Methods {
		if name == "MINIMUM_LIQUIDITY" {
			continue
		}
		goName, ok := renamed[name]
		if !ok {
			goName = strings.ToUpper(name[:1]) + name[1:]
		}
		_, found := pairType.MethodByName(goName)
		assert.True(t, found, "abi method %s has no Pair.%s", name, goName)
		fromABI[goName] = true
	}
	for i := 0; i < pairType.NumMethod(); i++ {
		name := pairType.Method(i).Name
		if name == "Address" {
			continue
		}
		assert.True(t, fromABI[name], "Pair.%s is missing from the pair abi", name)
	}
}

func TestFactory_CreatePair(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[1]

	var pair *Pair
	receipt := env.exec(t, bob, nil, func(tx *state.Tx) error {
		var err error
		pair, err = env.factory.CreatePair(tx, b, a)
		return err
	})

	want, err := uniswapv2.PairFor(env.factory.Address(), a, b, env.factory.InitCodeHash())
	require.NoError(t, err)
	assert.Equal(t, want, pair.Address())
	assert.Equal(t, want, env.factory.GetPair(a, b))
	assert.Equal(t, env.factory.GetPair(a, b), env.factory.GetPair(b, a))
	assert.Equal(t, env.factory.Address(), pair.Factory())

	token0, token1, _ := uniswapv2.SortTokens(a, b)
	assert.Equal(t, token0, pair.Token0())
	assert.Equal(t, token1, pair.Token1())

	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, PairCreated{Token0: token0, Token1: token1, Pair: want, Index: 1}, receipt.Logs[0].Event)
	topic, ok := Topic(receipt.Logs[0].Event)
	assert.True(t, ok)
	assert.Equal(t, FactoryABI.Events["PairCreated"].ID, topic)

	assert.Equal(t, 1, env.factory.AllPairsLength())
	first, err := env.factory.AllPairs(0)
	require.NoError(t, err)
	assert.Equal(t, want, first)
	_, err = env.factory.AllPairs(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	byAddr, err := env.factory.Pair(want)
	require.NoError(t, err)
	assert.Same(t, pair, byAddr)
	require.NoError(t, env.factory.CheckInitCodeHash())
}

func TestFactory_CreatePairErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[1]
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.factory.CreatePair(tx, a, b)
		return err
	})

	cases := []struct {
		name   string
		tokenA common.Address
		tokenB common.Address
		want   error
	}{
		{"identical", a, a, ErrIdenticalAddresses},
		{"zero", common.Address{}, b, ErrZeroAddress},
		{"exists", b, a, ErrPairExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.try(bob, nil, func(tx *state.Tx) error {
				_, err := env.factory.CreatePair(tx, tc.tokenA, tc.tokenB)
				return err
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, 1, env.factory.AllPairsLength())
}

func TestFactory_CreatePairRolledBack(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	a, b := env.tokens[0], env.tokens[2]
	boom := errors.New("boom")

	err := env.try(bob, nil, func(tx *state.Tx) error {
		if _, err := env.factory.CreatePair(tx, a, b); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, common.Address{}, env.factory.GetPair(a, b))
	assert.Zero(t, env.factory.AllPairsLength())

	// the LP token registration went with it, so creating again works
	env.exec(t, bob, nil, func(tx *state.Tx) error {
		_, err := env.factory.CreatePair(tx, a, b)
		return err
	})
	assert.NotEqual(t, common.Address{}, env.factory.GetPair(b, a))
}

func TestFactory_GetPairMissing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, common.Address{}, env.factory.GetPair(env.tokens[0], env.tokens[1]))
	_, err := env.factory.PairOf(env.tokens[0], env.tokens[1])
	assert.ErrorIs(t, err, ErrPairNotFound)
	_, _, err = env.factory.Reserves(env.tokens[0], env.tokens[1])
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestFactory_FeeSetters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	feeTo := common.HexToAddress("0x00000000000000000000000000000000000000fe")

	err := env.try(bob, nil, func(tx *state.Tx) error { return env.factory.SetFeeTo(tx, feeTo) })
	require.ErrorIs(t, err, ErrForbidden)

	env.exec(t, deployer, nil, func(tx *state.Tx) error { return env.factory.SetFeeTo(tx, feeTo) })
	assert.Equal(t, feeTo, env.factory.FeeTo())

	env.exec(t, deployer, nil, func(tx *state.Tx) error { return env.factory.SetFeeToSetter(tx, bob) })
	assert.Equal(t, bob, env.factory.FeeToSetter())

	err = env.try(deployer, nil, func(tx *state.Tx) error { return env.factory.SetFeeTo(tx, deployer) })
	require.ErrorIs(t, err, ErrForbidden)
	env.exec(t, bob, nil, func(tx *state.Tx) error { return env.factory.SetFeeTo(tx, common.Address{}) })
	assert.Equal(t, common.Address{}, env.factory.FeeTo())
}

func TestFactory_CheckInitCodeHashMismatch(t *testing.T) {
	t.Parallel()
	factory := common.HexToAddress("0x0000000000000000000000000000000000000fac")
	recorded := common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")

	f := NewFactory(factory, deployer, recorded)
	assert.Equal(t, recorded, f.InitCodeHash())
	require.ErrorIs(t, f.CheckInitCodeHash(), ErrInitCodeHashMismatch)

	f = NewFactory(factory, deployer, common.Hash{})
	assert.Equal(t, PairInitCodeHash(), f.InitCodeHash())
	require.NoError(t, f.CheckInitCodeHash())
}
