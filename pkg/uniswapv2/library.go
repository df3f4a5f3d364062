package uniswapv2

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrIdenticalAddresses = errors.New("identical addresses")
	ErrZeroAddress        = errors.New("zero address")
	ErrInvalidPath        = errors.New("invalid path")
)

// ReservesFunc resolves the reserves of the pool holding tokenA and tokenB,
// ordered as requested.
type ReservesFunc func(tokenA, tokenB common.Address) (reserveA, reserveB *big.Int, err error)

// SortTokens returns the pair in canonical order: the lower address is token0.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	}
	token0, token1 = tokenA, tokenB
	if bytes.Compare(tokenA[:], tokenB[:]) > 0 {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, nil
}

// PairSalt is keccak256(token0 ++ token1) over the canonically ordered pair.
func PairSalt(token0, token1 common.Address) common.Hash {
	return crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
}

// PairFor derives the address a factory assigns to the pair of tokenA and
// tokenB, using the CREATE2 rule over the pair init code hash. Anyone holding
// the factory address and the hash can compute it without querying the
// factory.
func PairFor(factory, tokenA, tokenB common.Address, initCodeHash common.Hash) (common.Address, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	salt := PairSalt(token0, token1)
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes()), nil
}

// GetAmountsOut walks path forward, feeding every hop's output into the next
// hop. The returned slice starts with amountIn.
func GetAmountsOut(amountIn *big.Int, path []common.Address, reserves ReservesFunc) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	if amountIn == nil {
		return nil, ErrInsufficientInputAmount
	}
	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		reserveIn, reserveOut, err := reserves(path[i], path[i+1])
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		out, err := AmountOut(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// GetAmountsIn walks path backward from the desired final output. The
// returned slice ends with amountOut.
func GetAmountsIn(amountOut *big.Int, path []common.Address, reserves ReservesFunc) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	if amountOut == nil {
		return nil, ErrInsufficientOutputAmount
	}
	amounts := make([]*big.Int, len(path))
	amounts[len(amounts)-1] = new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		reserveIn, reserveOut, err := reserves(path[i-1], path[i])
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i-1, err)
		}
		in, err := AmountIn(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i-1, err)
		}
		amounts[i-1] = in
	}
	return amounts, nil
}
