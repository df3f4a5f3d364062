// Package uniswapv2 implements the constant-product pricing rules shared by
// the pair, the router and any off-chain caller that wants to reproduce them.
package uniswapv2

import (
	"errors"
	"math/big"
)

// fee: 0.3% => multiplier 997/1000
var (
	feeMul = big.NewInt(FeeNumerator)
	feeDen = big.NewInt(FeeDenominator)
	one    = big.NewInt(1)
)

var (
	ErrInsufficientAmount       = errors.New("insufficient amount")
	ErrInsufficientInputAmount  = errors.New("insufficient input amount")
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	ErrInsufficientLiquidity    = errors.New("insufficient liquidity")
)

// FeeNumerator and FeeDenominator describe the swap fee as a fraction of the
// input amount that stays in the pool.
const (
	FeeNumerator   = 997
	FeeDenominator = 1000
)

func GetAmountOut(dst, t1, t2 *big.Int, amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	// t1 = amountIn * 997
	t1.Mul(amountIn, feeMul)
	// t2 = reserveIn * 1000
	t2.Mul(reserveIn, feeDen)
	// t2 = t2 + t1  (denominator)
	t2.Add(t2, t1)
	// dst = t1 * reserveOut (numerator)
	dst.Mul(t1, reserveOut)
	// dst = dst / t2  (avoid aliasing z==y)
	return dst.Div(dst, t2)
}

// GetAmountIn is the inverse of GetAmountOut: the smallest input that yields
// at least amountOut. Callers must ensure amountOut < reserveOut.
func GetAmountIn(dst, t1, t2 *big.Int, amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	// t1 = reserveIn * amountOut * 1000 (numerator)
	t1.Mul(reserveIn, amountOut)
	t1.Mul(t1, feeDen)
	// t2 = (reserveOut - amountOut) * 997 (denominator)
	t2.Sub(reserveOut, amountOut)
	t2.Mul(t2, feeMul)
	dst.Div(t1, t2)
	return dst.Add(dst, one)
}

// AmountOut validates its inputs and returns a freshly allocated result of
// GetAmountOut.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	var t1, t2 big.Int
	return GetAmountOut(new(big.Int), &t1, &t2, amountIn, reserveIn, reserveOut), nil
}

// AmountIn validates its inputs and returns a freshly allocated result of
// GetAmountIn.
func AmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	var t1, t2 big.Int
	return GetAmountIn(new(big.Int), &t1, &t2, amountOut, reserveIn, reserveOut), nil
}

// Quote returns the amount of B equivalent to amountA at the current reserve
// ratio, without fees.
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if amountA == nil || amountA.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveA == nil || reserveB == nil || reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	out := new(big.Int).Mul(amountA, reserveB)
	return out.Div(out, reserveA), nil
}
