package amm

import (
	"errors"

	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
)

var (
	// Shared with the pricing library so errors.Is matches either side.
	ErrIdenticalAddresses       = uniswapv2.ErrIdenticalAddresses
	ErrZeroAddress              = uniswapv2.ErrZeroAddress
	ErrInvalidPath              = uniswapv2.ErrInvalidPath
	ErrInsufficientLiquidity    = uniswapv2.ErrInsufficientLiquidity
	ErrInsufficientInputAmount  = uniswapv2.ErrInsufficientInputAmount
	ErrInsufficientOutputAmount = uniswapv2.ErrInsufficientOutputAmount

	ErrLocked                      = errors.New("pair is locked")
	ErrForbidden                   = errors.New("forbidden")
	ErrPairExists                  = errors.New("pair exists")
	ErrPairNotFound                = errors.New("pair not found")
	ErrIndexOutOfRange             = errors.New("pair index out of range")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInvalidTo                   = errors.New("invalid to")
	ErrK                           = errors.New("constant product invariant violated")
	ErrOverflow                    = errors.New("reserve overflows uint112")
	ErrExpired                     = errors.New("deadline expired")
	ErrInsufficientAAmount         = errors.New("insufficient A amount")
	ErrInsufficientBAmount         = errors.New("insufficient B amount")
	ErrExcessiveInputAmount        = errors.New("excessive input amount")
	ErrInitCodeHashMismatch        = errors.New("init code hash mismatch")
)
