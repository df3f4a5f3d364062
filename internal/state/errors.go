package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownToken          = errors.New("unknown token")
	ErrTokenExists           = errors.New("token already registered")
	ErrNotMinter             = errors.New("caller is not the token minter")
	ErrNegativeAmount        = errors.New("amount must be non-nil and non-negative")
	ErrReadOnly              = errors.New("state is read-only in a view")
)

// BalanceError reports a debit that exceeds the holder's balance.
type BalanceError struct {
	Token  common.Address
	Holder common.Address
	Have   *big.Int
	Want   *big.Int
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%v: holder %s has %s of %s, needs %s", ErrInsufficientBalance, e.Holder.Hex(), e.Have, e.Token.Hex(), e.Want)
}

func (e *BalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
