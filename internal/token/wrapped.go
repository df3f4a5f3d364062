package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

// WrappedNative is WMON: a 1:1 token claim on native currency held by the
// contract.
type WrappedNative struct {
	address common.Address
}

func DeployWrappedNative(tx *state.Tx) (*WrappedNative, error) {
	addr, err := tx.CreateAddress()
	if err != nil {
		return nil, err
	}
	err = tx.RegisterToken(addr, state.TokenInfo{
		Name:     "Wrapped MON",
		Symbol:   "WMON",
		Decimals: 18,
		Minter:   addr,
	})
	if err != nil {
		return nil, err
	}
	return &WrappedNative{address: addr}, nil
}

func (w *WrappedNative) Address() common.Address {
	return w.address
}

// Deposit moves amount of the sender's native currency into the contract and
// credits the sender the same amount of WMON.
func (w *WrappedNative) Deposit(tx *state.Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if err := tx.NativeTransfer(w.address, amount); err != nil {
		return err
	}
	return tx.From(w.address).Mint(w.address, tx.Sender(), amount)
}

// Withdraw burns amount of the sender's WMON and pays out native currency.
func (w *WrappedNative) Withdraw(tx *state.Tx, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	self := tx.From(w.address)
	if err := self.Burn(w.address, tx.Sender(), amount); err != nil {
		return err
	}
	return self.NativeTransfer(tx.Sender(), amount)
}
