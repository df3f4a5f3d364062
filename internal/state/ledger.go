package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var bps = big.NewInt(10_000)

// RegisterToken makes token known to the ledger.
func (tx *Tx) RegisterToken(token common.Address, info TokenInfo) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if _, ok := tx.st.tokens[token]; ok {
		return ErrTokenExists
	}
	tx.st.tokens[token] = &info
	tx.Record(func() { delete(tx.st.tokens, token) })
	return nil
}

// Token returns a copy of the token's description.
func (tx *Tx) Token(token common.Address) (TokenInfo, bool) {
	info, ok := tx.st.tokens[token]
	if !ok {
		return TokenInfo{}, false
	}
	return *info, true
}

func (tx *Tx) BalanceOf(token, holder common.Address) *big.Int {
	if bal, ok := tx.st.balances[token][holder]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

func (tx *Tx) TotalSupply(token common.Address) *big.Int {
	if sup, ok := tx.st.supply[token]; ok {
		return new(big.Int).Set(sup)
	}
	return new(big.Int)
}

func (tx *Tx) Allowance(token, owner, spender common.Address) *big.Int {
	if a, ok := tx.st.allowances[token][allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (tx *Tx) NativeBalance(holder common.Address) *big.Int {
	return tx.BalanceOf(NativeToken, holder)
}

// Transfer moves amount of token from the sender to to.
func (tx *Tx) Transfer(token, to common.Address, amount *big.Int) error {
	return tx.transfer(token, tx.sender, to, amount)
}

// NativeTransfer moves native currency from the sender to to.
func (tx *Tx) NativeTransfer(to common.Address, amount *big.Int) error {
	return tx.transfer(NativeToken, tx.sender, to, amount)
}

// TransferFrom moves amount of token from from to to, spending the sender's
// allowance unless the sender is from or the allowance is unlimited.
func (tx *Tx) TransferFrom(token, from, to common.Address, amount *big.Int) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	spender := tx.sender
	if spender != from {
		allowed := tx.Allowance(token, from, spender)
		if allowed.Cmp(MaxUint256) != 0 {
			if allowed.Cmp(amount) < 0 {
				return ErrInsufficientAllowance
			}
			tx.setAllowance(token, from, spender, allowed.Sub(allowed, amount))
		}
	}
	return tx.transfer(token, from, to, amount)
}

// Approve lets spender move up to amount of the sender's token.
func (tx *Tx) Approve(token, spender common.Address, amount *big.Int) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if _, ok := tx.st.tokens[token]; !ok {
		return ErrUnknownToken
	}
	tx.setAllowance(token, tx.sender, spender, new(big.Int).Set(amount))
	return nil
}

// Mint creates amount of token for to. Only the token's minter may call it.
func (tx *Tx) Mint(token, to common.Address, amount *big.Int) error {
	if err := tx.checkMinter(token, amount); err != nil {
		return err
	}
	bal := tx.BalanceOf(token, to)
	tx.setBalance(token, to, bal.Add(bal, amount))
	sup := tx.TotalSupply(token)
	tx.setSupply(token, sup.Add(sup, amount))
	return nil
}

// Burn destroys amount of token held by from. Only the token's minter may
// call it.
func (tx *Tx) Burn(token, from common.Address, amount *big.Int) error {
	if err := tx.checkMinter(token, amount); err != nil {
		return err
	}
	bal := tx.BalanceOf(token, from)
	if bal.Cmp(amount) < 0 {
		return &BalanceError{Token: token, Holder: from, Have: bal, Want: new(big.Int).Set(amount)}
	}
	tx.setBalance(token, from, bal.Sub(bal, amount))
	sup := tx.TotalSupply(token)
	tx.setSupply(token, sup.Sub(sup, amount))
	return nil
}

func (tx *Tx) checkMinter(token common.Address, amount *big.Int) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	info, ok := tx.st.tokens[token]
	if !ok {
		return ErrUnknownToken
	}
	if info.Minter != tx.sender {
		return ErrNotMinter
	}
	return nil
}

func (tx *Tx) transfer(token, from, to common.Address, amount *big.Int) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	info, ok := tx.st.tokens[token]
	if !ok {
		return ErrUnknownToken
	}
	bal := tx.BalanceOf(token, from)
	if bal.Cmp(amount) < 0 {
		return &BalanceError{Token: token, Holder: from, Have: bal, Want: new(big.Int).Set(amount)}
	}

	received := new(big.Int).Set(amount)
	if info.TransferFeeBps > 0 && amount.Sign() > 0 {
		fee := new(big.Int).Mul(amount, big.NewInt(int64(info.TransferFeeBps)))
		fee.Div(fee, bps)
		received.Sub(received, fee)
		sup := tx.TotalSupply(token)
		tx.setSupply(token, sup.Sub(sup, fee))
	}

	tx.setBalance(token, from, bal.Sub(bal, amount))
	dst := tx.BalanceOf(token, to)
	tx.setBalance(token, to, dst.Add(dst, received))

	if info.OnTransfer != nil {
		return info.OnTransfer(tx.From(token), from, to, new(big.Int).Set(amount))
	}
	return nil
}

func (tx *Tx) setBalance(token, holder common.Address, v *big.Int) {
	m := tx.st.balances[token]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		tx.st.balances[token] = m
	}
	prev, had := m[holder]
	m[holder] = v
	tx.Record(func() {
		if had {
			m[holder] = prev
		} else {
			delete(m, holder)
		}
	})
}

func (tx *Tx) setSupply(token common.Address, v *big.Int) {
	prev, had := tx.st.supply[token]
	tx.st.supply[token] = v
	tx.Record(func() {
		if had {
			tx.st.supply[token] = prev
		} else {
			delete(tx.st.supply, token)
		}
	})
}

func (tx *Tx) setAllowance(token, owner, spender common.Address, v *big.Int) {
	m := tx.st.allowances[token]
	if m == nil {
		m = make(map[allowanceKey]*big.Int)
		tx.st.allowances[token] = m
	}
	key := allowanceKey{owner, spender}
	prev, had := m[key]
	m[key] = v
	tx.Record(func() {
		if had {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}
