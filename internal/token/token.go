// Package token deploys the fungible tokens the exchange trades: the
// wrapped native token and mintable test tokens.
package token

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

var ErrZeroAmount = errors.New("zero amount")

// Spec describes a token to deploy.
type Spec struct {
	// Contract is the name the deployment address book records it under.
	Contract       string
	Name           string
	Symbol         string
	Decimals       uint8
	TransferFeeBps uint16
}

// TestTokens mirrors the set shipped with the local and testnet deployments.
var TestTokens = []Spec{
	{Contract: "TestDAI", Name: "Test DAI", Symbol: "DAI", Decimals: 18},
	{Contract: "TestUSDC", Name: "Test USDC", Symbol: "USDC", Decimals: 18},
	{Contract: "TestUSDT", Name: "Test USDT", Symbol: "USDT", Decimals: 18},
	{Contract: "TestWBTC", Name: "Test WBTC", Symbol: "WBTC", Decimals: 18},
}

// Deploy creates a token whose minter is the deploying sender.
func Deploy(tx *state.Tx, spec Spec) (common.Address, error) {
	addr, err := tx.CreateAddress()
	if err != nil {
		return common.Address{}, err
	}
	err = tx.RegisterToken(addr, state.TokenInfo{
		Name:           spec.Name,
		Symbol:         spec.Symbol,
		Decimals:       spec.Decimals,
		Minter:         tx.Sender(),
		TransferFeeBps: spec.TransferFeeBps,
	})
	if err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// Faucet mints amount of token to to. The sender must be the token's minter.
func Faucet(tx *state.Tx, token, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	return tx.Mint(token, to, amount)
}
