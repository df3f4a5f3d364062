package amm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type PairCreated struct {
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	Pair   common.Address `json:"pair"`
	Index  uint64         `json:"index"`
}

func (PairCreated) EventName() string { return "PairCreated" }

type Mint struct {
	Sender  common.Address `json:"sender"`
	Amount0 *big.Int       `json:"amount0"`
	Amount1 *big.Int       `json:"amount1"`
}

func (Mint) EventName() string { return "Mint" }

type Burn struct {
	Sender  common.Address `json:"sender"`
	Amount0 *big.Int       `json:"amount0"`
	Amount1 *big.Int       `json:"amount1"`
	To      common.Address `json:"to"`
}

func (Burn) EventName() string { return "Burn" }

type Swap struct {
	Sender     common.Address `json:"sender"`
	Amount0In  *big.Int       `json:"amount0In"`
	Amount1In  *big.Int       `json:"amount1In"`
	Amount0Out *big.Int       `json:"amount0Out"`
	Amount1Out *big.Int       `json:"amount1Out"`
	To         common.Address `json:"to"`
}

func (Swap) EventName() string { return "Swap" }

type Sync struct {
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
}

func (Sync) EventName() string { return "Sync" }
