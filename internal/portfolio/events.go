package portfolio

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type PortfolioCreated struct {
	Owner     common.Address `json:"owner"`
	Portfolio common.Address `json:"portfolio"`
	Index     uint64         `json:"index"`
}

func (PortfolioCreated) EventName() string { return "PortfolioCreated" }

type AllocationSet struct {
	Entries []Entry `json:"entries"`
}

func (AllocationSet) EventName() string { return "AllocationSet" }

type ExecutorAuthorized struct {
	Executor common.Address `json:"executor"`
}

func (ExecutorAuthorized) EventName() string { return "ExecutorAuthorized" }

type ExecutorRevoked struct {
	Executor common.Address `json:"executor"`
}

func (ExecutorRevoked) EventName() string { return "ExecutorRevoked" }

type Paused struct {
	Account common.Address `json:"account"`
}

func (Paused) EventName() string { return "Paused" }

type Unpaused struct {
	Account common.Address `json:"account"`
}

func (Unpaused) EventName() string { return "Unpaused" }

// Rebalanced is the audit record of one executed rebalance.
type Rebalanced struct {
	Executor  common.Address `json:"executor"`
	TokenIn   common.Address `json:"tokenIn"`
	TokenOut  common.Address `json:"tokenOut"`
	AmountIn  *big.Int       `json:"amountIn"`
	AmountOut *big.Int       `json:"amountOut"`
	Reason    string         `json:"reason"`
	Timestamp uint64         `json:"timestamp"`
}

func (Rebalanced) EventName() string { return "Rebalanced" }

type Withdrawn struct {
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
	To     common.Address `json:"to"`
}

func (Withdrawn) EventName() string { return "Withdrawn" }
