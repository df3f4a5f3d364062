// Package portfolio keeps per-user target allocations and lets the owner or
// their executors rebalance the portfolio's holdings through the router.
package portfolio

import (
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

const (
	ReasonOK                 = "rebalance is valid"
	ReasonPaused             = "portfolio is paused"
	ReasonZeroAmount         = "amountIn must be positive"
	ReasonPathTooShort       = "path must contain at least two tokens"
	ReasonPathStart          = "path does not start with tokenIn"
	ReasonPathEnd            = "path does not end with tokenOut"
	ReasonSameToken          = "tokenIn and tokenOut are the same"
	ReasonOutsideAllocation  = "tokenOut is not in the allocation"
	ReasonMinAboveQuote      = "amountOutMin is above the quoted output"
	ReasonMinBelowSlippage   = "amountOutMin is below the slippage band"
	ReasonInsufficientAmount = "portfolio balance is below amountIn"
)

var bps = big.NewInt(10_000)

// Policy bounds what a rebalance may do.
type Policy struct {
	// SlippageBps is how far below a fresh quote amountOutMin may sit.
	SlippageBps uint16
	// AllowUnrestricted lets a rebalance buy tokens outside the allocation.
	AllowUnrestricted bool
}

func (p Policy) Validate() error {
	if p.SlippageBps > 10_000 {
		return ErrInvalidSlippage
	}
	return nil
}

// Rebalance is a proposed trade of the portfolio's own holdings.
type Rebalance struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Path         []common.Address
}

// Portfolio holds one owner's allocation and custody of the tokens sent to
// its address.
type Portfolio struct {
	address common.Address
	owner   common.Address
	router  *amm.Router
	policy  Policy

	allocation Allocation
	executors  map[common.Address]bool
	paused     bool

	locked atomic.Bool
}

func newPortfolio(address, owner common.Address, router *amm.Router, policy Policy) *Portfolio {
	return &Portfolio{
		address:   address,
		owner:     owner,
		router:    router,
		policy:    policy,
		executors: make(map[common.Address]bool),
	}
}

func (p *Portfolio) Address() common.Address { return p.address }
func (p *Portfolio) Owner() common.Address   { return p.owner }
func (p *Portfolio) Router() common.Address  { return p.router.Address() }
func (p *Portfolio) Paused() bool            { return p.paused }
func (p *Portfolio) Allocation() Allocation  { return p.allocation }
func (p *Portfolio) HasAllocation() bool     { return !p.allocation.IsZero() }

// IsExecutor reports whether addr may rebalance. The owner always may.
func (p *Portfolio) IsExecutor(addr common.Address) bool {
	return addr == p.owner || p.executors[addr]
}

// SetAllocation replaces the allocation as a whole.
func (p *Portfolio) SetAllocation(tx *state.Tx, tokens []common.Address, percents []int64) error {
	if err := p.ownerOnly(tx); err != nil {
		return err
	}
	alloc, err := NewAllocation(tokens, percents)
	if err != nil {
		return err
	}
	prev := p.allocation
	p.allocation = alloc
	tx.Record(func() { p.allocation = prev })
	tx.Emit(p.address, AllocationSet{Entries: alloc.Entries()})
	return nil
}

func (p *Portfolio) AuthorizeExecutor(tx *state.Tx, executor common.Address) error {
	if err := p.ownerOnly(tx); err != nil {
		return err
	}
	p.setExecutor(tx, executor, true)
	tx.Emit(p.address, ExecutorAuthorized{Executor: executor})
	return nil
}

func (p *Portfolio) RevokeExecutor(tx *state.Tx, executor common.Address) error {
	if err := p.ownerOnly(tx); err != nil {
		return err
	}
	p.setExecutor(tx, executor, false)
	tx.Emit(p.address, ExecutorRevoked{Executor: executor})
	return nil
}

func (p *Portfolio) Pause(tx *state.Tx) error {
	if err := p.ownerOnly(tx); err != nil {
		return err
	}
	p.setPaused(tx, true)
	tx.Emit(p.address, Paused{Account: tx.Sender()})
	return nil
}

func (p *Portfolio) Unpause(tx *state.Tx) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if tx.Sender() != p.owner {
		return ErrUnauthorized
	}
	if !p.paused {
		return ErrNotPaused
	}
	p.setPaused(tx, false)
	tx.Emit(p.address, Unpaused{Account: tx.Sender()})
	return nil
}

// GetEstimatedOut quotes amountIn along path at the current reserves.
func (p *Portfolio) GetEstimatedOut(amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	return p.router.GetAmountsOut(amountIn, path)
}

// ContractBalance is the portfolio's holding of token.
func (p *Portfolio) ContractBalance(tx *state.Tx, token common.Address) *big.Int {
	return tx.BalanceOf(token, p.address)
}

// ValidateRebalance pre-flights r without changing anything. It never
// fails; a refused trade is reported through ok and reason.
func (p *Portfolio) ValidateRebalance(tx *state.Tx, r Rebalance) (ok bool, reason string) {
	if p.paused {
		return false, ReasonPaused
	}
	if r.AmountIn == nil || r.AmountIn.Sign() <= 0 {
		return false, ReasonZeroAmount
	}
	if len(r.Path) < 2 {
		return false, ReasonPathTooShort
	}
	if r.Path[0] != r.TokenIn {
		return false, ReasonPathStart
	}
	if r.Path[len(r.Path)-1] != r.TokenOut {
		return false, ReasonPathEnd
	}
	if r.TokenIn == r.TokenOut {
		return false, ReasonSameToken
	}
	if !p.policy.AllowUnrestricted && !p.allocation.Contains(r.TokenOut) {
		return false, ReasonOutsideAllocation
	}

	amounts, err := p.router.GetAmountsOut(r.AmountIn, r.Path)
	if err != nil {
		return false, fmt.Sprintf("quote failed: %v", err)
	}
	quoted := amounts[len(amounts)-1]
	minOut := r.AmountOutMin
	if minOut == nil {
		minOut = new(big.Int)
	}
	if minOut.Cmp(quoted) > 0 {
		return false, ReasonMinAboveQuote
	}
	floor := new(big.Int).Mul(quoted, big.NewInt(int64(10_000-p.policy.SlippageBps)))
	floor.Div(floor, bps)
	if minOut.Cmp(floor) < 0 {
		return false, ReasonMinBelowSlippage
	}

	if tx.BalanceOf(r.TokenIn, p.address).Cmp(r.AmountIn) < 0 {
		return false, ReasonInsufficientAmount
	}
	return true, ReasonOK
}

// ExecuteRebalance sells r.AmountIn of the portfolio's r.TokenIn through the
// router and keeps the proceeds. executor and reason go into the audit
// record; authorization is checked against the caller.
func (p *Portfolio) ExecuteRebalance(tx *state.Tx, executor common.Address, r Rebalance, reason string) (*big.Int, error) {
	if err := p.lock(tx); err != nil {
		return nil, err
	}
	defer p.unlock()

	if p.paused {
		return nil, ErrPaused
	}
	if !p.IsExecutor(tx.Sender()) {
		return nil, ErrNotExecutor
	}
	if !p.HasAllocation() {
		return nil, ErrNoAllocation
	}
	if ok, why := p.ValidateRebalance(tx, r); !ok {
		return nil, &ValidationError{Reason: why}
	}

	self := tx.From(p.address)
	if err := self.Approve(r.TokenIn, p.router.Address(), r.AmountIn); err != nil {
		return nil, err
	}
	before := tx.BalanceOf(r.TokenOut, p.address)
	if _, err := p.router.SwapExactTokensForTokens(self, r.AmountIn, r.AmountOutMin, r.Path, p.address, tx.Timestamp()); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	amountOut := new(big.Int).Sub(tx.BalanceOf(r.TokenOut, p.address), before)
	if r.AmountOutMin != nil && amountOut.Cmp(r.AmountOutMin) < 0 {
		return nil, amm.ErrInsufficientOutputAmount
	}

	tx.Emit(p.address, Rebalanced{
		Executor:  executor,
		TokenIn:   r.TokenIn,
		TokenOut:  r.TokenOut,
		AmountIn:  new(big.Int).Set(r.AmountIn),
		AmountOut: amountOut,
		Reason:    reason,
		Timestamp: tx.Timestamp(),
	})
	return amountOut, nil
}

// Withdraw sends amount of the portfolio's token to to.
func (p *Portfolio) Withdraw(tx *state.Tx, token common.Address, amount *big.Int, to common.Address) error {
	if err := p.ownerOnly(tx); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if err := p.lock(tx); err != nil {
		return err
	}
	defer p.unlock()

	if err := tx.From(p.address).Transfer(token, to, amount); err != nil {
		return err
	}
	tx.Emit(p.address, Withdrawn{Token: token, Amount: new(big.Int).Set(amount), To: to})
	return nil
}

// ownerOnly guards the owner's state-changing operations, none of which run
// while paused.
func (p *Portfolio) ownerOnly(tx *state.Tx) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if tx.Sender() != p.owner {
		return ErrUnauthorized
	}
	if p.paused {
		return ErrPaused
	}
	return nil
}

func (p *Portfolio) setExecutor(tx *state.Tx, executor common.Address, allowed bool) {
	prev, had := p.executors[executor]
	if allowed {
		p.executors[executor] = true
	} else {
		delete(p.executors, executor)
	}
	tx.Record(func() {
		if had {
			p.executors[executor] = prev
		} else {
			delete(p.executors, executor)
		}
	})
}

func (p *Portfolio) setPaused(tx *state.Tx, paused bool) {
	prev := p.paused
	p.paused = paused
	tx.Record(func() { p.paused = prev })
}

func (p *Portfolio) lock(tx *state.Tx) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if !p.locked.CompareAndSwap(false, true) {
		return ErrLocked
	}
	return nil
}

func (p *Portfolio) unlock() {
	p.locked.Store(false)
}
