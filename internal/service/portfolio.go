package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/portfolio"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

// PortfolioService manages user portfolios. Portfolios are addressed by
// their owner.
type PortfolioService struct {
	BaseService
}

func NewPortfolioService(logger *slog.Logger, engine *Engine) *PortfolioService {
	return &PortfolioService{BaseService: newBase(logger, engine)}
}

type PortfolioInfo struct {
	Portfolio     common.Address    `json:"portfolio"`
	Owner         common.Address    `json:"owner"`
	Router        common.Address    `json:"router"`
	Paused        bool              `json:"paused"`
	HasAllocation bool              `json:"hasAllocation"`
	Allocation    []portfolio.Entry `json:"allocation"`
}

type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

type RebalanceResult struct {
	AmountOut *big.Int `json:"amountOut"`
	Receipt   *Receipt `json:"receipt"`
}

type CreateResult struct {
	Portfolio common.Address `json:"portfolio"`
	Receipt   *Receipt       `json:"receipt"`
}

// Create issues a portfolio owned by from.
func (s *PortfolioService) Create(ctx context.Context, from common.Address) (CreateResult, error) {
	var res CreateResult
	r, err := s.engine.execute(ctx, "create_portfolio", from, nil, func(tx *state.Tx) error {
		p, err := s.engine.d.Portfolios.CreatePortfolio(tx)
		if err != nil {
			return err
		}
		res.Portfolio = p.Address()
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}
	res.Receipt = r
	s.logger.Info("portfolio created", "owner", from.Hex(), "portfolio", res.Portfolio.Hex())
	return res, nil
}

// Address returns the zero address when owner has no portfolio.
func (s *PortfolioService) Address(ctx context.Context, owner common.Address) (common.Address, error) {
	var addr common.Address
	err := s.engine.view(ctx, func(*state.Tx) error {
		addr = s.engine.d.Portfolios.GetPortfolio(owner)
		return nil
	})
	return addr, err
}

// Get describes owner's portfolio. An owner without one gets the zero
// portfolio address and an empty allocation.
func (s *PortfolioService) Get(ctx context.Context, owner common.Address) (PortfolioInfo, error) {
	var info PortfolioInfo
	err := s.engine.view(ctx, func(*state.Tx) error {
		p, err := s.engine.d.Portfolios.PortfolioOf(owner)
		if errors.Is(err, portfolio.ErrPortfolioNotFound) {
			info = PortfolioInfo{
				Owner:      owner,
				Router:     s.engine.d.Portfolios.Router(),
				Allocation: []portfolio.Entry{},
			}
			return nil
		}
		if err != nil {
			return err
		}
		info = PortfolioInfo{
			Portfolio:     p.Address(),
			Owner:         p.Owner(),
			Router:        p.Router(),
			Paused:        p.Paused(),
			HasAllocation: p.HasAllocation(),
			Allocation:    p.Allocation().Entries(),
		}
		return nil
	})
	return info, err
}

func (s *PortfolioService) Balance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	var bal *big.Int
	err := s.withPortfolio(ctx, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		bal = p.ContractBalance(tx, token)
		return nil
	})
	return bal, err
}

func (s *PortfolioService) Estimate(ctx context.Context, owner common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	var amounts []*big.Int
	err := s.withPortfolio(ctx, owner, func(_ *state.Tx, p *portfolio.Portfolio) error {
		var err error
		amounts, err = p.GetEstimatedOut(amountIn, path)
		return err
	})
	return amounts, err
}

// Validate pre-flights a rebalance. A refused trade is a successful call
// with Valid unset.
func (s *PortfolioService) Validate(ctx context.Context, owner common.Address, r portfolio.Rebalance) (Validation, error) {
	var v Validation
	err := s.withPortfolio(ctx, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		v.Valid, v.Reason = p.ValidateRebalance(tx, r)
		return nil
	})
	return v, err
}

func (s *PortfolioService) SetAllocation(ctx context.Context, from, owner common.Address, tokens []common.Address, percents []int64) (*Receipt, error) {
	return s.submit(ctx, "set_allocation", from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		return p.SetAllocation(tx, tokens, percents)
	})
}

func (s *PortfolioService) SetExecutor(ctx context.Context, from, owner, executor common.Address, allowed bool) (*Receipt, error) {
	op := "authorize_executor"
	if !allowed {
		op = "revoke_executor"
	}
	return s.submit(ctx, op, from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		if allowed {
			return p.AuthorizeExecutor(tx, executor)
		}
		return p.RevokeExecutor(tx, executor)
	})
}

func (s *PortfolioService) Pause(ctx context.Context, from, owner common.Address) (*Receipt, error) {
	return s.submit(ctx, "pause", from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		return p.Pause(tx)
	})
}

func (s *PortfolioService) Unpause(ctx context.Context, from, owner common.Address) (*Receipt, error) {
	return s.submit(ctx, "unpause", from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		return p.Unpause(tx)
	})
}

func (s *PortfolioService) Withdraw(ctx context.Context, from, owner, token common.Address, amount *big.Int, to common.Address) (*Receipt, error) {
	if to == (common.Address{}) {
		to = from
	}
	return s.submit(ctx, "withdraw", from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		return p.Withdraw(tx, token, amount, to)
	})
}

// Deposit moves the caller's tokens into owner's portfolio.
func (s *PortfolioService) Deposit(ctx context.Context, from, owner, token common.Address, amount *big.Int) (*Receipt, error) {
	return s.submit(ctx, "deposit", from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		if amount == nil || amount.Sign() <= 0 {
			return portfolio.ErrZeroAmount
		}
		return tx.Transfer(token, p.Address(), amount)
	})
}

// Rebalance executes r as from. executor is recorded in the audit event
// and defaults to from.
func (s *PortfolioService) Rebalance(ctx context.Context, from, owner, executor common.Address, r portfolio.Rebalance, reason string) (RebalanceResult, error) {
	if executor == (common.Address{}) {
		executor = from
	}
	var res RebalanceResult
	receipt, err := s.submit(ctx, "rebalance", from, owner, func(tx *state.Tx, p *portfolio.Portfolio) error {
		var err error
		res.AmountOut, err = p.ExecuteRebalance(tx, executor, r, reason)
		return err
	})
	s.engine.metrics.RebalancesTotal.WithLabelValues(rebalanceStatus(err)).Inc()
	if err != nil {
		s.logger.Warn("rebalance failed", "owner", owner.Hex(), "executor", executor.Hex(), "err", err)
		return RebalanceResult{}, err
	}
	res.Receipt = receipt
	s.logger.Info("rebalanced", "owner", owner.Hex(), "tokenIn", r.TokenIn.Hex(), "tokenOut", r.TokenOut.Hex(),
		"in", r.AmountIn.String(), "out", res.AmountOut.String())
	return res, nil
}

func rebalanceStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, portfolio.ErrRebalanceRejected):
		return "rejected"
	default:
		return "error"
	}
}

func (s *PortfolioService) withPortfolio(ctx context.Context, owner common.Address, fn func(tx *state.Tx, p *portfolio.Portfolio) error) error {
	return s.engine.view(ctx, func(tx *state.Tx) error {
		p, err := s.engine.d.Portfolios.PortfolioOf(owner)
		if err != nil {
			return err
		}
		return fn(tx, p)
	})
}

func (s *PortfolioService) submit(ctx context.Context, op string, from, owner common.Address, fn func(tx *state.Tx, p *portfolio.Portfolio) error) (*Receipt, error) {
	return s.engine.execute(ctx, op, from, nil, func(tx *state.Tx) error {
		p, err := s.engine.d.Portfolios.PortfolioOf(owner)
		if err != nil {
			return err
		}
		return fn(tx, p)
	})
}
