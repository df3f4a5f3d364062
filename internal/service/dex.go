package service

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
)

// DexService submits exchange operations on behalf of a caller.
type DexService struct {
	BaseService
}

func NewDexService(logger *slog.Logger, engine *Engine) *DexService {
	return &DexService{BaseService: newBase(logger, engine)}
}

type PairResult struct {
	Pair    common.Address `json:"pair"`
	Receipt *Receipt       `json:"receipt"`
}

type LiquidityResult struct {
	AmountA   *big.Int `json:"amountA"`
	AmountB   *big.Int `json:"amountB"`
	Liquidity *big.Int `json:"liquidity,omitempty"`
	Receipt   *Receipt `json:"receipt"`
}

type SwapResult struct {
	Amounts []*big.Int `json:"amounts"`
	Receipt *Receipt   `json:"receipt"`
}

// SwapParams describe a routed swap. Which of AmountIn and AmountOut is the
// exact side depends on the operation.
type SwapParams struct {
	AmountIn  *big.Int
	AmountOut *big.Int
	Path      []common.Address
	To        common.Address
	Deadline  uint64
}

func (s *DexService) CreatePair(ctx context.Context, from, tokenA, tokenB common.Address) (PairResult, error) {
	var res PairResult
	r, err := s.engine.execute(ctx, "create_pair", from, nil, func(tx *state.Tx) error {
		pair, err := s.engine.d.Factory.CreatePair(tx, tokenA, tokenB)
		if err != nil {
			return err
		}
		res.Pair = pair.Address()
		return nil
	})
	if err != nil {
		return PairResult{}, err
	}
	res.Receipt = r
	s.logger.Info("pair created", "pair", res.Pair.Hex(), "tokenA", tokenA.Hex(), "tokenB", tokenB.Hex())
	return res, nil
}

func (s *DexService) SetFeeTo(ctx context.Context, from, feeTo common.Address) (*Receipt, error) {
	return s.engine.execute(ctx, "set_fee_to", from, nil, func(tx *state.Tx) error {
		return s.engine.d.Factory.SetFeeTo(tx, feeTo)
	})
}

func (s *DexService) SetFeeToSetter(ctx context.Context, from, setter common.Address) (*Receipt, error) {
	return s.engine.execute(ctx, "set_fee_to_setter", from, nil, func(tx *state.Tx) error {
		return s.engine.d.Factory.SetFeeToSetter(tx, setter)
	})
}

func (s *DexService) AddLiquidity(ctx context.Context, from common.Address, p amm.AddLiquidityParams) (LiquidityResult, error) {
	var res LiquidityResult
	r, err := s.engine.execute(ctx, "add_liquidity", from, nil, func(tx *state.Tx) error {
		p.Deadline = withDeadline(tx, p.Deadline)
		var err error
		res.AmountA, res.AmountB, res.Liquidity, err = s.engine.d.Router.AddLiquidity(tx, p)
		return err
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	res.Receipt = r
	return res, nil
}

// AddLiquidityNative attaches value as the native side. AmountA of the
// result is the token amount.
func (s *DexService) AddLiquidityNative(ctx context.Context, from common.Address, value *big.Int, p amm.AddLiquidityNativeParams) (LiquidityResult, error) {
	var res LiquidityResult
	r, err := s.engine.execute(ctx, "add_liquidity_native", from, value, func(tx *state.Tx) error {
		p.Deadline = withDeadline(tx, p.Deadline)
		var err error
		res.AmountA, res.AmountB, res.Liquidity, err = s.engine.d.Router.AddLiquidityNative(tx, p)
		return err
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	res.Receipt = r
	return res, nil
}

func (s *DexService) RemoveLiquidity(ctx context.Context, from common.Address, p amm.RemoveLiquidityParams) (LiquidityResult, error) {
	var res LiquidityResult
	r, err := s.engine.execute(ctx, "remove_liquidity", from, nil, func(tx *state.Tx) error {
		p.Deadline = withDeadline(tx, p.Deadline)
		if err := s.approvePair(tx, p.TokenA, p.TokenB, p.Liquidity); err != nil {
			return err
		}
		var err error
		res.AmountA, res.AmountB, err = s.engine.d.Router.RemoveLiquidity(tx, p)
		return err
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	res.Receipt = r
	return res, nil
}

func (s *DexService) RemoveLiquidityNative(ctx context.Context, from common.Address, p amm.RemoveLiquidityNativeParams) (LiquidityResult, error) {
	var res LiquidityResult
	r, err := s.engine.execute(ctx, "remove_liquidity_native", from, nil, func(tx *state.Tx) error {
		p.Deadline = withDeadline(tx, p.Deadline)
		if err := s.approvePair(tx, p.Token, s.engine.d.WMON.Address(), p.Liquidity); err != nil {
			return err
		}
		var err error
		res.AmountA, res.AmountB, err = s.engine.d.Router.RemoveLiquidityNative(tx, p)
		return err
	})
	if err != nil {
		return LiquidityResult{}, err
	}
	res.Receipt = r
	return res, nil
}

// SwapExactIn sells exactly p.AmountIn of path[0]; p.AmountOut is the
// minimum accepted output.
func (s *DexService) SwapExactIn(ctx context.Context, from common.Address, p SwapParams) (SwapResult, error) {
	return s.swap(ctx, "swap_exact_in", from, nil, p, func(tx *state.Tx, r *amm.Router, p SwapParams) ([]*big.Int, error) {
		return r.SwapExactTokensForTokens(tx, p.AmountIn, p.AmountOut, p.Path, p.To, p.Deadline)
	})
}

// SwapExactOut buys exactly p.AmountOut of the last token; p.AmountIn caps
// the input.
func (s *DexService) SwapExactOut(ctx context.Context, from common.Address, p SwapParams) (SwapResult, error) {
	return s.swap(ctx, "swap_exact_out", from, nil, p, func(tx *state.Tx, r *amm.Router, p SwapParams) ([]*big.Int, error) {
		return r.SwapTokensForExactTokens(tx, p.AmountOut, p.AmountIn, p.Path, p.To, p.Deadline)
	})
}

// SwapExactNativeIn sells the attached value; path must start at WMON.
func (s *DexService) SwapExactNativeIn(ctx context.Context, from common.Address, value *big.Int, p SwapParams) (SwapResult, error) {
	return s.swap(ctx, "swap_exact_native_in", from, value, p, func(tx *state.Tx, r *amm.Router, p SwapParams) ([]*big.Int, error) {
		return r.SwapExactNativeForTokens(tx, p.AmountOut, p.Path, p.To, p.Deadline)
	})
}

// SwapExactInNativeOut sells tokens for native currency; path must end at
// WMON.
func (s *DexService) SwapExactInNativeOut(ctx context.Context, from common.Address, p SwapParams) (SwapResult, error) {
	return s.swap(ctx, "swap_exact_in_native_out", from, nil, p, func(tx *state.Tx, r *amm.Router, p SwapParams) ([]*big.Int, error) {
		return r.SwapExactTokensForNative(tx, p.AmountIn, p.AmountOut, p.Path, p.To, p.Deadline)
	})
}

// SwapSupportingFee sells p.AmountIn through tokens that take a transfer
// fee. The router does not report per-hop amounts for these swaps.
func (s *DexService) SwapSupportingFee(ctx context.Context, from common.Address, p SwapParams) (SwapResult, error) {
	return s.swap(ctx, "swap_supporting_fee", from, nil, p, func(tx *state.Tx, r *amm.Router, p SwapParams) ([]*big.Int, error) {
		return nil, r.SwapExactTokensForTokensSupportingFeeOnTransferTokens(tx, p.AmountIn, p.AmountOut, p.Path, p.To, p.Deadline)
	})
}

type swapFunc func(tx *state.Tx, r *amm.Router, p SwapParams) ([]*big.Int, error)

func (s *DexService) swap(ctx context.Context, op string, from common.Address, value *big.Int, p SwapParams, fn swapFunc) (SwapResult, error) {
	if p.To == (common.Address{}) {
		p.To = from
	}
	var res SwapResult
	r, err := s.engine.execute(ctx, op, from, value, func(tx *state.Tx) error {
		p.Deadline = withDeadline(tx, p.Deadline)
		var err error
		res.Amounts, err = fn(tx, s.engine.d.Router, p)
		return err
	})
	if err != nil {
		return SwapResult{}, err
	}
	res.Receipt = r
	return res, nil
}

// Approve sets spender's allowance over the caller's token.
func (s *DexService) Approve(ctx context.Context, from, tkn, spender common.Address, amount *big.Int) (*Receipt, error) {
	return s.engine.execute(ctx, "approve", from, nil, func(tx *state.Tx) error {
		return tx.Approve(tkn, spender, amount)
	})
}

func (s *DexService) Transfer(ctx context.Context, from, tkn, to common.Address, amount *big.Int) (*Receipt, error) {
	return s.engine.execute(ctx, "transfer", from, nil, func(tx *state.Tx) error {
		if tkn == state.NativeToken {
			return tx.NativeTransfer(to, amount)
		}
		return tx.Transfer(tkn, to, amount)
	})
}

// Faucet mints a test token to to. The deployer, as the tokens' minter,
// submits the operation. The native token is paid out of the deployer's
// balance.
func (s *DexService) Faucet(ctx context.Context, tkn, to common.Address, amount *big.Int) (*Receipt, error) {
	native := tkn == state.NativeToken
	if !native && !s.isTestToken(tkn) {
		return nil, ErrNotTestToken
	}
	r, err := s.engine.execute(ctx, "faucet", s.engine.d.Deployer, nil, func(tx *state.Tx) error {
		if native {
			if amount == nil || amount.Sign() <= 0 {
				return token.ErrZeroAmount
			}
			return tx.NativeTransfer(to, amount)
		}
		return token.Faucet(tx, tkn, to, amount)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("faucet minted", "token", tkn.Hex(), "to", to.Hex(), "amount", amount.String())
	return r, nil
}

// Wrap deposits amount of the caller's native currency into WMON.
func (s *DexService) Wrap(ctx context.Context, from common.Address, amount *big.Int) (*Receipt, error) {
	return s.engine.execute(ctx, "wrap", from, amount, func(tx *state.Tx) error {
		return s.engine.d.WMON.Deposit(tx, amount)
	})
}

func (s *DexService) Unwrap(ctx context.Context, from common.Address, amount *big.Int) (*Receipt, error) {
	return s.engine.execute(ctx, "unwrap", from, nil, func(tx *state.Tx) error {
		return s.engine.d.WMON.Withdraw(tx, amount)
	})
}

// approvePair lets the router pull the caller's LP tokens. An existing
// allowance that already covers liquidity is left alone.
func (s *DexService) approvePair(tx *state.Tx, tokenA, tokenB common.Address, liquidity *big.Int) error {
	pair, err := s.engine.d.Factory.PairOf(tokenA, tokenB)
	if err != nil {
		return err
	}
	router := s.engine.d.Router.Address()
	if liquidity == nil || tx.Allowance(pair.Address(), tx.Sender(), router).Cmp(liquidity) >= 0 {
		return nil
	}
	return tx.Approve(pair.Address(), router, liquidity)
}

func (s *DexService) isTestToken(tkn common.Address) bool {
	for _, addr := range s.engine.d.Tokens {
		if addr == tkn {
			return true
		}
	}
	return false
}
