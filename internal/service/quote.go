package service

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/deployments"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

// QuoteService answers read-only questions about the exchange.
type QuoteService struct {
	BaseService
}

func NewQuoteService(logger *slog.Logger, engine *Engine) *QuoteService {
	return &QuoteService{BaseService: newBase(logger, engine)}
}

type FactoryInfo struct {
	Factory      common.Address `json:"factory"`
	Router       common.Address `json:"router"`
	WMON         common.Address `json:"wmon"`
	FeeTo        common.Address `json:"feeTo"`
	FeeToSetter  common.Address `json:"feeToSetter"`
	InitCodeHash common.Hash    `json:"initCodeHash"`
	PairsLength  int            `json:"allPairsLength"`
}

type PairInfo struct {
	Pair                 common.Address `json:"pair"`
	Token0               common.Address `json:"token0"`
	Token1               common.Address `json:"token1"`
	Reserve0             *big.Int       `json:"reserve0"`
	Reserve1             *big.Int       `json:"reserve1"`
	BlockTimestampLast   uint32         `json:"blockTimestampLast"`
	Price0CumulativeLast *big.Int       `json:"price0CumulativeLast"`
	Price1CumulativeLast *big.Int       `json:"price1CumulativeLast"`
	KLast                *big.Int       `json:"kLast"`
	TotalSupply          *big.Int       `json:"totalSupply"`
}

func (s *QuoteService) Factory(ctx context.Context) (FactoryInfo, error) {
	d := s.engine.d
	var info FactoryInfo
	err := s.engine.view(ctx, func(*state.Tx) error {
		info = FactoryInfo{
			Factory:      d.Factory.Address(),
			Router:       d.Router.Address(),
			WMON:         d.Router.WMON(),
			FeeTo:        d.Factory.FeeTo(),
			FeeToSetter:  d.Factory.FeeToSetter(),
			InitCodeHash: d.Factory.InitCodeHash(),
			PairsLength:  d.Factory.AllPairsLength(),
		}
		return nil
	})
	return info, err
}

// AmountsOut quotes a chained exact-input swap along path.
func (s *QuoteService) AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	var amounts []*big.Int
	err := s.engine.view(ctx, func(*state.Tx) error {
		var err error
		amounts, err = s.engine.d.Router.GetAmountsOut(amountIn, path)
		return err
	})
	if err != nil {
		s.logger.Debug("quote failed", "path", len(path), "err", err)
		return nil, err
	}
	return amounts, nil
}

// AmountsIn quotes the inputs needed to receive amountOut at the end of
// path.
func (s *QuoteService) AmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	var amounts []*big.Int
	err := s.engine.view(ctx, func(*state.Tx) error {
		var err error
		amounts, err = s.engine.d.Router.GetAmountsIn(amountOut, path)
		return err
	})
	return amounts, err
}

// GetPair returns the zero address when no pair exists.
func (s *QuoteService) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	var pair common.Address
	err := s.engine.view(ctx, func(*state.Tx) error {
		pair = s.engine.d.Factory.GetPair(tokenA, tokenB)
		return nil
	})
	return pair, err
}

func (s *QuoteService) AllPairs(ctx context.Context) ([]common.Address, error) {
	var pairs []common.Address
	err := s.engine.view(ctx, func(*state.Tx) error {
		f := s.engine.d.Factory
		pairs = make([]common.Address, 0, f.AllPairsLength())
		for i := 0; i < f.AllPairsLength(); i++ {
			addr, err := f.AllPairs(i)
			if err != nil {
				return err
			}
			pairs = append(pairs, addr)
		}
		return nil
	})
	return pairs, err
}

// PairAt returns the i-th pair in creation order.
func (s *QuoteService) PairAt(ctx context.Context, i int) (common.Address, error) {
	var pair common.Address
	err := s.engine.view(ctx, func(*state.Tx) error {
		var err error
		pair, err = s.engine.d.Factory.AllPairs(i)
		return err
	})
	return pair, err
}

func (s *QuoteService) Pair(ctx context.Context, addr common.Address) (PairInfo, error) {
	var info PairInfo
	err := s.engine.view(ctx, func(tx *state.Tx) error {
		p, err := s.engine.d.Factory.Pair(addr)
		if err != nil {
			return err
		}
		r0, r1, ts := p.Reserves()
		info = PairInfo{
			Pair:                 p.Address(),
			Token0:               p.Token0(),
			Token1:               p.Token1(),
			Reserve0:             r0,
			Reserve1:             r1,
			BlockTimestampLast:   ts,
			Price0CumulativeLast: p.Price0CumulativeLast(),
			Price1CumulativeLast: p.Price1CumulativeLast(),
			KLast:                p.KLast(),
			TotalSupply:          p.TotalSupply(tx),
		}
		return nil
	})
	return info, err
}

// Balance returns holder's balance of token. The native token sentinel
// reads the native balance.
func (s *QuoteService) Balance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	var bal *big.Int
	err := s.engine.view(ctx, func(tx *state.Tx) error {
		if token == state.NativeToken {
			bal = tx.NativeBalance(holder)
			return nil
		}
		if _, ok := tx.Token(token); !ok {
			return state.ErrUnknownToken
		}
		bal = tx.BalanceOf(token, holder)
		return nil
	})
	return bal, err
}

func (s *QuoteService) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var v *big.Int
	err := s.engine.view(ctx, func(tx *state.Tx) error {
		if _, ok := tx.Token(token); !ok {
			return state.ErrUnknownToken
		}
		v = tx.Allowance(token, owner, spender)
		return nil
	})
	return v, err
}

// Addresses returns the address book of the running deployment.
func (s *QuoteService) Addresses() deployments.Book {
	return s.engine.d.Book()
}

// Seq is the sequence number of the last committed operation.
func (s *QuoteService) Seq() uint64 {
	return s.engine.st.Seq()
}

func checkPath(path []common.Address) error {
	if len(path) == 2 && path[0] == path[1] {
		return ErrSameToken
	}
	return nil
}
