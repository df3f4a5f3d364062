// Package eth exposes the engine over go-ethereum JSON-RPC and provides the
// matching client used by tooling.
package eth

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/nulln0ne/portfolio-amm/internal/service"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
)

// Reserves is the amm_getReserves result.
type Reserves struct {
	Pair               common.Address `json:"pair"`
	Token0             common.Address `json:"token0"`
	Token1             common.Address `json:"token1"`
	Reserve0           *hexutil.Big   `json:"reserve0"`
	Reserve1           *hexutil.Big   `json:"reserve1"`
	BlockTimestampLast hexutil.Uint64 `json:"blockTimestampLast"`
}

type AllocationEntry struct {
	Token   common.Address `json:"token"`
	Percent hexutil.Uint64 `json:"percent"`
}

// NewServer registers the amm namespace and the subset of the eth namespace
// that ethclient needs for chain id, height and native balances.
func NewServer(logger *slog.Logger, quote *service.QuoteService, portfolios *service.PortfolioService, chainID uint64) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("amm", &ammAPI{logger: logger, quote: quote, portfolios: portfolios}); err != nil {
		return nil, err
	}
	if err := srv.RegisterName("eth", &ethAPI{quote: quote, chainID: new(big.Int).SetUint64(chainID)}); err != nil {
		return nil, err
	}
	return srv, nil
}

type ammAPI struct {
	logger     *slog.Logger
	quote      *service.QuoteService
	portfolios *service.PortfolioService
}

func (api *ammAPI) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	return api.quote.GetPair(ctx, tokenA, tokenB)
}

func (api *ammAPI) GetReserves(ctx context.Context, pair common.Address) (*Reserves, error) {
	info, err := api.quote.Pair(ctx, pair)
	if err != nil {
		return nil, err
	}
	return &Reserves{
		Pair:               info.Pair,
		Token0:             info.Token0,
		Token1:             info.Token1,
		Reserve0:           (*hexutil.Big)(info.Reserve0),
		Reserve1:           (*hexutil.Big)(info.Reserve1),
		BlockTimestampLast: hexutil.Uint64(info.BlockTimestampLast),
	}, nil
}

func (api *ammAPI) GetAmountsOut(ctx context.Context, amountIn *hexutil.Big, path []common.Address) ([]*hexutil.Big, error) {
	if amountIn == nil {
		return nil, uniswapv2.ErrInsufficientInputAmount
	}
	amounts, err := api.quote.AmountsOut(ctx, amountIn.ToInt(), path)
	if err != nil {
		api.logger.Debug("rpc quote failed", "method", "amm_getAmountsOut", "err", err)
		return nil, err
	}
	return toHex(amounts), nil
}

func (api *ammAPI) GetAmountsIn(ctx context.Context, amountOut *hexutil.Big, path []common.Address) ([]*hexutil.Big, error) {
	if amountOut == nil {
		return nil, uniswapv2.ErrInsufficientOutputAmount
	}
	amounts, err := api.quote.AmountsIn(ctx, amountOut.ToInt(), path)
	if err != nil {
		return nil, err
	}
	return toHex(amounts), nil
}

func (api *ammAPI) AllPairsLength(ctx context.Context) (hexutil.Uint64, error) {
	info, err := api.quote.Factory(ctx)
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(info.PairsLength), nil
}

func (api *ammAPI) AllPairs(ctx context.Context, index hexutil.Uint64) (common.Address, error) {
	return api.quote.PairAt(ctx, int(index))
}

func (api *ammAPI) InitCodeHash(ctx context.Context) (common.Hash, error) {
	info, err := api.quote.Factory(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	return info.InitCodeHash, nil
}

func (api *ammAPI) GetPortfolio(ctx context.Context, owner common.Address) (common.Address, error) {
	return api.portfolios.Address(ctx, owner)
}

func (api *ammAPI) GetAllocation(ctx context.Context, owner common.Address) ([]AllocationEntry, error) {
	info, err := api.portfolios.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]AllocationEntry, len(info.Allocation))
	for i, e := range info.Allocation {
		out[i] = AllocationEntry{Token: e.Token, Percent: hexutil.Uint64(e.Percent)}
	}
	return out, nil
}

func (api *ammAPI) Addresses(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return api.quote.Addresses(), nil
}

type ethAPI struct {
	quote   *service.QuoteService
	chainID *big.Int
}

func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(api.chainID)
}

// BlockNumber reports the committed operation count as the chain height.
func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(api.quote.Seq())
}

// GetBalance only serves the latest state; the block argument is accepted
// for compatibility.
func (api *ethAPI) GetBalance(ctx context.Context, addr common.Address, _ rpc.BlockNumberOrHash) (*hexutil.Big, error) {
	bal, err := api.quote.Balance(ctx, state.NativeToken, addr)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(bal), nil
}

func toHex(amounts []*big.Int) []*hexutil.Big {
	out := make([]*hexutil.Big, len(amounts))
	for i, a := range amounts {
		out[i] = (*hexutil.Big)(a)
	}
	return out
}
