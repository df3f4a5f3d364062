package eth

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/nulln0ne/portfolio-amm/internal/deployments"
)

// Client talks to a node serving the amm namespace. Standard eth calls go
// through ethclient.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

func Dial(ctx context.Context, url string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

func NewClient(c *rpc.Client) *Client {
	return &Client{rpc: c, eth: ethclient.NewClient(c)}
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BalanceAt returns the latest native balance of addr.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, addr, nil)
}

func (c *Client) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	var pair common.Address
	err := c.rpc.CallContext(ctx, &pair, "amm_getPair", tokenA, tokenB)
	return pair, err
}

func (c *Client) GetReserves(ctx context.Context, pair common.Address) (*Reserves, error) {
	var r Reserves
	if err := c.rpc.CallContext(ctx, &r, "amm_getReserves", pair); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	return c.amounts(ctx, "amm_getAmountsOut", amountIn, path)
}

func (c *Client) GetAmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	return c.amounts(ctx, "amm_getAmountsIn", amountOut, path)
}

func (c *Client) amounts(ctx context.Context, method string, amount *big.Int, path []common.Address) ([]*big.Int, error) {
	var raw []*hexutil.Big
	if err := c.rpc.CallContext(ctx, &raw, method, (*hexutil.Big)(amount), path); err != nil {
		return nil, err
	}
	out := make([]*big.Int, len(raw))
	for i, a := range raw {
		out[i] = a.ToInt()
	}
	return out, nil
}

func (c *Client) AllPairsLength(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	err := c.rpc.CallContext(ctx, &n, "amm_allPairsLength")
	return uint64(n), err
}

func (c *Client) AllPairs(ctx context.Context, index uint64) (common.Address, error) {
	var pair common.Address
	err := c.rpc.CallContext(ctx, &pair, "amm_allPairs", hexutil.Uint64(index))
	return pair, err
}

func (c *Client) InitCodeHash(ctx context.Context) (common.Hash, error) {
	var h common.Hash
	err := c.rpc.CallContext(ctx, &h, "amm_initCodeHash")
	return h, err
}

func (c *Client) GetPortfolio(ctx context.Context, owner common.Address) (common.Address, error) {
	var addr common.Address
	err := c.rpc.CallContext(ctx, &addr, "amm_getPortfolio", owner)
	return addr, err
}

func (c *Client) GetAllocation(ctx context.Context, owner common.Address) ([]AllocationEntry, error) {
	var entries []AllocationEntry
	err := c.rpc.CallContext(ctx, &entries, "amm_getAllocation", owner)
	return entries, err
}

// Addresses fetches the node's address book.
func (c *Client) Addresses(ctx context.Context) (deployments.Book, error) {
	var book deployments.Book
	err := c.rpc.CallContext(ctx, &book, "amm_addresses")
	return book, err
}
