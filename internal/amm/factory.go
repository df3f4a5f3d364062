package amm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
)

type pairKey struct {
	token0 common.Address
	token1 common.Address
}

// Factory is the registry of pairs. Pairs live in an append-only arena;
// lookups resolve a token pair or a pair address to an arena index.
type Factory struct {
	address      common.Address
	initCodeHash common.Hash
	feeTo        common.Address
	feeToSetter  common.Address

	pairs     []*Pair
	byTokens  map[pairKey]int
	byAddress map[common.Address]int
}

// DeployFactory creates a factory at the sender's next contract address.
func DeployFactory(tx *state.Tx, feeToSetter common.Address, initCodeHash common.Hash) (*Factory, error) {
	addr, err := tx.CreateAddress()
	if err != nil {
		return nil, err
	}
	return NewFactory(addr, feeToSetter, initCodeHash), nil
}

// NewFactory returns an empty factory at address that derives pair addresses
// with initCodeHash. A zero hash selects PairInitCodeHash.
func NewFactory(address, feeToSetter common.Address, initCodeHash common.Hash) *Factory {
	if initCodeHash == (common.Hash{}) {
		initCodeHash = PairInitCodeHash()
	}
	return &Factory{
		address:      address,
		initCodeHash: initCodeHash,
		feeToSetter:  feeToSetter,
		byTokens:     make(map[pairKey]int),
		byAddress:    make(map[common.Address]int),
	}
}

func (f *Factory) Address() common.Address     { return f.address }
func (f *Factory) InitCodeHash() common.Hash   { return f.initCodeHash }
func (f *Factory) FeeTo() common.Address       { return f.feeTo }
func (f *Factory) FeeToSetter() common.Address { return f.feeToSetter }
func (f *Factory) AllPairsLength() int         { return len(f.pairs) }

// CreatePair deploys the pair of tokenA and tokenB at its CREATE2 address.
func (f *Factory) CreatePair(tx *state.Tx, tokenA, tokenB common.Address) (*Pair, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	token0, token1, err := uniswapv2.SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	key := pairKey{token0, token1}
	if _, ok := f.byTokens[key]; ok {
		return nil, ErrPairExists
	}
	addr, err := uniswapv2.PairFor(f.address, token0, token1, f.initCodeHash)
	if err != nil {
		return nil, err
	}
	err = tx.RegisterToken(addr, state.TokenInfo{
		Name:     "Uniswap V2",
		Symbol:   "UNI-V2",
		Decimals: 18,
		Minter:   addr,
	})
	if err != nil {
		return nil, fmt.Errorf("register lp token: %w", err)
	}

	pair := newPair(addr, f.address, f, token0, token1)
	idx := len(f.pairs)
	f.pairs = append(f.pairs, pair)
	f.byTokens[key] = idx
	f.byAddress[addr] = idx
	tx.Record(func() {
		f.pairs = f.pairs[:idx]
		delete(f.byTokens, key)
		delete(f.byAddress, addr)
	})

	tx.Emit(f.address, PairCreated{Token0: token0, Token1: token1, Pair: addr, Index: uint64(idx + 1)})
	return pair, nil
}

// GetPair returns the pair address of the two tokens in either order, or the
// zero address.
func (f *Factory) GetPair(tokenA, tokenB common.Address) common.Address {
	if p := f.lookup(tokenA, tokenB); p != nil {
		return p.address
	}
	return common.Address{}
}

// PairOf resolves the pair entity of two tokens.
func (f *Factory) PairOf(tokenA, tokenB common.Address) (*Pair, error) {
	if p := f.lookup(tokenA, tokenB); p != nil {
		return p, nil
	}
	return nil, ErrPairNotFound
}

// Pair resolves a pair by its address.
func (f *Factory) Pair(addr common.Address) (*Pair, error) {
	idx, ok := f.byAddress[addr]
	if !ok {
		return nil, ErrPairNotFound
	}
	return f.pairs[idx], nil
}

// AllPairs returns the address of the i-th created pair.
func (f *Factory) AllPairs(i int) (common.Address, error) {
	if i < 0 || i >= len(f.pairs) {
		return common.Address{}, ErrIndexOutOfRange
	}
	return f.pairs[i].address, nil
}

func (f *Factory) SetFeeTo(tx *state.Tx, feeTo common.Address) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if tx.Sender() != f.feeToSetter {
		return ErrForbidden
	}
	prev := f.feeTo
	f.feeTo = feeTo
	tx.Record(func() { f.feeTo = prev })
	return nil
}

func (f *Factory) SetFeeToSetter(tx *state.Tx, feeToSetter common.Address) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if tx.Sender() != f.feeToSetter {
		return ErrForbidden
	}
	prev := f.feeToSetter
	f.feeToSetter = feeToSetter
	tx.Record(func() { f.feeToSetter = prev })
	return nil
}

// CheckInitCodeHash verifies that the fingerprint the factory was configured
// with belongs to the running pair implementation and that every registered
// pair sits at its derived address.
func (f *Factory) CheckInitCodeHash() error {
	want := PairInitCodeHash()
	if f.initCodeHash != want {
		return fmt.Errorf("%w: factory %s, pair code %s", ErrInitCodeHashMismatch, f.initCodeHash, want)
	}
	for i, p := range f.pairs {
		derived, err := uniswapv2.PairFor(f.address, p.token0, p.token1, want)
		if err != nil {
			return err
		}
		if derived != p.address {
			return fmt.Errorf("%w: pair %d at %s, derived %s", ErrInitCodeHashMismatch, i, p.address, derived)
		}
	}
	return nil
}

// Reserves returns the reserves of the pair of tokenA and tokenB ordered as
// requested.
func (f *Factory) Reserves(tokenA, tokenB common.Address) (reserveA, reserveB *big.Int, err error) {
	token0, _, err := uniswapv2.SortTokens(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}
	p := f.lookup(tokenA, tokenB)
	if p == nil {
		return nil, nil, ErrPairNotFound
	}
	reserve0, reserve1, _ := p.Reserves()
	if tokenA == token0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

func (f *Factory) lookup(tokenA, tokenB common.Address) *Pair {
	token0, token1, err := uniswapv2.SortTokens(tokenA, tokenB)
	if err != nil {
		return nil
	}
	idx, ok := f.byTokens[pairKey{token0, token1}]
	if !ok {
		return nil
	}
	return f.pairs[idx]
}
