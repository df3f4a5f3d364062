package portfolio

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/state"
)

// Factory issues at most one portfolio per owner. Portfolios live in an
// append-only arena indexed by owner and by address.
type Factory struct {
	address common.Address
	router  *amm.Router
	policy  Policy

	portfolios []*Portfolio
	byOwner    map[common.Address]int
	byAddress  map[common.Address]int
}

func DeployFactory(tx *state.Tx, router *amm.Router, policy Policy) (*Factory, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	addr, err := tx.CreateAddress()
	if err != nil {
		return nil, err
	}
	return NewFactory(addr, router, policy), nil
}

func NewFactory(address common.Address, router *amm.Router, policy Policy) *Factory {
	return &Factory{
		address:   address,
		router:    router,
		policy:    policy,
		byOwner:   make(map[common.Address]int),
		byAddress: make(map[common.Address]int),
	}
}

func (f *Factory) Address() common.Address { return f.address }
func (f *Factory) Router() common.Address  { return f.router.Address() }
func (f *Factory) Policy() Policy          { return f.policy }
func (f *Factory) Len() int                { return len(f.portfolios) }

// CreatePortfolio issues the sender's portfolio.
func (f *Factory) CreatePortfolio(tx *state.Tx) (*Portfolio, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	owner := tx.Sender()
	if _, ok := f.byOwner[owner]; ok {
		return nil, ErrPortfolioExists
	}
	addr, err := tx.From(f.address).CreateAddress()
	if err != nil {
		return nil, err
	}

	p := newPortfolio(addr, owner, f.router, f.policy)
	idx := len(f.portfolios)
	f.portfolios = append(f.portfolios, p)
	f.byOwner[owner] = idx
	f.byAddress[addr] = idx
	tx.Record(func() {
		f.portfolios = f.portfolios[:idx]
		delete(f.byOwner, owner)
		delete(f.byAddress, addr)
	})

	tx.Emit(f.address, PortfolioCreated{Owner: owner, Portfolio: addr, Index: uint64(idx)})
	return p, nil
}

// GetPortfolio returns the address of owner's portfolio, or the zero address.
func (f *Factory) GetPortfolio(owner common.Address) common.Address {
	if idx, ok := f.byOwner[owner]; ok {
		return f.portfolios[idx].address
	}
	return common.Address{}
}

func (f *Factory) PortfolioOf(owner common.Address) (*Portfolio, error) {
	idx, ok := f.byOwner[owner]
	if !ok {
		return nil, ErrPortfolioNotFound
	}
	return f.portfolios[idx], nil
}

func (f *Factory) Portfolio(addr common.Address) (*Portfolio, error) {
	idx, ok := f.byAddress[addr]
	if !ok {
		return nil, ErrPortfolioNotFound
	}
	return f.portfolios[idx], nil
}
