// Package deployments brings up the contract set in dependency order and
// keeps the per-network address book that tooling resolves contracts from.
package deployments

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nulln0ne/portfolio-amm/internal/amm"
	"github.com/nulln0ne/portfolio-amm/internal/portfolio"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/internal/token"
)

type Options struct {
	Deployer common.Address
	Policy   portfolio.Policy
	// Tokens defaults to token.TestTokens.
	Tokens []token.Spec
	// InitCodeHash is the pair fingerprint an earlier deployment recorded.
	// Zero takes the running pair implementation's.
	InitCodeHash common.Hash
}

// Deployment is the live contract set.
type Deployment struct {
	Deployer   common.Address
	WMON       *token.WrappedNative
	Tokens     map[string]common.Address
	Factory    *amm.Factory
	Router     *amm.Router
	Portfolios *portfolio.Factory

	book Book
}

type module struct {
	name   string
	deploy func(tx *state.Tx, d *Deployment, opts Options) error
}

// modules run in order; each one only uses what earlier ones deployed.
var modules = []module{
	{WmonModule, deployWmon},
	{TokensModule, deployTokens},
	{DexModule, deployDex},
	{PortfolioModule, deployPortfolio},
}

// Deploy runs every module as its own operation from opts.Deployer.
func Deploy(st *state.State, opts Options) (*Deployment, error) {
	if opts.Tokens == nil {
		opts.Tokens = token.TestTokens
	}
	d := &Deployment{
		Deployer: opts.Deployer,
		Tokens:   make(map[string]common.Address, len(opts.Tokens)),
		book:     Book{},
	}
	for _, m := range modules {
		_, err := st.Execute(state.Call{From: opts.Deployer}, func(tx *state.Tx) error {
			return m.deploy(tx, d, opts)
		})
		if err != nil {
			return nil, fmt.Errorf("deploy %s: %w", m.name, err)
		}
	}
	if err := d.Factory.CheckInitCodeHash(); err != nil {
		return nil, fmt.Errorf("deploy %s: %w", DexModule, err)
	}
	return d, nil
}

func deployWmon(tx *state.Tx, d *Deployment, _ Options) error {
	wmon, err := token.DeployWrappedNative(tx)
	if err != nil {
		return err
	}
	d.WMON = wmon
	d.book.Set(WmonModule, ContractWMON, wmon.Address())
	return nil
}

func deployTokens(tx *state.Tx, d *Deployment, opts Options) error {
	for _, spec := range opts.Tokens {
		addr, err := token.Deploy(tx, spec)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Contract, err)
		}
		d.Tokens[spec.Contract] = addr
		d.book.Set(TokensModule, spec.Contract, addr)
	}
	return nil
}

func deployDex(tx *state.Tx, d *Deployment, opts Options) error {
	factory, err := amm.DeployFactory(tx, opts.Deployer, opts.InitCodeHash)
	if err != nil {
		return err
	}
	router, err := amm.DeployRouter(tx, factory, d.WMON)
	if err != nil {
		return err
	}
	d.Factory, d.Router = factory, router
	d.book.Set(DexModule, ContractFactory, factory.Address())
	d.book.Set(DexModule, ContractRouter, router.Address())
	d.book[Key(DexModule, ContractPairInitCodeHash)] = factory.InitCodeHash().Hex()
	return nil
}

func deployPortfolio(tx *state.Tx, d *Deployment, opts Options) error {
	portfolios, err := portfolio.DeployFactory(tx, d.Router, opts.Policy)
	if err != nil {
		return err
	}
	d.Portfolios = portfolios
	d.book.Set(PortfolioModule, ContractPortfolioFactory, portfolios.Address())
	return nil
}

// Book returns a copy of the deployment's address book.
func (d *Deployment) Book() Book {
	out := make(Book, len(d.book))
	for k, v := range d.book {
		out[k] = v
	}
	return out
}

// Verify asserts that the pair fingerprint recorded by an earlier deployment
// matches the running pair implementation. An empty book passes.
func (d *Deployment) Verify(recorded Book) error {
	if err := d.Factory.CheckInitCodeHash(); err != nil {
		return err
	}
	hash, ok := recorded.InitCodeHash()
	if !ok {
		return nil
	}
	if want := amm.PairInitCodeHash(); hash != want {
		return fmt.Errorf("%w: recorded %s, pair code %s", amm.ErrInitCodeHashMismatch, hash, want)
	}
	return nil
}

// Changed lists the recorded entries this deployment disagrees with.
func (d *Deployment) Changed(recorded Book) []string {
	var keys []string
	for _, k := range recorded.Keys() {
		if v, ok := d.book[k]; !ok || !sameEntry(v, recorded[k]) {
			keys = append(keys, k)
		}
	}
	return keys
}

func sameEntry(a, b string) bool {
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return common.HexToHash(a) == common.HexToHash(b)
}
