package amm

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nulln0ne/portfolio-amm/internal/state"
	"github.com/nulln0ne/portfolio-amm/pkg/uniswapv2"
)

//go:embed pair.go
var pairSource []byte

const pairABIJSON = `[
	{"type":"function","name":"MINIMUM_LIQUIDITY","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"factory","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"token1","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getReserves","stateMutability":"view","inputs":[],"outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},
	{"type":"function","name":"price0CumulativeLast","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"price1CumulativeLast","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"kLast","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"}],"outputs":[{"name":"liquidity","type":"uint256"}]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"}],"outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
	{"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[{"name":"amount0Out","type":"uint256"},{"name":"amount1Out","type":"uint256"},{"name":"to","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"skim","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"}],"outputs":[]},
	{"type":"function","name":"sync","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"Mint","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"amount0","type":"uint256","indexed":false},{"name":"amount1","type":"uint256","indexed":false}]},
	{"type":"event","name":"Burn","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"amount0","type":"uint256","indexed":false},{"name":"amount1","type":"uint256","indexed":false},{"name":"to","type":"address","indexed":true}]},
	{"type":"event","name":"Swap","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"amount0In","type":"uint256","indexed":false},{"name":"amount1In","type":"uint256","indexed":false},{"name":"amount0Out","type":"uint256","indexed":false},{"name":"amount1Out","type":"uint256","indexed":false},{"name":"to","type":"address","indexed":true}]},
	{"type":"event","name":"Sync","anonymous":false,"inputs":[{"name":"reserve0","type":"uint112","indexed":false},{"name":"reserve1","type":"uint112","indexed":false}]}
]`

const factoryABIJSON = `[
	{"type":"event","name":"PairCreated","anonymous":false,"inputs":[{"name":"token0","type":"address","indexed":true},{"name":"token1","type":"address","indexed":true},{"name":"pair","type":"address","indexed":false},{"name":"","type":"uint256","indexed":false}]}
]`

var (
	PairABI    abi.ABI
	FactoryABI abi.ABI

	pairInitCodeHash common.Hash
)

func init() {
	var err error
	if PairABI, err = abi.JSON(strings.NewReader(pairABIJSON)); err != nil {
		panic(fmt.Sprintf("parse pair abi: %v", err))
	}
	if FactoryABI, err = abi.JSON(strings.NewReader(factoryABIJSON)); err != nil {
		panic(fmt.Sprintf("parse factory abi: %v", err))
	}
	pairInitCodeHash = fingerprint(pairSource, uniswapv2.MathSource())
}

// fingerprint hashes the pair implementation: its source, the source of the
// pricing rules it applies and the selectors of its interface in name order.
func fingerprint(pairSrc, mathSrc []byte) common.Hash {
	names := make([]string, 0, len(PairABI.Methods))
	for name := range PairABI.Methods {
		names = append(names, name)
	}
	sort.Strings(names)

	code := make([]byte, 0, len(pairSrc)+len(mathSrc)+4*len(names))
	code = append(code, pairSrc...)
	code = append(code, mathSrc...)
	for _, name := range names {
		code = append(code, PairABI.Methods[name].ID...)
	}
	return crypto.Keccak256Hash(code)
}

// PairInitCodeHash is the fingerprint of the pair implementation compiled
// into this binary. Editing pair.go or the pricing rules changes it.
func PairInitCodeHash() common.Hash {
	return pairInitCodeHash
}

// Topic returns the log topic of a pair or factory event.
func Topic(ev state.Event) (common.Hash, bool) {
	if e, ok := PairABI.Events[ev.EventName()]; ok {
		return e.ID, true
	}
	if e, ok := FactoryABI.Events[ev.EventName()]; ok {
		return e.ID, true
	}
	return common.Hash{}, false
}
