// Package state is the single ordered ledger every engine operation runs
// against. Operations are serialized by Execute; a failed operation leaves no
// trace because every mutation is journaled and undone on error.
package state

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the ledger key of the chain's native currency.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// MaxUint256 is treated as an unlimited allowance.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// TransferHook runs after a token balance moved. tx's sender is the token.
type TransferHook func(tx *Tx, from, to common.Address, amount *big.Int) error

// TokenInfo describes a fungible token known to the ledger.
type TokenInfo struct {
	Name     string
	Symbol   string
	Decimals uint8
	// Minter is the only identity allowed to mint and burn.
	Minter common.Address
	// TransferFeeBps is burned from every transfer, for tokens that deliver
	// less than the amount sent.
	TransferFeeBps uint16
	OnTransfer     TransferHook
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Call is the envelope of an externally submitted operation.
type Call struct {
	From  common.Address
	Value *big.Int
}

// Log is an event emitted by a contract during an operation.
type Log struct {
	Address common.Address
	Event   Event
}

// Event is anything a contract records for auditing.
type Event interface {
	EventName() string
}

// Receipt is handed out once an operation's position in the order is final.
type Receipt struct {
	Seq       uint64
	Timestamp uint64
	Sender    common.Address
	Logs      []Log
}

type State struct {
	mu    sync.RWMutex
	clock Clock
	seq   uint64

	tokens     map[common.Address]*TokenInfo
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[allowanceKey]*big.Int
	supply     map[common.Address]*big.Int
	nonces     map[common.Address]uint64
}

func New(clock Clock) *State {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &State{
		clock:      clock,
		tokens:     make(map[common.Address]*TokenInfo),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[allowanceKey]*big.Int),
		supply:     make(map[common.Address]*big.Int),
		nonces:     make(map[common.Address]uint64),
	}
	s.tokens[NativeToken] = &TokenInfo{Name: "Monad", Symbol: "MON", Decimals: 18}
	return s
}

// Fund credits native currency out of thin air. It is meant for genesis
// allocations and tests, not for operations.
func (s *State) Fund(holder common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.balances[NativeToken]
	if m == nil {
		m = make(map[common.Address]*big.Int)
		s.balances[NativeToken] = m
	}
	bal := new(big.Int).Set(amount)
	if prev, ok := m[holder]; ok {
		bal.Add(bal, prev)
	}
	m[holder] = bal
	sup := new(big.Int).Set(amount)
	if prev, ok := s.supply[NativeToken]; ok {
		sup.Add(sup, prev)
	}
	s.supply[NativeToken] = sup
}

// Execute runs fn as one indivisible step. If fn fails (or panics) every
// mutation it made is rolled back and no receipt is produced.
func (s *State) Execute(call Call, fn func(tx *Tx) error) (receipt *Receipt, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value := new(big.Int)
	if call.Value != nil {
		if call.Value.Sign() < 0 {
			return nil, ErrNegativeAmount
		}
		value.Set(call.Value)
	}

	f := &frame{}
	tx := &Tx{
		st:        s,
		frame:     f,
		sender:    call.From,
		value:     value,
		timestamp: s.clock.Now(),
	}

	if have := tx.NativeBalance(call.From); have.Cmp(value) < 0 {
		return nil, &BalanceError{Token: NativeToken, Holder: call.From, Have: have, Want: value}
	}

	defer func() {
		if r := recover(); r != nil {
			f.revert()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		f.revert()
		return nil, err
	}

	s.seq++
	return &Receipt{
		Seq:       s.seq,
		Timestamp: tx.timestamp,
		Sender:    call.From,
		Logs:      f.logs,
	}, nil
}

// View runs fn against a read-only snapshot of the ledger.
func (s *State) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{
		st:        s,
		readOnly:  true,
		value:     new(big.Int),
		timestamp: s.clock.Now(),
	})
}

// Seq is the number of operations committed so far.
func (s *State) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

type frame struct {
	undo []func()
	logs []Log
}

func (f *frame) revert() {
	for i := len(f.undo) - 1; i >= 0; i-- {
		f.undo[i]()
	}
	f.undo = nil
	f.logs = nil
}
