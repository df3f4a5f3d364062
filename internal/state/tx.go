package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Tx is the execution context of one operation. Contracts receive it as
// their first argument; its sender plays the role of msg.sender.
type Tx struct {
	st        *State
	frame     *frame
	readOnly  bool
	sender    common.Address
	value     *big.Int
	timestamp uint64
}

func (tx *Tx) Sender() common.Address { return tx.sender }

// Value is the native amount attached to the call.
func (tx *Tx) Value() *big.Int { return new(big.Int).Set(tx.value) }

func (tx *Tx) Timestamp() uint64 { return tx.timestamp }

func (tx *Tx) ReadOnly() bool { return tx.readOnly }

// From returns a context for a nested call made by addr. It shares the
// journal, so a failure anywhere still rolls the whole operation back.
func (tx *Tx) From(addr common.Address) *Tx {
	return &Tx{
		st:        tx.st,
		frame:     tx.frame,
		readOnly:  tx.readOnly,
		sender:    addr,
		value:     new(big.Int),
		timestamp: tx.timestamp,
	}
}

// Record registers an undo step for a mutation made outside the ledger,
// e.g. a pair's reserves.
func (tx *Tx) Record(undo func()) {
	if tx.frame == nil {
		return
	}
	tx.frame.undo = append(tx.frame.undo, undo)
}

// Emit appends an event emitted by the contract at addr.
func (tx *Tx) Emit(addr common.Address, ev Event) {
	if tx.frame == nil {
		return
	}
	tx.frame.logs = append(tx.frame.logs, Log{Address: addr, Event: ev})
}

// Writable fails for the read-only context handed out by View.
func (tx *Tx) Writable() error {
	if tx.readOnly {
		return ErrReadOnly
	}
	return nil
}

// CreateAddress allocates a fresh contract address for a deployment made by
// the sender, following the CREATE rule.
func (tx *Tx) CreateAddress() (common.Address, error) {
	if err := tx.Writable(); err != nil {
		return common.Address{}, err
	}
	nonce := tx.st.nonces[tx.sender]
	addr := crypto.CreateAddress(tx.sender, nonce)
	deployer := tx.sender
	tx.st.nonces[deployer] = nonce + 1
	tx.Record(func() { tx.st.nonces[deployer] = nonce })
	return addr, nil
}
