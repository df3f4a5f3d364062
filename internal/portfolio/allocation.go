package portfolio

import (
	"github.com/ethereum/go-ethereum/common"
)

// Entry is one target weight of an allocation.
type Entry struct {
	Token   common.Address `json:"token"`
	Percent uint8          `json:"percent"`
}

// Allocation is an immutable list of target weights that always sums to
// 100. The zero value is the empty allocation; every other value comes from
// NewAllocation.
type Allocation struct {
	entries []Entry
}

// NewAllocation validates tokens and percents and builds the allocation
// they describe, keeping the given order.
func NewAllocation(tokens []common.Address, percents []int64) (Allocation, error) {
	if len(tokens) != len(percents) {
		return Allocation{}, ErrLengthMismatch
	}
	if len(tokens) == 0 {
		return Allocation{}, ErrEmptyAllocation
	}

	entries := make([]Entry, len(tokens))
	seen := make(map[common.Address]struct{}, len(tokens))
	var sum int64
	for i, token := range tokens {
		if token == (common.Address{}) {
			return Allocation{}, ErrZeroToken
		}
		if _, dup := seen[token]; dup {
			return Allocation{}, ErrDuplicateToken
		}
		seen[token] = struct{}{}

		pct := percents[i]
		if pct <= 0 || pct > 100 {
			return Allocation{}, ErrInvalidPercent
		}
		sum += pct
		entries[i] = Entry{Token: token, Percent: uint8(pct)}
	}
	if sum != 100 {
		return Allocation{}, ErrPercentSum
	}
	return Allocation{entries: entries}, nil
}

func (a Allocation) IsZero() bool { return len(a.entries) == 0 }
func (a Allocation) Len() int     { return len(a.entries) }

// Entries returns a copy of the weights in their original order.
func (a Allocation) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a Allocation) Tokens() []common.Address {
	out := make([]common.Address, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Token
	}
	return out
}

func (a Allocation) Percents() []int64 {
	out := make([]int64, len(a.entries))
	for i, e := range a.entries {
		out[i] = int64(e.Percent)
	}
	return out
}

func (a Allocation) Percent(token common.Address) (uint8, bool) {
	for _, e := range a.entries {
		if e.Token == token {
			return e.Percent, true
		}
	}
	return 0, false
}

func (a Allocation) Contains(token common.Address) bool {
	_, ok := a.Percent(token)
	return ok
}
