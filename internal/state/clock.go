package state

import (
	"sync"
	"time"
)

// Clock supplies the block timestamp an operation executes at.
type Clock interface {
	Now() uint64
}

// SystemClock reads wall-clock seconds.
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock only moves when told to. Tests use it to drive deadlines and
// price accumulators.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now uint64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(seconds uint64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}
