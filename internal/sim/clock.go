package sim

import (
	"context"
	"math"
	"sync/atomic"
)

// Clock is a Sink that records the elapsed simulated minutes of the last
// committed segment for readers on other goroutines.
type Clock struct {
	bits atomic.Uint64
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Report(_ context.Context, r Report) {
	c.bits.Store(math.Float64bits(r.State.Elapsed))
}

// Minutes returns the elapsed simulated time, zero before the first segment.
func (c *Clock) Minutes() float64 {
	return math.Float64frombits(c.bits.Load())
}
