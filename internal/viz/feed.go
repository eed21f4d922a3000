package viz

import (
	"context"
	"sync/atomic"

	"github.com/san-kum/liftsim/internal/sim"
)

// Feed hands reports to the dashboard without ever blocking the caller.
type Feed struct {
	ch      chan sim.Report
	dropped atomic.Int64
}

func NewFeed(buffer int) *Feed {
	return &Feed{ch: make(chan sim.Report, buffer)}
}

func (f *Feed) Report(_ context.Context, r sim.Report) {
	select {
	case f.ch <- r:
	default:
		f.dropped.Add(1)
	}
}

func (f *Feed) C() <-chan sim.Report { return f.ch }

// Dropped counts reports discarded because the dashboard fell behind.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// Close ends the dashboard; no Report may follow.
func (f *Feed) Close() { close(f.ch) }
