package metrics

import (
	"github.com/san-kum/liftsim/internal/sim"
)

// Metric reduces a sequence of reports to one value.
type Metric interface {
	Name() string
	Observe(r sim.Report)
	Value() float64
	Reset()
}

type PeakVolume struct {
	peak float64
}

func NewPeakVolume() *PeakVolume { return &PeakVolume{} }

func (p *PeakVolume) Name() string { return "peak_volume" }

func (p *PeakVolume) Observe(r sim.Report) {
	if r.State.Volume > p.peak {
		p.peak = r.State.Volume
	}
}

func (p *PeakVolume) Value() float64 { return p.peak }
func (p *PeakVolume) Reset()         { p.peak = 0 }

// TimeToCapacity is the event time of the first capacity crossing in
// minutes, or -1 if capacity was never reached.
type TimeToCapacity struct {
	at float64
}

func NewTimeToCapacity() *TimeToCapacity { return &TimeToCapacity{at: -1} }

func (t *TimeToCapacity) Name() string { return "time_to_capacity" }

func (t *TimeToCapacity) Observe(r sim.Report) {
	if t.at < 0 && r.Event {
		t.at = r.EventTime
	}
}

func (t *TimeToCapacity) Value() float64 { return t.at }
func (t *TimeToCapacity) Reset()         { t.at = -1 }

// OverflowFraction is the share of segments that ended at capacity.
type OverflowFraction struct {
	overflow int
	samples  int
}

func NewOverflowFraction() *OverflowFraction { return &OverflowFraction{} }

func (o *OverflowFraction) Name() string { return "overflow_fraction" }

func (o *OverflowFraction) Observe(r sim.Report) {
	o.samples++
	if r.Overflow {
		o.overflow++
	}
}

func (o *OverflowFraction) Value() float64 {
	if o.samples == 0 {
		return 0
	}
	return float64(o.overflow) / float64(o.samples)
}

func (o *OverflowFraction) Reset() {
	o.overflow = 0
	o.samples = 0
}

// Standard returns the metrics reported by the offline scenario.
func Standard() []Metric {
	return []Metric{NewPeakVolume(), NewTimeToCapacity(), NewOverflowFraction()}
}
