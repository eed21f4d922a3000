// Package experiment runs the lift station offline with constant controls,
// sampling the volume on a fixed grid without real-time pacing.
package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/dynamo"
	"github.com/san-kum/liftsim/internal/metrics"
	"github.com/san-kum/liftsim/internal/physics"
	"github.com/san-kum/liftsim/internal/sim"
)

const (
	DefaultDuration = 300.0
	DefaultSamples  = 31

	StatusFilling     = "Filling"
	StatusOverflowing = "Overflowing"

	gridTolerance = 1e-9
)

type Config struct {
	Constants     physics.Constants
	Controls      physics.Controls
	InitialVolume float64
	Duration      float64
	Samples       int
}

func DefaultConfig() Config {
	return Config{
		Constants: physics.DefaultConstants(),
		Controls:  physics.DefaultControls(),
		Duration:  DefaultDuration,
		Samples:   DefaultSamples,
	}
}

type Sample struct {
	Time   float64 `json:"time_min"`
	Volume float64 `json:"volume"`
	Status string  `json:"status"`
}

type Result struct {
	Inflow       float64            `json:"inflow_lpm"`
	Outflow      float64            `json:"outflow_lpm"`
	Capacity     float64            `json:"capacity"`
	Samples      []Sample           `json:"samples"`
	Reached      bool               `json:"reached"`
	EventTime    float64            `json:"event_time,omitempty"`
	OverflowRate float64            `json:"overflow_rate,omitempty"`
	Metrics      map[string]float64 `json:"metrics"`
}

type Experiment struct {
	cfg     Config
	solver  *sim.SegmentSolver
	metrics []metrics.Metric
	log     zerolog.Logger
}

type Option func(*Experiment)

func WithMetrics(ms ...metrics.Metric) Option {
	return func(e *Experiment) { e.metrics = append(e.metrics, ms...) }
}

func WithLogger(log zerolog.Logger) Option {
	return func(e *Experiment) { e.log = log }
}

func New(cfg Config, solver *sim.SegmentSolver, opts ...Option) (*Experiment, error) {
	if cfg.Samples < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", cfg.Samples)
	}
	if !(cfg.Duration > 0) {
		return nil, fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if err := cfg.Controls.Validate(cfg.Constants.PumpFlowRate); err != nil {
		return nil, err
	}
	capacity := cfg.Constants.TotalCapacity()
	if cfg.InitialVolume < 0 || cfg.InitialVolume > capacity {
		return nil, fmt.Errorf("initial volume %.2f outside [0, %.2f]", cfg.InitialVolume, capacity)
	}

	e := &Experiment{cfg: cfg, solver: solver, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run integrates from zero to Duration. Samples after the capacity event
// report the capacity and the Overflowing status.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	snap := control.Snapshot{Controls: e.cfg.Controls, Constants: e.cfg.Constants}
	capacity := snap.Constants.TotalCapacity()

	res := &Result{
		Inflow:   snap.Inflow(),
		Outflow:  snap.Outflow(),
		Capacity: capacity,
		Samples:  make([]Sample, 0, e.cfg.Samples),
		Metrics:  make(map[string]float64, len(e.metrics)),
	}
	for _, m := range e.metrics {
		m.Reset()
	}

	e.log.Info().
		Float64("inflow", res.Inflow).
		Float64("outflow", res.Outflow).
		Float64("duration_min", e.cfg.Duration).
		Msg("running fill scenario")

	state := dynamo.PhysicalState{Volume: e.cfg.InitialVolume}
	res.Samples = append(res.Samples, e.sample(state, res))

	step := e.cfg.Duration / float64(e.cfg.Samples-1)
	segment := 0
	for i := 1; i < e.cfg.Samples; i++ {
		target := float64(i) * step
		for target-state.Elapsed > gridTolerance {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			seg, err := e.solver.Integrate(state, snap, target-state.Elapsed)
			if err != nil {
				var simErr *dynamo.SimulationError
				if errors.As(err, &simErr) {
					simErr.Segment = segment
				}
				return nil, err
			}
			segment++

			state = seg.End
			state.Volume = min(max(state.Volume, 0), capacity)
			if seg.Triggered && !res.Reached {
				res.Reached = true
				res.EventTime = seg.EventTime
				e.log.Info().Float64("event_min", seg.EventTime).Msg("capacity reached")
			}
			e.observe(sim.Report{
				Segment:   segment,
				State:     state,
				Inflow:    res.Inflow,
				Outflow:   res.Outflow,
				Capacity:  capacity,
				Overflow:  state.Volume >= capacity,
				Event:     seg.Triggered,
				EventTime: seg.EventTime,
			})
		}
		state.Elapsed = target
		res.Samples = append(res.Samples, e.sample(state, res))
	}

	if res.Reached {
		res.OverflowRate = res.Inflow - res.Outflow
	}
	for _, m := range e.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}

func (e *Experiment) sample(state dynamo.PhysicalState, res *Result) Sample {
	s := Sample{Time: state.Elapsed, Volume: state.Volume, Status: StatusFilling}
	if res.Reached && state.Elapsed >= res.EventTime {
		s.Volume = res.Capacity
		s.Status = StatusOverflowing
	}
	return s
}

func (e *Experiment) observe(r sim.Report) {
	for _, m := range e.metrics {
		m.Observe(r)
	}
}
