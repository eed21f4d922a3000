package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/dynamo"
)

// DefaultInterval is the wall-clock length of one segment.
const DefaultInterval = time.Second

type Phase int32

const (
	Idle Phase = iota
	Running
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Report is what the loop hands to sinks after committing a segment.
type Report struct {
	Segment   int                  `json:"segment"`
	State     dynamo.PhysicalState `json:"state"`
	Inflow    float64              `json:"inflow_lpm"`
	Outflow   float64              `json:"outflow_lpm"`
	Capacity  float64              `json:"capacity"`
	Overflow  bool                 `json:"overflow"`
	Event     bool                 `json:"event"`
	EventTime float64              `json:"event_time,omitempty"`
}

// Sink receives every committed segment. Implementations must not block the
// loop indefinitely.
type Sink interface {
	Report(ctx context.Context, r Report)
}

type SinkFunc func(ctx context.Context, r Report)

func (f SinkFunc) Report(ctx context.Context, r Report) { f(ctx, r) }

// Snapshotter is the read side of the control store.
type Snapshotter interface {
	Snapshot() control.Snapshot
}

var ErrAlreadyStarted = errors.New("sim: scheduler already started")

type Scheduler struct {
	params   Snapshotter
	solver   *SegmentSolver
	sinks    []Sink
	interval time.Duration
	ticks    <-chan time.Time
	log      zerolog.Logger

	state    dynamo.PhysicalState
	segments int
	phase    atomic.Int32
}

type SchedulerOption func(*Scheduler)

func WithSinks(sinks ...Sink) SchedulerOption {
	return func(s *Scheduler) { s.sinks = append(s.sinks, sinks...) }
}

// WithInterval sets the wall-clock tick. The simulated segment always equals
// the tick (1:1 real time).
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// WithTicks replaces the internal ticker; the loop advances one segment per
// receive and stops when the channel is closed.
func WithTicks(ticks <-chan time.Time) SchedulerOption {
	return func(s *Scheduler) { s.ticks = ticks }
}

func WithLogger(log zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

func WithInitialState(st dynamo.PhysicalState) SchedulerOption {
	return func(s *Scheduler) { s.state = st }
}

func NewScheduler(params Snapshotter, solver *SegmentSolver, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		params:   params,
		solver:   solver,
		interval: DefaultInterval,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Phase() Phase {
	return Phase(s.phase.Load())
}

// SegmentDuration is the simulated length of one segment in minutes.
func (s *Scheduler) SegmentDuration() float64 {
	return s.interval.Minutes()
}

// Run paces segments until ctx is cancelled, the tick source closes or a
// segment fails. Cancellation is observed only between segments. A failed
// segment is returned and nothing from it is committed.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.phase.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyStarted
	}
	defer s.phase.Store(int32(Stopped))

	ticks := s.ticks
	if ticks == nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	s.log.Info().Dur("step", s.interval).Msg("simulation controller started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Int("segments", s.segments).Msg("simulation stopped")
			return nil
		case _, ok := <-ticks:
			if !ok {
				s.log.Info().Int("segments", s.segments).Msg("tick source closed")
				return nil
			}
		}

		if ctx.Err() != nil {
			s.log.Info().Int("segments", s.segments).Msg("simulation stopped")
			return nil
		}

		if _, err := s.Step(ctx); err != nil {
			s.log.Error().Err(err).Msg("solver failed")
			return err
		}
	}
}

// Step runs one Idle -> Integrating -> Reporting cycle without pacing.
// It must only be called from the goroutine that owns the scheduler.
func (s *Scheduler) Step(ctx context.Context) (Report, error) {
	snap := s.params.Snapshot()

	res, err := s.solver.Integrate(s.state, snap, s.SegmentDuration())
	if err != nil {
		var simErr *dynamo.SimulationError
		if errors.As(err, &simErr) {
			simErr.Segment = s.segments
		}
		return Report{}, err
	}

	capacity := snap.Constants.TotalCapacity()
	end := res.End
	if end.Volume > capacity {
		end.Volume = capacity
	} else if end.Volume < 0 {
		end.Volume = 0
	}
	s.state = end
	s.segments++

	if res.Triggered {
		s.log.Info().
			Float64("event_min", res.EventTime).
			Float64("capacity", capacity).
			Msg("capacity reached")
	}

	r := Report{
		Segment:   s.segments,
		State:     end,
		Inflow:    snap.Inflow(),
		Outflow:   snap.Outflow(),
		Capacity:  capacity,
		Overflow:  end.Volume >= capacity,
		Event:     res.Triggered,
		EventTime: res.EventTime,
	}

	// Reporting finishes even when shutdown was requested mid-cycle.
	rctx := context.WithoutCancel(ctx)
	for _, sink := range s.sinks {
		sink.Report(rctx, r)
	}

	return r, nil
}
