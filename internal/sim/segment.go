package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/dynamo"
	"github.com/san-kum/liftsim/internal/physics"
)

const (
	// SegmentMinutes is one real-time second of simulated time.
	SegmentMinutes = 1.0 / 60.0

	DefaultTolerance      = 1e-6
	DefaultSubsteps       = 10
	DefaultEventTolerance = 1e-9
	defaultMaxSteps       = 100000
	maxEventIterations    = 200
)

var errStepBudget = errors.New("step budget exhausted")

// SegmentResult is the state at the earlier of segment end or event time.
type SegmentResult struct {
	End       dynamo.PhysicalState
	Triggered bool
	EventTime float64
}

type SegmentSolver struct {
	integ     dynamo.Integrator
	tolerance float64
	substeps  int
	eventTol  float64
	maxSteps  int
}

type SolverOption func(*SegmentSolver)

// WithTolerance sets the relative error target for adaptive integrators.
func WithTolerance(tol float64) SolverOption {
	return func(s *SegmentSolver) { s.tolerance = tol }
}

// WithSubsteps sets how many equal steps a fixed-step integrator takes per
// segment.
func WithSubsteps(n int) SolverOption {
	return func(s *SegmentSolver) { s.substeps = n }
}

// WithEventTolerance sets the width, in minutes, to which event times are
// bracketed.
func WithEventTolerance(tol float64) SolverOption {
	return func(s *SegmentSolver) { s.eventTol = tol }
}

func NewSegmentSolver(integ dynamo.Integrator, opts ...SolverOption) *SegmentSolver {
	s := &SegmentSolver{
		integ:     integ,
		tolerance: DefaultTolerance,
		substeps:  DefaultSubsteps,
		eventTol:  DefaultEventTolerance,
		maxSteps:  defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.substeps < 1 {
		s.substeps = 1
	}
	return s
}

// Integrate advances state over [state.Elapsed, state.Elapsed+duration] with
// the controls and constants in snap.
//
// The flow regime (filling or spilling) is chosen once from the starting
// volume. Nothing but the capacity event can change it within a segment,
// and that event ends the segment, so no step ever straddles the
// discontinuity in the right-hand side.
func (s *SegmentSolver) Integrate(state dynamo.PhysicalState, snap control.Snapshot, duration float64) (SegmentResult, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return SegmentResult{}, fmt.Errorf("segment duration must be positive and finite, got %f", duration)
	}

	station := physics.NewLiftStation(snap.Constants)
	u := snap.Controls.Vector()
	ev := station.CapacityEvent()

	x := state.Vector()
	if !x.IsValid() {
		return SegmentResult{}, dynamo.IntegrationFailure(state.Elapsed, x, dynamo.ErrInvalidState)
	}

	t := state.Elapsed
	tEnd := t + duration
	dyn := station.Regime(x, u)
	g := ev.Value(x, t)
	h := s.firstStep(duration)

	for steps := 0; t < tEnd; steps++ {
		if steps >= s.maxSteps {
			return SegmentResult{}, dynamo.IntegrationFailure(t, x, errStepBudget)
		}

		h = math.Min(h, tEnd-t)
		xNew, taken, next, err := s.advance(dyn, x, u, t, h)
		if err != nil {
			return SegmentResult{}, dynamo.IntegrationFailure(t, x, err)
		}
		if !xNew.IsValid() {
			return SegmentResult{}, dynamo.IntegrationFailure(t, x, dynamo.ErrInvalidState)
		}
		if !(taken > 0) {
			return SegmentResult{}, dynamo.IntegrationFailure(t, x, dynamo.ErrStepTooSmall)
		}

		tNew := t + taken
		if closeTo(tNew, tEnd) {
			tNew = tEnd
		}

		gNew := ev.Value(xNew, tNew)
		if ev.Terminal() && dynamo.Crossed(ev.Direction(), g, gNew) {
			tEvent, err := s.locate(dyn, ev, x, u, t, tNew-t, g, gNew)
			if err != nil {
				return SegmentResult{}, dynamo.IntegrationFailure(t, x, err)
			}
			// The root of V - capacity is the capacity itself.
			return SegmentResult{
				End:       dynamo.PhysicalState{Volume: snap.Constants.TotalCapacity(), Elapsed: tEvent},
				Triggered: true,
				EventTime: tEvent,
			}, nil
		}

		x, g, t = xNew, gNew, tNew
		if next > 0 {
			h = next
		}
	}

	return SegmentResult{End: dynamo.PhysicalState{Volume: x[0], Elapsed: tEnd}}, nil
}

func (s *SegmentSolver) firstStep(duration float64) float64 {
	if _, ok := s.integ.(dynamo.AdaptiveIntegrator); ok {
		return duration
	}
	return duration / float64(s.substeps)
}

func (s *SegmentSolver) advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) (dynamo.State, float64, float64, error) {
	if a, ok := s.integ.(dynamo.AdaptiveIntegrator); ok {
		return a.StepAdaptive(dyn, x, u, t, h, s.tolerance)
	}
	return s.integ.Step(dyn, x, u, t, h), h, h, nil
}

// locate brackets the event inside a step of length h taken from (t, x)
// using the Illinois variant of regula falsi. It re-integrates from the step
// start for every trial, so the result is as accurate as the integrator
// rather than limited to the sample points. Linear event functions converge
// on the first trial.
func (s *SegmentSolver) locate(dyn dynamo.System, ev dynamo.Event, x dynamo.State, u dynamo.Control, t, h, gLo, gHi float64) (float64, error) {
	if gHi == 0 {
		return t + h, nil
	}

	lo, hi := 0.0, h
	side := 0

	for i := 0; i < maxEventIterations && hi-lo > s.eventTol; i++ {
		tau := (lo*gHi - hi*gLo) / (gHi - gLo)
		if !(tau > lo && tau < hi) {
			tau = lo + (hi-lo)/2
			if !(tau > lo && tau < hi) {
				break
			}
		}

		xm := s.integ.Step(dyn, x, u, t, tau)
		if !xm.IsValid() {
			return 0, dynamo.ErrInvalidState
		}
		gm := ev.Value(xm, t+tau)
		if gm == 0 {
			return t + tau, nil
		}

		if dynamo.Crossed(ev.Direction(), gLo, gm) {
			hi, gHi = tau, gm
			if side == -1 {
				gLo /= 2
			}
			side = -1
		} else {
			lo, gLo = tau, gm
			if side == 1 {
				gHi /= 2
			}
			side = 1
		}
	}

	return t + hi, nil
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Abs(b))
}
