package dynamo

import (
	"math"
)

// State is the vector integrators operate on.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control is the latched input vector for one segment.
type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// AdaptiveIntegrator attempts a step of at most dt and returns the new state,
// the step actually taken and a suggested next step.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, float64, error)
}

// Direction restricts which zero crossings of an Event count.
type Direction int

const (
	Either  Direction = 0
	Rising  Direction = 1
	Falling Direction = -1
)

// Event is a root function g(x, t). A crossing in the configured direction
// terminates integration when Terminal reports true.
type Event interface {
	Value(x State, t float64) float64
	Direction() Direction
	Terminal() bool
}

// Crossed reports whether moving from g0 to g1 is a crossing in direction d.
// Starting exactly on the root is not a crossing.
func Crossed(d Direction, g0, g1 float64) bool {
	switch d {
	case Rising:
		return g0 < 0 && g1 >= 0
	case Falling:
		return g0 > 0 && g1 <= 0
	default:
		return (g0 < 0 && g1 >= 0) || (g0 > 0 && g1 <= 0)
	}
}

// PhysicalState is the lumped volume (liters) and simulated clock (minutes).
type PhysicalState struct {
	Volume  float64 `json:"volume"`
	Elapsed float64 `json:"elapsed_minutes"`
}

// Seconds returns the simulated clock in seconds.
func (p PhysicalState) Seconds() float64 {
	return p.Elapsed * 60
}

// Vector returns the integrator view of p.
func (p PhysicalState) Vector() State {
	return State{p.Volume}
}
