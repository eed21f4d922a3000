package integrators

import "github.com/san-kum/liftsim/internal/dynamo"

// Euler is the explicit first-order stepper. Within one latched regime the
// lift station's rate is constant, so a single Euler step over a segment is
// already exact there; it serves as the cheapest cross-check for RK4 and RK45.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

// Step returns x + dt*f(x, u, t) as a new state; x is not modified.
func (Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	next := x.Clone()
	for i, d := range dyn.Derive(x, u, t) {
		next[i] += dt * d
	}
	return next
}
