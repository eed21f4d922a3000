package integrators

import "github.com/san-kum/liftsim/internal/dynamo"

// Exact advances a system whose derivative is constant over the step in a
// single closed-form update x + dt*f(x). Within one flow regime of the lift
// station the right-hand side does not depend on x or t, so the result carries
// no truncation error.
type Exact struct{}

func NewExact() *Exact {
	return &Exact{}
}

func (e *Exact) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	rate := dyn.Derive(x, u, t)
	out := x.Clone()
	for i := range out {
		out[i] += rate[i] * dt
	}
	return out
}
