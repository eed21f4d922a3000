// Package dynamo provides core simulation primitives for the lift station.
//
// The package defines the fundamental interfaces and types shared by the
// model, the integrators and the real-time loop:
//
//   - [State]: vector handed to integrators (a single volume for the station)
//   - [PhysicalState]: the committed volume and simulated clock
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Event]: root function that can terminate a segment
//
// # Example
//
//	station := physics.NewLiftStation(physics.DefaultConstants())
//	integ := integrators.NewRK45()
//	solver := sim.NewSegmentSolver(station, integ)
//	res, err := solver.Integrate(state, snap, sim.SegmentMinutes)
//
// # Thread Safety
//
// Nothing in this package holds mutable shared state. [PhysicalState] is a
// value type and is copied between owners.
package dynamo
