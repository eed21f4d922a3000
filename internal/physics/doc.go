// Package physics provides the lumped-volume model of a dual-tank lift station.
//
// [LiftStation] implements [dynamo.System]. Its right-hand side is piecewise
// constant: the net flow (fab inflow minus pump outflow) everywhere except at
// or above total capacity with positive net flow, where the excess spills and
// the rate is zero. The boundary is exposed as an explicit [dynamo.Event]
// rather than left for an integrator to discover:
//
//	station := physics.NewLiftStation(physics.DefaultConstants())
//	u := physics.DefaultControls().Vector()
//	dv := station.Rate(19000, u)        // 140 L/min
//	ev := station.CapacityEvent()       // g = V - 20000, rising, terminal
//
// [LiftStation.Regime] freezes the branch selected at a given volume so that a
// single integrator step never straddles the discontinuity.
package physics
