// Package viz renders a live terminal dashboard of the lift station using
// Bubble Tea.
//
// The dashboard is fed through [Feed], a non-blocking sim.Sink, so a slow
// terminal never stalls the simulation loop. Frames are dropped instead.
//
// # Key Bindings
//
//	Tab     - Select control
//	Up/K    - Increase selected control
//	Down/J  - Decrease selected control
//	P       - Toggle pump
//	Q       - Quit
package viz
