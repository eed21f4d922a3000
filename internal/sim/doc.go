// Package sim runs the lift station in real time.
//
// [SegmentSolver] integrates one fixed-duration segment from a latched
// [control.Snapshot], stopping early at the first rising crossing of the
// capacity event. [Scheduler] paces segments against the wall clock, commits
// each result and fans the [Report] out to every [Sink].
//
// Only the scheduler goroutine touches the committed physical state. The
// control flow reaches the loop exclusively through the snapshot it takes at
// the top of each segment, so an update that lands mid-segment takes effect
// at the next one.
package sim
