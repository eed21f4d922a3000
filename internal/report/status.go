// Package report turns committed segments into the outward-facing volume
// message and the operator status line.
package report

import (
	"fmt"
	"strconv"

	"github.com/san-kum/liftsim/internal/sim"
)

const (
	StatusOK       = "OK"
	StatusOverflow = "OVERFLOW"
)

// FormatVolume renders a volume with two decimals, the published wire form.
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Status is OVERFLOW once the volume has reached the station's capacity.
func Status(r sim.Report) string {
	if r.State.Volume >= r.Capacity {
		return StatusOverflow
	}
	return StatusOK
}

func FormatStatus(r sim.Report) string {
	return fmt.Sprintf("[T: %.0f sec | %.2f min] | V: %.0f L | R_in: %.0f | R_out: %.0f | Status: %s",
		r.State.Seconds(), r.State.Elapsed, r.State.Volume, r.Inflow, r.Outflow, Status(r))
}
