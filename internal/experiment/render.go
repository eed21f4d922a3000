package experiment

import (
	"fmt"
	"io"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// WriteTable prints the sample table and the outcome line.
func WriteTable(w io.Writer, res *Result) {
	fmt.Fprintf(w, "--- Fill scenario: inflow %.1f L/min, outflow %.1f L/min ---\n\n", res.Inflow, res.Outflow)
	fmt.Fprintln(w, "Time (min) | Volume (L) | Status")
	fmt.Fprintln(w, strings.Repeat("-", 35))
	for _, s := range res.Samples {
		fmt.Fprintf(w, "%10.2f | %10.2f | %s\n", s.Time, s.Volume, s.Status)
	}

	fmt.Fprintln(w)
	if res.Reached {
		fmt.Fprintf(w, "Capacity reached at t = %.2f minutes.\n", res.EventTime)
		fmt.Fprintf(w, "Steady-state overflow rate into pit: %.1f L/min.\n", res.OverflowRate)
		return
	}
	fmt.Fprintln(w, "Capacity was not reached during the run.")
}

// Plot renders the sampled volume as an ASCII chart.
func Plot(res *Result, width, height int) string {
	volumes := make([]float64, len(res.Samples))
	for i, s := range res.Samples {
		volumes[i] = s.Volume
	}
	if len(volumes) < 2 {
		return ""
	}
	return asciigraph.Plot(volumes,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(res.Capacity),
		asciigraph.Caption("Volume (L) per sample"),
	)
}
