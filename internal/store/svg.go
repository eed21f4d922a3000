package store

import (
	"fmt"
	"strings"

	"github.com/san-kum/liftsim/internal/experiment"
)

const (
	volumeStroke   = "#00ccff"
	capacityStroke = "#ff4444"
)

// VolumeSVG draws sampled volume against time with the capacity line and,
// when reached, a marker at the event time. The y axis spans zero to
// capacity.
func VolumeSVG(res *experiment.Result, width, height int) string {
	if len(res.Samples) < 2 {
		return ""
	}

	tMax := res.Samples[len(res.Samples)-1].Time
	vMax := res.Capacity
	if tMax <= 0 {
		tMax = 1
	}
	if vMax <= 0 {
		vMax = 1
	}

	pad := float64(height) * 0.1
	plotH := float64(height) - 2*pad
	x := func(t float64) float64 { return t / tMax * float64(width) }
	y := func(v float64) float64 { return pad + plotH - v/vMax*plotH }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="6,4"/>
`, y(vMax), width, y(vMax), capacityStroke)

	if res.Reached {
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>
`, x(res.EventTime), y(vMax), capacityStroke)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, volumeStroke)
	for i, s := range res.Samples {
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x(s.Time), y(s.Volume))
	}
	sb.WriteString(`"/>
</svg>
`)
	return sb.String()
}
