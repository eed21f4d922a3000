package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/dynamo"
	"github.com/san-kum/liftsim/internal/sim"
)

func report(volume, elapsed float64, overflow, event bool) sim.Report {
	return sim.Report{
		State:    dynamo.PhysicalState{Volume: volume, Elapsed: elapsed},
		Inflow:   200,
		Outflow:  60,
		Capacity: 20000,
		Overflow: overflow,
		Event:    event,
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	r.Report(ctx, report(140, 1, false, false))
	r.Report(ctx, report(20000, 143, true, true))
	r.ControlUpdate(control.ActiveTanks, nil)
	r.ControlUpdate(control.PumpOn, errors.New("bad"))
	r.PublishFailed(errors.New("timeout"))

	assert.Equal(t, 20000.0, testutil.ToFloat64(r.volume))
	assert.Equal(t, 143.0, testutil.ToFloat64(r.minutes))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.segments))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.overflowEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.publishFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.controlUpdates.WithLabelValues("active_tanks", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.controlUpdates.WithLabelValues("pump_status", "rejected")))
}

func TestRecorderHandler(t *testing.T) {
	r := NewRecorder()
	r.Report(context.Background(), report(140, 1, false, false))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "liftsim_volume_liters 140"))
	assert.Contains(t, string(body), "liftsim_segments_total 1")
}

func TestSummaryMetrics(t *testing.T) {
	ms := Standard()
	reports := []sim.Report{
		report(10000, 50, false, false),
		report(19000, 135, false, false),
		report(20000, 142.857, true, true),
		report(20000, 143, true, false),
	}
	reports[2].EventTime = 142.857

	for _, rep := range reports {
		for _, m := range ms {
			m.Observe(rep)
		}
	}

	values := map[string]float64{}
	for _, m := range ms {
		values[m.Name()] = m.Value()
	}
	assert.Equal(t, 20000.0, values["peak_volume"])
	assert.InDelta(t, 142.857, values["time_to_capacity"], 1e-9)
	assert.Equal(t, 0.5, values["overflow_fraction"])

	for _, m := range ms {
		m.Reset()
	}
	assert.Equal(t, -1.0, ms[1].Value())
	assert.Equal(t, 0.0, ms[2].Value())
}
