package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/sim"
)

const namespace = "liftsim"

// Recorder is a sim.Sink that mirrors the station into Prometheus metrics.
// It owns its registry so several recorders can coexist in tests.
type Recorder struct {
	reg *prometheus.Registry

	volume          prometheus.Gauge
	inflow          prometheus.Gauge
	outflow         prometheus.Gauge
	minutes         prometheus.Gauge
	segments        prometheus.Counter
	overflowEvents  prometheus.Counter
	publishFailures prometheus.Counter
	controlUpdates  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		volume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_liters",
			Help:      "Volume held in the lift station after the last segment.",
		}),
		inflow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflow_lpm",
			Help:      "Fab inflow latched for the last segment in liters per minute.",
		}),
		outflow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outflow_lpm",
			Help:      "Pump outflow latched for the last segment in liters per minute.",
		}),
		minutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulated_minutes",
			Help:      "Simulated time elapsed.",
		}),
		segments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Committed integration segments.",
		}),
		overflowEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overflow_events_total",
			Help:      "Times the capacity event terminated a segment.",
		}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Volume publishes dropped after an error or timeout.",
		}),
		controlUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_updates_total",
			Help:      "Inbound control messages by field and outcome.",
		}, []string{"field", "result"}),
	}

	r.reg.MustRegister(
		r.volume, r.inflow, r.outflow, r.minutes,
		r.segments, r.overflowEvents, r.publishFailures, r.controlUpdates,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Report(_ context.Context, rep sim.Report) {
	r.volume.Set(rep.State.Volume)
	r.inflow.Set(rep.Inflow)
	r.outflow.Set(rep.Outflow)
	r.minutes.Set(rep.State.Elapsed)
	r.segments.Inc()
	if rep.Event {
		r.overflowEvents.Inc()
	}
}

// ControlUpdate has the shape of control.UpdateHook.
func (r *Recorder) ControlUpdate(f control.Field, err error) {
	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	r.controlUpdates.WithLabelValues(f.String(), result).Inc()
}

func (r *Recorder) PublishFailed(error) {
	r.publishFailures.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
