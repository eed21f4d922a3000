package control

import (
	"sort"

	"github.com/rs/zerolog"
)

const (
	DefaultActiveTanksTopic = "lift_station/active_tanks"
	DefaultPumpStatusTopic  = "lift_station/pump_status"
	DefaultFabOutflowTopic  = "lift_station/fab_outflow"
)

// Topics maps subscribed topic names to control fields.
type Topics struct {
	ActiveTanks string `yaml:"active_tanks"`
	PumpStatus  string `yaml:"pump_status"`
	FabOutflow  string `yaml:"fab_outflow"`
}

func DefaultTopics() Topics {
	return Topics{
		ActiveTanks: DefaultActiveTanksTopic,
		PumpStatus:  DefaultPumpStatusTopic,
		FabOutflow:  DefaultFabOutflowTopic,
	}
}

// UpdateHook observes every routed update; err is nil on success.
type UpdateHook func(f Field, err error)

type Ingestor struct {
	store  *Store
	routes map[string]Field
	log    zerolog.Logger
	hooks  []UpdateHook
	clock  func() float64
}

type IngestorOption func(*Ingestor)

func WithLogger(log zerolog.Logger) IngestorOption {
	return func(in *Ingestor) { in.log = log }
}

// WithClock stamps accepted updates with the elapsed simulated minutes
// returned by clock. clock must be safe to call from the broker goroutine.
func WithClock(clock func() float64) IngestorOption {
	return func(in *Ingestor) { in.clock = clock }
}

func WithUpdateHook(h UpdateHook) IngestorOption {
	return func(in *Ingestor) { in.hooks = append(in.hooks, h) }
}

func NewIngestor(store *Store, topics Topics, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		store: store,
		routes: map[string]Field{
			topics.ActiveTanks: ActiveTanks,
			topics.PumpStatus:  PumpOn,
			topics.FabOutflow:  FabOutflow,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Topics returns the subscribed topic names in sorted order.
func (in *Ingestor) Topics() []string {
	topics := make([]string, 0, len(in.routes))
	for t := range in.routes {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Handle applies one inbound control message. Invalid payloads are logged and
// dropped; the previous value stays in effect.
func (in *Ingestor) Handle(topic string, payload []byte) {
	f, ok := in.routes[topic]
	if !ok {
		in.log.Debug().Str("topic", topic).Msg("ignoring message on unrouted topic")
		return
	}

	err := in.store.Set(f, string(payload))
	for _, h := range in.hooks {
		h(f, err)
	}
	if err != nil {
		in.log.Warn().Err(err).Str("topic", topic).Bytes("payload", payload).Msg("rejected control payload")
		return
	}

	ev := in.log.Info()
	if in.clock != nil {
		ev = ev.Float64("elapsed_min", in.clock())
	}
	ev.Str("field", f.String()).Bytes("value", payload).Msg("control updated")
}
