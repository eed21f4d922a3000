package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/sim"
	"github.com/san-kum/liftsim/internal/transport"
)

const (
	DefaultVolumeTopic    = "data/lift_station/current_volume"
	DefaultPublishTimeout = 500 * time.Millisecond
)

// Publisher sends the committed volume to the broker. Failed publishes are
// logged and dropped; the next segment publishes a fresh value.
type Publisher struct {
	pub       transport.Publisher
	topic     string
	timeout   time.Duration
	log       zerolog.Logger
	onFailure func(error)
}

type PublisherOption func(*Publisher)

func WithTopic(topic string) PublisherOption {
	return func(p *Publisher) { p.topic = topic }
}

func WithTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.timeout = d }
}

func WithLogger(log zerolog.Logger) PublisherOption {
	return func(p *Publisher) { p.log = log }
}

// WithFailureHook is called once per dropped publish.
func WithFailureHook(fn func(error)) PublisherOption {
	return func(p *Publisher) { p.onFailure = fn }
}

func NewPublisher(pub transport.Publisher, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		pub:     pub,
		topic:   DefaultVolumeTopic,
		timeout: DefaultPublishTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Report(ctx context.Context, r sim.Report) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload := FormatVolume(r.State.Volume)
	if err := p.pub.Publish(ctx, p.topic, []byte(payload)); err != nil {
		p.log.Warn().Err(err).
			Str("topic", p.topic).
			Int("segment", r.Segment).
			Msg("publish failed")
		if p.onFailure != nil {
			p.onFailure(err)
		}
		return
	}
	p.log.Debug().Str("topic", p.topic).Str("volume", payload).Msg("published")
}
