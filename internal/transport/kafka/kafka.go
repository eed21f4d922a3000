// Package kafka carries the simulator's topics over Apache Kafka. Topic names
// use dots where the MQTT names use slashes.
package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/san-kum/liftsim/internal/transport"
)

const batchTimeout = 10 * time.Millisecond

type Config struct {
	Brokers []string
	GroupID string
}

// TopicName maps a slash-separated topic to a Kafka topic name.
func TopicName(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

type Broker struct {
	cfg    Config
	writer *kafkago.Writer
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	readers []*kafkago.Reader
	closed  bool
}

func New(cfg Config, log zerolog.Logger) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		cfg: cfg,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Balancer:               &kafkago.LeastBytes{},
			BatchTimeout:           batchTimeout,
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
		},
		log:    log.With().Strs("brokers", cfg.Brokers).Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.writer.WriteMessages(ctx, kafkago.Message{
		Topic: TopicName(topic),
		Value: payload,
	})
}

// Subscribe starts one reader per topic. Readers run until Close.
func (b *Broker) Subscribe(ctx context.Context, topics []string, h transport.Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return transport.ErrClosed
	}

	for _, topic := range topics {
		r := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     b.cfg.Brokers,
			GroupID:     b.cfg.GroupID,
			Topic:       TopicName(topic),
			StartOffset: kafkago.LastOffset,
		})
		b.readers = append(b.readers, r)
		b.wg.Add(1)
		go b.consume(r, topic, h)
	}
	b.log.Info().Strs("topics", topics).Msg("subscribed")
	return nil
}

func (b *Broker) consume(r *kafkago.Reader, topic string, h transport.Handler) {
	defer b.wg.Done()
	for {
		m, err := r.ReadMessage(b.ctx)
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			b.log.Warn().Err(err).Str("topic", topic).Msg("read failed")
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		h(topic, m.Value)
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	readers := b.readers
	b.mu.Unlock()

	b.cancel()
	var errs []error
	for _, r := range readers {
		errs = append(errs, r.Close())
	}
	b.wg.Wait()
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}
