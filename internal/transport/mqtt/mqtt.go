// Package mqtt connects the simulator to an MQTT broker with Eclipse Paho.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/transport"
)

const (
	DefaultHost           = "localhost"
	DefaultPort           = 1883
	DefaultConnectTimeout = 5 * time.Second
	quiesceMillis         = 250
)

type Config struct {
	Host           string
	Port           int
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	ConnectTimeout time.Duration
}

// URL is the broker address in Paho's scheme://host:port form.
func (c Config) URL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// NewClientID returns a unique client identifier for one process.
func NewClientID() string {
	return "liftsim-" + xid.New().String()
}

type Broker struct {
	client paho.Client
	qos    byte
	log    zerolog.Logger

	mu   sync.Mutex
	subs map[string]transport.Handler
}

// Dial connects to the broker and returns once the session is established.
// Subscriptions are restored automatically after a reconnect.
func Dial(ctx context.Context, cfg Config, log zerolog.Logger) (*Broker, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ClientID == "" {
		cfg.ClientID = NewClientID()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	b := &Broker{
		qos:  cfg.QoS,
		log:  log.With().Str("broker", cfg.URL()).Str("client_id", cfg.ClientID).Logger(),
		subs: make(map[string]transport.Handler),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.URL()).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			b.log.Warn().Err(err).Msg("connection to broker lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	b.client = paho.NewClient(opts)
	if err := wait(ctx, b.client.Connect()); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.URL(), err)
	}
	return b, nil
}

func (b *Broker) onConnect(c paho.Client) {
	b.log.Info().Msg("connected to broker")

	b.mu.Lock()
	filters := make(map[string]byte, len(b.subs))
	for topic := range b.subs {
		filters[topic] = b.qos
	}
	b.mu.Unlock()

	if len(filters) == 0 {
		return
	}
	tok := c.SubscribeMultiple(filters, b.dispatch)
	go func() {
		if tok.Wait() && tok.Error() != nil {
			b.log.Error().Err(tok.Error()).Msg("resubscribe failed")
		}
	}()
}

func (b *Broker) dispatch(_ paho.Client, m paho.Message) {
	b.mu.Lock()
	h, ok := b.subs[m.Topic()]
	b.mu.Unlock()
	if ok {
		h(m.Topic(), m.Payload())
	}
}

func (b *Broker) Subscribe(ctx context.Context, topics []string, h transport.Handler) error {
	filters := make(map[string]byte, len(topics))
	b.mu.Lock()
	for _, t := range topics {
		b.subs[t] = h
		filters[t] = b.qos
	}
	b.mu.Unlock()

	if err := wait(ctx, b.client.SubscribeMultiple(filters, b.dispatch)); err != nil {
		return fmt.Errorf("subscribe %v: %w", topics, err)
	}
	b.log.Info().Strs("topics", topics).Msg("subscribed")
	return nil
}

func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	return wait(ctx, b.client.Publish(topic, b.qos, false, payload))
}

func (b *Broker) Close() error {
	b.client.Disconnect(quiesceMillis)
	return nil
}

func wait(ctx context.Context, tok paho.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
