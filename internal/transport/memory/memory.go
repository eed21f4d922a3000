// Package memory is an in-process broker used by tests and by runs without an
// external transport.
package memory

import (
	"context"
	"sync"

	"github.com/san-kum/liftsim/internal/transport"
)

type Message struct {
	Topic   string
	Payload []byte
}

type Broker struct {
	mu        sync.Mutex
	subs      map[string][]transport.Handler
	published []Message
	failWith  error
	closed    bool
}

func New() *Broker {
	return &Broker{subs: make(map[string][]transport.Handler)}
}

// Publish records the message and delivers it synchronously to subscribers.
func (b *Broker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return transport.ErrClosed
	}
	if b.failWith != nil {
		err := b.failWith
		b.mu.Unlock()
		return err
	}
	msg := Message{Topic: topic, Payload: append([]byte(nil), payload...)}
	b.published = append(b.published, msg)
	handlers := append([]transport.Handler(nil), b.subs[topic]...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(topic, msg.Payload)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topics []string, h transport.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return transport.ErrClosed
	}
	for _, t := range topics {
		b.subs[t] = append(b.subs[t], h)
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string][]transport.Handler)
	return nil
}

// Published returns the messages published on topic, oldest first.
func (b *Broker) Published(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.published {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// FailPublishes makes every later Publish return err; nil restores delivery.
func (b *Broker) FailPublishes(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWith = err
}
