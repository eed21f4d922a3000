// Package transport defines the publish/subscribe surface the simulator talks
// to. Concrete brokers live in the mqtt, kafka and memory subpackages.
package transport

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("transport: broker closed")

// Handler is invoked for every inbound message. It may run on a transport
// goroutine and must not block for long.
type Handler func(topic string, payload []byte)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topics []string, h Handler) error
	Close() error
}
