package eventbus

import (
	"context"
	"sync"

	"RailSettle/internal/core/ports"

	"github.com/rs/zerolog"
)

// inMemoryEventBus fans settlement events out to in-process handlers.
// It is the default bus; the RabbitMQ forwarder attaches to it when an
// external broker is configured.
type inMemoryEventBus struct {
	log      zerolog.Logger
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
}

var _ ports.EventBus = (*inMemoryEventBus)(nil) // Ensure compliance

func NewInMemoryEventBus(baseLogger *zerolog.Logger) ports.EventBus {
	return &inMemoryEventBus{
		log:      baseLogger.With().Str("component", "event_bus").Logger(),
		handlers: make(map[string][]ports.EventHandler),
	}
}

// Publish delivers the event to every handler subscribed to the topic.
// Handlers run in their own goroutines on a background context: a
// risk-assessment or batch-build request must not wait on, or cancel,
// downstream consumers.
func (b *inMemoryEventBus) Publish(ctx context.Context, topic string, data interface{}) error {
	b.mu.RLock()
	subscribed := b.handlers[topic]
	// Snapshot so late Subscribe calls don't race the fan-out below.
	handlers := make([]ports.EventHandler, len(subscribed))
	copy(handlers, subscribed)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug().Str("topic", topic).Msg("Event published with no subscribers")
		return nil
	}

	event := ports.Event{Topic: topic, Data: data}
	for _, handler := range handlers {
		go func(h ports.EventHandler) {
			if err := h(context.Background(), event); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Msg("Event handler failed")
			}
		}(handler)
	}

	b.log.Debug().Str("topic", topic).Int("handlers", len(handlers)).Msg("Event published")
	return nil
}

func (b *inMemoryEventBus) Subscribe(topic string, handler ports.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}
