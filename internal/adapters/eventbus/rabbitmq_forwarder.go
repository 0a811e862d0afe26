package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"RailSettle/internal/core/ports"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// RabbitMQForwarder bridges the in-process bus onto a durable topic
// exchange so external consumers (reconciliation, notifications) see
// the same events the in-process subscribers do. The event topic
// becomes the AMQP routing key.
type RabbitMQForwarder struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	log      zerolog.Logger
}

// NewRabbitMQForwarder dials the broker and declares the exchange.
func NewRabbitMQForwarder(amqpURL, exchange string, baseLogger *zerolog.Logger) (*RabbitMQForwarder, error) {
	log := baseLogger.With().Str("component", "rabbitmq_forwarder").Logger()

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(amqpURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", exchange).Msg("RabbitMQ forwarder connected")
	return &RabbitMQForwarder{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

// Attach subscribes the forwarder to the given topics on the in-process
// bus. Forwarding failures are logged, never propagated: the in-process
// subscribers already ran, and the broker is a secondary sink.
func (f *RabbitMQForwarder) Attach(bus ports.EventBus, topics ...string) {
	for _, topic := range topics {
		bus.Subscribe(topic, f.forward)
	}
}

func (f *RabbitMQForwarder) forward(ctx context.Context, event ports.Event) error {
	body, err := json.Marshal(event.Data)
	if err != nil {
		f.log.Error().Err(err).Str("topic", event.Topic).Msg("Failed to marshal event payload")
		return err
	}

	err = f.channel.PublishWithContext(ctx,
		f.exchange,
		event.Topic, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		f.log.Warn().Err(err).Str("topic", event.Topic).Msg("Publish failed; reopening channel")
		// One-shot retry on a fresh channel.
		ch, chErr := f.conn.Channel()
		if chErr != nil {
			return err
		}
		f.channel = ch
		return f.channel.PublishWithContext(ctx, f.exchange, event.Topic, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		})
	}
	return nil
}

// Close gracefully closes the channel and connection.
func (f *RabbitMQForwarder) Close() {
	if f.channel != nil {
		f.channel.Close()
	}
	if f.conn != nil {
		f.conn.Close()
	}
}
