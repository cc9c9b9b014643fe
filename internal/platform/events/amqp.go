package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Forwarder republishes bus events to a topic exchange, keyed by event name.
type Forwarder struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
	now      func() time.Time
}

type envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Event     `json:"payload"`
}

func DialForwarder(url, exchange string) (*Forwarder, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	slog.Info("event forwarder connected", "exchange", exchange)
	return &Forwarder{conn: conn, channel: ch, exchange: exchange, now: time.Now}, nil
}

func (f *Forwarder) Handle(ctx context.Context, event Event) error {
	now := f.now()
	body, err := json.Marshal(envelope{Event: event.EventName(), Timestamp: now, Payload: event})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = f.channel.PublishWithContext(ctx, f.exchange, event.EventName(), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    now,
		Body:         body,
		Headers: amqp091.Table{
			"event_type": event.EventName(),
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.EventName(), err)
	}
	return nil
}

func (f *Forwarder) Close() error {
	if f.channel != nil {
		_ = f.channel.Close()
	}
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
