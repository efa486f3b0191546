// Package amqp relays outbox events to RabbitMQ.
package amqp

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"rwpay/internal/infrastructure/storage/postgres"
	"rwpay/pkg/logger"
)

const publishTimeout = 5 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends each outbox message to a durable direct exchange, routed
// by event type.
type Publisher struct {
	conn     *amqp091.Connection
	channel  channel
	exchange string
}

var _ postgres.OutboxHandler = (*Publisher)(nil)

func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *Publisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := p.channel.PublishWithContext(ctx, p.exchange, msg.EventType, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.CreatedAt,
		Type:         msg.EventType,
		Headers: amqp091.Table{
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID.String(),
		},
		Body: msg.Payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}

	logger.Debug(ctx, "event published", "event_type", msg.EventType, "message_id", msg.ID, "exchange", p.exchange)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogHandler is used when no broker is configured: messages are logged and
// marked published.
type LogHandler struct{}

func (LogHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	logger.Info(ctx, "outbox event", "event_type", msg.EventType, "aggregate_id", msg.AggregateID, "payload", string(msg.Payload))
	return nil
}
