// Package queue publishes committed rental lifecycle events to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends each event as a persistent JSON message to a durable queue on the
// default exchange.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    channel
	queue string
}

// Dial connects to the broker and declares the queue.
func Dial(url, queue string) (*Publisher, error) {
	logger.ExternalServiceCall("rabbitmq", "Dial", "queue", queue)
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.ExternalServiceResult("rabbitmq", "Dial", err)
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	logger.ExternalServiceResult("rabbitmq", "Dial", nil, "queue", queue)
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func newPublisher(ch channel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue}
}

func (p *Publisher) Publish(ctx context.Context, event domain.RentalEvent) error {
	pub, err := message(event)
	if err != nil {
		return err
	}

	logger.ExternalServiceCall("rabbitmq", "Publish", "queue", p.queue, "type", event.Type, "rental_id", event.RentalID)
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	)
	p.mu.Unlock()
	logger.ExternalServiceResult("rabbitmq", "Publish", err, "queue", p.queue)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func message(event domain.RentalEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    ts,
		Body:         body,
	}, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, event domain.RentalEvent) error {
	logger.DebugContext(ctx, "event publishing disabled", "type", event.Type, "rental_id", event.RentalID)
	return nil
}
