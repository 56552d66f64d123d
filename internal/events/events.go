// Package events publishes content events (new reviews and comments) to
// RabbitMQ. Publishing is best effort: failures are logged by the caller
// and never fail the request that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"yamdb/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ReviewCreated  = "review.created"
	CommentCreated = "comment.created"
)

type Event struct {
	Type       string    `json:"type"`
	TitleID    int64     `json:"title_id"`
	ReviewID   int64     `json:"review_id"`
	CommentID  int64     `json:"comment_id,omitempty"`
	Author     string    `json:"author"`
	Score      int       `json:"score,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// New returns an AMQP publisher, or a no-op one when AMQP_URL is empty.
func New(cfg *config.Config, logger *slog.Logger) Publisher {
	if cfg.AMQPURL == "" {
		return NopPublisher{}
	}
	return NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue, logger)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// AMQPPublisher opens a connection per event, which is fine for the low
// volume of content writes.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

func NewAMQPPublisher(url, queue string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, logger: logger}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(2 * time.Second)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// durable so events survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.logger.DebugContext(ctx, "Event published", "type", event.Type, "queue", p.queue)
	return nil
}
