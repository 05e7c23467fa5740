package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher hands a stored notification to the delivery side.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

var errNotConfirmed = errors.New("message not confirmed by broker")

// AMQPPublisher publishes persistent JSON messages to a durable queue and
// waits for the broker confirm of each one.
type AMQPPublisher struct {
	ch       *amqp.Channel
	queue    string
	log      *zap.Logger
	confirms chan amqp.Confirmation
	mu       sync.Mutex
}

func NewAMQPPublisher(conn *amqp.Connection, queue string, log *zap.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &AMQPPublisher{
		ch:       ch,
		queue:    queue,
		log:      log,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

// Message is the wire payload consumed by delivery workers.
type Message struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id"`
	RecipientType string `json:"recipient_type"`
	RecipientID   string `json:"recipient_id"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	CreatedAt     string `json:"created_at"`
}

func toMessage(n Notification) Message {
	return Message{
		ID:            n.ID.String(),
		AppointmentID: n.AppointmentID.String(),
		RecipientType: string(n.RecipientType),
		RecipientID:   n.RecipientID.String(),
		Title:         n.Title,
		Message:       n.Message,
		CreatedAt:     n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(toMessage(n))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    n.ID.String(),
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}

	select {
	case confirmed := <-p.confirms:
		if !confirmed.Ack {
			return errNotConfirmed
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	p.log.Debug("notification published",
		zap.String("notification_id", n.ID.String()),
		zap.String("queue", p.queue),
	)
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}
