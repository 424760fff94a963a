// Package notify delivers onboarding messages to the outreach pipeline
// over RabbitMQ. Delivery is best-effort; the confirmation flow never
// blocks on it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talentr/internal/usecase"

	amqp "github.com/rabbitmq/amqp091-go"
)

type AMQPNotifier struct {
	conn  *amqp.Connection
	chn   *amqp.Channel
	queue string
}

func NewAMQPNotifier(url, queue string) (*AMQPNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := chn.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = chn.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPNotifier{conn: conn, chn: chn, queue: queue}, nil
}

func (n *AMQPNotifier) Close() error {
	if err := n.chn.Close(); err != nil {
		return err
	}
	return n.conn.Close()
}

type envelope struct {
	Kind      string    `json:"kind"`
	SentAt    time.Time `json:"sent_at"`
	LeadID    string    `json:"lead_id,omitempty"`
	VendorID  string    `json:"vendor_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	WhatsApp  string    `json:"whatsapp,omitempty"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (n *AMQPNotifier) SendInvite(ctx context.Context, msg usecase.InviteMessage) error {
	return n.publish(ctx, envelope{
		Kind:      "invite",
		SentAt:    time.Now().UTC(),
		LeadID:    msg.LeadID,
		Name:      msg.Name,
		Email:     msg.Email,
		WhatsApp:  msg.WhatsApp,
		Link:      msg.Link,
		ExpiresAt: msg.ExpiresAt,
	})
}

func (n *AMQPNotifier) SendConfirmation(ctx context.Context, msg usecase.ConfirmationMessage) error {
	return n.publish(ctx, envelope{
		Kind:     "confirmation",
		SentAt:   time.Now().UTC(),
		VendorID: msg.VendorID,
		Name:     msg.Name,
		Email:    msg.Email,
		Link:     msg.Link,
	})
}

func (n *AMQPNotifier) publish(ctx context.Context, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return n.chn.PublishWithContext(
		ctx,
		"",
		n.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
