// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

// Routing keys
const (
	RouteTaskApproved        = "task.approved"
	RouteTaskRejected        = "task.rejected"
	RouteKycStatusChanged    = "kyc.status_changed"
	RoutePayoutRecorded      = "wallet.payout_recorded"
	RouteMembershipActivated = "membership.activated"
)

// TaskReviewed is published after an admin approves or rejects an assignment.
type TaskReviewed struct {
	AssignmentID uint64          `json:"assignment_id"`
	UserID       string          `json:"user_id"`
	TaskID       uint64          `json:"task_id"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// KycStatusChanged is published after an admin decision on a KYC record.
type KycStatusChanged struct {
	KycID     uint64    `json:"kyc_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PayoutRecorded is published after a payout ledger entry is written.
type PayoutRecorded struct {
	TransactionID uint64          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	Timestamp     time.Time       `json:"timestamp"`
}

// MembershipActivated is published after a verified membership payment.
type MembershipActivated struct {
	UserID    string    `json:"user_id"`
	Tier      string    `json:"tier"`
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close()
}

// Noop drops every event. It is used when no broker is configured or the
// broker is unreachable at startup.
type Noop struct{}

func (Noop) Publish(ctx context.Context, routingKey string, body interface{}) error {
	slog.Debug("event publish skipped", "component", "events", "mode", "noop", "routing_key", routingKey)
	return nil
}

func (Noop) Close() {}

// AMQPPublisher publishes JSON events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Connect returns an AMQP publisher, or Noop when url is empty or the broker
// cannot be reached.
func Connect(amqpURL, exchange string) Publisher {
	if strings.TrimSpace(amqpURL) == "" {
		return Noop{}
	}
	p, err := NewAMQPPublisher(amqpURL, exchange)
	if err != nil {
		slog.Warn("rabbitmq unavailable, events disabled", "component", "events", "error", err)
		return Noop{}
	}
	return p
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	// One retry on a fresh channel
	slog.Warn("publish failed; reopening channel", "component", "events", "routing_key", routingKey, "error", err)
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return err
	}
	p.channel = ch
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
