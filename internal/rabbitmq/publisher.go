package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"smsride/internal/config"
	"smsride/internal/domain"
	"smsride/internal/service"
)

// Routing keys of outbound messages.
const (
	RoutingKeyText     = "sms.text"
	RoutingKeyLocation = "mms.location"
)

// OutboundMessage is the JSON envelope consumed by the carrier gateway.
type OutboundMessage struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Text      string           `json:"text"`
	Subject   string           `json:"subject,omitempty"`
	Location  *domain.Location `json:"location,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Channel is the subset of *amqp091.Channel used by Publisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher is a service.NotificationSink that publishes outbound messages
// to a topic exchange.
type Publisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	ch       Channel
	exchange string
}

// Dial connects to the broker and opens a publishing channel.
func Dial(cfg config.RabbitMQConfig) (*amqp091.Connection, *Publisher, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	publisher, err := NewPublisher(ch, cfg.Exchange)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, publisher, nil
}

// NewPublisher declares the exchange on ch and returns a Publisher.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	log.Printf("RabbitMQ exchange %s ready", exchange)

	return &Publisher{ch: ch, exchange: exchange}, nil
}

// SendText publishes a plain text message.
func (p *Publisher) SendText(ctx context.Context, from, to, text string) error {
	return p.publish(ctx, RoutingKeyText, OutboundMessage{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// SendLocation publishes a location message; the gateway renders the map.
func (p *Publisher) SendLocation(ctx context.Context, from, to, text string, location domain.Location) error {
	return p.publish(ctx, RoutingKeyLocation, OutboundMessage{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Text:      text,
		Subject:   service.LocationSubject,
		Location:  &location,
		CreatedAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.CreatedAt,
		Body:         body,
	})
}

// Close closes the publishing channel.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Ensure Publisher implements service.NotificationSink.
var _ service.NotificationSink = (*Publisher)(nil)
