package app

import (
	"fmt"
	"io"
	"log"

	"smsride/internal/config"
	"smsride/internal/rabbitmq"
	"smsride/internal/service"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewSink builds the notification sink selected by cfg.Dispatch.Sink.
// The returned closer releases the broker connection.
func NewSink(cfg *config.Config) (service.NotificationSink, io.Closer, error) {
	switch cfg.Dispatch.Sink {
	case config.SinkLog:
		return service.NewLogSink(), closerFunc(func() error { return nil }), nil

	case config.SinkAMQP:
		conn, publisher, err := rabbitmq.Dial(cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		log.Println("Connected to RabbitMQ")
		return publisher, closerFunc(func() error {
			_ = publisher.Close()
			return conn.Close()
		}), nil

	default:
		return nil, nil, fmt.Errorf("unknown sink %q", cfg.Dispatch.Sink)
	}
}
