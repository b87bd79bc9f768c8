package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const natsKeyHeader = "Event-Key"

// NATSPublisher publishes events on a single subject
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// PublishEvent publishes an event with its key carried in a header
func (p *NATSPublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Header.Set(natsKeyHeader, key)
	msg.Data = data

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Close drains the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NATSSubscriber consumes a subject as part of a queue group
type NATSSubscriber struct {
	conn    *nats.Conn
	subject string
	queue   string
	logger  *zap.Logger
}

// NewNATSSubscriber connects to NATS
func NewNATSSubscriber(url, subject, queue string) (*NATSSubscriber, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn, subject: subject, queue: queue, logger: util.GetLogger()}, nil
}

// StartConsuming delivers messages to handler until ctx is cancelled
func (s *NATSSubscriber) StartConsuming(ctx context.Context, handler MessageHandler) error {
	ch := make(chan *nats.Msg, 64)
	sub, err := s.conn.ChanQueueSubscribe(s.subject, s.queue, ch)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	defer sub.Unsubscribe()

	s.logger.Info("Starting NATS subscriber", zap.String("subject", s.subject), zap.String("queue", s.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			key := ""
			if msg.Header != nil {
				key = msg.Header.Get(natsKeyHeader)
			}
			if err := handler(ctx, Message{Key: key, Value: msg.Data}); err != nil {
				s.logger.Error("Error handling message", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// Close closes the connection
func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
