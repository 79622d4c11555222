// Package kafka publishes answer events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/docqa/pkg/eventstream"
)

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes JSON events keyed by event ID.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates an async Kafka publisher. Write errors are logged by
// the writer's completion callback instead of failing the request.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.LeastBytes{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Error("failed to publish answer events",
					"topic", c.Topic,
					"count", len(messages),
					"error", err,
				)
			}
		},
	}

	logger.Info("kafka event publisher initialized",
		"brokers", c.Brokers,
		"topic", c.Topic,
	)

	return newPublisher(w, logger), nil
}

func newPublisher(w messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: w,
		logger: logger,
	}
}

// PublishAnswer encodes the event and hands it to the writer.
func (p *Publisher) PublishAnswer(ctx context.Context, event *eventstream.AnswerServedEvent) error {
	if event == nil {
		return eventstream.ErrNilAnswerEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling answer event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.EventID),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("writing answer event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
