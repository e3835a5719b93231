package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/rickgao/bankrates/internal/config"
)

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Command is the message published for a downstream mail worker.
type Command struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// KafkaSink publishes notification commands to a Kafka topic.
type KafkaSink struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaSink creates a KafkaSink writing to cfg.Topic.
func NewKafkaSink(cfg config.KafkaConfig, logger *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		// Sends are never retried; the caller reports the failure.
		MaxAttempts: 1,
	}
	return newKafkaSink(w, cfg.Topic, logger)
}

func newKafkaSink(w messageWriter, topic string, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink{writer: w, topic: topic, logger: logger}
}

// Send publishes one command keyed by the first recipient.
func (s *KafkaSink) Send(ctx context.Context, subject, body string, recipients []string) error {
	if err := checkRecipients(SinkKafka, recipients); err != nil {
		return err
	}

	payload, err := json.Marshal(Command{Recipients: recipients, Subject: subject, Body: body})
	if err != nil {
		return &SendError{Sink: SinkKafka, Err: fmt.Errorf("marshal command: %w", err)}
	}

	msg := kafka.Message{
		Key:   []byte(recipients[0]),
		Value: payload,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Error("kafka publish failed", "topic", s.topic, "error", err)
		return &SendError{Sink: SinkKafka, Err: err}
	}

	s.logger.Debug("notification published", "topic", s.topic, "recipients", len(recipients))
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
