// Package notify delivers outbound notifications (support e-mails for the
// contact form) through a pluggable Sink.
//
// Delivery failures are returned as *SendError. Sinks never retry.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/bankrates/internal/config"
)

// Sink delivers a message to a set of recipients.
type Sink interface {
	Send(ctx context.Context, subject, body string, recipients []string) error
}

// SendError reports a failed delivery.
type SendError struct {
	Sink string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Sink, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ErrNoRecipients is wrapped in a SendError when Send is called with an
// empty recipient list.
var ErrNoRecipients = errors.New("no recipients")

// Sink names accepted in configuration.
const (
	SinkSMTP  = "smtp"
	SinkKafka = "kafka"
	SinkLog   = "log"
)

// New builds the sink selected by cfg.Sink.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Sink {
	case SinkSMTP:
		return NewSMTPSink(cfg.SMTP), nil
	case SinkKafka:
		return NewKafkaSink(cfg.Kafka, logger), nil
	case SinkLog, "":
		return NewLogSink(logger), nil
	}
	return nil, fmt.Errorf("unknown notify sink %q", cfg.Sink)
}

func checkRecipients(sink string, recipients []string) error {
	if len(recipients) == 0 {
		return &SendError{Sink: sink, Err: ErrNoRecipients}
	}
	return nil
}
