package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/bankrates/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		sink    string
		want    any
		wantErr bool
	}{
		{sink: "smtp", want: &SMTPSink{}},
		{sink: "kafka", want: &KafkaSink{}},
		{sink: "log", want: &LogSink{}},
		{sink: "", want: &LogSink{}},
		{sink: "pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.sink, func(t *testing.T) {
			s, err := New(config.NotifyConfig{
				Sink:  tt.sink,
				SMTP:  config.SMTPConfig{Host: "localhost", Port: 25},
				Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"},
			}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestEmptyRecipientsIsSendError(t *testing.T) {
	sinks := map[string]Sink{
		SinkSMTP:  NewSMTPSink(config.SMTPConfig{Host: "localhost", Port: 25}),
		SinkKafka: newKafkaSink(&fakeWriter{}, "t", nil),
		SinkLog:   NewLogSink(nil),
	}

	for name, s := range sinks {
		t.Run(name, func(t *testing.T) {
			err := s.Send(context.Background(), "subject", "body", nil)

			var se *SendError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, name, se.Sink)
			assert.ErrorIs(t, err, ErrNoRecipients)
		})
	}
}

func TestSMTPSink_Send(t *testing.T) {
	s := NewSMTPSink(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "bot",
		Password: "secret",
		From:     "noreply@example.com",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	var gotAuth smtp.Auth
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), "Rates\r\nBcc: evil@example.com", "line one\nline two", []string{"support@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth, "PLAIN auth expected when a username is set")
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"support@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "To: support@example.com\r\n")
	assert.Contains(t, msg, "Subject: Rates Bcc: evil@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline one\r\nline two\r\n"))
}

func TestSMTPSink_NoAuthWithoutUsername(t *testing.T) {
	s := NewSMTPSink(config.SMTPConfig{Host: "localhost", Port: 25, From: "a@example.com"})
	assert.Nil(t, s.auth)
}

func TestSMTPSink_FailureIsSendError(t *testing.T) {
	s := NewSMTPSink(config.SMTPConfig{Host: "localhost", Port: 25})
	relay := errors.New("550 mailbox unavailable")
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return relay }

	err := s.Send(context.Background(), "s", "b", []string{"x@example.com"})

	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, SinkSMTP, se.Sink)
	assert.ErrorIs(t, err, relay)
	assert.Equal(t, "notify smtp: 550 mailbox unavailable", err.Error())
}

func TestSMTPSink_CanceledContext(t *testing.T) {
	s := NewSMTPSink(config.SMTPConfig{Host: "localhost", Port: 25})
	called := false
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { called = true; return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, "s", "b", []string{"x@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// fakeWriter records messages written to it.
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_Send(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(w, "notifications.contact", nil)

	err := s.Send(context.Background(), "Hello", "Email from: a@example.com", []string{"support@example.com", "ops@example.com"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "support@example.com", string(w.msgs[0].Key))

	var cmd Command
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &cmd))
	assert.Equal(t, Command{
		Recipients: []string{"support@example.com", "ops@example.com"},
		Subject:    "Hello",
		Body:       "Email from: a@example.com",
	}, cmd)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_FailureIsSendError(t *testing.T) {
	broker := errors.New("leader not available")
	s := newKafkaSink(&fakeWriter{err: broker}, "t", nil)

	err := s.Send(context.Background(), "s", "b", []string{"x@example.com"})

	var se *SendError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, SinkKafka, se.Sink)
	assert.ErrorIs(t, err, broker)
}

func TestLogSink_Send(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), "Hello", "body", []string{"support@example.com"}))
	assert.Contains(t, buf.String(), "subject=Hello")
	assert.Contains(t, buf.String(), "body_length=4")
}
