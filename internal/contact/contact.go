// Package contact handles contact-form submissions: validate, store, then
// forward to support through a notify.Sink.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rickgao/bankrates/internal/model"
	"github.com/rickgao/bankrates/internal/notify"
	"github.com/rickgao/bankrates/internal/store"
)

// ErrValidation is wrapped by every validation failure.
var ErrValidation = errors.New("validation failed")

// SubmitRequest is the user-supplied part of a contact message.
type SubmitRequest struct {
	EmailFrom string `json:"email_from"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// Validate checks field presence, length limits and the sender address.
func (r SubmitRequest) Validate() error {
	if err := checkField("email_from", r.EmailFrom, model.MaxEmailLen); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(r.EmailFrom); err != nil {
		return fmt.Errorf("%w: email_from is not a valid address", ErrValidation)
	}
	if err := checkField("subject", r.Subject, model.MaxSubjectLen); err != nil {
		return err
	}
	return checkField("message", r.Message, model.MaxMessageLen)
}

func checkField(name, v string, limit int) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, name)
	}
	if utf8.RuneCountInString(v) > limit {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, name, limit)
	}
	return nil
}

// Service processes contact-form submissions.
type Service struct {
	messages   store.ContactStore
	sink       notify.Sink
	recipients []string
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a Service delivering to recipients.
func NewService(messages store.ContactStore, sink notify.Sink, recipients []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		messages:   messages,
		sink:       sink,
		recipients: append([]string(nil), recipients...),
		now:        time.Now,
		logger:     logger,
	}
}

// Submit validates, stores and forwards a message. The message stays stored
// when delivery fails; the *notify.SendError is returned unchanged.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (model.ContactMessage, error) {
	req.EmailFrom = strings.TrimSpace(req.EmailFrom)
	if err := req.Validate(); err != nil {
		return model.ContactMessage{}, err
	}

	msg := model.ContactMessage{
		ID:        uuid.New(),
		EmailFrom: req.EmailFrom,
		Subject:   req.Subject,
		Message:   req.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return model.ContactMessage{}, fmt.Errorf("store contact message: %w", err)
	}

	if err := s.sink.Send(ctx, msg.Subject, Body(msg), s.recipients); err != nil {
		s.logger.Error("contact message not delivered", "id", msg.ID, "error", err)
		return msg, err
	}

	s.logger.Info("contact message delivered", "id", msg.ID, "recipients", len(s.recipients))
	return msg, nil
}

// List returns stored messages matching f.
func (s *Service) List(ctx context.Context, f store.ContactFilter) ([]model.ContactMessage, error) {
	return s.messages.List(ctx, f)
}

// Body renders the support e-mail body for msg.
func Body(msg model.ContactMessage) string {
	return fmt.Sprintf("Email from: %s\nSubject: %s\nMessage: %s", msg.EmailFrom, msg.Subject, msg.Message)
}
